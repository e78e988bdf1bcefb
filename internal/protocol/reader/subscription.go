package reader

import (
	"fmt"
	"io"

	"github.com/danmuck/simbridge/internal/protocol"
	"github.com/rs/zerolog"
)

// Field places one decoded variable value into a record.
type Field[R any] func(rec *R, value any) error

// Subscription reads a variable subscription result: object id, variable
// count, then per variable its id, status byte and tagged value. Unknown
// variables and variables reported with an error status are logged and skipped.
type Subscription[R any] struct {
	ID     Reader[string]
	Values *TypeBased
	Fields map[uint8]Field[R]
	New    func(id string) R
	Logger zerolog.Logger
}

func (s *Subscription[R]) Read(in io.Reader, available int) (R, int, error) {
	var rec R
	id, consumed, err := s.ID.Read(in, available)
	if err != nil {
		return rec, consumed, err
	}
	if s.New != nil {
		rec = s.New(id)
	}
	count, n, err := readUByte(in, available-consumed)
	consumed += n
	if err != nil {
		return rec, consumed, err
	}
	for i := 0; i < int(count); i++ {
		varID, n, err := readUByte(in, available-consumed)
		consumed += n
		if err != nil {
			return rec, consumed, err
		}
		status, n, err := readUByte(in, available-consumed)
		consumed += n
		if err != nil {
			return rec, consumed, err
		}
		value, n, err := s.Values.Read(in, available-consumed)
		consumed += n
		if err != nil {
			return rec, consumed, fmt.Errorf("variable 0x%02x of %q: %w", varID, id, err)
		}
		if status != protocol.StatusOK {
			s.Logger.Warn().
				Str("object", id).
				Str("var", fmt.Sprintf("0x%02x", varID)).
				Interface("detail", value).
				Msg("subscription variable reported an error")
			continue
		}
		set, ok := s.Fields[varID]
		if !ok {
			s.Logger.Warn().
				Str("object", id).
				Str("var", fmt.Sprintf("0x%02x", varID)).
				Msg("unknown subscription variable")
			continue
		}
		if err := set(&rec, value); err != nil {
			return rec, consumed, fmt.Errorf("variable 0x%02x of %q: %w", varID, id, err)
		}
	}
	return rec, consumed, nil
}

// The setters below build Field values for the common value shapes.

func FloatField[R any](set func(*R, float64)) Field[R] {
	return func(rec *R, v any) error {
		f, err := AsFloat(v)
		if err != nil {
			return err
		}
		set(rec, f)
		return nil
	}
}

func IntField[R any](set func(*R, int)) Field[R] {
	return func(rec *R, v any) error {
		i, err := AsInt(v)
		if err != nil {
			return err
		}
		set(rec, i)
		return nil
	}
}

func StringField[R any](set func(*R, string)) Field[R] {
	return func(rec *R, v any) error {
		s, err := AsString(v)
		if err != nil {
			return err
		}
		set(rec, s)
		return nil
	}
}

func StringsField[R any](set func(*R, []string)) Field[R] {
	return func(rec *R, v any) error {
		s, err := AsStrings(v)
		if err != nil {
			return err
		}
		set(rec, s)
		return nil
	}
}

func PositionField[R any](set func(*R, protocol.Position)) Field[R] {
	return func(rec *R, v any) error {
		p, err := AsPosition(v)
		if err != nil {
			return err
		}
		set(rec, p)
		return nil
	}
}
