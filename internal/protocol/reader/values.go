package reader

import (
	"fmt"

	"github.com/danmuck/simbridge/internal/protocol"
)

// The As* helpers convert values produced by TypeBased into concrete types.

func AsInt(v any) (int, error) {
	i, ok := v.(int)
	if !ok {
		return 0, mismatch("int", v)
	}
	return i, nil
}

func AsFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	default:
		return 0, mismatch("float64", v)
	}
}

func AsString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", mismatch("string", v)
	}
	return s, nil
}

func AsStrings(v any) ([]string, error) {
	s, ok := v.([]string)
	if !ok {
		return nil, mismatch("[]string", v)
	}
	return s, nil
}

func AsPosition(v any) (protocol.Position, error) {
	p, ok := v.(protocol.Position)
	if !ok {
		return protocol.InvalidPosition, mismatch("position", v)
	}
	return p, nil
}

func mismatch(want string, v any) error {
	return fmt.Errorf("%w: want %s, got %T", protocol.ErrUnexpectedValue, want, v)
}
