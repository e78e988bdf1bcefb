// Package reader decodes typed TraCI values from a byte stream.
//
// Every read is a pure function of (stream, bytes available) returning the
// value together with the exact number of bytes taken from the stream.
// Composite readers sum the counts of the readers they delegate to, so a
// reader value can be shared and used reentrantly.
package reader

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/danmuck/simbridge/internal/protocol"
)

// Reader decodes one value shape.
type Reader[T any] interface {
	Read(in io.Reader, available int) (T, int, error)
}

// Func adapts a plain function to Reader.
type Func[T any] func(in io.Reader, available int) (T, int, error)

func (f Func[T]) Read(in io.Reader, available int) (T, int, error) {
	return f(in, available)
}

// Map converts the value of a reader without touching its byte count.
func Map[T, U any](r Reader[T], fn func(T) U) Reader[U] {
	return Func[U](func(in io.Reader, available int) (U, int, error) {
		v, n, err := r.Read(in, available)
		if err != nil {
			var zero U
			return zero, n, err
		}
		return fn(v), n, nil
	})
}

func readN(in io.Reader, n, available int) ([]byte, error) {
	if n < 0 || n > available {
		return nil, fmt.Errorf("%w: need %d bytes, %d available", protocol.ErrFraming, n, available)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(in, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Discard drops n bytes from the stream.
func Discard(in io.Reader, n int) error {
	if n <= 0 {
		return nil
	}
	_, err := io.CopyN(io.Discard, in, int64(n))
	return err
}

func readU32(in io.Reader, available int) (uint32, error) {
	b, err := readN(in, 4, available)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func readF64(in io.Reader, available int) (float64, error) {
	b, err := readN(in, 8, available)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}
