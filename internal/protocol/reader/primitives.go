package reader

import (
	"fmt"
	"io"
	"math"

	"github.com/danmuck/simbridge/internal/protocol"
)

var (
	UByte      Reader[uint8]    = Func[uint8](readUByte)
	Byte       Reader[int8]     = Func[int8](readByte)
	Integer    Reader[int32]    = Func[int32](readInteger)
	Float      Reader[float64]  = Func[float64](readFloat)
	Double     Reader[float64]  = Func[float64](readDouble)
	String     Reader[string]   = Func[string](readString)
	StringList Reader[[]string] = Func[[]string](readStringList)

	Color Reader[protocol.Color] = Func[protocol.Color](readColor)
)

// Bytes reads a raw block of n bytes.
func Bytes(n int) Reader[[]byte] {
	return Func[[]byte](func(in io.Reader, available int) ([]byte, int, error) {
		b, err := readN(in, n, available)
		if err != nil {
			return nil, 0, err
		}
		return b, n, nil
	})
}

func readUByte(in io.Reader, available int) (uint8, int, error) {
	b, err := readN(in, 1, available)
	if err != nil {
		return 0, 0, err
	}
	return b[0], 1, nil
}

func readByte(in io.Reader, available int) (int8, int, error) {
	b, err := readN(in, 1, available)
	if err != nil {
		return 0, 0, err
	}
	return int8(b[0]), 1, nil
}

func readInteger(in io.Reader, available int) (int32, int, error) {
	v, err := readU32(in, available)
	if err != nil {
		return 0, 0, err
	}
	return int32(v), 4, nil
}

func readFloat(in io.Reader, available int) (float64, int, error) {
	v, err := readU32(in, available)
	if err != nil {
		return 0, 0, err
	}
	return float64(math.Float32frombits(v)), 4, nil
}

func readDouble(in io.Reader, available int) (float64, int, error) {
	v, err := readF64(in, available)
	if err != nil {
		return 0, 0, err
	}
	return v, 8, nil
}

func readString(in io.Reader, available int) (string, int, error) {
	n, err := readU32(in, available)
	if err != nil {
		return "", 0, err
	}
	length := int(int32(n))
	if length < 0 {
		return "", 4, fmt.Errorf("%w: negative string length %d", protocol.ErrFraming, length)
	}
	b, err := readN(in, length, available-4)
	if err != nil {
		return "", 4, err
	}
	return string(b), 4 + length, nil
}

func readStringList(in io.Reader, available int) ([]string, int, error) {
	return List(String).Read(in, available)
}

func readColor(in io.Reader, available int) (protocol.Color, int, error) {
	b, err := readN(in, 4, available)
	if err != nil {
		return protocol.Color{}, 0, err
	}
	return protocol.Color{R: b[0], G: b[1], B: b[2], A: b[3]}, 4, nil
}
