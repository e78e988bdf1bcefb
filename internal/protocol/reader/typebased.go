package reader

import (
	"fmt"
	"io"

	"github.com/danmuck/simbridge/internal/protocol"
)

// CompoundReader decodes the elements of a compound value. The element count
// has already been consumed by the caller.
type CompoundReader interface {
	ReadCompound(in io.Reader, available, elements int) (any, int, error)
}

// CompoundFunc adapts a function to CompoundReader.
type CompoundFunc func(in io.Reader, available, elements int) (any, int, error)

func (f CompoundFunc) ReadCompound(in io.Reader, available, elements int) (any, int, error) {
	return f(in, available, elements)
}

// TypeBased reads a tag byte and dispatches on it. Integer tags decode to int,
// floating point tags to float64, positions to protocol.Position, string lists
// to []string, double lists to []float64 and colors to protocol.Color.
type TypeBased struct {
	positions PositionTransform
	compound  CompoundReader
}

func NewTypeBased(positions PositionTransform) *TypeBased {
	return &TypeBased{positions: positions}
}

// WithCompound returns a copy of r that delegates compound values to c.
func (r *TypeBased) WithCompound(c CompoundReader) *TypeBased {
	out := *r
	out.compound = c
	return &out
}

func (r *TypeBased) Read(in io.Reader, available int) (any, int, error) {
	tag, n, err := readUByte(in, available)
	if err != nil {
		return nil, n, err
	}
	v, m, err := r.ReadValue(tag, in, available-n)
	return v, n + m, err
}

// ReadValue decodes a value whose tag has already been read.
func (r *TypeBased) ReadValue(tag uint8, in io.Reader, available int) (any, int, error) {
	switch tag {
	case protocol.TypeUByte:
		v, n, err := readUByte(in, available)
		return int(v), n, err
	case protocol.TypeByte:
		v, n, err := readByte(in, available)
		return int(v), n, err
	case protocol.TypeInteger:
		v, n, err := readInteger(in, available)
		return int(v), n, err
	case protocol.TypeFloat:
		return readFloat(in, available)
	case protocol.TypeDouble:
		return readDouble(in, available)
	case protocol.TypeString:
		return readString(in, available)
	case protocol.TypeStringList:
		return readStringList(in, available)
	case protocol.TypeDoubleList:
		return List(Double).Read(in, available)
	case protocol.TypePosition2D:
		return Position(2, r.positions).Read(in, available)
	case protocol.TypePosition3D:
		return Position(3, r.positions).Read(in, available)
	case protocol.TypeColor:
		return readColor(in, available)
	case protocol.TypeCompound:
		if r.compound == nil {
			return nil, 0, fmt.Errorf("%w: compound value without registered reader", protocol.ErrUnknownType)
		}
		raw, err := readU32(in, available)
		if err != nil {
			return nil, 0, err
		}
		elements := int(int32(raw))
		if elements < 0 {
			return nil, 4, fmt.Errorf("%w: negative compound size %d", protocol.ErrFraming, elements)
		}
		v, n, err := r.compound.ReadCompound(in, available-4, elements)
		return v, 4 + n, err
	default:
		return nil, 0, fmt.Errorf("%w: 0x%02x", protocol.ErrUnknownType, tag)
	}
}
