package tlv

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/danmuck/simbridge/internal/protocol"
)

// Encoder serializes command content. Plain methods write raw values,
// Typed* methods prefix the value with its datatype tag.
type Encoder struct {
	buf bytes.Buffer
}

func New() *Encoder {
	return &Encoder{}
}

// NewCommand starts content for the given command id.
func NewCommand(id uint8) *Encoder {
	return New().UByte(id)
}

func (e *Encoder) UByte(v uint8) *Encoder {
	e.buf.WriteByte(v)
	return e
}

func (e *Encoder) Byte(v int8) *Encoder {
	e.buf.WriteByte(byte(v))
	return e
}

func (e *Encoder) Int(v int32) *Encoder {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	e.buf.Write(b[:])
	return e
}

func (e *Encoder) Float(v float32) *Encoder {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], math.Float32bits(v))
	e.buf.Write(b[:])
	return e
}

func (e *Encoder) Double(v float64) *Encoder {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
	e.buf.Write(b[:])
	return e
}

func (e *Encoder) String(s string) *Encoder {
	e.Int(int32(len(s)))
	e.buf.WriteString(s)
	return e
}

func (e *Encoder) StringList(items []string) *Encoder {
	e.Int(int32(len(items)))
	for _, s := range items {
		e.String(s)
	}
	return e
}

func (e *Encoder) TypedUByte(v uint8) *Encoder {
	return e.UByte(protocol.TypeUByte).UByte(v)
}

func (e *Encoder) TypedByte(v int8) *Encoder {
	return e.UByte(protocol.TypeByte).Byte(v)
}

func (e *Encoder) TypedInt(v int32) *Encoder {
	return e.UByte(protocol.TypeInteger).Int(v)
}

func (e *Encoder) TypedDouble(v float64) *Encoder {
	return e.UByte(protocol.TypeDouble).Double(v)
}

func (e *Encoder) TypedString(s string) *Encoder {
	return e.UByte(protocol.TypeString).String(s)
}

func (e *Encoder) TypedStringList(items []string) *Encoder {
	return e.UByte(protocol.TypeStringList).StringList(items)
}

// Compound starts a compound value holding the given number of elements.
func (e *Encoder) Compound(elements int) *Encoder {
	return e.UByte(protocol.TypeCompound).Int(int32(elements))
}

func (e *Encoder) TypedColor(c protocol.Color) *Encoder {
	return e.UByte(protocol.TypeColor).UByte(c.R).UByte(c.G).UByte(c.B).UByte(c.A)
}

func (e *Encoder) TypedPosition2D(p protocol.Position) *Encoder {
	return e.UByte(protocol.TypePosition2D).Double(p.X).Double(p.Y)
}

func (e *Encoder) TypedPosition3D(p protocol.Position) *Encoder {
	return e.UByte(protocol.TypePosition3D).Double(p.X).Double(p.Y).Double(p.Z)
}

func (e *Encoder) Len() int {
	return e.buf.Len()
}

// Bytes returns a copy of the encoded content.
func (e *Encoder) Bytes() []byte {
	return bytes.Clone(e.buf.Bytes())
}
