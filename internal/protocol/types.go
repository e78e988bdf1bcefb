package protocol

import "math"

// Datatype tags preceding every self-describing value.
const (
	TypePosition2D uint8 = 0x01
	TypePosition3D uint8 = 0x03
	TypeUByte      uint8 = 0x07
	TypeByte       uint8 = 0x08
	TypeInteger    uint8 = 0x09
	TypeFloat      uint8 = 0x0A
	TypeDouble     uint8 = 0x0B
	TypeString     uint8 = 0x0C
	TypeStringList uint8 = 0x0E
	TypeCompound   uint8 = 0x0F
	TypeDoubleList uint8 = 0x10
	TypeColor      uint8 = 0x11
)

// InvalidThreshold is the coordinate value below which the engine reports an
// unknown position. SUMO uses -2^30 as its invalid double.
const InvalidThreshold = -1.0e9

// Position is a cartesian coordinate in the orchestration frame.
type Position struct {
	X, Y, Z float64
	invalid bool
}

// InvalidPosition is returned for positions that could not be decoded or transformed.
var InvalidPosition = Position{X: math.NaN(), Y: math.NaN(), Z: math.NaN(), invalid: true}

func XY(x, y float64) Position {
	return Position{X: x, Y: y}
}

func XYZ(x, y, z float64) Position {
	return Position{X: x, Y: y, Z: z}
}

func (p Position) IsValid() bool {
	return !p.invalid
}

// Color is an RGBA color as sent with TypeColor.
type Color struct {
	R, G, B, A uint8
}
