package reader

import (
	"io"

	"github.com/danmuck/simbridge/internal/protocol"
)

// PositionTransform converts an engine position into the caller's frame.
type PositionTransform func(protocol.Position) (protocol.Position, error)

// Offset returns a transform that shifts engine coordinates by the network offset.
func Offset(dx, dy float64) PositionTransform {
	return func(p protocol.Position) (protocol.Position, error) {
		return protocol.XYZ(p.X-dx, p.Y-dy, p.Z), nil
	}
}

// Position reads dims (2 or 3) doubles. Coordinates under the invalid threshold
// and transform failures yield protocol.InvalidPosition without an error.
func Position(dims int, transform PositionTransform) Reader[protocol.Position] {
	return Func[protocol.Position](func(in io.Reader, available int) (protocol.Position, int, error) {
		var c [3]float64
		consumed := 0
		for i := 0; i < dims; i++ {
			v, err := readF64(in, available-consumed)
			if err != nil {
				return protocol.InvalidPosition, consumed, err
			}
			c[i] = v
			consumed += 8
		}
		for i := 0; i < dims; i++ {
			if c[i] < protocol.InvalidThreshold {
				return protocol.InvalidPosition, consumed, nil
			}
		}
		p := protocol.XYZ(c[0], c[1], c[2])
		if transform == nil {
			return p, consumed, nil
		}
		out, err := transform(p)
		if err != nil {
			return protocol.InvalidPosition, consumed, nil
		}
		return out, consumed, nil
	})
}
