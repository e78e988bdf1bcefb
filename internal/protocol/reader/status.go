package reader

import (
	"fmt"
	"io"

	"github.com/danmuck/simbridge/internal/protocol"
	"github.com/danmuck/simbridge/internal/protocol/frame"
)

// StatusBlock is the first block of every response.
type StatusBlock struct {
	Command     uint8
	Result      uint8
	Description string
}

func (s StatusBlock) OK() bool {
	return s.Result == protocol.StatusOK
}

// Status reads a status block. Bytes the block declares beyond the
// description are discarded.
var Status Reader[StatusBlock] = Func[StatusBlock](readStatus)

func readStatus(in io.Reader, available int) (StatusBlock, int, error) {
	var out StatusBlock
	length, consumed, err := frame.ReadCommandLength(in, available)
	if err != nil {
		return out, consumed, err
	}
	cmd, n, err := readUByte(in, length-consumed)
	consumed += n
	if err != nil {
		return out, consumed, err
	}
	result, n, err := readUByte(in, length-consumed)
	consumed += n
	if err != nil {
		return out, consumed, err
	}
	desc, n, err := readString(in, length-consumed)
	consumed += n
	if err != nil {
		return out, consumed, fmt.Errorf("status description: %w", err)
	}
	out = StatusBlock{Command: cmd, Result: result, Description: desc}
	if rest := length - consumed; rest > 0 {
		if err := Discard(in, rest); err != nil {
			return out, consumed, err
		}
		consumed += rest
	}
	return out, consumed, nil
}
