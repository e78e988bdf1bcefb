package frame

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/simbridge/internal/protocol"
)

const (
	// MessageHeaderLen is the int32 total length prefixing every message.
	MessageHeaderLen = 4
	// MaxShortContentLen is the largest content that fits a one-byte command length.
	MaxShortContentLen = 254
)

var (
	ErrShortHeader     = errors.New("frame: short message header")
	ErrMessageTooSmall = errors.New("frame: message length smaller than header")
	ErrMessageTooLarge = errors.New("frame: message too large")
)

// Limits constrains message decode memory use.
type Limits struct {
	MaxMessageBytes int
}

func DefaultLimits() Limits {
	return Limits{
		MaxMessageBytes: 64 * 1024 * 1024,
	}
}

// EncodeCommand wraps command content (id + parameters) in a command block.
// Content shorter than 255 bytes gets a one-byte length, anything longer a
// zero byte followed by an int32 length. Both lengths include themselves.
func EncodeCommand(content []byte) []byte {
	if len(content) <= MaxShortContentLen {
		buf := make([]byte, 0, 1+len(content))
		buf = append(buf, byte(1+len(content)))
		return append(buf, content...)
	}
	buf := make([]byte, 5, 5+len(content))
	buf[0] = 0
	binary.BigEndian.PutUint32(buf[1:5], uint32(1+4+len(content)))
	return append(buf, content...)
}

// WriteMessage frames the given command blocks as one message and writes it
// with a single Write call.
func WriteMessage(w io.Writer, commands ...[]byte) error {
	total := MessageHeaderLen
	for _, c := range commands {
		total += len(c)
	}
	var buf bytes.Buffer
	buf.Grow(total)
	var head [MessageHeaderLen]byte
	binary.BigEndian.PutUint32(head[:], uint32(total))
	buf.Write(head[:])
	for _, c := range commands {
		buf.Write(c)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// WriteCommand writes a single command as one message.
func WriteCommand(w io.Writer, content []byte) error {
	return WriteMessage(w, EncodeCommand(content))
}

// ReadMessage reads one message and returns its body without the length header.
func ReadMessage(r io.Reader, limits Limits) ([]byte, error) {
	var head [MessageHeaderLen]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: %w", protocol.ErrFraming, ErrShortHeader)
		}
		return nil, err
	}
	total := int(int32(binary.BigEndian.Uint32(head[:])))
	if total < MessageHeaderLen {
		return nil, fmt.Errorf("%w: %w: %d", protocol.ErrFraming, ErrMessageTooSmall, total)
	}
	if limits.MaxMessageBytes > 0 && total > limits.MaxMessageBytes {
		return nil, fmt.Errorf("%w: %w: %d", protocol.ErrFraming, ErrMessageTooLarge, total)
	}
	body := make([]byte, total-MessageHeaderLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return body, nil
}

// ReadCommandLength reads a command length field. It returns the length of the
// whole block (length field included) and the bytes consumed by the field itself.
func ReadCommandLength(in io.Reader, available int) (int, int, error) {
	if available < 1 {
		return 0, 0, fmt.Errorf("%w: no bytes left for command length", protocol.ErrFraming)
	}
	var b [4]byte
	if _, err := io.ReadFull(in, b[:1]); err != nil {
		return 0, 0, err
	}
	length, consumed := int(b[0]), 1
	if length == 0 {
		if available < 5 {
			return 0, consumed, fmt.Errorf("%w: extended command length needs 4 bytes, %d left", protocol.ErrFraming, available-1)
		}
		if _, err := io.ReadFull(in, b[:]); err != nil {
			return 0, consumed, err
		}
		consumed += 4
		length = int(int32(binary.BigEndian.Uint32(b[:])))
	}
	if length < consumed || length > available {
		return 0, consumed, fmt.Errorf("%w: command length %d outside [%d,%d]", protocol.ErrFraming, length, consumed, available)
	}
	return length, consumed, nil
}
