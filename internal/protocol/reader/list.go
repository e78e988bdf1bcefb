package reader

import (
	"fmt"
	"io"

	"github.com/danmuck/simbridge/internal/protocol"
)

// List reads an int32 count followed by that many items.
func List[T any](item Reader[T]) Reader[[]T] {
	return Func[[]T](func(in io.Reader, available int) ([]T, int, error) {
		return readList(in, available, item)
	})
}

// TaggedList reads a list preceded by a one-byte type discriminator that must equal tag.
func TaggedList[T any](tag uint8, item Reader[T]) Reader[[]T] {
	return Func[[]T](func(in io.Reader, available int) ([]T, int, error) {
		got, n, err := readUByte(in, available)
		if err != nil {
			return nil, n, err
		}
		if got != tag {
			return nil, n, fmt.Errorf("%w: list tag 0x%02x, want 0x%02x", protocol.ErrUnexpectedValue, got, tag)
		}
		items, m, err := readList(in, available-n, item)
		return items, n + m, err
	})
}

func readList[T any](in io.Reader, available int, item Reader[T]) ([]T, int, error) {
	raw, err := readU32(in, available)
	if err != nil {
		return nil, 0, err
	}
	count := int(int32(raw))
	consumed := 4
	if count < 0 || count > available-consumed {
		return nil, consumed, fmt.Errorf("%w: list count %d exceeds %d available bytes", protocol.ErrFraming, count, available-consumed)
	}
	items := make([]T, 0, count)
	for i := 0; i < count; i++ {
		v, n, err := item.Read(in, available-consumed)
		consumed += n
		if err != nil {
			return nil, consumed, err
		}
		items = append(items, v)
	}
	return items, consumed, nil
}
