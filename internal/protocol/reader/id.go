package reader

import (
	"io"

	"github.com/danmuck/simbridge/internal/ident"
)

// ID reads an engine identifier and translates it into the framework's naming.
func ID(tr ident.Transformer) Reader[string] {
	if tr == nil {
		tr = ident.Identity{}
	}
	return Func[string](func(in io.Reader, available int) (string, int, error) {
		raw, n, err := readString(in, available)
		if err != nil {
			return "", n, err
		}
		return tr.FromExternal(raw), n, nil
	})
}
