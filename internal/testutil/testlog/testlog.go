package testlog

import (
	"bytes"
	"sync"
	"testing"

	"github.com/danmuck/simbridge/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	log.Info().Str("test", t.Name()).Msg("start")
}

// Capture redirects the global logger into a buffer for the rest of the test.
// Loggers must be derived after Capture to be observed.
func Capture(t *testing.T) *Buffer {
	t.Helper()
	logging.ConfigureTests()
	buf := &Buffer{}
	prev := log.Logger
	log.Logger = zerolog.New(buf).Level(zerolog.TraceLevel)
	t.Cleanup(func() { log.Logger = prev })
	return buf
}

// Buffer is a concurrency-safe log sink.
type Buffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Count returns how many lines contain substr.
func (b *Buffer) Count(substr string) int {
	n := 0
	for _, line := range bytes.Split([]byte(b.String()), []byte("\n")) {
		if bytes.Contains(line, []byte(substr)) {
			n++
		}
	}
	return n
}
