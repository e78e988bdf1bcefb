package traci

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// traffic captures the raw bytes of one command exchange. The buffers are
// flushed to the log (and the optional sink) and reset after each command.
type traffic struct {
	sent     bytes.Buffer
	received bytes.Buffer
	sink     io.WriteCloser
	log      zerolog.Logger
}

func (t *traffic) flush() {
	if t.sent.Len() == 0 && t.received.Len() == 0 {
		return
	}
	sent := hex.EncodeToString(t.sent.Bytes())
	received := hex.EncodeToString(t.received.Bytes())
	t.log.Debug().
		Int("sent_bytes", t.sent.Len()).
		Int("received_bytes", t.received.Len()).
		Str("sent", sent).
		Str("received", received).
		Msg("traffic")
	if t.sink != nil {
		ts := time.Now().UTC().Format(time.RFC3339Nano)
		if _, err := fmt.Fprintf(t.sink, "%s >> %s\n%s << %s\n", ts, sent, ts, received); err != nil {
			t.log.Warn().Err(err).Msg("traffic log write failed")
		}
	}
	t.sent.Reset()
	t.received.Reset()
}

func (t *traffic) Close() error {
	if t.sink == nil {
		return nil
	}
	return t.sink.Close()
}
