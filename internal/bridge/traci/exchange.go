package traci

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/danmuck/simbridge/internal/bridge"
	"github.com/danmuck/simbridge/internal/logging"
	"github.com/danmuck/simbridge/internal/observability"
	"github.com/danmuck/simbridge/internal/protocol"
	"github.com/danmuck/simbridge/internal/protocol/frame"
	"github.com/danmuck/simbridge/internal/protocol/reader"
	"github.com/rs/zerolog"
)

// command carries what every TraCI command implementation shares.
type command struct {
	name  string
	id    uint8
	since int
	log   zerolog.Logger
}

// newCommand describes a command. since is the lowest API level that
// understands it; 0 disables the version check.
func newCommand(name string, id uint8, since int) command {
	return command{
		name:  name,
		id:    id,
		since: since,
		log:   logging.For("traci").With().Str("command", name).Logger(),
	}
}

// response is the unread part of one response message.
type response struct {
	*bytes.Reader
}

func newResponse(b []byte) *response {
	return &response{Reader: bytes.NewReader(b)}
}

// block reads the next result block and returns its id with a response
// bounded to the block's remaining content.
func (r *response) block() (uint8, *response, error) {
	length, consumed, err := frame.ReadCommandLength(r, r.Len())
	if err != nil {
		return 0, nil, err
	}
	if length-consumed < 1 {
		return 0, nil, fmt.Errorf("%w: result block without id", protocol.ErrFraming)
	}
	buf := make([]byte, length-consumed)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, nil, err
	}
	return buf[0], newResponse(buf[1:]), nil
}

type limiter interface {
	Limits() frame.Limits
}

// execute sends content as one command and reads the whole response. A
// non-OK status becomes a *bridge.CommandError and leaves the session open.
// Transport and framing failures shut the session down through EmergencyExit.
// handle reads the result blocks that follow an OK status.
func (c command) execute(b bridge.Bridge, content []byte, handle func(*response) error) error {
	start := time.Now()
	outcome := observability.OutcomeOK
	defer func() {
		observability.RecordCommand(b.Backend(), c.name, outcome, time.Since(start))
		b.OnCommandCompleted()
	}()

	if len(content) == 0 {
		outcome = observability.OutcomeError
		return fmt.Errorf("%w: %s without content", protocol.ErrUnexpectedValue, c.name)
	}
	if c.since > 0 {
		v, err := b.CurrentVersion()
		if err != nil {
			outcome = observability.OutcomeError
			return err
		}
		if !v.Supports(c.since) {
			outcome = observability.OutcomeSkipped
			return fmt.Errorf("%w: %s needs API %d, engine %s speaks %d", bridge.ErrUnsupportedByVersion, c.name, c.since, v, v.API)
		}
	}
	out, err := b.Out()
	if err != nil {
		outcome = observability.OutcomeError
		return err
	}
	in, err := b.In()
	if err != nil {
		outcome = observability.OutcomeError
		return err
	}

	c.log.Debug().Int("bytes", len(content)).Msg("send")
	if err := frame.WriteCommand(out, content); err != nil {
		outcome = observability.OutcomeError
		return fatal(b, fmt.Errorf("%w: write %s: %w", bridge.ErrTransport, c.name, err))
	}
	limits := frame.DefaultLimits()
	if l, ok := b.(limiter); ok {
		limits = l.Limits()
	}
	body, err := frame.ReadMessage(in, limits)
	if err != nil {
		outcome = observability.OutcomeError
		if errors.Is(err, protocol.ErrFraming) {
			return fatal(b, fmt.Errorf("read %s: %w", c.name, err))
		}
		return fatal(b, fmt.Errorf("%w: read %s: %w", bridge.ErrTransport, c.name, err))
	}

	resp := newResponse(body)
	st, _, err := reader.Status.Read(resp, resp.Len())
	if err != nil {
		outcome = observability.OutcomeError
		return fatal(b, fmt.Errorf("%s status: %w", c.name, err))
	}
	if st.Command != content[0] {
		outcome = observability.OutcomeError
		return fatal(b, fmt.Errorf("%w: status for command 0x%02x, sent 0x%02x", protocol.ErrFraming, st.Command, content[0]))
	}
	if !st.OK() {
		outcome = observability.OutcomeFailed
		c.log.Debug().Uint8("status", st.Result).Str("description", st.Description).Msg("command failed")
		return &bridge.CommandError{
			Command: c.name,
			Status:  bridge.Status{Code: st.Result, Description: st.Description},
		}
	}
	if handle != nil {
		if err := handle(resp); err != nil {
			outcome = observability.OutcomeError
			err = fmt.Errorf("%s: %w", c.name, err)
			if bridge.IsSessionFatal(err) {
				return fatal(b, err)
			}
			return err
		}
	}
	if resp.Len() > 0 {
		c.log.Debug().Int("bytes", resp.Len()).Msg("unread response bytes discarded")
	}
	return nil
}

func fatal(b bridge.Bridge, err error) error {
	b.EmergencyExit(err)
	return err
}

func unexpected(what string, got, want any) error {
	return fmt.Errorf("%w: %s %v, want %v", protocol.ErrUnexpectedValue, what, got, want)
}
