package traci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"time"

	"github.com/danmuck/simbridge/internal/bridge"
	"github.com/danmuck/simbridge/internal/config"
	"github.com/danmuck/simbridge/internal/ident"
	"github.com/danmuck/simbridge/internal/logging"
	"github.com/danmuck/simbridge/internal/protocol/frame"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Namespace is the catalog namespace of the socket backend.
const Namespace = "traci"

var (
	ErrHandshake = errors.New("traci: version handshake failed")
	ErrDial      = errors.New("traci: could not connect")
)

// Option customizes a Client.
type Option func(*Client)

// WithTrafficSink sends the captured traffic of every command to w. The
// client closes w on shutdown. Capture must be enabled in the configuration.
func WithTrafficSink(w io.WriteCloser) Option {
	return func(c *Client) {
		c.sink = w
	}
}

// WithLimits overrides the response size limits.
func WithLimits(l frame.Limits) Option {
	return func(c *Client) {
		c.limits = l
	}
}

// Client is a session with an engine over a TraCI socket.
type Client struct {
	*bridge.Facades

	session  string
	cfg      config.Bridge
	conn     net.Conn
	in       io.Reader
	out      io.Writer
	limits   frame.Limits
	registry *bridge.Registry
	ids      ident.Transformer
	sink     io.WriteCloser
	traffic  *traffic
	version  *bridge.Version
	closed   bool
	log      zerolog.Logger
}

// Dial connects to cfg.Addr(), retrying with backoff while the engine is
// still starting, and returns a client whose version is already resolved.
func Dial(ctx context.Context, cfg config.Bridge, catalog *bridge.Catalog, opts ...Option) (*Client, error) {
	log := logging.For("traci")
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	dialer := net.Dialer{Timeout: cfg.Connect.Timeout}
	var attempt int
	for {
		attempt++
		conn, err := dialer.DialContext(ctx, "tcp", cfg.Addr())
		if err == nil {
			return NewClient(cfg, conn, catalog, opts...)
		}
		log.Warn().Int("attempt", attempt).Str("addr", cfg.Addr()).Err(err).Msg("dial failed")
		if attempt >= cfg.Connect.MaxAttempts {
			return nil, fmt.Errorf("%w: %s after %d attempts: %w", ErrDial, cfg.Addr(), attempt, err)
		}
		timer := time.NewTimer(NextBackoffDelay(cfg.Connect.Backoff, attempt, rng))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// NewClient wraps an established connection. The engine version is queried
// before NewClient returns; on failure the connection is closed.
func NewClient(cfg config.Bridge, conn net.Conn, catalog *bridge.Catalog, opts ...Option) (*Client, error) {
	ids, err := ident.New(cfg.IDTransformer)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	session := uuid.NewString()
	c := &Client{
		session: session,
		cfg:     cfg,
		conn:    conn,
		limits:  frame.DefaultLimits(),
		ids:     ids,
		log:     logging.For("traci").With().Str("session", session).Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.registry = bridge.NewRegistry(catalog, cfg, cfg.Namespaces()...)
	c.registry.SetBridge(c)
	c.Facades = bridge.NewFacades(c)

	c.in = bufio.NewReader(conn)
	c.out = conn
	if cfg.DebugTraffic {
		if c.sink == nil && cfg.TrafficLog.Path != "" {
			c.sink = logging.RotatingFile(logging.FileConfig{
				Path:       cfg.TrafficLog.Path,
				MaxSizeMB:  cfg.TrafficLog.MaxSizeMB,
				MaxBackups: cfg.TrafficLog.MaxBackups,
				MaxAgeDays: cfg.TrafficLog.MaxAgeDays,
				Compress:   cfg.TrafficLog.Compress,
			})
		}
		c.traffic = &traffic{sink: c.sink, log: c.log}
		c.in = io.TeeReader(c.in, &c.traffic.received)
		c.out = io.MultiWriter(conn, &c.traffic.sent)
	}

	c.log.Info().Str("remote", remoteAddr(conn)).Msg("connected")
	if _, err := c.CurrentVersion(); err != nil {
		_ = c.shutdown()
		return nil, fmt.Errorf("%w: %w", ErrHandshake, err)
	}
	return c, nil
}

func (c *Client) Session() string {
	return c.session
}

func (c *Client) Backend() string {
	return Namespace
}

func (c *Client) Registry() *bridge.Registry {
	return c.registry
}

func (c *Client) IDTransformer() ident.Transformer {
	return c.ids
}

func (c *Client) Limits() frame.Limits {
	return c.limits
}

// CurrentVersion queries the engine once and caches the negotiated version.
func (c *Client) CurrentVersion() (bridge.Version, error) {
	if c.version != nil {
		return *c.version, nil
	}
	if c.closed {
		return bridge.Version{}, bridge.ErrClosed
	}
	cmd, err := bridge.GetOrCreate[bridge.SimulationGetVersion](c.registry)
	if err != nil {
		return bridge.Version{}, fmt.Errorf("%w: %w", bridge.ErrVersionQuery, err)
	}
	reported, err := cmd.Execute(c)
	if err != nil {
		return bridge.Version{}, fmt.Errorf("%w: %w", bridge.ErrVersionQuery, err)
	}
	v := bridge.NegotiateVersion(reported, c.log)
	c.version = &v
	c.log.Info().
		Str("release", reported.Release).
		Int("api", reported.API).
		Str("version", v.String()).
		Msg("engine version resolved")
	return v, nil
}

func (c *Client) In() (io.Reader, error) {
	if c.closed {
		return nil, bridge.ErrClosed
	}
	return c.in, nil
}

func (c *Client) Out() (io.Writer, error) {
	if c.closed {
		return nil, bridge.ErrClosed
	}
	return c.out, nil
}

func (c *Client) OnCommandCompleted() {
	if c.traffic != nil {
		c.traffic.flush()
	}
}

// Close asks the engine to end the simulation, then releases the socket. The
// close command is best effort; the socket is released either way.
func (c *Client) Close() error {
	if c.closed {
		return nil
	}
	if cmd, err := bridge.GetOrCreate[bridge.SimulationClose](c.registry); err != nil {
		c.log.Warn().Err(err).Msg("close command unavailable")
	} else if err := cmd.Execute(c); err != nil {
		c.log.Warn().Err(err).Msg("close simulation command failed")
	}
	return c.shutdown()
}

func (c *Client) EmergencyExit(cause error) {
	if c.closed {
		return
	}
	c.log.Error().Err(cause).Msg("emergency exit")
	_ = c.shutdown()
}

type halfCloser interface {
	CloseRead() error
	CloseWrite() error
}

// shutdown closes the input side, the output side and the socket in that
// order. Every step runs even if an earlier one failed.
func (c *Client) shutdown() error {
	if c.closed {
		return nil
	}
	c.closed = true
	half, _ := c.conn.(halfCloser)
	steps := []struct {
		name string
		fn   func() error
	}{
		{"input", func() error {
			if half == nil {
				return nil
			}
			return half.CloseRead()
		}},
		{"output", func() error {
			if half == nil {
				return nil
			}
			return half.CloseWrite()
		}},
		{"socket", c.conn.Close},
		{"traffic log", func() error {
			if c.traffic == nil {
				if c.sink != nil {
					return c.sink.Close()
				}
				return nil
			}
			return c.traffic.Close()
		}},
	}
	var socketErr error
	for _, step := range steps {
		err := step.fn()
		if err == nil || errors.Is(err, net.ErrClosed) {
			continue
		}
		c.log.Warn().Err(err).Str("step", step.name).Msg("close step failed")
		if step.name == "socket" {
			socketErr = err
		}
	}
	c.ids.Reset()
	c.log.Info().Msg("session closed")
	return socketErr
}

func remoteAddr(conn net.Conn) string {
	if addr := conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
