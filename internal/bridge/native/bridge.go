package native

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/danmuck/simbridge/internal/bridge"
	"github.com/danmuck/simbridge/internal/config"
	"github.com/danmuck/simbridge/internal/ident"
	"github.com/danmuck/simbridge/internal/logging"
	"github.com/danmuck/simbridge/internal/observability"
	"github.com/danmuck/simbridge/internal/protocol"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Namespace is the catalog namespace of the native backend.
const Namespace = "libsumo"

var ErrEngineStart = errors.New("native: engine failed to start")

// window is the simulated time span a subscription delivers results for.
type window struct {
	start, end time.Duration
}

func (w window) covers(t time.Duration) bool {
	return t >= w.start && (w.end <= 0 || t <= w.end)
}

// subscriptions holds the objects one session polls after every step.
type subscriptions struct {
	vehicles       map[string]window
	inductionLoops map[string]window
	laneAreas      map[string]window
	trafficLights  map[string]window
}

func newSubscriptions() subscriptions {
	return subscriptions{
		vehicles:       make(map[string]window),
		inductionLoops: make(map[string]window),
		laneAreas:      make(map[string]window),
		trafficLights:  make(map[string]window),
	}
}

// Bridge is a session with an in-process engine.
type Bridge struct {
	*bridge.Facades

	session  string
	cfg      config.Bridge
	engine   Engine
	registry *bridge.Registry
	ids      ident.Transformer
	subs     subscriptions
	closed   bool
	log      zerolog.Logger
}

// New starts engine with cfg.EngineArgs and binds it to a session.
func New(cfg config.Bridge, engine Engine, catalog *bridge.Catalog) (*Bridge, error) {
	ids, err := ident.New(cfg.IDTransformer)
	if err != nil {
		return nil, err
	}
	session := uuid.NewString()
	b := &Bridge{
		session: session,
		cfg:     cfg,
		engine:  engine,
		ids:     ids,
		subs:    newSubscriptions(),
		log:     logging.For("native").With().Str("session", session).Logger(),
	}
	b.registry = bridge.NewRegistry(catalog, cfg, cfg.Namespaces()...)
	b.registry.SetBridge(b)
	b.Facades = bridge.NewFacades(b)

	if err := engine.Start(cfg.EngineArgs); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEngineStart, err)
	}
	api, release := engine.Version()
	b.log.Info().Int("api", api).Str("release", release).Strs("args", cfg.EngineArgs).Msg("engine started")
	return b, nil
}

func (b *Bridge) Session() string {
	return b.session
}

func (b *Bridge) Backend() string {
	return Namespace
}

func (b *Bridge) Registry() *bridge.Registry {
	return b.registry
}

func (b *Bridge) IDTransformer() ident.Transformer {
	return b.ids
}

// CurrentVersion is always VersionNotApplicable: the engine is linked in and
// every command is available.
func (b *Bridge) CurrentVersion() (bridge.Version, error) {
	return bridge.VersionNotApplicable, nil
}

func (b *Bridge) In() (io.Reader, error) {
	return nil, fmt.Errorf("%w: native backend has no input stream", bridge.ErrUnsupportedOperation)
}

func (b *Bridge) Out() (io.Writer, error) {
	return nil, fmt.Errorf("%w: native backend has no output stream", bridge.ErrUnsupportedOperation)
}

func (b *Bridge) OnCommandCompleted() {}

func (b *Bridge) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	b.subs = newSubscriptions()
	b.ids.Reset()
	err := b.engine.Close()
	if err != nil {
		b.log.Warn().Err(err).Msg("engine close failed")
	}
	b.log.Info().Msg("session closed")
	return err
}

func (b *Bridge) EmergencyExit(cause error) {
	if b.closed {
		return
	}
	b.log.Error().Err(cause).Msg("emergency exit")
	_ = b.Close()
}

// run executes one engine call. Engine errors become command failures with
// an error status; the session stays open.
func (b *Bridge) run(name string, fn func() error) error {
	start := time.Now()
	outcome := observability.OutcomeOK
	defer func() {
		observability.RecordCommand(Namespace, name, outcome, time.Since(start))
		b.OnCommandCompleted()
	}()
	if b.closed {
		outcome = observability.OutcomeError
		return bridge.ErrClosed
	}
	if err := fn(); err != nil {
		outcome = observability.OutcomeFailed
		b.log.Debug().Str("command", name).Err(err).Msg("command failed")
		return &bridge.CommandError{
			Command: name,
			Status:  bridge.Status{Code: protocol.StatusError, Description: err.Error()},
		}
	}
	return nil
}

// position converts an engine position into the caller's frame. Heights
// below -1000 are reported as 0.
func (b *Bridge) position(p protocol.Position) protocol.Position {
	if !p.IsValid() || p.X < protocol.InvalidThreshold || p.Y < protocol.InvalidThreshold {
		return protocol.InvalidPosition
	}
	z := p.Z
	if z < -1000 {
		z = 0
	}
	return protocol.XYZ(p.X-b.cfg.NetOffsetX, p.Y-b.cfg.NetOffsetY, z)
}
