package bridge

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/danmuck/simbridge/internal/config"
	"github.com/danmuck/simbridge/internal/ident"
	"github.com/danmuck/simbridge/internal/protocol"
	"github.com/danmuck/simbridge/internal/testutil/testlog"
	"github.com/rs/zerolog/log"
)

type fakeBridge struct {
	*Facades
	registry *Registry
}

func newFakeBridge(catalog *Catalog, namespaces ...string) *fakeBridge {
	b := &fakeBridge{registry: NewRegistry(catalog, config.Default(), namespaces...)}
	b.Facades = NewFacades(b)
	b.registry.SetBridge(b)
	return b
}

func (b *fakeBridge) CurrentVersion() (Version, error) { return Highest(), nil }
func (b *fakeBridge) Registry() *Registry              { return b.registry }
func (b *fakeBridge) IDTransformer() ident.Transformer { return ident.Identity{} }
func (b *fakeBridge) Backend() string                  { return "fake" }
func (b *fakeBridge) In() (io.Reader, error)           { return nil, ErrUnsupportedOperation }
func (b *fakeBridge) Out() (io.Writer, error)          { return nil, ErrUnsupportedOperation }
func (b *fakeBridge) Close() error                     { return nil }
func (b *fakeBridge) EmergencyExit(error)              {}
func (b *fakeBridge) OnCommandCompleted()              {}

type speedCmd struct {
	via   string
	calls []float64
}

func (c *speedCmd) Execute(b Bridge, vehicleID string, speed float64) error {
	c.calls = append(c.calls, speed)
	return nil
}

type routeCmd struct{ via string }

func (c *routeCmd) Execute(b Bridge, vehicleID string) (string, error) {
	return "route_" + vehicleID, nil
}

func TestRegistrySingletonPerCapability(t *testing.T) {
	testlog.Start(t)
	catalog := NewCatalog()
	if err := Provide(catalog, "fake", func() (VehicleSetSpeed, error) { return &speedCmd{via: "plain"}, nil }); err != nil {
		t.Fatalf("provide: %v", err)
	}
	b := newFakeBridge(catalog, "fake")
	first, err := GetOrCreate[VehicleSetSpeed](b.Registry())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	second, err := GetOrCreate[VehicleSetSpeed](b.Registry())
	if err != nil {
		t.Fatalf("get again: %v", err)
	}
	if first != second {
		t.Fatalf("expected identical instance")
	}

	other := newFakeBridge(catalog, "fake")
	third, _ := GetOrCreate[VehicleSetSpeed](other.Registry())
	if third == first {
		t.Fatalf("instances must not be shared across sessions")
	}
}

func TestRegistryConstructorFallbackOrder(t *testing.T) {
	testlog.Start(t)
	catalog := NewCatalog()
	_ = ProvideConfigured(catalog, "fake", func(Bridge, config.Bridge) (VehicleSetSpeed, error) {
		return nil, errors.New("needs engine args")
	})
	_ = ProvideWithBridge(catalog, "fake", func(Bridge) (VehicleSetSpeed, error) {
		return &speedCmd{via: "bridge"}, nil
	})
	_ = Provide(catalog, "fake", func() (VehicleSetSpeed, error) { return &speedCmd{via: "plain"}, nil })

	b := newFakeBridge(catalog, "fake")
	cmd, err := GetOrCreate[VehicleSetSpeed](b.Registry())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if cmd.(*speedCmd).via != "bridge" {
		t.Fatalf("expected bridge constructor to win, got %s", cmd.(*speedCmd).via)
	}
}

func TestRegistryResolutionFailureLeavesCacheEmpty(t *testing.T) {
	testlog.Start(t)
	catalog := NewCatalog()
	b := newFakeBridge(catalog, "override", "fake")
	_, err := GetOrCreate[VehicleSetSpeed](b.Registry())
	if !errors.Is(err, ErrResolution) {
		t.Fatalf("expected ErrResolution, got %v", err)
	}
	var rerr *ResolutionError
	if !errors.As(err, &rerr) || len(rerr.Namespaces) != 2 {
		t.Fatalf("expected ResolutionError with namespaces, got %v", err)
	}
	if len(b.Registry().instances) != 0 {
		t.Fatalf("failed resolution must not populate the cache")
	}

	_ = Provide(catalog, "fake", func() (VehicleSetSpeed, error) { return nil, errors.New("broken") })
	_, err = GetOrCreate[VehicleSetSpeed](b.Registry())
	if !errors.Is(err, ErrResolution) {
		t.Fatalf("expected ErrResolution when every constructor fails, got %v", err)
	}
	if len(b.Registry().instances) != 0 {
		t.Fatalf("failed construction must not populate the cache")
	}
}

func TestRegistryOverrideNamespaceWins(t *testing.T) {
	testlog.Start(t)
	catalog := NewCatalog()
	_ = Provide(catalog, "fake", func() (VehicleGetRouteID, error) { return &routeCmd{via: "fake"}, nil })
	_ = Provide(catalog, "patched", func() (VehicleGetRouteID, error) { return &routeCmd{via: "patched"}, nil })
	b := newFakeBridge(catalog, "patched", "fake")
	cmd, err := GetOrCreate[VehicleGetRouteID](b.Registry())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if cmd.(*routeCmd).via != "patched" {
		t.Fatalf("override namespace must win")
	}
}

type dualCmd struct{}

func (dualCmd) Execute(b Bridge, vehicleID string, speed float64) error { return nil }

func TestRegistryKeysByCapabilityNotImplementation(t *testing.T) {
	testlog.Start(t)
	catalog := NewCatalog()
	_ = Provide(catalog, "fake", func() (VehicleSetSpeed, error) { return &dualCmd{}, nil })
	_ = Provide(catalog, "fake", func() (VehicleGetRouteID, error) { return &routeCmd{}, nil })
	b := newFakeBridge(catalog, "fake")
	if _, err := GetOrCreate[VehicleSetSpeed](b.Registry()); err != nil {
		t.Fatalf("speed: %v", err)
	}
	if _, err := GetOrCreate[VehicleGetRouteID](b.Registry()); err != nil {
		t.Fatalf("route: %v", err)
	}
	if len(b.Registry().instances) != 2 {
		t.Fatalf("expected one instance per capability, got %d", len(b.Registry().instances))
	}
}

func TestCatalogRejectsDuplicateShape(t *testing.T) {
	catalog := NewCatalog()
	mk := func() (VehicleSetSpeed, error) { return &speedCmd{}, nil }
	if err := Provide(catalog, "fake", mk); err != nil {
		t.Fatalf("provide: %v", err)
	}
	if err := Provide(catalog, "fake", mk); !errors.Is(err, ErrFactoryExists) {
		t.Fatalf("expected ErrFactoryExists, got %v", err)
	}
	if got := catalog.Capabilities("fake"); len(got) != 1 {
		t.Fatalf("capabilities: %v", got)
	}
}

func TestFacadeUsesRegistry(t *testing.T) {
	testlog.Start(t)
	catalog := NewCatalog()
	cmd := &speedCmd{}
	_ = Provide(catalog, "fake", func() (VehicleSetSpeed, error) { return cmd, nil })
	b := newFakeBridge(catalog, "fake")
	if err := b.Vehicles().SetSpeed("veh_0", 13.9); err != nil {
		t.Fatalf("set speed: %v", err)
	}
	if err := b.Vehicles().SetSpeed("veh_0", 0); err != nil {
		t.Fatalf("set speed: %v", err)
	}
	if len(cmd.calls) != 2 {
		t.Fatalf("expected two calls, got %v", cmd.calls)
	}
	if err := b.Routes().Add("r", nil); !errors.Is(err, ErrResolution) {
		t.Fatalf("expected resolution error for missing route command, got %v", err)
	}
}

type scriptedStep struct {
	steps [][]SubscriptionResult
}

func (s *scriptedStep) Execute(b Bridge, until time.Duration) ([]SubscriptionResult, error) {
	out := s.steps[0]
	s.steps = s.steps[1:]
	return out, nil
}

func TestSimulateUntilBookkeeping(t *testing.T) {
	testlog.Start(t)
	step := &scriptedStep{steps: [][]SubscriptionResult{
		{VehicleResult{ID: "a"}, VehicleResult{ID: "b"}, TrafficLightResult{ID: "tl"}},
		{VehicleResult{ID: "b"}, VehicleResult{ID: "c"}, InductionLoopResult{ID: "loop"}},
	}}
	catalog := NewCatalog()
	_ = Provide(catalog, "fake", func() (SimulationSimulateStep, error) { return step, nil })
	b := newFakeBridge(catalog, "fake")

	first, err := b.Simulation().SimulateUntil(time.Second)
	if err != nil {
		t.Fatalf("step 1: %v", err)
	}
	if len(first.Added) != 2 || len(first.Updated) != 0 || len(first.Removed) != 0 || len(first.TrafficLights) != 1 {
		t.Fatalf("step 1 bookkeeping: %+v", first)
	}
	second, err := b.Simulation().SimulateUntil(2 * time.Second)
	if err != nil {
		t.Fatalf("step 2: %v", err)
	}
	if len(second.Added) != 1 || second.Added[0].ID != "c" {
		t.Fatalf("step 2 added: %+v", second.Added)
	}
	if len(second.Updated) != 1 || second.Updated[0].ID != "b" {
		t.Fatalf("step 2 updated: %+v", second.Updated)
	}
	if len(second.Removed) != 1 || second.Removed[0] != "a" {
		t.Fatalf("step 2 removed: %v", second.Removed)
	}
	if len(second.InductionLoops) != 1 || second.Time != 2*time.Second {
		t.Fatalf("step 2 detectors: %+v", second)
	}
}

func TestLookupVersion(t *testing.T) {
	if v := LookupVersion("SUMO 1.14.1"); !v.Known() || v.Release != "1.14" || v.API != protocol.API20 {
		t.Fatalf("lookup 1.14.1: %+v", v)
	}
	if v := LookupVersion("SUMO v1_2_0+0452"); v.Known() {
		t.Fatalf("unparsable release must be unknown: %+v", v)
	}
	if v := LookupVersion("SUMO 2.0.0"); v.Known() {
		t.Fatalf("future release must be unknown: %+v", v)
	}
	if Lowest().API != protocol.APILowest || Highest().API != protocol.APIHighest {
		t.Fatalf("version table bounds do not match api bounds")
	}
}

func TestNegotiateVersion(t *testing.T) {
	logs := testlog.Capture(t)
	logger := log.Logger

	if v := NegotiateVersion(EngineVersion{API: 20, Release: "SUMO 1.8.0"}, logger); v.Release != "1.8" {
		t.Fatalf("known release: %+v", v)
	}
	if logs.Count("not supported") != 0 {
		t.Fatalf("known release must not warn: %s", logs.String())
	}

	v := NegotiateVersion(EngineVersion{API: protocol.APIHighest + 3, Release: "SUMO 2.3.0"}, logger)
	if v != Highest() {
		t.Fatalf("newer api must map to highest, got %+v", v)
	}
	if logs.Count("TraCI API version is not supported") != 1 {
		t.Fatalf("expected one api warning: %s", logs.String())
	}

	v = NegotiateVersion(EngineVersion{API: protocol.APIHighest, Release: "SUMO 1.99.0"}, logger)
	if v != Highest() {
		t.Fatalf("unknown release at highest api must map to highest, got %+v", v)
	}

	v = NegotiateVersion(EngineVersion{API: 17, Release: "SUMO 0.32.0"}, logger)
	if v.Known() || v.API != 17 || v.Supports(protocol.APILowest) {
		t.Fatalf("old unknown release: %+v", v)
	}
	if !VersionNotApplicable.Supports(protocol.APIHighest) || VersionNotApplicable.Applicable() {
		t.Fatalf("not applicable version must not gate commands")
	}
}

func TestStatusAndCommandError(t *testing.T) {
	err := error(&CommandError{Command: "VehicleSetSpeed", Status: Status{Code: protocol.StatusError, Description: "vehicle unknown"}})
	st, ok := StatusOf(err)
	if !ok || st.Code != protocol.StatusError || st.Description != "vehicle unknown" {
		t.Fatalf("status: %+v ok=%v", st, ok)
	}
	if IsSessionFatal(err) {
		t.Fatalf("command failures are not session fatal")
	}
	if !IsSessionFatal(protocol.ErrFraming) || !IsSessionFatal(ErrTransport) {
		t.Fatalf("framing and transport errors are session fatal")
	}
	if _, ok := StatusOf(errors.New("plain")); ok {
		t.Fatalf("plain errors carry no status")
	}
}
