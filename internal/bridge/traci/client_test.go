package traci

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/simbridge/internal/bridge"
	"github.com/danmuck/simbridge/internal/config"
	"github.com/danmuck/simbridge/internal/protocol"
	"github.com/danmuck/simbridge/internal/protocol/frame"
	"github.com/danmuck/simbridge/internal/testutil/testlog"
)

func TestNextBackoffDelayDeterministicNoJitter(t *testing.T) {
	testlog.Start(t)
	cfg := config.Backoff{
		InitialDelay: 250 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     5 * time.Second,
		Jitter:       false,
	}
	if got := NextBackoffDelay(cfg, 1, nil); got != 250*time.Millisecond {
		t.Fatalf("attempt1 got=%v", got)
	}
	if got := NextBackoffDelay(cfg, 2, nil); got != 500*time.Millisecond {
		t.Fatalf("attempt2 got=%v", got)
	}
	if got := NextBackoffDelay(cfg, 3, nil); got != time.Second {
		t.Fatalf("attempt3 got=%v", got)
	}
	if got := NextBackoffDelay(cfg, 6, nil); got != 5*time.Second {
		t.Fatalf("attempt6 got=%v", got)
	}
}

func TestNextBackoffDelayJitterRange(t *testing.T) {
	testlog.Start(t)
	cfg := config.Backoff{
		InitialDelay: 250 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     5 * time.Second,
		Jitter:       true,
	}
	rng := rand.New(rand.NewSource(7))
	got := NextBackoffDelay(cfg, 3, rng)
	if got < 500*time.Millisecond || got > 1500*time.Millisecond {
		t.Fatalf("jitter out of range: %v", got)
	}
}

func TestNewClientNegotiatesNewerVersionOnce(t *testing.T) {
	logs := testlog.Capture(t)
	c, done := connect(t, testConfig(), func(p *peer) {
		p.version(99, "SUMO v2.7.0")
		p.expect(protocol.CmdClose)
		p.ok(protocol.CmdClose)
	})

	for i := 0; i < 3; i++ {
		v, err := c.CurrentVersion()
		if err != nil {
			t.Fatalf("current version: %v", err)
		}
		if v != bridge.Highest() {
			t.Fatalf("version=%v want %v", v, bridge.Highest())
		}
	}
	if got := logs.Count("might work anyhow"); got != 1 {
		t.Fatalf("expected one version warning, got %d\n%s", got, logs.String())
	}
	if c.Session() == "" {
		t.Fatalf("expected a session id")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	wait(t, done)
}

func TestNewClientFailsWhenVersionQueryFails(t *testing.T) {
	testlog.Start(t)
	conn, done := serve(t, func(p *peer) {
		p.expect(protocol.CmdGetVersion)
		p.reply(protocol.CmdGetVersion, protocol.StatusNotImplemented, "nope")
	})
	_, err := NewClient(testConfig(), conn, testCatalog(t))
	if !errors.Is(err, ErrHandshake) || !errors.Is(err, bridge.ErrVersionQuery) {
		t.Fatalf("expected handshake failure, got %v", err)
	}
	if st, ok := bridge.StatusOf(err); !ok || st.Code != protocol.StatusNotImplemented {
		t.Fatalf("expected status in error chain, got %v", err)
	}
	wait(t, done)
	if _, err := conn.Write([]byte{0}); err == nil {
		t.Fatalf("expected connection closed after failed handshake")
	}
}

func TestCloseSequence(t *testing.T) {
	testlog.Start(t)
	c, done := connect(t, testConfig(), func(p *peer) {
		p.version(protocol.API21, "SUMO 1.20.0")
		p.expect(protocol.CmdClose)
		p.ok(protocol.CmdClose)
	})
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	wait(t, done)
	if _, err := c.In(); !errors.Is(err, bridge.ErrClosed) {
		t.Fatalf("in after close: %v", err)
	}
	if _, err := c.Out(); !errors.Is(err, bridge.ErrClosed) {
		t.Fatalf("out after close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if err := c.Vehicles().SetSpeed("v1", 3); !errors.Is(err, bridge.ErrClosed) {
		t.Fatalf("command after close: %v", err)
	}
}

func TestCloseReleasesSocketWhenEngineVanishes(t *testing.T) {
	logs := testlog.Capture(t)
	c, done := connect(t, testConfig(), func(p *peer) {
		p.version(protocol.API21, "SUMO 1.20.0")
		p.expect(protocol.CmdClose)
	})
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	wait(t, done)
	if logs.Count("close simulation command failed") != 1 {
		t.Fatalf("expected close failure warning\n%s", logs.String())
	}
	if _, err := c.In(); !errors.Is(err, bridge.ErrClosed) {
		t.Fatalf("expected closed client, got %v", err)
	}
}

func TestFailedCommandKeepsSessionOpen(t *testing.T) {
	testlog.Start(t)
	c, done := connect(t, testConfig(), func(p *peer) {
		p.version(protocol.API21, "SUMO 1.20.0")
		p.expect(protocol.CmdSetVehicleVariable)
		p.reply(protocol.CmdSetVehicleVariable, protocol.StatusError, "Vehicle 'ghost' is not known")
		p.expect(protocol.CmdSetVehicleVariable)
		p.ok(protocol.CmdSetVehicleVariable)
	})

	err := c.Vehicles().SetSpeed("ghost", 10)
	var ce *bridge.CommandError
	if !errors.As(err, &ce) {
		t.Fatalf("expected command error, got %v", err)
	}
	if ce.Status.Code != protocol.StatusError || ce.Status.Description != "Vehicle 'ghost' is not known" {
		t.Fatalf("status=%+v", ce.Status)
	}
	if bridge.IsSessionFatal(err) {
		t.Fatalf("command failure must not be session fatal")
	}
	if err := c.Vehicles().SetSpeed("v1", 10); err != nil {
		t.Fatalf("second command: %v", err)
	}
	wait(t, done)
}

func TestFramingErrorShutsSessionDown(t *testing.T) {
	logs := testlog.Capture(t)
	c, done := connect(t, testConfig(), func(p *peer) {
		p.version(protocol.API21, "SUMO 1.20.0")
		p.expect(protocol.CmdSetVehicleVariable)
		// status block of 7 bytes whose description claims 50
		raw := []byte{7, protocol.CmdSetVehicleVariable, protocol.StatusOK, 0, 0, 0, 50}
		if err := frame.WriteMessage(p.conn, raw); err != nil {
			t.Errorf("peer write: %v", err)
		}
	})
	err := c.Vehicles().SetSpeed("v1", 10)
	if !errors.Is(err, protocol.ErrFraming) {
		t.Fatalf("expected framing error, got %v", err)
	}
	wait(t, done)
	if _, err := c.In(); !errors.Is(err, bridge.ErrClosed) {
		t.Fatalf("expected emergency exit, got %v", err)
	}
	if logs.Count("emergency exit") != 1 {
		t.Fatalf("expected emergency exit log\n%s", logs.String())
	}
}

func TestOversizedResponseIsFramingError(t *testing.T) {
	testlog.Start(t)
	c, done := connect(t, testConfig(), func(p *peer) {
		p.version(protocol.API21, "SUMO 1.20.0")
		p.expect(protocol.CmdSetVehicleVariable)
		if _, err := p.conn.Write([]byte{0, 0, 4, 0}); err != nil {
			t.Errorf("peer write: %v", err)
		}
	}, WithLimits(frame.Limits{MaxMessageBytes: 128}))
	err := c.Vehicles().SetSpeed("v1", 10)
	if !errors.Is(err, protocol.ErrFraming) || !errors.Is(err, frame.ErrMessageTooLarge) {
		t.Fatalf("expected framing error, got %v", err)
	}
	if errors.Is(err, bridge.ErrTransport) {
		t.Fatalf("oversized length reported as transport error: %v", err)
	}
	wait(t, done)
	if _, err := c.In(); !errors.Is(err, bridge.ErrClosed) {
		t.Fatalf("expected emergency exit, got %v", err)
	}
}

func TestWriteFailureIsTransportError(t *testing.T) {
	testlog.Start(t)
	c, done := connect(t, testConfig(), func(p *peer) {
		p.version(protocol.API21, "SUMO 1.20.0")
	})
	wait(t, done)
	err := c.Vehicles().SetSpeed("v1", 10)
	if !errors.Is(err, bridge.ErrTransport) || !bridge.IsSessionFatal(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if _, err := c.Out(); !errors.Is(err, bridge.ErrClosed) {
		t.Fatalf("expected closed client, got %v", err)
	}
}

type nopCloser struct {
	bytes.Buffer
	closed bool
}

func (n *nopCloser) Close() error {
	n.closed = true
	return nil
}

func TestTrafficCaptureFlushesPerCommand(t *testing.T) {
	testlog.Start(t)
	cfg := testConfig()
	cfg.DebugTraffic = true
	sink := &nopCloser{}
	c, done := connect(t, cfg, func(p *peer) {
		p.version(protocol.API21, "SUMO 1.20.0")
		p.expect(protocol.CmdClose)
		p.ok(protocol.CmdClose)
	}, WithTrafficSink(sink))

	out := sink.String()
	// int32 length 6, command length 2, command 0x00
	if !strings.Contains(out, ">> 000000060200\n") {
		t.Fatalf("sent bytes not captured: %q", out)
	}
	if strings.Count(out, ">>") != 1 || strings.Count(out, "<<") != 1 {
		t.Fatalf("expected one exchange, got %q", out)
	}
	if c.traffic.sent.Len() != 0 || c.traffic.received.Len() != 0 {
		t.Fatalf("buffers not reset after command")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	wait(t, done)
	if !sink.closed {
		t.Fatalf("traffic sink not closed")
	}
}

func TestDialConnectsOverTCP(t *testing.T) {
	testlog.Start(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, err := ln.Accept()
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		defer conn.Close()
		p := &peer{t: t, conn: conn}
		p.version(protocol.API20, "SUMO 1.14.1")
		p.expect(protocol.CmdClose)
		p.ok(protocol.CmdClose)
	}()

	cfg := testConfig()
	addr := ln.Addr().(*net.TCPAddr)
	cfg.Host, cfg.Port = "127.0.0.1", addr.Port
	c, err := Dial(context.Background(), cfg, testCatalog(t))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	v, err := c.CurrentVersion()
	if err != nil || v.Release != "1.14" || v.API != protocol.API20 {
		t.Fatalf("version=%+v err=%v", v, err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	wait(t, done)
}

func TestDialGivesUpAfterMaxAttempts(t *testing.T) {
	testlog.Start(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	cfg := testConfig()
	cfg.Host, cfg.Port = "127.0.0.1", port
	cfg.Connect.MaxAttempts = 2
	cfg.Connect.Backoff = config.Backoff{InitialDelay: time.Millisecond, Multiplier: 1}
	if _, err := Dial(context.Background(), cfg, testCatalog(t)); !errors.Is(err, ErrDial) {
		t.Fatalf("expected dial failure, got %v", err)
	}
}

func TestRegisterTwiceRejected(t *testing.T) {
	testlog.Start(t)
	catalog := testCatalog(t)
	if err := Register(catalog); !errors.Is(err, bridge.ErrFactoryExists) {
		t.Fatalf("expected duplicate registration error, got %v", err)
	}
	if got := len(catalog.Capabilities(Namespace)); got != 17 {
		t.Fatalf("expected 17 capabilities, got %d", got)
	}
}
