package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/simbridge/internal/testutil/testlog"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersionAgainstNativeBackend(t *testing.T) {
	testlog.Start(t)
	out, err := execute(t, "--backend", "libsumo", "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "backend:    libsumo") || !strings.Contains(out, "memengine 1.20.0 (API 21)") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestRunStepsDemoNetwork(t *testing.T) {
	testlog.Start(t)
	out, err := execute(t, "--backend", "libsumo", "run",
		"--steps", "3", "--vehicle", "v0", "--traffic-light", "tl0", "--lane-area", "lad0",
		"--diag-addr", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := strings.Count(out, "t="); got != 3 {
		t.Fatalf("expected 3 steps, got %d:\n%s", got, out)
	}
	for _, want := range []string{
		"t=1s added=1 updated=0 removed=0",
		"vehicle v0 road=e0 pos=(0.00,0.00)",
		"t=2s added=0 updated=1",
		"traffic_light tl0 program=0 phase=0 state=GGrr next=31s",
		"lane_area lad0 vehicles=0",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestRunRejectsUnknownVehicleRoute(t *testing.T) {
	testlog.Start(t)
	_, err := execute(t, "--backend", "libsumo", "run", "--vehicle", "v0", "--route", "nowhere")
	if err == nil || !strings.Contains(err.Error(), "add vehicle v0") {
		t.Fatalf("expected add failure, got %v", err)
	}
}

func TestRunRequiresSteps(t *testing.T) {
	testlog.Start(t)
	if _, err := execute(t, "--backend", "libsumo", "run", "--steps", "0"); err == nil {
		t.Fatalf("expected error for zero steps")
	}
}

func TestConfigFileSelectsBackend(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	body := "backend: libsumo\nstep_length: 500ms\nlog_level: debug\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	out, err := execute(t, "--config", path, "run", "--steps", "2", "--vehicle", "v0")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "t=500ms added=1") || !strings.Contains(out, "t=1s added=0 updated=1") {
		t.Fatalf("step length not applied:\n%s", out)
	}
}

func TestUnknownBackendRejected(t *testing.T) {
	testlog.Start(t)
	if _, err := execute(t, "--backend", "carla", "version"); err == nil || !strings.Contains(err.Error(), "unknown backend") {
		t.Fatalf("expected invalid backend error, got %v", err)
	}
}
