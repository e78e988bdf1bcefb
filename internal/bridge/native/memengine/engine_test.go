package memengine

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/danmuck/simbridge/internal/bridge/native"
	"github.com/danmuck/simbridge/internal/testutil/testlog"
)

func started(t *testing.T) *Engine {
	t.Helper()
	e := New(DemoNetwork())
	if err := e.Start([]string{"-c", "demo.sumocfg"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	return e
}

func step(t *testing.T, e *Engine, until time.Duration) {
	t.Helper()
	if err := e.Step(until); err != nil {
		t.Fatalf("step %v: %v", until, err)
	}
}

func TestEngineRequiresStart(t *testing.T) {
	testlog.Start(t)
	e := New(DemoNetwork())
	if err := e.Step(time.Second); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("expected not started, got %v", err)
	}
	if err := e.Start(nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := e.Start(nil); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected already started, got %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := e.Step(time.Second); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("expected closed engine to refuse steps, got %v", err)
	}
}

func TestVehicleDrivesRouteAndArrives(t *testing.T) {
	testlog.Start(t)
	e := started(t)
	if err := e.AddVehicle(native.VehicleSpec{ID: "v0", RouteID: "r0", Lane: "best", Position: "base", Speed: "max"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if ids := e.VehicleIDs(); len(ids) != 0 {
		t.Fatalf("vehicle inserted before step: %v", ids)
	}

	step(t, e, time.Second)
	s, err := e.Vehicle("v0")
	if err != nil {
		t.Fatalf("vehicle: %v", err)
	}
	if s.RoadID != "e0" || s.LanePosition != 0 || s.Speed != defaultMaxSpeed || s.RouteID != "r0" {
		t.Fatalf("unexpected departure state %+v", s)
	}

	step(t, e, 10*time.Second)
	s, _ = e.Vehicle("v0")
	if want := 9 * defaultMaxSpeed; math.Abs(s.LanePosition-want) > 1e-9 || math.Abs(s.Position.X-want) > 1e-9 {
		t.Fatalf("position=%v lanepos=%v want %v", s.Position, s.LanePosition, want)
	}
	if math.Abs(s.Angle-90) > 1e-9 {
		t.Fatalf("angle=%v want 90", s.Angle)
	}

	step(t, e, 30*time.Second)
	s, _ = e.Vehicle("v0")
	if s.RoadID != "e2" || s.Angle != 0 {
		t.Fatalf("expected vehicle heading north on e2, got %+v", s)
	}
	loop, err := e.InductionLoop("loop0")
	if err != nil {
		t.Fatalf("loop: %v", err)
	}
	if len(loop.VehicleIDs) != 1 || loop.VehicleIDs[0] != "v0" || loop.MeanLength != vehicleLen {
		t.Fatalf("loop=%+v", loop)
	}
	area, err := e.LaneArea("lad0")
	if err != nil {
		t.Fatalf("lane area: %v", err)
	}
	if area.VehicleCount != 1 || area.Halting != 0 || area.Length != 300 {
		t.Fatalf("area=%+v", area)
	}

	step(t, e, 100*time.Second)
	if ids := e.VehicleIDs(); len(ids) != 0 {
		t.Fatalf("expected arrival, still have %v", ids)
	}
	if arrived := e.ArrivedIDs(); len(arrived) != 1 || arrived[0] != "v0" {
		t.Fatalf("arrived=%v", arrived)
	}
	loop, _ = e.InductionLoop("loop0")
	if loop.MeanSpeed != -1 || len(loop.VehicleIDs) != 0 {
		t.Fatalf("loop must reset between steps: %+v", loop)
	}
	if _, err := e.Vehicle("v0"); !errors.Is(err, ErrUnknownObject) {
		t.Fatalf("expected unknown vehicle, got %v", err)
	}
}

func TestSpeedControlAndModes(t *testing.T) {
	testlog.Start(t)
	e := started(t)
	_ = e.AddVehicle(native.VehicleSpec{ID: "v0", RouteID: "r0", Speed: "0"})
	step(t, e, time.Second)

	step(t, e, 2*time.Second)
	s, _ := e.Vehicle("v0")
	if s.Speed != maxAccel || s.Acceleration != maxAccel {
		t.Fatalf("expected limited acceleration, got %+v", s)
	}

	if err := e.SetSpeedMode("v0", 0); err != nil {
		t.Fatalf("speed mode: %v", err)
	}
	if err := e.SetLaneChangeMode("v0", 512); err != nil {
		t.Fatalf("lane change mode: %v", err)
	}
	if err := e.SetSpeed("v0", 3); err != nil {
		t.Fatalf("set speed: %v", err)
	}
	step(t, e, 3*time.Second)
	s, _ = e.Vehicle("v0")
	if s.Speed != 3 {
		t.Fatalf("speed=%v want 3", s.Speed)
	}
	speed, lc, ok := e.Modes("v0")
	if !ok || speed != 0 || lc != 512 {
		t.Fatalf("modes=%d,%d,%v", speed, lc, ok)
	}

	_ = e.SetSpeed("v0", 0)
	step(t, e, 4*time.Second)
	area, _ := e.LaneArea("lad0")
	if area.VehicleCount != 0 {
		t.Fatalf("vehicle on e0 counted by lad0: %+v", area)
	}
	if err := e.SetSpeed("ghost", 1); !errors.Is(err, ErrUnknownObject) {
		t.Fatalf("expected unknown vehicle, got %v", err)
	}
}

func TestAddVehicleValidation(t *testing.T) {
	testlog.Start(t)
	e := started(t)
	cases := []struct {
		name string
		spec native.VehicleSpec
		want error
	}{
		{"unknown route", native.VehicleSpec{ID: "a", RouteID: "nope"}, ErrUnknownObject},
		{"bad lane", native.VehicleSpec{ID: "a", RouteID: "r0", Lane: "3"}, ErrInvalidValue},
		{"bad speed", native.VehicleSpec{ID: "a", RouteID: "r0", Speed: "fast"}, ErrInvalidValue},
		{"beyond edge", native.VehicleSpec{ID: "a", RouteID: "r0", Position: "500"}, ErrInvalidValue},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := e.AddVehicle(tc.spec); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
	if err := e.AddVehicle(native.VehicleSpec{ID: "a", RouteID: "r0"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := e.AddVehicle(native.VehicleSpec{ID: "a", RouteID: "r0"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate pending vehicle, got %v", err)
	}
}

func TestTrafficLightCyclesAndSwitchesProgram(t *testing.T) {
	testlog.Start(t)
	e := started(t)
	tl, err := e.TrafficLight("tl0")
	if err != nil {
		t.Fatalf("traffic light: %v", err)
	}
	if tl.ProgramID != "0" || tl.Phase != 0 || tl.NextSwitch != 31 || tl.State != "GGrr" {
		t.Fatalf("initial=%+v", tl)
	}

	step(t, e, 33*time.Second)
	tl, _ = e.TrafficLight("tl0")
	if tl.Phase != 1 || tl.State != "yyrr" || tl.NextSwitch != 35 {
		t.Fatalf("after 33s=%+v", tl)
	}

	step(t, e, 100*time.Second)
	tl, _ = e.TrafficLight("tl0")
	if tl.Phase != 0 || tl.NextSwitch != 101 {
		t.Fatalf("after 100s=%+v", tl)
	}

	if err := e.SetProgram("tl0", "off"); err != nil {
		t.Fatalf("set program: %v", err)
	}
	step(t, e, 500*time.Second)
	tl, _ = e.TrafficLight("tl0")
	if tl.ProgramID != "off" || tl.State != "OOOO" || tl.NextSwitch != -1 {
		t.Fatalf("off program=%+v", tl)
	}
	if err := e.SetProgram("tl0", "night"); !errors.Is(err, ErrUnknownObject) {
		t.Fatalf("expected unknown program, got %v", err)
	}
}

func TestRoutesAndPois(t *testing.T) {
	testlog.Start(t)
	e := started(t)
	if err := e.AddRoute("r1", []string{"e1", "e2"}); err != nil {
		t.Fatalf("add route: %v", err)
	}
	if err := e.AddRoute("r1", []string{"e1"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate route, got %v", err)
	}
	if err := e.AddRoute("r2", []string{"e9"}); !errors.Is(err, ErrUnknownObject) {
		t.Fatalf("expected unknown edge, got %v", err)
	}
	if err := e.AddVehicle(native.VehicleSpec{ID: "v1", RouteID: "r1"}); err != nil {
		t.Fatalf("add on new route: %v", err)
	}

	poi := native.PoiSpec{ID: "p0", Type: "marker", Layer: 2}
	if err := e.AddPoi(poi); err != nil {
		t.Fatalf("add poi: %v", err)
	}
	if err := e.AddPoi(poi); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate poi, got %v", err)
	}
	if err := e.RemovePoi("p0", 1); !errors.Is(err, ErrUnknownObject) {
		t.Fatalf("expected poi missing on other layer, got %v", err)
	}
	if err := e.RemovePoi("p0", 2); err != nil {
		t.Fatalf("remove poi: %v", err)
	}
	if _, ok := e.Poi("p0", 2); ok {
		t.Fatalf("poi still present")
	}
}

func TestStepBackwardsRejected(t *testing.T) {
	testlog.Start(t)
	e := started(t)
	step(t, e, 5*time.Second)
	if err := e.Step(4 * time.Second); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected invalid value, got %v", err)
	}
}
