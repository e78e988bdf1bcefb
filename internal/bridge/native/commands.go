package native

import (
	"fmt"
	"sort"
	"time"

	"github.com/danmuck/simbridge/internal/behavior"
	"github.com/danmuck/simbridge/internal/bridge"
	"github.com/danmuck/simbridge/internal/protocol"
)

// bound adapts a constructor over *Bridge to a registry factory. Native
// commands refuse to bind to other backends.
func bound[T any](ctor func(*Bridge) T) func(bridge.Bridge) (T, error) {
	return func(b bridge.Bridge) (T, error) {
		nb, ok := b.(*Bridge)
		if !ok {
			var zero T
			return zero, fmt.Errorf("%w: native command on %T", bridge.ErrUnsupportedOperation, b)
		}
		return ctor(nb), nil
	}
}

type getVersion struct{ b *Bridge }

func (c *getVersion) Execute(bridge.Bridge) (bridge.EngineVersion, error) {
	var out bridge.EngineVersion
	err := c.b.run("SimulationGetVersion", func() error {
		out.API, out.Release = c.b.engine.Version()
		return nil
	})
	return out, err
}

type closeSimulation struct{ b *Bridge }

func (c *closeSimulation) Execute(bridge.Bridge) error {
	return c.b.Close()
}

type simulateStep struct{ b *Bridge }

// Execute steps the engine and polls every subscribed object that is known to
// the engine. Vehicles that arrived are dropped from the subscriptions.
func (c *simulateStep) Execute(_ bridge.Bridge, until time.Duration) ([]bridge.SubscriptionResult, error) {
	var out []bridge.SubscriptionResult
	err := c.b.run("SimulationSimulateStep", func() error {
		if err := c.b.engine.Step(until); err != nil {
			return err
		}
		var err error
		out, err = c.b.collect(until)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (b *Bridge) collect(now time.Duration) ([]bridge.SubscriptionResult, error) {
	var out []bridge.SubscriptionResult
	for _, ext := range sorted(b.engine.VehicleIDs()) {
		id := b.ids.FromExternal(ext)
		w, ok := b.subs.vehicles[id]
		if !ok || !w.covers(now) {
			continue
		}
		s, err := b.engine.Vehicle(ext)
		if err != nil {
			return nil, fmt.Errorf("vehicle %q: %w", id, err)
		}
		out = append(out, bridge.VehicleResult{
			ID:                  id,
			Speed:               s.Speed,
			Position:            b.position(s.Position),
			Heading:             s.Angle,
			Slope:               s.Slope,
			Acceleration:        s.Acceleration,
			RouteID:             s.RouteID,
			RoadID:              s.RoadID,
			LaneIndex:           s.LaneIndex,
			LanePosition:        s.LanePosition,
			LateralLanePosition: s.LateralLanePosition,
			Distance:            s.Distance,
			Signals:             s.Signals,
			StopState:           s.StopState,
			Emissions:           s.Emissions,
			MinGap:              s.MinGap,
		})
	}
	for _, ext := range b.engine.ArrivedIDs() {
		delete(b.subs.vehicles, b.ids.FromExternal(ext))
	}

	for _, id := range sorted(b.engine.InductionLoopIDs()) {
		if w, ok := b.subs.inductionLoops[id]; !ok || !w.covers(now) {
			continue
		}
		s, err := b.engine.InductionLoop(id)
		if err != nil {
			return nil, fmt.Errorf("induction loop %q: %w", id, err)
		}
		res := bridge.InductionLoopResult{ID: id, MeanSpeed: s.MeanSpeed, MeanLength: s.MeanLength}
		for _, v := range s.VehicleIDs {
			res.Vehicles = append(res.Vehicles, bridge.InductionLoopVehicle{ID: b.ids.FromExternal(v)})
		}
		out = append(out, res)
	}

	for _, id := range sorted(b.engine.LaneAreaIDs()) {
		if w, ok := b.subs.laneAreas[id]; !ok || !w.covers(now) {
			continue
		}
		s, err := b.engine.LaneArea(id)
		if err != nil {
			return nil, fmt.Errorf("lane area %q: %w", id, err)
		}
		res := bridge.LaneAreaResult{
			ID:           id,
			Length:       s.Length,
			MeanSpeed:    s.MeanSpeed,
			VehicleCount: s.VehicleCount,
			Halting:      s.Halting,
			VehicleIDs:   make([]string, 0, len(s.VehicleIDs)),
		}
		for _, v := range s.VehicleIDs {
			res.VehicleIDs = append(res.VehicleIDs, b.ids.FromExternal(v))
		}
		out = append(out, res)
	}

	for _, id := range sorted(b.engine.TrafficLightIDs()) {
		if w, ok := b.subs.trafficLights[id]; !ok || !w.covers(now) {
			continue
		}
		s, err := b.engine.TrafficLight(id)
		if err != nil {
			return nil, fmt.Errorf("traffic light %q: %w", id, err)
		}
		out = append(out, bridge.TrafficLightResult{
			ID:         id,
			ProgramID:  s.ProgramID,
			PhaseIndex: s.Phase,
			NextSwitch: time.Duration(s.NextSwitch * float64(time.Second)),
			State:      s.State,
		})
	}
	return out, nil
}

type vehicleAdd struct{ b *Bridge }

func (c *vehicleAdd) Execute(_ bridge.Bridge, d bridge.VehicleDeparture) error {
	return c.b.run("VehicleAdd", func() error {
		return c.b.engine.AddVehicle(VehicleSpec{
			ID:       c.b.ids.ToExternal(d.VehicleID),
			RouteID:  d.RouteID,
			TypeID:   d.TypeID,
			Lane:     d.Lane,
			Position: d.Position,
			Speed:    d.Speed,
		})
	})
}

type vehicleSetSpeed struct{ b *Bridge }

func (c *vehicleSetSpeed) Execute(_ bridge.Bridge, vehicleID string, speed float64) error {
	return c.b.run("VehicleSetSpeed", func() error {
		return c.b.engine.SetSpeed(c.b.ids.ToExternal(vehicleID), speed)
	})
}

type vehicleSetSpeedMode struct{ b *Bridge }

func (c *vehicleSetSpeedMode) Execute(_ bridge.Bridge, vehicleID string, mode behavior.SpeedMode) error {
	bits, err := behavior.SpeedBits(mode)
	if err != nil {
		return err
	}
	return c.b.run("VehicleSetSpeedMode", func() error {
		return c.b.engine.SetSpeedMode(c.b.ids.ToExternal(vehicleID), bits)
	})
}

type vehicleSetLaneChangeMode struct{ b *Bridge }

func (c *vehicleSetLaneChangeMode) Execute(_ bridge.Bridge, vehicleID string, mode behavior.LaneChangeMode) error {
	bits, err := behavior.LaneChangeBits(mode)
	if err != nil {
		return err
	}
	return c.b.run("VehicleSetLaneChangeMode", func() error {
		return c.b.engine.SetLaneChangeMode(c.b.ids.ToExternal(vehicleID), bits)
	})
}

type vehicleGetRouteID struct{ b *Bridge }

func (c *vehicleGetRouteID) Execute(_ bridge.Bridge, vehicleID string) (string, error) {
	var route string
	err := c.b.run("VehicleGetRouteID", func() error {
		s, err := c.b.engine.Vehicle(c.b.ids.ToExternal(vehicleID))
		if err != nil {
			return err
		}
		route = s.RouteID
		return nil
	})
	return route, err
}

// subscribe records a subscription window in one of the session's sets.
type subscribe struct {
	b    *Bridge
	name string
	set  func(*subscriptions) map[string]window
}

func (c *subscribe) add(id string, start, end time.Duration) error {
	return c.b.run(c.name, func() error {
		if end > 0 && end < start {
			return fmt.Errorf("subscription of %q ends before it starts", id)
		}
		c.set(&c.b.subs)[id] = window{start: start, end: end}
		return nil
	})
}

type vehicleSubscribe struct{ subscribe }

func (c *vehicleSubscribe) Execute(_ bridge.Bridge, vehicleID string, start, end time.Duration) error {
	return c.add(vehicleID, start, end)
}

type inductionLoopSubscribe struct{ subscribe }

func (c *inductionLoopSubscribe) Execute(_ bridge.Bridge, loopID string, start, end time.Duration) error {
	return c.add(loopID, start, end)
}

type laneAreaSubscribe struct{ subscribe }

func (c *laneAreaSubscribe) Execute(_ bridge.Bridge, detectorID string, start, end time.Duration) error {
	return c.add(detectorID, start, end)
}

type trafficLightSubscribe struct{ subscribe }

func (c *trafficLightSubscribe) Execute(_ bridge.Bridge, trafficLightID string, start, end time.Duration) error {
	return c.add(trafficLightID, start, end)
}

type trafficLightSetProgram struct{ b *Bridge }

func (c *trafficLightSetProgram) Execute(_ bridge.Bridge, trafficLightID, programID string) error {
	return c.b.run("TrafficLightSetProgram", func() error {
		return c.b.engine.SetProgram(trafficLightID, programID)
	})
}

type routeAdd struct{ b *Bridge }

func (c *routeAdd) Execute(_ bridge.Bridge, routeID string, edges []string) error {
	return c.b.run("RouteAdd", func() error {
		return c.b.engine.AddRoute(routeID, append([]string(nil), edges...))
	})
}

type poiAdd struct{ b *Bridge }

func (c *poiAdd) Execute(_ bridge.Bridge, poi bridge.Poi) error {
	return c.b.run("PoiAdd", func() error {
		return c.b.engine.AddPoi(PoiSpec{
			ID:       poi.ID,
			Type:     poi.Type,
			Color:    poi.Color,
			Layer:    poi.Layer,
			Position: protocol.XY(poi.Position.X+c.b.cfg.NetOffsetX, poi.Position.Y+c.b.cfg.NetOffsetY),
		})
	})
}

type poiRemove struct{ b *Bridge }

func (c *poiRemove) Execute(_ bridge.Bridge, poiID string, layer int) error {
	return c.b.run("PoiRemove", func() error {
		return c.b.engine.RemovePoi(poiID, layer)
	})
}

func sorted(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return out
}
