package bridge

import (
	"sort"
	"time"

	"github.com/danmuck/simbridge/internal/behavior"
	"github.com/danmuck/simbridge/internal/logging"
	"github.com/rs/zerolog"
)

// Facades bundles the five domain facades of a session. Backends embed it.
type Facades struct {
	simulation    *SimulationFacade
	vehicles      *VehicleFacade
	trafficLights *TrafficLightFacade
	routes        *RouteFacade
	pois          *PoiFacade
}

func NewFacades(b Bridge) *Facades {
	return &Facades{
		simulation: &SimulationFacade{
			bridge: b,
			known:  make(map[string]bool),
			log:    logging.For("simulation"),
		},
		vehicles:      &VehicleFacade{bridge: b},
		trafficLights: &TrafficLightFacade{bridge: b},
		routes:        &RouteFacade{bridge: b},
		pois:          &PoiFacade{bridge: b},
	}
}

func (f *Facades) Simulation() *SimulationFacade      { return f.simulation }
func (f *Facades) Vehicles() *VehicleFacade           { return f.vehicles }
func (f *Facades) TrafficLights() *TrafficLightFacade { return f.trafficLights }
func (f *Facades) Routes() *RouteFacade               { return f.routes }
func (f *Facades) Pois() *PoiFacade                   { return f.pois }

// StepResult is the outcome of one SimulateUntil call. Vehicles are split by
// whether they appeared for the first time, were seen before, or vanished.
type StepResult struct {
	Time           time.Duration
	Added          []VehicleResult
	Updated        []VehicleResult
	Removed        []string
	InductionLoops []InductionLoopResult
	LaneAreas      []LaneAreaResult
	TrafficLights  []TrafficLightResult
}

type SimulationFacade struct {
	bridge Bridge
	known  map[string]bool
	log    zerolog.Logger
}

// SimulateUntil advances the engine and sorts the reported state.
func (f *SimulationFacade) SimulateUntil(t time.Duration) (StepResult, error) {
	cmd, err := GetOrCreate[SimulationSimulateStep](f.bridge.Registry())
	if err != nil {
		return StepResult{}, err
	}
	results, err := cmd.Execute(f.bridge, t)
	if err != nil {
		return StepResult{}, err
	}
	out := StepResult{Time: t}
	seen := make(map[string]bool, len(f.known))
	for _, r := range results {
		switch v := r.(type) {
		case VehicleResult:
			seen[v.ID] = true
			if f.known[v.ID] {
				out.Updated = append(out.Updated, v)
			} else {
				out.Added = append(out.Added, v)
			}
		case InductionLoopResult:
			out.InductionLoops = append(out.InductionLoops, v)
		case LaneAreaResult:
			out.LaneAreas = append(out.LaneAreas, v)
		case TrafficLightResult:
			out.TrafficLights = append(out.TrafficLights, v)
		default:
			f.log.Warn().Str("object", r.ObjectID()).Msg("unhandled subscription result")
		}
	}
	for id := range f.known {
		if !seen[id] {
			out.Removed = append(out.Removed, id)
		}
	}
	sort.Strings(out.Removed)
	f.known = seen
	f.log.Debug().
		Dur("time", t).
		Int("added", len(out.Added)).
		Int("updated", len(out.Updated)).
		Int("removed", len(out.Removed)).
		Msg("simulation step")
	return out, nil
}

func (f *SimulationFacade) AddVehicle(d VehicleDeparture) error {
	cmd, err := GetOrCreate[VehicleAdd](f.bridge.Registry())
	if err != nil {
		return err
	}
	return cmd.Execute(f.bridge, d)
}

func (f *SimulationFacade) SubscribeVehicle(vehicleID string, start, end time.Duration) error {
	cmd, err := GetOrCreate[VehicleSubscribe](f.bridge.Registry())
	if err != nil {
		return err
	}
	return cmd.Execute(f.bridge, vehicleID, start, end)
}

func (f *SimulationFacade) SubscribeInductionLoop(loopID string, start, end time.Duration) error {
	cmd, err := GetOrCreate[InductionLoopSubscribe](f.bridge.Registry())
	if err != nil {
		return err
	}
	return cmd.Execute(f.bridge, loopID, start, end)
}

func (f *SimulationFacade) SubscribeLaneArea(detectorID string, start, end time.Duration) error {
	cmd, err := GetOrCreate[LaneAreaSubscribe](f.bridge.Registry())
	if err != nil {
		return err
	}
	return cmd.Execute(f.bridge, detectorID, start, end)
}

func (f *SimulationFacade) SubscribeTrafficLight(trafficLightID string, start, end time.Duration) error {
	cmd, err := GetOrCreate[TrafficLightSubscribe](f.bridge.Registry())
	if err != nil {
		return err
	}
	return cmd.Execute(f.bridge, trafficLightID, start, end)
}

// Request forwards pre-encoded command content to the engine.
func (f *SimulationFacade) Request(requestID string, content []byte) (TraciResult, error) {
	cmd, err := GetOrCreate[SimulationTraciRequest](f.bridge.Registry())
	if err != nil {
		return TraciResult{}, err
	}
	return cmd.Execute(f.bridge, requestID, content)
}

type VehicleFacade struct {
	bridge Bridge
}

func (f *VehicleFacade) SetSpeed(vehicleID string, speed float64) error {
	cmd, err := GetOrCreate[VehicleSetSpeed](f.bridge.Registry())
	if err != nil {
		return err
	}
	return cmd.Execute(f.bridge, vehicleID, speed)
}

func (f *VehicleFacade) SetSpeedMode(vehicleID string, mode behavior.SpeedMode) error {
	cmd, err := GetOrCreate[VehicleSetSpeedMode](f.bridge.Registry())
	if err != nil {
		return err
	}
	return cmd.Execute(f.bridge, vehicleID, mode)
}

func (f *VehicleFacade) SetLaneChangeMode(vehicleID string, mode behavior.LaneChangeMode) error {
	cmd, err := GetOrCreate[VehicleSetLaneChangeMode](f.bridge.Registry())
	if err != nil {
		return err
	}
	return cmd.Execute(f.bridge, vehicleID, mode)
}

func (f *VehicleFacade) RouteID(vehicleID string) (string, error) {
	cmd, err := GetOrCreate[VehicleGetRouteID](f.bridge.Registry())
	if err != nil {
		return "", err
	}
	return cmd.Execute(f.bridge, vehicleID)
}

type TrafficLightFacade struct {
	bridge Bridge
}

func (f *TrafficLightFacade) SetProgram(trafficLightID, programID string) error {
	cmd, err := GetOrCreate[TrafficLightSetProgram](f.bridge.Registry())
	if err != nil {
		return err
	}
	return cmd.Execute(f.bridge, trafficLightID, programID)
}

type RouteFacade struct {
	bridge Bridge
}

func (f *RouteFacade) Add(routeID string, edges []string) error {
	cmd, err := GetOrCreate[RouteAdd](f.bridge.Registry())
	if err != nil {
		return err
	}
	return cmd.Execute(f.bridge, routeID, edges)
}

type PoiFacade struct {
	bridge Bridge
}

func (f *PoiFacade) Add(poi Poi) error {
	cmd, err := GetOrCreate[PoiAdd](f.bridge.Registry())
	if err != nil {
		return err
	}
	return cmd.Execute(f.bridge, poi)
}

func (f *PoiFacade) Remove(poiID string, layer int) error {
	cmd, err := GetOrCreate[PoiRemove](f.bridge.Registry())
	if err != nil {
		return err
	}
	return cmd.Execute(f.bridge, poiID, layer)
}
