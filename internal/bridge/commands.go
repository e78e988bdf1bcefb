package bridge

import (
	"time"

	"github.com/danmuck/simbridge/internal/behavior"
	"github.com/danmuck/simbridge/internal/protocol"
)

// Command capabilities. Each backend provides one implementation per
// capability; callers obtain it with GetOrCreate.

type SimulationGetVersion interface {
	Execute(b Bridge) (EngineVersion, error)
}

type SimulationClose interface {
	Execute(b Bridge) error
}

// SimulationSimulateStep advances the engine to until and returns the state of
// every subscribed object.
type SimulationSimulateStep interface {
	Execute(b Bridge, until time.Duration) ([]SubscriptionResult, error)
}

// SimulationTraciRequest sends pre-encoded command content unchanged.
type SimulationTraciRequest interface {
	Execute(b Bridge, requestID string, content []byte) (TraciResult, error)
}

// VehicleDeparture describes where and how a vehicle enters the simulation.
// Empty fields take engine defaults.
type VehicleDeparture struct {
	VehicleID string
	RouteID   string
	TypeID    string
	Lane      string
	Position  string
	Speed     string
}

type VehicleAdd interface {
	Execute(b Bridge, d VehicleDeparture) error
}

type VehicleSetSpeed interface {
	Execute(b Bridge, vehicleID string, speed float64) error
}

type VehicleSetSpeedMode interface {
	Execute(b Bridge, vehicleID string, mode behavior.SpeedMode) error
}

type VehicleSetLaneChangeMode interface {
	Execute(b Bridge, vehicleID string, mode behavior.LaneChangeMode) error
}

type VehicleGetRouteID interface {
	Execute(b Bridge, vehicleID string) (string, error)
}

type VehicleSubscribe interface {
	Execute(b Bridge, vehicleID string, start, end time.Duration) error
}

type InductionLoopSubscribe interface {
	Execute(b Bridge, loopID string, start, end time.Duration) error
}

type LaneAreaSubscribe interface {
	Execute(b Bridge, detectorID string, start, end time.Duration) error
}

type TrafficLightSubscribe interface {
	Execute(b Bridge, trafficLightID string, start, end time.Duration) error
}

type TrafficLightSetProgram interface {
	Execute(b Bridge, trafficLightID, programID string) error
}

type RouteAdd interface {
	Execute(b Bridge, routeID string, edges []string) error
}

// Poi is a point of interest drawn by the engine's GUI.
type Poi struct {
	ID       string
	Type     string
	Color    protocol.Color
	Layer    int
	Position protocol.Position
}

type PoiAdd interface {
	Execute(b Bridge, poi Poi) error
}

type PoiRemove interface {
	Execute(b Bridge, poiID string, layer int) error
}
