// Package native is the in-process backend. It drives an Engine through
// direct calls instead of a wire protocol, assembling subscription results
// by polling the engine after every step.
package native

import (
	"time"

	"github.com/danmuck/simbridge/internal/bridge"
	"github.com/danmuck/simbridge/internal/protocol"
)

// Engine is a traffic engine running in this process. Identifiers are the
// engine's own; coordinates are engine coordinates.
type Engine interface {
	Start(args []string) error
	Close() error
	Version() (api int, release string)

	// Step advances the simulation to until.
	Step(until time.Duration) error
	VehicleIDs() []string
	// ArrivedIDs lists the vehicles that left the simulation in the last step.
	ArrivedIDs() []string
	Vehicle(id string) (VehicleState, error)
	InductionLoopIDs() []string
	InductionLoop(id string) (InductionLoopState, error)
	LaneAreaIDs() []string
	LaneArea(id string) (LaneAreaState, error)
	TrafficLightIDs() []string
	TrafficLight(id string) (TrafficLightState, error)

	AddVehicle(spec VehicleSpec) error
	SetSpeed(vehicleID string, speed float64) error
	SetSpeedMode(vehicleID string, bits int) error
	SetLaneChangeMode(vehicleID string, bits int) error
	AddRoute(routeID string, edges []string) error
	SetProgram(trafficLightID, programID string) error
	AddPoi(spec PoiSpec) error
	RemovePoi(poiID string, layer int) error
}

type VehicleState struct {
	Speed               float64
	Position            protocol.Position
	Angle               float64
	Slope               float64
	Acceleration        float64
	Distance            float64
	MinGap              float64
	RouteID             string
	RoadID              string
	LaneIndex           int
	LanePosition        float64
	LateralLanePosition float64
	Signals             int
	StopState           int
	Emissions           bridge.Emissions
}

type InductionLoopState struct {
	MeanSpeed  float64
	MeanLength float64
	VehicleIDs []string
}

type LaneAreaState struct {
	Length       float64
	MeanSpeed    float64
	VehicleCount int
	Halting      int
	VehicleIDs   []string
}

type TrafficLightState struct {
	ProgramID string
	Phase     int
	// NextSwitch is the simulation time of the next phase change in seconds.
	NextSwitch float64
	State      string
}

// VehicleSpec describes a vehicle to insert. Empty fields take engine defaults.
type VehicleSpec struct {
	ID       string
	RouteID  string
	TypeID   string
	Lane     string
	Position string
	Speed    string
}

type PoiSpec struct {
	ID       string
	Type     string
	Color    protocol.Color
	Layer    int
	Position protocol.Position
}
