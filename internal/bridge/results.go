package bridge

import (
	"time"

	"github.com/danmuck/simbridge/internal/protocol"
)

// SubscriptionResult is one object's state reported after a simulation step.
type SubscriptionResult interface {
	ObjectID() string
}

// LeadFollowVehicle is the nearest vehicle ahead or behind.
type LeadFollowVehicle struct {
	ID       string
	Distance float64
}

// NoVehicle marks an empty leader or follower slot.
var NoVehicle = LeadFollowVehicle{}

func (v LeadFollowVehicle) Present() bool {
	return v.ID != ""
}

type Emissions struct {
	CO2         float64
	CO          float64
	HC          float64
	PMx         float64
	NOx         float64
	Fuel        float64
	Electricity float64
}

type VehicleResult struct {
	ID                  string
	Speed               float64
	Position            protocol.Position
	Heading             float64
	Slope               float64
	Acceleration        float64
	RouteID             string
	RoadID              string
	LaneIndex           int
	LanePosition        float64
	LateralLanePosition float64
	Distance            float64
	Signals             int
	StopState           int
	Emissions           Emissions
	Leader              LeadFollowVehicle
	Follower            LeadFollowVehicle
	MinGap              float64
}

func (r VehicleResult) ObjectID() string { return r.ID }

type InductionLoopVehicle struct {
	ID        string
	Length    float64
	EntryTime float64
	LeaveTime float64
	TypeID    string
}

type InductionLoopResult struct {
	ID         string
	MeanSpeed  float64
	MeanLength float64
	Vehicles   []InductionLoopVehicle
}

func (r InductionLoopResult) ObjectID() string { return r.ID }

type LaneAreaResult struct {
	ID           string
	Length       float64
	MeanSpeed    float64
	VehicleCount int
	Halting      int
	VehicleIDs   []string
}

func (r LaneAreaResult) ObjectID() string { return r.ID }

type TrafficLightResult struct {
	ID         string
	ProgramID  string
	PhaseIndex int
	NextSwitch time.Duration
	State      string
}

func (r TrafficLightResult) ObjectID() string { return r.ID }

// TraciResult is the raw answer to a pass-through request.
type TraciResult struct {
	RequestID string
	Status    Status
	Payload   []byte
}
