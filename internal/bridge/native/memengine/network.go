package memengine

import (
	"math"
	"time"

	"github.com/danmuck/simbridge/internal/protocol"
)

const defaultMaxSpeed = 13.89

// Edge is a single-lane straight road between two points.
type Edge struct {
	ID       string
	From     protocol.Position
	To       protocol.Position
	MaxSpeed float64
}

func (e Edge) Length() float64 {
	return math.Hypot(e.To.X-e.From.X, e.To.Y-e.From.Y)
}

func (e Edge) speedLimit() float64 {
	if e.MaxSpeed <= 0 {
		return defaultMaxSpeed
	}
	return e.MaxSpeed
}

// at returns the point offset meters along the edge.
func (e Edge) at(offset, z float64) protocol.Position {
	length := e.Length()
	if length == 0 {
		return protocol.XYZ(e.From.X, e.From.Y, z)
	}
	f := offset / length
	return protocol.XYZ(e.From.X+f*(e.To.X-e.From.X), e.From.Y+f*(e.To.Y-e.From.Y), z)
}

// angle is the navigational heading in degrees, clockwise from north.
func (e Edge) angle() float64 {
	deg := math.Atan2(e.To.X-e.From.X, e.To.Y-e.From.Y) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	return deg
}

type InductionLoop struct {
	ID     string
	Edge   string
	Offset float64
}

type LaneArea struct {
	ID   string
	Edge string
}

// Phase is one signal state. A phase without a duration never ends.
type Phase struct {
	State    string
	Duration time.Duration
}

type Program struct {
	ID     string
	Phases []Phase
}

// TrafficLight runs its first program after start.
type TrafficLight struct {
	ID       string
	Programs []Program
}

// Network is the static layout the engine simulates on.
type Network struct {
	Edges          []Edge
	Routes         map[string][]string
	InductionLoops []InductionLoop
	LaneAreas      []LaneArea
	TrafficLights  []TrafficLight
	// Height is the z coordinate reported for every vehicle.
	Height float64
}

// DemoNetwork is a three-edge corridor with one detector of each kind and a
// four-phase traffic light.
func DemoNetwork() Network {
	return Network{
		Edges: []Edge{
			{ID: "e0", From: protocol.XY(0, 0), To: protocol.XY(200, 0)},
			{ID: "e1", From: protocol.XY(200, 0), To: protocol.XY(400, 0)},
			{ID: "e2", From: protocol.XY(400, 0), To: protocol.XY(400, 300)},
		},
		Routes: map[string][]string{
			"r0": {"e0", "e1", "e2"},
		},
		InductionLoops: []InductionLoop{{ID: "loop0", Edge: "e1", Offset: 50}},
		LaneAreas:      []LaneArea{{ID: "lad0", Edge: "e2"}},
		TrafficLights: []TrafficLight{{
			ID: "tl0",
			Programs: []Program{
				{ID: "0", Phases: []Phase{
					{State: "GGrr", Duration: 31 * time.Second},
					{State: "yyrr", Duration: 4 * time.Second},
					{State: "rrGG", Duration: 31 * time.Second},
					{State: "rryy", Duration: 4 * time.Second},
				}},
				{ID: "off", Phases: []Phase{{State: "OOOO"}}},
			},
		}},
	}
}
