// Package memengine is a deterministic in-memory traffic engine for the
// native backend. Vehicles drive single-lane straight edges along their
// route; detectors and traffic lights follow the vehicles and the clock.
package memengine

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/danmuck/simbridge/internal/bridge/native"
	"github.com/danmuck/simbridge/internal/logging"
	"github.com/rs/zerolog"
)

const (
	API     = 21
	Release = "memengine 1.20.0"

	maxAccel     = 2.6
	maxDecel     = 4.5
	vehicleLen   = 5.0
	minGap       = 2.5
	haltingSpeed = 0.1
)

var (
	ErrNotStarted     = errors.New("memengine: not started")
	ErrAlreadyStarted = errors.New("memengine: already started")
	ErrUnknownObject  = errors.New("memengine: unknown object")
	ErrDuplicate      = errors.New("memengine: duplicate id")
	ErrInvalidValue   = errors.New("memengine: invalid value")
)

type vehicle struct {
	id       string
	typeID   string
	routeID  string
	route    []string
	edge     int
	pos      float64
	speed    float64
	accel    float64
	distance float64
	// target is the speed set by the caller; negative means follow the limit.
	target         float64
	speedMode      int
	laneChangeMode int
}

type loop struct {
	def     InductionLoop
	crossed []string
	speeds  []float64
}

type light struct {
	def      TrafficLight
	program  int
	phase    int
	switchAt time.Duration
}

func (l *light) current() Phase {
	return l.def.Programs[l.program].Phases[l.phase]
}

func (l *light) advance(now time.Duration) {
	for {
		if l.current().Duration <= 0 || now < l.switchAt {
			return
		}
		phases := l.def.Programs[l.program].Phases
		l.phase = (l.phase + 1) % len(phases)
		l.switchAt += phases[l.phase].Duration
	}
}

// Engine implements native.Engine. It is safe for concurrent use.
type Engine struct {
	mu       sync.Mutex
	network  Network
	edges    map[string]Edge
	routes   map[string][]string
	started  bool
	closed   bool
	args     []string
	now      time.Duration
	vehicles map[string]*vehicle
	pending  []*vehicle
	arrived  []string
	loops    map[string]*loop
	lights   map[string]*light
	pois     map[int]map[string]native.PoiSpec
	log      zerolog.Logger
}

var _ native.Engine = (*Engine)(nil)

func New(network Network) *Engine {
	e := &Engine{
		network:  network,
		edges:    make(map[string]Edge, len(network.Edges)),
		routes:   make(map[string][]string, len(network.Routes)),
		vehicles: make(map[string]*vehicle),
		loops:    make(map[string]*loop, len(network.InductionLoops)),
		lights:   make(map[string]*light, len(network.TrafficLights)),
		pois:     make(map[int]map[string]native.PoiSpec),
		log:      logging.For("memengine"),
	}
	for _, edge := range network.Edges {
		e.edges[edge.ID] = edge
	}
	for id, edges := range network.Routes {
		e.routes[id] = append([]string(nil), edges...)
	}
	for _, def := range network.InductionLoops {
		e.loops[def.ID] = &loop{def: def}
	}
	for _, def := range network.TrafficLights {
		l := &light{def: def}
		if len(def.Programs) > 0 && len(def.Programs[0].Phases) > 0 {
			l.switchAt = l.current().Duration
			e.lights[def.ID] = l
		}
	}
	return e
}

func (e *Engine) Start(args []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return ErrAlreadyStarted
	}
	e.started = true
	e.args = append([]string(nil), args...)
	e.log.Debug().Strs("args", args).Int("edges", len(e.edges)).Msg("engine started")
	return nil
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return err
	}
	e.closed = true
	return nil
}

func (e *Engine) Version() (int, string) {
	return API, Release
}

func (e *Engine) ready() error {
	if !e.started || e.closed {
		return ErrNotStarted
	}
	return nil
}

// Step moves every vehicle, then inserts the vehicles added since the last
// step at their departure position.
func (e *Engine) Step(until time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return err
	}
	if until < e.now {
		return fmt.Errorf("%w: step to %v is before %v", ErrInvalidValue, until, e.now)
	}
	dt := (until - e.now).Seconds()
	e.arrived = e.arrived[:0]
	for _, l := range e.loops {
		l.crossed, l.speeds = nil, nil
	}
	for _, id := range e.sortedVehicles() {
		v := e.vehicles[id]
		if e.move(v, dt) {
			delete(e.vehicles, id)
			e.arrived = append(e.arrived, id)
		}
	}
	for _, v := range e.pending {
		e.vehicles[v.id] = v
	}
	e.pending = nil
	for _, l := range e.lights {
		l.advance(until)
	}
	e.now = until
	return nil
}

func (e *Engine) nextSpeed(v *vehicle, dt float64) float64 {
	target := e.edges[v.route[v.edge]].speedLimit()
	if v.target >= 0 {
		target = v.target
	}
	switch {
	case target > v.speed && v.speedMode&2 != 0:
		return min(target, v.speed+maxAccel*dt)
	case target < v.speed && v.speedMode&4 != 0:
		return max(target, v.speed-maxDecel*dt)
	default:
		return target
	}
}

// move advances v by dt seconds and reports whether it reached the end of
// its route.
func (e *Engine) move(v *vehicle, dt float64) bool {
	prev := v.speed
	v.speed = e.nextSpeed(v, dt)
	if dt > 0 {
		v.accel = (v.speed - prev) / dt
	}
	remaining := v.speed * dt
	v.distance += remaining
	for {
		edge := e.edges[v.route[v.edge]]
		length := edge.Length()
		end := v.pos + remaining
		if end < length {
			e.cross(edge.ID, v.pos, end, v)
			v.pos = end
			return false
		}
		e.cross(edge.ID, v.pos, length, v)
		remaining = end - length
		if v.edge == len(v.route)-1 {
			v.pos = length
			return true
		}
		v.edge++
		v.pos = 0
	}
}

func (e *Engine) cross(edgeID string, from, to float64, v *vehicle) {
	for _, l := range e.loops {
		if l.def.Edge != edgeID || l.def.Offset <= from || l.def.Offset > to {
			continue
		}
		l.crossed = append(l.crossed, v.id)
		l.speeds = append(l.speeds, v.speed)
	}
}

func (e *Engine) sortedVehicles() []string {
	ids := make([]string, 0, len(e.vehicles))
	for id := range e.vehicles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (e *Engine) VehicleIDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sortedVehicles()
}

func (e *Engine) ArrivedIDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.arrived...)
}

func (e *Engine) Vehicle(id string) (native.VehicleState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return native.VehicleState{}, err
	}
	v, ok := e.vehicles[id]
	if !ok {
		return native.VehicleState{}, fmt.Errorf("%w: vehicle '%s' is not known", ErrUnknownObject, id)
	}
	edge := e.edges[v.route[v.edge]]
	return native.VehicleState{
		Speed:        v.speed,
		Position:     edge.at(v.pos, e.network.Height),
		Angle:        edge.angle(),
		Acceleration: v.accel,
		Distance:     v.distance,
		MinGap:       minGap,
		RouteID:      v.routeID,
		RoadID:       edge.ID,
		LanePosition: v.pos,
	}, nil
}

func (e *Engine) InductionLoopIDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.loops))
	for id := range e.loops {
		ids = append(ids, id)
	}
	return ids
}

// InductionLoop reports the vehicles that passed the loop in the last step.
// Means are -1 when nothing passed.
func (e *Engine) InductionLoop(id string) (native.InductionLoopState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return native.InductionLoopState{}, err
	}
	l, ok := e.loops[id]
	if !ok {
		return native.InductionLoopState{}, fmt.Errorf("%w: induction loop '%s' is not known", ErrUnknownObject, id)
	}
	out := native.InductionLoopState{MeanSpeed: -1, MeanLength: -1, VehicleIDs: append([]string(nil), l.crossed...)}
	if len(l.speeds) > 0 {
		out.MeanSpeed = mean(l.speeds)
		out.MeanLength = vehicleLen
	}
	return out, nil
}

func (e *Engine) LaneAreaIDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.network.LaneAreas))
	for _, def := range e.network.LaneAreas {
		ids = append(ids, def.ID)
	}
	return ids
}

// LaneArea covers the whole edge it is placed on.
func (e *Engine) LaneArea(id string) (native.LaneAreaState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return native.LaneAreaState{}, err
	}
	for _, def := range e.network.LaneAreas {
		if def.ID != id {
			continue
		}
		out := native.LaneAreaState{Length: e.edges[def.Edge].Length(), MeanSpeed: -1}
		var speeds []float64
		for _, vid := range e.sortedVehicles() {
			v := e.vehicles[vid]
			if v.route[v.edge] != def.Edge {
				continue
			}
			out.VehicleIDs = append(out.VehicleIDs, vid)
			speeds = append(speeds, v.speed)
			if v.speed < haltingSpeed {
				out.Halting++
			}
		}
		out.VehicleCount = len(out.VehicleIDs)
		if len(speeds) > 0 {
			out.MeanSpeed = mean(speeds)
		}
		return out, nil
	}
	return native.LaneAreaState{}, fmt.Errorf("%w: lane area detector '%s' is not known", ErrUnknownObject, id)
}

func (e *Engine) TrafficLightIDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.lights))
	for id := range e.lights {
		ids = append(ids, id)
	}
	return ids
}

// TrafficLight reports NextSwitch as absolute simulation seconds, or -1 for
// a phase that never ends.
func (e *Engine) TrafficLight(id string) (native.TrafficLightState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return native.TrafficLightState{}, err
	}
	l, ok := e.lights[id]
	if !ok {
		return native.TrafficLightState{}, fmt.Errorf("%w: traffic light '%s' is not known", ErrUnknownObject, id)
	}
	next := l.switchAt.Seconds()
	if l.current().Duration <= 0 {
		next = -1
	}
	return native.TrafficLightState{
		ProgramID:  l.def.Programs[l.program].ID,
		Phase:      l.phase,
		NextSwitch: next,
		State:      l.current().State,
	}, nil
}

// AddVehicle queues a vehicle for insertion at the next step.
func (e *Engine) AddVehicle(spec native.VehicleSpec) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return err
	}
	if _, ok := e.vehicles[spec.ID]; ok || e.isPending(spec.ID) {
		return fmt.Errorf("%w: vehicle '%s'", ErrDuplicate, spec.ID)
	}
	route, ok := e.routes[spec.RouteID]
	if !ok {
		return fmt.Errorf("%w: route '%s' is not known", ErrUnknownObject, spec.RouteID)
	}
	if err := checkLane(spec.Lane); err != nil {
		return err
	}
	first := e.edges[route[0]]
	pos, err := departValue(spec.Position, "base", 0)
	if err != nil {
		return err
	}
	if pos > first.Length() {
		return fmt.Errorf("%w: departure position %v is beyond edge '%s'", ErrInvalidValue, pos, first.ID)
	}
	speed, err := departValue(spec.Speed, "max", first.speedLimit())
	if err != nil {
		return err
	}
	e.pending = append(e.pending, &vehicle{
		id:             spec.ID,
		typeID:         spec.TypeID,
		routeID:        spec.RouteID,
		route:          route,
		pos:            pos,
		speed:          speed,
		target:         -1,
		speedMode:      31,
		laneChangeMode: 1621,
	})
	return nil
}

func (e *Engine) isPending(id string) bool {
	for _, v := range e.pending {
		if v.id == id {
			return true
		}
	}
	return false
}

func checkLane(lane string) error {
	switch lane {
	case "", "best", "first", "free", "allowed", "random":
		return nil
	}
	if n, err := strconv.Atoi(lane); err == nil && n == 0 {
		return nil
	}
	return fmt.Errorf("%w: departure lane '%s' does not exist", ErrInvalidValue, lane)
}

// departValue parses a numeric departure attribute; keyword maps to fallback.
func departValue(raw, keyword string, fallback float64) (float64, error) {
	if raw == "" || raw == keyword {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: departure value '%s'", ErrInvalidValue, raw)
	}
	return v, nil
}

func (e *Engine) withVehicle(id string, fn func(*vehicle) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return err
	}
	v, ok := e.vehicles[id]
	if !ok {
		return fmt.Errorf("%w: vehicle '%s' is not known", ErrUnknownObject, id)
	}
	return fn(v)
}

// SetSpeed fixes the vehicle's desired speed. A negative speed restores the
// edge limit.
func (e *Engine) SetSpeed(id string, speed float64) error {
	return e.withVehicle(id, func(v *vehicle) error {
		v.target = speed
		return nil
	})
}

func (e *Engine) SetSpeedMode(id string, bits int) error {
	return e.withVehicle(id, func(v *vehicle) error {
		v.speedMode = bits
		return nil
	})
}

func (e *Engine) SetLaneChangeMode(id string, bits int) error {
	return e.withVehicle(id, func(v *vehicle) error {
		v.laneChangeMode = bits
		return nil
	})
}

func (e *Engine) AddRoute(id string, edges []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return err
	}
	if _, ok := e.routes[id]; ok {
		return fmt.Errorf("%w: route '%s'", ErrDuplicate, id)
	}
	if len(edges) == 0 {
		return fmt.Errorf("%w: route '%s' has no edges", ErrInvalidValue, id)
	}
	for _, edge := range edges {
		if _, ok := e.edges[edge]; !ok {
			return fmt.Errorf("%w: edge '%s' is not known", ErrUnknownObject, edge)
		}
	}
	e.routes[id] = append([]string(nil), edges...)
	return nil
}

// SetProgram switches to the first phase of programID.
func (e *Engine) SetProgram(id, programID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return err
	}
	l, ok := e.lights[id]
	if !ok {
		return fmt.Errorf("%w: traffic light '%s' is not known", ErrUnknownObject, id)
	}
	for i, p := range l.def.Programs {
		if p.ID != programID || len(p.Phases) == 0 {
			continue
		}
		l.program, l.phase = i, 0
		l.switchAt = e.now + p.Phases[0].Duration
		return nil
	}
	return fmt.Errorf("%w: program '%s' of traffic light '%s'", ErrUnknownObject, programID, id)
}

func (e *Engine) AddPoi(spec native.PoiSpec) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return err
	}
	layer, ok := e.pois[spec.Layer]
	if !ok {
		layer = make(map[string]native.PoiSpec)
		e.pois[spec.Layer] = layer
	}
	if _, ok := layer[spec.ID]; ok {
		return fmt.Errorf("%w: poi '%s' on layer %d", ErrDuplicate, spec.ID, spec.Layer)
	}
	layer[spec.ID] = spec
	return nil
}

func (e *Engine) RemovePoi(id string, layer int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return err
	}
	if _, ok := e.pois[layer][id]; !ok {
		return fmt.Errorf("%w: poi '%s' on layer %d", ErrUnknownObject, id, layer)
	}
	delete(e.pois[layer], id)
	return nil
}

// Poi returns a point of interest as stored by the engine.
func (e *Engine) Poi(id string, layer int) (native.PoiSpec, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.pois[layer][id]
	return p, ok
}

// Modes returns the behavior bits last set on a vehicle.
func (e *Engine) Modes(id string) (speed, laneChange int, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.vehicles[id]
	if !ok {
		return 0, 0, false
	}
	return v.speedMode, v.laneChangeMode, true
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
