package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/danmuck/simbridge/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Subscription categories selectable for vehicles.
const (
	CategoryRoadPosition = "roadposition"
	CategorySignals      = "signals"
	CategoryEmissions    = "emissions"
	CategoryLeader       = "leader"
)

// DefaultCategories are used when a configuration names none.
var DefaultCategories = []string{CategorySignals, CategoryEmissions, CategoryRoadPosition}

// LeaderLookahead is the distance in meters passed with leader and follower requests.
const LeaderLookahead = 200.0

// Var is one subscribable variable.
type Var struct {
	ID       uint8
	Name     string
	Since    int
	HasParam bool
	Param    float64
}

// Available reports whether an engine speaking api can deliver v.
func (v Var) Available(api int) bool {
	return api >= v.Since
}

type ValidationError struct {
	Domain string
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("schema: domain=%s: %s", e.Domain, e.Reason)
	}
	return fmt.Sprintf("schema: domain=%s field=%s: %s", e.Domain, e.Field, e.Reason)
}

func v(id uint8, name string) Var {
	return Var{ID: id, Name: name, Since: protocol.APILowest}
}

var vehicleMandatory = []Var{
	v(protocol.VarSpeed, "speed"),
	v(protocol.VarPosition3D, "position3d"),
	v(protocol.VarAngle, "angle"),
	v(protocol.VarSlope, "slope"),
	v(protocol.VarRouteID, "route_id"),
	v(protocol.VarStopState, "stop_state"),
	v(protocol.VarAcceleration, "acceleration"),
}

var vehicleCategories = map[string][]Var{
	CategoryRoadPosition: {
		v(protocol.VarRoadID, "road_id"),
		v(protocol.VarLaneIndex, "lane_index"),
		v(protocol.VarLanePosition, "lane_position"),
		v(protocol.VarDistance, "distance"),
		v(protocol.VarLateralLanePosition, "lateral_lane_position"),
	},
	CategorySignals: {
		v(protocol.VarSignals, "signals"),
	},
	CategoryEmissions: {
		v(protocol.VarCO2Emission, "co2"),
		v(protocol.VarCOEmission, "co"),
		v(protocol.VarHCEmission, "hc"),
		v(protocol.VarPMxEmission, "pmx"),
		v(protocol.VarNOxEmission, "nox"),
		v(protocol.VarFuelConsumption, "fuel"),
		{ID: protocol.VarElectricityConsumption, Name: "electricity", Since: protocol.API19},
	},
	CategoryLeader: {
		{ID: protocol.VarLeader, Name: "leader", Since: protocol.APILowest, HasParam: true, Param: LeaderLookahead},
		{ID: protocol.VarFollower, Name: "follower", Since: protocol.API20, HasParam: true, Param: LeaderLookahead},
		v(protocol.VarMinGap, "min_gap"),
	},
}

var inductionLoopVars = []Var{
	v(protocol.VarLastStepMeanSpeed, "mean_speed"),
	v(protocol.VarLastStepMeanLength, "mean_length"),
	v(protocol.VarLastStepVehicleData, "vehicle_data"),
}

var laneAreaVars = []Var{
	v(protocol.VarLength, "length"),
	v(protocol.VarLastStepMeanSpeed, "mean_speed"),
	v(protocol.VarLastStepVehicleNumber, "vehicle_number"),
	v(protocol.VarLastStepHaltingNumber, "halting_number"),
	v(protocol.VarLastStepVehicleIDList, "vehicle_ids"),
}

var trafficLightVars = []Var{
	v(protocol.VarTLCurrentProgram, "program"),
	v(protocol.VarTLCurrentPhase, "phase"),
	v(protocol.VarTLNextSwitch, "next_switch"),
	v(protocol.VarTLRedYellowGreenState, "state"),
}

// Categories returns the known vehicle subscription categories in sorted order.
func Categories() []string {
	out := make([]string, 0, len(vehicleCategories))
	for name := range vehicleCategories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ValidateCategories rejects unknown vehicle subscription categories.
func ValidateCategories(categories []string) error {
	for _, c := range categories {
		if _, ok := vehicleCategories[normalize(c)]; !ok {
			log.Error().Str("category", c).Msg("schema.ValidateCategories unknown category")
			return ValidationError{
				Domain: "vehicle",
				Field:  c,
				Reason: "unknown subscription category, want one of " + strings.Join(Categories(), ","),
			}
		}
	}
	return nil
}

// VehicleVars returns the mandatory vehicle variables plus those of the given
// categories that api supports. Duplicates are dropped, order is stable.
func VehicleVars(categories []string, api int) ([]Var, error) {
	if err := ValidateCategories(categories); err != nil {
		return nil, err
	}
	if len(categories) == 0 {
		categories = DefaultCategories
	}
	out := make([]Var, 0, 24)
	seen := make(map[uint8]bool)
	add := func(vars []Var) {
		for _, item := range vars {
			if seen[item.ID] || !item.Available(api) {
				continue
			}
			seen[item.ID] = true
			out = append(out, item)
		}
	}
	add(vehicleMandatory)
	for _, c := range categories {
		add(vehicleCategories[normalize(c)])
	}
	return out, nil
}

func InductionLoopVars(api int) []Var {
	return Filter(inductionLoopVars, api)
}

func LaneAreaVars(api int) []Var {
	return Filter(laneAreaVars, api)
}

func TrafficLightVars(api int) []Var {
	return Filter(trafficLightVars, api)
}

// Filter keeps the variables available at api.
func Filter(vars []Var, api int) []Var {
	out := make([]Var, 0, len(vars))
	for _, item := range vars {
		if item.Available(api) {
			out = append(out, item)
		}
	}
	return out
}

func normalize(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}
