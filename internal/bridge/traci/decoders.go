package traci

import (
	"fmt"
	"io"
	"time"

	"github.com/danmuck/simbridge/internal/bridge"
	"github.com/danmuck/simbridge/internal/config"
	"github.com/danmuck/simbridge/internal/ident"
	"github.com/danmuck/simbridge/internal/logging"
	"github.com/danmuck/simbridge/internal/protocol"
	"github.com/danmuck/simbridge/internal/protocol/reader"
)

// decoder turns one subscription result block into a result record.
type decoder func(*response) (bridge.SubscriptionResult, error)

func decodeWith[R bridge.SubscriptionResult](s *reader.Subscription[R]) decoder {
	return func(r *response) (bridge.SubscriptionResult, error) {
		rec, _, err := s.Read(r, r.Len())
		if err != nil {
			return nil, err
		}
		return rec, nil
	}
}

// decoders maps subscription response ids to their record readers. Vehicle
// ids pass through the session's transformer; detector and traffic light ids
// are used verbatim.
func decoders(ids ident.Transformer, cfg config.Bridge) map[uint8]decoder {
	values := reader.NewTypeBased(reader.Offset(cfg.NetOffsetX, cfg.NetOffsetY))
	log := logging.For("traci.subscription")
	return map[uint8]decoder{
		protocol.ResponseSubscribeVehicleVariable: decodeWith(&reader.Subscription[bridge.VehicleResult]{
			ID:     reader.ID(ids),
			Values: values.WithCompound(leaderCompound(ids)),
			Fields: vehicleFields,
			New:    func(id string) bridge.VehicleResult { return bridge.VehicleResult{ID: id} },
			Logger: log,
		}),
		protocol.ResponseSubscribeInductionLoopVariable: decodeWith(&reader.Subscription[bridge.InductionLoopResult]{
			ID:     reader.ID(nil),
			Values: values.WithCompound(vehicleDataCompound(ids)),
			Fields: inductionLoopFields,
			New:    func(id string) bridge.InductionLoopResult { return bridge.InductionLoopResult{ID: id} },
			Logger: log,
		}),
		protocol.ResponseSubscribeLaneAreaVariable: decodeWith(&reader.Subscription[bridge.LaneAreaResult]{
			ID:     reader.ID(nil),
			Values: values,
			Fields: laneAreaFields(ids),
			New:    func(id string) bridge.LaneAreaResult { return bridge.LaneAreaResult{ID: id} },
			Logger: log,
		}),
		protocol.ResponseSubscribeTrafficLightVariable: decodeWith(&reader.Subscription[bridge.TrafficLightResult]{
			ID:     reader.ID(nil),
			Values: values,
			Fields: trafficLightFields,
			New:    func(id string) bridge.TrafficLightResult { return bridge.TrafficLightResult{ID: id} },
			Logger: log,
		}),
	}
}

type (
	vehicle      = bridge.VehicleResult
	loop         = bridge.InductionLoopResult
	laneArea     = bridge.LaneAreaResult
	trafficLight = bridge.TrafficLightResult
)

var vehicleFields = map[uint8]reader.Field[vehicle]{
	protocol.VarSpeed:                  reader.FloatField(func(r *vehicle, v float64) { r.Speed = v }),
	protocol.VarPosition:               reader.PositionField(func(r *vehicle, p protocol.Position) { r.Position = p }),
	protocol.VarPosition3D:             reader.PositionField(func(r *vehicle, p protocol.Position) { r.Position = p }),
	protocol.VarAngle:                  reader.FloatField(func(r *vehicle, v float64) { r.Heading = v }),
	protocol.VarSlope:                  reader.FloatField(func(r *vehicle, v float64) { r.Slope = v }),
	protocol.VarAcceleration:           reader.FloatField(func(r *vehicle, v float64) { r.Acceleration = v }),
	protocol.VarRouteID:                reader.StringField(func(r *vehicle, v string) { r.RouteID = v }),
	protocol.VarRoadID:                 reader.StringField(func(r *vehicle, v string) { r.RoadID = v }),
	protocol.VarLaneIndex:              reader.IntField(func(r *vehicle, v int) { r.LaneIndex = v }),
	protocol.VarLanePosition:           reader.FloatField(func(r *vehicle, v float64) { r.LanePosition = v }),
	protocol.VarLateralLanePosition:    reader.FloatField(func(r *vehicle, v float64) { r.LateralLanePosition = v }),
	protocol.VarDistance:               reader.FloatField(func(r *vehicle, v float64) { r.Distance = v }),
	protocol.VarSignals:                reader.IntField(func(r *vehicle, v int) { r.Signals = v }),
	protocol.VarStopState:              reader.IntField(func(r *vehicle, v int) { r.StopState = v }),
	protocol.VarMinGap:                 reader.FloatField(func(r *vehicle, v float64) { r.MinGap = v }),
	protocol.VarCO2Emission:            reader.FloatField(func(r *vehicle, v float64) { r.Emissions.CO2 = v }),
	protocol.VarCOEmission:             reader.FloatField(func(r *vehicle, v float64) { r.Emissions.CO = v }),
	protocol.VarHCEmission:             reader.FloatField(func(r *vehicle, v float64) { r.Emissions.HC = v }),
	protocol.VarPMxEmission:            reader.FloatField(func(r *vehicle, v float64) { r.Emissions.PMx = v }),
	protocol.VarNOxEmission:            reader.FloatField(func(r *vehicle, v float64) { r.Emissions.NOx = v }),
	protocol.VarFuelConsumption:        reader.FloatField(func(r *vehicle, v float64) { r.Emissions.Fuel = v }),
	protocol.VarElectricityConsumption: reader.FloatField(func(r *vehicle, v float64) { r.Emissions.Electricity = v }),
	protocol.VarLeader:                 leadFollowField(func(r *vehicle, v bridge.LeadFollowVehicle) { r.Leader = v }),
	protocol.VarFollower:               leadFollowField(func(r *vehicle, v bridge.LeadFollowVehicle) { r.Follower = v }),
}

var inductionLoopFields = map[uint8]reader.Field[loop]{
	protocol.VarLastStepMeanSpeed:  reader.FloatField(func(r *loop, v float64) { r.MeanSpeed = v }),
	protocol.VarLastStepMeanLength: reader.FloatField(func(r *loop, v float64) { r.MeanLength = v }),
	protocol.VarLastStepVehicleData: func(r *loop, v any) error {
		vehicles, ok := v.([]bridge.InductionLoopVehicle)
		if !ok {
			return fmt.Errorf("%w: vehicle data %T", protocol.ErrUnexpectedValue, v)
		}
		r.Vehicles = vehicles
		return nil
	},
}

func laneAreaFields(ids ident.Transformer) map[uint8]reader.Field[laneArea] {
	return map[uint8]reader.Field[laneArea]{
		protocol.VarLength:                reader.FloatField(func(r *laneArea, v float64) { r.Length = v }),
		protocol.VarLastStepMeanSpeed:     reader.FloatField(func(r *laneArea, v float64) { r.MeanSpeed = v }),
		protocol.VarLastStepVehicleNumber: reader.IntField(func(r *laneArea, v int) { r.VehicleCount = v }),
		protocol.VarLastStepHaltingNumber: reader.IntField(func(r *laneArea, v int) { r.Halting = v }),
		protocol.VarLastStepVehicleIDList: reader.StringsField(func(r *laneArea, v []string) {
			r.VehicleIDs = make([]string, len(v))
			for i, id := range v {
				r.VehicleIDs[i] = ids.FromExternal(id)
			}
		}),
	}
}

var trafficLightFields = map[uint8]reader.Field[trafficLight]{
	protocol.VarTLCurrentProgram:      reader.StringField(func(r *trafficLight, v string) { r.ProgramID = v }),
	protocol.VarTLCurrentPhase:        reader.IntField(func(r *trafficLight, v int) { r.PhaseIndex = v }),
	protocol.VarTLRedYellowGreenState: reader.StringField(func(r *trafficLight, v string) { r.State = v }),
	protocol.VarTLNextSwitch: reader.FloatField(func(r *trafficLight, v float64) {
		r.NextSwitch = time.Duration(v * float64(time.Second))
	}),
}

func leadFollowField(set func(*vehicle, bridge.LeadFollowVehicle)) reader.Field[vehicle] {
	return func(r *vehicle, v any) error {
		lf, ok := v.(bridge.LeadFollowVehicle)
		if !ok {
			return fmt.Errorf("%w: leader value %T", protocol.ErrUnexpectedValue, v)
		}
		set(r, lf)
		return nil
	}
}

// plain decodes the tagged values nested in compounds.
var plain = reader.NewTypeBased(nil)

// leaderCompound reads (tagged string id, tagged double distance). An empty
// id or a negative distance means there is no such vehicle.
func leaderCompound(ids ident.Transformer) reader.CompoundReader {
	return reader.CompoundFunc(func(in io.Reader, available, elements int) (any, int, error) {
		if elements != 2 {
			return nil, 0, unexpected("leader compound size", elements, 2)
		}
		v, consumed, err := plain.Read(in, available)
		if err != nil {
			return nil, consumed, err
		}
		id, err := reader.AsString(v)
		if err != nil {
			return nil, consumed, err
		}
		v, n, err := plain.Read(in, available-consumed)
		consumed += n
		if err != nil {
			return nil, consumed, err
		}
		distance, err := reader.AsFloat(v)
		if err != nil {
			return nil, consumed, err
		}
		if id == "" || distance < 0 {
			return bridge.NoVehicle, consumed, nil
		}
		return bridge.LeadFollowVehicle{ID: ids.FromExternal(id), Distance: distance}, consumed, nil
	})
}

// vehicleDataCompound reads the last-step vehicle data of an induction loop:
// a tagged vehicle count, then per vehicle its id, length, entry time, leave
// time and type.
func vehicleDataCompound(ids ident.Transformer) reader.CompoundReader {
	return reader.CompoundFunc(func(in io.Reader, available, elements int) (any, int, error) {
		consumed := 0
		next := func() (any, error) {
			v, n, err := plain.Read(in, available-consumed)
			consumed += n
			return v, err
		}
		v, err := next()
		if err != nil {
			return nil, consumed, err
		}
		count, err := reader.AsInt(v)
		if err != nil {
			return nil, consumed, err
		}
		if count < 0 || elements != 1+5*count {
			return nil, consumed, unexpected("vehicle data elements", elements, 1+5*count)
		}
		out := make([]bridge.InductionLoopVehicle, 0, count)
		for i := 0; i < count; i++ {
			var (
				rec    bridge.InductionLoopVehicle
				fields [5]any
			)
			for j := range fields {
				if fields[j], err = next(); err != nil {
					return nil, consumed, err
				}
			}
			if rec.ID, err = reader.AsString(fields[0]); err != nil {
				return nil, consumed, err
			}
			if rec.Length, err = reader.AsFloat(fields[1]); err != nil {
				return nil, consumed, err
			}
			if rec.EntryTime, err = reader.AsFloat(fields[2]); err != nil {
				return nil, consumed, err
			}
			if rec.LeaveTime, err = reader.AsFloat(fields[3]); err != nil {
				return nil, consumed, err
			}
			if rec.TypeID, err = reader.AsString(fields[4]); err != nil {
				return nil, consumed, err
			}
			rec.ID = ids.FromExternal(rec.ID)
			out = append(out, rec)
		}
		return out, consumed, nil
	})
}
