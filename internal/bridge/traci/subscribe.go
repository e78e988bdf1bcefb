package traci

import (
	"time"

	"github.com/danmuck/simbridge/internal/bridge"
	"github.com/danmuck/simbridge/internal/config"
	"github.com/danmuck/simbridge/internal/protocol"
	"github.com/danmuck/simbridge/internal/protocol/reader"
	"github.com/danmuck/simbridge/internal/protocol/schema"
	"github.com/danmuck/simbridge/internal/protocol/tlv"
)

// subscribe registers a variable subscription for one object. The engine
// answers with the current values, which are checked for the subscription
// header only; values arrive with the next simulation step.
type subscribe struct {
	command
	response uint8
	vars     func(api int) ([]schema.Var, error)
	external func(b bridge.Bridge, id string) string
}

func (c *subscribe) run(b bridge.Bridge, objectID string, start, end time.Duration) error {
	v, err := b.CurrentVersion()
	if err != nil {
		return err
	}
	vars, err := c.vars(v.API)
	if err != nil {
		return err
	}
	enc := tlv.NewCommand(c.id).
		Double(start.Seconds()).
		Double(end.Seconds()).
		String(c.external(b, objectID)).
		UByte(uint8(len(vars)))
	for _, item := range vars {
		enc.UByte(item.ID)
		if item.HasParam {
			enc.TypedDouble(item.Param)
		}
	}
	return c.execute(b, enc.Bytes(), func(resp *response) error {
		id, blk, err := resp.block()
		if err != nil {
			return err
		}
		if id != c.response {
			return unexpected("subscription response", id, c.response)
		}
		if _, _, err := reader.String.Read(blk, blk.Len()); err != nil {
			return err
		}
		count, _, err := reader.UByte.Read(blk, blk.Len())
		if err != nil {
			return err
		}
		if int(count) != len(vars) {
			return unexpected("subscribed variable count", count, len(vars))
		}
		return nil
	})
}

func externalVehicle(b bridge.Bridge, id string) string {
	return b.IDTransformer().ToExternal(id)
}

func verbatim(_ bridge.Bridge, id string) string {
	return id
}

func fixed(vars func(api int) []schema.Var) func(int) ([]schema.Var, error) {
	return func(api int) ([]schema.Var, error) {
		return vars(api), nil
	}
}

type vehicleSubscribe struct {
	subscribe
}

func newVehicleSubscribe(_ bridge.Bridge, cfg config.Bridge) (bridge.VehicleSubscribe, error) {
	categories := append([]string(nil), cfg.Subscriptions...)
	if err := schema.ValidateCategories(categories); err != nil {
		return nil, err
	}
	return &vehicleSubscribe{subscribe{
		command:  newCommand("VehicleSubscribe", protocol.CmdSubscribeVehicleVariable, protocol.APILowest),
		response: protocol.ResponseSubscribeVehicleVariable,
		vars: func(api int) ([]schema.Var, error) {
			return schema.VehicleVars(categories, api)
		},
		external: externalVehicle,
	}}, nil
}

func (c *vehicleSubscribe) Execute(b bridge.Bridge, vehicleID string, start, end time.Duration) error {
	return c.run(b, vehicleID, start, end)
}

type inductionLoopSubscribe struct {
	subscribe
}

func newInductionLoopSubscribe() (bridge.InductionLoopSubscribe, error) {
	return &inductionLoopSubscribe{subscribe{
		command:  newCommand("InductionLoopSubscribe", protocol.CmdSubscribeInductionLoopVariable, protocol.APILowest),
		response: protocol.ResponseSubscribeInductionLoopVariable,
		vars:     fixed(schema.InductionLoopVars),
		external: verbatim,
	}}, nil
}

func (c *inductionLoopSubscribe) Execute(b bridge.Bridge, loopID string, start, end time.Duration) error {
	return c.run(b, loopID, start, end)
}

type laneAreaSubscribe struct {
	subscribe
}

func newLaneAreaSubscribe() (bridge.LaneAreaSubscribe, error) {
	return &laneAreaSubscribe{subscribe{
		command:  newCommand("LaneAreaSubscribe", protocol.CmdSubscribeLaneAreaVariable, protocol.APILowest),
		response: protocol.ResponseSubscribeLaneAreaVariable,
		vars:     fixed(schema.LaneAreaVars),
		external: verbatim,
	}}, nil
}

func (c *laneAreaSubscribe) Execute(b bridge.Bridge, detectorID string, start, end time.Duration) error {
	return c.run(b, detectorID, start, end)
}

type trafficLightSubscribe struct {
	subscribe
}

func newTrafficLightSubscribe() (bridge.TrafficLightSubscribe, error) {
	return &trafficLightSubscribe{subscribe{
		command:  newCommand("TrafficLightSubscribe", protocol.CmdSubscribeTrafficLightVariable, protocol.APILowest),
		response: protocol.ResponseSubscribeTrafficLightVariable,
		vars:     fixed(schema.TrafficLightVars),
		external: verbatim,
	}}, nil
}

func (c *trafficLightSubscribe) Execute(b bridge.Bridge, trafficLightID string, start, end time.Duration) error {
	return c.run(b, trafficLightID, start, end)
}
