package traci

import (
	"github.com/danmuck/simbridge/internal/behavior"
	"github.com/danmuck/simbridge/internal/bridge"
	"github.com/danmuck/simbridge/internal/protocol"
	"github.com/danmuck/simbridge/internal/protocol/reader"
	"github.com/danmuck/simbridge/internal/protocol/tlv"
)

// Departure defaults used for empty VehicleDeparture fields.
const (
	DefaultVehicleType    = "DEFAULT_VEHTYPE"
	DefaultDepartLane     = "best"
	DefaultDepartPosition = "base"
	DefaultDepartSpeed    = "max"
)

type vehicleAdd struct {
	command
}

func newVehicleAdd() (bridge.VehicleAdd, error) {
	return &vehicleAdd{newCommand("VehicleAdd", protocol.CmdSetVehicleVariable, protocol.APILowest)}, nil
}

func (c *vehicleAdd) Execute(b bridge.Bridge, d bridge.VehicleDeparture) error {
	content := tlv.NewCommand(c.id).
		UByte(protocol.VarAddFull).
		String(b.IDTransformer().ToExternal(d.VehicleID)).
		Compound(14).
		TypedString(d.RouteID).
		TypedString(or(d.TypeID, DefaultVehicleType)).
		TypedString("now").
		TypedString(or(d.Lane, DefaultDepartLane)).
		TypedString(or(d.Position, DefaultDepartPosition)).
		TypedString(or(d.Speed, DefaultDepartSpeed)).
		TypedString("current").
		TypedString("max").
		TypedString("current").
		TypedString("").
		TypedString("").
		TypedString("").
		TypedInt(0).
		TypedInt(0).
		Bytes()
	return c.execute(b, content, nil)
}

type vehicleSetSpeed struct {
	command
}

func newVehicleSetSpeed() (bridge.VehicleSetSpeed, error) {
	return &vehicleSetSpeed{newCommand("VehicleSetSpeed", protocol.CmdSetVehicleVariable, protocol.APILowest)}, nil
}

func (c *vehicleSetSpeed) Execute(b bridge.Bridge, vehicleID string, speed float64) error {
	content := tlv.NewCommand(c.id).
		UByte(protocol.VarSpeed).
		String(b.IDTransformer().ToExternal(vehicleID)).
		TypedDouble(speed).
		Bytes()
	return c.execute(b, content, nil)
}

type vehicleSetSpeedMode struct {
	command
}

func newVehicleSetSpeedMode() (bridge.VehicleSetSpeedMode, error) {
	return &vehicleSetSpeedMode{newCommand("VehicleSetSpeedMode", protocol.CmdSetVehicleVariable, protocol.APILowest)}, nil
}

func (c *vehicleSetSpeedMode) Execute(b bridge.Bridge, vehicleID string, mode behavior.SpeedMode) error {
	bits, err := behavior.SpeedBits(mode)
	if err != nil {
		return err
	}
	content := tlv.NewCommand(c.id).
		UByte(protocol.VarSpeedMode).
		String(b.IDTransformer().ToExternal(vehicleID)).
		TypedInt(int32(bits)).
		Bytes()
	return c.execute(b, content, nil)
}

type vehicleSetLaneChangeMode struct {
	command
}

func newVehicleSetLaneChangeMode() (bridge.VehicleSetLaneChangeMode, error) {
	return &vehicleSetLaneChangeMode{newCommand("VehicleSetLaneChangeMode", protocol.CmdSetVehicleVariable, protocol.APILowest)}, nil
}

func (c *vehicleSetLaneChangeMode) Execute(b bridge.Bridge, vehicleID string, mode behavior.LaneChangeMode) error {
	bits, err := behavior.LaneChangeBits(mode)
	if err != nil {
		return err
	}
	content := tlv.NewCommand(c.id).
		UByte(protocol.VarLaneChangeMode).
		String(b.IDTransformer().ToExternal(vehicleID)).
		TypedInt(int32(bits)).
		Bytes()
	return c.execute(b, content, nil)
}

type vehicleGetRouteID struct {
	command
}

func newVehicleGetRouteID() (bridge.VehicleGetRouteID, error) {
	return &vehicleGetRouteID{newCommand("VehicleGetRouteID", protocol.CmdGetVehicleVariable, protocol.APILowest)}, nil
}

// Execute reads the answer block: response id, variable id, vehicle id and
// the tagged route id.
func (c *vehicleGetRouteID) Execute(b bridge.Bridge, vehicleID string) (string, error) {
	var routeID string
	content := tlv.NewCommand(c.id).
		UByte(protocol.VarRouteID).
		String(b.IDTransformer().ToExternal(vehicleID)).
		Bytes()
	err := c.execute(b, content, func(resp *response) error {
		id, blk, err := resp.block()
		if err != nil {
			return err
		}
		if id != protocol.ResponseGetVehicleVariable {
			return unexpected("route response", id, protocol.ResponseGetVehicleVariable)
		}
		variable, _, err := reader.UByte.Read(blk, blk.Len())
		if err != nil {
			return err
		}
		if variable != protocol.VarRouteID {
			return unexpected("route variable", variable, protocol.VarRouteID)
		}
		if _, _, err := reader.String.Read(blk, blk.Len()); err != nil {
			return err
		}
		tag, _, err := reader.UByte.Read(blk, blk.Len())
		if err != nil {
			return err
		}
		if tag != protocol.TypeString {
			return unexpected("route id type", tag, protocol.TypeString)
		}
		routeID, _, err = reader.String.Read(blk, blk.Len())
		return err
	})
	if err != nil {
		return "", err
	}
	return routeID, nil
}

func or(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
