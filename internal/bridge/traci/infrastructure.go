package traci

import (
	"github.com/danmuck/simbridge/internal/bridge"
	"github.com/danmuck/simbridge/internal/config"
	"github.com/danmuck/simbridge/internal/protocol"
	"github.com/danmuck/simbridge/internal/protocol/tlv"
)

type trafficLightSetProgram struct {
	command
}

func newTrafficLightSetProgram() (bridge.TrafficLightSetProgram, error) {
	return &trafficLightSetProgram{newCommand("TrafficLightSetProgram", protocol.CmdSetTrafficLightVariable, protocol.APILowest)}, nil
}

func (c *trafficLightSetProgram) Execute(b bridge.Bridge, trafficLightID, programID string) error {
	content := tlv.NewCommand(c.id).
		UByte(protocol.VarTLProgram).
		String(trafficLightID).
		TypedString(programID).
		Bytes()
	return c.execute(b, content, nil)
}

type routeAdd struct {
	command
}

func newRouteAdd() (bridge.RouteAdd, error) {
	return &routeAdd{newCommand("RouteAdd", protocol.CmdSetRouteVariable, protocol.APILowest)}, nil
}

func (c *routeAdd) Execute(b bridge.Bridge, routeID string, edges []string) error {
	content := tlv.NewCommand(c.id).
		UByte(protocol.VarAdd).
		String(routeID).
		TypedStringList(edges).
		Bytes()
	return c.execute(b, content, nil)
}

// poiAdd shifts positions back into engine coordinates by the network offset.
type poiAdd struct {
	command
	dx, dy float64
}

func newPoiAdd(_ bridge.Bridge, cfg config.Bridge) (bridge.PoiAdd, error) {
	return &poiAdd{
		command: newCommand("PoiAdd", protocol.CmdSetPoiVariable, protocol.APILowest),
		dx:      cfg.NetOffsetX,
		dy:      cfg.NetOffsetY,
	}, nil
}

func (c *poiAdd) Execute(b bridge.Bridge, poi bridge.Poi) error {
	content := tlv.NewCommand(c.id).
		UByte(protocol.VarAdd).
		String(poi.ID).
		Compound(4).
		TypedString(poi.Type).
		TypedColor(poi.Color).
		TypedInt(int32(poi.Layer)).
		TypedPosition2D(protocol.XY(poi.Position.X+c.dx, poi.Position.Y+c.dy)).
		Bytes()
	return c.execute(b, content, nil)
}

type poiRemove struct {
	command
}

func newPoiRemove() (bridge.PoiRemove, error) {
	return &poiRemove{newCommand("PoiRemove", protocol.CmdSetPoiVariable, protocol.APILowest)}, nil
}

func (c *poiRemove) Execute(b bridge.Bridge, poiID string, layer int) error {
	content := tlv.NewCommand(c.id).
		UByte(protocol.VarRemove).
		String(poiID).
		TypedInt(int32(layer)).
		Bytes()
	return c.execute(b, content, nil)
}
