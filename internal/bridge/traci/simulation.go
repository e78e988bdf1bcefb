package traci

import (
	"fmt"
	"io"
	"time"

	"github.com/danmuck/simbridge/internal/bridge"
	"github.com/danmuck/simbridge/internal/config"
	"github.com/danmuck/simbridge/internal/protocol"
	"github.com/danmuck/simbridge/internal/protocol/reader"
	"github.com/danmuck/simbridge/internal/protocol/tlv"
)

type getVersion struct {
	command
}

func newGetVersion() (bridge.SimulationGetVersion, error) {
	return &getVersion{newCommand("SimulationGetVersion", protocol.CmdGetVersion, 0)}, nil
}

func (c *getVersion) Execute(b bridge.Bridge) (bridge.EngineVersion, error) {
	var out bridge.EngineVersion
	err := c.execute(b, tlv.NewCommand(c.id).Bytes(), func(resp *response) error {
		id, blk, err := resp.block()
		if err != nil {
			return err
		}
		if id != protocol.CmdGetVersion {
			return unexpected("version response", id, protocol.CmdGetVersion)
		}
		api, _, err := reader.Integer.Read(blk, blk.Len())
		if err != nil {
			return err
		}
		release, _, err := reader.String.Read(blk, blk.Len())
		if err != nil {
			return err
		}
		out = bridge.EngineVersion{API: int(api), Release: release}
		return nil
	})
	return out, err
}

type closeSimulation struct {
	command
}

func newClose() (bridge.SimulationClose, error) {
	return &closeSimulation{newCommand("SimulationClose", protocol.CmdClose, 0)}, nil
}

func (c *closeSimulation) Execute(b bridge.Bridge) error {
	return c.execute(b, tlv.NewCommand(c.id).Bytes(), nil)
}

type simulateStep struct {
	command
	decoders map[uint8]decoder
}

func newSimulateStep(b bridge.Bridge, cfg config.Bridge) (bridge.SimulationSimulateStep, error) {
	return &simulateStep{
		command:  newCommand("SimulationSimulateStep", protocol.CmdSimStep, protocol.APILowest),
		decoders: decoders(b.IDTransformer(), cfg),
	}, nil
}

// Execute advances the engine to until. The response lists one block per
// subscribed object; blocks of unknown kind are skipped.
func (c *simulateStep) Execute(b bridge.Bridge, until time.Duration) ([]bridge.SubscriptionResult, error) {
	var out []bridge.SubscriptionResult
	content := tlv.NewCommand(c.id).Double(until.Seconds()).Bytes()
	err := c.execute(b, content, func(resp *response) error {
		count, _, err := reader.Integer.Read(resp, resp.Len())
		if err != nil {
			return err
		}
		if count < 0 || int(count) > resp.Len() {
			return fmt.Errorf("%w: %d subscription results in %d bytes", protocol.ErrFraming, count, resp.Len())
		}
		out = make([]bridge.SubscriptionResult, 0, count)
		for i := 0; i < int(count); i++ {
			id, blk, err := resp.block()
			if err != nil {
				return err
			}
			decode, ok := c.decoders[id]
			if !ok {
				c.log.Warn().Uint8("response", id).Msg("skipping unknown subscription response")
				continue
			}
			rec, err := decode(blk)
			if err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type traciRequest struct {
	command
}

func newTraciRequest() (bridge.SimulationTraciRequest, error) {
	return &traciRequest{newCommand("SimulationTraciRequest", 0, protocol.APILowest)}, nil
}

// Execute sends content unchanged and returns whatever follows the status
// block.
func (c *traciRequest) Execute(b bridge.Bridge, requestID string, content []byte) (bridge.TraciResult, error) {
	out := bridge.TraciResult{RequestID: requestID}
	err := c.execute(b, content, func(resp *response) error {
		out.Payload = make([]byte, resp.Len())
		_, err := io.ReadFull(resp, out.Payload)
		return err
	})
	if status, ok := bridge.StatusOf(err); ok {
		out.Status = status
		return out, err
	}
	if err != nil {
		return out, err
	}
	out.Status = bridge.Status{Code: protocol.StatusOK}
	return out, nil
}
