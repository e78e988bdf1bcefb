package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/danmuck/simbridge/internal/bridge"
	"github.com/danmuck/simbridge/internal/logging"
	"github.com/danmuck/simbridge/internal/observability"
	"github.com/spf13/cobra"
)

type runFlags struct {
	steps         int
	route         string
	vehicles      []string
	loops         []string
	laneAreas     []string
	trafficLights []string
	diagAddr      string
}

func newRunCmd(opts *options) *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Subscribe, step the simulation and print every step",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if flags.diagAddr != "" {
				opts.cfg.DiagnosticsAddr = flags.diagAddr
			}
			return run(ctx, opts, flags, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&flags.steps, "steps", 10, "number of simulation steps")
	cmd.Flags().StringVar(&flags.route, "route", "r0", "route for vehicles added with --vehicle")
	cmd.Flags().StringSliceVar(&flags.vehicles, "vehicle", nil, "vehicle to add and subscribe (repeatable)")
	cmd.Flags().StringSliceVar(&flags.loops, "loop", nil, "induction loop to subscribe (repeatable)")
	cmd.Flags().StringSliceVar(&flags.laneAreas, "lane-area", nil, "lane area detector to subscribe (repeatable)")
	cmd.Flags().StringSliceVar(&flags.trafficLights, "traffic-light", nil, "traffic light to subscribe (repeatable)")
	cmd.Flags().StringVar(&flags.diagAddr, "diag-addr", "", "serve /health and /metrics on this address")
	return cmd
}

func run(ctx context.Context, opts *options, flags *runFlags, out io.Writer) error {
	if flags.steps < 1 {
		return fmt.Errorf("--steps must be at least 1")
	}
	logger := logging.For("simbridgectl")
	b, err := openSession(ctx, opts.cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	var simTime atomic.Int64
	diagDone := make(chan error, 1)
	if addr := opts.cfg.DiagnosticsAddr; addr != "" {
		version, _ := b.CurrentVersion()
		info := observability.SessionInfo{
			Session: sessionOf(b),
			Backend: b.Backend(),
			Version: version.String(),
			Step:    func() time.Duration { return time.Duration(simTime.Load()) },
		}
		diagCtx, cancel := context.WithCancel(ctx)
		defer func() {
			cancel()
			if err := <-diagDone; err != nil {
				logger.Warn().Err(err).Msg("diagnostics server stopped")
			}
		}()
		go func() {
			diagDone <- observability.Serve(diagCtx, addr, observability.Router(info, logger), logger)
		}()
	}

	if err := subscribe(b, flags); err != nil {
		return err
	}
	for i := 1; i <= flags.steps; i++ {
		if err := ctx.Err(); err != nil {
			logger.Info().Int("step", i).Msg("interrupted")
			return nil
		}
		until := time.Duration(i) * opts.cfg.StepLength
		res, err := b.Simulation().SimulateUntil(until)
		if err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
		simTime.Store(int64(until))
		printStep(out, res)
	}
	return nil
}

func subscribe(b bridge.Bridge, flags *runFlags) error {
	sim := b.Simulation()
	for _, id := range flags.vehicles {
		if err := sim.AddVehicle(bridge.VehicleDeparture{VehicleID: id, RouteID: flags.route}); err != nil {
			return fmt.Errorf("add vehicle %s: %w", id, err)
		}
		if err := sim.SubscribeVehicle(id, 0, 0); err != nil {
			return fmt.Errorf("subscribe vehicle %s: %w", id, err)
		}
	}
	for _, id := range flags.loops {
		if err := sim.SubscribeInductionLoop(id, 0, 0); err != nil {
			return fmt.Errorf("subscribe induction loop %s: %w", id, err)
		}
	}
	for _, id := range flags.laneAreas {
		if err := sim.SubscribeLaneArea(id, 0, 0); err != nil {
			return fmt.Errorf("subscribe lane area %s: %w", id, err)
		}
	}
	for _, id := range flags.trafficLights {
		if err := sim.SubscribeTrafficLight(id, 0, 0); err != nil {
			return fmt.Errorf("subscribe traffic light %s: %w", id, err)
		}
	}
	return nil
}

func printStep(out io.Writer, res bridge.StepResult) {
	fmt.Fprintf(out, "t=%s added=%d updated=%d removed=%d\n", res.Time, len(res.Added), len(res.Updated), len(res.Removed))
	for _, v := range append(append([]bridge.VehicleResult(nil), res.Added...), res.Updated...) {
		fmt.Fprintf(out, "  vehicle %s road=%s pos=(%.2f,%.2f) speed=%.2f\n", v.ID, v.RoadID, v.Position.X, v.Position.Y, v.Speed)
	}
	for _, id := range res.Removed {
		fmt.Fprintf(out, "  vehicle %s left\n", id)
	}
	for _, l := range res.InductionLoops {
		fmt.Fprintf(out, "  loop %s vehicles=%d mean_speed=%.2f\n", l.ID, len(l.Vehicles), l.MeanSpeed)
	}
	for _, a := range res.LaneAreas {
		fmt.Fprintf(out, "  lane_area %s vehicles=%d halting=%d\n", a.ID, a.VehicleCount, a.Halting)
	}
	for _, tl := range res.TrafficLights {
		fmt.Fprintf(out, "  traffic_light %s program=%s phase=%d state=%s next=%s\n", tl.ID, tl.ProgramID, tl.PhaseIndex, tl.State, tl.NextSwitch)
	}
}

// sessionOf returns the session id of backends that expose one.
func sessionOf(b bridge.Bridge) string {
	if s, ok := b.(interface{ Session() string }); ok {
		return s.Session()
	}
	return ""
}
