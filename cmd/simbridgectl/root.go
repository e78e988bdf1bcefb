package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/simbridge/internal/bridge"
	"github.com/danmuck/simbridge/internal/bridge/native"
	"github.com/danmuck/simbridge/internal/bridge/native/memengine"
	"github.com/danmuck/simbridge/internal/bridge/traci"
	"github.com/danmuck/simbridge/internal/config"
	"github.com/danmuck/simbridge/internal/logging"
	"github.com/spf13/cobra"
)

// options is the state shared by every subcommand after flag parsing.
type options struct {
	configPath string
	backend    string
	cfg        config.Bridge
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "simbridgectl",
		Short:         "Drive a traffic engine session over TraCI or in process",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "bridge config file (.toml, .yaml)")
	root.PersistentFlags().StringVar(&opts.backend, "backend", "", "override the configured backend: traci or libsumo")
	root.AddCommand(newVersionCmd(opts), newRunCmd(opts))
	return root
}

func (o *options) load() error {
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if b := strings.TrimSpace(o.backend); b != "" {
		cfg.Backend = config.Backend(b)
		if err := config.Validate(cfg); err != nil {
			return err
		}
	}
	if !logging.SetLevel(cfg.LogLevel) {
		logger := logging.For("simbridgectl")
		logger.Warn().Str("level", cfg.LogLevel).Msg("ignoring unknown log level")
	}
	o.cfg = cfg
	return nil
}

// openSession connects the configured backend. The libsumo backend runs the
// built-in demo network.
func openSession(ctx context.Context, cfg config.Bridge) (bridge.Bridge, error) {
	catalog := bridge.NewCatalog()
	if err := errors.Join(traci.Register(catalog), native.Register(catalog)); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case config.BackendLibsumo:
		b, err := native.New(cfg, memengine.New(memengine.DemoNetwork()), catalog)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		c, err := traci.Dial(ctx, cfg, catalog)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}
