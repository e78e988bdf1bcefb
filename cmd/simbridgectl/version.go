package main

import (
	"fmt"

	"github.com/danmuck/simbridge/internal/bridge"
	"github.com/spf13/cobra"
)

func newVersionCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the engine release and API level",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openSession(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			get, err := bridge.GetOrCreate[bridge.SimulationGetVersion](b.Registry())
			if err != nil {
				return err
			}
			reported, err := get.Execute(b)
			if err != nil {
				return fmt.Errorf("query engine version: %w", err)
			}
			negotiated, err := b.CurrentVersion()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "backend:    %s\n", b.Backend())
			fmt.Fprintf(out, "engine:     %s (API %d)\n", reported.Release, reported.API)
			fmt.Fprintf(out, "negotiated: %s\n", negotiated)
			return nil
		},
	}
}
