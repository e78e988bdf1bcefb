package main

import (
	"fmt"
	"os"

	"github.com/danmuck/simbridge/internal/logging"
)

func main() {
	logging.ConfigureRuntime()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "simbridgectl: %v\n", err)
		os.Exit(1)
	}
}
