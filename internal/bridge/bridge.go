package bridge

import (
	"io"

	"github.com/danmuck/simbridge/internal/ident"
)

// Bridge is one live session with a traffic engine. A Bridge is driven by a
// single goroutine: one command is issued and fully answered before the next.
type Bridge interface {
	Simulation() *SimulationFacade
	Vehicles() *VehicleFacade
	TrafficLights() *TrafficLightFacade
	Routes() *RouteFacade
	Pois() *PoiFacade

	// CurrentVersion resolves the engine version on first use and caches it.
	CurrentVersion() (Version, error)
	Registry() *Registry
	IDTransformer() ident.Transformer
	Backend() string

	// In and Out expose the wire streams. Backends without a wire protocol
	// return ErrUnsupportedOperation.
	In() (io.Reader, error)
	Out() (io.Writer, error)

	Close() error
	// EmergencyExit tears the session down after an unrecoverable failure.
	EmergencyExit(cause error)
	// OnCommandCompleted is called once after every command execution.
	OnCommandCompleted()
}
