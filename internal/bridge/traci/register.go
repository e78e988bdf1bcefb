package traci

import (
	"errors"

	"github.com/danmuck/simbridge/internal/bridge"
)

// Register adds the TraCI command implementations to catalog under Namespace.
func Register(catalog *bridge.Catalog) error {
	return errors.Join(
		bridge.Provide(catalog, Namespace, newGetVersion),
		bridge.Provide(catalog, Namespace, newClose),
		bridge.ProvideConfigured(catalog, Namespace, newSimulateStep),
		bridge.Provide(catalog, Namespace, newTraciRequest),
		bridge.Provide(catalog, Namespace, newVehicleAdd),
		bridge.Provide(catalog, Namespace, newVehicleSetSpeed),
		bridge.Provide(catalog, Namespace, newVehicleSetSpeedMode),
		bridge.Provide(catalog, Namespace, newVehicleSetLaneChangeMode),
		bridge.Provide(catalog, Namespace, newVehicleGetRouteID),
		bridge.ProvideConfigured(catalog, Namespace, newVehicleSubscribe),
		bridge.Provide(catalog, Namespace, newInductionLoopSubscribe),
		bridge.Provide(catalog, Namespace, newLaneAreaSubscribe),
		bridge.Provide(catalog, Namespace, newTrafficLightSubscribe),
		bridge.Provide(catalog, Namespace, newTrafficLightSetProgram),
		bridge.Provide(catalog, Namespace, newRouteAdd),
		bridge.ProvideConfigured(catalog, Namespace, newPoiAdd),
		bridge.Provide(catalog, Namespace, newPoiRemove),
	)
}
