package native

import (
	"errors"

	"github.com/danmuck/simbridge/internal/bridge"
)

// Register adds the native command implementations to catalog under
// Namespace. There is no pass-through request: the engine has no wire format.
func Register(catalog *bridge.Catalog) error {
	return errors.Join(
		bridge.ProvideWithBridge(catalog, Namespace, bound(func(b *Bridge) bridge.SimulationGetVersion {
			return &getVersion{b: b}
		})),
		bridge.ProvideWithBridge(catalog, Namespace, bound(func(b *Bridge) bridge.SimulationClose {
			return &closeSimulation{b: b}
		})),
		bridge.ProvideWithBridge(catalog, Namespace, bound(func(b *Bridge) bridge.SimulationSimulateStep {
			return &simulateStep{b: b}
		})),
		bridge.ProvideWithBridge(catalog, Namespace, bound(func(b *Bridge) bridge.VehicleAdd {
			return &vehicleAdd{b: b}
		})),
		bridge.ProvideWithBridge(catalog, Namespace, bound(func(b *Bridge) bridge.VehicleSetSpeed {
			return &vehicleSetSpeed{b: b}
		})),
		bridge.ProvideWithBridge(catalog, Namespace, bound(func(b *Bridge) bridge.VehicleSetSpeedMode {
			return &vehicleSetSpeedMode{b: b}
		})),
		bridge.ProvideWithBridge(catalog, Namespace, bound(func(b *Bridge) bridge.VehicleSetLaneChangeMode {
			return &vehicleSetLaneChangeMode{b: b}
		})),
		bridge.ProvideWithBridge(catalog, Namespace, bound(func(b *Bridge) bridge.VehicleGetRouteID {
			return &vehicleGetRouteID{b: b}
		})),
		bridge.ProvideWithBridge(catalog, Namespace, bound(func(b *Bridge) bridge.VehicleSubscribe {
			return &vehicleSubscribe{subscribe{b: b, name: "VehicleSubscribe", set: func(s *subscriptions) map[string]window { return s.vehicles }}}
		})),
		bridge.ProvideWithBridge(catalog, Namespace, bound(func(b *Bridge) bridge.InductionLoopSubscribe {
			return &inductionLoopSubscribe{subscribe{b: b, name: "InductionLoopSubscribe", set: func(s *subscriptions) map[string]window { return s.inductionLoops }}}
		})),
		bridge.ProvideWithBridge(catalog, Namespace, bound(func(b *Bridge) bridge.LaneAreaSubscribe {
			return &laneAreaSubscribe{subscribe{b: b, name: "LaneAreaSubscribe", set: func(s *subscriptions) map[string]window { return s.laneAreas }}}
		})),
		bridge.ProvideWithBridge(catalog, Namespace, bound(func(b *Bridge) bridge.TrafficLightSubscribe {
			return &trafficLightSubscribe{subscribe{b: b, name: "TrafficLightSubscribe", set: func(s *subscriptions) map[string]window { return s.trafficLights }}}
		})),
		bridge.ProvideWithBridge(catalog, Namespace, bound(func(b *Bridge) bridge.TrafficLightSetProgram {
			return &trafficLightSetProgram{b: b}
		})),
		bridge.ProvideWithBridge(catalog, Namespace, bound(func(b *Bridge) bridge.RouteAdd {
			return &routeAdd{b: b}
		})),
		bridge.ProvideWithBridge(catalog, Namespace, bound(func(b *Bridge) bridge.PoiAdd {
			return &poiAdd{b: b}
		})),
		bridge.ProvideWithBridge(catalog, Namespace, bound(func(b *Bridge) bridge.PoiRemove {
			return &poiRemove{b: b}
		})),
	)
}
