package bridge

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/danmuck/simbridge/internal/config"
	"github.com/danmuck/simbridge/internal/logging"
	"github.com/rs/zerolog"
)

// Factory holds the constructors one namespace provides for one capability.
// Resolution tries Configured, then WithBridge, then Plain.
type Factory struct {
	Configured func(b Bridge, cfg config.Bridge) (any, error)
	WithBridge func(b Bridge) (any, error)
	Plain      func() (any, error)
}

func (f Factory) empty() bool {
	return f.Configured == nil && f.WithBridge == nil && f.Plain == nil
}

// Catalog stores command factories keyed by namespace and capability type.
// Backends fill it once at startup; it is read-only afterwards.
type Catalog struct {
	factories map[string]map[reflect.Type]Factory
}

func NewCatalog() *Catalog {
	return &Catalog{factories: make(map[string]map[reflect.Type]Factory)}
}

func (c *Catalog) entry(namespace string, capability reflect.Type) Factory {
	return c.factories[namespace][capability]
}

func (c *Catalog) update(namespace string, capability reflect.Type, fn func(*Factory) error) error {
	byType, ok := c.factories[namespace]
	if !ok {
		byType = make(map[reflect.Type]Factory)
		c.factories[namespace] = byType
	}
	f := byType[capability]
	if err := fn(&f); err != nil {
		return fmt.Errorf("%w: %s/%s", err, namespace, capability)
	}
	byType[capability] = f
	return nil
}

// Capabilities lists the capability names a namespace provides, sorted.
func (c *Catalog) Capabilities(namespace string) []string {
	out := make([]string, 0, len(c.factories[namespace]))
	for t := range c.factories[namespace] {
		out = append(out, t.String())
	}
	sort.Strings(out)
	return out
}

func capabilityOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// ProvideConfigured registers a constructor taking the bridge and its configuration.
func ProvideConfigured[T any](c *Catalog, namespace string, fn func(Bridge, config.Bridge) (T, error)) error {
	return c.update(namespace, capabilityOf[T](), func(f *Factory) error {
		if f.Configured != nil {
			return ErrFactoryExists
		}
		f.Configured = func(b Bridge, cfg config.Bridge) (any, error) { return fn(b, cfg) }
		return nil
	})
}

// ProvideWithBridge registers a constructor taking the bridge.
func ProvideWithBridge[T any](c *Catalog, namespace string, fn func(Bridge) (T, error)) error {
	return c.update(namespace, capabilityOf[T](), func(f *Factory) error {
		if f.WithBridge != nil {
			return ErrFactoryExists
		}
		f.WithBridge = func(b Bridge) (any, error) { return fn(b) }
		return nil
	})
}

// Provide registers a constructor without session context.
func Provide[T any](c *Catalog, namespace string, fn func() (T, error)) error {
	return c.update(namespace, capabilityOf[T](), func(f *Factory) error {
		if f.Plain != nil {
			return ErrFactoryExists
		}
		f.Plain = func() (any, error) { return fn() }
		return nil
	})
}

// Registry hands out one command instance per capability for one session.
type Registry struct {
	catalog    *Catalog
	namespaces []string
	cfg        config.Bridge
	bridge     Bridge
	instances  map[reflect.Type]any
	log        zerolog.Logger
}

// NewRegistry resolves capabilities against namespaces in order; the first
// namespace with any factory for a capability is the only one tried.
func NewRegistry(catalog *Catalog, cfg config.Bridge, namespaces ...string) *Registry {
	return &Registry{
		catalog:    catalog,
		namespaces: append([]string(nil), namespaces...),
		cfg:        cfg,
		instances:  make(map[reflect.Type]any),
		log:        logging.For("registry"),
	}
}

// SetBridge binds the session the registry serves. It must be called before
// the first resolution that needs a bridge.
func (r *Registry) SetBridge(b Bridge) {
	r.bridge = b
}

func (r *Registry) Namespaces() []string {
	return append([]string(nil), r.namespaces...)
}

// GetOrCreate returns the session's instance of capability T, creating it on first use.
func GetOrCreate[T any](r *Registry) (T, error) {
	var zero T
	capability := capabilityOf[T]()
	if inst, ok := r.instances[capability]; ok {
		return inst.(T), nil
	}
	inst, err := r.create(capability)
	if err != nil {
		return zero, err
	}
	typed, ok := inst.(T)
	if !ok {
		return zero, r.fail(capability, "factory returned wrong type", fmt.Errorf("got %T", inst))
	}
	r.instances[capability] = typed
	return typed, nil
}

func (r *Registry) create(capability reflect.Type) (any, error) {
	var (
		f         Factory
		namespace string
	)
	for _, ns := range r.namespaces {
		if candidate := r.catalog.entry(ns, capability); !candidate.empty() {
			f, namespace = candidate, ns
			break
		}
	}
	if namespace == "" {
		return nil, r.fail(capability, "no implementation", nil)
	}

	var errs []error
	if f.Configured != nil && r.bridge != nil {
		inst, err := f.Configured(r.bridge, r.cfg)
		if err == nil && inst != nil {
			return inst, nil
		}
		errs = append(errs, fmt.Errorf("configured constructor: %w", nilInstance(err)))
	}
	if f.WithBridge != nil && r.bridge != nil {
		inst, err := f.WithBridge(r.bridge)
		if err == nil && inst != nil {
			return inst, nil
		}
		errs = append(errs, fmt.Errorf("bridge constructor: %w", nilInstance(err)))
	}
	if f.Plain != nil {
		inst, err := f.Plain()
		if err == nil && inst != nil {
			return inst, nil
		}
		errs = append(errs, fmt.Errorf("plain constructor: %w", nilInstance(err)))
	}
	if len(errs) == 0 {
		errs = append(errs, errors.New("no constructor usable without a bridge"))
	}
	return nil, r.fail(capability, "construction failed in namespace "+namespace, errors.Join(errs...))
}

func (r *Registry) fail(capability reflect.Type, reason string, err error) error {
	rerr := &ResolutionError{
		Capability: capability.String(),
		Namespaces: r.Namespaces(),
		Reason:     reason,
		Err:        err,
	}
	r.log.Error().Err(rerr).Msg("command resolution failed")
	return rerr
}

func nilInstance(err error) error {
	if err != nil {
		return err
	}
	return errors.New("constructor returned nil")
}
