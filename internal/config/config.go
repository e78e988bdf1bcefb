package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/simbridge/internal/protocol/schema"
)

var ErrInvalidConfig = errors.New("config: invalid")

// Backend names the engine execution strategy.
type Backend string

const (
	BackendTraCI   Backend = "traci"
	BackendLibsumo Backend = "libsumo"
)

// Bridge configures one engine session.
type Bridge struct {
	Backend          Backend
	Host             string
	Port             int
	CommandNamespace string
	StepLength       time.Duration
	Subscriptions    []string
	IDTransformer    string
	NetOffsetX       float64
	NetOffsetY       float64
	Connect          Connect
	DebugTraffic     bool
	TrafficLog       TrafficLog
	DiagnosticsAddr  string
	EngineArgs       []string
	LogLevel         string
}

// Connect bounds socket connection establishment.
type Connect struct {
	Timeout     time.Duration
	MaxAttempts int
	Backoff     Backoff
}

// Backoff defines retry backoff behavior between connection attempts.
type Backoff struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// TrafficLog configures the rotating raw traffic capture.
type TrafficLog struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

func Default() Bridge {
	return Bridge{
		Backend:       BackendTraCI,
		Host:          "localhost",
		Port:          8813,
		StepLength:    time.Second,
		Subscriptions: append([]string(nil), schema.DefaultCategories...),
		IDTransformer: "identity",
		Connect: Connect{
			Timeout:     5 * time.Second,
			MaxAttempts: 10,
			Backoff: Backoff{
				InitialDelay: 250 * time.Millisecond,
				Multiplier:   2.0,
				MaxDelay:     5 * time.Second,
				Jitter:       true,
			},
		},
		TrafficLog: TrafficLog{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
		LogLevel: "info",
	}
}

// Addr returns the host:port of the engine's TraCI server.
func (c Bridge) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Namespaces returns the command namespaces to resolve in order: the override, then the backend.
func (c Bridge) Namespaces() []string {
	out := make([]string, 0, 2)
	if ns := strings.TrimSpace(c.CommandNamespace); ns != "" {
		out = append(out, ns)
	}
	return append(out, string(c.Backend))
}

func Validate(cfg Bridge) error {
	switch cfg.Backend {
	case BackendTraCI:
		if strings.TrimSpace(cfg.Host) == "" {
			return fmt.Errorf("%w: host is required for backend %s", ErrInvalidConfig, cfg.Backend)
		}
		if cfg.Port <= 0 || cfg.Port > 65535 {
			return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, cfg.Port)
		}
	case BackendLibsumo:
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, cfg.Backend)
	}
	if cfg.StepLength <= 0 {
		return fmt.Errorf("%w: step_length must be positive", ErrInvalidConfig)
	}
	if err := schema.ValidateCategories(cfg.Subscriptions); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.IDTransformer)) {
	case "", "identity", "conform":
	default:
		return fmt.Errorf("%w: unknown id_transformer %q", ErrInvalidConfig, cfg.IDTransformer)
	}
	if cfg.Connect.MaxAttempts < 1 {
		return fmt.Errorf("%w: connect.max_attempts must be at least 1", ErrInvalidConfig)
	}
	return nil
}
