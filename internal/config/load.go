package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	Backend          string         `toml:"backend" yaml:"backend"`
	Host             string         `toml:"host" yaml:"host"`
	Port             int            `toml:"port" yaml:"port"`
	CommandNamespace string         `toml:"command_namespace" yaml:"command_namespace"`
	StepLength       string         `toml:"step_length" yaml:"step_length"`
	Subscriptions    []string       `toml:"subscriptions" yaml:"subscriptions"`
	IDTransformer    string         `toml:"id_transformer" yaml:"id_transformer"`
	NetOffsetX       float64        `toml:"net_offset_x" yaml:"net_offset_x"`
	NetOffsetY       float64        `toml:"net_offset_y" yaml:"net_offset_y"`
	Connect          connectFile    `toml:"connect" yaml:"connect"`
	DebugTraffic     bool           `toml:"debug_traffic" yaml:"debug_traffic"`
	TrafficLog       trafficLogFile `toml:"traffic_log" yaml:"traffic_log"`
	DiagnosticsAddr  string         `toml:"diagnostics_addr" yaml:"diagnostics_addr"`
	EngineArgs       []string       `toml:"engine_args" yaml:"engine_args"`
	LogLevel         string         `toml:"log_level" yaml:"log_level"`
}

type connectFile struct {
	Timeout     string      `toml:"timeout" yaml:"timeout"`
	MaxAttempts int         `toml:"max_attempts" yaml:"max_attempts"`
	Backoff     backoffFile `toml:"backoff" yaml:"backoff"`
}

type backoffFile struct {
	InitialDelay string  `toml:"initial_delay" yaml:"initial_delay"`
	Multiplier   float64 `toml:"multiplier" yaml:"multiplier"`
	MaxDelay     string  `toml:"max_delay" yaml:"max_delay"`
	Jitter       bool    `toml:"jitter" yaml:"jitter"`
}

type trafficLogFile struct {
	Path       string `toml:"path" yaml:"path"`
	MaxSizeMB  int    `toml:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `toml:"compress" yaml:"compress"`
}

// definedFunc reports whether a key path was present in the source file.
type definedFunc func(key ...string) bool

// Load reads a TOML or YAML file (by extension) over Default and validates the result.
func Load(path string) (Bridge, error) {
	var (
		raw     fileConfig
		defined definedFunc
		err     error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		defined, err = decodeYAML(path, &raw)
	default:
		defined, err = decodeTOML(path, &raw)
	}
	if err != nil {
		return Bridge{}, err
	}
	cfg, err := apply(Default(), raw, defined)
	if err != nil {
		return Bridge{}, fmt.Errorf("config %s: %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return Bridge{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func decodeTOML(path string, raw *fileConfig) (definedFunc, error) {
	meta, err := toml.DecodeFile(path, raw)
	if err != nil {
		return nil, fmt.Errorf("load bridge config: %w", err)
	}
	return meta.IsDefined, nil
}

func decodeYAML(path string, raw *fileConfig) (definedFunc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load bridge config: %w", err)
	}
	if err := yaml.Unmarshal(data, raw); err != nil {
		return nil, fmt.Errorf("parse bridge config: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("parse bridge config: %w", err)
	}
	keys := make(map[string]bool)
	collectKeys(tree, "", keys)
	return func(key ...string) bool {
		return keys[strings.Join(key, ".")]
	}, nil
}

func collectKeys(node map[string]any, prefix string, out map[string]bool) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		out[key] = true
		if child, ok := v.(map[string]any); ok {
			collectKeys(child, key, out)
		}
	}
}

func apply(cfg Bridge, raw fileConfig, defined definedFunc) (Bridge, error) {
	if defined("backend") {
		cfg.Backend = Backend(strings.ToLower(strings.TrimSpace(raw.Backend)))
	}
	if defined("host") {
		cfg.Host = strings.TrimSpace(raw.Host)
	}
	if defined("port") {
		cfg.Port = raw.Port
	}
	if defined("command_namespace") {
		cfg.CommandNamespace = strings.TrimSpace(raw.CommandNamespace)
	}
	if defined("step_length") {
		d, err := parseDuration("step_length", raw.StepLength)
		if err != nil {
			return Bridge{}, err
		}
		cfg.StepLength = d
	}
	if defined("subscriptions") {
		cfg.Subscriptions = normalizeList(raw.Subscriptions)
	}
	if defined("id_transformer") {
		cfg.IDTransformer = strings.TrimSpace(raw.IDTransformer)
	}
	if defined("net_offset_x") {
		cfg.NetOffsetX = raw.NetOffsetX
	}
	if defined("net_offset_y") {
		cfg.NetOffsetY = raw.NetOffsetY
	}
	if defined("connect", "timeout") {
		d, err := parseDuration("connect.timeout", raw.Connect.Timeout)
		if err != nil {
			return Bridge{}, err
		}
		cfg.Connect.Timeout = d
	}
	if defined("connect", "max_attempts") {
		cfg.Connect.MaxAttempts = raw.Connect.MaxAttempts
	}
	if defined("connect", "backoff", "initial_delay") {
		d, err := parseDuration("connect.backoff.initial_delay", raw.Connect.Backoff.InitialDelay)
		if err != nil {
			return Bridge{}, err
		}
		cfg.Connect.Backoff.InitialDelay = d
	}
	if defined("connect", "backoff", "multiplier") {
		cfg.Connect.Backoff.Multiplier = raw.Connect.Backoff.Multiplier
	}
	if defined("connect", "backoff", "max_delay") {
		d, err := parseDuration("connect.backoff.max_delay", raw.Connect.Backoff.MaxDelay)
		if err != nil {
			return Bridge{}, err
		}
		cfg.Connect.Backoff.MaxDelay = d
	}
	if defined("connect", "backoff", "jitter") {
		cfg.Connect.Backoff.Jitter = raw.Connect.Backoff.Jitter
	}
	if defined("debug_traffic") {
		cfg.DebugTraffic = raw.DebugTraffic
	}
	if defined("traffic_log", "path") {
		cfg.TrafficLog.Path = strings.TrimSpace(raw.TrafficLog.Path)
	}
	if defined("traffic_log", "max_size_mb") {
		cfg.TrafficLog.MaxSizeMB = raw.TrafficLog.MaxSizeMB
	}
	if defined("traffic_log", "max_backups") {
		cfg.TrafficLog.MaxBackups = raw.TrafficLog.MaxBackups
	}
	if defined("traffic_log", "max_age_days") {
		cfg.TrafficLog.MaxAgeDays = raw.TrafficLog.MaxAgeDays
	}
	if defined("traffic_log", "compress") {
		cfg.TrafficLog.Compress = raw.TrafficLog.Compress
	}
	if defined("diagnostics_addr") {
		cfg.DiagnosticsAddr = strings.TrimSpace(raw.DiagnosticsAddr)
	}
	if defined("engine_args") {
		cfg.EngineArgs = append([]string(nil), raw.EngineArgs...)
	}
	if defined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	return cfg, nil
}

func parseDuration(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func normalizeList(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		item = strings.ToLower(strings.TrimSpace(item))
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}
