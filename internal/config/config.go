package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when --config is not given.
const DefaultPath = "reachprobe.yml"

// Duration is a time.Duration that unmarshals from a YAML string like "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = dur
	return nil
}

// ProbeConfig tunes the reachability probe.
type ProbeConfig struct {
	Name           string
	Attempts       int
	Delay          Duration
	Port           int
	DialTimeout    Duration
	RequestTimeout Duration
	Headers        map[string]string
}

// ScheduleConfig controls how often serve mode runs the profile.
type ScheduleConfig struct {
	Interval Duration
}

// WebhookConfig holds alert webhook settings.
type WebhookConfig struct {
	URL      string   `yaml:"url"`
	Cooldown Duration `yaml:"cooldown"`
}

// AlertsConfig holds all alert configuration.
type AlertsConfig struct {
	Webhook WebhookConfig `yaml:"webhook"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// StorageConfig holds storage settings. An empty path disables history for exec.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// LogConfig selects the slog handler. File enables size-based rotation.
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Config is the root application configuration.
type Config struct {
	Attributes map[string]string
	Probe      ProbeConfig
	Schedule   ScheduleConfig
	Alerts     AlertsConfig
	Server     ServerConfig
	Storage    StorageConfig
	Log        LogConfig
}

type rawProbe struct {
	Name           string            `yaml:"name"`
	Attempts       *int              `yaml:"attempts"`
	Delay          string            `yaml:"delay"`
	Port           int               `yaml:"port"`
	DialTimeout    string            `yaml:"dial_timeout"`
	RequestTimeout string            `yaml:"request_timeout"`
	Headers        map[string]string `yaml:"headers"`
}

type rawSchedule struct {
	Interval string `yaml:"interval"`
}

type rawConfig struct {
	Attributes map[string]string `yaml:"attributes"`
	Probe      rawProbe          `yaml:"probe"`
	Schedule   rawSchedule       `yaml:"schedule"`
	Alerts     AlertsConfig      `yaml:"alerts"`
	Server     ServerConfig      `yaml:"server"`
	Storage    StorageConfig     `yaml:"storage"`
	Log        LogConfig         `yaml:"log"`
}

var (
	validLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validFormats = map[string]bool{"text": true, "json": true}
)

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg, err := build(rawConfig{})
	if err != nil {
		// Unreachable: the zero raw config only takes defaults.
		panic(err)
	}
	return cfg
}

// Load reads, parses, and validates the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return build(raw)
}

// LoadOrDefault loads path, falling back to Default when the file does not
// exist and mustExist is false.
func LoadOrDefault(path string, mustExist bool) (*Config, error) {
	cfg, err := Load(path)
	if err != nil && !mustExist && errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

func build(raw rawConfig) (*Config, error) {
	// Apply defaults.
	if raw.Server.Address == "" {
		raw.Server.Address = ":8080"
	}
	if raw.Log.Level == "" {
		raw.Log.Level = "info"
	}
	if raw.Log.Format == "" {
		raw.Log.Format = "text"
	}
	if raw.Log.MaxSizeMB == 0 {
		raw.Log.MaxSizeMB = 10
	}
	if raw.Log.MaxBackups == 0 {
		raw.Log.MaxBackups = 5
	}
	if raw.Log.MaxAgeDays == 0 {
		raw.Log.MaxAgeDays = 14
	}

	if !validLevels[raw.Log.Level] {
		return nil, fmt.Errorf("log: invalid level %q (must be debug, info, warn, or error)", raw.Log.Level)
	}
	if !validFormats[raw.Log.Format] {
		return nil, fmt.Errorf("log: invalid format %q (must be text or json)", raw.Log.Format)
	}

	cfg := &Config{
		Attributes: make(map[string]string, len(raw.Attributes)),
		Alerts:     raw.Alerts,
		Server:     raw.Server,
		Storage:    raw.Storage,
		Log:        raw.Log,
	}
	for k, v := range raw.Attributes {
		cfg.Attributes[k] = v
	}

	p := ProbeConfig{
		Name:     raw.Probe.Name,
		Attempts: 10,
		Port:     raw.Probe.Port,
		Headers:  raw.Probe.Headers,
	}
	if p.Name == "" {
		p.Name = "Gitlab"
	}
	if raw.Probe.Attempts != nil {
		if *raw.Probe.Attempts < 1 {
			return nil, fmt.Errorf("probe: attempts must be at least 1, got %d", *raw.Probe.Attempts)
		}
		p.Attempts = *raw.Probe.Attempts
	}
	if p.Port == 0 {
		p.Port = 443
	}
	if p.Port < 1 || p.Port > 65535 {
		return nil, fmt.Errorf("probe: invalid port %d", p.Port)
	}

	var err error
	if p.Delay, err = parseDuration("probe", "delay", raw.Probe.Delay, 10*time.Second); err != nil {
		return nil, err
	}
	if p.DialTimeout, err = parseDuration("probe", "dial_timeout", raw.Probe.DialTimeout, 5*time.Second); err != nil {
		return nil, err
	}
	if p.RequestTimeout, err = parseDuration("probe", "request_timeout", raw.Probe.RequestTimeout, 60*time.Second); err != nil {
		return nil, err
	}
	cfg.Probe = p

	if cfg.Schedule.Interval, err = parseDuration("schedule", "interval", raw.Schedule.Interval, 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.Schedule.Interval.Duration == 0 {
		return nil, fmt.Errorf("schedule: interval must be positive")
	}

	return cfg, nil
}

// parseDuration parses s, returning def when s is empty. Negative values are rejected.
func parseDuration(section, field, s string, def time.Duration) (Duration, error) {
	if s == "" {
		return Duration{def}, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return Duration{}, fmt.Errorf("%s: invalid %s %q: %w", section, field, s, err)
	}
	if d < 0 {
		return Duration{}, fmt.Errorf("%s: %s must not be negative, got %q", section, field, s)
	}
	return Duration{d}, nil
}

// ApplyInputs overrides attributes with key=value pairs, as given on the command line.
func (c *Config) ApplyInputs(inputs []string) error {
	if c.Attributes == nil {
		c.Attributes = make(map[string]string, len(inputs))
	}
	for _, in := range inputs {
		k, v, ok := strings.Cut(in, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return fmt.Errorf("invalid input %q (want key=value)", in)
		}
		c.Attributes[k] = v
	}
	return nil
}

// AttributeNames returns the configured attribute names, sorted.
func (c *Config) AttributeNames() []string {
	names := make([]string, 0, len(c.Attributes))
	for k := range c.Attributes {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
