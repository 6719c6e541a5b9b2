package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/smartlock/internal/logger"
)

// Config holds settings shared by the lock daemon and its CLI.
type Config struct {
	// ServerAddress is the LockLink gRPC address the daemon listens on and
	// the CLI dials.
	ServerAddress string `yaml:"server_addr"`
	// Timeout is the duration for network operations and RPC calls.
	Timeout time.Duration `yaml:"timeout"`
	// LogLevel is the initial logging level; empty keeps the built-in level.
	LogLevel string `yaml:"log_level,omitempty"`
	// LogFormat is "console" or "json"; empty means console.
	LogFormat string `yaml:"log_format,omitempty"`
	// Lock tunes the lock core timings.
	Lock LockSettings `yaml:"lock"`
	// Hardware selects the driver behind the relay, beeper and sensor.
	Hardware HardwareSettings `yaml:"hardware"`
	// Intake bounds the frame rate across all transports.
	Intake IntakeSettings `yaml:"intake"`
	// NATS configures the optional NATS bridge.
	NATS NATSSettings `yaml:"nats"`
	// Metrics configures the optional Prometheus endpoint.
	Metrics MetricsSettings `yaml:"metrics"`
}

// LockSettings holds lock core timings.
type LockSettings struct {
	// PollInterval is the period of the lock confirmation supervisor.
	PollInterval time.Duration `yaml:"poll_interval"`
	// SettleDelay is the wait before each sensor sample.
	SettleDelay time.Duration `yaml:"settle_delay"`
	// BeepDuration is the beeper on-time of a success pattern.
	BeepDuration time.Duration `yaml:"beep_duration"`
	// AlarmThreshold is the number of failed confirmations before the alarm latches.
	AlarmThreshold int `yaml:"alarm_threshold"`
}

// HardwareSettings selects the hardware driver.
type HardwareSettings struct {
	// Driver names the driver; only DriverSimulator is built in.
	Driver string `yaml:"driver"`
	// StartUnlocked starts the simulated bolt open.
	StartUnlocked bool `yaml:"start_unlocked,omitempty"`
}

// IntakeSettings bounds inbound frames.
type IntakeSettings struct {
	// RateLimit is the average frames per second; negative disables limiting.
	RateLimit float64 `yaml:"rate_limit"`
	// Burst is the number of frames allowed at once.
	Burst int `yaml:"burst"`
}

// NATSSettings configures the NATS bridge.
type NATSSettings struct {
	// URL is the NATS server URL; empty disables the bridge.
	URL string `yaml:"url,omitempty"`
	// Subject is the subject prefix for frames and results.
	Subject string `yaml:"subject,omitempty"`
}

// MetricsSettings configures the Prometheus endpoint.
type MetricsSettings struct {
	// Address is the HTTP listen address; empty disables the endpoint.
	Address string `yaml:"address,omitempty"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "smartlock-settings.yaml"

	// DefaultServerAddress is the LockLink address used by Default.
	DefaultServerAddress = "127.0.0.1:7447"

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second

	// DefaultPollInterval is the default supervisor period.
	DefaultPollInterval = time.Second

	// DefaultSettleDelay is the default wait before a sensor sample.
	DefaultSettleDelay = 50 * time.Millisecond

	// DefaultBeepDuration is the default success beep length.
	DefaultBeepDuration = 200 * time.Millisecond

	// DefaultAlarmThreshold is the default alarm threshold.
	DefaultAlarmThreshold = 20

	// DefaultRateLimit is the default frame rate per second.
	DefaultRateLimit = 20

	// DefaultBurst is the default frame burst.
	DefaultBurst = 10

	// DefaultSubject is the default NATS subject prefix.
	DefaultSubject = "smartlock"

	// DriverSimulator is the in-memory bolt used for development and tests.
	DriverSimulator = "simulator"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errServerSocketRequired is returned when server address is missing.
	errServerSocketRequired = errors.New("server address must be provided")
	// errUnknownDriver is returned for an unsupported hardware driver.
	errUnknownDriver = errors.New("unknown hardware driver")
	// errUnknownLogFormat is returned for an unsupported log format.
	errUnknownLogFormat = errors.New("unknown log format")
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{
		ServerAddress: DefaultServerAddress,
	}

	applyDefaults(cfg)

	return cfg
}

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes Settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and formatting,
// filling in defaults for zero values.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.ServerAddress == "" {
		return errServerSocketRequired
	}

	if _, err := net.ResolveTCPAddr("tcp", settings.ServerAddress); err != nil {
		return fmt.Errorf("invalid server socket: %w", err)
	}

	applyDefaults(settings)

	if settings.Hardware.Driver != DriverSimulator {
		return fmt.Errorf("%w: %q", errUnknownDriver, settings.Hardware.Driver)
	}

	if _, ok := logger.ParseFormat(settings.LogFormat); !ok {
		return fmt.Errorf("%w: %q", errUnknownLogFormat, settings.LogFormat)
	}

	if settings.Metrics.Address != "" {
		if _, err := net.ResolveTCPAddr("tcp", settings.Metrics.Address); err != nil {
			return fmt.Errorf("invalid metrics address: %w", err)
		}
	}

	if settings.NATS.URL == "" {
		return nil
	}

	if _, err := url.ParseRequestURI(settings.NATS.URL); err != nil {
		return fmt.Errorf("invalid nats url: %w", err)
	}

	return nil
}

// applyDefaults fills zero values.
func applyDefaults(settings *Config) {
	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	lock := &settings.Lock

	if lock.PollInterval <= 0 {
		lock.PollInterval = DefaultPollInterval
	}

	if lock.SettleDelay <= 0 {
		lock.SettleDelay = DefaultSettleDelay
	}

	if lock.BeepDuration <= 0 {
		lock.BeepDuration = DefaultBeepDuration
	}

	if lock.AlarmThreshold <= 0 {
		lock.AlarmThreshold = DefaultAlarmThreshold
	}

	if settings.Hardware.Driver == "" {
		settings.Hardware.Driver = DriverSimulator
	}

	if settings.Intake.RateLimit == 0 {
		settings.Intake.RateLimit = DefaultRateLimit
	}

	if settings.Intake.Burst <= 0 {
		settings.Intake.Burst = DefaultBurst
	}

	if settings.NATS.Subject == "" {
		settings.NATS.Subject = DefaultSubject
	}
}
