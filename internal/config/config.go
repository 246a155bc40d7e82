package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dokzlo13/buildlight/internal/status"
)

var (
	// ErrMissingJenkins is returned when no Jenkins server is configured
	ErrMissingJenkins = errors.New("no configuration for Jenkins CI server found")
	// ErrMissingHue is returned when no Hue bridge is configured
	ErrMissingHue = errors.New("no configuration for Hue bridge found")
)

// Config represents the application configuration
type Config struct {
	Jenkins         JenkinsConfig               `yaml:"jenkins"`
	Hue             HueConfig                   `yaml:"hue"`
	HueLightStates  map[string]LightStateConfig `yaml:"hue_light_states"` // Overrides keyed by light state name
	Watch           WatchConfig                 `yaml:"watch"`
	Webhook         WebhookConfig               `yaml:"webhook"`
	Database        DatabaseConfig              `yaml:"database"`
	Ledger          LedgerConfig                `yaml:"ledger"`
	Log             LogConfig                   `yaml:"log"`
	Healthcheck     HealthcheckConfig           `yaml:"healthcheck"`
	EventBus        EventBusConfig              `yaml:"eventbus"`
	ShutdownTimeout Duration                    `yaml:"shutdown_timeout"` // General shutdown timeout for graceful stops
}

// JenkinsConfig contains Jenkins connection settings
type JenkinsConfig struct {
	Host      string   `yaml:"host"`
	StrictSSL *bool    `yaml:"strict_ssl"` // nil = verify certificates
	User      string   `yaml:"user"`
	Token     string   `yaml:"token"`
	View      string   `yaml:"view"` // View aggregated for view bindings (empty = all jobs)
	Timeout   Duration `yaml:"timeout"`
}

// IsStrictSSL returns whether TLS certificates are verified (default: true)
func (c *JenkinsConfig) IsStrictSSL() bool {
	return c.StrictSSL == nil || *c.StrictSSL
}

// HueConfig contains Hue bridge connection settings
type HueConfig struct {
	Host         string  `yaml:"host"`
	Username     string  `yaml:"username"`
	RateLimitRPS float64 `yaml:"rate_limit_rps"` // Bridge requests per second (default: 10)
}

// LightStateConfig overrides the Hue encoding of a light state
type LightStateConfig struct {
	On  *bool  `yaml:"on"` // nil = on
	Hue uint16 `yaml:"hue"`
	Bri uint8  `yaml:"bri"`
	Sat uint8  `yaml:"sat"`
	Ct  uint16 `yaml:"ct"` // white at this color temperature; overrides hue and sat
}

// Encoding converts the override to a device encoding
func (c LightStateConfig) Encoding() status.Encoding {
	on := c.On == nil || *c.On
	return status.Encoding{On: on, Hue: c.Hue, Bri: c.Bri, Sat: c.Sat, Ct: c.Ct}
}

// WatchConfig contains the polling settings and light bindings
type WatchConfig struct {
	Interval Duration  `yaml:"interval"`
	Bindings []Binding `yaml:"bindings"`
}

// Binding ties a light to a job or to the configured view
type Binding struct {
	Light string `yaml:"light"`
	Job   string `yaml:"job"`
	View  bool   `yaml:"view"`
}

// WebhookConfig contains the Jenkins notification receiver settings
type WebhookConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	Debounce Duration `yaml:"debounce"` // Window for coalescing notifications (default: 2s)
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LedgerConfig contains push ledger settings
type LedgerConfig struct {
	Enabled         bool     `yaml:"enabled"`
	RetentionPeriod Duration `yaml:"retention_period"`
	CleanupInterval Duration `yaml:"cleanup_interval"`
}

// IsEnabled returns whether the ledger is enabled
func (c *LedgerConfig) IsEnabled() bool {
	return c.Enabled
}

// LogConfig contains logging settings
type LogConfig struct {
	Level   string `yaml:"level"`
	Colors  bool   `yaml:"colors"`
	UseJSON bool   `yaml:"json"`
}

// GetLevel returns the log level with default
func (c *LogConfig) GetLevel() string {
	if c.Level == "" {
		return "info"
	}
	return strings.ToLower(c.Level)
}

// HealthcheckConfig contains health check server settings
type HealthcheckConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// GetHost returns host with default
func (c *HealthcheckConfig) GetHost() string {
	if c.Host == "" {
		return "0.0.0.0"
	}
	return c.Host
}

// GetPort returns port with default
func (c *HealthcheckConfig) GetPort() int {
	if c.Port == 0 {
		return 9090
	}
	return c.Port
}

// EventBusConfig contains event bus settings
type EventBusConfig struct {
	Workers   int `yaml:"workers"`    // Number of worker goroutines (default: 4)
	QueueSize int `yaml:"queue_size"` // Event queue size (default: 100)
}

// GetWorkers returns worker count with default
func (c *EventBusConfig) GetWorkers() int {
	if c.Workers <= 0 {
		return 4
	}
	return c.Workers
}

// GetQueueSize returns queue size with default
func (c *EventBusConfig) GetQueueSize() int {
	if c.QueueSize <= 0 {
		return 100
	}
	return c.QueueSize
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// GetShutdownTimeout returns the shutdown timeout
func (c *Config) GetShutdownTimeout() time.Duration {
	return c.ShutdownTimeout.Duration()
}

// Palette returns the default light encodings with the configured overrides applied
func (c *Config) Palette() status.Palette {
	overrides := make(map[string]status.Encoding, len(c.HueLightStates))
	for name, sc := range c.HueLightStates {
		overrides[name] = sc.Encoding()
	}
	return status.DefaultPalette().WithOverrides(overrides)
}

// Validate checks that both collaborators are configured
func (c *Config) Validate() error {
	if c.Jenkins.Host == "" {
		return ErrMissingJenkins
	}
	if c.Hue.Host == "" {
		return ErrMissingHue
	}
	for i, b := range c.Watch.Bindings {
		if b.Light == "" {
			return fmt.Errorf("watch binding %d: light is required", i)
		}
		if (b.Job == "") == !b.View {
			return fmt.Errorf("watch binding %d: exactly one of job or view is required", i)
		}
	}
	return nil
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse parses configuration from YAML, applies defaults and validates it
func Parse(data []byte) (*Config, error) {
	// Expand environment variables
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./buildlight.sqlite"
	}

	// Jenkins defaults
	if cfg.Jenkins.Timeout == 0 {
		cfg.Jenkins.Timeout = Duration(30 * time.Second)
	}

	// Hue defaults
	if cfg.Hue.RateLimitRPS == 0 {
		cfg.Hue.RateLimitRPS = 10.0 // 10 requests per second
	}

	// Watch defaults
	if cfg.Watch.Interval == 0 {
		cfg.Watch.Interval = Duration(30 * time.Second)
	}

	// Webhook defaults
	if cfg.Webhook.Host == "" {
		cfg.Webhook.Host = "0.0.0.0"
	}
	if cfg.Webhook.Port == 0 {
		cfg.Webhook.Port = 8080
	}
	if cfg.Webhook.Debounce == 0 {
		cfg.Webhook.Debounce = Duration(2 * time.Second)
	}

	// Ledger defaults
	if cfg.Ledger.CleanupInterval == 0 {
		cfg.Ledger.CleanupInterval = Duration(24 * time.Hour)
	}
	if cfg.Ledger.RetentionPeriod == 0 {
		cfg.Ledger.RetentionPeriod = Duration(30 * 24 * time.Hour)
	}

	// Healthcheck defaults
	if cfg.Healthcheck.Port == 0 {
		cfg.Healthcheck.Port = 9090
	}
	if cfg.Healthcheck.Host == "" {
		cfg.Healthcheck.Host = "0.0.0.0"
	}

	// General shutdown timeout
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = Duration(5 * time.Second)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	// Match ${VAR} or ${VAR:default}
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
