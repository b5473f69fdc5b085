package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// APIConfig is the HTTP API section of config.yaml
type APIConfig struct {
	Port int `yaml:"port"`
}

// MQTTConfig is the MQTT bridge section. An empty broker disables the
// bridge.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         byte   `yaml:"qos"`
}

// InfluxConfig is the telemetry section. An empty URL disables telemetry.
type InfluxConfig struct {
	URL    string `yaml:"url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}

// Config represents the config.yaml structure
type Config struct {
	LogLevel string `yaml:"log_level"`

	// Hierarchy is the feature set fixture served by the in-memory hub.
	// Relative paths are resolved against the config directory.
	Hierarchy string `yaml:"hierarchy"`

	// Echo makes hub writes come back as updates.
	Echo bool `yaml:"echo"`

	HomeKit         bool          `yaml:"homekit"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`

	API    APIConfig    `yaml:"api"`
	MQTT   MQTTConfig   `yaml:"mqtt"`
	Influx InfluxConfig `yaml:"influx"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		Hierarchy: "hierarchy.yaml",
		Echo:      true,
		API:       APIConfig{Port: 8080},
		MQTT: MQTTConfig{
			TopicPrefix: "lightwave",
			QoS:         1,
		},
	}
}

// Validate checks the values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		return fmt.Errorf("invalid api port %d", c.API.Port)
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("invalid mqtt qos %d", c.MQTT.QoS)
	}
	if c.Influx.URL != "" && c.Influx.Bucket == "" {
		return fmt.Errorf("influx bucket is required when influx url is set")
	}
	if c.RefreshInterval < 0 {
		return fmt.Errorf("invalid refresh_interval %s", c.RefreshInterval)
	}
	return nil
}

// Loader reads config.yaml from a directory and applies environment
// overrides on top.
type Loader struct {
	configDir string
	logger    *zap.Logger
	getenv    func(string) string
	config    *Config
}

// NewLoader creates a new configuration loader
func NewLoader(configDir string, logger *zap.Logger) *Loader {
	return &Loader{
		configDir: configDir,
		logger:    logger,
		getenv:    os.Getenv,
	}
}

// Load reads config.yaml when present, applies LW_* environment
// variables and validates the result. A missing file is not an error.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	path := filepath.Join(l.configDir, "config.yaml")
	l.logger.Debug("Loading config", zap.String("path", path))

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case os.IsNotExist(err):
		l.logger.Warn("No config.yaml found, using defaults", zap.String("dir", l.configDir))
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := l.applyEnv(cfg); err != nil {
		return nil, err
	}

	if cfg.Hierarchy != "" && !filepath.IsAbs(cfg.Hierarchy) {
		cfg.Hierarchy = filepath.Join(l.configDir, cfg.Hierarchy)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l.config = cfg
	l.logger.Info("Config loaded",
		zap.String("hierarchy", cfg.Hierarchy),
		zap.Int("api_port", cfg.API.Port),
		zap.Bool("mqtt", cfg.MQTT.Broker != ""),
		zap.Bool("influx", cfg.Influx.URL != ""))
	return cfg, nil
}

// GetConfig returns the last loaded configuration
func (l *Loader) GetConfig() *Config {
	return l.config
}

func (l *Loader) applyEnv(cfg *Config) error {
	str := func(name string, dst *string) {
		if v := l.getenv(name); v != "" {
			*dst = v
		}
	}
	boolean := func(name string, dst *bool) error {
		v := l.getenv(name)
		if v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		*dst = b
		return nil
	}

	str("LW_LOG_LEVEL", &cfg.LogLevel)
	str("LW_HIERARCHY", &cfg.Hierarchy)
	str("LW_MQTT_BROKER", &cfg.MQTT.Broker)
	str("LW_MQTT_CLIENT_ID", &cfg.MQTT.ClientID)
	str("LW_MQTT_USERNAME", &cfg.MQTT.Username)
	str("LW_MQTT_PASSWORD", &cfg.MQTT.Password)
	str("LW_MQTT_TOPIC_PREFIX", &cfg.MQTT.TopicPrefix)
	str("LW_INFLUX_URL", &cfg.Influx.URL)
	str("LW_INFLUX_TOKEN", &cfg.Influx.Token)
	str("LW_INFLUX_ORG", &cfg.Influx.Org)
	str("LW_INFLUX_BUCKET", &cfg.Influx.Bucket)

	if err := boolean("LW_ECHO", &cfg.Echo); err != nil {
		return err
	}
	if err := boolean("LW_HOMEKIT", &cfg.HomeKit); err != nil {
		return err
	}

	if v := l.getenv("LW_API_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid LW_API_PORT: %w", err)
		}
		cfg.API.Port = port
	}
	if v := l.getenv("LW_REFRESH_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid LW_REFRESH_INTERVAL: %w", err)
		}
		cfg.RefreshInterval = d
	}
	return nil
}

// ParseLevel maps log_level onto a zap level.
func ParseLevel(level string) zap.AtomicLevel {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return lvl
}
