package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"plantdoc-server-go/internal/platform/errors"
)

const (
	defaultConfigFile = "config.yaml"

	envConfigPath = "PLANTDOC_CONFIG"
	envPort       = "PLANTDOC_PORT"
	envForceTier  = "PLANTDOC_FORCE_TIER"
	envRedisAddr  = "PLANTDOC_REDIS_ADDR"
)

// Loader reads configuration from a yaml file layered over defaults,
// with a final pass of environment overrides.
type Loader struct {
	useDotEnv bool
	path      string
}

func NewLoader() *Loader {
	return &Loader{useDotEnv: true}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPath overrides the config file location (useful for tests).
func (l *Loader) WithPath(path string) *Loader {
	if path != "" {
		l.path = path
	}
	return l
}

// Result captures the loaded configuration and its origin path.
type Result struct {
	Config *Config
	Path   string
}

// Load builds the effective configuration. A missing config file is not
// an error; the defaults are used as-is.
func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		// A missing .env file is fine, system environment still applies.
		_ = godotenv.Load()
	}

	path := l.path
	if path == "" {
		path = os.Getenv(envConfigPath)
	}
	if path == "" {
		path = defaultConfigFile
	}

	cfg := DefaultConfig()

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, errors.Wrap(errors.KindConfig, "config.load", "parse config file", err)
		}
	case os.IsNotExist(err):
		path = ""
	default:
		return nil, errors.Wrap(errors.KindConfig, "config.load", "read config file", err)
	}

	applyEnvOverrides(cfg)

	return &Result{
		Config: cfg,
		Path:   path,
	}, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(envPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv(envForceTier); v != "" {
		cfg.Prediction.ForceTier = v
	}
	if v := os.Getenv(envRedisAddr); v != "" {
		if cfg.Cache.Redis == nil {
			cfg.Cache.Redis = &RedisCacheConfig{}
		}
		cfg.Cache.Redis.Addr = v
	}
}
