// Package config loads guestbook runtime settings from YAML and the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/qiangxue/go-env"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. GUESTBOOK_GEO_PROVIDER.
const EnvPrefix = "GUESTBOOK_"

// Geolocation providers.
const (
	ProviderHTTP     = "http"
	ProviderEmbedded = "embedded"
	ProviderMaxMind  = "maxmind"
)

const (
	defaultGeoEndpoint    = "https://freegeoip.app/json"
	defaultGeoTimeout     = "5s"
	defaultGeoConcurrency = 4
)

// Config holds runtime configuration for the guestbook command.
type Config struct {
	LogPath        string `yaml:"log_path" env:"LOG_PATH"`
	GeoProvider    string `yaml:"geo_provider" env:"GEO_PROVIDER"`
	GeoEndpoint    string `yaml:"geo_endpoint" env:"GEO_ENDPOINT"`
	GeoDatabase    string `yaml:"geo_database" env:"GEO_DATABASE"`
	GeoTimeout     string `yaml:"geo_timeout" env:"GEO_TIMEOUT"`
	GeoConcurrency int    `yaml:"geo_concurrency" env:"GEO_CONCURRENCY"`
	Cutoff         int    `yaml:"cutoff" env:"CUTOFF"`
	Color          bool   `yaml:"color" env:"COLOR"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		GeoProvider:    ProviderHTTP,
		GeoEndpoint:    defaultGeoEndpoint,
		GeoTimeout:     defaultGeoTimeout,
		GeoConcurrency: defaultGeoConcurrency,
		Color:          true,
	}
}

// Load returns a configuration populated from the optional YAML file and
// then from environment variables prefixed with EnvPrefix.
// logf receives one line per applied environment variable; it may be nil.
// The result is not validated so callers can apply their own overrides
// first; call Validate before use.
func Load(file string, logf func(format string, args ...interface{})) (Config, error) {
	c := Default()

	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return c, fmt.Errorf("read config %s: %w", file, err)
		}
		if err := yaml.Unmarshal(data, &c); err != nil {
			return c, fmt.Errorf("parse config %s: %w", file, err)
		}
	}

	if logf == nil {
		logf = func(string, ...interface{}) {}
	}
	if err := env.New(EnvPrefix, logf).Load(&c); err != nil {
		return c, fmt.Errorf("load environment: %w", err)
	}

	return c, nil
}

// Timeout returns the parsed per-lookup timeout.
func (c Config) Timeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.GeoTimeout)
	if err != nil {
		return 0, fmt.Errorf("parse geo_timeout: %w", err)
	}
	return d, nil
}

// Validate checks the values that cannot be defaulted silently.
func (c Config) Validate() error {
	switch c.GeoProvider {
	case ProviderHTTP, ProviderEmbedded, ProviderMaxMind:
	default:
		return fmt.Errorf("unknown geo_provider %q", c.GeoProvider)
	}
	if c.GeoProvider == ProviderMaxMind && c.GeoDatabase == "" {
		return fmt.Errorf("geo_provider %q requires geo_database", ProviderMaxMind)
	}
	d, err := c.Timeout()
	if err != nil {
		return err
	}
	if d <= 0 {
		return fmt.Errorf("geo_timeout must be positive, got %s", c.GeoTimeout)
	}
	if c.GeoConcurrency < 1 {
		return fmt.Errorf("geo_concurrency must be at least 1, got %d", c.GeoConcurrency)
	}
	if c.Cutoff < 0 {
		return fmt.Errorf("cutoff must not be negative, got %d", c.Cutoff)
	}
	return nil
}
