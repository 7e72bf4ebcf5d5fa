package observability

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all observability settings.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig configures structured log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig configures the OTLP trace exporter.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	SampleRate  float64 `yaml:"sample_rate"`
	ServiceName string  `yaml:"service_name"`
}

type configFile struct {
	Observability Config `yaml:"observability"`
}

// DefaultConfig returns the settings used when no config file is present:
// info-level JSON logs, metrics scraping on 9090, tracing off.
func DefaultConfig() Config {
	return Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled:        true,
			PrometheusPort: 9090,
		},
		Tracing: TracingConfig{
			Enabled:     false,
			SampleRate:  1.0,
			ServiceName: "hq",
		},
	}
}

// LoadConfig reads an observability YAML file, overlaying it on defaults.
// A missing file is not an error; the defaults are returned.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()

	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return config, fmt.Errorf("read observability config: %w", err)
	}

	var file configFile
	file.Observability = config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return config, fmt.Errorf("parse observability config: %w", err)
	}

	return file.Observability, nil
}
