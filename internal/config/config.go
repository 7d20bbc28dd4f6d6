// Package config loads linkage settings from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/roach88/linkage/internal/async"
	"github.com/roach88/linkage/internal/engine"
)

// Config is the full settings file.
type Config struct {
	Retry   Retry   `yaml:"retry"`
	Engine  Engine  `yaml:"engine"`
	Ledger  Ledger  `yaml:"ledger"`
	Metrics Metrics `yaml:"metrics"`
}

// Retry configures monitor polling.
type Retry struct {
	MaxAttempts  int           `yaml:"max_attempts" validate:"gte=1,lte=1000"`
	InitialDelay time.Duration `yaml:"initial_delay" validate:"gt=0"`
	Multiplier   float64       `yaml:"multiplier" validate:"gte=1"`
	MaxDelay     time.Duration `yaml:"max_delay" validate:"gtefield=InitialDelay"`
}

// Engine configures scenario execution.
type Engine struct {
	MaxRuns int `yaml:"max_runs" validate:"gte=1,lte=10000"`
}

// Ledger selects the exhaustion ledger. An empty Path keeps it in memory.
type Ledger struct {
	Path string `yaml:"path"`
}

// Metrics toggles Prometheus collection.
type Metrics struct {
	Enabled bool `yaml:"enabled"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Default returns the settings used when no file is given.
func Default() Config {
	p := async.DefaultRetryPolicy()
	return Config{
		Retry: Retry{
			MaxAttempts:  p.MaxAttempts,
			InitialDelay: p.InitialDelay,
			Multiplier:   p.Multiplier,
			MaxDelay:     p.MaxDelay,
		},
		Engine: Engine{MaxRuns: engine.DefaultMaxRuns},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every field constraint and reports all violations.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	errs := make([]error, len(verrs))
	for i, fe := range verrs {
		errs[i] = fmt.Errorf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
	}
	return fmt.Errorf("invalid config: %w", errors.Join(errs...))
}

// RetryPolicy converts the retry settings.
func (c Config) RetryPolicy() async.RetryPolicy {
	return async.RetryPolicy{
		MaxAttempts:  c.Retry.MaxAttempts,
		InitialDelay: c.Retry.InitialDelay,
		Multiplier:   c.Retry.Multiplier,
		MaxDelay:     c.Retry.MaxDelay,
	}
}
