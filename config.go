package hijack

import (
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Config tunes an Engine.
type Config struct {
	// RetryBackoff is the pause between DisableAll passes.
	RetryBackoff time.Duration `yaml:"retry_backoff"`

	// MaxRetries caps the number of extra DisableAll passes. Zero retries
	// until every hook is disabled.
	MaxRetries int `yaml:"max_retries"`

	// BarrierTimeout is how long a patch waits to pause the world before
	// failing with ErrPauseTimeout. Zero waits forever.
	BarrierTimeout time.Duration `yaml:"barrier_timeout"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		RetryBackoff:   time.Second,
		MaxRetries:     0,
		BarrierTimeout: 10 * time.Second,
	}
}

// ParseConfig decodes YAML over the defaults.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings that would spin or never start.
func (c Config) Validate() error {
	if c.RetryBackoff <= 0 {
		return errors.Newf("retry_backoff must be positive, got %s", c.RetryBackoff)
	}
	if c.MaxRetries < 0 {
		return errors.Newf("max_retries must not be negative, got %d", c.MaxRetries)
	}
	if c.BarrierTimeout < 0 {
		return errors.Newf("barrier_timeout must not be negative, got %s", c.BarrierTimeout)
	}
	return nil
}
