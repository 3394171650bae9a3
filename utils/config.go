package utils

import (
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

var errInvalidTimeout = errors.New("timeout must not be negative")

func DefaultConfig() *Config {
	return &Config{
		MaxConnections:  DefaultMaxConnections,
		FollowRedirects: true,
		MaxRedirects:    DefaultMaxRedirects,
		Compression:     true,
		UserAgent:       DefaultUserAgent,
		Container:       DefaultContainer,
		RootDirectory:   DefaultRootDirectory,
		Workers:         MaxBatchWorkers,
	}
}

// NewConfig starts from DefaultConfig and applies opts in order.
func NewConfig(opts ...WithOption) (*Config, error) {
	cfg := DefaultConfig()
	for _, o := range opts {
		if err := o(cfg); err != nil {
			return nil, err
		}
	}
	cfg.ApplyDefaults()
	cfg.Normalize()
	return cfg, nil
}

// LoadConfig reads a TOML file. A missing file is not an error and yields
// the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.Wrapf(err, "stat config %s", path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, errors.Wrapf(err, "decode config %s", path)
	}

	cfg.ApplyDefaults()
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) ApplyDefaults() {
	if c.MaxConnections <= 0 {
		c.MaxConnections = DefaultMaxConnections
	}
	if c.MaxRedirects <= 0 {
		c.MaxRedirects = DefaultMaxRedirects
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.Container == "" {
		c.Container = DefaultContainer
	}
	if c.RootDirectory == "" {
		c.RootDirectory = DefaultRootDirectory
	}
	if c.Workers <= 0 {
		c.Workers = MaxBatchWorkers
	}
}

func (c *Config) Normalize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	c.RootDirectory = strings.Trim(c.RootDirectory, "/")
}

func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return errInvalidTimeout
	}
	if c.BaseURL != "" && !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return errors.Errorf("base_url must be an http or https URL: %q", c.BaseURL)
	}
	return nil
}
