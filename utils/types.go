package utils

import (
	"time"
)

const (
	Extension = ".data"
)

type Config struct {
	BaseURL         string        `toml:"base_url"`
	UserID          string        `toml:"user_id"`
	UserToken       string        `toml:"user_token"`
	MaxConnections  int           `toml:"max_connections"`
	Timeout         time.Duration `toml:"timeout"`
	FollowRedirects bool          `toml:"follow_redirects"`
	MaxRedirects    int           `toml:"max_redirects"`
	Compression     bool          `toml:"compression"`
	UserAgent       string        `toml:"user_agent"`
	Debug           bool          `toml:"debug"`

	// Datastore adapter settings.
	Container     string `toml:"container"`
	RootDirectory string `toml:"root_directory"`
	Workers       int    `toml:"workers"`
}

type WithOption func(options *Config) error

func WithBaseURL(baseURL string) WithOption {
	return func(options *Config) error {
		options.BaseURL = baseURL
		return nil
	}
}

func WithUserID(userID string) WithOption {
	return func(options *Config) error {
		options.UserID = userID
		return nil
	}
}

func WithUserToken(userToken string) WithOption {
	return func(options *Config) error {
		options.UserToken = userToken
		return nil
	}
}

func WithMaxConnections(n int) WithOption {
	return func(options *Config) error {
		options.MaxConnections = n

		if options.MaxConnections <= 0 {
			options.MaxConnections = DefaultMaxConnections
		}
		return nil
	}
}

func WithTimeout(timeout time.Duration) WithOption {
	return func(options *Config) error {
		if timeout < 0 {
			return errInvalidTimeout
		}
		options.Timeout = timeout
		return nil
	}
}

func WithFollowRedirects(follow bool) WithOption {
	return func(options *Config) error {
		options.FollowRedirects = follow
		return nil
	}
}

func WithCompression(enabled bool) WithOption {
	return func(options *Config) error {
		options.Compression = enabled
		return nil
	}
}

func WithUserAgent(userAgent string) WithOption {
	return func(options *Config) error {
		options.UserAgent = userAgent

		if options.UserAgent == "" {
			options.UserAgent = DefaultUserAgent
		}
		return nil
	}
}

func WithDebug(debug bool) WithOption {
	return func(options *Config) error {
		options.Debug = debug
		return nil
	}
}

func WithContainer(container string) WithOption {
	return func(options *Config) error {
		options.Container = container

		if options.Container == "" {
			options.Container = DefaultContainer
		}
		return nil
	}
}

func WithRootDirectory(rootDirectory string) WithOption {
	return func(options *Config) error {
		options.RootDirectory = rootDirectory

		if options.RootDirectory == "" {
			options.RootDirectory = DefaultRootDirectory
		}
		return nil
	}
}

func WithWorkers(workers int) WithOption {
	return func(options *Config) error {
		options.Workers = workers

		if options.Workers <= 0 {
			options.Workers = MaxBatchWorkers
		}
		return nil
	}
}
