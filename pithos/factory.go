package pithos

import (
	"github.com/glin-gogogo/go-pithos/utils"
)

// New builds a Client with the default transport from functional options.
func New(opts ...utils.WithOption) (*Client, error) {
	cfg, err := utils.NewConfig(opts...)
	if err != nil {
		return nil, &Error{Kind: KindInvalidArgument, Message: "invalid option", Cause: err}
	}
	return NewFromConfig(cfg)
}

// NewFromConfig builds a Client with the default transport from a loaded
// configuration.
func NewFromConfig(cfg *utils.Config) (*Client, error) {
	if cfg == nil {
		return nil, invalidArgument("nil config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, &Error{Kind: KindInvalidArgument, Message: "invalid config", Cause: err}
	}

	conn, err := NewConnectionInfo(cfg.BaseURL, cfg.UserID, cfg.UserToken)
	if err != nil {
		return nil, err
	}
	return NewClient(conn, NewTransport(cfg))
}
