package utils

import (
	"github.com/pkg/errors"
)

var (
	ErrInvalidKey  = errors.New("key not supported by pithosds")
	ErrNoContainer = errors.New("datastore container is not set")
	ErrNilConfig   = errors.New("nil datastore config")
)
