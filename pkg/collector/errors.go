package collector

import "errors"

// Registry errors.
var (
	ErrEmptyName     = errors.New("collector name is required")
	ErrDuplicateName = errors.New("collector name already registered")
	ErrNotRegistered = errors.New("collector not registered")
	ErrNilCollector  = errors.New("collector is nil")
)
