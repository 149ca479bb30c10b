package engine

import "errors"

var (
	ErrInvalidConfig  = errors.New("invalid engine configuration")
	ErrAlreadyStarted = errors.New("engine is already started")
	ErrNotStarted     = errors.New("engine is not started")
	ErrShutdown       = errors.New("engine is shut down")
)
