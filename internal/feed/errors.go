package feed

import "errors"

var (
	ErrHubClosed      = errors.New("feed hub is closed")
	ErrAlreadyRunning = errors.New("feed server is already running")
	ErrNotRunning     = errors.New("feed server is not running")
)
