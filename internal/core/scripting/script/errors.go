package script

import "errors"

var (
	ErrEmptyName      = errors.New("script name is empty")
	ErrScriptNotFound = errors.New("script not found on search path")
	ErrUnreadable     = errors.New("script source is unreadable")
	ErrNotUTF8        = errors.New("script source is not valid UTF-8")
)
