package state

import "errors"

var (
	ErrNotObject       = errors.New("snapshot is not a JSON object")
	ErrNotSerializable = errors.New("snapshot is not JSON serializable")
)
