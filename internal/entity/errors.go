package entity

import "errors"

var (
	ErrBadVector   = errors.New("value is not a 2D vector")
	ErrDuplicateID = errors.New("entity id already in use")
)
