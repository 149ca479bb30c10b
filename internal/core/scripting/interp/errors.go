package interp

import "errors"

var (
	ErrCompile           = errors.New("script does not compile")
	ErrInstall           = errors.New("script failed to install")
	ErrUndefinedFunction = errors.New("behaviour function is not defined")
	ErrEvaluation        = errors.New("evaluation failed")
	ErrMalformedResult   = errors.New("result is not a snapshot")
	ErrInvalidStatement  = errors.New("invalid statement")
)
