package deployments

import "errors"

var (
	// ErrNotFound means the referenced deployment does not exist.
	ErrNotFound = errors.New("deployment not found")

	// ErrValidation means the request was malformed and was rejected
	// before any lock or persistence side effect.
	ErrValidation = errors.New("validation failed")

	// ErrConflict means the (spec, environment) target already has an
	// active deployment holding the exclusivity lock.
	ErrConflict = errors.New("target has an active deployment")

	// ErrInvalidState means the operation is incompatible with the
	// deployment's current state, e.g. rolling back a running deployment.
	ErrInvalidState = errors.New("invalid deployment state")
)
