package models

import "errors"

// Domain errors shared by the stores and the workflow service. Handlers map
// these onto HTTP statuses; anything else is an internal error.
var (
	ErrNotFound         = errors.New("resource not found")
	ErrUnauthorized     = errors.New("actor is not allowed to act on this resource")
	ErrConflict         = errors.New("a pending application already exists")
	ErrCapacityExceeded = errors.New("property has no available units")
	ErrAlreadyFinalized = errors.New("application is no longer pending")
	ErrValidation       = errors.New("invalid input")
)
