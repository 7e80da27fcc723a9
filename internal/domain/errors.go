package domain

import "errors"

var (
	ErrOutOfRange         = errors.New("index out of range")
	ErrNotFound           = errors.New("not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrConflict           = errors.New("conflict")
	ErrStaleVersion       = errors.New("stale case version")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrForbidden          = errors.New("forbidden")
	ErrRateLimited        = errors.New("rate limited")
	ErrProofRejected      = errors.New("proof rejected")
	ErrNotAnchored        = errors.New("decision hash not anchored")
)
