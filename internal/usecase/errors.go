package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrInvalidData           = errors.New("invalid player data")
	ErrNotFound              = errors.New("resource not found")
	ErrInfeasible            = errors.New("no feasible squad")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
