package model

import (
	"errors"
	"fmt"

	"github.com/limaJavier/intopt/pkg/mip"
)

var (
	ErrSolverInfeasible       = errors.New("no assignment satisfies all constraints")
	ErrSolverUnbounded        = errors.New("objective can be improved without limit")
	ErrSolverTimeoutOrUnknown = errors.New("solver stopped without a definitive verdict")
)

// InvalidInputError reports malformed input detected before any model is built
type InvalidInputError struct {
	Reason string
}

func (err *InvalidInputError) Error() string {
	return "invalid input: " + err.Reason
}

func invalidInput(format string, args ...any) error {
	return &InvalidInputError{Reason: fmt.Sprintf(format, args...)}
}

// InfeasibleByConstructionError reports a site that no candidate station can cover, so the model is never submitted
type InfeasibleByConstructionError struct {
	Site      int
	Threshold float64
}

func (err *InfeasibleByConstructionError) Error() string {
	return fmt.Sprintf("model is infeasible by construction: no site lies within %v of city %d", err.Threshold, err.Site+1)
}

// StatusError surfaces a non-optimal solver verdict
type StatusError struct {
	Status mip.Status
}

func (err *StatusError) Error() string {
	return fmt.Sprintf("solution status %v: %v", err.Status, err.Unwrap())
}

func (err *StatusError) Unwrap() error {
	switch err.Status {
	case mip.Infeasible:
		return ErrSolverInfeasible
	case mip.Unbounded:
		return ErrSolverUnbounded
	}
	return ErrSolverTimeoutOrUnknown
}
