package planner

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError reports a malformed or incomplete preference. It is
// raised before any background work starts.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid preference: %s %s", e.Field, e.Message)
}

// GenerativeServiceError reports that the external text service was
// unreachable, returned malformed output, or timed out.
type GenerativeServiceError struct {
	Op  string
	Err error
}

func (e *GenerativeServiceError) Error() string {
	return fmt.Sprintf("generative service: %s: %v", e.Op, e.Err)
}

func (e *GenerativeServiceError) Unwrap() error {
	return e.Err
}

// SolverInfeasibleError reports that no assignment satisfies the hard
// constraints even after full relaxation. MealTypes names the slots that
// blocked the solve so the caller can hint at the remedy.
type SolverInfeasibleError struct {
	MealTypes []string
}

func (e *SolverInfeasibleError) Error() string {
	if len(e.MealTypes) == 0 {
		return "solver infeasible"
	}
	return fmt.Sprintf("solver infeasible: not enough eligible recipes for %s", strings.Join(e.MealTypes, ", "))
}

// SolverTimeoutError reports that the time budget was exhausted without a
// result. The constraints may still be satisfiable.
type SolverTimeoutError struct {
	Budget time.Duration
}

func (e *SolverTimeoutError) Error() string {
	return fmt.Sprintf("solver timed out after %s", e.Budget)
}

// PersistenceError reports a failure to write a produced result.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
