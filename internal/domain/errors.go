package domain

import (
	"fmt"
	"time"
)

// InsufficientDataError means fewer projects qualified on a date
// than the portfolio needs. Not retried; the caller has to change
// the universe, the floor or the portfolio size.
type InsufficientDataError struct {
	Date      time.Time
	Required  int
	Available int
	Reason    string
}

func (e InsufficientDataError) Error() string {
	return fmt.Sprintf(
		"not enough projects with %s on %s: need %d, got %d",
		e.Reason,
		e.Date.Format(time.DateOnly),
		e.Required,
		e.Available,
	)
}

type OptimizationFailureReason string

const (
	OptimizationFailureReason_NonConvergence        OptimizationFailureReason = "non-convergence"
	OptimizationFailureReason_NormalizationViolated OptimizationFailureReason = "normalization-violated"
	OptimizationFailureReason_ChangeBoundViolated   OptimizationFailureReason = "change-bound-violated"
	OptimizationFailureReason_WeightBoundViolated   OptimizationFailureReason = "weight-bound-violated"
)

type OptimizationError struct {
	Reason OptimizationFailureReason
	Msg    string
}

func (e OptimizationError) Error() string {
	return fmt.Sprintf("weight calculation failed (%s): %s", e.Reason, e.Msg)
}

// LookupError is returned when a (date, project) pair matches zero
// or several dataset rows.
type LookupError struct {
	Project string
	Date    time.Time
	Matches int
}

func (e LookupError) Error() string {
	if e.Matches == 0 {
		return fmt.Sprintf("no data for %s on %s", e.Project, e.Date.Format(time.DateOnly))
	}
	return fmt.Sprintf("expected 1 row for %s on %s, found %d", e.Project, e.Date.Format(time.DateOnly), e.Matches)
}

type ValidationError struct {
	Field string
	Msg   string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}
