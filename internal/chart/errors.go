package chart

import (
	"fmt"

	"github.com/starford/orgboard/internal/apperr"
	"github.com/starford/orgboard/internal/models"
)

// DuplicateRoleError reports a role name that collides case-insensitively
// with one already in the chart.
type DuplicateRoleError struct {
	Name     string
	Existing string
}

func (e *DuplicateRoleError) Error() string {
	if e.Existing != "" && e.Existing != e.Name {
		return fmt.Sprintf("role %q already exists as %q", e.Name, e.Existing)
	}
	return fmt.Sprintf("role %q already exists", e.Name)
}

func (e *DuplicateRoleError) Unwrap() error { return apperr.ErrAlreadyExists }

// UnknownDepartmentError reports a department id missing from the chart.
type UnknownDepartmentError struct {
	DepartmentID string
}

func (e *UnknownDepartmentError) Error() string {
	return fmt.Sprintf("unknown department %q", e.DepartmentID)
}

func (e *UnknownDepartmentError) Unwrap() error { return apperr.ErrNotFound }

// UnknownTargetError reports a move destination that does not exist.
type UnknownTargetError struct {
	DepartmentID string
	LevelID      string
}

func (e *UnknownTargetError) Error() string {
	return fmt.Sprintf("unknown move target %s:%s", e.DepartmentID, e.LevelID)
}

func (e *UnknownTargetError) Unwrap() error { return apperr.ErrNotFound }

// StaleMoveError reports that the role is not at the claimed source slot.
// The caller's view of the chart is out of date.
type StaleMoveError struct {
	Role string
	From models.Location
}

func (e *StaleMoveError) Error() string {
	return fmt.Sprintf("role %q not found at %s[%d]", e.Role, e.From.Key(), e.From.Index)
}

func (e *StaleMoveError) Unwrap() error { return apperr.ErrConflict }

// InvalidChartError reports a chart that breaks a structural invariant.
type InvalidChartError struct {
	Reason string
}

func (e *InvalidChartError) Error() string {
	return "invalid chart: " + e.Reason
}

func (e *InvalidChartError) Unwrap() error { return apperr.ErrInvalid }

// PersistError reports a failed load or save at the gateway boundary.
// It matches both apperr.ErrUnavailable and the underlying cause.
type PersistError struct {
	Op  string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistError) Unwrap() []error { return []error{apperr.ErrUnavailable, e.Err} }
