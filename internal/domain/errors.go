// Package domain provides shared domain-level sentinel errors.
package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the requested decision or version does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a concurrent re-evaluation raced for the same version number.
var ErrConflict = errors.New("conflict: version was assigned by another request")

// ErrValidation indicates a report or request failed structural validation.
var ErrValidation = errors.New("validation failed")

// ErrDecisionMismatch indicates a re-evaluation supplied a decision statement
// that differs from the lineage's original statement.
var ErrDecisionMismatch = errors.New("decision statement does not match original")

// StageError reports that a pipeline stage failed or returned a structurally
// invalid report. The run is aborted and nothing is persisted.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
