// Package database defines the decision record store port (interface).
package database

import (
	"context"

	"github.com/Strob0t/SecondGuess/internal/domain/decision"
)

// Store is the port interface for the append-only version store. Records
// are keyed by (decision_id, version); implementations must enforce that
// pair's uniqueness and serialize version assignment per identity.
type Store interface {
	// AppendRecord assigns the next version number for rec.DecisionID and
	// writes the record atomically, setting rec.Version. It returns
	// domain.ErrDecisionMismatch when rec.Decision differs from the
	// lineage's existing statement, and domain.ErrConflict when a
	// concurrent writer won the race for the version number.
	AppendRecord(ctx context.Context, rec *decision.Record) error

	// GetRecord returns one version of a lineage, or domain.ErrNotFound.
	GetRecord(ctx context.Context, decisionID string, version int) (*decision.Record, error)

	// GetLatest returns the highest version of a lineage, or domain.ErrNotFound.
	GetLatest(ctx context.Context, decisionID string) (*decision.Record, error)

	// ListVersions returns summaries for all versions of a lineage ordered
	// by version ascending, or domain.ErrNotFound for an unknown identity.
	ListVersions(ctx context.Context, decisionID string) ([]decision.VersionSummary, error)

	// NextVersion returns 1 + the highest existing version for the
	// identity, or 1 when none exist.
	NextVersion(ctx context.Context, decisionID string) (int, error)
}
