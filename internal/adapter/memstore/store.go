// Package memstore provides an in-memory implementation of the decision
// store port. It backs tests and local development where Postgres is not
// available; semantics match the Postgres adapter.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Strob0t/SecondGuess/internal/domain"
	"github.com/Strob0t/SecondGuess/internal/domain/decision"
)

// Store holds records in a map keyed by decision ID. Safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	lineages map[string][]*decision.Record
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{lineages: make(map[string][]*decision.Record)}
}

// AppendRecord assigns the next version and writes the record. The mutex
// serializes version assignment, which in the Postgres adapter falls to row
// locking and the uniqueness constraint.
func (s *Store) AppendRecord(_ context.Context, rec *decision.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lineage := s.lineages[rec.DecisionID]
	if len(lineage) > 0 && lineage[0].Decision != rec.Decision {
		return fmt.Errorf("%w: decision text differs from version 1", domain.ErrDecisionMismatch)
	}

	next := 1
	for _, r := range lineage {
		if r.Version >= next {
			next = r.Version + 1
		}
	}
	rec.Version = next

	stored, err := clone(rec)
	if err != nil {
		return fmt.Errorf("clone record: %w", err)
	}
	s.lineages[rec.DecisionID] = append(lineage, stored)
	return nil
}

// GetRecord returns one version of a lineage.
func (s *Store) GetRecord(_ context.Context, decisionID string, version int) (*decision.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.lineages[decisionID] {
		if r.Version == version {
			return clone(r)
		}
	}
	return nil, fmt.Errorf("%w: %s v%d", domain.ErrNotFound, decisionID, version)
}

// GetLatest returns the highest version of a lineage.
func (s *Store) GetLatest(_ context.Context, decisionID string) (*decision.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lineage := s.lineages[decisionID]
	if len(lineage) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, decisionID)
	}

	latest := lineage[0]
	for _, r := range lineage[1:] {
		if r.Version > latest.Version {
			latest = r
		}
	}
	return clone(latest)
}

// ListVersions returns summaries ordered by version ascending.
func (s *Store) ListVersions(_ context.Context, decisionID string) ([]decision.VersionSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lineage := s.lineages[decisionID]
	if len(lineage) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, decisionID)
	}

	summaries := make([]decision.VersionSummary, 0, len(lineage))
	for _, r := range lineage {
		summaries = append(summaries, r.Summary())
	}
	for i := 1; i < len(summaries); i++ {
		for j := i; j > 0 && summaries[j-1].Version > summaries[j].Version; j-- {
			summaries[j-1], summaries[j] = summaries[j], summaries[j-1]
		}
	}
	return summaries, nil
}

// NextVersion returns the version the next append would receive.
func (s *Store) NextVersion(_ context.Context, decisionID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := 1
	for _, r := range s.lineages[decisionID] {
		if r.Version >= next {
			next = r.Version + 1
		}
	}
	return next, nil
}

// clone deep-copies a record through JSON so callers cannot mutate stored
// state, mirroring the serialization boundary of the Postgres adapter.
func clone(rec *decision.Record) (*decision.Record, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	var out decision.Record
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
