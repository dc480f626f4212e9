package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/SecondGuess/internal/domain"
	"github.com/Strob0t/SecondGuess/internal/domain/decision"
	"github.com/Strob0t/SecondGuess/internal/port/database"
)

// uniqueViolation is the SQLSTATE for unique constraint violations.
const uniqueViolation = "23505"

// Store implements the decision record store on PostgreSQL. Records are
// append-only rows; the evaluation output is stored as one JSONB document
// alongside the columns used for lookups.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store backed by the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var _ database.Store = (*Store)(nil)

// AppendRecord assigns the next version under a row lock on the lineage's
// latest record, which serializes concurrent re-evaluations of the same
// identity. The unique constraint on (decision_id, version) backstops the
// lock for writers that raced before either held it.
func (s *Store) AppendRecord(ctx context.Context, rec *decision.Record) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var latestVersion int
	var latestText string
	err = tx.QueryRow(ctx,
		`SELECT version, decision_text FROM decision_records
		 WHERE decision_id = $1 ORDER BY version DESC LIMIT 1 FOR UPDATE`,
		rec.DecisionID,
	).Scan(&latestVersion, &latestText)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		latestVersion = 0
	case err != nil:
		return fmt.Errorf("lock latest version: %w", err)
	default:
		if latestText != rec.Decision {
			return fmt.Errorf("append %s: %w", rec.DecisionID, domain.ErrDecisionMismatch)
		}
	}

	rec.Version = latestVersion + 1

	output, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO decision_records
		 (id, decision_id, version, created_at, decision_text, context_text, output)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		uuid.NewString(), rec.DecisionID, rec.Version, rec.Timestamp,
		rec.Decision, rec.Context, output,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("append %s v%d: %w", rec.DecisionID, rec.Version, domain.ErrConflict)
		}
		return fmt.Errorf("insert record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetRecord retrieves one version of a lineage.
func (s *Store) GetRecord(ctx context.Context, decisionID string, version int) (*decision.Record, error) {
	var output []byte
	err := s.pool.QueryRow(ctx,
		`SELECT output FROM decision_records WHERE decision_id = $1 AND version = $2`,
		decisionID, version,
	).Scan(&output)
	if err != nil {
		return nil, notFoundWrap(err, "get record %s v%d", decisionID, version)
	}
	return unmarshalRecord(output)
}

// GetLatest retrieves the highest version of a lineage.
func (s *Store) GetLatest(ctx context.Context, decisionID string) (*decision.Record, error) {
	var output []byte
	err := s.pool.QueryRow(ctx,
		`SELECT output FROM decision_records
		 WHERE decision_id = $1 ORDER BY version DESC LIMIT 1`,
		decisionID,
	).Scan(&output)
	if err != nil {
		return nil, notFoundWrap(err, "get latest %s", decisionID)
	}
	return unmarshalRecord(output)
}

// ListVersions returns per-version summaries ordered by version ascending.
func (s *Store) ListVersions(ctx context.Context, decisionID string) ([]decision.VersionSummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT output FROM decision_records
		 WHERE decision_id = $1 ORDER BY version ASC`,
		decisionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions %s: %w", decisionID, err)
	}
	defer rows.Close()

	var summaries []decision.VersionSummary
	for rows.Next() {
		var output []byte
		if err := rows.Scan(&output); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		rec, err := unmarshalRecord(output)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, rec.Summary())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list versions %s: %w", decisionID, err)
	}
	if len(summaries) == 0 {
		return nil, fmt.Errorf("list versions %s: %w", decisionID, domain.ErrNotFound)
	}
	return summaries, nil
}

// NextVersion returns the version the next append would receive. Advisory
// only: AppendRecord assigns the authoritative number under its lock.
func (s *Store) NextVersion(ctx context.Context, decisionID string) (int, error) {
	var max int
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM decision_records WHERE decision_id = $1`,
		decisionID,
	).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("next version %s: %w", decisionID, err)
	}
	return max + 1, nil
}

func unmarshalRecord(output []byte) (*decision.Record, error) {
	var rec decision.Record
	if err := json.Unmarshal(output, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return &rec, nil
}

// notFoundWrap checks whether err is pgx.ErrNoRows and, if so, wraps
// domain.ErrNotFound with the given message. Otherwise it wraps the
// original error.
func notFoundWrap(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", msg, domain.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
