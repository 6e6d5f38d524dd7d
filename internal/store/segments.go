package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mveiga/cohort/internal/segment"
	"github.com/mveiga/cohort/internal/validation"
)

// Segment represents a persisted segment definition.
// It mirrors the 'segments' table structure; Rules holds the raw JSONB
// rule tree as authored.
type Segment struct {
	ID        string          `db:"id"`
	Name      string          `db:"name"`
	Rules     json.RawMessage `db:"rules"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// SegmentRepository defines the interface for segment persistence operations.
// The engine never mutates rule definitions; writes exist for authoring
// surfaces and test seeding.
type SegmentRepository interface {
	segment.RuleSource

	// CreateSegment inserts a new segment and populates the ID and timestamps.
	CreateSegment(ctx context.Context, s *Segment) error

	// ListSegmentIDs returns the ids of all segments, ordered by name.
	ListSegmentIDs(ctx context.Context) ([]string, error)
}

// Compile-time check to verify that PostgresSegmentStore implements SegmentRepository.
var _ SegmentRepository = (*PostgresSegmentStore)(nil)

// PostgresSegmentStore is the implementation of SegmentRepository backed by PostgreSQL.
type PostgresSegmentStore struct {
	db *pgxpool.Pool
}

// NewPostgresSegmentStore creates a new repository instance with the given connection pool.
func NewPostgresSegmentStore(db *pgxpool.Pool) *PostgresSegmentStore {
	validation.AssertNotNil(db, "database pool")
	return &PostgresSegmentStore{db: db}
}

// SegmentRules loads and decodes the persisted rule tree for a segment.
func (s *PostgresSegmentStore) SegmentRules(ctx context.Context, segmentID string) (segment.Rules, error) {
	var raw json.RawMessage
	err := s.db.QueryRow(ctx, `SELECT rules FROM segments WHERE id = $1`, segmentID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return segment.Rules{}, fmt.Errorf("segment %q: %w", segmentID, ErrNotFound)
		}
		return segment.Rules{}, fmt.Errorf("failed to load segment %q: %w", segmentID, err)
	}

	var rules segment.Rules
	if err := json.Unmarshal(raw, &rules); err != nil {
		return segment.Rules{}, fmt.Errorf("failed to decode rules for segment %q: %w", segmentID, err)
	}

	return rules, nil
}

// CreateSegment inserts a new segment definition.
// A nil Rules payload is stored as the "match all" empty group.
func (s *PostgresSegmentStore) CreateSegment(ctx context.Context, seg *Segment) error {
	if seg.ID == "" {
		seg.ID = uuid.NewString()
	}
	if len(seg.Rules) == 0 {
		seg.Rules = json.RawMessage(`{"operator":"AND","conditions":[]}`)
	}

	query := `
		INSERT INTO segments (id, name, rules)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`

	err := s.db.QueryRow(ctx, query, seg.ID, seg.Name, seg.Rules).
		Scan(&seg.CreatedAt, &seg.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("segment %q: %w", seg.Name, ErrDuplicate)
		}
		return fmt.Errorf("failed to insert segment: %w", err)
	}

	return nil
}

// ListSegmentIDs returns all segment ids ordered by name, for workers that
// iterate the full catalogue.
func (s *PostgresSegmentStore) ListSegmentIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT id FROM segments ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list segments: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan segment row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return ids, nil
}
