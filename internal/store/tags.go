package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mveiga/cohort/internal/validation"
)

// Tag represents a named boolean attribute assignable to subjects.
// Identity is immutable; the name may be edited.
type Tag struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	TypeID    *string   `db:"type_id"`
	CreatedAt time.Time `db:"created_at"`
}

// TagType is an optional grouping category for tags. It plays no role in
// resolution.
type TagType struct {
	ID   string `db:"id"`
	Name string `db:"name"`
}

// TagRepository defines the interface for tag administration.
type TagRepository interface {
	// CreateTag inserts a new tag and populates the ID and timestamp.
	CreateTag(ctx context.Context, t *Tag) error

	// ListTags retrieves a paginated list of tags and the total count,
	// ordered by name ascending.
	ListTags(ctx context.Context, limit, offset int) ([]*Tag, int64, error)
}

// Compile-time check to verify that PostgresTagStore implements TagRepository.
var _ TagRepository = (*PostgresTagStore)(nil)

// PostgresTagStore is the implementation of TagRepository backed by PostgreSQL.
type PostgresTagStore struct {
	db *pgxpool.Pool
}

// NewPostgresTagStore creates a new repository instance with the given connection pool.
func NewPostgresTagStore(db *pgxpool.Pool) *PostgresTagStore {
	validation.AssertNotNil(db, "database pool")
	return &PostgresTagStore{db: db}
}

// CreateTag inserts a new tag, generating its id when absent.
func (s *PostgresTagStore) CreateTag(ctx context.Context, t *Tag) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	query := `
		INSERT INTO tags (id, name, type_id)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`

	if err := s.db.QueryRow(ctx, query, t.ID, t.Name, t.TypeID).Scan(&t.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("tag %q: %w", t.Name, ErrDuplicate)
		}
		return fmt.Errorf("failed to insert tag: %w", err)
	}

	return nil
}

// ListTags retrieves a subset of tags based on pagination parameters.
// It executes two queries: one for the total count and one for the page.
func (s *PostgresTagStore) ListTags(ctx context.Context, limit, offset int) ([]*Tag, int64, error) {
	var total int64
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM tags`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count tags: %w", err)
	}

	// Nothing to page through; save the second query.
	if total == 0 {
		return []*Tag{}, 0, nil
	}

	query := `
		SELECT id, name, type_id, created_at
		FROM tags
		ORDER BY name ASC
		LIMIT $1 OFFSET $2
	`

	rows, err := s.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	tags := make([]*Tag, 0, limit)
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.TypeID, &t.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan tag row: %w", err)
		}
		tags = append(tags, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows iteration error: %w", err)
	}

	return tags, total, nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique_violation (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
