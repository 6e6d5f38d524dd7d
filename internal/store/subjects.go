package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mveiga/cohort/internal/segment"
	"github.com/mveiga/cohort/internal/validation"
)

// Compile-time check to verify that PostgresSubjectStore satisfies the
// engine's subject source contract.
var _ segment.SubjectSource = (*PostgresSubjectStore)(nil)

// PostgresSubjectStore reads subject profile rows from the subjects table.
type PostgresSubjectStore struct {
	db *pgxpool.Pool
}

// NewPostgresSubjectStore creates a new subject store with the given connection pool.
func NewPostgresSubjectStore(db *pgxpool.Pool) *PostgresSubjectStore {
	validation.AssertNotNil(db, "database pool")
	return &PostgresSubjectStore{db: db}
}

// CountSubjects returns the total subject population size.
func (s *PostgresSubjectStore) CountSubjects(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM subjects`).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count subjects: %w", err)
	}
	return total, nil
}

// ListSubjects retrieves one page of subjects ordered by email ascending.
// Email is the stable sort key for preview pagination.
func (s *PostgresSubjectStore) ListSubjects(ctx context.Context, limit, offset int) ([]segment.Subject, error) {
	query := `
		SELECT id, email, COALESCE(first_name, ''), COALESCE(last_name, '')
		FROM subjects
		ORDER BY email ASC
		LIMIT $1 OFFSET $2
	`

	rows, err := s.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}
	defer rows.Close()

	return scanSubjects(rows, limit)
}

// SubjectsByIDs hydrates the profile rows for the given ids, ordered by
// email ascending within the batch. Callers must pass only a page-sized
// slice; the full resolved id list of a segment never belongs in a single
// query.
func (s *PostgresSubjectStore) SubjectsByIDs(ctx context.Context, ids []string) ([]segment.Subject, error) {
	if len(ids) == 0 {
		return []segment.Subject{}, nil
	}

	query := `
		SELECT id, email, COALESCE(first_name, ''), COALESCE(last_name, '')
		FROM subjects
		WHERE id = ANY($1)
		ORDER BY email ASC
	`

	rows, err := s.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subjects by id: %w", err)
	}
	defer rows.Close()

	return scanSubjects(rows, len(ids))
}

func scanSubjects(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}, capacity int) ([]segment.Subject, error) {
	subjects := make([]segment.Subject, 0, capacity)

	for rows.Next() {
		var sub segment.Subject
		if err := rows.Scan(&sub.ID, &sub.Email, &sub.FirstName, &sub.LastName); err != nil {
			return nil, fmt.Errorf("failed to scan subject row: %w", err)
		}
		subjects = append(subjects, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return subjects, nil
}
