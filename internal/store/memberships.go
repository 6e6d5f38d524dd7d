// Package store provides the Data Access Layer (Repository) for Cohort.
// It handles all direct interactions with the PostgreSQL database using
// the pgx driver.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mveiga/cohort/internal/observability"
	"github.com/mveiga/cohort/internal/segment"
	"github.com/mveiga/cohort/internal/validation"
)

// DefaultMembershipBatchSize is the page size for membership reads when
// none is configured.
const DefaultMembershipBatchSize = 1000

// Compile-time check to verify that PostgresMembershipStore satisfies the
// engine's membership source contract.
var _ segment.MembershipSource = (*PostgresMembershipStore)(nil)

// PostgresMembershipStore reads subject<->tag associations from the
// subject_tags table.
type PostgresMembershipStore struct {
	db        *pgxpool.Pool
	batchSize int
}

// NewPostgresMembershipStore creates a membership store reading in pages
// of batchSize rows. A batchSize <= 0 falls back to the default.
func NewPostgresMembershipStore(db *pgxpool.Pool, batchSize int) *PostgresMembershipStore {
	validation.AssertNotNil(db, "database pool")
	if batchSize <= 0 {
		batchSize = DefaultMembershipBatchSize
	}
	return &PostgresMembershipStore{db: db, batchSize: batchSize}
}

// SubjectIDsForTag returns every subject id associated with the tag, with
// no artificial upper bound on total membership size.
//
// Rows are read in fixed-size pages ordered by subject_id, accumulating
// until a page comes back short (end of data). A failure on any page
// aborts the whole operation: returning a partial list would let the
// evaluator above silently compute a wrong audience.
//
// The table enforces no uniqueness on (subject_id, tag_id), so duplicates
// are removed here while preserving first-seen order.
func (s *PostgresMembershipStore) SubjectIDsForTag(ctx context.Context, tagID string) ([]string, error) {
	query := `
		SELECT subject_id
		FROM subject_tags
		WHERE tag_id = $1
		ORDER BY subject_id
		LIMIT $2 OFFSET $3
	`

	var (
		ids    []string
		seen   = make(map[string]struct{})
		offset = 0
	)

	for {
		page, err := s.fetchPage(ctx, query, tagID, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch memberships for tag %q at offset %d: %w", tagID, offset, err)
		}

		observability.EngineMembershipPages.Inc()
		observability.EngineMembershipRows.Add(float64(len(page)))

		for _, id := range page {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}

		// A short page signals the end of the data.
		if len(page) < s.batchSize {
			return ids, nil
		}
		offset += s.batchSize
	}
}

func (s *PostgresMembershipStore) fetchPage(ctx context.Context, query, tagID string, offset int) ([]string, error) {
	rows, err := s.db.Query(ctx, query, tagID, s.batchSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	page := make([]string, 0, s.batchSize)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan membership row: %w", err)
		}
		page = append(page, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return page, nil
}
