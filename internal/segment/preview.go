package segment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mveiga/cohort/internal/observability"
)

// DefaultPreviewLimit is the page size used when the caller does not
// specify one.
const DefaultPreviewLimit = 10

// SubjectSource provides read access to subject profiles.
// ListSubjects and SubjectsByIDs return rows ordered by email ascending.
type SubjectSource interface {
	CountSubjects(ctx context.Context) (int64, error)
	ListSubjects(ctx context.Context, limit, offset int) ([]Subject, error)
	SubjectsByIDs(ctx context.Context, ids []string) ([]Subject, error)
}

// RuleSource loads persisted rule definitions by segment id.
type RuleSource interface {
	SegmentRules(ctx context.Context, segmentID string) (Rules, error)
}

// PreviewKey identifies one cached preview page.
type PreviewKey struct {
	SegmentID string
	Limit     int
	Offset    int
}

// String renders the composite cache key.
func (k PreviewKey) String() string {
	return fmt.Sprintf("%s:%d:%d", k.SegmentID, k.Limit, k.Offset)
}

// PreviewCache memoizes computed previews. Implementations must treat
// failures as misses: a broken cache must never fail a preview, only
// make it slower.
type PreviewCache interface {
	Get(ctx context.Context, key PreviewKey) (*Preview, bool)
	Set(ctx context.Context, key PreviewKey, preview *Preview)
}

// Previewer orchestrates resolution, pagination and profile hydration.
type Previewer struct {
	resolver *Resolver
	subjects SubjectSource
	segments RuleSource
	cache    PreviewCache
	logger   *slog.Logger
}

// NewPreviewer creates a new Previewer. The cache may be nil, in which
// case CachedPreview always recomputes.
func NewPreviewer(resolver *Resolver, subjects SubjectSource, segments RuleSource, cache PreviewCache, logger *slog.Logger) *Previewer {
	if resolver == nil {
		panic("segment: resolver cannot be nil")
	}
	if subjects == nil {
		panic("segment: subject source cannot be nil")
	}
	if segments == nil {
		panic("segment: rule source cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Previewer{
		resolver: resolver,
		subjects: subjects,
		segments: segments,
		cache:    cache,
		logger:   logger,
	}
}

// UsersByRules resolves a rule tree and returns the total matching count
// plus one hydrated page of matching subjects.
//
// The unrestricted path counts and pages at the database level so it
// scales to the full subject table without loading it into memory. The
// explicit-set path derives the count from the already materialized set,
// slices in memory, and hydrates only the page-sized slice of ids; the
// full id list never reaches a single query. Page ordering in the
// explicit-set path is by email within the page only, a documented
// limitation of positional pagination over a resolved id list.
func (p *Previewer) UsersByRules(ctx context.Context, rules Rules, limit, offset int) (*Preview, error) {
	if limit <= 0 {
		limit = DefaultPreviewLimit
	}
	if offset < 0 {
		offset = 0
	}

	start := time.Now()
	set, err := p.resolver.ResolveRules(ctx, rules)
	observability.EngineResolutionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve segment rules: %w", err)
	}

	if set.IsUnrestricted() {
		return p.unrestrictedPage(ctx, limit, offset)
	}

	count := int64(set.Len())
	if count == 0 {
		// Nothing matches; skip the hydration query entirely.
		return &Preview{Count: 0, SampleUsers: []SampleUser{}}, nil
	}

	page := set.Slice(offset, limit)
	if len(page) == 0 {
		// Offset beyond the available ids.
		return &Preview{Count: count, SampleUsers: []SampleUser{}}, nil
	}

	subjects, err := p.subjects.SubjectsByIDs(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("failed to hydrate subject page: %w", err)
	}

	return &Preview{Count: count, SampleUsers: toSampleUsers(subjects)}, nil
}

// unrestrictedPage serves the "match all" sentinel with a count query and
// an offset/limit page, both at the database level.
func (p *Previewer) unrestrictedPage(ctx context.Context, limit, offset int) (*Preview, error) {
	count, err := p.subjects.CountSubjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count subjects: %w", err)
	}

	subjects, err := p.subjects.ListSubjects(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}

	return &Preview{Count: count, SampleUsers: toSampleUsers(subjects)}, nil
}

// SegmentPreview loads a segment's persisted rule definition and previews it.
func (p *Previewer) SegmentPreview(ctx context.Context, segmentID string, limit, offset int) (*Preview, error) {
	rules, err := p.segments.SegmentRules(ctx, segmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules for segment %q: %w", segmentID, err)
	}
	return p.UsersByRules(ctx, rules, limit, offset)
}

// CachedSegmentPreview serves a segment preview through the preview cache.
// A hit within the TTL returns the stored result with no recomputation;
// a miss runs the full pipeline and stores the result. Concurrent misses
// for the same key may both recompute and both store the same value, a
// benign race that costs duplicated work, not correctness.
func (p *Previewer) CachedSegmentPreview(ctx context.Context, segmentID string, limit, offset int) (*Preview, error) {
	if limit <= 0 {
		limit = DefaultPreviewLimit
	}
	if offset < 0 {
		offset = 0
	}

	key := PreviewKey{SegmentID: segmentID, Limit: limit, Offset: offset}

	if p.cache != nil {
		if preview, ok := p.cache.Get(ctx, key); ok {
			return preview, nil
		}
	}

	preview, err := p.SegmentPreview(ctx, segmentID, limit, offset)
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		p.cache.Set(ctx, key, preview)
	}

	p.logger.Debug("segment preview computed",
		slog.String("segment_id", segmentID),
		slog.Int64("count", preview.Count),
		slog.Int("page_size", len(preview.SampleUsers)),
	)

	return preview, nil
}

// RefreshSegmentPreview recomputes a segment preview and overwrites the
// cached entry even when a live one exists. Background warm-up must not
// read through the cache or it would only ever extend stale data.
func (p *Previewer) RefreshSegmentPreview(ctx context.Context, segmentID string, limit, offset int) (*Preview, error) {
	if limit <= 0 {
		limit = DefaultPreviewLimit
	}
	if offset < 0 {
		offset = 0
	}

	preview, err := p.SegmentPreview(ctx, segmentID, limit, offset)
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		p.cache.Set(ctx, PreviewKey{SegmentID: segmentID, Limit: limit, Offset: offset}, preview)
	}

	return preview, nil
}

func toSampleUsers(subjects []Subject) []SampleUser {
	out := make([]SampleUser, len(subjects))
	for i, s := range subjects {
		out[i] = SampleUser{
			ID:    s.ID,
			Email: s.Email,
			Name:  s.DisplayName(),
		}
	}
	return out
}
