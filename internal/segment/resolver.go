package segment

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// MembershipSource provides read access to tag membership data.
// Implementations must return every subject id associated with the tag,
// deduplicated, in a stable order.
type MembershipSource interface {
	SubjectIDsForTag(ctx context.Context, tagID string) ([]string, error)
}

// Resolver evaluates rule trees against membership data.
// It is stateless and safe for concurrent use.
type Resolver struct {
	memberships MembershipSource
	logger      *slog.Logger
}

// NewResolver creates a new Resolver.
// If logger is nil, it defaults to slog.Default().
func NewResolver(memberships MembershipSource, logger *slog.Logger) *Resolver {
	if memberships == nil {
		panic("segment: membership source cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Resolver{
		memberships: memberships,
		logger:      logger,
	}
}

// ResolveRules evaluates a rule group into an IDSet.
//
// A group with zero conditions is the unrestricted sentinel ("match all").
// Otherwise every child condition is resolved concurrently and the results
// are combined in declaration order, which keeps the outcome deterministic
// even though sibling resolutions complete in any order.
func (r *Resolver) ResolveRules(ctx context.Context, rules Rules) (IDSet, error) {
	if len(rules.Conditions) == 0 {
		return Unrestricted(), nil
	}

	results := make([]IDSet, len(rules.Conditions))

	g, gctx := errgroup.WithContext(ctx)
	for i, cond := range rules.Conditions {
		g.Go(func() error {
			set, err := r.ResolveCondition(gctx, cond)
			if err != nil {
				return err
			}
			results[i] = set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return IDSet{}, err
	}

	switch rules.Operator {
	case OperatorAnd:
		return combineAnd(results), nil
	case OperatorOr:
		return combineOr(results), nil
	default:
		// Lenient fallthrough: an unrecognized operator imposes no
		// restriction. ValidateRules rejects these trees at the API
		// boundary; here we only degrade gracefully.
		r.logger.Warn("unrecognized group operator, treating as unrestricted",
			slog.String("operator", string(rules.Operator)),
		)
		return Unrestricted(), nil
	}
}

// ResolveCondition evaluates a single rule tree node into an IDSet.
//
// A tag condition is always a restriction: even if it happens to cover the
// full subject population it resolves to an explicit list, never the
// sentinel. A tag condition with an empty TagID matches nothing.
func (r *Resolver) ResolveCondition(ctx context.Context, cond Condition) (IDSet, error) {
	switch cond.Type {
	case ConditionTag:
		if cond.TagID == "" {
			return Restricted(nil), nil
		}
		ids, err := r.memberships.SubjectIDsForTag(ctx, cond.TagID)
		if err != nil {
			return IDSet{}, fmt.Errorf("failed to resolve tag condition %q: %w", cond.TagID, err)
		}
		return Restricted(ids), nil

	case ConditionGroup:
		return r.ResolveRules(ctx, Rules{
			Operator:   cond.Operator,
			Conditions: cond.Conditions,
		})

	default:
		// Unknown node shapes impose no restriction, mirroring the
		// lenient operator fallthrough above.
		r.logger.Warn("unrecognized condition type, treating as unrestricted",
			slog.String("type", string(cond.Type)),
		)
		return Unrestricted(), nil
	}
}

// combineAnd intersects the child results. Unrestricted children impose no
// restriction and are skipped; the first explicit child seeds the running
// set and subsequent explicit children filter it. If every child was
// unrestricted, the AND of "everything" is "everything".
func combineAnd(children []IDSet) IDSet {
	result := Unrestricted()
	for _, child := range children {
		if child.IsUnrestricted() {
			continue
		}
		result = result.Intersect(child)
	}
	return result
}

// combineOr unions the child results. Any unrestricted child makes the
// whole OR unrestricted, since union with "everything" is "everything".
func combineOr(children []IDSet) IDSet {
	for _, child := range children {
		if child.IsUnrestricted() {
			return Unrestricted()
		}
	}

	result := Restricted(nil)
	for _, child := range children {
		result = result.Union(child)
	}
	return result
}
