package segment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMemberships serves canned tag memberships and records lookups.
type fakeMemberships struct {
	mu      sync.Mutex
	tags    map[string][]string
	err     error
	lookups []string
}

func (f *fakeMemberships) SubjectIDsForTag(_ context.Context, tagID string) ([]string, error) {
	f.mu.Lock()
	f.lookups = append(f.lookups, tagID)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	return f.tags[tagID], nil
}

func newTestResolver(tags map[string][]string) (*Resolver, *fakeMemberships) {
	memberships := &fakeMemberships{tags: tags}
	return NewResolver(memberships, slog.Default()), memberships
}

func TestResolveRules_EmptyGroupIsUnrestricted(t *testing.T) {
	t.Parallel()

	for _, op := range []Operator{OperatorAnd, OperatorOr} {
		t.Run(string(op), func(t *testing.T) {
			t.Parallel()

			resolver, _ := newTestResolver(nil)

			set, err := resolver.ResolveRules(context.Background(), Rules{Operator: op})

			require.NoError(t, err)
			assert.True(t, set.IsUnrestricted())
		})
	}
}

func TestResolveRules_SingleTag(t *testing.T) {
	t.Parallel()

	resolver, _ := newTestResolver(map[string][]string{
		"tag-vip": {"u1", "u2"},
	})

	set, err := resolver.ResolveRules(context.Background(), Rules{
		Operator: OperatorAnd,
		Conditions: []Condition{
			{Type: ConditionTag, TagID: "tag-vip"},
		},
	})

	require.NoError(t, err)
	assert.False(t, set.IsUnrestricted())
	assert.Equal(t, []string{"u1", "u2"}, set.IDs())
}

func TestResolveRules_AndIntersects(t *testing.T) {
	t.Parallel()

	resolver, _ := newTestResolver(map[string][]string{
		"tag-vip":    {"u1", "u2", "u3"},
		"tag-active": {"u2", "u3", "u4"},
	})

	set, err := resolver.ResolveRules(context.Background(), Rules{
		Operator: OperatorAnd,
		Conditions: []Condition{
			{Type: ConditionTag, TagID: "tag-vip"},
			{Type: ConditionTag, TagID: "tag-active"},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"u2", "u3"}, set.IDs())
}

func TestResolveRules_OrUnions(t *testing.T) {
	t.Parallel()

	resolver, _ := newTestResolver(map[string][]string{
		"tag-eu": {"u1", "u2"},
		"tag-us": {"u2", "u3"},
	})

	set, err := resolver.ResolveRules(context.Background(), Rules{
		Operator: OperatorOr,
		Conditions: []Condition{
			{Type: ConditionTag, TagID: "tag-eu"},
			{Type: ConditionTag, TagID: "tag-us"},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2", "u3"}, set.IDs(), "first child's ids come first")
}

func TestResolveRules_NestedGroups(t *testing.T) {
	t.Parallel()

	resolver, _ := newTestResolver(map[string][]string{
		"tag-vip": {"u1", "u2", "u3"},
		"tag-eu":  {"u2"},
		"tag-us":  {"u3"},
	})

	// vip AND (eu OR us)
	set, err := resolver.ResolveRules(context.Background(), Rules{
		Operator: OperatorAnd,
		Conditions: []Condition{
			{Type: ConditionTag, TagID: "tag-vip"},
			{Type: ConditionGroup, Operator: OperatorOr, Conditions: []Condition{
				{Type: ConditionTag, TagID: "tag-eu"},
				{Type: ConditionTag, TagID: "tag-us"},
			}},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"u2", "u3"}, set.IDs())
}

func TestResolveRules_EmptyTagIDMatchesNothing(t *testing.T) {
	t.Parallel()

	resolver, memberships := newTestResolver(map[string][]string{
		"tag-vip": {"u1"},
	})

	set, err := resolver.ResolveRules(context.Background(), Rules{
		Operator: OperatorAnd,
		Conditions: []Condition{
			{Type: ConditionTag, TagID: "tag-vip"},
			{Type: ConditionTag, TagID: ""},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 0, set.Len(), "intersecting with the empty set yields nothing")
	assert.False(t, set.IsUnrestricted())
	assert.NotContains(t, memberships.lookups, "", "empty tag ids never reach the store")
}

func TestResolveRules_EmptyNestedGroupIsUnrestrictedChild(t *testing.T) {
	t.Parallel()

	resolver, _ := newTestResolver(map[string][]string{
		"tag-vip": {"u1", "u2"},
	})

	// vip AND (empty group): the empty child imposes no restriction.
	set, err := resolver.ResolveRules(context.Background(), Rules{
		Operator: OperatorAnd,
		Conditions: []Condition{
			{Type: ConditionTag, TagID: "tag-vip"},
			{Type: ConditionGroup, Operator: OperatorOr},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, set.IDs())
}

func TestResolveRules_OrWithUnrestrictedChildIsUnrestricted(t *testing.T) {
	t.Parallel()

	resolver, _ := newTestResolver(map[string][]string{
		"tag-vip": {"u1"},
	})

	set, err := resolver.ResolveRules(context.Background(), Rules{
		Operator: OperatorOr,
		Conditions: []Condition{
			{Type: ConditionTag, TagID: "tag-vip"},
			{Type: ConditionGroup, Operator: OperatorAnd},
		},
	})

	require.NoError(t, err)
	assert.True(t, set.IsUnrestricted())
}

func TestResolveRules_UnknownOperatorDegradesWithWarning(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logg := slog.New(slog.NewTextHandler(&buf, nil))

	memberships := &fakeMemberships{tags: map[string][]string{"tag-vip": {"u1"}}}
	resolver := NewResolver(memberships, logg)

	set, err := resolver.ResolveRules(context.Background(), Rules{
		Operator: Operator("XOR"),
		Conditions: []Condition{
			{Type: ConditionTag, TagID: "tag-vip"},
		},
	})

	require.NoError(t, err)
	assert.True(t, set.IsUnrestricted())
	assert.Contains(t, buf.String(), "unrecognized group operator")
}

func TestResolveRules_UnknownConditionTypeDegradesWithWarning(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logg := slog.New(slog.NewTextHandler(&buf, nil))

	memberships := &fakeMemberships{}
	resolver := NewResolver(memberships, logg)

	set, err := resolver.ResolveRules(context.Background(), Rules{
		Operator: OperatorOr,
		Conditions: []Condition{
			{Type: ConditionType("attribute")},
		},
	})

	require.NoError(t, err)
	assert.True(t, set.IsUnrestricted())
	assert.Contains(t, buf.String(), "unrecognized condition type")
}

func TestResolveRules_MembershipErrorPropagates(t *testing.T) {
	t.Parallel()

	memberships := &fakeMemberships{err: errors.New("connection refused")}
	resolver := NewResolver(memberships, slog.Default())

	_, err := resolver.ResolveRules(context.Background(), Rules{
		Operator: OperatorAnd,
		Conditions: []Condition{
			{Type: ConditionTag, TagID: "tag-vip"},
		},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "tag-vip")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestResolveRules_DeterministicAcrossRuns(t *testing.T) {
	t.Parallel()

	resolver, _ := newTestResolver(map[string][]string{
		"tag-a": {"u1", "u2"},
		"tag-b": {"u3", "u4"},
		"tag-c": {"u5"},
	})

	rules := Rules{
		Operator: OperatorOr,
		Conditions: []Condition{
			{Type: ConditionTag, TagID: "tag-a"},
			{Type: ConditionTag, TagID: "tag-b"},
			{Type: ConditionTag, TagID: "tag-c"},
		},
	}

	// Children resolve concurrently; combination order must not depend
	// on completion order.
	for i := 0; i < 20; i++ {
		set, err := resolver.ResolveRules(context.Background(), rules)
		require.NoError(t, err, fmt.Sprintf("run %d", i))
		assert.Equal(t, []string{"u1", "u2", "u3", "u4", "u5"}, set.IDs())
	}
}
