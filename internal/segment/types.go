// Package segment implements the audience segment resolution engine.
// A segment is defined by a declarative boolean rule tree over tag
// memberships; the engine computes the exact set of subject ids matching
// the tree and serves paginated, hydrated previews of that audience.
package segment

import (
	"errors"
	"fmt"
	"strings"
)

// Operator is the boolean combinator of a rule group.
type Operator string

const (
	OperatorAnd Operator = "AND"
	OperatorOr  Operator = "OR"

	// OperatorNot exists in persisted rule definitions authored by older
	// tooling, but complement semantics would require materializing the
	// full subject universe. It is rejected at validation time.
	OperatorNot Operator = "NOT"
)

// ConditionType discriminates the two condition variants.
type ConditionType string

const (
	ConditionTag   ConditionType = "tag"
	ConditionGroup ConditionType = "group"
)

// Condition is a single node of a rule tree: either a tag membership leaf
// or a nested boolean group. The JSON shape mirrors the persisted rule
// definitions: {"type":"tag","tagId":...} or
// {"type":"group","operator":...,"conditions":[...]}.
type Condition struct {
	Type ConditionType `json:"type"`

	// TagID is set for tag conditions. An empty TagID is defined behavior
	// and matches no subjects.
	TagID string `json:"tagId,omitempty"`

	// Operator and Conditions are set for group conditions.
	Operator   Operator    `json:"operator,omitempty"`
	Conditions []Condition `json:"conditions,omitempty"`
}

// Rules is the root of a rule tree as persisted for a segment.
// A root with zero conditions matches all subjects.
type Rules struct {
	Operator   Operator    `json:"operator"`
	Conditions []Condition `json:"conditions"`
}

// ErrNotUnsupported is returned by ValidateRules for rule trees using the
// NOT operator.
var ErrNotUnsupported = errors.New("NOT operator is not supported")

// ValidateRules checks a rule tree for constructs the engine refuses to
// evaluate: the NOT operator, unknown operators on non-empty groups,
// unknown condition types, and nesting beyond maxDepth. The resolver
// itself stays lenient (unknown shapes degrade to safe defaults); this
// validation exists so authoring surfaces reject bad trees up front.
func ValidateRules(rules Rules, maxDepth int) error {
	return validateGroup(rules.Operator, rules.Conditions, maxDepth, 1)
}

func validateGroup(op Operator, conditions []Condition, maxDepth, depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("rule tree exceeds maximum depth of %d", maxDepth)
	}

	// An empty group is the "match all" identity regardless of operator.
	if len(conditions) == 0 {
		return nil
	}

	switch op {
	case OperatorAnd, OperatorOr:
	case OperatorNot:
		return ErrNotUnsupported
	default:
		return fmt.Errorf("unknown operator %q", string(op))
	}

	for i, cond := range conditions {
		switch cond.Type {
		case ConditionTag:
		case ConditionGroup:
			if err := validateGroup(cond.Operator, cond.Conditions, maxDepth, depth+1); err != nil {
				return err
			}
		default:
			return fmt.Errorf("condition %d: unknown condition type %q", i, string(cond.Type))
		}
	}

	return nil
}

// Subject is the hydrated profile projection used for previews.
type Subject struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
}

// DisplayName derives a human-readable name from the profile's name
// fields, falling back to "No Name" when both are absent.
func (s Subject) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(s.FirstName) + " " + strings.TrimSpace(s.LastName))
	if name == "" {
		return "No Name"
	}
	return name
}

// SampleUser is a single entry of a preview page.
type SampleUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Preview is the externally visible output of a resolution-and-paginate
// cycle. Count reflects the true total matching population even when only
// a page-sized slice of SampleUsers is returned.
type Preview struct {
	Count       int64        `json:"count"`
	SampleUsers []SampleUser `json:"sampleUsers"`
}
