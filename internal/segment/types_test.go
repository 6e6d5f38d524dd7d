package segment

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRules_UnmarshalNestedTree(t *testing.T) {
	t.Parallel()

	raw := `{
		"operator": "AND",
		"conditions": [
			{"type": "tag", "tagId": "tag-vip"},
			{
				"type": "group",
				"operator": "OR",
				"conditions": [
					{"type": "tag", "tagId": "tag-eu"},
					{"type": "tag", "tagId": "tag-us"}
				]
			}
		]
	}`

	var rules Rules
	require.NoError(t, json.Unmarshal([]byte(raw), &rules))

	assert.Equal(t, OperatorAnd, rules.Operator)
	require.Len(t, rules.Conditions, 2)

	assert.Equal(t, ConditionTag, rules.Conditions[0].Type)
	assert.Equal(t, "tag-vip", rules.Conditions[0].TagID)

	group := rules.Conditions[1]
	assert.Equal(t, ConditionGroup, group.Type)
	assert.Equal(t, OperatorOr, group.Operator)
	require.Len(t, group.Conditions, 2)
	assert.Equal(t, "tag-eu", group.Conditions[0].TagID)
}

func TestValidateRules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		rules   Rules
		wantErr string
	}{
		{
			name:  "empty group with empty operator is valid",
			rules: Rules{},
		},
		{
			name: "flat AND of tags",
			rules: Rules{
				Operator: OperatorAnd,
				Conditions: []Condition{
					{Type: ConditionTag, TagID: "t1"},
					{Type: ConditionTag, TagID: "t2"},
				},
			},
		},
		{
			name: "nested OR group",
			rules: Rules{
				Operator: OperatorOr,
				Conditions: []Condition{
					{Type: ConditionGroup, Operator: OperatorAnd, Conditions: []Condition{
						{Type: ConditionTag, TagID: "t1"},
					}},
				},
			},
		},
		{
			name: "NOT operator rejected",
			rules: Rules{
				Operator: OperatorNot,
				Conditions: []Condition{
					{Type: ConditionTag, TagID: "t1"},
				},
			},
			wantErr: ErrNotUnsupported.Error(),
		},
		{
			name: "NOT rejected even when nested",
			rules: Rules{
				Operator: OperatorAnd,
				Conditions: []Condition{
					{Type: ConditionGroup, Operator: OperatorNot, Conditions: []Condition{
						{Type: ConditionTag, TagID: "t1"},
					}},
				},
			},
			wantErr: ErrNotUnsupported.Error(),
		},
		{
			name: "unknown operator on non-empty group",
			rules: Rules{
				Operator: Operator("XOR"),
				Conditions: []Condition{
					{Type: ConditionTag, TagID: "t1"},
				},
			},
			wantErr: "unknown operator",
		},
		{
			name: "unknown condition type",
			rules: Rules{
				Operator: OperatorAnd,
				Conditions: []Condition{
					{Type: ConditionType("attribute"), TagID: "t1"},
				},
			},
			wantErr: "unknown condition type",
		},
		{
			name: "empty nested group is valid match-all",
			rules: Rules{
				Operator: OperatorAnd,
				Conditions: []Condition{
					{Type: ConditionGroup, Operator: Operator("whatever")},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateRules(tt.rules, 16)

			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateRules_MaxDepth(t *testing.T) {
	t.Parallel()

	// Build a chain of nested groups 4 levels deep with a tag leaf.
	rules := Rules{
		Operator: OperatorAnd,
		Conditions: []Condition{
			{Type: ConditionGroup, Operator: OperatorAnd, Conditions: []Condition{
				{Type: ConditionGroup, Operator: OperatorAnd, Conditions: []Condition{
					{Type: ConditionGroup, Operator: OperatorAnd, Conditions: []Condition{
						{Type: ConditionTag, TagID: "t1"},
					}},
				}},
			}},
		},
	}

	assert.NoError(t, ValidateRules(rules, 4))
	assert.ErrorContains(t, ValidateRules(rules, 3), "maximum depth")
}

func TestSubject_DisplayName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		subject Subject
		want    string
	}{
		{name: "both names", subject: Subject{FirstName: "Ada", LastName: "Lovelace"}, want: "Ada Lovelace"},
		{name: "first only", subject: Subject{FirstName: "Ada"}, want: "Ada"},
		{name: "last only", subject: Subject{LastName: "Lovelace"}, want: "Lovelace"},
		{name: "neither", subject: Subject{Email: "a@example.com"}, want: "No Name"},
		{name: "whitespace only", subject: Subject{FirstName: "  ", LastName: " "}, want: "No Name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.subject.DisplayName())
		})
	}
}

func TestPreview_JSONShape(t *testing.T) {
	t.Parallel()

	preview := Preview{
		Count: 42,
		SampleUsers: []SampleUser{
			{ID: "u1", Email: "a@example.com", Name: "No Name"},
		},
	}

	data, err := json.Marshal(preview)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"count": 42,
		"sampleUsers": [{"id": "u1", "email": "a@example.com", "name": "No Name"}]
	}`, string(data))
}
