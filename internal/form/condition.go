package form

import (
	"encoding/json"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

const (
	OpEquals    = "equals"
	OpNotEquals = "not_equals"
	OpIn        = "in"
	OpNotIn     = "not_in"
)

// Condition compares another question's answer against a value or a list.
type Condition struct {
	Field    string `yaml:"field" json:"field"`
	Operator string `yaml:"operator,omitempty" json:"operator,omitempty"`
	Value    Match  `yaml:"value" json:"value"`
}

// Match is the right-hand side of a condition: one string or a list of them.
type Match struct {
	Values []string
	List   bool
}

func (m *Match) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*m = Match{Values: []string{s}}
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*m = Match{Values: list, List: true}
	default:
		return fmt.Errorf("line %d: condition value must be a string or a list", node.Line)
	}
	return nil
}

func (m Match) MarshalJSON() ([]byte, error) {
	if m.List {
		return json.Marshal(m.Values)
	}
	return json.Marshal(m.single())
}

func (m Match) single() string {
	if len(m.Values) == 0 {
		return ""
	}
	return m.Values[0]
}

// Holds reports whether the condition is satisfied. A field without an answer
// never satisfies a condition; an unknown operator always does.
func (c Condition) Holds(a Answers) bool {
	if a.Empty(c.Field) {
		return false
	}
	v := a.String(c.Field)
	switch c.Operator {
	case OpEquals:
		return !c.Value.List && v == c.Value.single()
	case OpNotEquals:
		return c.Value.List || v != c.Value.single()
	case OpIn:
		return c.Value.List && slices.Contains(c.Value.Values, v)
	case OpNotIn:
		return c.Value.List && !slices.Contains(c.Value.Values, v)
	default:
		return true
	}
}

// Visible reports whether the question is displayed for the given answers.
func (q *Question) Visible(a Answers) bool {
	return q.ConditionalDisplay == nil || q.ConditionalDisplay.Holds(a)
}

// ActiveFollowUps returns the follow-up questions whose condition holds.
func (q *Question) ActiveFollowUps(a Answers) []*Question {
	var out []*Question
	for i := range q.ConditionalQuestions {
		if q.ConditionalQuestions[i].Condition.Holds(a) {
			out = append(out, &q.ConditionalQuestions[i].Question)
		}
	}
	return out
}
