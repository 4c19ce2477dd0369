package form

import (
	"net/url"
	"strings"
)

// Answers maps a question id to its answer. Single-valued questions hold one
// element; checkbox questions hold one element per ticked option.
type Answers map[string][]string

func (a Answers) Values(id string) []string { return a[id] }

// String renders the answer the way it is compared in conditions: list
// answers are joined with commas.
func (a Answers) String(id string) string {
	return strings.Join(a[id], ",")
}

// Display renders the answer for humans and for Airtable.
func (a Answers) Display(id string) string {
	return strings.Join(a[id], ", ")
}

func (a Answers) Empty(id string) bool {
	for _, v := range a[id] {
		if v != "" {
			return false
		}
	}
	return true
}

func (a Answers) Set(id string, values ...string) {
	a[id] = values
}

func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// FromValues keeps the values that belong to schema questions. Text inputs
// are trimmed of surrounding space; empty checkbox entries are dropped.
func FromValues(s *Schema, v url.Values) Answers {
	a := make(Answers)
	for _, q := range s.Questions() {
		raw, ok := v[q.ID]
		if !ok {
			continue
		}
		if q.Type == TypeCheckbox {
			var picked []string
			for _, item := range raw {
				if item != "" {
					picked = append(picked, item)
				}
			}
			a[q.ID] = picked
			continue
		}
		if len(raw) > 0 {
			a[q.ID] = []string{strings.TrimSpace(raw[len(raw)-1])}
		}
	}
	return a
}

// Merge overlays b onto a copy of a.
func (a Answers) Merge(b Answers) Answers {
	out := a.Clone()
	for k, v := range b {
		out[k] = append([]string(nil), v...)
	}
	return out
}
