// Package form holds the lead-qualification schema and the rules that drive
// the multi-step wizard: which questions are shown, how answers are validated,
// when the applicant is stopped, and how answers are flattened for Airtable.
package form

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ContactSectionID is the section whose answers map straight onto Airtable fields.
const ContactSectionID = "contact"

// Question types understood by the renderer and the validator.
const (
	TypeText     = "text"
	TypeEmail    = "email"
	TypeURL      = "url"
	TypeNumber   = "number"
	TypeTextarea = "textarea"
	TypeSelect   = "select"
	TypeRadio    = "radio"
	TypeCheckbox = "checkbox"
	TypeDate     = "date"
	TypeFile     = "file"
)

//go:embed default_sections.yml
var defaultSchema []byte

type Schema struct {
	Sections []Section `yaml:"sections" json:"sections"`
}

type Section struct {
	ID              string     `yaml:"id" json:"id"`
	Title           string     `yaml:"title" json:"title"`
	Description     string     `yaml:"description" json:"description"`
	AirtableMapping string     `yaml:"airtableMapping" json:"airtableMapping"`
	Questions       []Question `yaml:"questions" json:"questions"`
	// Stop ends the wizard on this section unless the named field holds the value.
	Stop *HardStop `yaml:"stop,omitempty" json:"stop,omitempty"`
}

type HardStop struct {
	Field   string `yaml:"field" json:"field"`
	Value   string `yaml:"value" json:"value"`
	Message string `yaml:"message" json:"message"`
}

type Question struct {
	ID                   string      `yaml:"id" json:"id"`
	Label                string      `yaml:"label" json:"label"`
	Type                 string      `yaml:"type" json:"type"`
	Required             bool        `yaml:"required" json:"required"`
	AirtableField        string      `yaml:"airtableField,omitempty" json:"airtableField,omitempty"`
	Options              []string    `yaml:"options,omitempty" json:"options,omitempty"`
	Validation           *Validation `yaml:"validation,omitempty" json:"validation,omitempty"`
	ConditionalQuestions []FollowUp  `yaml:"conditionalQuestions,omitempty" json:"conditionalQuestions,omitempty"`
	ConditionalDisplay   *Condition  `yaml:"conditionalDisplay,omitempty" json:"conditionalDisplay,omitempty"`
	Placeholder          string      `yaml:"placeholder,omitempty" json:"placeholder,omitempty"`
	AllowedTypes         []string    `yaml:"allowedTypes,omitempty" json:"allowedTypes,omitempty"`
}

// FollowUp is a question revealed under its parent when Condition holds.
type FollowUp struct {
	Condition Condition `yaml:"condition" json:"condition"`
	Question  Question  `yaml:"question" json:"question"`
}

type Validation struct {
	Type           string   `yaml:"type" json:"type"`
	BlockedDomains []string `yaml:"blockedDomains,omitempty" json:"blockedDomains,omitempty"`
	RequiredValue  string   `yaml:"requiredValue,omitempty" json:"requiredValue,omitempty"`
	ErrorMessage   string   `yaml:"errorMessage,omitempty" json:"errorMessage,omitempty"`
	MinValue       *float64 `yaml:"minValue,omitempty" json:"minValue,omitempty"`
}

// Default returns the schema shipped with the binary.
func Default() *Schema {
	s, err := Parse(defaultSchema)
	if err != nil {
		panic("form: embedded schema is invalid: " + err.Error())
	}
	return s
}

// Load reads a schema from disk. JSON files are accepted as well as YAML.
func Load(path string) (*Schema, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}
	s, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, err)
	}
	return s, nil
}

func Parse(b []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := s.Check(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Check rejects schemas the wizard cannot run: missing or duplicate ids and
// conditions that point at questions which do not exist.
func (s *Schema) Check() error {
	if len(s.Sections) == 0 {
		return errors.New("schema has no sections")
	}
	var errs []error
	sections := make(map[string]bool)
	known := make(map[string]bool)
	for _, sec := range s.Sections {
		if sec.ID == "" {
			errs = append(errs, errors.New("section without id"))
		} else if sections[sec.ID] {
			errs = append(errs, fmt.Errorf("duplicate section id %q", sec.ID))
		}
		sections[sec.ID] = true
		for _, q := range sec.allQuestions() {
			if q.ID == "" {
				errs = append(errs, fmt.Errorf("section %q: question without id", sec.ID))
				continue
			}
			if known[q.ID] {
				errs = append(errs, fmt.Errorf("duplicate question id %q", q.ID))
			}
			known[q.ID] = true
		}
	}
	for _, sec := range s.Sections {
		if sec.Stop != nil && !known[sec.Stop.Field] {
			errs = append(errs, fmt.Errorf("section %q: stop references unknown field %q", sec.ID, sec.Stop.Field))
		}
		for _, q := range sec.Questions {
			if q.ConditionalDisplay != nil && !known[q.ConditionalDisplay.Field] {
				errs = append(errs, fmt.Errorf("question %q: display condition references unknown field %q", q.ID, q.ConditionalDisplay.Field))
			}
			for _, fu := range q.ConditionalQuestions {
				if !known[fu.Condition.Field] {
					errs = append(errs, fmt.Errorf("question %q: follow-up condition references unknown field %q", fu.Question.ID, fu.Condition.Field))
				}
			}
		}
	}
	return errors.Join(errs...)
}

// Section returns the section with the given id.
func (s *Schema) Section(id string) (*Section, bool) {
	for i := range s.Sections {
		if s.Sections[i].ID == id {
			return &s.Sections[i], true
		}
	}
	return nil, false
}

// Question finds a question by id anywhere in the schema, follow-ups included.
func (s *Schema) Question(id string) (*Question, bool) {
	for i := range s.Sections {
		for _, q := range s.Sections[i].allQuestions() {
			if q.ID == id {
				return q, true
			}
		}
	}
	return nil, false
}

// Questions lists every question of the schema, follow-ups included.
func (s *Schema) Questions() []*Question {
	var out []*Question
	for i := range s.Sections {
		out = append(out, s.Sections[i].allQuestions()...)
	}
	return out
}

func (sec *Section) allQuestions() []*Question {
	var out []*Question
	for i := range sec.Questions {
		q := &sec.Questions[i]
		out = append(out, q)
		for j := range q.ConditionalQuestions {
			out = append(out, &q.ConditionalQuestions[j].Question)
		}
	}
	return out
}
