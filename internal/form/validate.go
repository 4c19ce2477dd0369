package form

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
)

const (
	ValidateCompanyDomain = "company_domain"
	ValidateRequiredValue = "required_value"
	ValidateMinValue      = "min_value"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// parseNumber reads an amount as typed, allowing thousands separators such
// as "1,500,000".
func parseNumber(value string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(value), ",", ""), 64)
}

// Errors maps a question id to the message shown under it.
type Errors map[string]string

// ValidateSection checks every visible question of the section and the
// follow-ups that are currently revealed. It returns the errors found and the
// answers with URL fields normalized to carry a scheme.
func ValidateSection(sec *Section, answers Answers) (Errors, Answers) {
	errs := make(Errors)
	out := answers.Clone()

	var visible []*Question
	for i := range sec.Questions {
		q := &sec.Questions[i]
		if q.Visible(out) {
			visible = append(visible, q)
		}
	}
	for _, q := range visible {
		validateQuestion(q, out, errs)
	}
	for _, q := range visible {
		for _, fu := range q.ActiveFollowUps(out) {
			if fu.Visible(out) {
				validateQuestion(fu, out, errs)
			}
		}
	}
	return errs, out
}

func validateQuestion(q *Question, a Answers, errs Errors) {
	if q.Required && a.Empty(q.ID) {
		errs[q.ID] = q.Label + " is required"
		return
	}
	if a.Empty(q.ID) {
		return
	}
	value := a.String(q.ID)
	multi := len(a[q.ID]) > 1 || q.Type == TypeCheckbox

	if v := q.Validation; v != nil {
		switch v.Type {
		case ValidateCompanyDomain:
			if !multi {
				email := strings.ToLower(value)
				if _, domain, ok := strings.Cut(email, "@"); ok && slices.Contains(v.BlockedDomains, domain) {
					errs[q.ID] = "Please use your work email address. Personal email domains are not allowed."
				}
			}
		case ValidateRequiredValue:
			if multi || value != v.RequiredValue {
				msg := v.ErrorMessage
				if msg == "" {
					msg = `Must select "` + v.RequiredValue + `"`
				}
				errs[q.ID] = msg
			}
		case ValidateMinValue:
			if !multi && v.MinValue != nil {
				n, err := parseNumber(value)
				if err != nil || n < *v.MinValue {
					errs[q.ID] = "Must be at least " + strconv.FormatFloat(*v.MinValue, 'f', -1, 64)
				}
			}
		}
	}

	switch q.Type {
	case TypeEmail:
		if !emailPattern.MatchString(value) {
			errs[q.ID] = "Please enter a valid email format"
		}
	case TypeURL:
		a.Set(q.ID, NormalizeURL(value))
	case TypeNumber:
		if _, err := parseNumber(value); err != nil {
			errs[q.ID] = "Please enter a valid number"
		}
	}
}

// NormalizeURL prefixes https:// to values that carry no http(s) scheme.
func NormalizeURL(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") {
		return v
	}
	return "https://" + v
}
