// Package bookacall renders the lead-qualification wizard one section at a
// time and, once the lead is stored, the Calendly booking step.
package bookacall

import (
	"encoding/json"
	"net/url"
	"strings"

	"Flywheel/internal/form"
)

// Form field names that are not schema questions.
const (
	FieldStep   = "_step"
	FieldAction = "_action"

	ActionNext = "next"
	ActionBack = "back"
)

const calendlyWidget = "https://assets.calendly.com/assets/external/widget.js"

// View is one render of the wizard.
type View struct {
	Schema  *form.Schema
	Index   int
	Answers form.Answers
	Errors  form.Errors
	// FormError is shown above the section when the request itself failed.
	FormError string
	// Stopped holds the hard-stop message once the applicant is disqualified.
	Stopped string
	Booking *Booking
	// Accept lists the extensions the pitch-deck input offers.
	Accept []string
}

// Booking is the scheduling step shown after the lead has been stored.
type Booking struct {
	RecordID      string
	Name          string
	Email         string
	SchedulingURL string
}

// Scripts returns the extra scripts the view needs.
func (v View) Scripts() []string {
	if v.Booking != nil {
		return []string{calendlyWidget, "/static/js/booking.js"}
	}
	return []string{"/static/js/wizard.js"}
}

func (v View) section() *form.Section { return &v.Schema.Sections[v.Index] }

func (v View) last() bool { return v.Index == len(v.Schema.Sections)-1 }

func (v View) submitLabel() string {
	if v.last() {
		return "Submit"
	}
	return "Next"
}

// bookingURL pre-fills the scheduling page with the applicant's details.
func bookingURL(b *Booking) string {
	u, err := url.Parse(b.SchedulingURL)
	if err != nil {
		return b.SchedulingURL
	}
	q := u.Query()
	if b.Name != "" {
		q.Set("name", b.Name)
	}
	if b.Email != "" {
		q.Set("email", b.Email)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

type hiddenField struct {
	Name, Value string
}

// carried keeps the other sections' answers in the form as hidden inputs.
func (v View) carried() []hiddenField {
	sec := v.section()
	own := make(map[string]bool)
	for i := range sec.Questions {
		q := &sec.Questions[i]
		own[q.ID] = true
		for j := range q.ConditionalQuestions {
			own[q.ConditionalQuestions[j].Question.ID] = true
		}
	}
	var out []hiddenField
	for _, q := range v.Schema.Questions() {
		if own[q.ID] {
			continue
		}
		for _, val := range v.Answers.Values(q.ID) {
			out = append(out, hiddenField{Name: q.ID, Value: val})
		}
	}
	return out
}

// showIf is the condition as wizard.js reads it from data-show-if.
func showIf(c *form.Condition) string {
	b, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return string(b)
}

func hiddenNow(c *form.Condition, a form.Answers) bool {
	return c != nil && !c.Holds(a)
}

func inputID(q *form.Question) string { return "q-" + q.ID }

// inputType maps a question to its input type. URLs are accepted without a
// scheme and normalized on the server.
func inputType(q *form.Question) string {
	if q.Type == form.TypeURL {
		return form.TypeText
	}
	return q.Type
}

func accept(q *form.Question, v View) string {
	if len(q.AllowedTypes) > 0 {
		return strings.Join(q.AllowedTypes, ",")
	}
	return strings.Join(v.Accept, ",")
}

// FileInputName is the multipart field a file question's upload arrives in.
func FileInputName(q *form.Question) string { return q.ID + "File" }
