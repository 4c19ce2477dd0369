package form

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Airtable field written with the uploaded file links.
const FieldPitchDeckURL = "Pitch Deck URL"

// SubmissionKeyPitchDeck carries the uploaded file links in a client-built body.
const SubmissionKeyPitchDeck = "pitchDeckUrl"

// Contact questions folded into the applicant role field.
const (
	QuestionApplicantRole        = "applicantRole"
	QuestionApplicantRoleOther   = "applicantRoleOther"
	QuestionFounderCEOAttendance = "founderCeoAttendance"
	QuestionFullName             = "fullName"
	QuestionEmail                = "email"
)

// QuestionField names the Airtable column that holds the n-th answered section.
func QuestionField(n int) string {
	return "Question " + strconv.Itoa(n)
}

// BuildSubmission flattens the answers into Airtable fields. Contact answers go
// to their mapped columns; every other section that has at least one answer
// becomes one "Question N" block, numbered without gaps.
func BuildSubmission(s *Schema, a Answers) map[string]string {
	fields := make(map[string]string)

	if contact, ok := s.Section(ContactSectionID); ok {
		for i := range contact.Questions {
			q := &contact.Questions[i]
			if q.AirtableField == "" {
				continue
			}
			var v string
			if q.ID == QuestionApplicantRole {
				v = formatApplicantRole(a)
			} else {
				v = a.Display(q.ID)
			}
			if v != "" {
				fields[q.AirtableField] = v
			}
		}
	}

	n := 1
	for i := range s.Sections {
		sec := &s.Sections[i]
		if sec.ID == ContactSectionID {
			continue
		}
		var blocks []string
		for j := range sec.Questions {
			q := &sec.Questions[j]
			if !q.Visible(a) {
				continue
			}
			if !a.Empty(q.ID) {
				blocks = append(blocks, formatBlock(q.Label, a.Display(q.ID)))
			}
			for _, fu := range q.ActiveFollowUps(a) {
				if !a.Empty(fu.ID) {
					blocks = append(blocks, formatBlock(fu.Label, a.Display(fu.ID)))
				}
			}
		}
		if len(blocks) > 0 {
			fields[QuestionField(n)] = strings.Join(blocks, "\n\n")
			n++
		}
	}

	if urls := FileURLs(s, a); len(urls) > 0 {
		fields[FieldPitchDeckURL] = strings.Join(urls, ", ")
	}
	return fields
}

// FileURLs lists the links of every uploaded file answer in schema order.
func FileURLs(s *Schema, a Answers) []string {
	var urls []string
	for _, q := range s.Questions() {
		if q.Type != TypeFile {
			continue
		}
		for _, v := range a[q.ID] {
			if v != "" {
				urls = append(urls, v)
			}
		}
	}
	return urls
}

func formatApplicantRole(a Answers) string {
	role := a.String(QuestionApplicantRole)
	if role == "" {
		return ""
	}
	out := "Applicant Role: " + role
	if role == "Other" && !a.Empty(QuestionApplicantRoleOther) {
		out += " (" + a.String(QuestionApplicantRoleOther) + ")"
	}
	if role != "Founder/CEO" && !a.Empty(QuestionFounderCEOAttendance) {
		out += "\nFounder/CEO will attend call: " + a.String(QuestionFounderCEOAttendance)
	}
	return out
}

func formatBlock(label, answer string) string {
	return "Question:\n" + label + "\nAnswer:\n" + answer
}

// SubmissionFields filters a client-built submission body down to the fields
// Airtable accepts: mapped contact columns, "Question N" blocks for the
// non-contact sections, and the pitch deck link.
func SubmissionFields(s *Schema, body map[string]any) map[string]string {
	fields := make(map[string]string)
	str := func(key string) string {
		switch v := body[key].(type) {
		case string:
			return v
		case nil:
			return ""
		case bool:
			if !v {
				return ""
			}
			return "true"
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		default:
			return fmt.Sprint(v)
		}
	}

	sections := 0
	for i := range s.Sections {
		sec := &s.Sections[i]
		if sec.ID == ContactSectionID {
			for _, q := range sec.Questions {
				if q.AirtableField != "" && str(q.AirtableField) != "" {
					fields[q.AirtableField] = str(q.AirtableField)
				}
			}
			continue
		}
		sections++
	}
	for n := 1; n <= sections; n++ {
		if v := str(QuestionField(n)); v != "" {
			fields[QuestionField(n)] = v
		}
	}
	if v := str(SubmissionKeyPitchDeck); v != "" {
		fields[FieldPitchDeckURL] = v
	}
	return fields
}

// Answer is a parsed answer: one string, or a list when the stored text was a
// comma-separated selection.
type Answer []string

func (a Answer) MarshalJSON() ([]byte, error) {
	if len(a) == 1 {
		return json.Marshal(a[0])
	}
	return json.Marshal([]string(a))
}

func (a Answer) String() string { return strings.Join(a, ", ") }

// ParseAnswerField reads the answer part of a stored "Question N" value: the
// text after the first "Answer:" line. Without such a line the raw value is kept.
func ParseAnswerField(value string) Answer {
	lines := strings.Split(value, "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "Answer:") && i+1 < len(lines) {
			text := strings.TrimSpace(strings.Join(lines[i+1:], "\n"))
			if strings.Contains(text, ", ") {
				parts := strings.Split(text, ", ")
				for j := range parts {
					parts[j] = strings.TrimSpace(parts[j])
				}
				return parts
			}
			return Answer{text}
		}
	}
	return Answer{value}
}

// QA is one question/answer pair recovered from a stored block.
type QA struct {
	Question string `json:"question"`
	Answer   Answer `json:"answer"`
}

// ParseBlocks splits a stored "Question N" value back into its pairs.
func ParseBlocks(value string) []QA {
	var (
		out     []QA
		label   []string
		answer  []string
		inLabel bool
		inAns   bool
	)
	flush := func() {
		if !inLabel && !inAns {
			return
		}
		text := strings.TrimSpace(strings.Join(answer, "\n"))
		a := Answer{text}
		if strings.Contains(text, ", ") {
			a = strings.Split(text, ", ")
		}
		out = append(out, QA{Question: strings.TrimSpace(strings.Join(label, "\n")), Answer: a})
		label, answer = nil, nil
	}
	for _, line := range strings.Split(value, "\n") {
		switch {
		case line == "Question:":
			flush()
			inLabel, inAns = true, false
		case line == "Answer:" && inLabel:
			inLabel, inAns = false, true
		case inLabel:
			label = append(label, line)
		case inAns:
			answer = append(answer, line)
		}
	}
	flush()
	if len(out) == 0 && strings.TrimSpace(value) != "" {
		return []QA{{Answer: Answer{value}}}
	}
	return out
}

// SortedQuestionFields returns the "Question N" keys of fields ordered by N.
func SortedQuestionFields(fields map[string]any) []string {
	var keys []string
	for k := range fields {
		if strings.HasPrefix(k, "Question ") {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, ei := strconv.Atoi(strings.TrimPrefix(keys[i], "Question "))
		nj, ej := strconv.Atoi(strings.TrimPrefix(keys[j], "Question "))
		if ei != nil || ej != nil {
			return keys[i] < keys[j]
		}
		return ni < nj
	})
	return keys
}
