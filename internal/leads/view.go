package leads

import (
	"context"
	"time"

	"Flywheel/internal/airtable"
	"Flywheel/internal/form"
)

// ScheduleLayout renders a booked call time for people reading the answer page.
const ScheduleLayout = "January 2, 2006 at 03:04 PM"

// LeadView is a lead as the answer page and its JSON endpoint show it.
type LeadView struct {
	ID                       string                 `json:"id"`
	FullName                 string                 `json:"fullName"`
	Email                    string                 `json:"email"`
	LinkedinProfile          string                 `json:"linkedinProfile"`
	CompanyWebsite           string                 `json:"companyWebsite"`
	PitchDeckURL             *string                `json:"pitchDeckUrl"`
	CalendlyScheduledTime    *string                `json:"calendlyScheduledTime"`
	CalendlyScheduledTimeRaw *string                `json:"calendlyScheduledTimeRaw"`
	MeetingLink              *string                `json:"meetingLink"`
	Answers                  map[string]form.Answer `json:"answers"`
	Questions                *form.Schema           `json:"questions"`
	SubmittedAt              string                 `json:"submittedAt"`

	// Blocks holds every stored "Question N" field split into its pairs, in order.
	Blocks []Block `json:"-"`
	// ApplicantRole is the formatted role text written at submission.
	ApplicantRole string `json:"-"`
}

type Block struct {
	Field string
	Items []form.QA
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Lookup reads the lead back from Airtable. A missing record matches
// airtable.ErrNotFound.
func (s *Service) Lookup(ctx context.Context, id string) (*LeadView, error) {
	rec, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(rec), nil
}

func (s *Service) view(rec *airtable.Record) *LeadView {
	v := &LeadView{
		ID:                       rec.ID,
		FullName:                 rec.String(airtable.FieldName),
		Email:                    rec.String(airtable.FieldEmail),
		LinkedinProfile:          rec.String(airtable.FieldLinkedinProfile),
		CompanyWebsite:           rec.String(airtable.FieldCompanyWebsite),
		PitchDeckURL:             optional(rec.String(airtable.FieldPitchDeckURL)),
		CalendlyScheduledTimeRaw: optional(rec.String(airtable.FieldCalendlyScheduled)),
		MeetingLink:              optional(rec.String(airtable.FieldMeetingLink)),
		Answers:                  make(map[string]form.Answer),
		Questions:                s.schemas.Schema(),
		ApplicantRole:            rec.String("Applicant Role"),
	}
	if raw := v.CalendlyScheduledTimeRaw; raw != nil {
		formatted := FormatSchedule(*raw, s.loc)
		v.CalendlyScheduledTime = &formatted
	}

	for _, key := range form.SortedQuestionFields(rec.Fields) {
		text, ok := rec.Fields[key].(string)
		if !ok || text == "" {
			continue
		}
		v.Answers[key] = form.ParseAnswerField(text)
		v.Blocks = append(v.Blocks, Block{Field: key, Items: form.ParseBlocks(text)})
	}

	switch {
	case rec.String(airtable.FieldCreated) != "":
		v.SubmittedAt = rec.String(airtable.FieldCreated)
	case rec.CreatedTime != "":
		v.SubmittedAt = rec.CreatedTime
	default:
		v.SubmittedAt = s.now().UTC().Format(time.RFC3339)
	}
	return v
}

// FormatSchedule shows an RFC 3339 time in loc. Values that do not parse are
// returned unchanged.
func FormatSchedule(raw string, loc *time.Location) string {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return raw
	}
	return t.In(loc).Format(ScheduleLayout)
}
