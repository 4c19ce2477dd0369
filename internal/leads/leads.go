// Package leads runs the handoff after an applicant finishes the form: the
// Airtable record, its answer-page link, the automation webhook and the
// Postgres ledger. It also reads a lead back for the answer page.
package leads

import (
	"context"
	"errors"
	"log"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"

	"Flywheel/internal/airtable"
	"Flywheel/internal/db"
	"Flywheel/internal/form"
)

// AnswerPath is the page that shows a lead's answers.
const AnswerPath = "/lead-qualification-answer/"

// Store is the Airtable table leads live in.
type Store interface {
	CreateRecord(ctx context.Context, fields map[string]any) (*airtable.Record, error)
	UpdateRecord(ctx context.Context, id string, fields map[string]any) (*airtable.Record, error)
	GetRecord(ctx context.Context, id string) (*airtable.Record, error)
}

type Notifier interface {
	Notify(ctx context.Context, recordID string) error
}

// SchemaSource hands out the schema currently in force.
type SchemaSource interface {
	Schema() *form.Schema
}

// ValidationError is a request the caller must fix; Message is shown as is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

type Service struct {
	store    Store
	notifier Notifier
	schemas  SchemaSource
	baseURL  string
	loc      *time.Location
	now      func() time.Time
}

func NewService(store Store, notifier Notifier, schemas SchemaSource, baseURL string, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		store:    store,
		notifier: notifier,
		schemas:  schemas,
		baseURL:  baseURL,
		loc:      loc,
		now:      time.Now,
	}
}

func (s *Service) Schema() *form.Schema { return s.schemas.Schema() }

// AnswerURL is the public link to a lead's answer page.
func (s *Service) AnswerURL(recordID string) string {
	return s.baseURL + AnswerPath + url.PathEscape(recordID)
}

type SubmitResult struct {
	Success              bool   `json:"success"`
	Message              string `json:"message"`
	ID                   string `json:"id"`
	LeadQualificationURL string `json:"leadQualificationUrl"`
}

// Submit creates the Airtable record and then, in parallel, links the answer
// page and pings the webhook (in that order) and mirrors the lead into the
// ledger. Only the record creation can fail the submission; the follow-up
// steps are logged.
func (s *Service) Submit(ctx context.Context, conn *pgx.Conn, fields map[string]string) (*SubmitResult, error) {
	payload := make(map[string]any, len(fields))
	for k, v := range fields {
		payload[k] = v
	}
	rec, err := s.store.CreateRecord(ctx, payload)
	if err != nil {
		return nil, err
	}
	answerURL := s.AnswerURL(rec.ID)
	log.Printf("Lead %s created", rec.ID)

	var g errgroup.Group
	g.Go(func() error {
		if _, err := s.store.UpdateRecord(ctx, rec.ID, map[string]any{airtable.FieldLeadQualificationURL: answerURL}); err != nil {
			log.Printf("Failed to link answer page for %s: %v", rec.ID, err)
		}
		if s.notifier != nil {
			if err := s.notifier.Notify(ctx, rec.ID); err != nil {
				log.Printf("Webhook failed for %s: %v", rec.ID, err)
			}
		}
		return nil
	})
	g.Go(func() error {
		err := db.RecordSubmission(ctx, conn, db.Lead{
			RecordID:       rec.ID,
			FullName:       fields[airtable.FieldName],
			Email:          fields[airtable.FieldEmail],
			CompanyWebsite: fields[airtable.FieldCompanyWebsite],
			PitchDeckURL:   fields[airtable.FieldPitchDeckURL],
		})
		if err != nil {
			log.Printf("Ledger write failed for %s: %v", rec.ID, err)
		}
		return nil
	})
	_ = g.Wait()

	return &SubmitResult{
		Success:              true,
		Message:              "Contact information submitted successfully",
		ID:                   rec.ID,
		LeadQualificationURL: answerURL,
	}, nil
}

// Update carries the handoff fields that arrive after submission.
type Update struct {
	RecordID                    string `json:"recordId"`
	PitchDeckURL                string `json:"pitchDeckUrl,omitempty"`
	JoinLink                    string `json:"joinLink,omitempty"`
	CalendlyEventScheduledTime  string `json:"calendlyEventScheduledTime,omitempty"`
	PitchDeckAnalysisReportLink string `json:"pitchDeckAnalysisReportLink,omitempty"`
}

// Fields checks the update and maps it onto Airtable columns.
func (u Update) Fields() (map[string]any, error) {
	if u.RecordID == "" {
		return nil, &ValidationError{Message: "Record ID is required"}
	}
	if u.PitchDeckURL == "" && u.JoinLink == "" && u.CalendlyEventScheduledTime == "" && u.PitchDeckAnalysisReportLink == "" {
		return nil, &ValidationError{Message: "No fields provided to update"}
	}
	if u.PitchDeckURL != "" && !absoluteURL(u.PitchDeckURL) {
		return nil, &ValidationError{Message: "Invalid URL format"}
	}
	if u.PitchDeckAnalysisReportLink != "" && !absoluteURL(u.PitchDeckAnalysisReportLink) {
		return nil, &ValidationError{Message: "Invalid pitch deck analysis report link URL format"}
	}

	fields := make(map[string]any)
	if u.PitchDeckURL != "" {
		fields[airtable.FieldPitchDeckURL] = u.PitchDeckURL
	}
	if u.JoinLink != "" {
		fields[airtable.FieldMeetingLink] = u.JoinLink
	}
	if u.CalendlyEventScheduledTime != "" {
		fields[airtable.FieldCalendlyScheduled] = u.CalendlyEventScheduledTime
	}
	if u.PitchDeckAnalysisReportLink != "" {
		fields[airtable.FieldAnalysisReportLink] = u.PitchDeckAnalysisReportLink
	}
	return fields, nil
}

func absoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && (u.Host != "" || u.Opaque != "")
}

// UpdateContact patches the lead and mirrors the change into the ledger.
func (s *Service) UpdateContact(ctx context.Context, conn *pgx.Conn, u Update) (*airtable.Record, error) {
	fields, err := u.Fields()
	if err != nil {
		return nil, err
	}
	rec, err := s.store.UpdateRecord(ctx, u.RecordID, fields)
	if err != nil {
		return nil, err
	}
	err = db.RecordUpdate(ctx, conn, u.RecordID, db.LeadUpdate{
		PitchDeckURL:  u.PitchDeckURL,
		ScheduledTime: u.CalendlyEventScheduledTime,
		MeetingLink:   u.JoinLink,
	})
	if err != nil {
		log.Printf("Ledger update failed for %s: %v", u.RecordID, err)
	}
	return rec, nil
}

// IsNotFound reports whether err means the lead does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, airtable.ErrNotFound)
}
