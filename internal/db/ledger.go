package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ErrLeadNotFound is returned when the ledger has no row for a record id.
var ErrLeadNotFound = errors.New("lead not found")

// Lead mirrors the parts of an Airtable lead the team looks at most. Every
// function below is a no-op on a nil connection, which is how a disabled
// ledger is represented.
type Lead struct {
	RecordID       string
	FullName       string
	Email          string
	CompanyWebsite string
	PitchDeckURL   string
	ScheduledTime  string
	MeetingLink    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// LeadUpdate holds the handoff fields that arrive after the first submission.
// Empty fields leave the stored value alone.
type LeadUpdate struct {
	PitchDeckURL  string
	ScheduledTime string
	MeetingLink   string
}

func (u LeadUpdate) Empty() bool {
	return u.PitchDeckURL == "" && u.ScheduledTime == "" && u.MeetingLink == ""
}

func RecordSubmission(ctx context.Context, conn *pgx.Conn, lead Lead) error {
	if conn == nil {
		return nil
	}
	_, err := conn.Exec(ctx, `
        INSERT INTO leads (record_id, full_name, email, company_website, pitch_deck_url)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (record_id) DO UPDATE SET
            full_name = EXCLUDED.full_name,
            email = EXCLUDED.email,
            company_website = EXCLUDED.company_website,
            pitch_deck_url = EXCLUDED.pitch_deck_url,
            updated_at = CURRENT_TIMESTAMP`,
		lead.RecordID,
		lead.FullName,
		lead.Email,
		lead.CompanyWebsite,
		lead.PitchDeckURL,
	)
	if err != nil {
		return fmt.Errorf("database insert error: %w", err)
	}
	return nil
}

// RecordUpdate applies a handoff update. A record the ledger has not seen yet
// gets a row of its own so later updates are not lost.
func RecordUpdate(ctx context.Context, conn *pgx.Conn, recordID string, u LeadUpdate) error {
	if conn == nil || u.Empty() {
		return nil
	}
	_, err := conn.Exec(ctx, `
        INSERT INTO leads (record_id, pitch_deck_url, scheduled_time, meeting_link)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (record_id) DO UPDATE SET
            pitch_deck_url = COALESCE(NULLIF(EXCLUDED.pitch_deck_url, ''), leads.pitch_deck_url),
            scheduled_time = COALESCE(NULLIF(EXCLUDED.scheduled_time, ''), leads.scheduled_time),
            meeting_link = COALESCE(NULLIF(EXCLUDED.meeting_link, ''), leads.meeting_link),
            updated_at = CURRENT_TIMESTAMP`,
		recordID,
		u.PitchDeckURL,
		u.ScheduledTime,
		u.MeetingLink,
	)
	if err != nil {
		return fmt.Errorf("database update error: %w", err)
	}
	return nil
}

const leadColumns = `record_id, full_name, email, company_website, pitch_deck_url,
            scheduled_time, meeting_link, created_at, updated_at`

func scanLead(row pgx.Row) (*Lead, error) {
	var l Lead
	err := row.Scan(
		&l.RecordID, &l.FullName, &l.Email, &l.CompanyWebsite, &l.PitchDeckURL,
		&l.ScheduledTime, &l.MeetingLink, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// ListRecent returns the newest leads first.
func ListRecent(ctx context.Context, conn *pgx.Conn, limit int) ([]Lead, error) {
	if conn == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := conn.Query(ctx, `
        SELECT `+leadColumns+`
        FROM leads
        ORDER BY created_at DESC
        LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("database query error: %w", err)
	}
	defer rows.Close()

	var out []Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("database scan error: %w", err)
		}
		out = append(out, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database query error: %w", err)
	}
	return out, nil
}

func GetLead(ctx context.Context, conn *pgx.Conn, recordID string) (*Lead, error) {
	if conn == nil {
		return nil, ErrLeadNotFound
	}
	l, err := scanLead(conn.QueryRow(ctx, `
        SELECT `+leadColumns+`
        FROM leads
        WHERE record_id = $1`, recordID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrLeadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("database query error: %w", err)
	}
	return l, nil
}
