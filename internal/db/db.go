package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/markbates/goth"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS leads (
    record_id       TEXT PRIMARY KEY,
    full_name       TEXT NOT NULL DEFAULT '',
    email           TEXT NOT NULL DEFAULT '',
    company_website TEXT NOT NULL DEFAULT '',
    pitch_deck_url  TEXT NOT NULL DEFAULT '',
    scheduled_time  TEXT NOT NULL DEFAULT '',
    meeting_link    TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS staff (
    id             SERIAL PRIMARY KEY,
    provider       TEXT NOT NULL,
    id_by_provider TEXT NOT NULL,
    name           TEXT NOT NULL DEFAULT '',
    email          TEXT NOT NULL DEFAULT '',
    picture_link   TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (provider, id_by_provider)
);`

// EnsureSchema creates the ledger tables when they are missing.
func EnsureSchema(ctx context.Context, conn *pgx.Conn) error {
	if conn == nil {
		return nil
	}
	if _, err := conn.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("database schema error: %w", err)
	}
	return nil
}

// Staff is a team member who signed in to the admin pages.
type Staff struct {
	ID           int
	Provider     string
	IDByProvider string
	Name         string
	Email        string
	PictureLink  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// GetOrCreateStaff records a Google sign-in, refreshing the stored profile
// when it has changed.
func GetOrCreateStaff(conn *pgx.Conn, authUser goth.User) (*Staff, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var s Staff
	var inserted bool
	err := conn.QueryRow(ctx, `
        INSERT INTO staff (provider, id_by_provider, name, email, picture_link)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (provider, id_by_provider) DO UPDATE SET
            name = EXCLUDED.name,
            email = EXCLUDED.email,
            picture_link = EXCLUDED.picture_link,
            updated_at = CASE
                WHEN staff.name IS DISTINCT FROM EXCLUDED.name
                  OR staff.email IS DISTINCT FROM EXCLUDED.email
                  OR staff.picture_link IS DISTINCT FROM EXCLUDED.picture_link
                THEN CURRENT_TIMESTAMP ELSE staff.updated_at END
        RETURNING id, provider, id_by_provider, name, email, picture_link,
            created_at, updated_at, (xmax = 0)`,
		authUser.Provider,
		authUser.UserID,
		authUser.Name,
		authUser.Email,
		authUser.AvatarURL,
	).Scan(
		&s.ID, &s.Provider, &s.IDByProvider, &s.Name, &s.Email,
		&s.PictureLink, &s.CreatedAt, &s.UpdatedAt, &inserted,
	)
	if err != nil {
		return nil, fmt.Errorf("error storing staff member: %w", err)
	}
	if inserted {
		log.Printf("New staff member signed in: %s (%s)", s.Name, s.Email)
	}
	return &s, nil
}
