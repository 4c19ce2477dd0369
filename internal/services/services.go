package services

import (
	"fmt"
	"log"
	"time"

	"Flywheel/internal/airtable"
	"Flywheel/internal/analysis"
	"Flywheel/internal/calendly"
	"Flywheel/internal/config"
	"Flywheel/internal/form"
	"Flywheel/internal/leads"
	"Flywheel/internal/openai"
	"Flywheel/internal/uploads"
	"Flywheel/internal/webhook"
)

// Services are the clients and stores the handlers share.
type Services struct {
	Airtable *airtable.Client
	Calendly *calendly.Client
	Analysis *analysis.Client
	Uploads  *uploads.Store
	Webhook  *webhook.Notifier
	Schemas  *form.Registry
	Leads    *leads.Service
	Briefer  *openai.Briefer
	Location *time.Location
}

func New(cfg config.Config) (*Services, error) {
	loc, err := time.LoadLocation(cfg.DisplayTimezone)
	if err != nil {
		return nil, fmt.Errorf("display timezone: %w", err)
	}

	schemas, err := form.NewRegistry(cfg.SchemaPath)
	if err != nil {
		return nil, fmt.Errorf("form schema: %w", err)
	}

	at := airtable.NewClient(cfg.Airtable)

	hook := webhook.NewNotifier(cfg.WebhookURL)
	if !hook.Enabled() {
		log.Printf("WEBHOOK_URL not set; lead webhooks are disabled")
	}

	briefer := openai.NewBriefer(cfg.OpenAI)
	if cfg.AdminEnabled && !briefer.Enabled() {
		log.Printf("OPENAI_BASE_URL, OPENAI_KEY or OPENAI_MODEL not set; lead briefs are disabled")
	}

	return &Services{
		Airtable: at,
		Calendly: calendly.NewClient(cfg.Calendly),
		Analysis: analysis.NewClient(cfg.Analysis),
		Uploads:  uploads.NewStore(cfg.Uploads),
		Webhook:  hook,
		Schemas:  schemas,
		Leads:    leads.NewService(at, hook, schemas, cfg.BaseURL, loc),
		Briefer:  briefer,
		Location: loc,
	}, nil
}
