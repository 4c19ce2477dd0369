package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	pulpuwebAuth "github.com/gchalakovmmi/PulpuWEB/auth"
	"github.com/gchalakovmmi/PulpuWEB/db"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"Flywheel/internal/config"
	appdb "Flywheel/internal/db"
	"Flywheel/internal/handlers"
	"Flywheel/internal/handlers/admin"
	"Flywheel/internal/handlers/answer"
	"Flywheel/internal/handlers/api"
	appAuth "Flywheel/internal/handlers/auth"
	"Flywheel/internal/handlers/bookacall"
	"Flywheel/internal/handlers/callconfirmed"
	"Flywheel/internal/handlers/health"
	"Flywheel/internal/handlers/landing"
	"Flywheel/internal/middleware"
	"Flywheel/internal/services"
)

const shutdownTimeout = 30 * time.Second

type Server struct {
	config              config.Config
	logger              *zap.Logger
	googleAuth          *pulpuwebAuth.GoogleAuth
	authHandler         *appAuth.AuthHandler
	dbConnectionDetails db.ConnectionDetails
	services            *services.Services
	site                handlers.Site
	uploadLimiter       *middleware.IPLimiter
	schemaReady         atomic.Bool
}

func New(cfg config.Config, logger *zap.Logger) (*Server, error) {
	svc, err := services.New(cfg)
	if err != nil {
		return nil, err
	}
	s := newServer(cfg, logger, svc)

	if cfg.LedgerEnabled {
		s.dbConnectionDetails, err = db.GetPostgresConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to get database config: %w", err)
		}
	}
	if cfg.AdminEnabled {
		authConfig, err := pulpuwebAuth.GetGoogleAuthConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to get Google auth config: %w", err)
		}
		s.googleAuth = pulpuwebAuth.NewGoogleAuth(authConfig)
		s.authHandler = appAuth.NewAuthHandler(s.googleAuth, cfg.AdminEmails)
	}
	return s, nil
}

func newServer(cfg config.Config, logger *zap.Logger, svc *services.Services) *Server {
	proxies, err := middleware.ParseProxies(cfg.TrustedProxies)
	if err != nil {
		logger.Warn("ignoring trusted proxies", zap.Error(err))
	}
	return &Server{
		config:        cfg,
		logger:        logger,
		services:      svc,
		site:          handlers.Site{Analytics: cfg.Analytics, Location: svc.Location},
		uploadLimiter: middleware.NewIPLimiter(cfg.Uploads.PerIPPerMinute, proxies),
	}
}

// withLedger hands the handler a Postgres connection when the ledger is on
// and nil otherwise. The ledger tables are created on first use.
func (s *Server) withLedger(handler func(http.ResponseWriter, *http.Request, *pgx.Conn)) http.HandlerFunc {
	if !s.config.LedgerEnabled {
		return func(w http.ResponseWriter, r *http.Request) {
			handler(w, r, nil)
		}
	}
	return db.WithDB(s.dbConnectionDetails, s.ensureSchema(handler))
}

func (s *Server) ensureSchema(handler func(http.ResponseWriter, *http.Request, *pgx.Conn)) func(http.ResponseWriter, *http.Request, *pgx.Conn) {
	return func(w http.ResponseWriter, r *http.Request, conn *pgx.Conn) {
		if !s.schemaReady.Load() {
			if err := appdb.EnsureSchema(r.Context(), conn); err != nil {
				log.Printf("Ledger schema setup failed: %v", err)
			} else {
				s.schemaReady.Store(true)
			}
		}
		handler(w, r, conn)
	}
}

func (s *Server) createHandler() http.Handler {
	mux := http.NewServeMux()
	svc := s.services

	// Serve static files
	mux.Handle("GET /static/", http.StripPrefix("/static/",
		http.FileServer(http.Dir(s.config.StaticDir))))

	mux.HandleFunc("GET /health", health.Handler)

	// Pages
	book := &bookacall.Handler{
		Site:          s.site,
		Leads:         svc.Leads,
		Uploads:       svc.Uploads,
		SchedulingURL: s.config.Calendly.SchedulingURL,
	}
	answers := &answer.Handler{Site: s.site, Leads: svc.Leads}
	mux.HandleFunc("/", landing.Handler(s.site))
	mux.HandleFunc("GET /book-a-call", book.Get)
	mux.HandleFunc("POST /book-a-call", s.withLedger(book.Post))
	mux.HandleFunc("GET /call-confirmed", callconfirmed.Handler(s.site, s.config.VideosPath))
	mux.HandleFunc("GET /lead-qualification-answer/{id}", answers.Page)

	// API routes
	a := &api.Handler{
		Leads:    svc.Leads,
		Calendly: svc.Calendly,
		Analysis: svc.Analysis,
		Uploads:  svc.Uploads,
	}
	mux.HandleFunc("POST /api/contact", s.withLedger(a.Contact))
	mux.HandleFunc("PATCH /api/update-contact", s.withLedger(a.UpdateContact))
	mux.HandleFunc("GET /api/lead-qualification/{id}", answers.API)
	mux.HandleFunc("GET /api/calendly-latest-event", a.CalendlyLatestEvent)
	mux.HandleFunc("POST /api/upload-pitch-deck", s.uploadLimiter.Limit(a.UploadPitchDeck))
	mux.HandleFunc("GET /api/serve-pitch-deck/{filename}", a.ServePitchDeck)
	mux.HandleFunc("POST /api/analyze-pitch-deck", s.uploadLimiter.Limit(a.AnalyzePitchDeck))
	mux.HandleFunc("GET /api/form/sections", a.Sections)

	if s.config.AdminEnabled && s.googleAuth != nil {
		s.adminRoutes(mux)
	}

	return middleware.Chain(mux,
		middleware.RequestID,
		middleware.AccessLog(s.logger),
		middleware.Recover,
	)
}

func (s *Server) adminRoutes(mux *http.ServeMux) {
	staff := &admin.Handler{Site: s.site, Leads: s.services.Leads, Briefer: s.services.Briefer}

	// Authentication routes
	mux.HandleFunc("/auth/google", s.authHandler.BeginAuthHandler)
	mux.HandleFunc("/auth/google/callback",
		db.WithDB(s.dbConnectionDetails, s.ensureSchema(s.authHandler.AuthCallbackHandlerWithDB)))
	mux.HandleFunc("/logout/google", s.authHandler.LogoutHandler)

	mux.HandleFunc("GET /admin/leads",
		middleware.WithUser(s.googleAuth,
			middleware.WithDBAndAuth(s.dbConnectionDetails, s.googleAuth, s.ensureSchema(staff.List))))
	mux.HandleFunc("GET /admin/leads/{id}",
		middleware.WithUser(s.googleAuth, s.googleAuth.WithGoogleAuth(staff.Detail)))
}

func (s *Server) httpServer() *http.Server {
	return &http.Server{
		Addr:              ":" + s.config.Port,
		Handler:           s.createHandler(),
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		ReadTimeout:       s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       s.config.IdleTimeout,
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests. The form
// schema file is watched for the lifetime of the server.
func (s *Server) Run(ctx context.Context) error {
	server := s.httpServer()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.services.Schemas.Watch(ctx); err != nil {
			log.Printf("Schema hot reload is off: %v", err)
		}
		return nil
	})
	g.Go(func() error {
		log.Printf("Serving on port %s...", s.config.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
