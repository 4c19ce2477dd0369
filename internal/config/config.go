package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port              string        `yaml:"port"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	// ReadTimeout covers the whole request body, so it bounds how long a
	// pitch deck upload may take.
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	InstanceName string        `yaml:"instance_name"`
	// TrustedProxies are the addresses or CIDR ranges allowed to set
	// X-Forwarded-For. Empty means the peer address is always used.
	TrustedProxies []string `yaml:"trusted_proxies"`
	// BaseURL is the public origin used for links written into Airtable.
	BaseURL string `yaml:"base_url"`

	Airtable  AirtableConfig  `yaml:"airtable"`
	Calendly  CalendlyConfig  `yaml:"calendly"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Uploads   UploadsConfig   `yaml:"uploads"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	OpenAI    OpenAIConfig    `yaml:"openai"`

	WebhookURL      string `yaml:"webhook_url"`
	SchemaPath      string `yaml:"schema_path"`
	VideosPath      string `yaml:"videos_path"`
	DisplayTimezone string `yaml:"display_timezone"`
	StaticDir       string `yaml:"static_dir"`

	// LedgerEnabled mirrors leads into Postgres.
	LedgerEnabled bool `yaml:"ledger_enabled"`
	// AdminEnabled mounts the Google-authenticated staff pages.
	AdminEnabled bool `yaml:"admin_enabled"`
	// AdminEmails may sign in to the staff pages. An entry starting with "@"
	// admits a whole domain.
	AdminEmails []string `yaml:"admin_emails"`
}

type AirtableConfig struct {
	APIURL            string  `yaml:"api_url"`
	APIKey            string  `yaml:"api_key"`
	BaseID            string  `yaml:"base_id"`
	TableID           string  `yaml:"table_id"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

type CalendlyConfig struct {
	APIURL        string `yaml:"api_url"`
	Token         string `yaml:"token"`
	UserURI       string `yaml:"user_uri"`
	SchedulingURL string `yaml:"scheduling_url"`
}

type AnalysisConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type UploadsConfig struct {
	Dir            string   `yaml:"dir"`
	MaxBytes       int64    `yaml:"max_bytes"`
	AllowedTypes   []string `yaml:"allowed_types"`
	PerIPPerMinute int      `yaml:"per_ip_per_minute"`
}

type AnalyticsConfig struct {
	GA4ID    string `yaml:"ga4_id"`
	HotjarID string `yaml:"hotjar_id"`
	REB2BKey string `yaml:"reb2b_key"`
}

type OpenAIConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

func defaults() Config {
	return Config{
		Port:              "8080",
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
		InstanceName:      "flywheel-1",
		BaseURL:           "http://localhost:8080",
		Airtable: AirtableConfig{
			APIURL:            "https://api.airtable.com",
			RequestsPerSecond: 5,
		},
		Calendly: CalendlyConfig{
			APIURL:        "https://api.calendly.com",
			SchedulingURL: "https://calendly.com/jay-jdalchemy/talk-to-our-founders-to-clarify-anything",
		},
		Analysis: AnalysisConfig{
			URL:     "https://deckanalysis.fundraisingflywheel.io/api/pitch-deck-analysis",
			Timeout: 240 * time.Second,
		},
		Uploads: UploadsConfig{
			Dir:            "./data/uploads/pitch-decks",
			MaxBytes:       10 << 20,
			AllowedTypes:   []string{".pdf", ".pptx", ".key"},
			PerIPPerMinute: 20,
		},
		DisplayTimezone: "Asia/Bangkok",
		VideosPath:      "./data/my_video_data.csv",
		StaticDir:       "./web/static",
	}
}

// Load reads the optional CONFIG_FILE overlay and then applies the environment.
func Load() (Config, error) {
	cfg := defaults()
	if path := getEnv("CONFIG_FILE", ""); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return cfg, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("BACKEND_PORT", c.Port)
	c.ReadHeaderTimeout = getEnvAsDuration("READ_HEADER_TIMEOUT", c.ReadHeaderTimeout)
	c.ReadTimeout = getEnvAsDuration("READ_TIMEOUT", c.ReadTimeout)
	c.WriteTimeout = getEnvAsDuration("WRITE_TIMEOUT", c.WriteTimeout)
	c.IdleTimeout = getEnvAsDuration("IDLE_TIMEOUT", c.IdleTimeout)
	c.InstanceName = getEnv("INSTANCE_NAME", c.InstanceName)
	c.BaseURL = strings.TrimRight(getEnv("BASE_URL", c.BaseURL), "/")
	if v := getEnv("TRUSTED_PROXIES", ""); v != "" {
		c.TrustedProxies = splitList(v)
	}

	c.Airtable.APIURL = getEnv("AIRTABLE_API_URL", c.Airtable.APIURL)
	c.Airtable.APIKey = getEnv("AIRTABLE_API_KEY", c.Airtable.APIKey)
	c.Airtable.BaseID = getEnv("AIRTABLE_BASE_ID", c.Airtable.BaseID)
	c.Airtable.TableID = getEnv("AIRTABLE_TABLE_ID", c.Airtable.TableID)
	c.Airtable.RequestsPerSecond = getEnvAsFloat("AIRTABLE_RPS", c.Airtable.RequestsPerSecond)

	c.Calendly.APIURL = getEnv("CALENDLY_API_URL", c.Calendly.APIURL)
	c.Calendly.Token = getEnv("CALENDLY_PERSONAL_ACCESS_TOKEN", c.Calendly.Token)
	c.Calendly.UserURI = getEnv("CALENDLY_USER_URI", c.Calendly.UserURI)
	c.Calendly.SchedulingURL = getEnv("CALENDLY_SCHEDULING_URL", c.Calendly.SchedulingURL)

	c.Analysis.URL = getEnv("ANALYSIS_URL", c.Analysis.URL)
	c.Analysis.Timeout = getEnvAsDuration("ANALYSIS_TIMEOUT", c.Analysis.Timeout)

	c.Uploads.Dir = getEnv("UPLOAD_DIR", c.Uploads.Dir)
	c.Uploads.MaxBytes = int64(getEnvAsInt("UPLOAD_MAX_BYTES", int(c.Uploads.MaxBytes)))
	if v := getEnv("UPLOAD_ALLOWED_TYPES", ""); v != "" {
		c.Uploads.AllowedTypes = splitList(v)
	}
	c.Uploads.PerIPPerMinute = getEnvAsInt("UPLOAD_PER_IP_PER_MINUTE", c.Uploads.PerIPPerMinute)

	c.Analytics.GA4ID = getEnv("GA4_MEASUREMENT_ID", c.Analytics.GA4ID)
	c.Analytics.HotjarID = getEnv("HOTJAR_SITE_ID", c.Analytics.HotjarID)
	c.Analytics.REB2BKey = getEnv("REB2B_KEY", c.Analytics.REB2BKey)

	c.OpenAI.BaseURL = getEnv("OPENAI_BASE_URL", c.OpenAI.BaseURL)
	c.OpenAI.APIKey = getEnv("OPENAI_KEY", c.OpenAI.APIKey)
	c.OpenAI.Model = getEnv("OPENAI_MODEL", c.OpenAI.Model)

	c.WebhookURL = getEnv("WEBHOOK_URL", c.WebhookURL)
	c.SchemaPath = getEnv("FORM_SCHEMA_PATH", c.SchemaPath)
	c.VideosPath = getEnv("VIDEOS_CSV_PATH", c.VideosPath)
	c.DisplayTimezone = getEnv("DISPLAY_TIMEZONE", c.DisplayTimezone)
	c.StaticDir = getEnv("STATIC_DIR", c.StaticDir)

	c.LedgerEnabled = getEnvAsBool("LEDGER_ENABLED", c.LedgerEnabled)
	c.AdminEnabled = getEnvAsBool("ADMIN_ENABLED", c.AdminEnabled)
	if v := getEnv("ADMIN_EMAILS", ""); v != "" {
		c.AdminEmails = splitList(v)
	}
}

// Validate reports every missing setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.Airtable.APIKey == "" {
		errs = append(errs, errors.New("AIRTABLE_API_KEY is not set"))
	}
	if c.Airtable.BaseID == "" {
		errs = append(errs, errors.New("AIRTABLE_BASE_ID is not set"))
	}
	if c.Airtable.TableID == "" {
		errs = append(errs, errors.New("AIRTABLE_TABLE_ID is not set"))
	}
	if c.Uploads.MaxBytes <= 0 {
		errs = append(errs, errors.New("UPLOAD_MAX_BYTES must be positive"))
	}
	if _, err := time.LoadLocation(c.DisplayTimezone); err != nil {
		errs = append(errs, fmt.Errorf("DISPLAY_TIMEZONE: %w", err))
	}
	if c.ReadHeaderTimeout <= 0 {
		errs = append(errs, errors.New("READ_HEADER_TIMEOUT must be positive"))
	}
	for _, p := range c.TrustedProxies {
		if !validProxy(p) {
			errs = append(errs, fmt.Errorf("TRUSTED_PROXIES: %q is not an address or CIDR range", p))
		}
	}
	if c.AdminEnabled && !c.LedgerEnabled {
		errs = append(errs, errors.New("ADMIN_ENABLED requires LEDGER_ENABLED"))
	}
	if c.AdminEnabled && len(c.AdminEmails) == 0 {
		errs = append(errs, errors.New("ADMIN_ENABLED requires ADMIN_EMAILS"))
	}
	return errors.Join(errs...)
}

func validProxy(s string) bool {
	if _, err := netip.ParsePrefix(s); err == nil {
		return true
	}
	_, err := netip.ParseAddr(s)
	return err == nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if dur, err := time.ParseDuration(value); err == nil {
			return dur
		}
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
