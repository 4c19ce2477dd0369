package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.airtable.com", cfg.Airtable.APIURL)
	assert.Equal(t, 240*time.Second, cfg.Analysis.Timeout)
	assert.Equal(t, int64(10<<20), cfg.Uploads.MaxBytes)
	assert.Equal(t, "Asia/Bangkok", cfg.DisplayTimezone)
	assert.Equal(t, 10*time.Second, cfg.ReadHeaderTimeout)
	assert.GreaterOrEqual(t, cfg.ReadTimeout, 5*time.Minute, "a 10MB deck on a slow link must fit")
	assert.Empty(t, cfg.TrustedProxies)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("BACKEND_PORT", "3015")
	t.Setenv("BASE_URL", "http://158.247.207.5:3015/")
	t.Setenv("AIRTABLE_RPS", "2.5")
	t.Setenv("UPLOAD_ALLOWED_TYPES", ".pdf, .pptx,,.key")
	t.Setenv("LEDGER_ENABLED", "true")
	t.Setenv("READ_TIMEOUT", "not-a-duration")
	t.Setenv("READ_HEADER_TIMEOUT", "5s")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 127.0.0.1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3015", cfg.Port)
	assert.Equal(t, "http://158.247.207.5:3015", cfg.BaseURL)
	assert.Equal(t, 2.5, cfg.Airtable.RequestsPerSecond)
	assert.Equal(t, []string{".pdf", ".pptx", ".key"}, cfg.Uploads.AllowedTypes)
	assert.True(t, cfg.LedgerEnabled)
	assert.Equal(t, 5*time.Minute, cfg.ReadTimeout, "bad durations keep the default")
	assert.Equal(t, 5*time.Second, cfg.ReadHeaderTimeout)
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, cfg.TrustedProxies)
}

func TestLoad_FileOverlayThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flywheel.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9000"
airtable:
  base_id: appFromFile
  table_id: tblFromFile
uploads:
  max_bytes: 2048
`), 0o644))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("AIRTABLE_TABLE_ID", "tblFromEnv")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "appFromFile", cfg.Airtable.BaseID)
	assert.Equal(t, "tblFromEnv", cfg.Airtable.TableID)
	assert.Equal(t, int64(2048), cfg.Uploads.MaxBytes)
	assert.Equal(t, "https://api.airtable.com", cfg.Airtable.APIURL, "unset keys keep defaults")
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := defaults()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AIRTABLE_API_KEY")
	assert.Contains(t, err.Error(), "AIRTABLE_BASE_ID")
	assert.Contains(t, err.Error(), "AIRTABLE_TABLE_ID")

	cfg.Airtable.APIKey = "key"
	cfg.Airtable.BaseID = "app"
	cfg.Airtable.TableID = "tbl"
	assert.NoError(t, cfg.Validate())

	cfg.AdminEnabled = true
	assert.ErrorContains(t, cfg.Validate(), "LEDGER_ENABLED")
	assert.ErrorContains(t, cfg.Validate(), "ADMIN_EMAILS")

	cfg.LedgerEnabled = true
	cfg.AdminEmails = []string{"@fundraisingflywheel.io"}
	assert.NoError(t, cfg.Validate())

	cfg.AdminEnabled = false
	cfg.DisplayTimezone = "Mars/Olympus"
	assert.ErrorContains(t, cfg.Validate(), "DISPLAY_TIMEZONE")

	cfg.DisplayTimezone = "UTC"
	cfg.TrustedProxies = []string{"10.0.0.0/8", "::1", "proxy.internal"}
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"proxy.internal"`)
	assert.NotContains(t, err.Error(), "10.0.0.0/8")
}
