package uploads

import (
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Flywheel/internal/config"
)

func newStore(t *testing.T, max int64) *Store {
	t.Helper()
	s := NewStore(config.UploadsConfig{
		Dir:          filepath.Join(t.TempDir(), "pitch-decks"),
		MaxBytes:     max,
		AllowedTypes: []string{".pdf", ".PPTX", ".key"},
	})
	s.now = func() time.Time { return time.UnixMilli(1700000000123) }
	return s
}

func TestSave(t *testing.T) {
	s := newStore(t, 1024)

	got, err := s.Save("My Deck (v2).pdf", 5, "application/pdf", strings.NewReader("%PDF-"))
	require.NoError(t, err)
	assert.Equal(t, "1700000000123_My_Deck__v2_.pdf", got.FileName)
	assert.Equal(t, "My Deck (v2).pdf", got.OriginalName)
	assert.Equal(t, int64(5), got.Size)

	info, err := os.Stat(filepath.Join(s.dir, got.FileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestSave_NameCollision(t *testing.T) {
	s := newStore(t, 1024)
	first, err := s.Save("deck.pdf", 1, "", strings.NewReader("a"))
	require.NoError(t, err)
	second, err := s.Save("deck.pdf", 1, "", strings.NewReader("b"))
	require.NoError(t, err)

	assert.NotEqual(t, first.FileName, second.FileName)
	assert.True(t, strings.HasPrefix(second.FileName, "1700000000123_"))
	assert.True(t, strings.HasSuffix(second.FileName, "_deck.pdf"))
}

func TestSave_Rejections(t *testing.T) {
	s := newStore(t, 4)

	_, err := s.Save("deck.pdf", 10, "application/pdf", strings.NewReader("0123456789"))
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = s.Save("deck.pdf", -1, "application/pdf", strings.NewReader("0123456789"))
	assert.ErrorIs(t, err, ErrTooLarge, "undeclared sizes are still capped")
	entries, _ := os.ReadDir(s.dir)
	assert.Empty(t, entries, "partial files are removed")

	_, err = s.Save("notes.txt", 1, "text/plain", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = s.Save("index.html", 1, "application/pdf", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnsupportedType, "a pdf MIME type does not excuse the extension")

	_, err = s.Save("", 1, "", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestAllowed(t *testing.T) {
	s := newStore(t, 0)
	for _, tc := range []struct {
		name, contentType string
		want              bool
	}{
		{"Deck.PDF", "", true},
		{"deck.pptx", "", true},
		{"deck.pdf", "application/pdf", true},
		{"deck.pdf", "application/octet-stream", true},
		{"deck.pdf", "Application/PDF; charset=binary", true},
		{"deck.key", "application/x-iwork-keynote-sffkey", true},
		{"deck", "application/vnd.openxmlformats-officedocument.presentationml.presentation", false},
		{"deck", "", false},
		{"evil.html", "application/pdf", false},
		{"deck.pdf", "text/html", false},
		{"deck.pptx", "application/pdf", false},
		{"deck.docx", "application/msword", false},
	} {
		assert.Equal(t, tc.want, s.Allowed(tc.name, tc.contentType), "%s as %q", tc.name, tc.contentType)
	}
}

func TestOpen(t *testing.T) {
	s := newStore(t, 1024)
	stored, err := s.Save("deck.pdf", 3, "", strings.NewReader("pdf"))
	require.NoError(t, err)

	f, info, err := s.Open(stored.FileName)
	require.NoError(t, err)
	defer f.Close()
	b, _ := io.ReadAll(f)
	assert.Equal(t, "pdf", string(b))
	assert.Equal(t, int64(3), info.Size())

	for _, name := range []string{"", "..", "../secret.pdf", `..\secret.pdf`, "a/b.pdf"} {
		_, _, err := s.Open(name)
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}

	_, _, err = s.Open("missing.pdf")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", ContentType("a.PDF"))
	assert.Equal(t, "image/png", ContentType("a.png"))
	assert.Equal(t, "image/jpeg", ContentType("a.jpeg"))
	assert.Equal(t, "application/octet-stream", ContentType("a.key"))
}

func TestPublicURL(t *testing.T) {
	r := httptest.NewRequest("POST", "http://example.com/api/upload-pitch-deck", nil)
	r.Host = "flywheel.test"
	assert.Equal(t, "http://flywheel.test/api/serve-pitch-deck/1_a.pdf", PublicURL(r, "1_a.pdf"))

	r.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, "https://flywheel.test/api/serve-pitch-deck/1_a.pdf", PublicURL(r, "1_a.pdf"))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "My Deck v2.pdf", DisplayName("https://x.io/api/serve-pitch-deck/1700000000123_My_Deck_v2.pdf"))
	assert.Equal(t, "deck.pdf", DisplayName("deck.pdf"))
	assert.Equal(t, "", DisplayName(""))
}
