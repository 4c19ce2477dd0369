// Package uploads stores pitch decks on local disk and serves them back.
package uploads

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"Flywheel/internal/config"
)

// ServePath is the route prefix uploaded files are published under.
const ServePath = "/api/serve-pitch-deck/"

var (
	ErrInvalidName     = errors.New("invalid file path")
	ErrNotFound        = errors.New("file not found")
	ErrTooLarge        = errors.New("file too large")
	ErrUnsupportedType = errors.New("unsupported file type")
)

var (
	unsafeChars   = regexp.MustCompile(`[^a-zA-Z0-9.-]`)
	timestampHead = regexp.MustCompile(`^\d+_`)
)

// MIME types accepted for each deck extension.
var mimeByExt = map[string]string{
	".pdf":  "application/pdf",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".key":  "application/x-iwork-keynote-sffkey",
}

// Stored describes a file after it has been written.
type Stored struct {
	FileName     string `json:"fileName"`
	OriginalName string `json:"originalName"`
	Size         int64  `json:"size"`
}

type Store struct {
	dir      string
	maxBytes int64
	allowed  []string
	now      func() time.Time
}

func NewStore(cfg config.UploadsConfig) *Store {
	allowed := make([]string, 0, len(cfg.AllowedTypes))
	for _, ext := range cfg.AllowedTypes {
		allowed = append(allowed, strings.ToLower(ext))
	}
	return &Store{dir: cfg.Dir, maxBytes: cfg.MaxBytes, allowed: allowed, now: time.Now}
}

func (s *Store) MaxBytes() int64 { return s.maxBytes }

// Allowed reports whether a file is acceptable. The extension must be in the
// allowed list; a declared MIME type, unless empty or
// application/octet-stream, must match that extension.
func (s *Store) Allowed(name, contentType string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" || !slices.Contains(s.allowed, ext) {
		return false
	}
	declared := contentType
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		declared = mt
	}
	declared = strings.ToLower(strings.TrimSpace(declared))
	if declared == "" || declared == "application/octet-stream" {
		return true
	}
	want, known := mimeByExt[ext]
	return !known || declared == want
}

// Sanitize replaces every character outside [A-Za-z0-9.-] with '_'.
func Sanitize(name string) string {
	return unsafeChars.ReplaceAllString(name, "_")
}

// Save writes the deck as <unix-millis>_<sanitized name>. A declared size of
// -1 means unknown; the copy is still capped at the store limit.
func (s *Store) Save(originalName string, size int64, contentType string, r io.Reader) (*Stored, error) {
	if originalName == "" {
		return nil, ErrInvalidName
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		return nil, ErrTooLarge
	}
	if !s.Allowed(originalName, contentType) {
		return nil, ErrUnsupportedType
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	sanitized := Sanitize(originalName)
	stamp := strconv.FormatInt(s.now().UnixMilli(), 10)
	name := stamp + "_" + sanitized
	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		name = stamp + "_" + uuid.NewString()[:8] + "_" + sanitized
		f, err = os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", name, err)
	}
	full := f.Name()

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && s.maxBytes > 0 && n > s.maxBytes {
		err = ErrTooLarge
	}
	if err != nil {
		os.Remove(full)
		if errors.Is(err, ErrTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Chmod(full, 0o644); err != nil {
		return nil, fmt.Errorf("chmod %s: %w", name, err)
	}
	return &Stored{FileName: name, OriginalName: originalName, Size: n}, nil
}

// Open returns the stored file. Names that are empty or that would resolve
// outside the upload directory are rejected with ErrInvalidName.
func (s *Store) Open(name string) (*os.File, os.FileInfo, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return nil, nil, ErrInvalidName
	}
	root, err := filepath.Abs(s.dir)
	if err != nil {
		return nil, nil, err
	}
	full := filepath.Join(root, name)
	if filepath.Dir(full) != root {
		return nil, nil, ErrInvalidName
	}

	f, err := os.Open(full)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, nil, ErrNotFound
	}
	return f, info, nil
}

// ContentType picks the response type from the file extension.
func ContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	}
	return "application/octet-stream"
}

// PublicURL builds the absolute link to a stored file as seen by the client
// that uploaded it.
func PublicURL(r *http.Request, fileName string) string {
	scheme := r.Header.Get("X-Forwarded-Proto")
	if scheme == "" {
		scheme = "http"
		if r.TLS != nil {
			scheme = "https"
		}
	}
	host := r.Host
	if host == "" {
		host = "localhost:8080"
	}
	return scheme + "://" + host + ServePath + fileName
}

// DisplayName turns a stored file link back into a readable name.
func DisplayName(link string) string {
	p := link
	if u, err := url.Parse(link); err == nil && u.Path != "" {
		p = u.Path
	}
	name := path.Base(p)
	if name == "." || name == "/" {
		return ""
	}
	name = timestampHead.ReplaceAllString(name, "")
	return strings.ReplaceAll(name, "_", " ")
}
