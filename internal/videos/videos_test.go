package videos

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	in := "video_title;video_url\r\n" +
		"Welcome; https://www.youtube.com/watch?v=abc123&t=4s\n" +
		"\n" +
		"Short;https://youtu.be/xyz\n" +
		"No link;\n" +
		"Vimeo;https://vimeo.com/1\n"

	got, err := Parse(strings.NewReader(in))
	require.NoError(t, err)

	want := []Video{
		{Title: "Welcome", URL: "https://www.youtube.com/watch?v=abc123&t=4s", EmbedURL: "https://www.youtube.com/embed/abc123"},
		{Title: "Short", URL: "https://youtu.be/xyz", EmbedURL: "https://www.youtube.com/embed/xyz"},
		{Title: "Vimeo", URL: "https://vimeo.com/1", EmbedURL: "https://vimeo.com/1"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("videos mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_NoHeader(t *testing.T) {
	got, err := Parse(strings.NewReader("Intro;https://youtu.be/a\n"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Intro", got[0].Title)
}

func TestLoad(t *testing.T) {
	got, err := Load(filepath.Join(t.TempDir(), "missing.csv"))
	require.NoError(t, err)
	assert.Empty(t, got)

	path := filepath.Join(t.TempDir(), "videos.csv")
	require.NoError(t, os.WriteFile(path, []byte("video_title;video_url\nA;https://youtu.be/a\n"), 0o644))
	got, err = Load(path)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestEmbedURL(t *testing.T) {
	tests := map[string]string{
		"https://youtube.com/watch?v=q1":          "https://www.youtube.com/embed/q1",
		"https://www.youtube.com/embed/q1":        "https://www.youtube.com/embed/q1",
		"https://youtu.be/q2":                     "https://www.youtube.com/embed/q2",
		"https://youtu.be/":                       "https://youtu.be/",
		"not a url":                               "not a url",
		"https://example.com/watch?v=not-youtube": "https://example.com/watch?v=not-youtube",
	}
	for in, want := range tests {
		assert.Equal(t, want, EmbedURL(in), in)
	}
}
