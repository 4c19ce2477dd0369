package landing

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLanding_TrackingHooks(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Landing().Render(context.Background(), &buf))
	out := buf.String()

	for _, name := range []string{"hero", "problem", "workflow", "team", "outcomes"} {
		assert.Contains(t, out, `data-section-name="`+name+`"`)
	}
	assert.Contains(t, out, `data-media-name="podcast"`)
	assert.Contains(t, out, `data-media-name="Investor Magnet"`)
	assert.Contains(t, out, `href="/book-a-call" data-track="book_call"`)
}

func TestTrackingScriptEvents(t *testing.T) {
	b, err := os.ReadFile("../../../static/js/tracking.js")
	require.NoError(t, err)
	js := string(b)
	for _, want := range []string{
		"section_view_start", "section_view_end", "section_scroll_depth",
		"form_field_interaction", "contact_form_start", "form_step_submit", "contact_form_complete",
		"video_start", "video_progress", "audio_play", `kind + "_pause"`, `kind + "_complete"`,
		"dataset.sectionName", "dataset.mediaName",
	} {
		assert.Contains(t, js, want)
	}
}
