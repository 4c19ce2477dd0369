package layout

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Flywheel/internal/config"
)

func render(t *testing.T, meta Meta, body templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Base(meta, body).Render(context.Background(), &buf))
	return buf.String()
}

func text(s string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, templ.EscapeString(s))
		return err
	})
}

func TestBase_Defaults(t *testing.T) {
	out := render(t, Meta{}, text("hello"))
	assert.True(t, strings.HasPrefix(out, "<!doctype html>"))
	assert.Contains(t, out, "<title>"+templ.EscapeString(SiteTitle)+"</title>")
	assert.Contains(t, out, `<meta name="description" content="`+templ.EscapeString(SiteDescription)+`">`)
	assert.Contains(t, out, "<main>hello</main>")
	assert.Contains(t, out, `<script src="/static/js/tracking.js" defer></script>`)
	assert.NotContains(t, out, "noindex")
	assert.NotContains(t, out, "analytics.js")
}

func TestBase_NilBody(t *testing.T) {
	out := render(t, Meta{Title: "Empty"}, nil)
	assert.Contains(t, out, "<main></main>")
}

func TestBase_EscapesContent(t *testing.T) {
	out := render(t, Meta{Title: `Tom & "Jerry" <script>`, NoIndex: true}, text("<b>bold</b>"))
	assert.NotContains(t, out, "<script>\"")
	assert.Contains(t, out, "<title>Tom &amp; &#34;Jerry&#34; &lt;script&gt;</title>")
	assert.Contains(t, out, `<meta property="og:title" content="Tom &amp; &#34;Jerry&#34; &lt;script&gt;">`)
	assert.Contains(t, out, "&lt;b&gt;bold&lt;/b&gt;")
	assert.Contains(t, out, `<meta name="robots" content="noindex, nofollow">`)
}

func TestBase_AnalyticsWhenConfigured(t *testing.T) {
	out := render(t, Meta{
		Analytics: config.AnalyticsConfig{GA4ID: "G-TEST123", HotjarID: "123456", REB2BKey: `KEY"42`},
		Scripts:   []string{"/static/js/wizard.js"},
	}, text(""))

	assert.Contains(t, out, `<script src="/static/js/analytics.js" data-ga4-id="G-TEST123" data-hotjar-id="123456" data-reb2b-key="KEY&#34;42"></script>`)
	assert.Contains(t, out, `<script src="/static/js/wizard.js" defer></script>`)
	assert.Less(t, strings.Index(out, "analytics.js"), strings.Index(out, "tracking.js"))
	assert.Less(t, strings.Index(out, "tracking.js"), strings.Index(out, "wizard.js"))
}

func TestBase_PartialAnalytics(t *testing.T) {
	out := render(t, Meta{Analytics: config.AnalyticsConfig{HotjarID: "99"}}, text(""))
	assert.Contains(t, out, `data-ga4-id="" data-hotjar-id="99" data-reb2b-key=""`)
}

func TestBase_ScriptURLsAreSanitized(t *testing.T) {
	out := render(t, Meta{Scripts: []string{"javascript:alert(1)"}}, text(""))
	assert.NotContains(t, out, "javascript:")
}

func TestAnalyticsScriptReadsTagData(t *testing.T) {
	b, err := os.ReadFile("../../static/js/analytics.js")
	require.NoError(t, err)
	js := string(b)
	for _, want := range []string{"dataset.ga4Id", "dataset.hotjarId", "dataset.reb2bKey", "send_page_view: false", "window.GA4_ID"} {
		assert.Contains(t, js, want)
	}
}
