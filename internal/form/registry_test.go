package form

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const tinySchema = `
sections:
  - id: contact
    questions:
      - {id: fullName, label: Full Name, type: text, required: true, airtableField: Name}
`

const tinySchemaV2 = `
sections:
  - id: contact
    questions:
      - {id: fullName, label: Your Name, type: text, required: true, airtableField: Name}
`

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeSchema(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestNewRegistry_DefaultWhenPathEmpty(t *testing.T) {
	r, err := NewRegistry("")
	require.NoError(t, err)
	assert.Equal(t, len(Default().Sections), len(r.Schema().Sections))
	assert.NoError(t, r.Reload())
}

func TestRegistry_ReloadKeepsPreviousOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sections.yml")
	writeSchema(t, path, tinySchema)

	r, err := NewRegistry(path)
	require.NoError(t, err)
	q, _ := r.Schema().Question("fullName")
	assert.Equal(t, "Full Name", q.Label)

	writeSchema(t, path, "sections: []")
	assert.Error(t, r.Reload())
	q, _ = r.Schema().Question("fullName")
	assert.Equal(t, "Full Name", q.Label)

	writeSchema(t, path, tinySchemaV2)
	require.NoError(t, r.Reload())
	q, _ = r.Schema().Question("fullName")
	assert.Equal(t, "Your Name", q.Label)
}

func TestRegistry_WatchPicksUpWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sections.yml")
	writeSchema(t, path, tinySchema)
	r, err := NewRegistry(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Watch(ctx) }()

	// Keep writing until the watcher is registered and has seen a change.
	assert.Eventually(t, func() bool {
		writeSchema(t, path, tinySchemaV2)
		q, _ := r.Schema().Question("fullName")
		return q.Label == "Your Name"
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestNewRegistry_MissingFile(t *testing.T) {
	_, err := NewRegistry(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}
