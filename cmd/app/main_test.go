package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaCheck_Default(t *testing.T) {
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"schema", "check"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "1. About You [contact]")
	assert.Contains(t, out.String(), `stops unless founderAvailability = "Yes"`)
	assert.Contains(t, out.String(), "schema OK")
}

func TestSchemaCheck_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sections.yml")
	require.NoError(t, os.WriteFile(path, []byte("sections: []\n"), 0o644))

	cmd := rootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"schema", "check", path})

	assert.ErrorContains(t, cmd.Execute(), "no sections")
}
