package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSchema(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schema.cue")
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

func TestValidateValidSchema(t *testing.T) {
	out, err := execute(t, "validate", writeSchema(t, pairSchema))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Schema valid (2 tables, 1 foreign keys)")
	assert.NotContains(t, out, "!")
}

func TestValidateValidSchemaJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "validate", writeSchema(t, pairSchema))
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 2, resp.Data.Tables)
	assert.Equal(t, 1, resp.Data.FKs)
}

func TestValidateDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tables.cue"), []byte(`package bib

table: x: { text: ["name"], columns: ["id", "name"] }
table: y: { text: ["title"], columns: ["id", "x_id", "title"] }
`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keys.cue"), []byte(`package bib

fk: y_x: { from: "y.x_id", to: "x.id" }
`), 0644))

	out, err := execute(t, "validate", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Schema valid (2 tables, 1 foreign keys)")
}

func TestValidateCycleWarning(t *testing.T) {
	path := writeSchema(t, `table: node: { text: ["label"], columns: ["id", "parent_id", "label"] }
fk: parent: { from: "node.parent_id", to: "node.id" }
`)

	out, err := execute(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "! self-referencing table: node → node")
	assert.Contains(t, out, "✓ Schema valid (1 tables, 1 foreign keys)")
}

func TestValidateInvalidSchema(t *testing.T) {
	path := writeSchema(t, `table: y: { text: ["title"], columns: ["id", "x_id", "title"] }
fk: y_x: { from: "y.x_id", to: "x.id" }
`)

	out, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "[E105]")
}

func TestValidateInvalidSchemaJSON(t *testing.T) {
	path := writeSchema(t, `table: y: { text: ["title"], columns: ["id", "x_id", "title"] }
fk: y_x: { from: "y.x_id", to: "x.id" }
`)

	out, err := execute(t, "--format", "json", "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E105", resp.Error.Code)
}

func TestValidateLoadErrors(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		wantCode string
	}{
		{"missing path", filepath.Join(t.TempDir(), "none.cue"), ErrCodeNotFound},
		{"empty directory", t.TempDir(), ErrCodeNoFiles},
		{"not a schema", writeSchema(t, "answer: 42\n"), ErrCodeInvalidSchema},
		{"cue syntax", writeSchema(t, "table: {\n"), ErrCodeBuildFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, "validate", tt.path)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, "Error ["+tt.wantCode+"]")
		})
	}
}

func TestValidateRequiresPath(t *testing.T) {
	_, err := execute(t, "validate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}
