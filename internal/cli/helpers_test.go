package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type cliRun struct {
	stdout string
	stderr string
	err    error
}

// runCLI executes the root command with args and captures its output.
func runCLI(t *testing.T, args ...string) cliRun {
	t.Helper()
	cmd := NewRootCommand()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return cliRun{stdout: out.String(), stderr: errOut.String(), err: err}
}

// response decodes a JSON envelope from stdout.
func (r cliRun) response(t *testing.T) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &resp), "stdout: %s", r.stdout)
	return resp
}

// record decodes the envelope's data as a single object.
func (r cliRun) record(t *testing.T) map[string]any {
	t.Helper()
	resp := r.response(t)
	require.Equal(t, "ok", resp.Status, "stdout: %s", r.stdout)
	m, ok := resp.Data.(map[string]any)
	require.True(t, ok, "data is %T", resp.Data)
	return m
}

// records decodes the envelope's data as a list of objects.
func (r cliRun) records(t *testing.T) []any {
	t.Helper()
	resp := r.response(t)
	require.Equal(t, "ok", resp.Status, "stdout: %s", r.stdout)
	l, ok := resp.Data.([]any)
	require.True(t, ok, "data is %T", resp.Data)
	return l
}

// tempDB returns a SQLite path that lives for the duration of the test.
func tempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "refgraph.db")
}

// createAccount creates an account in db and returns its id.
func createAccount(t *testing.T, db, first string) string {
	t.Helper()
	r := runCLI(t, "account", "create", "--db", db, "--format", "json",
		"--data", `{"firstName":"`+first+`","lastName":"Test","email":"`+first+`@example.com"}`)
	require.NoError(t, r.err, "stderr: %s", r.stderr)
	id, ok := r.record(t)["id"].(string)
	require.True(t, ok)
	return id
}
