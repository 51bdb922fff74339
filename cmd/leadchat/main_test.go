package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/greenoffice/leadchat"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fileConfig = `
log:
  level: error
state:
  backend: file
  dir: sessions
flow:
  timezone: UTC
`

// workspace runs the test in a fresh directory holding a file-backed leadchat.yaml.
func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "leadchat.yaml"), []byte(fileConfig), 0o644))
	return dir
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "leadchat version "+leadchat.ShortVersion()+"\n", out)
}

func TestValidateCommand(t *testing.T) {
	workspace(t)
	out, err := run(t, "", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Graph is valid!")
}

func TestValidateCommand_BadKnowledgeFile(t *testing.T) {
	dir := workspace(t)
	path := filepath.Join(dir, "knowledge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("topics: [unclosed"), 0o644))
	t.Setenv("LEADCHAT_KNOWLEDGE_FILE", path)

	_, err := run(t, "", "validate")
	assert.ErrorContains(t, err, "knowledge table")
}

func TestChatAndSessionCommands(t *testing.T) {
	workspace(t)

	out, err := run(t, "2\n30\nquit\n", "chat", "--plain", "--session", "cli-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Your session id is cli-1")

	out, err = run(t, "", "session", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "- cli-1")

	out, err = run(t, "", "session", "inspect", "cli-1")
	require.NoError(t, err)
	assert.Contains(t, out, `"current_node_id": "Q4"`)

	out, err = run(t, "", "graph", "--session", "cli-1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "graph TD\n"))
	assert.Contains(t, out, "class Q4 current;")
	assert.Contains(t, out, "class Q1 visited;")

	out, err = run(t, "quit\n", "chat", "--plain", "--session", "cli-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Welcome back")

	_, err = run(t, "", "session", "rm")
	assert.Error(t, err, "rm needs ids or --all")

	out, err = run(t, "", "session", "rm", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed session 'cli-1'")

	out, err = run(t, "", "session", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "No sessions found.")
}

func TestSessionInspect_Unknown(t *testing.T) {
	workspace(t)
	_, err := run(t, "", "session", "inspect", "nope")
	assert.ErrorContains(t, err, "loading session 'nope'")
}

func TestExportCommand(t *testing.T) {
	dir := workspace(t)

	out, err := run(t, "", "export", "--range", "today")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Email,Name,Score"))

	path := filepath.Join(dir, "leads.csv")
	_, err = run(t, "", "export", "-o", path)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Email,Name,Score")

	_, err = run(t, "", "export", "--range", "yesterday")
	assert.ErrorContains(t, err, "unknown range")
}

func TestMigrateCommand_NeedsDatabase(t *testing.T) {
	workspace(t)
	_, err := run(t, "", "migrate", "up")
	assert.ErrorContains(t, err, "database.url")
}

func TestMCPCommand_UnknownTransport(t *testing.T) {
	workspace(t)
	_, err := run(t, "", "mcp", "--transport", "grpc")
	assert.ErrorContains(t, err, "unknown transport")
}
