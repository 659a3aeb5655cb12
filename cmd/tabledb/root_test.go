package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nickyhof/TableDB/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd, closeLogger := NewRootCmd()
	defer closeLogger()
	stdout := new(bytes.Buffer)
	cmd.SetOut(stdout)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), err
}

func TestCLIWorkflow(t *testing.T) {
	root := t.TempDir()
	base := []string{"--root", root, "--password", ""}
	run := func(args ...string) string {
		t.Helper()
		out, err := execute(t, append(args, base...)...)
		require.NoError(t, err)
		return out
	}

	out := run("create", "users", "name", "age")
	assert.Contains(t, out, "1 table(s) created")

	run("insert", "users", "--set", "name=Alice", "--set", "age=30")
	run("insert", "users", "--set", "name=Bob", "--set", "age=40")
	run("insert", "users", "--set", "name=Charlie")

	out = run("select", "users", "--where", "age>35", "-o", "json")
	var rows []core.Row
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	assert.Equal(t, []core.Row{{"name": "Bob", "age": float64(40)}}, rows)

	out = run("update", "users", "--where", "name=Bob", "--set", "age=50")
	assert.Contains(t, out, "1 record(s) updated")

	out = run("delete", "users", "--where", "age=null")
	assert.Contains(t, out, "1 record(s) deleted")

	data, err := os.ReadFile(filepath.Join(root, "users.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"columns":{"name":null,"age":null},"rows":[{"name":"Alice","age":30},{"name":"Bob","age":50}]}`, string(data))

	out = run("select", "users")
	assert.Contains(t, out, "Alice")
	assert.Contains(t, out, "2 rows")

	out = run("tables", "-o", "json")
	assert.JSONEq(t, `[{"table":"users"}]`, out)

	out = run("describe", "users", "-o", "json")
	assert.JSONEq(t, `[{"column":"name"},{"column":"age"}]`, out)
}

func TestCLIWrongPassword(t *testing.T) {
	root := t.TempDir()

	_, err := execute(t, "create", "users", "name", "--root", root, "--password", "guess")
	assert.ErrorIs(t, err, core.ErrAuthenticationFailed)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCLIFlushesLoggerAfterFailure(t *testing.T) {
	closed := 0
	setupLogger = func(cfg LogConfig, verbose bool, w io.Writer) (*slog.Logger, func(), error) {
		logger, closeFn, err := SetupLogger(cfg, verbose, w)
		return logger, func() { closed++; closeFn() }, err
	}
	t.Cleanup(func() { setupLogger = SetupLogger })

	cmd, closeLogger := NewRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"create", "users", "name", "--root", t.TempDir(), "--password", "guess"})

	require.Error(t, cmd.Execute())
	assert.Equal(t, 0, closed)

	closeLogger()
	closeLogger()
	assert.Equal(t, 1, closed)
}

func TestCLILogFormatFlag(t *testing.T) {
	cmd, closeLogger := NewRootCmd()
	defer closeLogger()
	stderr := new(bytes.Buffer)
	cmd.SetOut(io.Discard)
	cmd.SetErr(stderr)
	cmd.SetArgs([]string{"create", "users", "name", "--root", t.TempDir(), "--password", "", "--log-format", "json"})

	require.NoError(t, cmd.Execute())

	var entry map[string]any
	for _, line := range strings.Split(strings.TrimSpace(stderr.String()), "\n") {
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry["msg"] == "table created" {
			break
		}
	}
	assert.Equal(t, "table created", entry["msg"])
	assert.Equal(t, "users", entry["table"])
}

func TestCLIConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "tabledb.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
root: `+filepath.Join(dir, "from-file")+`
auth:
  username: alice
  password: s3cret
`), 0644))

	t.Setenv("TABLEDB_USER", "alice")
	t.Setenv("TABLEDB_AUTH__PASSWORD", "override")
	t.Setenv("TABLEDB_PASSWORD", "override")

	_, err := execute(t, "--config", cfgPath, "create", "users", "name")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "from-file", "users.json"))
	assert.NoError(t, err)
}

func TestCLIGitHistoryAndRestore(t *testing.T) {
	root := t.TempDir()
	base := []string{"--root", root, "--backend", "git"}
	run := func(args ...string) string {
		t.Helper()
		out, err := execute(t, append(args, base...)...)
		require.NoError(t, err)
		return out
	}

	run("create", "users", "name")
	run("insert", "users", "--set", "name=Alice")
	run("delete", "users")

	out := run("history", "users", "-o", "json")
	var history []map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &history))
	require.Len(t, history, 3)
	assert.Equal(t, "TableDB <cli@tabledb.local>", history[0]["author"])

	run("restore", "users", history[1]["id"])

	out = run("select", "users", "-o", "json")
	assert.JSONEq(t, `[{"name":"Alice"}]`, out)
}

func TestCLIHistoryOnFileBackend(t *testing.T) {
	root := t.TempDir()
	_, err := execute(t, "create", "users", "name", "--root", root)
	require.NoError(t, err)

	_, err = execute(t, "history", "users", "--root", root)
	assert.ErrorIs(t, err, core.ErrNotVersioned)
}

func TestCLITokenAuth(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "tabledb.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
root: `+dir+`
user: alice
auth:
  mode: token
  secret: signing-key
`), 0644))

	token, err := execute(t, "--config", cfgPath, "token", "--ttl", "5m")
	require.NoError(t, err)
	token = strings.TrimSpace(token)
	assert.Equal(t, 2, strings.Count(token, "."))

	_, err = execute(t, "--config", cfgPath, "create", "users", "name", "--password", token)
	require.NoError(t, err)

	_, err = execute(t, "--config", cfgPath, "create", "orders", "id", "--password", "not-a-token")
	assert.ErrorIs(t, err, core.ErrAuthenticationFailed)
}

func TestCLIRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"backend", []string{"tables", "--backend", "ftp"}, "unknown backend"},
		{"output", []string{"tables", "--output", "xml"}, "unknown output format"},
		{"log level", []string{"tables", "--log-level", "chatty"}, "invalid log level"},
		{"condition", []string{"select", "users", "--where", "age"}, "invalid condition"},
		{"assignment", []string{"insert", "users", "--set", "=1"}, "invalid assignment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, append(tt.args, "--root", t.TempDir())...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "TableDB vdev\n", out)
}
