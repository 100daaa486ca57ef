package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/api"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/capability"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/core"
)

// runApp runs the CLI with args and returns its standard output.
func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	err := app.Run(append([]string{"stitch"}, args...))
	return out.String(), err
}

func findFlag(t *testing.T, cmd *cli.Command, name string) cli.Flag {
	t.Helper()
	for _, f := range cmd.Flags {
		for _, n := range f.Names() {
			if n == name {
				return f
			}
		}
	}
	t.Fatalf("flag %q not found on %s", name, cmd.Name)
	return nil
}

func TestImportCommandFlags(t *testing.T) {
	app := newApp()
	var cmd *cli.Command
	for _, c := range app.Commands {
		if c.Name == "import" {
			cmd = c
		}
	}
	require.NotNil(t, cmd)

	t.Run("owner and platform are required", func(t *testing.T) {
		_, err := runApp(t, "import", "--db", t.TempDir(), "x.json")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "owner")
	})

	t.Run("capability host has default value", func(t *testing.T) {
		f, ok := findFlag(t, cmd, "capability-host").(*cli.StringFlag)
		require.True(t, ok)
		assert.Equal(t, capability.DefaultConfig().Host, f.Value)
	})

	t.Run("db reads STITCH_DB", func(t *testing.T) {
		f, ok := findFlag(t, cmd, "db").(*cli.StringFlag)
		require.True(t, ok)
		assert.Contains(t, f.EnvVars, "STITCH_DB")
		assert.True(t, f.Required)
	})

	t.Run("arguments are required", func(t *testing.T) {
		_, err := runApp(t, "import", "--db", t.TempDir(), "--owner", "u1", "--platform", "notes")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least one")
	})
}

func TestImportStatusMessages(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "db")
	chat := filepath.Join(dir, "chat.jsonl")
	require.NoError(t, os.WriteFile(chat, []byte(
		`{"role":"user","content":"what time is it?","timestamp":"2024-02-02T12:00:00Z"}
{"role":"assistant","content":"noon","timestamp":"2024-02-02T12:00:03Z"}
`), 0o644))

	out, err := runApp(t, "import", "--db", db, "--owner", "u1", "--platform", "notes", chat)
	require.NoError(t, err)
	assert.Contains(t, out, string(core.JobStatusCompleted))
	jobID := strings.Fields(strings.TrimPrefix(strings.SplitN(out, "\n", 2)[0], "Job "))[0]

	out, err = runApp(t, "status", "--db", db, jobID)
	require.NoError(t, err)
	var job api.JobResponse
	require.NoError(t, json.Unmarshal([]byte(out), &job))
	assert.Equal(t, jobID, job.JobID)
	require.Len(t, job.Items, 1)
	assert.Equal(t, "jsonl", job.Items[0].Format)
	assert.Len(t, job.Items[0].MessageIDs, 2)

	out, err = runApp(t, "messages", "--db", db, jobID, job.Items[0].ItemID)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	var msg api.MessageResponse
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &msg))
	assert.Equal(t, "what time is it?", msg.Content)
	assert.Equal(t, "user", msg.Speaker)

	out, err = runApp(t, "jobs", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, jobID)

	_, err = runApp(t, "messages", "--db", db, jobID, "nope")
	assert.ErrorIs(t, err, api.ErrItemNotFound)
}

func TestImportFailedJob(t *testing.T) {
	dir := t.TempDir()
	_, err := runApp(t, "import", "--db", filepath.Join(dir, "db"), "--owner", "u1", "--platform", "notes",
		filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed")
}

func TestFormatOf(t *testing.T) {
	tests := map[string]string{
		"export.JSON":                       "json",
		"/tmp/talk.mp3":                     "mp3",
		"gs://bucket/a/b.csv":               "csv",
		"https://example.com/x.txt?sig=abc": "txt",
		"noext":                             "",
	}
	for in, want := range tests {
		assert.Equal(t, want, formatOf(in), in)
	}
}

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		name      string
		logLevel  string
		wantLevel slog.Level
		wantErr   bool
	}{
		{"debug level", "debug", slog.LevelDebug, false},
		{"info level", "info", slog.LevelInfo, false},
		{"warn level", "warn", slog.LevelWarn, false},
		{"error level", "error", slog.LevelError, false},
		{"uppercase", "DEBUG", slog.LevelDebug, false},
		{"invalid level", "verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured error
			app := &cli.App{
				Flags: []cli.Flag{&cli.StringFlag{Name: "log-level", Value: "info"}},
				Action: func(c *cli.Context) error {
					captured = setupLogger(c)
					return nil
				},
			}
			require.NoError(t, app.Run([]string{"test", "--log-level", tt.logLevel}))
			if tt.wantErr {
				assert.Error(t, captured)
				return
			}
			require.NoError(t, captured)
			assert.True(t, slog.Default().Enabled(context.Background(), tt.wantLevel))
		})
	}
}
