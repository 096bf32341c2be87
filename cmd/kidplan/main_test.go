package main

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kidplan/internal/config"
	"kidplan/internal/store"
	"kidplan/internal/web"
)

func newBackend(t *testing.T) string {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "kidplan.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	srv := httptest.NewServer(web.NewServer(st).Handler())
	t.Cleanup(srv.Close)
	return srv.URL
}

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Timezone = "UTC"
	cfg.Locale = "en"
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.Database = filepath.Join(dir, "data", "kidplan.db")

	path := filepath.Join(dir, "kidplan.yaml")
	require.NoError(t, cfg.Save(path))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCommand("test", "none", "unknown")
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestAdd_ImportsAndPrintsWeek(t *testing.T) {
	url := newBackend(t)
	cfgPath := writeConfig(t)

	out, err := run(t, "add",
		"--config", cfgPath,
		"--endpoint", url,
		"--start", "2026-10-19 09:00",
		"--end", "2026-10-19 09:45",
		"--title", "Piano practice")
	require.NoError(t, err)
	assert.Contains(t, out, "Event imported and synced to child task list.")
	assert.Contains(t, out, "Mon 2026-10-19")
	assert.Contains(t, out, "  * 09:00-09:45 Piano practice")

	out, err = run(t, "log", "--config", cfgPath, "--endpoint", url)
	require.NoError(t, err)
	assert.Contains(t, out, "TITLE")
	assert.Contains(t, out, "Piano practice  45")
}

func TestAdd_BackendDownReportsFailure(t *testing.T) {
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()

	out, err := run(t, "add",
		"--config", writeConfig(t),
		"--endpoint", url,
		"--start", "2026-10-19 09:00",
		"--end", "2026-10-19 09:30",
		"--title", "Swim")
	require.NoError(t, err)
	assert.Contains(t, out, "Import failed: ")
	// The optimistic event stays on the calendar.
	assert.Contains(t, out, "  * 09:00-09:30 Swim")
}

func TestUpdate(t *testing.T) {
	url := newBackend(t)
	cfgPath := writeConfig(t)

	_, err := run(t, "add", "--config", cfgPath, "--endpoint", url,
		"--start", "2026-10-19 09:00", "--end", "2026-10-19 09:30", "--title", "Swim")
	require.NoError(t, err)

	out, err := run(t, "update", "--config", cfgPath, "--endpoint", url,
		"--old", "Swim", "--new", "Swim lesson", "--duration", "60")
	require.NoError(t, err)
	assert.Contains(t, out, "Event updated successfully.")

	_, err = run(t, "update", "--config", cfgPath, "--endpoint", url,
		"--old", "Chess", "--new", "Go", "--duration", "30")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no event titled "Chess"`)
}

func TestLoad_FlagOverrides(t *testing.T) {
	opts := &rootOptions{
		configPath: filepath.Join(t.TempDir(), "kidplan.yaml"),
		listen:     "0.0.0.0:9000",
		endpoint:   "http://backend:9000",
	}
	cfg, loc, err := opts.load()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Listen)
	assert.Equal(t, "http://backend:9000", cfg.Endpoint)
	assert.NotNil(t, loc)

	// First run writes the defaults.
	_, err = os.Stat(opts.configPath)
	assert.NoError(t, err)
}

func TestParseRange(t *testing.T) {
	sel, err := parseRange("2026-10-19 09:00", "2026-10-19 09:30", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, sel.End.Sub(sel.Start))

	_, err = parseRange("2026-10-19 09:30", "2026-10-19 09:00", time.UTC)
	assert.ErrorContains(t, err, "is before --start")

	sel, err = parseRange("2026-10-19 09:30", "2026-10-19 09:30", time.UTC)
	require.NoError(t, err)
	assert.True(t, sel.Start.Equal(sel.End))

	_, err = parseRange("tomorrow", "2026-10-19 09:00", time.UTC)
	assert.ErrorContains(t, err, "invalid --start")
}

func TestFeedSources(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ICS = []config.ICSConfig{
		{ID: "school", URL: "https://example.com/school.ics"},
		{URL: "https://example.com/club.ics"},
	}
	src := feedSources(cfg)
	require.Len(t, src, 2)
	assert.Equal(t, "school", src[0].ID)
	assert.Equal(t, "ics-2", src[1].ID)
}
