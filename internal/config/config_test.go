package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FirstRunWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "kidplan.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoad_NormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kidplan.yaml")
	yml := `
endpoint: http://planner.local:9000
week_start: friday
slot_minutes: 7
day_start_hour: 8
day_end_hour: 6
locale: fr
data_dir: /tmp/kp
ics:
  - id: school
    url: https://example.com/school.ics
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://planner.local:9000", cfg.Endpoint)
	assert.Equal(t, "monday", cfg.WeekStart)
	assert.Equal(t, 15, cfg.SlotMinutes)
	assert.Equal(t, 8, cfg.DayStartHour)
	assert.Equal(t, 22, cfg.DayEndHour)
	assert.Equal(t, "zh", cfg.Locale)
	assert.Equal(t, filepath.Join("/tmp/kp", "kidplan.db"), cfg.Database)
	require.Len(t, cfg.ICS, 1)
	assert.Equal(t, "school", cfg.ICS[0].ID)
}

func TestLoad_RejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kidplan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unterminated"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kidplan.yaml")
	cfg := DefaultConfig()
	cfg.Locale = "en"
	cfg.ICS = append(cfg.ICS, ICSConfig{ID: "club", URL: "https://example.com/club.ics"})

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSave_EmptyPath(t *testing.T) {
	assert.Error(t, Save("", DefaultConfig()))
	assert.Error(t, Save("x.yaml", nil))
}
