package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"bonchassist-backend/internal/scrapers/sut"

	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")

	require.NoError(t, os.WriteFile(path, []byte(`{
		// shared settings
		semester_start: "2024-09-02",
		group_name: "ИКПИ-22",
		portal: {
			timeout_seconds: 20,
			building_suffixes: ["; Б22", "; Б1"],
		},
		attendance: {
			interval_seconds: 30,
			windows: ["09:00-12:20"],
		},
	}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.local.json5"), []byte(`{
		credentials: { login: "me@sut.ru", password: "secret" },
		group_name: "ИКПИ-21",
	}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "ИКПИ-21", cfg.GroupName)
	require.Equal(t, "me@sut.ru", cfg.Credentials.Login)
	require.Equal(t, 80, cfg.ConcurrencyLimit)
	require.Equal(t, "Europe/Moscow", cfg.Timezone)
	require.Equal(t, "bonchassist.db", cfg.Database.File)

	options, err := cfg.SessionOptions()
	require.NoError(t, err)
	require.Equal(t, 20*time.Second, options.Timeout)
	require.Equal(t, []string{"; Б22", "; Б1"}, options.BuildingSuffixes)
	require.Equal(t, sut.DefaultOptions().AuthURL, options.AuthURL)
	require.Equal(t, sut.DefaultMarkers(), options.Markers)
	require.Equal(t, time.Date(2024, time.September, 2, 0, 0, 0, 0, time.UTC), options.SemesterStart)

	policy, err := cfg.AttendancePolicy()
	require.NoError(t, err)
	require.Equal(t, 30*time.Second, policy.Interval)
	require.Len(t, policy.Gate, 1)
}

func TestLoadMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.json5"))
	require.NoError(t, err)
	require.Equal(t, Defaults().Snapshot, cfg.Snapshot)

	_, err = cfg.SessionOptions()
	require.Error(t, err)

	loc, err := cfg.Location()
	require.NoError(t, err)
	require.Equal(t, "Europe/Moscow", loc.String())
}
