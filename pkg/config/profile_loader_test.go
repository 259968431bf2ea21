package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kontext-run/kontext-core/pkg/config"
	"github.com/stretchr/testify/require"
)

const conservativeYAML = `
name: conservative
max_amount: 5000
max_frequency: 10
frequency_window_minutes: 60
off_hours_start: 22
off_hours_end: 5
min_interval_seconds: 10
approval_threshold: "1000"
`

const permissiveYAML = `
max_amount: 50000
max_frequency: 100
frequency_window_minutes: 60
off_hours_start: 23
off_hours_end: 4
min_interval_seconds: 2
`

func writeProfile(t *testing.T, dir, name, body string) {
	t.Helper()
	path := filepath.Join(dir, "profile_"+name+".yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestLoadProfile_Conservative(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "conservative", conservativeYAML)

	p, err := config.LoadProfile(dir, "conservative")
	require.NoError(t, err)
	require.Equal(t, "conservative", p.Name)
	require.Equal(t, 5000.0, p.MaxAmount)
	require.Equal(t, 10, p.MaxFrequency)
	require.Equal(t, "1000", p.ApprovalThreshold)
	require.Equal(t, 60*60*1_000_000_000, int(p.FrequencyWindow()))
}

func TestLoadProfile_MissingNameDefaultsToFileStem(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "permissive", permissiveYAML)

	p, err := config.LoadProfile(dir, "permissive")
	require.NoError(t, err)
	require.Equal(t, "permissive", p.Name)
	require.Empty(t, p.ApprovalThreshold)
}

func TestLoadProfile_NotFound(t *testing.T) {
	dir := t.TempDir()
	_, err := config.LoadProfile(dir, "nonexistent")
	require.Error(t, err)
}

func TestLoadAllProfiles(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "conservative", conservativeYAML)
	writeProfile(t, dir, "permissive", permissiveYAML)

	profiles, err := config.LoadAllProfiles(dir)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	require.Contains(t, profiles, "conservative")
	require.Contains(t, profiles, "permissive")
}
