package ratelimit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadLimitsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "limits.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"vote": {"per_hour": 1, "per_day": 2, "per_week": 3, "jitter_seconds": 30},
		"post": {"per_day": 5}
	}`), 0644))

	limits, err := LoadLimits(path)
	require.NoError(t, err)
	require.Equal(t, ActionLimit{PerHour: 1, PerDay: 2, PerWeek: 3, JitterSeconds: 30}, limits["vote"])
	require.Equal(t, ActionLimit{PerDay: 5}, limits["post"])
}

func TestLoadLimitsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "limits.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
vote:
  per_hour: 12
  jitter_seconds: 60
`), 0644))

	limits, err := LoadLimits(path)
	require.NoError(t, err)
	require.Equal(t, 12, limits["vote"].PerHour)
	require.Equal(t, 60, limits["vote"].JitterSeconds)
}

func TestLoadLimitsMissingFile(t *testing.T) {
	limits, err := LoadLimits(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	require.Empty(t, limits)
}

func TestLoadLimitsEmptyPath(t *testing.T) {
	limits, err := LoadLimits("  ")
	require.NoError(t, err)
	require.Empty(t, limits)
}

func TestLoadLimitsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "limits.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := LoadLimits(path)
	require.Error(t, err)
}
