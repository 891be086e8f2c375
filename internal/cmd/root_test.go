package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/botguard/botguard/internal/config"
)

func TestEnvOverridesBindToConfig(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "idempotency.json")

	t.Setenv("BOTGUARD_BYPASS_ALL", "true")
	t.Setenv("BOTGUARD_RETRY_ATTEMPTS", "7")
	t.Setenv("BOTGUARD_STATE_IDEMPOTENCY_PATH", statePath)

	initConfig()

	cfg, err := config.Load()
	require.NoError(t, err)

	require.True(t, cfg.Bypass.All, "BOTGUARD_BYPASS_ALL should override bypass.all")
	require.Equal(t, 7, cfg.Retry.Attempts)
	require.Equal(t, statePath, cfg.State.IdempotencyPath)
}

func TestEnvOverridesCategoryBypass(t *testing.T) {
	t.Setenv("BOTGUARD_BYPASS_ALL", "false")
	t.Setenv("BOTGUARD_BYPASS_ENGAGEMENT", "true")

	initConfig()

	cfg, err := config.Load()
	require.NoError(t, err)

	require.False(t, cfg.Bypass.All)
	require.True(t, cfg.Bypass.Engagement)
}
