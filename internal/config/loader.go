// Package config provides centralized configuration management for
// botguard: viper-backed file and environment resolution plus optional
// .env credential loading, decoded into the Config struct.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// AppName names the binary, the config directory, and the env prefix.
const AppName = "botguard"

// DefaultDataDir is where state files live when no override is set.
func DefaultDataDir() string {
	if dir := gfconfig.GetAppConfigDir(AppName); dir != "" {
		return filepath.Join(dir, "data")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "data"
	}
	return filepath.Join(home, "."+AppName, "data")
}

// DefaultIdempotencyPath is the default idempotency store location.
func DefaultIdempotencyPath() string {
	return filepath.Join(DefaultDataDir(), "idempotency.json")
}

// DefaultSeenPath is the default seen-items list location.
func DefaultSeenPath() string {
	return filepath.Join(DefaultDataDir(), "seen.json")
}

// DefaultSnapshotPath is the default metrics snapshot log location.
func DefaultSnapshotPath() string {
	return filepath.Join(DefaultDataDir(), "metrics.ndjson")
}

// DefaultArchivePath is the default libsql archive location.
func DefaultArchivePath() string {
	return filepath.Join(DefaultDataDir(), "archive.db")
}

// LoadDotenv loads environment variables from the first .env file found,
// matching the credential file locations the automation callers use.
// Missing files are fine; there is nothing to load.
func LoadDotenv() (string, error) {
	home, _ := os.UserHomeDir()

	candidates := []string{
		filepath.Join("config", "credentials.env"),
		".env",
	}
	if home != "" {
		candidates = append(candidates, filepath.Join(home, "."+AppName+".env"))
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		if err := godotenv.Load(candidate); err != nil {
			return "", fmt.Errorf("load env file %s: %w", candidate, err)
		}
		return candidate, nil
	}

	return "", nil
}

// Load decodes the current viper state into a Config. Viper must already
// have its config file, env bindings, and defaults applied (the root
// command does this during initialization).
func Load() (*Config, error) {
	cfg := &Config{}

	decodeHook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)

	if err := viper.Unmarshal(cfg, viper.DecodeHook(decodeHook)); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}

	return cfg, nil
}
