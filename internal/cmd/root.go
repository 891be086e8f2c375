package cmd

import (
	"os"
	"strings"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/botguard/botguard/internal/config"
	"github.com/botguard/botguard/internal/observability"
)

var (
	cfgFile string
	verbose bool

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   config.AppName,
	Short: "Safety and resilience layer for rate-governed automation",
	Long: `botguard gates repeated automation actions behind sliding-window rate
limits and an idempotency guard, retries transient failures with backoff,
and keeps its on-disk bookkeeping bounded.

Use the subcommands to inspect limits, manage persisted state, and export
metrics.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/botguard/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	observability.InitCLILogger(config.AppName, verbose)

	if loaded, err := config.LoadDotenv(); err != nil {
		observability.CLILogger.Warn("Failed to load env file", zap.Error(err))
	} else if loaded != "" && verbose {
		observability.CLILogger.Debug("Loaded environment file", zap.String("path", loaded))
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		appConfigDir := gfconfig.GetAppConfigDir(config.AppName)
		if appConfigDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				ExitWithCode(observability.CLILogger, foundry.ExitFileNotFound, "Could not find home directory", err)
			}
			viper.AddConfigPath(home)
			viper.SetConfigName("." + config.AppName)
		} else {
			viper.AddConfigPath(appConfigDir)
			viper.SetConfigName("config")
		}

		viper.AddConfigPath("./config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("BOTGUARD")
	// Nested keys use dots; env vars use underscores (BOTGUARD_BYPASS_ALL
	// binds bypass.all).
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			observability.CLILogger.Debug("Using config file", zap.String("path", viper.ConfigFileUsed()))
		}
	} else {
		// A missing config file is fine, defaults cover everything
		if verbose {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				observability.CLILogger.Debug("No config file found, using defaults and environment variables")
			} else {
				observability.CLILogger.Warn("Error reading config file", zap.Error(err))
			}
		}
	}

	setDefaults()
}

// setDefaults sets default configuration values
func setDefaults() {
	// Logging defaults
	viper.SetDefault("logging.level", "info")

	// State file defaults
	viper.SetDefault("state.idempotency_path", config.DefaultIdempotencyPath())
	viper.SetDefault("state.seen_path", config.DefaultSeenPath())
	viper.SetDefault("state.idempotency_max_entries", 50000)
	viper.SetDefault("state.idempotency_max_age_days", 30)
	viper.SetDefault("state.seen_max_entries", 50000)

	// Limits file (optional; absent file means unrestricted)
	viper.SetDefault("limits.path", "")

	// Bypass defaults: enforce everything
	viper.SetDefault("bypass.all", false)
	viper.SetDefault("bypass.engagement", false)

	// Retry defaults
	viper.SetDefault("retry.attempts", 3)
	viper.SetDefault("retry.base_delay", "500ms")
	viper.SetDefault("retry.max_delay", "5s")
	viper.SetDefault("retry.jitter", "200ms")

	// Metrics defaults
	viper.SetDefault("metrics.window", "60s")
	viper.SetDefault("metrics.snapshot_path", config.DefaultSnapshotPath())

	// Archive defaults
	viper.SetDefault("archive.driver", "libsql")
	viper.SetDefault("archive.path", config.DefaultArchivePath())

	// Server defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.shutdown_timeout", "10s")
}
