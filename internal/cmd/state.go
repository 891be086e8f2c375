package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/botguard/botguard/internal/core/state"
	"github.com/botguard/botguard/internal/observability"
	"github.com/botguard/botguard/internal/output"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect and maintain persisted bookkeeping state",
}

var stateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List idempotency records",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		records := openIdempotencyStore(cfg).Records()

		outPath, err := cmd.Flags().GetString("out")
		if err != nil {
			return err
		}
		sink, err := openSink(outPath)
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()

		if format == output.FormatJSON {
			rendered, err := output.RenderJSON(records)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(sink.writer, rendered)
			return err
		}

		_, err = fmt.Fprintln(sink.writer, output.FormatRecords(records))
		return err
	},
}

var (
	cleanupMaxEntries     int
	cleanupMaxAgeDays     int
	cleanupSeenMaxEntries int
	cleanupArchive        bool
)

var stateCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Apply bounded-retention passes to the state files",
	Long: `Apply bounded-retention passes to the idempotency store and the
seen-items list. Records beyond the age bound are dropped first, then the
store is trimmed to the most recently touched entries; the seen list keeps
its newest entries. Run this from a periodic job during idle windows, not
alongside live automation writing the same files.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		maxEntries := cfg.State.IdempotencyMaxEntries
		if cmd.Flags().Changed("max-entries") {
			maxEntries = cleanupMaxEntries
		}
		maxAgeDays := cfg.State.IdempotencyMaxAgeDays
		if cmd.Flags().Changed("max-age-days") {
			maxAgeDays = cleanupMaxAgeDays
		}
		seenMax := cfg.State.SeenMaxEntries
		if cmd.Flags().Changed("seen-max-entries") {
			seenMax = cleanupSeenMaxEntries
		}

		cleaner := &state.Cleaner{
			Idempotency: openIdempotencyStore(cfg),
			Seen:        openSeenList(cfg),
		}

		if cleanupArchive {
			archive, err := openArchive(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer archive.Close() // nolint:errcheck // best-effort cleanup
			cleaner.Archive = archive
		}

		remaining, err := cleaner.CleanupIdempotency(cmd.Context(), maxEntries, maxAgeDays)
		if err != nil {
			return fmt.Errorf("cleanup idempotency: %w", err)
		}

		seenRemaining, err := cleaner.CleanupSeen(seenMax)
		if err != nil {
			return fmt.Errorf("cleanup seen list: %w", err)
		}

		observability.CLILogger.Info("State cleanup complete",
			zap.Int("idempotency_remaining", remaining),
			zap.Int("seen_remaining", seenRemaining),
			zap.Bool("archived", cleanupArchive),
		)
		fmt.Printf("idempotency: %d records kept, seen: %d entries kept\n", remaining, seenRemaining)
		return nil
	},
}

var stateArchiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Inspect the libsql archive",
}

var stateArchiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived idempotency records",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			return err
		}

		archive, err := openArchive(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer archive.Close() // nolint:errcheck // best-effort cleanup

		records, err := archive.ListArchivedRecords(cmd.Context(), limit)
		if err != nil {
			return err
		}

		if format == output.FormatJSON {
			rendered, err := output.RenderJSON(records)
			if err != nil {
				return err
			}
			fmt.Println(rendered)
			return nil
		}

		fmt.Println(output.FormatArchivedRecords(records))
		return nil
	},
}

func init() {
	stateCmd.AddCommand(stateListCmd)
	stateCmd.AddCommand(stateCleanupCmd)
	stateArchiveCmd.AddCommand(stateArchiveListCmd)
	stateCmd.AddCommand(stateArchiveCmd)
	rootCmd.AddCommand(stateCmd)

	stateArchiveListCmd.Flags().String("output-format", string(output.FormatTable), "Output format: table|json")
	stateArchiveListCmd.Flags().Int("limit", 0, "Cap the number of rows returned (0 for all)")

	stateListCmd.Flags().String("output-format", string(output.FormatTable), "Output format: table|json")
	stateListCmd.Flags().String("out", "", "Write output to a file (default stdout)")

	stateCleanupCmd.Flags().IntVar(&cleanupMaxEntries, "max-entries", 0, "Idempotency entry bound (default from config)")
	stateCleanupCmd.Flags().IntVar(&cleanupMaxAgeDays, "max-age-days", 0, "Idempotency age bound in days; 0 disables (default from config)")
	stateCleanupCmd.Flags().IntVar(&cleanupSeenMaxEntries, "seen-max-entries", 0, "Seen-list entry bound (default from config)")
	stateCleanupCmd.Flags().BoolVar(&cleanupArchive, "archive", false, "Copy dropped records into the libsql archive first")
}
