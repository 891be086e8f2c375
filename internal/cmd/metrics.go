package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/botguard/botguard/internal/core/metrics"
	"github.com/botguard/botguard/internal/output"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Inspect the metrics snapshot log",
}

var metricsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Render the most recent snapshot from the log",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		path := cfg.Metrics.SnapshotPath
		if flagPath, _ := cmd.Flags().GetString("path"); flagPath != "" {
			path = flagPath
		}

		snapshot, found, err := lastSnapshot(path)
		if err != nil {
			return err
		}
		if !found {
			fmt.Println("(no snapshots recorded)")
			return nil
		}

		if format == output.FormatJSON {
			rendered, err := output.RenderJSON(snapshot)
			if err != nil {
				return err
			}
			fmt.Println(rendered)
			return nil
		}

		fmt.Println(output.FormatSnapshot(snapshot))
		return nil
	},
}

var metricsArchiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Copy the most recent snapshot into the libsql archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		path := cfg.Metrics.SnapshotPath
		if flagPath, _ := cmd.Flags().GetString("path"); flagPath != "" {
			path = flagPath
		}

		snapshot, found, err := lastSnapshot(path)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("no snapshots recorded in %s", path)
		}

		archive, err := openArchive(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer archive.Close() // nolint:errcheck // best-effort cleanup

		if err := archive.ArchiveSnapshot(cmd.Context(), snapshot); err != nil {
			return err
		}

		fmt.Printf("archived snapshot from %s\n", snapshot.TimestampUTC)
		return nil
	},
}

// lastSnapshot scans the append-only log and keeps the final parseable
// line. Truncated trailing lines from a crashed writer are skipped.
func lastSnapshot(path string) (metrics.Snapshot, bool, error) {
	var last metrics.Snapshot
	found := false

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return last, false, nil
		}
		return last, false, fmt.Errorf("open metrics log: %w", err)
	}
	defer file.Close() // nolint:errcheck // read-only handle

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var snapshot metrics.Snapshot
		if err := json.Unmarshal(scanner.Bytes(), &snapshot); err != nil {
			continue
		}
		last = snapshot
		found = true
	}
	if err := scanner.Err(); err != nil {
		return last, found, fmt.Errorf("read metrics log: %w", err)
	}

	return last, found, nil
}

func init() {
	metricsCmd.AddCommand(metricsShowCmd)
	metricsCmd.AddCommand(metricsArchiveCmd)
	rootCmd.AddCommand(metricsCmd)

	metricsShowCmd.Flags().String("output-format", string(output.FormatTable), "Output format: table|json")
	metricsShowCmd.Flags().String("path", "", "Snapshot log path override")
	metricsArchiveCmd.Flags().String("path", "", "Snapshot log path override")
}
