package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/botguard/botguard/internal/core/ratelimit"
	"github.com/botguard/botguard/internal/output"
)

var limitsCmd = &cobra.Command{
	Use:   "limits",
	Short: "Inspect the effective action rate limits",
}

var limitsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured action limits",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}

		limits, err := loadLimits(cmd)
		if err != nil {
			return err
		}

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
			rendered, err := output.RenderJSON(limits)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(sink.writer, rendered)
			return err
		}

		if len(limits) == 0 {
			_, err = fmt.Fprintln(sink.writer, "(no limits configured; all actions unrestricted)")
			return err
		}

		_, err = fmt.Fprintln(sink.writer, output.FormatLimits(limits))
		return err
	},
}

var limitsCheckCmd = &cobra.Command{
	Use:   "check <account> <action>",
	Short: "Dry-run the admission decision for an account and action",
	Long: `Dry-run the admission decision for an account and action against the
configured limits. The check reads only the current process state, so it
reports what a fresh process would decide: useful for verifying limit and
bypass configuration, not live counters.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		account := strings.TrimSpace(args[0])
		action := strings.TrimSpace(args[1])

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		limits, err := loadLimits(cmd)
		if err != nil {
			return err
		}

		limiter := ratelimit.New(cfg.Bypass)
		allowed, wait := limiter.Check(account, action, limits)

		if allowed {
			fmt.Printf("allowed: %s may perform %q now\n", account, action)
			return nil
		}
		fmt.Printf("denied: %s must wait %s before %q\n", account, wait, action)
		return nil
	},
}

func loadLimits(cmd *cobra.Command) (ratelimit.Limits, error) {
	path, err := cmd.Flags().GetString("limits-file")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(path) == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		path = cfg.Limits.Path
	}
	return ratelimit.LoadLimits(path)
}

func init() {
	limitsCmd.AddCommand(limitsListCmd)
	limitsCmd.AddCommand(limitsCheckCmd)
	rootCmd.AddCommand(limitsCmd)

	for _, sub := range []*cobra.Command{limitsListCmd, limitsCheckCmd} {
		sub.Flags().String("limits-file", "", "Limits file override (YAML or JSON)")
	}
	limitsListCmd.Flags().String("output-format", string(output.FormatTable), "Output format: table|json")
	limitsListCmd.Flags().String("out", "", "Write output to a file (default stdout)")
}
