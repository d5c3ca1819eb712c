// Package cli implements the splitgo command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hupe1980/splitgo"
	"github.com/hupe1980/splitgo/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is set at build time.
var Version = "0.1.0"

// NewRootCommand builds the splitgo command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "splitgo",
		Short: "Stratified train/valid/test splits for object-detection datasets",
		Long: `splitgo partitions <src>/all_images and <src>/all_labels into
train, valid and test splits that keep per-class frequencies, and writes
YOLO-style data.yaml and test.yaml manifests.

Commands:
  split    - Partition a dataset and materialize the split
  check    - Report how images and label files pair up
  classes  - List the classes of a dataset with their counts
  report   - Show the run report of a split directory
  extract  - Unpack a split archive into a directory
  version  - Print the version

Example:
  splitgo split --src ./dataset --valid 0.2 --test 0.1
  splitgo split --src ./dataset --dest s3://bucket/datasets/v3 --archive v3.tar.zst
  splitgo classes --src ./dataset --sort-by-name
  splitgo extract v3.tar.zst --out ./restored`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "config file (default ./splitgo.yaml)")
	root.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	root.PersistentFlags().String("log-format", "text", "log format: text or json")

	root.AddCommand(newSplitCommand())
	root.AddCommand(newCheckCommand())
	root.AddCommand(newClassesCommand())
	root.AddCommand(newReportCommand())
	root.AddCommand(newExtractCommand())
	root.AddCommand(newVersionCommand())
	return root
}

// Execute runs the CLI with args.
func Execute(ctx context.Context, args []string) error {
	root := NewRootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().String("src", "", "dataset root containing all_images/ and all_labels/")
	cmd.Flags().Bool("strict", false, "fail on images without label files and label files without images")
	cmd.Flags().Int("min-samples", 10, "minimum number of images per class")
}

// loadConfig binds the command's flags into a fresh viper instance and loads
// the configuration.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.New()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	file, _ := cmd.Flags().GetString("config")
	return config.Load(v, file)
}

func newLogger(cmd *cobra.Command, cfg config.LogConfig) *splitgo.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	if strings.EqualFold(cfg.Format, "json") {
		return splitgo.NewJSONLoggerTo(cmd.ErrOrStderr(), level)
	}
	return splitgo.NewTextLoggerTo(cmd.ErrOrStderr(), level)
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "splitgo %s\n", Version)
		},
	}
}
