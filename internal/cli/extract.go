package cli

import (
	"fmt"
	"os"

	"github.com/hupe1980/splitgo"
	"github.com/hupe1980/splitgo/archive"
	"github.com/hupe1980/splitgo/blobstore"
	"github.com/hupe1980/splitgo/materialize"
	"github.com/spf13/cobra"
)

func newExtractCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract ARCHIVE",
		Short: "Unpack a split archive into a directory",
		Long: `Unpack an archive written by "split --archive" into --out.

The codec is taken from the file name (.tar, .tar.zst, .tar.lz4) and falls
back to --archive-codec.`,
		Args: cobra.ExactArgs(1),
		RunE: runExtract,
	}

	f := cmd.Flags()
	f.String("out", "", "target directory")
	f.String("archive-codec", "zstd", "archive compression when the file name does not tell: zstd, lz4 or none")
	f.Bool("overwrite", false, "replace a split already present in --out")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	file := args[0]
	out, _ := cmd.Flags().GetString("out")
	codecName, _ := cmd.Flags().GetString("archive-codec")
	overwrite, _ := cmd.Flags().GetBool("overwrite")

	codec, err := codecFor(file, codecName)
	if err != nil {
		return err
	}

	dst := blobstore.NewLocalStore(out)
	existing, err := materialize.Existing(ctx, dst)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		if !overwrite {
			return fmt.Errorf("%w: %d files in %s", splitgo.ErrOutputExists, len(existing), out)
		}
		if err := materialize.Clear(ctx, dst); err != nil {
			return err
		}
	}

	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	stats, err := archive.Extract(ctx, f, dst, codec)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "extracted %d files (%d bytes) to %s\n", stats.Files, stats.Bytes, out)
	return nil
}
