package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/hupe1980/splitgo/blobstore"
	"github.com/hupe1980/splitgo/manifest"
	"github.com/spf13/cobra"
)

func newReportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report DIR",
		Short: "Show the run report of a split directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")

			rep, err := manifest.ReadReport(cmd.Context(), blobstore.NewLocalStore(args[0]))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "run\t%s\n", rep.RunID)
			fmt.Fprintf(tw, "created\t%s\n", rep.CreatedAt.Format("2006-01-02 15:04:05Z07:00"))
			fmt.Fprintf(tw, "source\t%s\n", rep.Source)
			fmt.Fprintf(tw, "mode\t%s\n", rep.Mode)
			fmt.Fprintf(tw, "seed\t%d\n", rep.Seed)
			fmt.Fprintf(tw, "min samples\t%d\n", rep.MinSamples)
			fmt.Fprintf(tw, "ratios\tvalid %.4g, test %.4g\n", rep.Ratios.Valid, rep.Ratios.Test)

			splits := make([]string, 0, len(rep.Sizes))
			for s := range rep.Sizes {
				splits = append(splits, s)
			}
			sort.Strings(splits)
			for _, s := range splits {
				fmt.Fprintf(tw, "%s\t%d images\n", s, rep.Sizes[s])
			}

			for _, rc := range rep.Validation.Removed {
				fmt.Fprintf(tw, "removed\tclass %d (%d images)\n", rc.ClassID, rc.ImageCount)
			}
			if d := rep.Dump; d != nil {
				fmt.Fprintf(tw, "dumped\t%d of %d requested\n", len(d.Removed), d.Requested)
			}
			if n := len(rep.Failures); n > 0 {
				fmt.Fprintf(tw, "failures\t%d\n", n)
			}
			for _, msg := range rep.Warnings {
				fmt.Fprintf(tw, "warning\t%s\n", msg)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Bool("json", false, "print the report as JSON")
	return cmd
}
