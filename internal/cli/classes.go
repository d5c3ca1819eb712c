package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/hupe1980/splitgo"
	"github.com/spf13/cobra"
)

func newClassesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classes",
		Short: "List the classes of a dataset with their counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			byName, _ := cmd.Flags().GetBool("sort-by-name")
			asJSON, _ := cmd.Flags().GetBool("json")

			rows, err := splitgo.ListClasses(cmd.Context(), cfg.Source, byName,
				splitgo.WithMinSamples(cfg.MinSamples),
				splitgo.WithStrict(cfg.Strict),
			)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tIMAGES\tINSTANCES\tSTATUS")
			for _, r := range rows {
				status := "kept"
				if r.Removed {
					status = "removed"
				}
				fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\n", r.ID, r.Name, r.Images, r.Instances, status)
			}
			return tw.Flush()
		},
	}
	addSourceFlags(cmd)
	cmd.Flags().Bool("sort-by-name", false, "order classes by name instead of id")
	cmd.Flags().Bool("json", false, "print the classes as JSON")
	return cmd
}
