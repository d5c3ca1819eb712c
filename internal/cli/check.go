package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hupe1980/splitgo"
	"github.com/spf13/cobra"
)

var errPairing = errors.New("images and label files do not pair up")

func newCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report how images and label files pair up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			asJSON, _ := cmd.Flags().GetBool("json")

			rep, err := splitgo.Check(cmd.Context(), cfg.Source)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(rep); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(out, "images: %d\nlabels: %d\npaired: %d\n", rep.Images, rep.Labels, rep.Paired)
				for _, id := range rep.MissingLabels {
					fmt.Fprintf(out, "missing label: %s\n", id)
				}
				for _, id := range rep.OrphanLabels {
					fmt.Fprintf(out, "orphan label: %s\n", id)
				}
				for _, id := range rep.Duplicates {
					fmt.Fprintf(out, "duplicate image: %s\n", id)
				}
				for _, name := range rep.Unsupported {
					fmt.Fprintf(out, "unsupported: %s\n", name)
				}
			}

			if cfg.Strict && !rep.OK() {
				return errPairing
			}
			return nil
		},
	}
	addSourceFlags(cmd)
	cmd.Flags().Bool("json", false, "print the report as JSON")
	return cmd
}
