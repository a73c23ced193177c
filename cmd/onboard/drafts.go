package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"sme-onboarding/internal/onboarding/form"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var errDraftsDisabled = errors.New("drafts are disabled: set drafts.enabled and database.redis.address")

func (c *cli) draftsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drafts",
		Short: "Manage saved wizard drafts",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the signed-in user's saved drafts",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app
			if a.drafts == nil {
				return errDraftsDisabled
			}
			ctx := cmd.Context()
			drafts, err := a.drafts.List(ctx, a.userID())
			if err != nil {
				return err
			}
			if len(drafts) == 0 {
				printf(cmd, "No drafts.\n")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DRAFT\tCOMPANY\tSTEP\tSAVED")
			for _, d := range drafts {
				step := "?"
				if d.Step >= 0 && d.Step < len(form.StepTitles) {
					step = form.StepTitles[d.Step]
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.ID, d.Fields["companyName"], step, humanize.Time(d.SavedAt))
			}
			return tw.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete [draft-id]",
		Short: "Delete a saved draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.app.drafts == nil {
				return errDraftsDisabled
			}
			if err := c.app.drafts.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			printf(cmd, "%s deleted\n", args[0])
			return nil
		},
	})

	return cmd
}
