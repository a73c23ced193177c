package main

import (
	"errors"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// submissionsCmd reads the ledger so staff can follow up on submissions
// that stopped partway.
func (c *cli) submissionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submissions",
		Short: "Inspect the local submission ledger",
	}

	var limit int
	pending := &cobra.Command{
		Use:   "pending",
		Short: "List submissions that did not complete",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app
			if a.ledger == nil {
				return errors.New("ledger is disabled: set ledger.enabled and database.postgres")
			}
			ctx := cmd.Context()
			subs, err := a.ledger.Incomplete(ctx, limit)
			if err != nil {
				return err
			}
			if len(subs) == 0 {
				printf(cmd, "No incomplete submissions.\n")
				return nil
			}
			for _, s := range subs {
				printf(cmd, "%s  application %s  %s  %s (%s)\n",
					s.ID, s.ApplicationID, s.BusinessName, s.Status, humanize.Time(s.UpdatedAt))
				if s.Error != "" {
					printf(cmd, "    error: %s\n", s.Error)
				}
				docs, err := a.ledger.Documents(ctx, s.ID)
				if err != nil {
					return err
				}
				for _, d := range docs {
					printf(cmd, "    %-24s %-9s %s\n", d.DocumentType, d.Status, d.Filename)
				}
			}
			return nil
		},
	}
	pending.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum submissions to show")
	cmd.AddCommand(pending)
	return cmd
}
