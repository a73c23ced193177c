package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"sme-onboarding/internal/models"

	"github.com/spf13/cobra"
)

func (c *cli) applicationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "applications",
		Aliases: []string{"apps"},
		Short:   "List and review applications",
	}
	cmd.AddCommand(c.applicationsListCmd())
	cmd.AddCommand(c.applicationsGetCmd())
	cmd.AddCommand(c.reviewCmd("approve", "Approve an application", true))
	cmd.AddCommand(c.reviewCmd("reject", "Reject an application", true))
	cmd.AddCommand(c.reviewCmd("escalate", "Escalate an application", true))
	cmd.AddCommand(c.reviewCmd("withdraw", "Withdraw your own application", false))
	cmd.AddCommand(c.applicationsDeleteCmd())
	return cmd
}

func (c *cli) applicationsListCmd() *cobra.Command {
	var (
		reviewer string
		statuses []string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your applications, or a reviewer's queue with --reviewer",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app
			var (
				apps []models.Application
				err  error
			)
			if reviewer != "" {
				apps, err = a.portal.ApplicationsByReviewer(cmd.Context(), reviewer)
			} else {
				var uid string
				if uid, err = a.requireUser(); err != nil {
					return err
				}
				apps, err = a.portal.ApplicationsByUser(cmd.Context(), uid)
			}
			if err != nil {
				return err
			}

			counts := models.CountByStatus(apps)
			printf(cmd, "Total %d", counts.Total)
			for _, s := range counts.Order {
				printf(cmd, "  %s %d", s, counts.Counts[s])
			}
			printf(cmd, "\n\n")

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tBUSINESS\tCOUNTRY\tTYPE\tSTATUS")
			for _, app := range models.FilterByStatus(apps, statuses...) {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", app.ApplicationID, app.BusinessName, app.BusinessCountry, app.BusinessType, app.Status)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&reviewer, "reviewer", "", "List applications assigned to this reviewer ID")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Only show these statuses (repeatable)")
	return cmd
}

func (c *cli) applicationsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [application-id]",
		Short: "Show one application and its documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := c.app.portal.Application(ctx, args[0])
			if err != nil {
				return err
			}
			printf(cmd, "Application  %s\n", app.ApplicationID)
			printf(cmd, "Business     %s\n", app.BusinessName)
			printf(cmd, "Country      %s\n", app.BusinessCountry)
			if app.BusinessType != "" {
				printf(cmd, "Type         %s\n", app.BusinessType)
			}
			printf(cmd, "Status       %s\n", app.Status)
			if app.Reason != "" {
				printf(cmd, "Reason       %s\n", app.Reason)
			}

			docs, err := c.app.portal.DocumentsByApplication(ctx, args[0])
			if err != nil {
				return err
			}
			writeDocumentTable(cmd, docs)
			return nil
		},
	}
}

// reviewCmd builds approve, reject, escalate and withdraw. Staff actions
// are refused up front when the cached session is not a staff account.
func (c *cli) reviewCmd(action, short string, staff bool) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   action + " [application-id]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app
			if staff && a.session != nil && !a.session.IsStaff() {
				return errors.New(action + " requires a staff account")
			}
			ctx, id := cmd.Context(), args[0]
			var err error
			switch action {
			case "approve":
				err = a.portal.Approve(ctx, id, reason)
			case "reject":
				err = a.portal.Reject(ctx, id, reason)
			case "escalate":
				err = a.portal.Escalate(ctx, id, reason)
			case "withdraw":
				err = a.portal.Withdraw(ctx, id)
			}
			if err != nil {
				return err
			}
			printf(cmd, "%s: %s done\n", id, action)
			return nil
		},
	}
	if action != "withdraw" {
		cmd.Flags().StringVarP(&reason, "reason", "r", "", "Reason recorded with the decision")
	}
	return cmd
}

func (c *cli) applicationsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [application-id]",
		Short: "Delete an application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.portal.DeleteApplication(cmd.Context(), args[0]); err != nil {
				return err
			}
			printf(cmd, "%s deleted\n", args[0])
			return nil
		},
	}
}
