package main

import (
	"fmt"
	"text/tabwriter"

	"sme-onboarding/internal/models"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func (c *cli) documentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "documents",
		Short: "Inspect documents attached to an application",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list [application-id]",
		Short: "List an application's documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := c.app.portal.DocumentsByApplication(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			writeDocumentTable(cmd, docs)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "download-url [document-id]",
		Short: "Print a short-lived download URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := c.app.portal.DownloadURL(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printf(cmd, "%s\n", url)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete [document-id]",
		Short: "Delete a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.portal.DeleteDocument(cmd.Context(), args[0]); err != nil {
				return err
			}
			printf(cmd, "%s deleted\n", args[0])
			return nil
		},
	})

	return cmd
}

func writeDocumentTable(cmd *cobra.Command, docs []models.DocumentRecord) {
	if len(docs) == 0 {
		printf(cmd, "\nNo documents.\n")
		return
	}
	printf(cmd, "\n")
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DOCUMENT\tTYPE\tFILE\tSTATUS\tUPLOADED")
	for _, d := range docs {
		uploaded := "-"
		if d.CreatedAt != nil {
			uploaded = humanize.Time(*d.CreatedAt)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.DocumentID, d.DocumentType, d.OriginalFilename, d.Status, uploaded)
	}
	_ = tw.Flush()
}
