package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/ragchat/internal/domain/record"
)

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "Inspect the document registry",
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List uploaded documents, most recent first",
	Args:  cobra.NoArgs,
	RunE:  runDocumentsList,
}

var documentsGetCmd = &cobra.Command{
	Use:   "get [document-id]",
	Short: "Show one document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsGet,
}

func init() {
	documentsCmd.AddCommand(documentsListCmd)
	documentsCmd.AddCommand(documentsGetCmd)
	rootCmd.AddCommand(documentsCmd)
}

func runDocumentsList(cmd *cobra.Command, _ []string) error {
	recs, err := documents.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(recs) == 0 {
		printf(out, "No documents uploaded yet\n")
		return nil
	}
	for i := range recs {
		printf(out, "%s  %s  %s  %d bytes\n",
			recs[i].ID(), recs[i].UploadedAt().Format("2006-01-02 15:04:05"), recs[i].Filename(), recs[i].Size())
	}
	printf(out, "\nTotal: %d documents\n", len(recs))
	return nil
}

func runDocumentsGet(cmd *cobra.Command, args []string) error {
	rec, err := documents.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}
	printDocument(cmd, rec)
	return nil
}

func printDocument(cmd *cobra.Command, rec record.Record) {
	out := cmd.OutOrStdout()
	printf(out, "Document: %s\n\n", rec.ID())
	printf(out, "  Filename:     %s\n", rec.Filename())
	if rec.ContentType() != "" {
		printf(out, "  Content type: %s\n", rec.ContentType())
	}
	printf(out, "  Size:         %d bytes\n", rec.Size())
	printf(out, "  Stored at:    %s\n", rec.StoredPath())
	printf(out, "  Uploaded:     %s\n", rec.UploadedAt().Format("2006-01-02 15:04:05"))
}
