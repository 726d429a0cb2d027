package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/ragchat/internal/usecase/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Upload local files into the knowledge base",
	Long:  `Runs every file through the ingestion pipeline. A failing file does not stop the others.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	files := make([]ingest.File, 0, len(args))
	for _, path := range args {
		f, err := os.Open(filepath.Clean(path))
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		files = append(files, ingest.File{Name: filepath.Base(path), Content: f})
	}

	results, err := documents.Upload(cmd.Context(), files)
	if err != nil {
		return fmt.Errorf("failed to ingest: %w", err)
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, r := range results {
		if !r.OK() {
			failed++
			printf(out, "FAIL  %s: %v\n", r.Filename(), r.Err())
			continue
		}
		rc := r.Receipt()
		printf(out, "OK    %s -> %s (%d chunks, %s)\n", r.Filename(), rc.Document.ID(), rc.ChunksIndexed, rc.Status)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}
