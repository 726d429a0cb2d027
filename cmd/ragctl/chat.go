package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var chatTopK int

var chatCmd = &cobra.Command{
	Use:   "chat [message...]",
	Short: "Ask a question against the uploaded documents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().IntVarP(&chatTopK, "top-k", "k", 0, "Number of chunks to retrieve (0 = configured default)")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	resp, err := chats.Chat(cmd.Context(), strings.Join(args, " "), chatTopK)
	if err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}

	out := cmd.OutOrStdout()
	printf(out, "%s\n", resp.Answer)
	if resp.RetrievalUsed {
		printf(out, "\nSources (%d, %.2f ms):\n", len(resp.Sources), resp.LatencyMs)
		for i := range resp.Sources {
			src := resp.Sources[i]
			if src.Page() > 0 {
				printf(out, "  %s  %s p.%d\n", src.ID(), src.Source(), src.Page())
			} else {
				printf(out, "  %s  %s\n", src.ID(), src.Source())
			}
		}
	}
	return nil
}
