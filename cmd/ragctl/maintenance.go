package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/ragchat/internal/version"
)

var purgeOrphansCmd = &cobra.Command{
	Use:   "purge-orphans",
	Short: "Delete vectors whose document is not in the registry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		n, err := documents.PurgeOrphans(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to purge orphans: %w", err)
		}
		printf(cmd.OutOrStdout(), "Removed %d orphan vectors\n", n)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:               "version",
	Short:             "Print the version number",
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	Run: func(cmd *cobra.Command, _ []string) {
		printf(cmd.OutOrStdout(), "ragctl version %s\n", version.String())
	},
}

func init() {
	rootCmd.AddCommand(purgeOrphansCmd)
	rootCmd.AddCommand(versionCmd)
}
