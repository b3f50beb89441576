package cli

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rapport",
	Short: "Relationship engine for an autonomous social agent",
	Long: "Rapport tracks every account an agent interacts with: tiers, topics,\n" +
		"tone, and generated backstories that reply generation consumes as context.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// A local .env overrides nothing already set in the environment.
	godotenv.Load()

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(contextCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(enrichCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(rebuildCmd)
}
