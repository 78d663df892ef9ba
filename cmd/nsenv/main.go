// Command nsenv runs rollouts in non-stationary environments
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "nsenv",
		Short: "nsenv runs random rollouts in non-stationary environments " +
			"and records their switches.",
		SilenceUsage: true,
	}

	for _, envFile := range []string{
		".env",
		"../../.env",
	} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	rootCmd.AddCommand(newRunCmd(), newSchemaCmd(), newLayoutsCmd(),
		newModelsCmd())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
