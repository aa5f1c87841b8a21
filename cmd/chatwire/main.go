package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "chatwire",
		Short: "Realtime chat connection client",
		Long: `chatwire keeps one WebSocket session open to a chat backend's
realtime endpoint, reconnecting with capped exponential backoff after
abnormal closes, and reports typed server events as they arrive.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		watchCmd(),
		policyCmd(),
		idCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
