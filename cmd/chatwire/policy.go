package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func policyCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Print the reconnect schedule",
		Long: `Print the delay before each automatic reconnect attempt for the
configured policy, and the total time spent waiting before giving up.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			policy := cfg.Policy()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ATTEMPT\tDELAY\tELAPSED")

			var elapsed time.Duration
			for i, d := range policy.Schedule() {
				elapsed += d
				fmt.Fprintf(w, "%d\t%v\t%v\n", i+1, d, elapsed)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "gives up after %d attempts\n", policy.MaxAttempts)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file (defaults if empty)")

	return cmd
}
