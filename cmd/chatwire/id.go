package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rickgao/chatwire/internal/identity"
)

func idCmd() *cobra.Command {
	var check string

	cmd := &cobra.Command{
		Use:   "id",
		Short: "Generate or inspect a client id",
		Long: `Print a freshly generated client id. With --check, report whether the
given id is well formed and when it was issued.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if check == "" {
				fmt.Fprintln(out, identity.Generate())
				return nil
			}

			issued, ok := identity.IssuedAt(check)
			if !ok {
				return fmt.Errorf("%q is not a valid client id", check)
			}
			fmt.Fprintf(out, "valid, issued %s\n", issued.UTC().Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&check, "check", "", "client id to validate")

	return cmd
}
