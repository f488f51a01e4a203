// Package cli holds the mailbite commands.
package cli

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:           "mailbite",
	Short:         "Email dispatch over the Brevo HTTP API or an SMTP relay",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}
