package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "helpdesk",
		Short:        "Helpdesk ticketing service",
		Long:         `Helpdesk serves the ticket, comment, support mark and user APIs and ships the tools to migrate and bootstrap its database.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newCreateAdminCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
