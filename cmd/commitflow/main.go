// Package main provides the entry point for the commitflow CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/commitflow/cmd/commitflow/commands"
	"github.com/Sumatoshi-tech/commitflow/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	rootCmd := &cobra.Command{
		Use:   "commitflow",
		Short: "Commitflow - webhook-driven commit ingestion and task tracking",
		Long: `Commitflow turns version-control webhook deliveries into task updates
and contributor statistics.

Commands:
  serve     Run the webhook ingestion server
  ingest    Process a payload file directly
  report    Print the contributor report for a project
  project   Manage tracked projects
  user      Manage known contributors`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewIngestCommand())
	rootCmd.AddCommand(commands.NewReportCommand())
	rootCmd.AddCommand(commands.NewProjectCommand())
	rootCmd.AddCommand(commands.NewUserCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "commitflow %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
