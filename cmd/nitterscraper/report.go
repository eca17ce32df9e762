package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nitterscraper/pkg/report"
	"nitterscraper/pkg/ui"
)

var reportCmd = &cobra.Command{
	Use:   "report <path>",
	Short: "Print the summary of a saved run report",
	Long:  `Print the per-account summary table of a run report written with --report.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	r, err := report.Load(args[0])
	if err != nil {
		return fmt.Errorf("failed to load report: %w", err)
	}
	ui.PrintSummary(r)
	return nil
}
