package ui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"nitterscraper/pkg/report"
	"nitterscraper/pkg/scraper"
)

// SummaryTable renders one row per account of a run report
func SummaryTable(r *report.Report) string {
	rows := make([][]string, 0, len(r.Accounts))
	statuses := make([]string, 0, len(r.Accounts))
	for _, a := range r.Accounts {
		endpoint := a.Endpoint
		if endpoint == "" {
			endpoint = "-"
		}
		rows = append(rows, []string{
			a.Username,
			a.Status,
			endpoint,
			strconv.Itoa(a.Attempts),
			strconv.Itoa(a.Posts),
		})
		statuses = append(statuses, a.Status)
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(neonMagenta)).
		Headers("ACCOUNT", "STATUS", "ENDPOINT", "ATTEMPTS", "POSTS").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 1 && row >= 0 && row < len(statuses) {
				return statusStyle(statuses[row]).Padding(0, 1)
			}
			return cellStyle
		})

	return t.String()
}

// PrintSummary prints the account table and run totals
func PrintSummary(r *report.Report) {
	if r == nil {
		return
	}
	write(false, SummaryTable(r))
	PrintInfo("Run", r.RunID)
	PrintInfo("Records", strconv.Itoa(r.Records))
	PrintInfo("Accounts", fmt.Sprintf("%d ok / %d total", r.Count(scraper.StatusOK), len(r.Accounts)))
	PrintInfo("Duration", fmt.Sprintf("%.1fs", r.DurationSec))
	switch {
	case r.Saved:
		PrintSuccess("Saved to " + r.Output)
	case r.SaveError != "":
		PrintError("Failed to save output", r.SaveError)
	default:
		PrintWarning("Nothing was saved")
	}
	if r.Interrupted {
		PrintWarning("Run was interrupted; results are partial")
	}
}
