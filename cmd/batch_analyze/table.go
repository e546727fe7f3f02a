package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"rental-listing-analyzer/internal/models"
)

const titleWidth = 30

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	statusColor = map[string]lipgloss.Color{
		models.BatchStatusOK:     lipgloss.Color("#04B575"),
		models.BatchStatusIssues: lipgloss.Color("#FFB020"),
		models.BatchStatusError:  lipgloss.Color("#FF4672"),
	}
)

func renderResultsTable(report *models.BatchReport) string {
	rows := make([][]string, 0, len(report.Results))
	for _, result := range report.Results {
		rows = append(rows, resultRow(result))
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "Status", "Title", "Area", "Monthly", "Yearly", "Currency", "Issues").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 1 && row >= 0 && row < len(rows) {
				if color, ok := statusColor[rows[row][1]]; ok {
					return cellStyle.Foreground(color)
				}
			}
			return cellStyle
		})

	return t.String()
}

func resultRow(result models.BatchResult) []string {
	issues := strings.Join(result.Issues, " | ")
	if issues == "" {
		issues = "None"
	}

	row := []string{strconv.Itoa(result.Index), result.Status, "N/A", "N/A", "N/A", "N/A", "N/A", issues}
	if listing := result.Listing; listing != nil {
		row[2] = truncate(listing.Title, titleWidth)
		row[3] = optionalString(listing.LocationArea)
		row[4] = optionalNumber(listing.MonthlyRent)
		row[5] = optionalNumber(listing.YearlyRent)
		row[6] = string(listing.Currency)
	}
	return row
}

func renderSummary(summary models.BatchSummary) string {
	return fmt.Sprintf("Results: %d OK, %d with issues, %d errors (%d total, avg %.0f ms)",
		summary.OK, summary.Issues, summary.Errors, summary.Total, summary.AvgProcessingMS)
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width]) + "..."
}

func optionalString(s *string) string {
	if s == nil || *s == "" {
		return "N/A"
	}
	return *s
}

func optionalNumber(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
