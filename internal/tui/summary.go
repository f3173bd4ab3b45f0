package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/vvka-141/pgscrape/pkg/pgscrape"
)

// TableStatusRow is one line of the status table.
type TableStatusRow struct {
	Job    string
	Table  string
	Exists bool
	Rows   int64
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(MutedStyle).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return HeaderStyle
			}
			return CellStyle
		})
}

// RenderSummary renders the per-job results of a run.
func RenderSummary(results []pgscrape.JobResult) string {
	t := newTable("JOB", "TABLE", "ROWS", "PAGES", "TIME", "STATUS")

	total, failed := 0, 0
	for _, r := range results {
		status := SymbolCheck + " ok"
		if r.Failed() {
			status = SymbolCross + " " + firstLine(r.Err.Error())
			failed++
		}
		total += r.Rows
		t.Row(r.Name, r.Table, fmt.Sprint(r.Rows), fmt.Sprint(r.Pages), r.Duration.Round(10*time.Millisecond).String(), status)
	}

	footer := fmt.Sprintf("%d rows written by %d jobs", total, len(results))
	if failed > 0 {
		footer = ErrorStyle.Render(fmt.Sprintf("%s, %d failed", footer, failed))
	} else {
		footer = SuccessStyle.Render(footer)
	}
	return t.String() + "\n" + footer + "\n"
}

// RenderStatus renders row counts for the job tables of database.
func RenderStatus(database string, exists bool, rows []TableStatusRow) string {
	title := TitleStyle.Render("Database " + database)
	if !exists {
		return title + "\n" + WarningStyle.Render("does not exist yet; run 'pgscrape db ensure' or 'pgscrape run'") + "\n"
	}

	t := newTable("JOB", "TABLE", "ROWS")
	for _, r := range rows {
		count := fmt.Sprint(r.Rows)
		if !r.Exists {
			count = "-"
		}
		t.Row(r.Job, r.Table, count)
	}
	return title + "\n" + t.String() + "\n"
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// JobRow is one line of the job listing.
type JobRow struct {
	Name   string
	Table  string
	Source string
}

// RenderJobs renders the job listing in launcher order.
func RenderJobs(rows []JobRow) string {
	t := newTable("JOB", "TABLE", "SOURCE")
	for _, r := range rows {
		t.Row(r.Name, r.Table, r.Source)
	}
	return t.String() + "\n"
}
