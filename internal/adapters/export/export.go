// Package export renders analyze and sprint reports as CSV or JSON for
// consumption outside the tool.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/hylla/sojourn/internal/app"
	"github.com/hylla/sojourn/internal/fanout"
)

// writeStage names the progress stage reported while rows are written.
const writeStage = "writing report"

// WriteCSV renders the report as CSV: one row per issue, a column per
// configured pattern, and a trailing "TIS: <state>" column for every status
// observed anywhere in the batch. Durations are seconds with two decimals.
func WriteCSV(w io.Writer, report *app.AnalyzeReport, progress fanout.Progress) error {
	cw := csv.NewWriter(w)

	header := []string{"key", "error", "warnings"}
	header = append(header, report.Patterns...)
	for _, state := range report.States {
		header = append(header, "TIS: "+state)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	total := len(report.Results)
	for i, res := range report.Results {
		row := make([]string, 0, len(header))
		errText := ""
		if res.Err != nil {
			errText = res.Err.Error()
		}
		row = append(row, res.Key, errText, strings.Join(res.Warnings, "; "))
		for _, name := range report.Patterns {
			row = append(row, strconv.Itoa(res.PatternCounts[name]))
		}
		for _, state := range report.States {
			row = append(row, strconv.FormatFloat(res.TimeInState[state], 'f', 2, 64))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
		if progress != nil {
			progress(writeStage, i+1, total)
		}
	}
	cw.Flush()
	return cw.Error()
}

// jsonReport and jsonIssue define the JSON export shape.
type jsonReport struct {
	ID          string      `json:"id,omitempty"`
	Query       string      `json:"query"`
	GeneratedAt time.Time   `json:"generated_at"`
	States      []string    `json:"states"`
	Issues      []jsonIssue `json:"issues"`
}

type jsonIssue struct {
	Key           string             `json:"key"`
	TimeInState   map[string]float64 `json:"time_in_state,omitempty"`
	PatternCounts map[string]int     `json:"pattern_counts,omitempty"`
	Warnings      []string           `json:"warnings,omitempty"`
	Error         string             `json:"error,omitempty"`
}

// WriteJSON renders the report as indented JSON.
func WriteJSON(w io.Writer, report *app.AnalyzeReport) error {
	doc := jsonReport{
		ID:          report.ID,
		Query:       report.Query,
		GeneratedAt: report.GeneratedAt,
		States:      report.States,
		Issues:      make([]jsonIssue, 0, len(report.Results)),
	}
	for _, res := range report.Results {
		issue := jsonIssue{
			Key:           res.Key,
			TimeInState:   res.TimeInState,
			PatternCounts: res.PatternCounts,
			Warnings:      res.Warnings,
		}
		if res.Err != nil {
			issue.Error = res.Err.Error()
		}
		doc.Issues = append(doc.Issues, issue)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// sprintHeader lists the sprint CSV columns in order.
var sprintHeader = []string{
	"issue_key",
	"from_status",
	"to_status",
	"transition_date",
	"sprint_day",
	"days_from_sprint_start",
	"days_to_sprint_end",
	"sprint_progress_percent",
	"error",
}

// WriteSprintCSV renders sprint transition rows as CSV, one row per
// transition, already sorted by the service.
func WriteSprintCSV(w io.Writer, rows []app.SprintTransition, progress fanout.Progress) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(sprintHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, row := range rows {
		at := ""
		if !row.At.IsZero() {
			at = row.At.Format(time.RFC3339)
		}
		record := []string{
			row.Key,
			row.From,
			row.To,
			at,
			strconv.Itoa(row.SprintDay),
			strconv.Itoa(row.DaysFromStart),
			strconv.Itoa(row.DaysToEnd),
			strconv.FormatFloat(row.ProgressPercent, 'f', 1, 64),
			row.Err,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
		if progress != nil {
			progress(writeStage, i+1, len(rows))
		}
	}
	cw.Flush()
	return cw.Error()
}
