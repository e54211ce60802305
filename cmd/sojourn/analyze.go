package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hylla/sojourn/internal/adapters/export"
	"github.com/hylla/sojourn/internal/app"
	"github.com/hylla/sojourn/internal/domain"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// analyzeFlags holds the analyze command's flag values.
type analyzeFlags struct {
	query         string
	saved         string
	from          string
	to            string
	patterns      []string
	businessHours bool
	workers       int
	format        string
	output        string
}

// newAnalyzeCmd runs the time-in-status and pattern analysis for a query.
func newAnalyzeCmd(flags *rootFlags) *cobra.Command {
	af := &analyzeFlags{}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze time in status and transition patterns for matched issues",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup(flags)
			if err != nil {
				return err
			}
			defer rt.Close()
			if err := requireSource(rt); err != nil {
				return err
			}
			return runAnalyze(cmd, rt, af)
		},
	}
	cmd.Flags().StringVarP(&af.query, "query", "q", "", "JQL query selecting the issues")
	cmd.Flags().StringVar(&af.saved, "saved", "", "name of a saved query to run")
	cmd.Flags().StringVar(&af.from, "from", "", "analysis window start (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&af.to, "to", "", "analysis window end (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().StringArrayVar(&af.patterns, "pattern", nil, "transition pattern to count, as name=A,B,C (repeatable)")
	cmd.Flags().BoolVar(&af.businessHours, "business-hours", false, "weight durations by the configured business calendar")
	cmd.Flags().IntVar(&af.workers, "workers", 0, "worker pool size (default from config)")
	cmd.Flags().StringVar(&af.format, "format", "table", "output format: table, csv, or json")
	cmd.Flags().StringVarP(&af.output, "output", "o", "", "write output to file instead of stdout")
	return cmd
}

func runAnalyze(cmd *cobra.Command, rt *runtime, af *analyzeFlags) error {
	ctx := cmd.Context()

	query := strings.TrimSpace(af.query)
	if af.saved != "" {
		saved, err := rt.service.GetQuery(ctx, af.saved)
		if err != nil {
			return fmt.Errorf("saved query %q: %w", af.saved, err)
		}
		query = saved.JQL
	}

	window, err := parseWindow(af.from, af.to)
	if err != nil {
		return err
	}

	patterns, err := rt.cfg.Analysis.TransitionPatterns()
	if err != nil {
		return err
	}
	for _, raw := range af.patterns {
		p, err := parsePatternFlag(raw)
		if err != nil {
			return err
		}
		patterns = append(patterns, p)
	}

	req := app.AnalyzeRequest{
		Query:    query,
		Window:   window,
		Patterns: patterns,
		Workers:  af.workers,
	}
	if req.Workers <= 0 {
		req.Workers = rt.cfg.Analysis.Workers
	}
	if af.businessHours {
		cal := rt.cfg.BusinessHours.Calendar()
		if cal == nil {
			return fmt.Errorf("business hours requested but not enabled in config")
		}
		req.BusinessHours = cal
	}

	printer := newProgressPrinter(cmd.ErrOrStderr())
	req.Progress = printer.Report

	report, err := rt.service.Analyze(ctx, req)
	if err != nil {
		return err
	}
	rt.logger.Info("analysis complete", "issues", len(report.Results), "failures", report.Failures())

	out, closeOut, err := openOutput(cmd, af.output)
	if err != nil {
		return err
	}
	defer closeOut()

	switch af.format {
	case "csv":
		return export.WriteCSV(out, report, nil)
	case "json":
		return export.WriteJSON(out, report)
	case "table":
		renderReportTable(out, report)
		return nil
	default:
		return fmt.Errorf("unknown format: %s", af.format)
	}
}

// renderReportTable prints the report as an aligned terminal table.
func renderReportTable(w io.Writer, report *app.AnalyzeReport) {
	table := tablewriter.NewWriter(w)
	header := []string{"Key", "Error"}
	header = append(header, report.Patterns...)
	for _, state := range report.States {
		header = append(header, "TIS: "+state)
	}
	table.SetHeader(header)

	for _, res := range report.Results {
		row := make([]string, 0, len(header))
		errText := ""
		if res.Err != nil {
			errText = res.Err.Error()
		}
		row = append(row, res.Key, errText)
		for _, name := range report.Patterns {
			row = append(row, strconv.Itoa(res.PatternCounts[name]))
		}
		for _, state := range report.States {
			row = append(row, formatDuration(res.TimeInState[state]))
		}
		table.Append(row)
	}
	table.Render()
}

// formatDuration renders seconds as a compact human-readable duration.
func formatDuration(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second))
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%.1fh", d.Hours())
	default:
		return fmt.Sprintf("%.1fd", d.Hours()/24)
	}
}

// parseWindow builds the optional analysis window from flag values. Both
// bounds must be given together.
func parseWindow(from, to string) (*domain.AnalysisWindow, error) {
	if from == "" && to == "" {
		return nil, nil
	}
	if from == "" || to == "" {
		return nil, fmt.Errorf("both --from and --to are required for a window")
	}
	start, err := parseFlagTime(from)
	if err != nil {
		return nil, fmt.Errorf("--from: %w", err)
	}
	end, err := parseFlagTime(to)
	if err != nil {
		return nil, fmt.Errorf("--to: %w", err)
	}
	w := domain.AnalysisWindow{Start: start, End: end}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &w, nil
}

// parseFlagTime accepts RFC3339 instants or bare dates (taken as UTC
// midnight).
func parseFlagTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

// parsePatternFlag parses a name=A,B,C flag value; the name is optional.
func parsePatternFlag(raw string) (domain.TransitionPattern, error) {
	name := ""
	states := raw
	if idx := strings.Index(raw, "="); idx >= 0 {
		name = raw[:idx]
		states = raw[idx+1:]
	}
	return domain.NewTransitionPattern(name, strings.Split(states, ","))
}

// openOutput returns the destination writer and a close func; stdout when
// no file is requested.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func(), error) {
	if strings.TrimSpace(path) == "" {
		return cmd.OutOrStdout(), func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
