package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/hylla/sojourn/internal/adapters/export"
	"github.com/hylla/sojourn/internal/app"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// sprintFlags holds the sprint command's flag values.
type sprintFlags struct {
	query   string
	saved   string
	start   string
	end     string
	workers int
	format  string
	output  string
}

// newSprintCmd reports status transitions relative to a sprint window.
func newSprintCmd(flags *rootFlags) *cobra.Command {
	sf := &sprintFlags{}
	cmd := &cobra.Command{
		Use:   "sprint",
		Short: "Report status transitions within a sprint window",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup(flags)
			if err != nil {
				return err
			}
			defer rt.Close()
			if err := requireSource(rt); err != nil {
				return err
			}
			return runSprint(cmd, rt, sf)
		},
	}
	cmd.Flags().StringVarP(&sf.query, "query", "q", "", "JQL query selecting the issues")
	cmd.Flags().StringVar(&sf.saved, "saved", "", "name of a saved query to run")
	cmd.Flags().StringVar(&sf.start, "start", "", "sprint start (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&sf.end, "end", "", "sprint end (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().IntVar(&sf.workers, "workers", 0, "worker pool size (default from config)")
	cmd.Flags().StringVar(&sf.format, "format", "table", "output format: table or csv")
	cmd.Flags().StringVarP(&sf.output, "output", "o", "", "write output to file instead of stdout")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func runSprint(cmd *cobra.Command, rt *runtime, sf *sprintFlags) error {
	ctx := cmd.Context()

	query := sf.query
	if sf.saved != "" {
		saved, err := rt.service.GetQuery(ctx, sf.saved)
		if err != nil {
			return fmt.Errorf("saved query %q: %w", sf.saved, err)
		}
		query = saved.JQL
	}

	start, err := parseFlagTime(sf.start)
	if err != nil {
		return fmt.Errorf("--start: %w", err)
	}
	end, err := parseFlagTime(sf.end)
	if err != nil {
		return fmt.Errorf("--end: %w", err)
	}

	printer := newProgressPrinter(cmd.ErrOrStderr())
	workers := sf.workers
	if workers <= 0 {
		workers = rt.cfg.Analysis.Workers
	}
	rows, err := rt.service.SprintTransitions(ctx, app.SprintRequest{
		Query:    query,
		Start:    start,
		End:      end,
		Workers:  workers,
		Progress: printer.Report,
	})
	if err != nil {
		return err
	}
	rt.logger.Info("sprint analysis complete", "transitions", len(rows))

	out, closeOut, err := openOutput(cmd, sf.output)
	if err != nil {
		return err
	}
	defer closeOut()

	switch sf.format {
	case "csv":
		return export.WriteSprintCSV(out, rows, nil)
	case "table":
		renderSprintTable(out, rows)
		return nil
	default:
		return fmt.Errorf("unknown format: %s", sf.format)
	}
}

// renderSprintTable prints sprint transitions as an aligned terminal table.
func renderSprintTable(w io.Writer, rows []app.SprintTransition) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Key", "From", "To", "When", "Sprint Day", "Progress", "Error"})
	for _, row := range rows {
		at := ""
		if !row.At.IsZero() {
			at = row.At.Format(time.RFC3339)
		}
		table.Append([]string{
			row.Key,
			row.From,
			row.To,
			at,
			strconv.Itoa(row.SprintDay),
			fmt.Sprintf("%.1f%%", row.ProgressPercent),
			row.Err,
		})
	}
	table.Render()
}
