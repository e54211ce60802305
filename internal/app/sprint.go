package app

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/hylla/sojourn/internal/domain"
	"github.com/hylla/sojourn/internal/fanout"
	"github.com/hylla/sojourn/internal/history"
)

// SprintRequest selects issues and the sprint window to report transitions
// against. An End at exactly midnight is extended to the end of that day so
// a date-only input covers its full final day.
type SprintRequest struct {
	Query    string
	Start    time.Time
	End      time.Time
	Workers  int
	Progress fanout.Progress
}

// SprintTransition is one status change inside the sprint window, annotated
// with sprint-relative position metrics. A failed issue yields a single row
// carrying the error and zero metrics so the report still accounts for it.
type SprintTransition struct {
	Key             string
	From            string
	To              string
	At              time.Time
	SprintDay       int
	DaysFromStart   int
	DaysToEnd       int
	ProgressPercent float64
	Err             string
}

// SprintTransitions fans out over the matched issues and returns every
// status transition that occurred inside the sprint window, sorted by
// transition time.
func (s *Service) SprintTransitions(ctx context.Context, req SprintRequest) ([]SprintTransition, error) {
	if req.Query == "" {
		return nil, ErrNoQuery
	}
	start := req.Start
	end := req.End
	if h, m, sec := end.Clock(); h == 0 && m == 0 && sec == 0 {
		end = end.Add(24*time.Hour - time.Second)
	}
	if !start.Before(end) {
		return nil, domain.ErrInvalidWindow
	}

	keys, err := s.source.SearchKeys(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", req.Query, err)
	}

	var (
		mu   sync.Mutex
		rows []SprintTransition
	)
	pool := fanout.Pool{
		Workers:  req.Workers,
		Stage:    "analyzing sprint transitions",
		Progress: req.Progress,
	}
	results := pool.Run(ctx, keys, s.source.FetchIssue, func(rec domain.IssueRecord) domain.IssueResult {
		issueRows := sprintRows(rec, start, end)
		mu.Lock()
		rows = append(rows, issueRows...)
		mu.Unlock()
		return domain.IssueResult{Key: rec.Key}
	})
	for _, res := range results {
		if res.Failed() {
			rows = append(rows, SprintTransition{Key: res.Key, Err: res.Err.Error()})
		}
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].At.Before(rows[j].At) })
	return rows, nil
}

// sprintRows extracts one issue's transitions inside the sprint window and
// annotates each with its sprint-relative position.
func sprintRows(rec domain.IssueRecord, start, end time.Time) []SprintTransition {
	events, _ := history.Extract(rec.History)
	events = history.FilterWindow(events, start, end)

	rows := make([]SprintTransition, 0, len(events))
	for _, ev := range events {
		day, fromStart, toEnd, progress := sprintMetrics(ev.At, start, end)
		rows = append(rows, SprintTransition{
			Key:             rec.Key,
			From:            ev.From,
			To:              ev.To,
			At:              ev.At,
			SprintDay:       day,
			DaysFromStart:   fromStart,
			DaysToEnd:       toEnd,
			ProgressPercent: progress,
		})
	}
	return rows
}

// sprintMetrics computes the sprint-relative position of one transition.
// Progress is rounded to one decimal place.
func sprintMetrics(at, start, end time.Time) (sprintDay, daysFromStart, daysToEnd int, progress float64) {
	duration := daysBetween(start, end)
	daysFromStart = daysBetween(start, at)
	daysToEnd = daysBetween(at, end)
	sprintDay = daysFromStart + 1
	if duration > 0 {
		progress = math.Round(float64(daysFromStart)/float64(duration)*1000) / 10
	}
	return sprintDay, daysFromStart, daysToEnd, progress
}

// daysBetween counts whole calendar days from a's date to b's date.
func daysBetween(a, b time.Time) int {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bd.Sub(ad).Hours() / 24)
}
