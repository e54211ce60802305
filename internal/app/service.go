package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hylla/sojourn/internal/calendar"
	"github.com/hylla/sojourn/internal/domain"
	"github.com/hylla/sojourn/internal/fanout"
	"github.com/hylla/sojourn/internal/history"
	"github.com/hylla/sojourn/internal/metrics"
	"github.com/hylla/sojourn/internal/timeline"
)

// IDGenerator returns unique identifiers for new reports.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// Service orchestrates the analysis pipeline against a data source and owns
// the saved-query store.
type Service struct {
	source DataSource
	store  QueryStore
	idGen  IDGenerator
	clock  Clock
}

// NewService constructs a new value for this package.
func NewService(source DataSource, store QueryStore, idGen IDGenerator, clock Clock) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	return &Service{source: source, store: store, idGen: idGen, clock: clock}
}

// AnalyzeRequest selects the issues to analyze and the metrics to derive.
// A nil Window analyzes each issue's whole lifetime; a nil BusinessHours
// keeps wall-clock accounting.
type AnalyzeRequest struct {
	Query         string
	Window        *domain.AnalysisWindow
	Patterns      []domain.TransitionPattern
	BusinessHours *calendar.Config
	Workers       int
	Progress      fanout.Progress
}

// AnalyzeReport is the batch output: one result per matched issue, sorted
// by key, plus the sorted union of statuses observed across all issues so
// tabular consumers can lay out columns.
type AnalyzeReport struct {
	ID          string
	Query       string
	GeneratedAt time.Time
	Results     []domain.IssueResult
	States      []string
	Patterns    []string
}

// Failures counts results that carry an error instead of metrics.
func (r *AnalyzeReport) Failures() int {
	n := 0
	for _, res := range r.Results {
		if res.Failed() {
			n++
		}
	}
	return n
}

// Analyze resolves the query to issue keys and fans the pipeline out over
// them. Configuration problems (bad window, bad calendar, empty query) are
// rejected before any fetch; per-issue failures are carried in-band in the
// results. The report always holds one result per matched key.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeReport, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, ErrNoQuery
	}
	if req.Window != nil {
		if err := req.Window.Validate(); err != nil {
			return nil, err
		}
	}
	var cal *calendar.Calendar
	if req.BusinessHours != nil {
		c, err := calendar.New(*req.BusinessHours)
		if err != nil {
			return nil, err
		}
		cal = c
	}

	keys, err := s.source.SearchKeys(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", req.Query, err)
	}

	now := s.clock().UTC()
	pool := fanout.Pool{
		Workers:  req.Workers,
		Stage:    "analyzing issues",
		Progress: req.Progress,
	}
	results := pool.Run(ctx, keys, s.source.FetchIssue, func(rec domain.IssueRecord) domain.IssueResult {
		return analyzeIssue(rec, now, cal, req.Window, req.Patterns)
	})

	sort.Slice(results, func(i, j int) bool { return results[i].Key < results[j].Key })

	report := &AnalyzeReport{
		ID:          s.idGen(),
		Query:       req.Query,
		GeneratedAt: now,
		Results:     results,
		States:      observedStates(results),
	}
	for _, p := range req.Patterns {
		report.Patterns = append(report.Patterns, p.Name)
	}
	return report, nil
}

// analyzeIssue is the pure per-issue pipeline: extract, segment, measure,
// match. It never performs I/O.
func analyzeIssue(rec domain.IssueRecord, now time.Time, cal *calendar.Calendar, window *domain.AnalysisWindow, patterns []domain.TransitionPattern) domain.IssueResult {
	res := domain.IssueResult{Key: rec.Key}

	events, warnings := history.Extract(rec.History)
	for _, w := range warnings {
		res.Warnings = append(res.Warnings, w.Error())
	}

	segments, err := timeline.Build(rec.Created, now, rec.CurrentState, events, window)
	if err != nil {
		res.Err = fmt.Errorf("segment %s: %w", rec.Key, err)
		return res
	}

	res.TimeInState = metrics.TimeInState(segments, cal)
	res.PatternCounts = metrics.CountAll(events, patterns)
	return res
}

// observedStates returns the sorted union of statuses across all successful
// results.
func observedStates(results []domain.IssueResult) []string {
	seen := map[string]struct{}{}
	for _, res := range results {
		for state := range res.TimeInState {
			seen[state] = struct{}{}
		}
	}
	states := make([]string, 0, len(seen))
	for state := range seen {
		states = append(states, state)
	}
	sort.Strings(states)
	return states
}

// Ping verifies the data source is reachable with the configured credentials.
func (s *Service) Ping(ctx context.Context) error {
	return s.source.Ping(ctx)
}
