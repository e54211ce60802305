package app

import (
	"context"
	"strings"
	"time"

	"github.com/hylla/sojourn/internal/calendar"
	"github.com/hylla/sojourn/internal/domain"
)

// ReportConfig is a named, reusable analysis setup: the query, optional
// window bounds, patterns to count, and business-hours settings.
type ReportConfig struct {
	ID            string
	Name          string
	Query         string
	WindowStart   *time.Time
	WindowEnd     *time.Time
	Patterns      []domain.TransitionPattern
	BusinessHours *calendar.Config
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Request expands the stored config into an executable analyze request.
func (rc ReportConfig) Request() (AnalyzeRequest, error) {
	req := AnalyzeRequest{
		Query:         rc.Query,
		Patterns:      rc.Patterns,
		BusinessHours: rc.BusinessHours,
	}
	if rc.WindowStart != nil && rc.WindowEnd != nil {
		w := domain.AnalysisWindow{Start: *rc.WindowStart, End: *rc.WindowEnd}
		if err := w.Validate(); err != nil {
			return AnalyzeRequest{}, err
		}
		req.Window = &w
	}
	return req, nil
}

// SaveReportConfig stores a named analysis setup, stamping identity and
// timestamps.
func (s *Service) SaveReportConfig(ctx context.Context, rc ReportConfig) (ReportConfig, error) {
	rc.Name = strings.TrimSpace(rc.Name)
	if rc.Name == "" {
		return ReportConfig{}, ErrNoName
	}
	now := s.clock().UTC()
	if rc.ID == "" {
		rc.ID = s.idGen()
		rc.CreatedAt = now
	}
	rc.UpdatedAt = now
	if err := s.store.SaveReportConfig(ctx, rc); err != nil {
		return ReportConfig{}, err
	}
	return rc, nil
}

// GetReportConfig loads a stored analysis setup by name.
func (s *Service) GetReportConfig(ctx context.Context, name string) (ReportConfig, error) {
	return s.store.GetReportConfig(ctx, name)
}

// ListReportConfigs lists stored analysis setups.
func (s *Service) ListReportConfigs(ctx context.Context) ([]ReportConfig, error) {
	return s.store.ListReportConfigs(ctx)
}

// DeleteReportConfig removes a stored analysis setup.
func (s *Service) DeleteReportConfig(ctx context.Context, name string) error {
	return s.store.DeleteReportConfig(ctx, name)
}
