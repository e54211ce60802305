package app

import (
	"context"

	"github.com/hylla/sojourn/internal/domain"
)

// DataSource is the remote tracker the analysis reads from. Implementations
// own transport concerns (paging, rate limits, auth); the service never
// sees them.
type DataSource interface {
	Ping(ctx context.Context) error
	SearchKeys(ctx context.Context, query string) ([]string, error)
	FetchIssue(ctx context.Context, key string) (domain.IssueRecord, error)
}

// QueryStore persists named selection queries and report configurations
// between runs.
type QueryStore interface {
	SaveQuery(ctx context.Context, q domain.SavedQuery) error
	UpdateQuery(ctx context.Context, q domain.SavedQuery) error
	GetQuery(ctx context.Context, name string) (domain.SavedQuery, error)
	ListQueries(ctx context.Context) ([]domain.SavedQuery, error)
	DeleteQuery(ctx context.Context, name string) error

	SaveReportConfig(ctx context.Context, rc ReportConfig) error
	GetReportConfig(ctx context.Context, name string) (ReportConfig, error)
	ListReportConfigs(ctx context.Context) ([]ReportConfig, error)
	DeleteReportConfig(ctx context.Context, name string) error
}
