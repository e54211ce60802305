// Package sqlite persists saved queries and report configurations in a
// local sqlite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hylla/sojourn/internal/app"
	"github.com/hylla/sojourn/internal/calendar"
	"github.com/hylla/sojourn/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// Store represents the sqlite-backed query and report-config store.
type Store struct {
	db *sql.DB
}

// Open opens (and migrates) the database at path, creating directories as
// needed.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	store := &Store{db: db}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// OpenInMemory opens in memory, for tests.
func OpenInMemory() (*Store, error) {
	db, err := sql.Open(driverName, "file::memory:?cache=shared")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	store := &Store{db: db}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate handles migrate.
func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS saved_queries (
			name TEXT PRIMARY KEY,
			jql TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS report_configs (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			config_json TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// SaveQuery inserts a new named query; an existing name is rejected.
func (s *Store) SaveQuery(ctx context.Context, q domain.SavedQuery) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO saved_queries(name, jql, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, q.Name, q.JQL, q.Description, ts(q.CreatedAt), ts(q.UpdatedAt))
	if isUniqueErr(err) {
		return app.ErrDuplicate
	}
	return err
}

// UpdateQuery replaces an existing named query.
func (s *Store) UpdateQuery(ctx context.Context, q domain.SavedQuery) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE saved_queries SET jql = ?, description = ?, updated_at = ?
		WHERE name = ?
	`, q.JQL, q.Description, ts(q.UpdatedAt), q.Name)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return app.ErrNotFound
	}
	return nil
}

// GetQuery loads one saved query by name.
func (s *Store) GetQuery(ctx context.Context, name string) (domain.SavedQuery, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT name, jql, description, created_at, updated_at
		FROM saved_queries
		WHERE name = ?
	`, name)
	var (
		q          domain.SavedQuery
		createdRaw string
		updatedRaw string
	)
	err := row.Scan(&q.Name, &q.JQL, &q.Description, &createdRaw, &updatedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SavedQuery{}, app.ErrNotFound
	}
	if err != nil {
		return domain.SavedQuery{}, err
	}
	q.CreatedAt = parseTS(createdRaw)
	q.UpdatedAt = parseTS(updatedRaw)
	return q, nil
}

// ListQueries returns all saved queries ordered by name.
func (s *Store) ListQueries(ctx context.Context) ([]domain.SavedQuery, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, jql, description, created_at, updated_at
		FROM saved_queries
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.SavedQuery{}
	for rows.Next() {
		var (
			q          domain.SavedQuery
			createdRaw string
			updatedRaw string
		)
		if err := rows.Scan(&q.Name, &q.JQL, &q.Description, &createdRaw, &updatedRaw); err != nil {
			return nil, err
		}
		q.CreatedAt = parseTS(createdRaw)
		q.UpdatedAt = parseTS(updatedRaw)
		out = append(out, q)
	}
	return out, rows.Err()
}

// DeleteQuery removes a saved query by name.
func (s *Store) DeleteQuery(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM saved_queries WHERE name = ?`, name)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return app.ErrNotFound
	}
	return nil
}

// reportConfigDoc is the config_json blob shape. Patterns and business
// hours are stored structurally so older rows survive new fields.
type reportConfigDoc struct {
	Query         string            `json:"query"`
	WindowStart   *time.Time        `json:"window_start,omitempty"`
	WindowEnd     *time.Time        `json:"window_end,omitempty"`
	Patterns      []reportConfigPat `json:"patterns,omitempty"`
	BusinessHours *calendar.Config  `json:"business_hours,omitempty"`
}

type reportConfigPat struct {
	Name   string   `json:"name"`
	States []string `json:"states"`
}

// SaveReportConfig inserts or replaces a named report configuration.
func (s *Store) SaveReportConfig(ctx context.Context, rc app.ReportConfig) error {
	doc := reportConfigDoc{
		Query:         rc.Query,
		WindowStart:   rc.WindowStart,
		WindowEnd:     rc.WindowEnd,
		BusinessHours: rc.BusinessHours,
	}
	for _, p := range rc.Patterns {
		doc.Patterns = append(doc.Patterns, reportConfigPat{Name: p.Name, States: p.States})
	}
	blob, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode report config: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO report_configs(id, name, config_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET config_json = excluded.config_json, updated_at = excluded.updated_at
	`, rc.ID, rc.Name, string(blob), ts(rc.CreatedAt), ts(rc.UpdatedAt))
	return err
}

// GetReportConfig loads one report configuration by name.
func (s *Store) GetReportConfig(ctx context.Context, name string) (app.ReportConfig, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, config_json, created_at, updated_at
		FROM report_configs
		WHERE name = ?
	`, name)
	return scanReportConfig(row)
}

// ListReportConfigs returns all report configurations ordered by name.
func (s *Store) ListReportConfigs(ctx context.Context) ([]app.ReportConfig, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, config_json, created_at, updated_at
		FROM report_configs
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []app.ReportConfig{}
	for rows.Next() {
		rc, err := scanReportConfig(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

// DeleteReportConfig removes a report configuration by name.
func (s *Store) DeleteReportConfig(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM report_configs WHERE name = ?`, name)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return app.ErrNotFound
	}
	return nil
}

// rowScanner lets scanReportConfig serve both QueryRow and Query paths.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanReportConfig decodes one report_configs row.
func scanReportConfig(row rowScanner) (app.ReportConfig, error) {
	var (
		rc         app.ReportConfig
		blob       string
		createdRaw string
		updatedRaw string
	)
	err := row.Scan(&rc.ID, &rc.Name, &blob, &createdRaw, &updatedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return app.ReportConfig{}, app.ErrNotFound
	}
	if err != nil {
		return app.ReportConfig{}, err
	}
	var doc reportConfigDoc
	if err := json.Unmarshal([]byte(blob), &doc); err != nil {
		return app.ReportConfig{}, fmt.Errorf("decode report config_json: %w", err)
	}
	rc.Query = doc.Query
	rc.WindowStart = doc.WindowStart
	rc.WindowEnd = doc.WindowEnd
	rc.BusinessHours = doc.BusinessHours
	for _, p := range doc.Patterns {
		rc.Patterns = append(rc.Patterns, domain.TransitionPattern{Name: p.Name, States: p.States})
	}
	rc.CreatedAt = parseTS(createdRaw)
	rc.UpdatedAt = parseTS(updatedRaw)
	return rc, nil
}

// ts handles ts.
func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTS parses input into a normalized form.
func parseTS(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// isUniqueErr reports whether err is a unique-constraint violation.
func isUniqueErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}
