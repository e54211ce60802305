package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hylla/sojourn/internal/app"
	"github.com/hylla/sojourn/internal/calendar"
	"github.com/hylla/sojourn/internal/domain"
)

// The shared in-memory database survives across tests in one process, so
// every test uses names unique to it.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return store
}

func sampleQuery(name string) domain.SavedQuery {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return domain.SavedQuery{
		Name:        name,
		JQL:         "project = PROJ AND sprint = 42",
		Description: "current sprint",
		CreatedAt:   at,
		UpdatedAt:   at,
	}
}

func TestSaveAndGetQuery(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	q := sampleQuery("save-get")
	if err := store.SaveQuery(ctx, q); err != nil {
		t.Fatalf("SaveQuery() error = %v", err)
	}
	got, err := store.GetQuery(ctx, "save-get")
	if err != nil {
		t.Fatalf("GetQuery() error = %v", err)
	}
	if got.JQL != q.JQL || got.Description != q.Description {
		t.Fatalf("unexpected query %+v", got)
	}
	if !got.CreatedAt.Equal(q.CreatedAt) {
		t.Fatalf("created_at not round-tripped: %v", got.CreatedAt)
	}
}

func TestSaveQueryDuplicate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	q := sampleQuery("dupe")
	if err := store.SaveQuery(ctx, q); err != nil {
		t.Fatalf("SaveQuery() error = %v", err)
	}
	if err := store.SaveQuery(ctx, q); !errors.Is(err, app.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestUpdateQuery(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	q := sampleQuery("update-me")
	if err := store.SaveQuery(ctx, q); err != nil {
		t.Fatalf("SaveQuery() error = %v", err)
	}
	q.JQL = "project = OTHER"
	q.UpdatedAt = q.UpdatedAt.Add(time.Hour)
	if err := store.UpdateQuery(ctx, q); err != nil {
		t.Fatalf("UpdateQuery() error = %v", err)
	}
	got, err := store.GetQuery(ctx, "update-me")
	if err != nil {
		t.Fatalf("GetQuery() error = %v", err)
	}
	if got.JQL != "project = OTHER" {
		t.Fatalf("update not applied: %+v", got)
	}

	missing := sampleQuery("update-missing")
	if err := store.UpdateQuery(ctx, missing); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteQuery(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveQuery(ctx, sampleQuery("delete-me")); err != nil {
		t.Fatalf("SaveQuery() error = %v", err)
	}
	if err := store.DeleteQuery(ctx, "delete-me"); err != nil {
		t.Fatalf("DeleteQuery() error = %v", err)
	}
	if _, err := store.GetQuery(ctx, "delete-me"); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.DeleteQuery(ctx, "delete-me"); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for second delete, got %v", err)
	}
}

func TestListQueriesOrdered(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"list-b", "list-a"} {
		if err := store.SaveQuery(ctx, sampleQuery(name)); err != nil {
			t.Fatalf("SaveQuery(%q) error = %v", name, err)
		}
	}
	all, err := store.ListQueries(ctx)
	if err != nil {
		t.Fatalf("ListQueries() error = %v", err)
	}
	var names []string
	for _, q := range all {
		if q.Name == "list-a" || q.Name == "list-b" {
			names = append(names, q.Name)
		}
	}
	if len(names) != 2 || names[0] != "list-a" || names[1] != "list-b" {
		t.Fatalf("expected name order, got %v", names)
	}
}

func TestReportConfigRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	winStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	winEnd := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	rc := app.ReportConfig{
		ID:          "rc-1",
		Name:        "roundtrip",
		Query:       "project = PROJ",
		WindowStart: &winStart,
		WindowEnd:   &winEnd,
		Patterns: []domain.TransitionPattern{
			{Name: "flow", States: []string{"Open", "In Progress", "Done"}},
		},
		BusinessHours: &calendar.Config{
			DayStart:        "09:00",
			DayEnd:          "17:00",
			Timezone:        "UTC",
			ExcludeWeekends: true,
		},
		CreatedAt: at,
		UpdatedAt: at,
	}
	if err := store.SaveReportConfig(ctx, rc); err != nil {
		t.Fatalf("SaveReportConfig() error = %v", err)
	}

	got, err := store.GetReportConfig(ctx, "roundtrip")
	if err != nil {
		t.Fatalf("GetReportConfig() error = %v", err)
	}
	if got.ID != rc.ID || got.Query != rc.Query {
		t.Fatalf("unexpected config %+v", got)
	}
	if got.WindowStart == nil || !got.WindowStart.Equal(winStart) {
		t.Fatalf("window start not round-tripped: %v", got.WindowStart)
	}
	if len(got.Patterns) != 1 || got.Patterns[0].Name != "flow" || len(got.Patterns[0].States) != 3 {
		t.Fatalf("patterns not round-tripped: %+v", got.Patterns)
	}
	if got.BusinessHours == nil || got.BusinessHours.DayEnd != "17:00" || !got.BusinessHours.ExcludeWeekends {
		t.Fatalf("business hours not round-tripped: %+v", got.BusinessHours)
	}
}

func TestSaveReportConfigUpserts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	rc := app.ReportConfig{ID: "rc-up", Name: "upsert", Query: "project = A", CreatedAt: at, UpdatedAt: at}
	if err := store.SaveReportConfig(ctx, rc); err != nil {
		t.Fatalf("SaveReportConfig() error = %v", err)
	}
	rc.Query = "project = B"
	rc.UpdatedAt = at.Add(time.Hour)
	if err := store.SaveReportConfig(ctx, rc); err != nil {
		t.Fatalf("SaveReportConfig() second write error = %v", err)
	}
	got, err := store.GetReportConfig(ctx, "upsert")
	if err != nil {
		t.Fatalf("GetReportConfig() error = %v", err)
	}
	if got.Query != "project = B" {
		t.Fatalf("upsert did not replace config: %+v", got)
	}
}

func TestReportConfigNotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.GetReportConfig(ctx, "missing-config"); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.DeleteReportConfig(ctx, "missing-config"); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
