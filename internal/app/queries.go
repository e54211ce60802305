package app

import (
	"context"
	"strings"

	"github.com/hylla/sojourn/internal/domain"
)

// SaveQuery stores a new named query. The name must not already exist.
func (s *Service) SaveQuery(ctx context.Context, name, jql, description string) (domain.SavedQuery, error) {
	name = strings.TrimSpace(name)
	jql = strings.TrimSpace(jql)
	if name == "" || jql == "" {
		return domain.SavedQuery{}, ErrNoQuery
	}
	now := s.clock().UTC()
	q := domain.SavedQuery{
		Name:        name,
		JQL:         jql,
		Description: strings.TrimSpace(description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.SaveQuery(ctx, q); err != nil {
		return domain.SavedQuery{}, err
	}
	return q, nil
}

// UpdateQuery replaces the JQL and description of an existing named query.
func (s *Service) UpdateQuery(ctx context.Context, name, jql, description string) (domain.SavedQuery, error) {
	q, err := s.store.GetQuery(ctx, name)
	if err != nil {
		return domain.SavedQuery{}, err
	}
	jql = strings.TrimSpace(jql)
	if jql == "" {
		return domain.SavedQuery{}, ErrNoQuery
	}
	q.JQL = jql
	q.Description = strings.TrimSpace(description)
	q.UpdatedAt = s.clock().UTC()
	if err := s.store.UpdateQuery(ctx, q); err != nil {
		return domain.SavedQuery{}, err
	}
	return q, nil
}

// GetQuery loads a saved query by name.
func (s *Service) GetQuery(ctx context.Context, name string) (domain.SavedQuery, error) {
	return s.store.GetQuery(ctx, name)
}

// ListQueries lists all saved queries sorted by name.
func (s *Service) ListQueries(ctx context.Context) ([]domain.SavedQuery, error) {
	return s.store.ListQueries(ctx)
}

// DeleteQuery removes a saved query by name.
func (s *Service) DeleteQuery(ctx context.Context, name string) error {
	return s.store.DeleteQuery(ctx, name)
}
