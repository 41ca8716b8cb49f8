package store

import (
	"context"
	"fmt"

	"github.com/harrowgate/sitrep/internal/models"
)

func (s *Store) CreateWatchlist(ctx context.Context, w *models.Watchlist) error {
	_, err := s.DB.NamedExecContext(ctx, `
INSERT INTO watchlists (id, org_id, name, categories, keywords, min_priority, created_by)
VALUES (:id, :org_id, :name, :categories, :keywords, :min_priority, :created_by)
`, w)
	if err != nil {
		return fmt.Errorf("store: create watchlist: %w", err)
	}
	return nil
}

func (s *Store) ListWatchlists(ctx context.Context, orgID string) ([]models.Watchlist, error) {
	var out []models.Watchlist
	err := s.DB.SelectContext(ctx, &out, `SELECT * FROM watchlists WHERE org_id = $1 ORDER BY created_at DESC`, orgID)
	if err != nil {
		return nil, fmt.Errorf("store: list watchlists: %w", err)
	}
	return out, nil
}

func (s *Store) GetWatchlist(ctx context.Context, orgID, id string) (*models.Watchlist, error) {
	var w models.Watchlist
	err := s.DB.GetContext(ctx, &w, `SELECT * FROM watchlists WHERE id = $1 AND org_id = $2`, id, orgID)
	if err != nil {
		return nil, fmt.Errorf("store: get watchlist: %w", err)
	}
	return &w, nil
}

func (s *Store) DeleteWatchlist(ctx context.Context, orgID, id string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM watchlists WHERE id = $1 AND org_id = $2`, id, orgID)
	if err != nil {
		return fmt.Errorf("store: delete watchlist: %w", err)
	}
	return nil
}
