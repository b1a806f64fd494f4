package catalog

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/joao-fontenele/orderflow-realtime/internal/domain"
)

type MenuRepository struct {
	db *sql.DB
}

func NewMenuRepository(db *sql.DB) *MenuRepository {
	return &MenuRepository{db: db}
}

func (r *MenuRepository) ListAll(ctx context.Context) ([]domain.MenuItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(description, ''), price, COALESCE(image_url, '')
		FROM menu_items
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := []domain.MenuItem{}
	for rows.Next() {
		var item domain.MenuItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Description, &item.Price, &item.ImageURL); err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

// FindByIDs resolves ids in one query. Ids that are absent from the catalog,
// including ones that are not UUIDs, are simply missing from the result.
func (r *MenuRepository) FindByIDs(ctx context.Context, ids []string) (map[string]domain.MenuItem, error) {
	found := make(map[string]domain.MenuItem, len(ids))

	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return found, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(description, ''), price, COALESCE(image_url, '')
		FROM menu_items
		WHERE id = ANY($1::uuid[])
	`, pq.Array(valid))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var item domain.MenuItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Description, &item.Price, &item.ImageURL); err != nil {
			return nil, err
		}
		found[item.ID] = item
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return found, nil
}
