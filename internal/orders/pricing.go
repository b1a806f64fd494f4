package orders

import (
	"context"
	"fmt"

	"github.com/joao-fontenele/orderflow-realtime/internal/domain"
)

// Catalog resolves menu item ids. Missing ids are absent from the result.
type Catalog interface {
	FindByIDs(ctx context.Context, ids []string) (map[string]domain.MenuItem, error)
}

// LineRequest is a requested order line. It deliberately has no price.
type LineRequest struct {
	MenuItemID string
	Quantity   int
}

// PriceResolver prices order lines from the catalog only.
type PriceResolver struct {
	catalog Catalog
}

func NewPriceResolver(catalog Catalog) *PriceResolver {
	return &PriceResolver{catalog: catalog}
}

// Price returns the priced lines, in request order, and their total. The
// whole request fails with a NotFoundError if any item is not in the catalog.
func (p *PriceResolver) Price(ctx context.Context, requested []LineRequest) ([]domain.OrderLine, int64, error) {
	ids := make([]string, 0, len(requested))
	seen := make(map[string]struct{}, len(requested))
	for _, r := range requested {
		if _, ok := seen[r.MenuItemID]; ok {
			continue
		}
		seen[r.MenuItemID] = struct{}{}
		ids = append(ids, r.MenuItemID)
	}

	items, err := p.catalog.FindByIDs(ctx, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("lookup menu items: %w", err)
	}

	lines := make([]domain.OrderLine, 0, len(requested))
	var total int64
	for _, r := range requested {
		item, ok := items[r.MenuItemID]
		if !ok {
			return nil, 0, &domain.NotFoundError{Resource: "menu item", ID: r.MenuItemID}
		}

		line := domain.OrderLine{
			MenuItemID: item.ID,
			Name:       item.Name,
			ImageURL:   item.ImageURL,
			Quantity:   r.Quantity,
			UnitPrice:  item.Price,
		}
		total += line.Subtotal()
		lines = append(lines, line)
	}

	return lines, total, nil
}
