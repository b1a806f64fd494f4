package catalog

import (
	"context"
	"sort"

	"github.com/joao-fontenele/orderflow-realtime/internal/domain"
)

// DemoMenu is the catalog seeded by the migrations, reused by the in-memory
// catalog so both stores serve the same ids.
var DemoMenu = []domain.MenuItem{
	{ID: "3f1c2b7a-5d0e-4c61-9a51-0b7d6a1e0001", Name: "Margherita Pizza", Description: "Classic tomato sauce, mozzarella, fresh basil", Price: 1299, ImageURL: "https://images.unsplash.com/photo-1574071318508-1cdbab80d002?w=400"},
	{ID: "3f1c2b7a-5d0e-4c61-9a51-0b7d6a1e0002", Name: "Pepperoni Pizza", Description: "Spicy pepperoni, tomato sauce, mozzarella", Price: 1499, ImageURL: "https://images.unsplash.com/photo-1628840042765-356cda07504e?w=400"},
	{ID: "3f1c2b7a-5d0e-4c61-9a51-0b7d6a1e0003", Name: "Cheese Burger", Description: "Beef patty, cheddar, lettuce, tomato, special sauce", Price: 999, ImageURL: "https://images.unsplash.com/photo-1568901346375-23c9450c58cd?w=400"},
	{ID: "3f1c2b7a-5d0e-4c61-9a51-0b7d6a1e0004", Name: "Chicken Burger", Description: "Crispy chicken, mayo, pickles, coleslaw", Price: 1049, ImageURL: "https://images.unsplash.com/photo-1594212699903-ec8a3eca50f5?w=400"},
	{ID: "3f1c2b7a-5d0e-4c61-9a51-0b7d6a1e0005", Name: "Caesar Salad", Description: "Romaine, parmesan, croutons, Caesar dressing", Price: 899, ImageURL: "https://images.unsplash.com/photo-1546793665-c74683f339c1?w=400"},
	{ID: "3f1c2b7a-5d0e-4c61-9a51-0b7d6a1e0006", Name: "Grilled Salmon", Description: "Fresh salmon fillet, lemon butter sauce, asparagus", Price: 1899, ImageURL: "https://images.unsplash.com/photo-1467003909585-2f8a7270028d?w=400"},
	{ID: "3f1c2b7a-5d0e-4c61-9a51-0b7d6a1e0007", Name: "Spaghetti Carbonara", Description: "Pasta, pancetta, egg, parmesan, black pepper", Price: 1399, ImageURL: "https://images.unsplash.com/photo-1612874742237-6526221588e3?w=400"},
	{ID: "3f1c2b7a-5d0e-4c61-9a51-0b7d6a1e0008", Name: "Veggie Wrap", Description: "Whole wheat wrap, hummus, roasted vegetables, feta", Price: 949, ImageURL: "https://images.unsplash.com/photo-1540914124281-342587941389?w=400"},
	{ID: "3f1c2b7a-5d0e-4c61-9a51-0b7d6a1e0009", Name: "Chocolate Cake", Description: "Rich chocolate layers, ganache frosting", Price: 699, ImageURL: "https://images.unsplash.com/photo-1578985545062-69928b1d9587?w=400"},
	{ID: "3f1c2b7a-5d0e-4c61-9a51-0b7d6a1e0010", Name: "Iced Coffee", Description: "Cold brew coffee, milk, sweet cream", Price: 499, ImageURL: "https://images.unsplash.com/photo-1517701604599-bb29b5c5090c?w=400"},
}

// MemoryCatalog is a read-only catalog held in memory.
type MemoryCatalog struct {
	items map[string]domain.MenuItem
}

func NewMemoryCatalog(items []domain.MenuItem) *MemoryCatalog {
	m := &MemoryCatalog{items: make(map[string]domain.MenuItem, len(items))}
	for _, item := range items {
		m.items[item.ID] = item
	}
	return m
}

func (m *MemoryCatalog) ListAll(_ context.Context) ([]domain.MenuItem, error) {
	items := make([]domain.MenuItem, 0, len(m.items))
	for _, item := range m.items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

func (m *MemoryCatalog) FindByIDs(_ context.Context, ids []string) (map[string]domain.MenuItem, error) {
	found := make(map[string]domain.MenuItem, len(ids))
	for _, id := range ids {
		if item, ok := m.items[id]; ok {
			found[id] = item
		}
	}
	return found, nil
}
