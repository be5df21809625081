package ordering

import (
	"context"
	"errors"
	"fmt"

	"tableside/internal/core"
	"tableside/internal/models"
)

// Pricer decides the unit prices and total an order is created with.
type Pricer interface {
	Price(ctx context.Context, items []models.OrderItem, override *float64) ([]models.OrderItem, float64, error)
}

// SubmittedPricer trusts the prices the client sent. An explicit positive
// total from the client overrides the computed sum.
type SubmittedPricer struct{}

func (SubmittedPricer) Price(_ context.Context, items []models.OrderItem, override *float64) ([]models.OrderItem, float64, error) {
	order := models.Order{Items: items}
	total := order.ItemsTotal()
	if override != nil && *override > 0 {
		total = *override
	}
	return items, total, nil
}

// MenuLookup resolves a menu entry by id.
type MenuLookup interface {
	GetFoodItem(ctx context.Context, id string) (*models.FoodItem, error)
}

// CatalogPricer re-prices every line from the menu and ignores client prices
// and totals.
type CatalogPricer struct {
	Menu MenuLookup
}

func (p CatalogPricer) Price(ctx context.Context, items []models.OrderItem, _ *float64) ([]models.OrderItem, float64, error) {
	priced := make([]models.OrderItem, len(items))
	for i, item := range items {
		food, err := p.Menu.GetFoodItem(ctx, item.FoodItemID)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return nil, 0, core.Validationf("item %d: unknown food item %s", i+1, item.FoodItemID)
			}
			return nil, 0, fmt.Errorf("price item %d: %w", i+1, err)
		}
		if !food.IsAvailable {
			return nil, 0, core.Validationf("item %d: %s is not available", i+1, food.Name)
		}
		item.Price = food.Price
		item.Name = food.Name
		priced[i] = item
	}
	order := models.Order{Items: priced}
	return priced, order.ItemsTotal(), nil
}

// NewPricer returns the pricer for a configured policy name.
func NewPricer(policy string, menu MenuLookup) (Pricer, error) {
	switch policy {
	case "", "submitted":
		return SubmittedPricer{}, nil
	case "catalog":
		if menu == nil {
			return nil, fmt.Errorf("catalog pricing requires a menu")
		}
		return CatalogPricer{Menu: menu}, nil
	default:
		return nil, fmt.Errorf("unknown pricing policy %q", policy)
	}
}
