package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tableside/internal/core"
	"tableside/internal/models"
)

// MenuSeeder is what SeedMenu needs from a store
type MenuSeeder interface {
	CountFoodItems(ctx context.Context) (int, error)
	CreateFoodItem(ctx context.Context, item *models.FoodItem) error
}

// StaffSeeder is what SeedAdmin needs from a store
type StaffSeeder interface {
	FindStaffByPhone(ctx context.Context, phone string) (*models.Staff, error)
	CreateStaff(ctx context.Context, st *models.Staff) error
}

// DefaultMenu is the starter menu loaded into an empty database
func DefaultMenu() []models.FoodItem {
	return []models.FoodItem{
		{Name: "Classic Burger", Description: "Juicy beef patty with fresh lettuce, tomatoes, and special sauce", Price: 9.99, Category: models.MenuCategoryMainCourse, Image: "https://images.unsplash.com/photo-1568901346375-23c9450c58cd?w=500"},
		{Name: "Caesar Salad", Description: "Crisp romaine lettuce, parmesan cheese, croutons, and Caesar dressing", Price: 7.99, Category: models.MenuCategoryStarters, Image: "https://images.unsplash.com/photo-1550304943-4f24f54ddde9?w=500"},
		{Name: "Margherita Pizza", Description: "Fresh mozzarella, tomatoes, and basil on a crispy crust", Price: 12.99, Category: models.MenuCategoryMainCourse, Image: "https://images.unsplash.com/photo-1604068549290-dea0e4a305ca?w=500"},
		{Name: "Chocolate Brownie", Description: "Rich chocolate brownie served with vanilla ice cream", Price: 6.99, Category: models.MenuCategoryDesserts, Image: "https://images.unsplash.com/photo-1606313564200-e75d5e30476c?w=500"},
		{Name: "Mozzarella Sticks", Description: "Crispy breaded mozzarella sticks with marinara sauce", Price: 5.99, Category: models.MenuCategoryStarters, Image: "https://images.unsplash.com/photo-1548340748-6d2b7d7da280?w=500"},
		{Name: "Fresh Lemonade", Description: "Freshly squeezed lemonade with mint", Price: 3.99, Category: models.MenuCategoryBeverages, Image: "https://images.unsplash.com/photo-1621263764928-df1444c5e859?w=500"},
		{Name: "Spaghetti Carbonara", Description: "Classic Italian pasta with creamy sauce and pancetta", Price: 13.99, Category: models.MenuCategoryMainCourse, Image: "https://images.unsplash.com/photo-1612874742237-6526221588e3?w=500"},
		{Name: "Tiramisu", Description: "Classic Italian dessert with coffee-soaked ladyfingers", Price: 7.99, Category: models.MenuCategoryDesserts, Image: "https://images.unsplash.com/photo-1571877227200-a0d98ea607e9?w=500"},
		{Name: "Iced Coffee", Description: "Cold-brewed coffee served over ice", Price: 4.99, Category: models.MenuCategoryBeverages, Image: "https://images.unsplash.com/photo-1517701604599-bb29b565090c?w=500"},
	}
}

// SeedMenu loads DefaultMenu when the menu is empty and reports how many
// items were added
func SeedMenu(ctx context.Context, store MenuSeeder) (int, error) {
	n, err := store.CountFoodItems(ctx)
	if err != nil {
		return 0, fmt.Errorf("count menu: %w", err)
	}
	if n > 0 {
		return 0, nil
	}

	added := 0
	for _, item := range DefaultMenu() {
		item.ID = uuid.NewString()
		item.IsAvailable = true
		if err := store.CreateFoodItem(ctx, &item); err != nil {
			return added, fmt.Errorf("seed %s: %w", item.Name, err)
		}
		added++
	}
	return added, nil
}

// SeedAdmin creates the admin account when no staff member owns phone.
// passwordHash must already be hashed.
func SeedAdmin(ctx context.Context, store StaffSeeder, name, phone, passwordHash string) (bool, error) {
	if phone == "" || passwordHash == "" {
		return false, nil
	}
	_, err := store.FindStaffByPhone(ctx, phone)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return false, err
	}

	now := time.Now()
	admin := &models.Staff{
		ID:             uuid.NewString(),
		Name:           name,
		PhoneNumber:    phone,
		PasswordHash:   passwordHash,
		Role:           models.RoleAdmin,
		AssignedTables: models.IntSlice{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := store.CreateStaff(ctx, admin); err != nil {
		return false, err
	}
	return true, nil
}
