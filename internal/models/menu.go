package models

import (
	"fmt"
)

// MenuCategory represents the category of a menu item
type MenuCategory string

const (
	// Menu categories
	MenuCategoryStarters   MenuCategory = "Starters"
	MenuCategoryMainCourse MenuCategory = "Main Course"
	MenuCategoryDesserts   MenuCategory = "Desserts"
	MenuCategoryBeverages  MenuCategory = "Beverages"
)

// FoodItem represents a dish on the menu
type FoodItem struct {
	ID          string       `gorm:"primary_key" bson:"_id" json:"id"`
	Name        string       `bson:"name" json:"name"`
	Description string       `gorm:"type:text" bson:"description" json:"description"`
	Price       float64      `bson:"price" json:"price"`
	Category    MenuCategory `gorm:"index" bson:"category" json:"category"`
	Image       string       `bson:"image" json:"image"`
	IsAvailable bool         `bson:"isAvailable" json:"isAvailable"`
}

// ValidateFoodItem validates a menu item
func ValidateFoodItem(item *FoodItem) error {
	if item.Name == "" {
		return fmt.Errorf("menu item name is required")
	}
	if item.Description == "" {
		return fmt.Errorf("menu item description is required")
	}
	if item.Price <= 0 {
		return fmt.Errorf("menu item price must be greater than 0")
	}
	if !item.Category.Valid() {
		return fmt.Errorf("menu item category %q is not supported", item.Category)
	}
	if item.Image == "" {
		return fmt.Errorf("menu item image is required")
	}
	return nil
}

// Valid reports whether the category is one of the menu sections
func (c MenuCategory) Valid() bool {
	switch c {
	case MenuCategoryStarters, MenuCategoryMainCourse, MenuCategoryDesserts, MenuCategoryBeverages:
		return true
	}
	return false
}
