package models

import (
	"fmt"
	"time"
)

// DiscountType represents how a coupon discount is computed
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFlat       DiscountType = "flat"
)

// Coupon represents an admin-managed discount code
type Coupon struct {
	ID             string       `gorm:"primary_key" bson:"_id" json:"id"`
	Code           string       `gorm:"unique_index" bson:"code" json:"code"`
	DiscountType   DiscountType `bson:"discountType" json:"discountType"`
	DiscountValue  float64      `bson:"discountValue" json:"discountValue"`
	MaxDiscount    *float64     `bson:"maxDiscount,omitempty" json:"maxDiscount,omitempty"`
	MinOrderAmount *float64     `bson:"minOrderAmount,omitempty" json:"minOrderAmount,omitempty"`
	ValidFrom      time.Time    `bson:"validFrom" json:"validFrom"`
	ValidTill      time.Time    `bson:"validTill" json:"validTill"`
	MaxUses        int          `bson:"maxUses" json:"maxUses"`
	MaxUsesPerUser int          `bson:"maxUsesPerUser" json:"maxUsesPerUser"`
	IsActive       bool         `bson:"isActive" json:"isActive"`
	Description    string       `bson:"description" json:"description"`
	CreatedAt      time.Time    `bson:"createdAt" json:"createdAt"`
}

// ValidateCoupon validates a coupon before it is stored
func ValidateCoupon(c *Coupon) error {
	if c.Code == "" {
		return fmt.Errorf("coupon code is required")
	}
	if c.DiscountType != DiscountTypePercentage && c.DiscountType != DiscountTypeFlat {
		return fmt.Errorf("discount type must be %q or %q", DiscountTypePercentage, DiscountTypeFlat)
	}
	if c.DiscountValue < 0 {
		return fmt.Errorf("discount value must not be negative")
	}
	if c.MaxDiscount != nil && *c.MaxDiscount < 0 {
		return fmt.Errorf("max discount must not be negative")
	}
	if c.MinOrderAmount != nil && *c.MinOrderAmount < 0 {
		return fmt.Errorf("min order amount must not be negative")
	}
	if c.ValidFrom.IsZero() || c.ValidTill.IsZero() {
		return fmt.Errorf("validity window is required")
	}
	if c.ValidTill.Before(c.ValidFrom) {
		return fmt.Errorf("valid till must not precede valid from")
	}
	if c.MaxUses < 0 || c.MaxUsesPerUser < 0 {
		return fmt.Errorf("usage limits must not be negative")
	}
	return nil
}
