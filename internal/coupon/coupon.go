// Package coupon computes coupon discounts and picks the best coupon for an
// order total.
package coupon

import (
	"math"

	"tableside/internal/models"
)

// Selection is the winning coupon and the discount it yields.
type Selection struct {
	Coupon   models.Coupon `json:"coupon"`
	Discount float64       `json:"discount"`
}

// Eligible reports whether c may be considered for total. Only the active
// flag and the minimum order amount are checked; validity dates and usage
// limits are not enforced here.
func Eligible(c models.Coupon, total float64) bool {
	if !c.IsActive {
		return false
	}
	if c.MinOrderAmount != nil && total < *c.MinOrderAmount {
		return false
	}
	return true
}

// Discount returns the amount c takes off total, ignoring eligibility.
// Percentage discounts are capped by MaxDiscount when set.
func Discount(c models.Coupon, total float64) float64 {
	var d float64
	switch c.DiscountType {
	case models.DiscountTypePercentage:
		d = total * c.DiscountValue / 100
		if c.MaxDiscount != nil {
			d = math.Min(d, *c.MaxDiscount)
		}
	case models.DiscountTypeFlat:
		d = c.DiscountValue
	}
	if d < 0 || math.IsNaN(d) {
		return 0
	}
	return d
}

// SelectBest returns the eligible coupon with the strictly greatest positive
// discount. Ties keep the earliest coupon in the slice. ok is false when no
// coupon yields a positive discount.
func SelectBest(total float64, coupons []models.Coupon) (best Selection, ok bool) {
	for _, c := range coupons {
		if !Eligible(c, total) {
			continue
		}
		if d := Discount(c, total); d > best.Discount {
			best = Selection{Coupon: c, Discount: d}
			ok = true
		}
	}
	return best, ok
}

// Apply records code and the discounted amount on order. The charged amount
// never goes below zero. It reports whether the order changed, so applying
// the same coupon twice is a no-op.
func Apply(order *models.Order, code string, discount float64) bool {
	amount := math.Max(0, order.TotalAmount-discount)
	if order.AppliedCoupon != nil && *order.AppliedCoupon == code &&
		order.DiscountedAmount != nil && *order.DiscountedAmount == amount {
		return false
	}
	order.AppliedCoupon = &code
	order.DiscountedAmount = &amount
	return true
}
