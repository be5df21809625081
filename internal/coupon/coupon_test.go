package coupon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableside/internal/models"
)

func ptr(f float64) *float64 { return &f }

func percentage(code string, value float64, maxDiscount *float64) models.Coupon {
	return models.Coupon{
		Code:          code,
		DiscountType:  models.DiscountTypePercentage,
		DiscountValue: value,
		MaxDiscount:   maxDiscount,
		IsActive:      true,
	}
}

func flat(code string, value float64) models.Coupon {
	return models.Coupon{
		Code:          code,
		DiscountType:  models.DiscountTypeFlat,
		DiscountValue: value,
		IsActive:      true,
	}
}

func TestDiscount(t *testing.T) {
	tests := []struct {
		name   string
		coupon models.Coupon
		total  float64
		want   float64
	}{
		{"percentage uncapped", percentage("P10", 10, nil), 200, 20},
		{"percentage capped", percentage("P10", 10, ptr(50)), 1000, 50},
		{"percentage under cap", percentage("P10", 10, ptr(50)), 300, 30},
		{"flat", flat("F100", 100), 1000, 100},
		{"flat larger than total", flat("F100", 100), 60, 100},
		{"unknown type", models.Coupon{DiscountType: "bogus", DiscountValue: 5}, 100, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, Discount(tc.coupon, tc.total), 1e-9)
		})
	}
}

func TestSelectBest_PicksLargestDiscount(t *testing.T) {
	coupons := []models.Coupon{
		percentage("P10", 10, ptr(50)),
		flat("F100", 100),
		{Code: "OFF", DiscountType: models.DiscountTypeFlat, DiscountValue: 500, IsActive: false},
		func() models.Coupon { c := flat("BIG", 300); c.MinOrderAmount = ptr(5000); return c }(),
	}

	best, ok := SelectBest(1000, coupons)
	require.True(t, ok)
	assert.Equal(t, "F100", best.Coupon.Code)
	assert.InDelta(t, 100, best.Discount, 1e-9)
}

func TestSelectBest_TieKeepsFirst(t *testing.T) {
	best, ok := SelectBest(1000, []models.Coupon{flat("A", 50), percentage("B", 5, nil)})
	require.True(t, ok)
	assert.Equal(t, "A", best.Coupon.Code)
}

func TestSelectBest_NothingEligible(t *testing.T) {
	_, ok := SelectBest(100, nil)
	assert.False(t, ok)

	_, ok = SelectBest(100, []models.Coupon{flat("ZERO", 0)})
	assert.False(t, ok, "a zero discount is never selected")

	inactive := flat("OFF", 10)
	inactive.IsActive = false
	_, ok = SelectBest(100, []models.Coupon{inactive})
	assert.False(t, ok)
}

func TestSelectBest_IgnoresValidityWindow(t *testing.T) {
	expired := flat("OLD", 40)
	expired.ValidFrom = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	expired.ValidTill = time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC)

	best, ok := SelectBest(100, []models.Coupon{expired})
	require.True(t, ok)
	assert.Equal(t, "OLD", best.Coupon.Code)
}

func TestEligible_MinOrderAmountBoundary(t *testing.T) {
	c := flat("MIN", 10)
	c.MinOrderAmount = ptr(500)

	assert.False(t, Eligible(c, 499.99))
	assert.True(t, Eligible(c, 500))
}

func TestApply(t *testing.T) {
	order := &models.Order{TotalAmount: 1000}

	changed := Apply(order, "P10", 50)
	require.True(t, changed)
	require.NotNil(t, order.DiscountedAmount)
	assert.InDelta(t, 950, *order.DiscountedAmount, 1e-9)
	assert.Equal(t, "P10", *order.AppliedCoupon)

	assert.False(t, Apply(order, "P10", 50), "re-applying the same coupon is a no-op")
	assert.InDelta(t, 950, *order.DiscountedAmount, 1e-9)
}

func TestApply_ClampsAtZero(t *testing.T) {
	order := &models.Order{TotalAmount: 60}

	Apply(order, "F100", 100)
	require.NotNil(t, order.DiscountedAmount)
	assert.Equal(t, 0.0, *order.DiscountedAmount)
	assert.Equal(t, 0.0, order.ChargedAmount())
}
