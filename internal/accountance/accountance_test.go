package accountance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableside/internal/models"
)

var now = time.Date(2024, time.March, 15, 18, 30, 0, 0, time.UTC)

func ptr(f float64) *float64 { return &f }

func order(created time.Time, status models.OrderStatus, total float64, method models.PaymentMethod) models.Order {
	return models.Order{
		TotalAmount:   total,
		Status:        status,
		PaymentMethod: method,
		CreatedAt:     created,
	}
}

func TestParseDateFilter(t *testing.T) {
	f, err := ParseDateFilter("")
	require.NoError(t, err)
	assert.Equal(t, FilterAll, f)

	for _, raw := range []string{"day", "week", "month", "all"} {
		f, err := ParseDateFilter(raw)
		require.NoError(t, err)
		assert.Equal(t, DateFilter(raw), f)
	}

	_, err = ParseDateFilter("year")
	assert.Error(t, err)
}

func TestInWindow(t *testing.T) {
	tests := []struct {
		name    string
		created time.Time
		filter  DateFilter
		want    bool
	}{
		{"day start of today", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), FilterDay, true},
		{"day late yesterday", time.Date(2024, 3, 14, 23, 59, 0, 0, time.UTC), FilterDay, false},
		{"week seven days back", time.Date(2024, 3, 8, 1, 0, 0, 0, time.UTC), FilterWeek, true},
		{"week eight days back", time.Date(2024, 3, 7, 23, 0, 0, 0, time.UTC), FilterWeek, false},
		{"month first day", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), FilterMonth, true},
		{"month previous month", time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC), FilterMonth, false},
		{"future order excluded", time.Date(2024, 3, 16, 9, 0, 0, 0, time.UTC), FilterWeek, false},
		{"all keeps anything", time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC), FilterAll, true},
		{"zero time only in all", time.Time{}, FilterDay, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, InWindow(tc.created, tc.filter, now))
		})
	}
}

func TestInWindow_UsesNowLocation(t *testing.T) {
	kolkata := time.FixedZone("IST", 5*3600+1800)
	localNow := time.Date(2024, 3, 16, 1, 0, 0, 0, kolkata)

	// 20:00 UTC on the 15th is 01:30 on the 16th in IST.
	assert.True(t, InWindow(time.Date(2024, 3, 15, 20, 0, 0, 0, time.UTC), FilterDay, localNow))

	// 17:00 UTC on the 15th is still the 15th in IST.
	evening := time.Date(2024, 3, 15, 17, 0, 0, 0, time.UTC)
	assert.False(t, InWindow(evening, FilterDay, localNow))
	assert.True(t, InWindow(evening, FilterDay, now))
}

func TestSummarize_DayFilterUsesChargedAmount(t *testing.T) {
	today := now.Add(-2 * time.Hour)
	yesterday := now.AddDate(0, 0, -1)

	discounted := order(today, models.OrderStatusDelivered, 1000, models.PaymentMethodCash)
	discounted.DiscountedAmount = ptr(950)

	higher := order(today, models.OrderStatusPending, 200, models.PaymentMethodUPI)
	higher.DiscountedAmount = ptr(250)

	orders := []models.Order{
		discounted,
		higher,
		order(today, models.OrderStatusPreparing, 80, models.PaymentMethodCard),
		order(yesterday, models.OrderStatusCompleted, 5000, models.PaymentMethodCash),
	}

	stats := Summarize(orders, FilterDay, now)

	assert.Equal(t, FilterDay, stats.DateFilter)
	assert.Equal(t, 3, stats.TotalOrders)
	assert.Equal(t, 2, stats.PendingOrders)
	assert.Equal(t, 1, stats.CompletedOrders)
	assert.InDelta(t, 950+200+80, stats.TotalAmount, 1e-9)
	assert.Equal(t, 1, stats.CashOrders)
	assert.InDelta(t, 950, stats.CashAmount, 1e-9)
	assert.Equal(t, 1, stats.UPIOrders)
	assert.InDelta(t, 200, stats.UPIAmount, 1e-9)
	assert.Equal(t, 1, stats.CardOrders)
	assert.InDelta(t, 80, stats.CardAmount, 1e-9)
	assert.InDelta(t, 950, stats.DailyRevenue, 1e-9)
}

func TestSummarize_AllAndReconciledTotals(t *testing.T) {
	broken := models.Order{
		Items:     []models.OrderItem{{Quantity: 2, Price: 10}, {Quantity: 1, Price: 5}},
		Status:    models.OrderStatusCompleted,
		CreatedAt: now.AddDate(-1, 0, 0),
	}
	unpaid := order(time.Time{}, models.OrderStatusCancelled, 40, "")

	stats := Summarize([]models.Order{broken, unpaid}, "", now)

	assert.Equal(t, FilterAll, stats.DateFilter)
	assert.Equal(t, 2, stats.TotalOrders)
	assert.Equal(t, 0, stats.PendingOrders)
	assert.Equal(t, 1, stats.CompletedOrders)
	assert.InDelta(t, 65, stats.TotalAmount, 1e-9)
	assert.Equal(t, 0, stats.CashOrders+stats.UPIOrders+stats.CardOrders)
	assert.Zero(t, stats.DailyRevenue)
}

func TestSummarize_DoesNotMutate(t *testing.T) {
	o := order(now, models.OrderStatusPending, 0, "")
	o.Items = []models.OrderItem{{Quantity: 1, Price: 12}}
	orders := []models.Order{o}

	Summarize(orders, FilterAll, now)
	assert.Equal(t, 0.0, orders[0].TotalAmount)
}
