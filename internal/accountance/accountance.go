// Package accountance derives revenue statistics from a snapshot of orders.
package accountance

import (
	"time"

	"tableside/internal/core"
	"tableside/internal/models"
)

// DateFilter selects the window of orders a summary covers
type DateFilter string

const (
	FilterDay   DateFilter = "day"
	FilterWeek  DateFilter = "week"
	FilterMonth DateFilter = "month"
	FilterAll   DateFilter = "all"
)

// weekDays is the length of the rolling week window in calendar days
const weekDays = 7

// ParseDateFilter accepts the query value; empty means all.
func ParseDateFilter(raw string) (DateFilter, error) {
	switch f := DateFilter(raw); f {
	case "":
		return FilterAll, nil
	case FilterDay, FilterWeek, FilterMonth, FilterAll:
		return f, nil
	default:
		return "", core.Validationf("unknown date filter %q", raw)
	}
}

// Stats is the accountance view of a set of orders
type Stats struct {
	TotalOrders     int        `json:"totalOrders"`
	PendingOrders   int        `json:"pendingOrders"`
	CompletedOrders int        `json:"completedOrders"`
	TotalAmount     float64    `json:"totalAmount"`
	CashOrders      int        `json:"cashOrders"`
	UPIOrders       int        `json:"upiOrders"`
	CardOrders      int        `json:"cardOrders"`
	CashAmount      float64    `json:"cashAmount"`
	UPIAmount       float64    `json:"upiAmount"`
	CardAmount      float64    `json:"cardAmount"`
	DailyRevenue    float64    `json:"dailyRevenue"`
	DateFilter      DateFilter `json:"dateFilter"`
}

// InWindow reports whether createdAt falls inside filter relative to now.
// Calendar days are taken in now's location. Orders without a creation time
// only match FilterAll.
func InWindow(createdAt time.Time, filter DateFilter, now time.Time) bool {
	if filter == FilterAll || filter == "" {
		return true
	}
	if createdAt.IsZero() {
		return false
	}

	loc := now.Location()
	today := startOfDay(now)
	orderDay := startOfDay(createdAt.In(loc))

	switch filter {
	case FilterDay:
		return orderDay.Equal(today)
	case FilterWeek:
		from := today.AddDate(0, 0, -weekDays)
		return !orderDay.Before(from) && !orderDay.After(today)
	case FilterMonth:
		from := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, loc)
		return !orderDay.Before(from) && !orderDay.After(today)
	}
	return false
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Summarize aggregates the orders that fall inside filter. It never mutates
// the orders it is given.
func Summarize(orders []models.Order, filter DateFilter, now time.Time) Stats {
	stats := Stats{DateFilter: filter}
	if stats.DateFilter == "" {
		stats.DateFilter = FilterAll
	}

	for i := range orders {
		o := &orders[i]

		if InWindow(o.CreatedAt, FilterDay, now) &&
			(o.Status == models.OrderStatusDelivered || o.Status == models.OrderStatusCompleted) {
			stats.DailyRevenue += o.ChargedAmount()
		}

		if !InWindow(o.CreatedAt, stats.DateFilter, now) {
			continue
		}

		charged := o.ChargedAmount()
		stats.TotalOrders++
		stats.TotalAmount += charged

		switch o.Status {
		case models.OrderStatusPending, models.OrderStatusPreparing:
			stats.PendingOrders++
		case models.OrderStatusDelivered, models.OrderStatusCompleted:
			stats.CompletedOrders++
		}

		switch o.PaymentMethod {
		case models.PaymentMethodCash:
			stats.CashOrders++
			stats.CashAmount += charged
		case models.PaymentMethodUPI:
			stats.UPIOrders++
			stats.UPIAmount += charged
		case models.PaymentMethodCard:
			stats.CardOrders++
			stats.CardAmount += charged
		}
	}
	return stats
}
