package ordering

import (
	"time"

	"tableside/internal/core"
	"tableside/internal/models"
)

const (
	MinTableNumber = 1
	MaxTableNumber = 20
)

var statusMessages = map[models.OrderStatus]string{
	models.OrderStatusPending:   "Order has been placed and is waiting for confirmation",
	models.OrderStatusPreparing: "Order is being prepared in the kitchen",
	models.OrderStatusReady:     "Order is ready for pickup/delivery",
	models.OrderStatusDelivered: "Order has been delivered successfully",
	models.OrderStatusCancelled: "Order has been cancelled",
}

// StatusMessage returns the canonical audit text for a status.
func StatusMessage(status models.OrderStatus) string {
	if msg, ok := statusMessages[status]; ok {
		return msg
	}
	return "Order status has been updated"
}

// Transition moves the order to status and appends exactly one audit entry.
// Orders already in a terminal status are left untouched.
func Transition(order *models.Order, status models.OrderStatus, comment string, at time.Time) error {
	if !status.Valid() {
		return core.Validationf("invalid status %q", status)
	}
	if order.Status.Terminal() {
		return core.InvalidStatef("cannot update status of a %s order", order.Status)
	}

	text := comment
	if text == "" {
		text = StatusMessage(status)
	}
	order.Comments = append(order.Comments, models.Comment{
		Timestamp: at,
		Status:    status,
		Text:      text,
	})
	order.Status = status
	order.UpdatedAt = at
	return nil
}

// RemoveItem drops one line by id and recomputes the total from the
// remaining price snapshots. Any applied coupon is cleared because its
// discount was computed against the previous total.
func RemoveItem(order *models.Order, itemID string, at time.Time) error {
	if order.Status.Terminal() {
		return core.InvalidStatef("cannot change items of a %s order", order.Status)
	}

	idx := -1
	for i, item := range order.Items {
		if item.ID == itemID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return core.NotFoundf("item %s not found in order", itemID)
	}

	order.Items = append(order.Items[:idx], order.Items[idx+1:]...)
	order.TotalAmount = order.ItemsTotal()
	order.ClearDiscount()
	order.UpdatedAt = at
	return nil
}

// RecordPayment marks the order paid with method. Fulfillment status is
// independent and is not changed.
func RecordPayment(order *models.Order, method models.PaymentMethod, at time.Time) error {
	if !method.Valid() {
		return core.Validationf("invalid payment method %q", method)
	}
	order.PaymentMethod = method
	order.PaymentStatus = models.PaymentStatusCompleted
	order.UpdatedAt = at
	return nil
}

func validateTable(table int) error {
	if table < MinTableNumber || table > MaxTableNumber {
		return core.Validationf("table number %d must be in range [%d, %d]", table, MinTableNumber, MaxTableNumber)
	}
	return nil
}

func validateItems(items []models.OrderItem) error {
	if len(items) == 0 {
		return core.Validationf("order must contain at least one item")
	}
	for i, item := range items {
		if item.FoodItemID == "" {
			return core.Validationf("item %d: food item is required", i+1)
		}
		if item.Quantity < 1 {
			return core.Validationf("item %d: quantity %d must be at least 1", i+1, item.Quantity)
		}
		if item.Price < 0 {
			return core.Validationf("item %d: price must not be negative", i+1)
		}
	}
	return nil
}
