package models

import (
	"math"
	"time"
)

// OrderStatus represents the fulfillment state of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusCompleted OrderStatus = "completed"
)

// OrderStatuses lists every accepted order status
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusCompleted,
}

// Valid reports whether s is one of the known statuses
func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is allowed out of s
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCompleted || s == OrderStatusCancelled
}

// PaymentStatus represents whether an order has been paid
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
)

// PaymentMethod represents how an order was paid
type PaymentMethod string

const (
	PaymentMethodCash PaymentMethod = "cash"
	PaymentMethodCard PaymentMethod = "card"
	PaymentMethodUPI  PaymentMethod = "upi"
)

// Valid reports whether m is an accepted payment method
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodUPI:
		return true
	}
	return false
}

// Order represents a customer order placed at a table
type Order struct {
	ID               string        `gorm:"primary_key" bson:"_id" json:"id"`
	CustomerID       string        `gorm:"index" bson:"customerId" json:"customerId"`
	TableNumber      int           `bson:"tableNumber" json:"tableNumber"`
	Items            []OrderItem   `gorm:"foreignkey:OrderID" bson:"items" json:"items"`
	TotalAmount      float64       `bson:"totalAmount" json:"totalAmount"`
	DiscountedAmount *float64      `bson:"discountedAmount" json:"discountedAmount"`
	AppliedCoupon    *string       `bson:"appliedCoupon" json:"appliedCoupon"`
	Status           OrderStatus   `gorm:"index" bson:"status" json:"status"`
	PaymentStatus    PaymentStatus `bson:"paymentStatus" json:"paymentStatus"`
	PaymentMethod    PaymentMethod `bson:"paymentMethod,omitempty" json:"paymentMethod,omitempty"`
	Comments         []Comment     `gorm:"foreignkey:OrderID" bson:"comments" json:"comments"`
	SequenceNumber   int           `bson:"sequenceNumber" json:"sequenceNumber"`
	CreatedAt        time.Time     `gorm:"index" bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// OrderItem is one line of an order. Price is the unit price captured when
// the order was placed and is never refreshed from the menu.
type OrderItem struct {
	ID         string  `gorm:"primary_key" bson:"id" json:"id"`
	OrderID    string  `gorm:"index" bson:"-" json:"-"`
	FoodItemID string  `bson:"foodItem" json:"foodItem"`
	Name       string  `bson:"name,omitempty" json:"name,omitempty"`
	Quantity   int     `bson:"quantity" json:"quantity"`
	Price      float64 `bson:"price" json:"price"`
	Position   int     `bson:"-" json:"-"`
}

// Comment is one entry of the order audit trail
type Comment struct {
	ID        uint        `gorm:"primary_key" bson:"-" json:"-"`
	OrderID   string      `gorm:"index" bson:"-" json:"-"`
	Timestamp time.Time   `bson:"timestamp" json:"timestamp"`
	Status    OrderStatus `bson:"status" json:"status"`
	Text      string      `gorm:"type:text" bson:"text" json:"text"`
}

// OrderSequence holds the per-day order counter
type OrderSequence struct {
	Date    string `gorm:"primary_key" bson:"_id" json:"date"`
	Counter int    `bson:"seq" json:"counter"`
}

// OrderFilter narrows order listings. Zero values match everything.
type OrderFilter struct {
	CustomerID string
	Tables     []int
	Statuses   []OrderStatus
}

// Subtotal returns quantity × unit price for the line
func (i OrderItem) Subtotal() float64 {
	return float64(i.Quantity) * i.Price
}

// ItemCount returns the number of units across all lines
func (o *Order) ItemCount() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}

// LastComment returns the most recent audit entry, if any
func (o *Order) LastComment() (Comment, bool) {
	if len(o.Comments) == 0 {
		return Comment{}, false
	}
	return o.Comments[len(o.Comments)-1], true
}

// ItemsTotal recomputes the order total strictly from its lines
func (o *Order) ItemsTotal() float64 {
	total := 0.0
	for _, item := range o.Items {
		total += item.Subtotal()
	}
	return total
}

// ReconciledTotal returns the stored total when it is a usable positive
// number and the total recomputed from the lines otherwise.
func (o *Order) ReconciledTotal() float64 {
	stored := o.TotalAmount
	if math.IsNaN(stored) || math.IsInf(stored, 0) || stored <= 0 {
		return o.ItemsTotal()
	}
	return stored
}

// ChargedAmount is what the customer is actually billed: the discounted
// amount when a coupon lowered the total, the total otherwise.
func (o *Order) ChargedAmount() float64 {
	total := o.ReconciledTotal()
	if o.DiscountedAmount != nil && *o.DiscountedAmount < total {
		return *o.DiscountedAmount
	}
	return total
}

// ClearDiscount drops an applied coupon and its discounted amount
func (o *Order) ClearDiscount() {
	o.DiscountedAmount = nil
	o.AppliedCoupon = nil
}
