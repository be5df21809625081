package ordering

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableside/internal/core"
	"tableside/internal/models"
)

var at = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func TestTransition(t *testing.T) {
	order := &models.Order{Status: models.OrderStatusPending}

	require.NoError(t, Transition(order, models.OrderStatusPreparing, "", at))
	assert.Equal(t, models.OrderStatusPreparing, order.Status)
	require.Len(t, order.Comments, 1)
	assert.Equal(t, StatusMessage(models.OrderStatusPreparing), order.Comments[0].Text)
	assert.Equal(t, models.OrderStatusPreparing, order.Comments[0].Status)

	require.NoError(t, Transition(order, models.OrderStatusPending, "customer changed mind", at))
	assert.Equal(t, "customer changed mind", order.Comments[1].Text)
}

func TestTransition_TerminalOrdersAreUntouched(t *testing.T) {
	for _, terminal := range []models.OrderStatus{
		models.OrderStatusDelivered,
		models.OrderStatusCompleted,
		models.OrderStatusCancelled,
	} {
		t.Run(string(terminal), func(t *testing.T) {
			order := &models.Order{Status: terminal, Comments: []models.Comment{{Text: "done"}}}
			before := *order

			err := Transition(order, models.OrderStatusPending, "", at)
			assert.ErrorIs(t, err, core.ErrInvalidState)
			assert.Equal(t, before.Status, order.Status)
			assert.Len(t, order.Comments, 1)
			assert.True(t, order.UpdatedAt.IsZero())
		})
	}
}

func TestTransition_InvalidStatus(t *testing.T) {
	order := &models.Order{Status: models.OrderStatusPending}
	assert.ErrorIs(t, Transition(order, "teleported", "", at), core.ErrValidation)
	assert.Empty(t, order.Comments)
}

func TestStatusMessage_Fallback(t *testing.T) {
	assert.Equal(t, "Order status has been updated", StatusMessage(models.OrderStatusCompleted))
}

func TestRemoveItem(t *testing.T) {
	discounted := 10.0
	code := "FLAT15"
	order := &models.Order{
		Status:           models.OrderStatusPreparing,
		TotalAmount:      25,
		DiscountedAmount: &discounted,
		AppliedCoupon:    &code,
		Items: []models.OrderItem{
			{ID: "a", Quantity: 2, Price: 10},
			{ID: "b", Quantity: 1, Price: 5},
		},
	}

	require.NoError(t, RemoveItem(order, "a", at))
	assert.Len(t, order.Items, 1)
	assert.Equal(t, 5.0, order.TotalAmount)
	assert.Nil(t, order.DiscountedAmount)
	assert.Nil(t, order.AppliedCoupon)
	assert.Empty(t, order.Comments)

	assert.ErrorIs(t, RemoveItem(order, "zzz", at), core.ErrNotFound)

	order.Status = models.OrderStatusCompleted
	assert.ErrorIs(t, RemoveItem(order, "b", at), core.ErrInvalidState)
	assert.Len(t, order.Items, 1)
}

func TestRecordPayment(t *testing.T) {
	order := &models.Order{Status: models.OrderStatusDelivered, PaymentStatus: models.PaymentStatusPending}

	require.NoError(t, RecordPayment(order, models.PaymentMethodUPI, at))
	assert.Equal(t, models.PaymentStatusCompleted, order.PaymentStatus)
	assert.Equal(t, models.PaymentMethodUPI, order.PaymentMethod)
	assert.Equal(t, models.OrderStatusDelivered, order.Status)

	assert.ErrorIs(t, RecordPayment(order, "cheque", at), core.ErrValidation)
}

func TestReconciledTotal(t *testing.T) {
	items := []models.OrderItem{{Quantity: 2, Price: 10}, {Quantity: 1, Price: 5}}

	for _, stored := range []float64{0, -3} {
		order := &models.Order{Items: items, TotalAmount: stored}
		assert.Equal(t, 25.0, order.ReconciledTotal())
	}

	order := &models.Order{Items: items, TotalAmount: 30}
	assert.Equal(t, 30.0, order.ReconciledTotal())
}

type fakeCounter struct {
	values map[string]int
	err    error
}

func (f *fakeCounter) IncrementSequence(_ context.Context, date string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.values[date]++
	return f.values[date], nil
}

func TestSequencer(t *testing.T) {
	counter := &fakeCounter{values: map[string]int{}}
	ist := time.FixedZone("IST", 5*3600+1800)
	seq := NewSequencer(counter, ist)

	// 20:00 UTC is already the next day in IST.
	late := time.Date(2024, 3, 15, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-16", seq.DateKey(late))

	for want := 1; want <= 3; want++ {
		n, err := seq.Next(context.Background(), late)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}
	assert.Equal(t, 3, counter.values["2024-03-16"])
	assert.Equal(t, "#003", FormatSequence(3))
	assert.Equal(t, "#120", FormatSequence(120))
}

func TestSequencer_DependencyError(t *testing.T) {
	seq := NewSequencer(&fakeCounter{err: errors.New("connection refused")}, nil)
	_, err := seq.Next(context.Background(), at)
	assert.ErrorIs(t, err, core.ErrDependency)
}

type staticMenu map[string]models.FoodItem

func (m staticMenu) GetFoodItem(_ context.Context, id string) (*models.FoodItem, error) {
	item, ok := m[id]
	if !ok {
		return nil, core.NotFoundf("food item %s not found", id)
	}
	return &item, nil
}

func TestPricers(t *testing.T) {
	items := []models.OrderItem{{FoodItemID: "burger", Quantity: 2, Price: 1}}
	override := 99.0

	_, total, err := SubmittedPricer{}.Price(context.Background(), items, nil)
	require.NoError(t, err)
	assert.Equal(t, 2.0, total)

	_, total, err = SubmittedPricer{}.Price(context.Background(), items, &override)
	require.NoError(t, err)
	assert.Equal(t, 99.0, total)

	menu := staticMenu{
		"burger": {ID: "burger", Name: "Classic Burger", Price: 9.99, IsAvailable: true},
		"soup":   {ID: "soup", Name: "Soup", Price: 4, IsAvailable: false},
	}
	priced, total, err := CatalogPricer{Menu: menu}.Price(context.Background(), items, &override)
	require.NoError(t, err)
	assert.InDelta(t, 19.98, total, 1e-9)
	assert.Equal(t, "Classic Burger", priced[0].Name)

	_, _, err = CatalogPricer{Menu: menu}.Price(context.Background(), []models.OrderItem{{FoodItemID: "soup", Quantity: 1}}, nil)
	assert.ErrorIs(t, err, core.ErrValidation)

	_, _, err = CatalogPricer{Menu: menu}.Price(context.Background(), []models.OrderItem{{FoodItemID: "nope", Quantity: 1}}, nil)
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = NewPricer("auction", nil)
	assert.Error(t, err)
	_, err = NewPricer("catalog", nil)
	assert.Error(t, err)
}
