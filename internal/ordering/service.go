package ordering

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tableside/internal/accountance"
	"tableside/internal/core"
	"tableside/internal/coupon"
	"tableside/internal/models"
	"tableside/internal/monitoring"
	"tableside/internal/notify"
)

// DefaultNotifyTimeout bounds the delivery notification call.
const DefaultNotifyTimeout = 20 * time.Second

// Store is the persistence the ordering service needs.
type Store interface {
	SequenceCounter
	MenuLookup

	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	// ListOrders returns matching orders, newest first.
	ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error)
	// SaveOrder persists the order's fields, replaces its items and appends
	// comments that have not been stored yet.
	SaveOrder(ctx context.Context, order *models.Order) error

	FindCustomerByPhone(ctx context.Context, phone string) (*models.Customer, error)
	GetCustomer(ctx context.Context, id string) (*models.Customer, error)
	CreateCustomer(ctx context.Context, customer *models.Customer) error

	ListCoupons(ctx context.Context) ([]models.Coupon, error)
	GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error)
}

// Event types published after an order changes.
const (
	EventOrderCreated = "order.created"
	EventOrderUpdated = "order.updated"
	EventOrderStatus  = "order.status"
)

// OrderEvent is pushed to live subscribers such as the staff board.
type OrderEvent struct {
	Type  string        `json:"type"`
	Order *models.Order `json:"order"`
}

// EventPublisher receives order events. Publish must not block.
type EventPublisher interface {
	Publish(event OrderEvent)
}

// Options configures a Service. Zero values fall back to sensible defaults.
type Options struct {
	Pricer        Pricer
	Notifier      notify.Sender
	Events        EventPublisher
	Metrics       *monitoring.Metrics
	Logger        *slog.Logger
	Location      *time.Location
	NotifyTimeout time.Duration
	Now           func() time.Time
}

// Service implements order creation, the status lifecycle, coupons and
// accountance on top of a Store.
type Service struct {
	store         Store
	seq           *Sequencer
	pricer        Pricer
	notifier      notify.Sender
	events        EventPublisher
	metrics       *monitoring.Metrics
	logger        *slog.Logger
	loc           *time.Location
	notifyTimeout time.Duration
	now           func() time.Time

	locks [64]sync.Mutex
}

func NewService(store Store, opts Options) *Service {
	s := &Service{
		store:         store,
		pricer:        opts.Pricer,
		notifier:      opts.Notifier,
		events:        opts.Events,
		metrics:       opts.Metrics,
		logger:        opts.Logger,
		loc:           opts.Location,
		notifyTimeout: opts.NotifyTimeout,
		now:           opts.Now,
	}
	if s.pricer == nil {
		s.pricer = SubmittedPricer{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "ordering")
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.notifyTimeout <= 0 {
		s.notifyTimeout = DefaultNotifyTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.seq = NewSequencer(store, s.loc)
	return s
}

// lock serializes read-modify-write cycles on one order within this process.
func (s *Service) lock(orderID string) func() {
	h := fnv.New32a()
	h.Write([]byte(orderID))
	mu := &s.locks[h.Sum32()%uint32(len(s.locks))]
	mu.Lock()
	return mu.Unlock
}

func (s *Service) publish(kind string, order *models.Order) {
	if s.events == nil {
		return
	}
	snapshot := *order
	s.events.Publish(OrderEvent{Type: kind, Order: &snapshot})
}

// CreateOrderInput is what a customer submits when placing an order.
type CreateOrderInput struct {
	Items        []models.OrderItem
	TotalAmount  *float64
	TableNumber  int
	PhoneNumber  string
	CustomerName string
}

// CreateOrderResult carries the stored order and the customer it belongs to.
type CreateOrderResult struct {
	Order       *models.Order
	Customer    *models.Customer
	NewCustomer bool
}

// CreateOrder validates and prices the input, assigns the day's next
// sequence number, registers the customer if new and stores the order with
// its first audit entry.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*CreateOrderResult, error) {
	if err := validateTable(in.TableNumber); err != nil {
		return nil, err
	}
	phone := strings.TrimSpace(in.PhoneNumber)
	if phone == "" {
		return nil, core.Validationf("phone number is required")
	}
	if err := validateItems(in.Items); err != nil {
		return nil, err
	}

	items, total, err := s.pricer.Price(ctx, in.Items, in.TotalAmount)
	if err != nil {
		return nil, err
	}

	customer, isNew, err := s.lookupCustomer(ctx, phone, in.CustomerName)
	if err != nil {
		return nil, err
	}

	now := s.now()
	seq, err := s.seq.Next(ctx, now)
	if err != nil {
		return nil, err
	}

	// A new customer is stored only once nothing else can reject the order.
	if isNew {
		customer, isNew, err = s.registerCustomer(ctx, customer)
		if err != nil {
			return nil, err
		}
	}

	order := &models.Order{
		ID:             uuid.NewString(),
		CustomerID:     customer.ID,
		TableNumber:    in.TableNumber,
		TotalAmount:    total,
		Status:         models.OrderStatusPending,
		PaymentStatus:  models.PaymentStatusPending,
		SequenceNumber: seq,
		CreatedAt:      now,
		UpdatedAt:      now,
		Comments: []models.Comment{{
			Timestamp: now,
			Status:    models.OrderStatusPending,
			Text:      StatusMessage(models.OrderStatusPending),
		}},
	}
	order.Items = make([]models.OrderItem, len(items))
	for i, item := range items {
		item.ID = uuid.NewString()
		item.OrderID = order.ID
		order.Items[i] = item
	}

	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, core.Dependency("store order", err)
	}

	s.metrics.OrderCreated()
	s.logger.InfoContext(ctx, "order created",
		"order_id", order.ID,
		"sequence", FormatSequence(seq),
		"table", order.TableNumber,
		"total", order.TotalAmount,
	)
	s.publish(EventOrderCreated, order)

	return &CreateOrderResult{Order: order, Customer: customer, NewCustomer: isNew}, nil
}

// ResolveCustomer finds the customer owning phone or registers a new one
// under name. The boolean reports whether the customer was created.
func (s *Service) ResolveCustomer(ctx context.Context, phone, name string) (*models.Customer, bool, error) {
	customer, isNew, err := s.lookupCustomer(ctx, phone, name)
	if err != nil || !isNew {
		return customer, false, err
	}
	return s.registerCustomer(ctx, customer)
}

// lookupCustomer returns the stored customer for phone, or an unsaved one
// built from name when the phone is unknown.
func (s *Service) lookupCustomer(ctx context.Context, phone, name string) (*models.Customer, bool, error) {
	phone = strings.TrimSpace(phone)
	name = strings.TrimSpace(name)
	if phone == "" {
		return nil, false, core.Validationf("phone number is required")
	}
	customer, err := s.store.FindCustomerByPhone(ctx, phone)
	if err == nil {
		return customer, false, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return nil, false, core.Dependency("find customer", err)
	}
	if name == "" {
		return nil, false, core.Validationf("customer name is required for new customers")
	}
	return &models.Customer{
		ID:          uuid.NewString(),
		Name:        name,
		PhoneNumber: phone,
		CreatedAt:   s.now(),
	}, true, nil
}

func (s *Service) registerCustomer(ctx context.Context, customer *models.Customer) (*models.Customer, bool, error) {
	if err := s.store.CreateCustomer(ctx, customer); err != nil {
		if !errors.Is(err, core.ErrConflict) {
			return nil, false, core.Dependency("create customer", err)
		}
		// Registered concurrently by another order from the same phone.
		existing, ferr := s.store.FindCustomerByPhone(ctx, customer.PhoneNumber)
		if ferr != nil {
			return nil, false, core.Dependency("find customer", ferr)
		}
		return existing, false, nil
	}
	return customer, true, nil
}

// GetOrder returns one order by id.
func (s *Service) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	return s.load(ctx, id)
}

func (s *Service) load(ctx context.Context, id string) (*models.Order, error) {
	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.NotFoundf("order %s not found", id)
		}
		return nil, core.Dependency("load order", err)
	}
	return order, nil
}

func (s *Service) save(ctx context.Context, order *models.Order) error {
	if err := s.store.SaveOrder(ctx, order); err != nil {
		return core.Dependency("save order", err)
	}
	return nil
}

// GetCustomer returns the customer an order belongs to.
func (s *Service) GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	customer, err := s.store.GetCustomer(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.NotFoundf("customer %s not found", id)
		}
		return nil, core.Dependency("load customer", err)
	}
	return customer, nil
}

// AllOrders lists every order newest first with reconciled totals.
func (s *Service) AllOrders(ctx context.Context) ([]models.Order, error) {
	orders, err := s.list(ctx, models.OrderFilter{})
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].TotalAmount = orders[i].ReconciledTotal()
	}
	return orders, nil
}

// CustomerOrders lists the orders one customer placed, newest first.
func (s *Service) CustomerOrders(ctx context.Context, customerID string) ([]models.Order, error) {
	return s.list(ctx, models.OrderFilter{CustomerID: customerID})
}

// WaiterOrders lists the open orders on a waiter's assigned tables.
func (s *Service) WaiterOrders(ctx context.Context, tables []int) ([]models.Order, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("%w: no tables assigned", core.ErrForbidden)
	}
	return s.list(ctx, models.OrderFilter{
		Tables: tables,
		Statuses: []models.OrderStatus{
			models.OrderStatusPending,
			models.OrderStatusPreparing,
			models.OrderStatusReady,
		},
	})
}

func (s *Service) list(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	orders, err := s.store.ListOrders(ctx, filter)
	if err != nil {
		return nil, core.Dependency("list orders", err)
	}
	return orders, nil
}

// RemoveItem deletes one line from an open order.
func (s *Service) RemoveItem(ctx context.Context, orderID, itemID string) (*models.Order, error) {
	unlock := s.lock(orderID)
	defer unlock()

	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := RemoveItem(order, itemID, s.now()); err != nil {
		return nil, err
	}
	if err := s.save(ctx, order); err != nil {
		return nil, err
	}
	s.publish(EventOrderUpdated, order)
	return order, nil
}

// RecordPayment marks an order paid.
func (s *Service) RecordPayment(ctx context.Context, orderID string, method models.PaymentMethod) (*models.Order, error) {
	if !method.Valid() {
		return nil, core.Validationf("invalid payment method %q", method)
	}

	unlock := s.lock(orderID)
	defer unlock()

	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := RecordPayment(order, method, s.now()); err != nil {
		return nil, err
	}
	if err := s.save(ctx, order); err != nil {
		return nil, err
	}
	s.publish(EventOrderUpdated, order)
	return order, nil
}

// CouponResult reports the outcome of a coupon operation.
type CouponResult struct {
	Order     *models.Order     `json:"order"`
	Selection *coupon.Selection `json:"selection,omitempty"`
	Applied   bool              `json:"applied"`
}

// ApplyBestCoupon picks the coupon with the largest discount for the order's
// reconciled total and applies it. When nothing qualifies the order is
// returned unchanged with Applied false.
func (s *Service) ApplyBestCoupon(ctx context.Context, orderID string) (*CouponResult, error) {
	coupons, err := s.store.ListCoupons(ctx)
	if err != nil {
		return nil, core.Dependency("list coupons", err)
	}

	unlock := s.lock(orderID)
	defer unlock()

	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}

	order.TotalAmount = order.ReconciledTotal()
	best, ok := coupon.SelectBest(order.TotalAmount, coupons)
	if !ok {
		return &CouponResult{Order: order}, nil
	}

	if coupon.Apply(order, best.Coupon.Code, best.Discount) {
		order.UpdatedAt = s.now()
		if err := s.save(ctx, order); err != nil {
			return nil, err
		}
		s.metrics.CouponApplied("best")
		s.logger.InfoContext(ctx, "coupon applied", "order_id", order.ID, "code", best.Coupon.Code, "discount", best.Discount)
		s.publish(EventOrderUpdated, order)
	}
	return &CouponResult{Order: order, Selection: &best, Applied: true}, nil
}

// ApplyCoupon records a coupon chosen by staff together with the amount to
// charge. The code must exist and the amount must lie within [0, total].
func (s *Service) ApplyCoupon(ctx context.Context, orderID, code string, discountedAmount float64) (*models.Order, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, core.Validationf("coupon code is required")
	}
	if discountedAmount < 0 {
		return nil, core.Validationf("discounted amount must not be negative")
	}
	if _, err := s.store.GetCouponByCode(ctx, code); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.NotFoundf("coupon %s not found", code)
		}
		return nil, core.Dependency("load coupon", err)
	}

	unlock := s.lock(orderID)
	defer unlock()

	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}

	order.TotalAmount = order.ReconciledTotal()
	if discountedAmount > order.TotalAmount {
		return nil, core.Validationf("discounted amount %.2f exceeds order total %.2f", discountedAmount, order.TotalAmount)
	}

	if coupon.Apply(order, code, order.TotalAmount-discountedAmount) {
		order.UpdatedAt = s.now()
		if err := s.save(ctx, order); err != nil {
			return nil, err
		}
		s.metrics.CouponApplied("manual")
		s.publish(EventOrderUpdated, order)
	}
	return order, nil
}

// Accountance summarizes every stored order for the given window.
func (s *Service) Accountance(ctx context.Context, filter accountance.DateFilter) (accountance.Stats, error) {
	orders, err := s.list(ctx, models.OrderFilter{})
	if err != nil {
		return accountance.Stats{}, err
	}
	return accountance.Summarize(orders, filter, s.now().In(s.loc)), nil
}
