package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tableside/internal/accountance"
	"tableside/internal/auth"
	"tableside/internal/core"
	"tableside/internal/models"
	"tableside/internal/ordering"
)

type orderItemRequest struct {
	FoodItem string  `json:"foodItem" binding:"required"`
	Quantity int     `json:"quantity" binding:"required"`
	Price    float64 `json:"price"`
}

type createOrderRequest struct {
	Items        []orderItemRequest `json:"items" binding:"required,dive"`
	TotalAmount  *float64           `json:"totalAmount"`
	TableNumber  int                `json:"tableNumber" binding:"required"`
	PhoneNumber  string             `json:"phoneNumber" binding:"required"`
	CustomerName string             `json:"customerName"`
}

type statusRequest struct {
	Status  models.OrderStatus `json:"status" binding:"required"`
	Comment string             `json:"comment"`
}

type paymentRequest struct {
	PaymentMethod models.PaymentMethod `json:"paymentMethod" binding:"required"`
}

type applyCouponRequest struct {
	AppliedCoupon    string   `json:"appliedCoupon" binding:"required"`
	DiscountedAmount *float64 `json:"discountedAmount" binding:"required"`
}

type customerView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber"`
}

// orderDetail is an order decorated with its human readable status
type orderDetail struct {
	*models.Order
	StatusMessage string `json:"statusMessage"`
	Sequence      string `json:"sequence"`
}

func detail(o *models.Order) orderDetail {
	return orderDetail{
		Order:         o,
		StatusMessage: ordering.StatusMessage(o.Status),
		Sequence:      ordering.FormatSequence(o.SequenceNumber),
	}
}

type publicFoodItem struct {
	Name        string              `json:"name"`
	Price       float64             `json:"price"`
	Category    models.MenuCategory `json:"category"`
	Description string              `json:"description"`
	Image       string              `json:"image"`
}

type publicItem struct {
	Quantity int             `json:"quantity"`
	Price    float64         `json:"price"`
	FoodItem *publicFoodItem `json:"foodItem"`
}

type publicCustomer struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber"`
}

// publicOrder is the order as shown on the customer tracking page
type publicOrder struct {
	ID               string               `json:"id"`
	Status           models.OrderStatus   `json:"status"`
	StatusMessage    string               `json:"statusMessage"`
	PaymentStatus    models.PaymentStatus `json:"paymentStatus"`
	PaymentMethod    models.PaymentMethod `json:"paymentMethod,omitempty"`
	TableNumber      int                  `json:"tableNumber"`
	TotalAmount      float64              `json:"totalAmount"`
	DiscountedAmount *float64             `json:"discountedAmount"`
	AppliedCoupon    *string              `json:"appliedCoupon"`
	CreatedAt        time.Time            `json:"createdAt"`
	UpdatedAt        time.Time            `json:"updatedAt"`
	Comments         []models.Comment     `json:"comments"`
	User             *publicCustomer      `json:"user"`
	Items            []publicItem         `json:"items"`
	SequenceNumber   int                  `json:"sequenceNumber"`
}

type printItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	Amount   float64 `json:"amount"`
}

// printOrder is the receipt layout with per-line amounts
type printOrder struct {
	ID               string               `json:"id"`
	Sequence         string               `json:"sequence"`
	TableNumber      int                  `json:"tableNumber"`
	Status           models.OrderStatus   `json:"status"`
	PaymentStatus    models.PaymentStatus `json:"paymentStatus"`
	PaymentMethod    models.PaymentMethod `json:"paymentMethod,omitempty"`
	Items            []printItem          `json:"items"`
	TotalAmount      float64              `json:"totalAmount"`
	DiscountedAmount *float64             `json:"discountedAmount"`
	AppliedCoupon    *string              `json:"appliedCoupon"`
	Customer         *customerView        `json:"customer"`
	CreatedAt        time.Time            `json:"createdAt"`
}

// CreateOrder places an order and returns a customer token with it
func (s *Server) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	in := ordering.CreateOrderInput{
		TotalAmount:  req.TotalAmount,
		TableNumber:  req.TableNumber,
		PhoneNumber:  req.PhoneNumber,
		CustomerName: req.CustomerName,
	}
	for _, item := range req.Items {
		in.Items = append(in.Items, models.OrderItem{
			FoodItemID: item.FoodItem,
			Quantity:   item.Quantity,
			Price:      item.Price,
		})
	}

	res, err := s.orders.CreateOrder(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}

	token, err := s.tokens.Issue(auth.Principal{UserID: res.Customer.ID, Role: models.RoleCustomer}, s.auth.CustomerTokenTTL)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"order": detail(res.Order),
		"token": token,
		"user": customerView{
			ID:          res.Customer.ID,
			Name:        res.Customer.Name,
			PhoneNumber: res.Customer.PhoneNumber,
		},
		"isNewUser": res.NewCustomer,
	})
}

// MyOrders lists the calling customer's orders
func (s *Server) MyOrders(c *gin.Context) {
	p, _ := auth.FromContext(c)
	orders, err := s.orders.CustomerOrders(c.Request.Context(), p.UserID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// AllOrders lists every order with reconciled totals
func (s *Server) AllOrders(c *gin.Context) {
	orders, err := s.orders.AllOrders(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// WaiterOrders lists active orders on the calling waiter's tables. The
// assignment is read from the store so changes apply without a new token.
func (s *Server) WaiterOrders(c *gin.Context) {
	p, _ := auth.FromContext(c)
	waiter, err := s.loadWaiter(c.Request.Context(), p.UserID)
	if err != nil {
		s.fail(c, err)
		return
	}

	orders, err := s.orders.WaiterOrders(c.Request.Context(), waiter.AssignedTables)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// loadWaiter reads the waiter's current record. A deleted account is
// treated as forbidden rather than missing.
func (s *Server) loadWaiter(ctx context.Context, id string) (*models.Staff, error) {
	waiter, err := s.db.GetStaff(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("%w: waiter account no longer exists", core.ErrForbidden)
		}
		return nil, core.Dependency("load waiter", err)
	}
	return waiter, nil
}

// tableScope stops waiters from acting on orders outside their assigned
// tables. Other roles pass through.
func (s *Server) tableScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := auth.FromContext(c)
		if !ok || p.Role != models.RoleWaiter {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		waiter, err := s.loadWaiter(ctx, p.UserID)
		if err != nil {
			s.fail(c, err)
			c.Abort()
			return
		}
		order, err := s.orders.GetOrder(ctx, c.Param("id"))
		if err != nil {
			s.fail(c, err)
			c.Abort()
			return
		}
		if !waiter.ServesTable(order.TableNumber) {
			s.fail(c, fmt.Errorf("%w: table %d is not assigned to you", core.ErrForbidden, order.TableNumber))
			c.Abort()
			return
		}
		c.Next()
	}
}

// Accountance returns revenue statistics for the requested window
func (s *Server) Accountance(c *gin.Context) {
	filter, err := accountance.ParseDateFilter(c.Query("dateFilter"))
	if err != nil {
		s.fail(c, err)
		return
	}
	stats, err := s.orders.Accountance(c.Request.Context(), filter)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetOrder returns one order. Customers may only read their own orders.
func (s *Server) GetOrder(c *gin.Context) {
	order, err := s.orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if p, _ := auth.FromContext(c); p.Role == models.RoleCustomer && order.CustomerID != p.UserID {
		s.fail(c, core.NotFoundf("order %s not found", order.ID))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": detail(order)})
}

// PublicOrder is the unauthenticated order tracking view
func (s *Server) PublicOrder(c *gin.Context) {
	ctx := c.Request.Context()
	order, err := s.orders.GetOrder(ctx, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}

	view := publicOrder{
		ID:               order.ID,
		Status:           order.Status,
		StatusMessage:    ordering.StatusMessage(order.Status),
		PaymentStatus:    order.PaymentStatus,
		PaymentMethod:    order.PaymentMethod,
		TableNumber:      order.TableNumber,
		TotalAmount:      order.TotalAmount,
		DiscountedAmount: order.DiscountedAmount,
		AppliedCoupon:    order.AppliedCoupon,
		CreatedAt:        order.CreatedAt,
		UpdatedAt:        order.UpdatedAt,
		Comments:         order.Comments,
		SequenceNumber:   order.SequenceNumber,
		Items:            make([]publicItem, 0, len(order.Items)),
	}
	if customer := s.customerOf(ctx, order); customer != nil {
		view.User = &publicCustomer{Name: customer.Name, PhoneNumber: customer.PhoneNumber}
	}
	for _, item := range order.Items {
		line := publicItem{Quantity: item.Quantity, Price: item.Price}
		if food := s.foodItemOf(ctx, item); food != nil {
			line.FoodItem = &publicFoodItem{
				Name:        food.Name,
				Price:       food.Price,
				Category:    food.Category,
				Description: food.Description,
				Image:       food.Image,
			}
		}
		view.Items = append(view.Items, line)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "order": view})
}

// PrintOrder returns the receipt layout of an order
func (s *Server) PrintOrder(c *gin.Context) {
	ctx := c.Request.Context()
	order, err := s.orders.GetOrder(ctx, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}

	receipt := printOrder{
		ID:               order.ID,
		Sequence:         ordering.FormatSequence(order.SequenceNumber),
		TableNumber:      order.TableNumber,
		Status:           order.Status,
		PaymentStatus:    order.PaymentStatus,
		PaymentMethod:    order.PaymentMethod,
		TotalAmount:      order.ReconciledTotal(),
		DiscountedAmount: order.DiscountedAmount,
		AppliedCoupon:    order.AppliedCoupon,
		CreatedAt:        order.CreatedAt,
		Items:            make([]printItem, 0, len(order.Items)),
	}
	if customer := s.customerOf(ctx, order); customer != nil {
		receipt.Customer = &customerView{ID: customer.ID, Name: customer.Name, PhoneNumber: customer.PhoneNumber}
	}
	for _, item := range order.Items {
		name := item.Name
		if name == "" {
			if food := s.foodItemOf(ctx, item); food != nil {
				name = food.Name
			} else {
				name = "Unknown Item"
			}
		}
		receipt.Items = append(receipt.Items, printItem{
			Name:     name,
			Quantity: item.Quantity,
			Price:    item.Price,
			Amount:   item.Subtotal(),
		})
	}

	c.JSON(http.StatusOK, receipt)
}

// customerOf looks up the order's customer; a missing customer is not fatal
// for read-only views
func (s *Server) customerOf(ctx context.Context, order *models.Order) *models.Customer {
	customer, err := s.orders.GetCustomer(ctx, order.CustomerID)
	if err != nil {
		s.logger.DebugContext(ctx, "customer lookup failed", "order_id", order.ID, "error", err)
		return nil
	}
	return customer
}

func (s *Server) foodItemOf(ctx context.Context, item models.OrderItem) *models.FoodItem {
	food, err := s.db.GetFoodItem(ctx, item.FoodItemID)
	if err != nil {
		return nil
	}
	return food
}

// UpdateStatus moves an order through its lifecycle
func (s *Server) UpdateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := s.orders.SetStatus(c.Request.Context(), c.Param("id"), req.Status, req.Comment)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": res.Message,
		"order":   detail(res.Order),
		"smsSent": res.SMSSent,
	})
}

// RecordPayment marks an order paid
func (s *Server) RecordPayment(c *gin.Context) {
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	order, err := s.orders.RecordPayment(c.Request.Context(), c.Param("id"), req.PaymentMethod)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// ApplyCoupon records a staff-chosen coupon and charged amount
func (s *Server) ApplyCoupon(c *gin.Context) {
	var req applyCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	order, err := s.orders.ApplyCoupon(c.Request.Context(), c.Param("id"), req.AppliedCoupon, *req.DiscountedAmount)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// ApplyBestCoupon applies the coupon with the largest discount, if any
func (s *Server) ApplyBestCoupon(c *gin.Context) {
	res, err := s.orders.ApplyBestCoupon(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}

	body := gin.H{"order": res.Order, "applied": res.Applied, "coupon": nil, "discount": 0.0}
	if res.Selection != nil {
		body["coupon"] = res.Selection.Coupon
		body["discount"] = res.Selection.Discount
	}
	c.JSON(http.StatusOK, body)
}

// RemoveItem drops one line from an order
func (s *Server) RemoveItem(c *gin.Context) {
	order, err := s.orders.RemoveItem(c.Request.Context(), c.Param("id"), c.Param("itemId"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
