package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tableside/internal/auth"
	"tableside/internal/config"
	"tableside/internal/core"
	"tableside/internal/models"
	"tableside/internal/monitoring"
	"tableside/internal/ordering"
)

// Server is the HTTP surface of the restaurant backend
type Server struct {
	Router  *gin.Engine
	orders  *ordering.Service
	db      Database
	tokens  *auth.Issuer
	board   *Board
	metrics *monitoring.Metrics
	logger  *slog.Logger
	auth    config.AuthConfig
	limiter *ipLimiter
}

// Database is the catalog and account storage the handlers manage directly.
// Orders always go through ordering.Service.
type Database interface {
	Ping(ctx context.Context) error

	ListCoupons(ctx context.Context) ([]models.Coupon, error)
	GetCoupon(ctx context.Context, id string) (*models.Coupon, error)
	CreateCoupon(ctx context.Context, c *models.Coupon) error
	UpdateCoupon(ctx context.Context, c *models.Coupon) error
	DeleteCoupon(ctx context.Context, id string) error

	ListFoodItems(ctx context.Context, category models.MenuCategory) ([]models.FoodItem, error)
	GetFoodItem(ctx context.Context, id string) (*models.FoodItem, error)
	CreateFoodItem(ctx context.Context, item *models.FoodItem) error
	UpdateFoodItem(ctx context.Context, item *models.FoodItem) error
	DeleteFoodItem(ctx context.Context, id string) error

	ListStaff(ctx context.Context, role models.Role) ([]models.Staff, error)
	GetStaff(ctx context.Context, id string) (*models.Staff, error)
	FindStaffByPhone(ctx context.Context, phone string) (*models.Staff, error)
	CreateStaff(ctx context.Context, st *models.Staff) error
	UpdateStaff(ctx context.Context, st *models.Staff) error
	DeleteStaff(ctx context.Context, id string) error
}

// Options carries the optional collaborators of a Server
type Options struct {
	Auth    config.AuthConfig
	Orders  config.OrdersConfig
	Board   *Board
	Metrics *monitoring.Metrics
	Logger  *slog.Logger
}

// NewServer creates the API server and registers every route
func NewServer(orders *ordering.Service, db Database, tokens *auth.Issuer, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))
	if opts.Metrics != nil {
		router.Use(opts.Metrics.Middleware())
	}

	s := &Server{
		Router:  router,
		orders:  orders,
		db:      db,
		tokens:  tokens,
		board:   opts.Board,
		metrics: opts.Metrics,
		logger:  logger.With("component", "api"),
		auth:    opts.Auth,
		limiter: newIPLimiter(opts.Orders.RateLimitPerMinute, opts.Orders.RateLimitBurst),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all API endpoints
func (s *Server) setupRoutes() {
	s.Router.GET("/health", s.Health)

	authn := auth.Middleware(s.tokens)
	staff := auth.RequireRole(models.StaffRoles...)

	if s.board != nil {
		s.Router.GET("/ws", auth.QueryMiddleware(s.tokens, "token"), staff, s.board.Handle)
	}
	admin := auth.RequireRole(models.RoleAdmin)

	api := s.Router.Group("/api")

	// Orders
	orders := api.Group("/orders")
	{
		orders.POST("", s.limiter.Middleware(), s.CreateOrder)
		orders.GET("/public/:id", s.PublicOrder)

		orders.GET("/my-orders", authn, auth.RequireRole(models.RoleCustomer), s.MyOrders)
		orders.GET("/all-orders", authn, auth.RequireRole(models.RoleAdmin, models.RoleAccountance, models.RoleChef), s.AllOrders)
		orders.GET("/waiter-orders", authn, auth.RequireRole(models.RoleWaiter), s.WaiterOrders)
		orders.GET("/accountance", authn, auth.RequireRole(models.RoleAdmin, models.RoleAccountance), s.Accountance)
		orders.GET("/print/:id", authn, staff, s.PrintOrder)
		orders.GET("/:id", authn, s.GetOrder)

		orders.PATCH("/:id/status", authn, auth.RequireRole(models.RoleAdmin, models.RoleChef, models.RoleWaiter), s.tableScope(), s.UpdateStatus)
		orders.PATCH("/:id/payment", authn, auth.RequireRole(models.RoleAdmin, models.RoleWaiter, models.RoleAccountance), s.tableScope(), s.RecordPayment)
		orders.PUT("/:id/apply-coupon", authn, auth.RequireRole(models.RoleAdmin, models.RoleAccountance), s.ApplyCoupon)
		orders.POST("/:id/best-coupon", authn, auth.RequireRole(models.RoleAdmin, models.RoleAccountance), s.ApplyBestCoupon)
		orders.DELETE("/:id/items/:itemId", authn, auth.RequireRole(models.RoleAdmin, models.RoleWaiter), s.tableScope(), s.RemoveItem)
	}

	// Coupons
	coupons := api.Group("/coupons", authn, admin)
	{
		coupons.GET("", s.ListCoupons)
		coupons.POST("", s.CreateCoupon)
		coupons.PUT("/:id", s.UpdateCoupon)
		coupons.DELETE("/:id", s.DeleteCoupon)
	}

	// Menu
	menu := api.Group("/menu")
	{
		menu.GET("", s.ListMenu)
		menu.GET("/:id", s.GetMenuItem)
		menu.POST("", authn, admin, s.CreateMenuItem)
		menu.PUT("/:id", authn, admin, s.UpdateMenuItem)
		menu.DELETE("/:id", authn, admin, s.DeleteMenuItem)
	}

	// Accounts
	accounts := api.Group("/auth")
	{
		accounts.POST("/phone-auth", s.PhoneAuth)
		accounts.POST("/staff-login", s.StaffLogin)
		accounts.GET("/profile", authn, s.Profile)
	}

	waiters := api.Group("/waiters", authn, admin)
	{
		waiters.GET("", s.ListWaiters)
		waiters.POST("", s.CreateWaiter)
		waiters.PUT("/:id", s.UpdateWaiter)
		waiters.DELETE("/:id", s.DeleteWaiter)
	}
}

// Health reports store reachability and process uptime
func (s *Server) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	body := gin.H{"status": "ok"}
	if s.metrics != nil {
		body["uptime"] = s.metrics.Uptime().Round(time.Second).String()
	}
	if s.board != nil {
		body["boardClients"] = s.board.Clients()
	}
	if err := s.db.Ping(ctx); err != nil {
		s.logger.WarnContext(ctx, "health check failed", "error", err)
		body["status"] = "degraded"
		body["database"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}

// statusFor maps a domain error to its HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrValidation), errors.Is(err, core.ErrInvalidState):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, core.ErrDependency):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
		msg := "internal server error"
		if status == http.StatusBadGateway {
			msg = "service temporarily unavailable"
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(status, gin.H{"error": core.Reason(err)})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// requestLogger logs one line per request with a request id
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-ID", id)

		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "request",
			"request_id", id,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
	}
}
