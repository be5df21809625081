package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tableside/internal/core"
	"tableside/internal/models"
)

type couponRequest struct {
	Code           string              `json:"code" binding:"required"`
	DiscountType   models.DiscountType `json:"discountType" binding:"required"`
	DiscountValue  float64             `json:"discountValue"`
	MaxDiscount    *float64            `json:"maxDiscount"`
	MinOrderAmount *float64            `json:"minOrderAmount"`
	ValidFrom      time.Time           `json:"validFrom" binding:"required"`
	ValidTill      time.Time           `json:"validTill" binding:"required"`
	MaxUses        int                 `json:"maxUses"`
	MaxUsesPerUser int                 `json:"maxUsesPerUser"`
	IsActive       *bool               `json:"isActive"`
	Description    string              `json:"description"`
}

func (r couponRequest) applyTo(c *models.Coupon) {
	c.Code = r.Code
	c.DiscountType = r.DiscountType
	c.DiscountValue = r.DiscountValue
	c.MaxDiscount = r.MaxDiscount
	c.MinOrderAmount = r.MinOrderAmount
	c.ValidFrom = r.ValidFrom
	c.ValidTill = r.ValidTill
	c.MaxUses = r.MaxUses
	c.MaxUsesPerUser = r.MaxUsesPerUser
	c.Description = r.Description
	c.IsActive = r.IsActive == nil || *r.IsActive
}

type foodItemRequest struct {
	Name        string              `json:"name" binding:"required"`
	Description string              `json:"description" binding:"required"`
	Price       float64             `json:"price" binding:"required"`
	Category    models.MenuCategory `json:"category" binding:"required"`
	Image       string              `json:"image" binding:"required"`
	IsAvailable *bool               `json:"isAvailable"`
}

func (r foodItemRequest) applyTo(item *models.FoodItem) {
	item.Name = r.Name
	item.Description = r.Description
	item.Price = r.Price
	item.Category = r.Category
	item.Image = r.Image
	item.IsAvailable = r.IsAvailable == nil || *r.IsAvailable
}

// Coupon handlers

func (s *Server) ListCoupons(c *gin.Context) {
	coupons, err := s.db.ListCoupons(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, coupons)
}

func (s *Server) CreateCoupon(c *gin.Context) {
	var req couponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	coupon := &models.Coupon{ID: uuid.NewString(), CreatedAt: time.Now()}
	req.applyTo(coupon)
	if err := models.ValidateCoupon(coupon); err != nil {
		s.fail(c, core.Validationf("%v", err))
		return
	}
	if err := s.db.CreateCoupon(c.Request.Context(), coupon); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, coupon)
}

func (s *Server) UpdateCoupon(c *gin.Context) {
	var req couponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	coupon, err := s.db.GetCoupon(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	req.applyTo(coupon)
	if err := models.ValidateCoupon(coupon); err != nil {
		s.fail(c, core.Validationf("%v", err))
		return
	}
	if err := s.db.UpdateCoupon(c.Request.Context(), coupon); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, coupon)
}

func (s *Server) DeleteCoupon(c *gin.Context) {
	if err := s.db.DeleteCoupon(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Coupon deleted"})
}

// Menu handlers

// ListMenu returns the menu, optionally narrowed to one category
func (s *Server) ListMenu(c *gin.Context) {
	category := models.MenuCategory(c.Query("category"))
	if category != "" && !category.Valid() {
		s.fail(c, core.Validationf("unknown category %q", category))
		return
	}
	items, err := s.db.ListFoodItems(c.Request.Context(), category)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (s *Server) GetMenuItem(c *gin.Context) {
	item, err := s.db.GetFoodItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (s *Server) CreateMenuItem(c *gin.Context) {
	var req foodItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	item := &models.FoodItem{ID: uuid.NewString()}
	req.applyTo(item)
	if err := models.ValidateFoodItem(item); err != nil {
		s.fail(c, core.Validationf("%v", err))
		return
	}
	if err := s.db.CreateFoodItem(c.Request.Context(), item); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (s *Server) UpdateMenuItem(c *gin.Context) {
	var req foodItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	item, err := s.db.GetFoodItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	req.applyTo(item)
	if err := models.ValidateFoodItem(item); err != nil {
		s.fail(c, core.Validationf("%v", err))
		return
	}
	if err := s.db.UpdateFoodItem(c.Request.Context(), item); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (s *Server) DeleteMenuItem(c *gin.Context) {
	if err := s.db.DeleteFoodItem(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Food item deleted"})
}
