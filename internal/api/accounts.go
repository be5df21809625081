package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tableside/internal/auth"
	"tableside/internal/core"
	"tableside/internal/models"
	"tableside/internal/ordering"
)

const minPasswordLength = 6

type phoneAuthRequest struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber" binding:"required"`
}

type staffLoginRequest struct {
	PhoneNumber string `json:"phoneNumber" binding:"required"`
	Password    string `json:"password" binding:"required"`
}

type staffRequest struct {
	Name           string      `json:"name" binding:"required"`
	PhoneNumber    string      `json:"phoneNumber" binding:"required"`
	Password       string      `json:"password"`
	Role           models.Role `json:"role"`
	AssignedTables []int       `json:"assignedTables"`
}

// validate checks the request; creating requires a password, updating
// only checks one when given
func (r *staffRequest) validate(creating bool) error {
	r.Name = strings.TrimSpace(r.Name)
	r.PhoneNumber = strings.TrimSpace(r.PhoneNumber)
	if r.Role == "" {
		r.Role = models.RoleWaiter
	}
	if !r.Role.IsStaff() {
		return core.Validationf("role %q is not a staff role", r.Role)
	}
	if !validPhone(r.PhoneNumber) {
		return core.Validationf("phone number must be 10 digits")
	}
	if creating && r.Password == "" {
		return core.Validationf("password is required")
	}
	if r.Password != "" && len(r.Password) < minPasswordLength {
		return core.Validationf("password must be at least %d characters", minPasswordLength)
	}
	if r.Role == models.RoleWaiter && len(r.AssignedTables) == 0 {
		return core.Validationf("at least one table must be assigned")
	}
	for _, t := range r.AssignedTables {
		if t < ordering.MinTableNumber || t > ordering.MaxTableNumber {
			return core.Validationf("table number %d must be in range [%d, %d]", t, ordering.MinTableNumber, ordering.MaxTableNumber)
		}
	}
	return nil
}

type staffView struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	PhoneNumber    string      `json:"phoneNumber"`
	Role           models.Role `json:"role"`
	AssignedTables []int       `json:"assignedTables"`
}

func viewStaff(st *models.Staff) staffView {
	tables := []int(st.AssignedTables)
	if tables == nil {
		tables = []int{}
	}
	return staffView{ID: st.ID, Name: st.Name, PhoneNumber: st.PhoneNumber, Role: st.Role, AssignedTables: tables}
}

func validPhone(phone string) bool {
	if len(phone) != 10 {
		return false
	}
	for _, r := range phone {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// PhoneAuth signs a customer in by phone number, registering them when a
// name is supplied for an unknown number
func (s *Server) PhoneAuth(c *gin.Context) {
	var req phoneAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	customer, isNew, err := s.orders.ResolveCustomer(c.Request.Context(), req.PhoneNumber, req.Name)
	if err != nil {
		s.fail(c, err)
		return
	}
	token, err := s.tokens.Issue(auth.Principal{UserID: customer.ID, Role: models.RoleCustomer}, s.auth.CustomerTokenTTL)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":     token,
		"user":      customerView{ID: customer.ID, Name: customer.Name, PhoneNumber: customer.PhoneNumber},
		"isNewUser": isNew,
	})
}

// StaffLogin checks a staff password and issues a role token
func (s *Server) StaffLogin(c *gin.Context) {
	var req staffLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	st, err := s.db.FindStaffByPhone(c.Request.Context(), strings.TrimSpace(req.PhoneNumber))
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		s.fail(c, core.Dependency("find staff", err))
		return
	}
	if err != nil || !auth.CheckPassword(st.PasswordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid phone number or password"})
		return
	}

	token, err := s.tokens.Issue(auth.Principal{
		UserID:         st.ID,
		Role:           st.Role,
		AssignedTables: st.AssignedTables,
	}, s.auth.StaffTokenTTL)
	if err != nil {
		s.fail(c, err)
		return
	}

	s.logger.InfoContext(c.Request.Context(), "staff signed in", "staff_id", st.ID, "role", st.Role)
	c.JSON(http.StatusOK, gin.H{"token": token, "user": viewStaff(st)})
}

// Profile returns the account behind the caller's token
func (s *Server) Profile(c *gin.Context) {
	p, _ := auth.FromContext(c)
	ctx := c.Request.Context()

	if p.Role == models.RoleCustomer {
		customer, err := s.orders.GetCustomer(ctx, p.UserID)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"id":          customer.ID,
			"name":        customer.Name,
			"phoneNumber": customer.PhoneNumber,
			"role":        models.RoleCustomer,
			"orders":      customer.OrderIDs,
		})
		return
	}

	st, err := s.db.GetStaff(ctx, p.UserID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, viewStaff(st))
}

// Staff handlers

// ListWaiters lists staff of the role in ?role=, waiters by default
func (s *Server) ListWaiters(c *gin.Context) {
	role := models.Role(c.DefaultQuery("role", string(models.RoleWaiter)))
	if !role.IsStaff() {
		s.fail(c, core.Validationf("role %q is not a staff role", role))
		return
	}
	staff, err := s.db.ListStaff(c.Request.Context(), role)
	if err != nil {
		s.fail(c, err)
		return
	}
	views := make([]staffView, 0, len(staff))
	for i := range staff {
		views = append(views, viewStaff(&staff[i]))
	}
	c.JSON(http.StatusOK, views)
}

func (s *Server) CreateWaiter(c *gin.Context) {
	var req staffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.validate(true); err != nil {
		s.fail(c, err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	now := time.Now()
	st := &models.Staff{
		ID:             uuid.NewString(),
		Name:           req.Name,
		PhoneNumber:    req.PhoneNumber,
		PasswordHash:   hash,
		Role:           req.Role,
		AssignedTables: models.IntSlice(req.AssignedTables).Dedupe(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.db.CreateStaff(c.Request.Context(), st); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, viewStaff(st))
}

func (s *Server) UpdateWaiter(c *gin.Context) {
	var req staffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.validate(false); err != nil {
		s.fail(c, err)
		return
	}

	st, err := s.db.GetStaff(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	st.Name = req.Name
	st.PhoneNumber = req.PhoneNumber
	st.Role = req.Role
	st.AssignedTables = models.IntSlice(req.AssignedTables).Dedupe()
	st.UpdatedAt = time.Now()
	if req.Password != "" {
		if st.PasswordHash, err = auth.HashPassword(req.Password); err != nil {
			s.fail(c, err)
			return
		}
	}

	if err := s.db.UpdateStaff(c.Request.Context(), st); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, viewStaff(st))
}

func (s *Server) DeleteWaiter(c *gin.Context) {
	p, _ := auth.FromContext(c)
	if p.UserID == c.Param("id") {
		s.fail(c, core.Validationf("cannot delete your own account"))
		return
	}
	if err := s.db.DeleteStaff(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Staff member deleted"})
}
