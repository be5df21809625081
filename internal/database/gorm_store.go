package database

import (
	"context"
	"fmt"

	"github.com/jinzhu/gorm"

	"tableside/internal/core"
	"tableside/internal/models"
)

// GormStore persists orders, people, coupons and the menu in a relational
// database through gorm. gorm v1 has no per-query context, so ctx is only
// checked before work starts.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Ping checks that the database is reachable
func (s *GormStore) Ping(ctx context.Context) error {
	return s.db.DB().PingContext(ctx)
}

func (s *GormStore) Close() error {
	return s.db.Close()
}

func wrap(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case gorm.IsRecordNotFoundError(err):
		return core.NotFoundf("%s not found", what)
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %s", core.ErrConflict, what)
	default:
		return err
	}
}

func orderedItems(db *gorm.DB) *gorm.DB {
	return db.Order("position asc")
}

func orderedComments(db *gorm.DB) *gorm.DB {
	return db.Order("id asc")
}

// IncrementSequence bumps the counter for date in a single statement so
// concurrent order creation never sees the same value.
func (s *GormStore) IncrementSequence(ctx context.Context, date string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int
	row := s.db.Raw(`INSERT INTO order_sequences (date, counter) VALUES (?, 1)
		ON CONFLICT (date) DO UPDATE SET counter = order_sequences.counter + 1
		RETURNING counter`, date).Row()
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("increment sequence %s: %w", date, err)
	}
	return n, nil
}

func (s *GormStore) CreateOrder(ctx context.Context, order *models.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Set("gorm:save_associations", false).Create(order).Error; err != nil {
			return wrap(err, "order "+order.ID)
		}
		return writeChildren(tx, order)
	})
}

func writeChildren(tx *gorm.DB, order *models.Order) error {
	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		item.Position = i
		if err := tx.Create(item).Error; err != nil {
			return fmt.Errorf("insert item %s: %w", item.ID, err)
		}
	}
	for i := range order.Comments {
		c := &order.Comments[i]
		if c.ID != 0 {
			continue
		}
		c.OrderID = order.ID
		if err := tx.Create(c).Error; err != nil {
			return fmt.Errorf("insert comment: %w", err)
		}
	}
	return nil
}

func (s *GormStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var order models.Order
	err := s.db.
		Preload("Items", orderedItems).
		Preload("Comments", orderedComments).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, wrap(err, "order "+id)
	}
	return &order, nil
}

func (s *GormStore) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q := s.db.
		Preload("Items", orderedItems).
		Preload("Comments", orderedComments).
		Order("created_at desc")
	if filter.CustomerID != "" {
		q = q.Where("customer_id = ?", filter.CustomerID)
	}
	if len(filter.Tables) > 0 {
		q = q.Where("table_number IN (?)", filter.Tables)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		q = q.Where("status IN (?)", statuses)
	}

	orders := []models.Order{}
	if err := q.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// SaveOrder rewrites the order row and its items and inserts new comments.
// Stored comments are never updated or removed.
func (s *GormStore) SaveOrder(ctx context.Context, order *models.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).Where("id = ?", order.ID).UpdateColumns(map[string]interface{}{
			"total_amount":      order.TotalAmount,
			"discounted_amount": order.DiscountedAmount,
			"applied_coupon":    order.AppliedCoupon,
			"status":            string(order.Status),
			"payment_status":    string(order.PaymentStatus),
			"payment_method":    string(order.PaymentMethod),
			"updated_at":        order.UpdatedAt,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return core.NotFoundf("order %s not found", order.ID)
		}
		if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		return writeChildren(tx, order)
	})
}

func (s *GormStore) FindCustomerByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var c models.Customer
	if err := s.db.Where("phone_number = ?", phone).First(&c).Error; err != nil {
		return nil, wrap(err, "customer")
	}
	return &c, nil
}

// GetCustomer loads a customer together with the ids of its orders
func (s *GormStore) GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var c models.Customer
	if err := s.db.Where("id = ?", id).First(&c).Error; err != nil {
		return nil, wrap(err, "customer "+id)
	}
	if err := s.db.Model(&models.Order{}).Where("customer_id = ?", id).Order("created_at asc").Pluck("id", &c.OrderIDs).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *GormStore) CreateCustomer(ctx context.Context, c *models.Customer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return wrap(s.db.Create(c).Error, "customer with phone "+c.PhoneNumber)
}

func (s *GormStore) ListCoupons(ctx context.Context) ([]models.Coupon, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	coupons := []models.Coupon{}
	if err := s.db.Order("created_at asc").Find(&coupons).Error; err != nil {
		return nil, err
	}
	return coupons, nil
}

func (s *GormStore) GetCoupon(ctx context.Context, id string) (*models.Coupon, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var c models.Coupon
	if err := s.db.Where("id = ?", id).First(&c).Error; err != nil {
		return nil, wrap(err, "coupon "+id)
	}
	return &c, nil
}

func (s *GormStore) GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var c models.Coupon
	if err := s.db.Where("code = ?", code).First(&c).Error; err != nil {
		return nil, wrap(err, "coupon "+code)
	}
	return &c, nil
}

func (s *GormStore) CreateCoupon(ctx context.Context, c *models.Coupon) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return wrap(s.db.Create(c).Error, "coupon code "+c.Code)
}

func (s *GormStore) UpdateCoupon(ctx context.Context, c *models.Coupon) error {
	if _, err := s.GetCoupon(ctx, c.ID); err != nil {
		return err
	}
	return wrap(s.db.Save(c).Error, "coupon code "+c.Code)
}

func (s *GormStore) DeleteCoupon(ctx context.Context, id string) error {
	return s.deleteByID(ctx, &models.Coupon{}, id, "coupon")
}

func (s *GormStore) deleteByID(ctx context.Context, model interface{}, id, what string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	res := s.db.Where("id = ?", id).Delete(model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return core.NotFoundf("%s %s not found", what, id)
	}
	return nil
}

func (s *GormStore) ListFoodItems(ctx context.Context, category models.MenuCategory) ([]models.FoodItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q := s.db.Order("name asc")
	if category != "" {
		q = q.Where("category = ?", string(category))
	}
	items := []models.FoodItem{}
	if err := q.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *GormStore) GetFoodItem(ctx context.Context, id string) (*models.FoodItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var item models.FoodItem
	if err := s.db.Where("id = ?", id).First(&item).Error; err != nil {
		return nil, wrap(err, "food item "+id)
	}
	return &item, nil
}

func (s *GormStore) CountFoodItems(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int
	err := s.db.Model(&models.FoodItem{}).Count(&n).Error
	return n, err
}

func (s *GormStore) CreateFoodItem(ctx context.Context, item *models.FoodItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return wrap(s.db.Create(item).Error, "food item "+item.ID)
}

func (s *GormStore) UpdateFoodItem(ctx context.Context, item *models.FoodItem) error {
	if _, err := s.GetFoodItem(ctx, item.ID); err != nil {
		return err
	}
	return s.db.Save(item).Error
}

func (s *GormStore) DeleteFoodItem(ctx context.Context, id string) error {
	return s.deleteByID(ctx, &models.FoodItem{}, id, "food item")
}

func (s *GormStore) ListStaff(ctx context.Context, role models.Role) ([]models.Staff, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q := s.db.Order("name asc")
	if role != "" {
		q = q.Where("role = ?", string(role))
	}
	staff := []models.Staff{}
	if err := q.Find(&staff).Error; err != nil {
		return nil, err
	}
	return staff, nil
}

func (s *GormStore) GetStaff(ctx context.Context, id string) (*models.Staff, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var st models.Staff
	if err := s.db.Where("id = ?", id).First(&st).Error; err != nil {
		return nil, wrap(err, "staff member "+id)
	}
	return &st, nil
}

func (s *GormStore) FindStaffByPhone(ctx context.Context, phone string) (*models.Staff, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var st models.Staff
	if err := s.db.Where("phone_number = ?", phone).First(&st).Error; err != nil {
		return nil, wrap(err, "staff member")
	}
	return &st, nil
}

func (s *GormStore) CreateStaff(ctx context.Context, st *models.Staff) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return wrap(s.db.Create(st).Error, "staff phone "+st.PhoneNumber)
}

func (s *GormStore) UpdateStaff(ctx context.Context, st *models.Staff) error {
	if _, err := s.GetStaff(ctx, st.ID); err != nil {
		return err
	}
	return wrap(s.db.Save(st).Error, "staff phone "+st.PhoneNumber)
}

func (s *GormStore) DeleteStaff(ctx context.Context, id string) error {
	return s.deleteByID(ctx, &models.Staff{}, id, "staff member")
}
