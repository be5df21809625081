package database

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"tableside/internal/core"
	"tableside/internal/models"
)

const (
	ordersCollection    = "orders"
	sequencesCollection = "ordersequences"
	customersCollection = "users"
	staffCollection     = "waiters"
	couponsCollection   = "coupons"
	menuCollection      = "fooditems"
)

// MongoStore keeps orders as documents with embedded items and comments.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// ConnectMongo dials uri, verifies the connection and ensures indexes.
func ConnectMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	s := &MongoStore{client: client, db: client.Database(database)}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	unique := func(coll, field string) error {
		_, err := s.db.Collection(coll).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: field, Value: 1}},
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			return fmt.Errorf("index %s.%s: %w", coll, field, err)
		}
		return nil
	}
	if err := unique(customersCollection, "phoneNumber"); err != nil {
		return err
	}
	if err := unique(staffCollection, "phoneNumber"); err != nil {
		return err
	}
	if err := unique(couponsCollection, "code"); err != nil {
		return err
	}
	_, err := s.db.Collection(ordersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "customerId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "tableNumber", Value: 1}, {Key: "status", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("index orders: %w", err)
	}
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

func mongoErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return core.NotFoundf("%s not found", what)
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %s", core.ErrConflict, what)
	default:
		return err
	}
}

func (s *MongoStore) findOne(ctx context.Context, coll string, filter bson.M, out interface{}, what string) error {
	return mongoErr(s.db.Collection(coll).FindOne(ctx, filter).Decode(out), what)
}

func (s *MongoStore) findAll(ctx context.Context, coll string, filter bson.M, sort bson.D, out interface{}) error {
	cur, err := s.db.Collection(coll).Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return err
	}
	return cur.All(ctx, out)
}

func (s *MongoStore) replace(ctx context.Context, coll, id string, doc interface{}, what string) error {
	res, err := s.db.Collection(coll).ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return mongoErr(err, what)
	}
	if res.MatchedCount == 0 {
		return core.NotFoundf("%s not found", what)
	}
	return nil
}

func (s *MongoStore) remove(ctx context.Context, coll, id, what string) error {
	res, err := s.db.Collection(coll).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return core.NotFoundf("%s %s not found", what, id)
	}
	return nil
}

// IncrementSequence upserts the day's counter with $inc, which the server
// applies atomically.
func (s *MongoStore) IncrementSequence(ctx context.Context, date string) (int, error) {
	var seq models.OrderSequence
	err := s.db.Collection(sequencesCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": date},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&seq)
	if err != nil {
		return 0, fmt.Errorf("increment sequence %s: %w", date, err)
	}
	return seq.Counter, nil
}

func (s *MongoStore) CreateOrder(ctx context.Context, order *models.Order) error {
	if _, err := s.db.Collection(ordersCollection).InsertOne(ctx, order); err != nil {
		return mongoErr(err, "order "+order.ID)
	}
	_, err := s.db.Collection(customersCollection).UpdateOne(ctx,
		bson.M{"_id": order.CustomerID},
		bson.M{"$push": bson.M{"orders": order.ID}},
	)
	return err
}

func (s *MongoStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := s.findOne(ctx, ordersCollection, bson.M{"_id": id}, &order, "order "+id); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *MongoStore) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	q := bson.M{}
	if filter.CustomerID != "" {
		q["customerId"] = filter.CustomerID
	}
	if len(filter.Tables) > 0 {
		q["tableNumber"] = bson.M{"$in": filter.Tables}
	}
	if len(filter.Statuses) > 0 {
		q["status"] = bson.M{"$in": filter.Statuses}
	}
	orders := []models.Order{}
	if err := s.findAll(ctx, ordersCollection, q, bson.D{{Key: "createdAt", Value: -1}}, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *MongoStore) SaveOrder(ctx context.Context, order *models.Order) error {
	return s.replace(ctx, ordersCollection, order.ID, order, "order "+order.ID)
}

func (s *MongoStore) FindCustomerByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	var c models.Customer
	if err := s.findOne(ctx, customersCollection, bson.M{"phoneNumber": phone}, &c, "customer"); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *MongoStore) GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	var c models.Customer
	if err := s.findOne(ctx, customersCollection, bson.M{"_id": id}, &c, "customer "+id); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *MongoStore) CreateCustomer(ctx context.Context, c *models.Customer) error {
	if c.OrderIDs == nil {
		c.OrderIDs = []string{}
	}
	_, err := s.db.Collection(customersCollection).InsertOne(ctx, c)
	return mongoErr(err, "customer with phone "+c.PhoneNumber)
}

func (s *MongoStore) ListCoupons(ctx context.Context) ([]models.Coupon, error) {
	coupons := []models.Coupon{}
	if err := s.findAll(ctx, couponsCollection, bson.M{}, bson.D{{Key: "createdAt", Value: 1}}, &coupons); err != nil {
		return nil, err
	}
	return coupons, nil
}

func (s *MongoStore) GetCoupon(ctx context.Context, id string) (*models.Coupon, error) {
	var c models.Coupon
	if err := s.findOne(ctx, couponsCollection, bson.M{"_id": id}, &c, "coupon "+id); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *MongoStore) GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var c models.Coupon
	if err := s.findOne(ctx, couponsCollection, bson.M{"code": code}, &c, "coupon "+code); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *MongoStore) CreateCoupon(ctx context.Context, c *models.Coupon) error {
	_, err := s.db.Collection(couponsCollection).InsertOne(ctx, c)
	return mongoErr(err, "coupon code "+c.Code)
}

func (s *MongoStore) UpdateCoupon(ctx context.Context, c *models.Coupon) error {
	return s.replace(ctx, couponsCollection, c.ID, c, "coupon "+c.ID)
}

func (s *MongoStore) DeleteCoupon(ctx context.Context, id string) error {
	return s.remove(ctx, couponsCollection, id, "coupon")
}

func (s *MongoStore) ListFoodItems(ctx context.Context, category models.MenuCategory) ([]models.FoodItem, error) {
	q := bson.M{}
	if category != "" {
		q["category"] = category
	}
	items := []models.FoodItem{}
	if err := s.findAll(ctx, menuCollection, q, bson.D{{Key: "name", Value: 1}}, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *MongoStore) GetFoodItem(ctx context.Context, id string) (*models.FoodItem, error) {
	var item models.FoodItem
	if err := s.findOne(ctx, menuCollection, bson.M{"_id": id}, &item, "food item "+id); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *MongoStore) CountFoodItems(ctx context.Context) (int, error) {
	n, err := s.db.Collection(menuCollection).CountDocuments(ctx, bson.M{})
	return int(n), err
}

func (s *MongoStore) CreateFoodItem(ctx context.Context, item *models.FoodItem) error {
	_, err := s.db.Collection(menuCollection).InsertOne(ctx, item)
	return mongoErr(err, "food item "+item.ID)
}

func (s *MongoStore) UpdateFoodItem(ctx context.Context, item *models.FoodItem) error {
	return s.replace(ctx, menuCollection, item.ID, item, "food item "+item.ID)
}

func (s *MongoStore) DeleteFoodItem(ctx context.Context, id string) error {
	return s.remove(ctx, menuCollection, id, "food item")
}

func (s *MongoStore) ListStaff(ctx context.Context, role models.Role) ([]models.Staff, error) {
	q := bson.M{}
	if role != "" {
		q["role"] = role
	}
	staff := []models.Staff{}
	if err := s.findAll(ctx, staffCollection, q, bson.D{{Key: "name", Value: 1}}, &staff); err != nil {
		return nil, err
	}
	return staff, nil
}

func (s *MongoStore) GetStaff(ctx context.Context, id string) (*models.Staff, error) {
	var st models.Staff
	if err := s.findOne(ctx, staffCollection, bson.M{"_id": id}, &st, "staff member "+id); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *MongoStore) FindStaffByPhone(ctx context.Context, phone string) (*models.Staff, error) {
	var st models.Staff
	if err := s.findOne(ctx, staffCollection, bson.M{"phoneNumber": phone}, &st, "staff member"); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *MongoStore) CreateStaff(ctx context.Context, st *models.Staff) error {
	_, err := s.db.Collection(staffCollection).InsertOne(ctx, st)
	return mongoErr(err, "staff phone "+st.PhoneNumber)
}

func (s *MongoStore) UpdateStaff(ctx context.Context, st *models.Staff) error {
	return s.replace(ctx, staffCollection, st.ID, st, "staff member "+st.ID)
}

func (s *MongoStore) DeleteStaff(ctx context.Context, id string) error {
	return s.remove(ctx, staffCollection, id, "staff member")
}
