package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"medmanage/internal/domain"
)

const (
	MedicinesCollection = "medicines"
	OrdersCollection    = "orders"
)

// MongoMedicines is the medicine catalog backed by a MongoDB collection.
type MongoMedicines struct {
	coll   *mongo.Collection
	schema *Schema
}

func NewMongoMedicines(db *mongo.Database, schema *Schema) *MongoMedicines {
	return &MongoMedicines{coll: db.Collection(MedicinesCollection), schema: schema}
}

var _ MedicineRepository = (*MongoMedicines)(nil)

func (r *MongoMedicines) List(ctx context.Context, f MedicineFilter) ([]domain.Medicine, error) {
	cur, err := r.coll.Find(ctx, medicineQuery(f))
	if err != nil {
		return nil, unavailable(err)
	}
	out := make([]domain.Medicine, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, unavailable(err)
	}
	return out, nil
}

func medicineQuery(f MedicineFilter) bson.M {
	q := bson.M{}
	if f.NameSubstring != "" {
		q["name"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.NameSubstring), Options: "i"}
	}
	price := bson.M{}
	if f.MinPrice != nil {
		price["$gte"] = *f.MinPrice
	}
	if f.MaxPrice != nil {
		price["$lte"] = *f.MaxPrice
	}
	if len(price) > 0 {
		q["price"] = price
	}
	return q
}

func (r *MongoMedicines) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Medicine, error) {
	var m domain.Medicine
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return nil, notFoundOr(err)
	}
	return &m, nil
}

func (r *MongoMedicines) Insert(ctx context.Context, m *domain.Medicine) error {
	if err := r.schema.Medicine(*m); err != nil {
		return err
	}
	m.ID = primitive.NewObjectID()
	if _, err := r.coll.InsertOne(ctx, m); err != nil {
		m.ID = primitive.NilObjectID
		return unavailable(err)
	}
	return nil
}

// Update validates the patched fields, then $sets only those so concurrent
// stock increments are not overwritten.
func (r *MongoMedicines) Update(ctx context.Context, id primitive.ObjectID, patch domain.MedicinePatch) (*domain.Medicine, error) {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	merged := *current
	patch.Apply(&merged)
	if err := r.schema.MedicinePatch(merged, patch); err != nil {
		return nil, err
	}
	set := medicineSet(patch)
	if len(set) == 0 {
		return current, nil
	}
	var updated domain.Medicine
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&updated)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &updated, nil
}

func medicineSet(p domain.MedicinePatch) bson.M {
	set := bson.M{}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Batch != nil {
		set["batch"] = *p.Batch
	}
	if p.Manufacturer != nil {
		set["manufacturer"] = *p.Manufacturer
	}
	if p.Expiry != nil {
		set["expiry"] = *p.Expiry
	}
	if p.Stock != nil {
		set["stock"] = *p.Stock
	}
	if p.Price != nil {
		set["price"] = *p.Price
	}
	return set
}

func (r *MongoMedicines) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return unavailable(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoMedicines) IncrementStock(ctx context.Context, id primitive.ObjectID, delta int64) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"stock": delta}})
	if err != nil {
		return unavailable(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoMedicines) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}

func (r *MongoMedicines) DeleteAll(ctx context.Context) error {
	if _, err := r.coll.DeleteMany(ctx, bson.M{}); err != nil {
		return unavailable(err)
	}
	return nil
}

// MongoOrders stores orders with their customer and items embedded.
type MongoOrders struct {
	coll   *mongo.Collection
	schema *Schema
}

func NewMongoOrders(db *mongo.Database, schema *Schema) *MongoOrders {
	return &MongoOrders{coll: db.Collection(OrdersCollection), schema: schema}
}

var _ OrderRepository = (*MongoOrders)(nil)

func (r *MongoOrders) List(ctx context.Context) ([]domain.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, unavailable(err)
	}
	out := make([]domain.Order, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, unavailable(err)
	}
	return out, nil
}

func (r *MongoOrders) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Order, error) {
	var o domain.Order
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&o); err != nil {
		return nil, notFoundOr(err)
	}
	return &o, nil
}

func (r *MongoOrders) Insert(ctx context.Context, o *domain.Order) error {
	if err := r.schema.Order(*o); err != nil {
		return err
	}
	o.ID = primitive.NewObjectID()
	if _, err := r.coll.InsertOne(ctx, o); err != nil {
		o.ID = primitive.NilObjectID
		return unavailable(err)
	}
	return nil
}

func (r *MongoOrders) Update(ctx context.Context, id primitive.ObjectID, patch domain.OrderPatch) (*domain.Order, error) {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	merged := *current
	patch.Apply(&merged)
	if err := r.schema.OrderPatch(merged, patch); err != nil {
		return nil, err
	}
	set := bson.M{}
	if patch.Date != nil {
		set["date"] = *patch.Date
	}
	if patch.Customer != nil {
		set["customer"] = *patch.Customer
	}
	if patch.Items != nil {
		set["items"] = *patch.Items
	}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}
	if len(set) == 0 {
		return current, nil
	}
	var updated domain.Order
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&updated)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &updated, nil
}

func (r *MongoOrders) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return unavailable(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoOrders) CountSince(ctx context.Context, since time.Time) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"date": bson.M{"$gte": since}})
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}

func notFoundOr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return unavailable(err)
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
