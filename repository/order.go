package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"go-storefront/models"
)

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	// ListByUser returns the user's orders, newest first.
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error)
}

type mongoOrderRepo struct{ collection *mongo.Collection }

func NewOrderRepository(db *mongo.Database) OrderRepository {
	return &mongoOrderRepo{collection: db.Collection(OrdersCollection)}
}

func (r *mongoOrderRepo) Create(ctx context.Context, order *models.Order) error {
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	result, err := r.collection.InsertOne(ctx, order)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	order.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *mongoOrderRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	var order models.Order
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &order, nil
}

func (r *mongoOrderRepo) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"user": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	defer cursor.Close(ctx)

	orders := []models.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return orders, nil
}
