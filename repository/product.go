package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"go-storefront/models"
)

type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	List(ctx context.Context) ([]models.Product, error)
	SearchByName(ctx context.Context, name string) ([]models.Product, error)
	// Update replaces the editable fields and returns the stored document,
	// or nil when no product has the given id.
	Update(ctx context.Context, id primitive.ObjectID, fields ProductFields) (*models.Product, error)
	// Delete reports whether a product was removed.
	Delete(ctx context.Context, id primitive.ObjectID) (bool, error)
}

// ProductFields are the product attributes an admin may change.
type ProductFields struct {
	ItemCode    string
	Name        string
	Description string
	Picture     string
	Price       decimal.Decimal
}

type mongoProductRepo struct{ collection *mongo.Collection }

func NewProductRepository(db *mongo.Database) ProductRepository {
	return &mongoProductRepo{collection: db.Collection(ProductsCollection)}
}

func (r *mongoProductRepo) Create(ctx context.Context, product *models.Product) error {
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now
	result, err := r.collection.InsertOne(ctx, product)
	if err != nil {
		return fmt.Errorf("create product: %w", mapWriteError(err))
	}
	product.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *mongoProductRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var product models.Product
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &product, nil
}

func (r *mongoProductRepo) List(ctx context.Context) ([]models.Product, error) {
	return r.find(ctx, bson.M{})
}

func (r *mongoProductRepo) SearchByName(ctx context.Context, name string) ([]models.Product, error) {
	return r.find(ctx, NameSearchFilter(name))
}

// NameSearchFilter matches products whose name contains name, ignoring case.
// The input is quoted so it is matched literally.
func NameSearchFilter(name string) bson.M {
	return bson.M{"name": primitive.Regex{Pattern: regexp.QuoteMeta(name), Options: "i"}}
}

func (r *mongoProductRepo) find(ctx context.Context, filter bson.M) ([]models.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	defer cursor.Close(ctx)

	products := []models.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return products, nil
}

func (r *mongoProductRepo) Update(ctx context.Context, id primitive.ObjectID, fields ProductFields) (*models.Product, error) {
	update := bson.M{"$set": bson.M{
		"itemCode":    fields.ItemCode,
		"name":        fields.Name,
		"description": fields.Description,
		"picture":     fields.Picture,
		"price":       fields.Price,
		"updatedAt":   time.Now().UTC(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var product models.Product
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("update product: %w", err)
	}
	return &product, nil
}

func (r *mongoProductRepo) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("delete product: %w", err)
	}
	return result.DeletedCount > 0, nil
}
