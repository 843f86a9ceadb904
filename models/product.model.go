package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product represents a catalog entry
type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	ItemCode    string             `bson:"itemCode" json:"itemCode"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Picture     string             `bson:"picture" json:"picture"`
	Price       decimal.Decimal    `bson:"price" json:"price"`
	User        primitive.ObjectID `bson:"user" json:"user"` // owning admin
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}
