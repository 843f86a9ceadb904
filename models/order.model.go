package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderStatusPending is the status every order is created with.
const OrderStatusPending = "Pending"

// OrderLine is a snapshot of a product at the time the order was placed
type OrderLine struct {
	Product  primitive.ObjectID `bson:"product" json:"product"`
	Quantity int                `bson:"quantity" json:"quantity"`
	ItemCode string             `bson:"itemCode" json:"itemCode"`
	Name     string             `bson:"name" json:"name"`
	Picture  string             `bson:"picture" json:"picture"`
	Price    decimal.Decimal    `bson:"price" json:"price"`
}

// Subtotal is the line price multiplied by its quantity.
func (l OrderLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Order represents a user's placed order ("quote")
type Order struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	User       primitive.ObjectID `bson:"user" json:"user"`
	Products   []OrderLine        `bson:"products" json:"products"`
	TotalItems int                `bson:"totalItems" json:"totalItems"`
	TotalPrice decimal.Decimal    `bson:"totalPrice" json:"totalPrice"`
	Status     string             `bson:"status" json:"status"` // e.g., "Pending"
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}
