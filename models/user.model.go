package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles a user can hold.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// User represents a registered storefront account
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Username  string             `bson:"username" json:"username"`
	Email     string             `bson:"email" json:"email"`
	Agent     string             `bson:"agent" json:"agent"`
	Phone     string             `bson:"phone" json:"phone"`
	Address   string             `bson:"address" json:"address"`
	Role      string             `bson:"role" json:"role"` // "customer" or "admin"
	Password  string             `bson:"password,omitempty" json:"-"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// IsAdmin reports whether the user may manage the catalog.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
