package dto

import (
	"github.com/shopspring/decimal"

	"go-storefront/models"
)

// --- User ---

type RegisterRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Agent    string `json:"agent" validate:"required"`
	Phone    string `json:"phone" validate:"required,phone"`
	Address  string `json:"address" validate:"required"`
	Role     string `json:"role" validate:"omitempty,oneof=customer admin"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// --- Product ---

type ProductRequest struct {
	ItemCode    string          `json:"itemCode" validate:"required"`
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description"`
	Picture     string          `json:"picture" validate:"required,url"`
	Price       decimal.Decimal `json:"price" validate:"gt=0"`
}

// --- Order ---

type OrderLineRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type PlaceOrderRequest struct {
	Products []OrderLineRequest `json:"products"`
}
