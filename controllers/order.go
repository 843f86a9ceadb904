package controllers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-storefront/dto"
	"go-storefront/middleware"
	"go-storefront/models"
	"go-storefront/services"
)

// OrderService is the part of services.OrderService the controller needs.
type OrderService interface {
	PlaceOrder(ctx context.Context, userID primitive.ObjectID, req dto.PlaceOrderRequest) (*models.Order, error)
	GetOrderConfirmation(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error)
}

// OrderController handles order-related requests
type OrderController struct {
	orders OrderService
	log    *slog.Logger
}

func NewOrderController(orders OrderService, log *slog.Logger) *OrderController {
	return &OrderController{orders: orders, log: log}
}

// PlaceOrder creates a Pending order for the authenticated user
func (oc *OrderController) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := oc.userID(w, r)
	if !ok {
		return
	}
	var req dto.PlaceOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, oc.log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	order, err := oc.orders.PlaceOrder(ctx, userID, req)
	if err != nil {
		oc.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Order placed successfully",
		"order":   order,
	})
}

// GetOrderConfirmation lists the authenticated user's orders
func (oc *OrderController) GetOrderConfirmation(w http.ResponseWriter, r *http.Request) {
	userID, ok := oc.userID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	orders, err := oc.orders.GetOrderConfirmation(ctx, userID)
	if err != nil {
		oc.writeError(w, r, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"orders": orders})
}

func (oc *OrderController) userID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Authorization token missing")
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		writeMessage(w, http.StatusUnauthorized, "Invalid token")
		return primitive.NilObjectID, false
	}
	return id, true
}

// A valid token whose user no longer exists is an authentication failure.
func (oc *OrderController) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, services.ErrUserNotFound) {
		writeMessage(w, http.StatusUnauthorized, "User not found")
		return
	}
	writeServiceError(w, r, oc.log, err)
}
