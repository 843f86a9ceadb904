package controllers

import (
	"context"
	"log/slog"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-storefront/dto"
	"go-storefront/middleware"
	"go-storefront/models"
)

// ProductService is the part of services.ProductService the controller needs.
type ProductService interface {
	List(ctx context.Context) ([]models.Product, error)
	Get(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	Search(ctx context.Context, name string) ([]models.Product, error)
	Add(ctx context.Context, owner primitive.ObjectID, req dto.ProductRequest) (*models.Product, error)
	Update(ctx context.Context, id primitive.ObjectID, req dto.ProductRequest) (*models.Product, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// ProductController handles product-related requests
type ProductController struct {
	products ProductService
	log      *slog.Logger
}

func NewProductController(products ProductService, log *slog.Logger) *ProductController {
	return &ProductController{products: products, log: log}
}

// GetProducts retrieves all products
func (pc *ProductController) GetProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	products, err := pc.products.List(ctx)
	if err != nil {
		writeServiceError(w, r, pc.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"products": nonNil(products)})
}

// GetProduct retrieves a single product
func (pc *ProductController) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathObjectID(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid product id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	product, err := pc.products.Get(ctx, id)
	if err != nil {
		writeServiceError(w, r, pc.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"product": product})
}

// SearchProducts matches ?name= against product names
func (pc *ProductController) SearchProducts(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeMessage(w, http.StatusBadRequest, "Query parameter name is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	products, err := pc.products.Search(ctx, name)
	if err != nil {
		writeServiceError(w, r, pc.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"products": nonNil(products)})
}

// AddProduct handles adding a new product (Admin only)
func (pc *ProductController) AddProduct(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Authorization token missing")
		return
	}
	owner, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		writeMessage(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	var req dto.ProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, pc.log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	product, err := pc.products.Add(ctx, owner, req)
	if err != nil {
		writeServiceError(w, r, pc.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Product added successfully",
		"product": product,
	})
}

// UpdateProduct replaces the editable fields of a product (Admin only)
func (pc *ProductController) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathObjectID(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid product id")
		return
	}
	var req dto.ProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, pc.log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	product, err := pc.products.Update(ctx, id, req)
	if err != nil {
		writeServiceError(w, r, pc.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Product updated successfully",
		"product": product,
	})
}

// DeleteProduct removes a product (Admin only)
func (pc *ProductController) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathObjectID(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid product id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	if err := pc.products.Delete(ctx, id); err != nil {
		writeServiceError(w, r, pc.log, err)
		return
	}
	writeMessage(w, http.StatusOK, "Product deleted successfully")
}

func nonNil(products []models.Product) []models.Product {
	if products == nil {
		return []models.Product{}
	}
	return products
}
