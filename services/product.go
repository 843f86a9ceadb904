package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-storefront/cache"
	"go-storefront/dto"
	"go-storefront/models"
	"go-storefront/repository"
)

type ProductService struct {
	products repository.ProductRepository
	cache    cache.ProductCache
	validate *validator.Validate
	log      *slog.Logger
}

func NewProductService(products repository.ProductRepository, productCache cache.ProductCache, log *slog.Logger) *ProductService {
	if productCache == nil {
		productCache = cache.Noop{}
	}
	return &ProductService{products: products, cache: productCache, validate: NewValidator(), log: log}
}

// List serves the catalog from cache when possible. The cache version is read
// before the database so a fill racing a write is discarded.
func (s *ProductService) List(ctx context.Context) ([]models.Product, error) {
	if products, ok := s.cache.GetList(ctx); ok {
		return products, nil
	}
	version := s.cache.Version(ctx)
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	s.cache.SetList(ctx, products, version)
	return products, nil
}

func (s *ProductService) Get(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	if product, ok := s.cache.Get(ctx, id.Hex()); ok {
		return product, nil
	}
	version := s.cache.Version(ctx)
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	s.cache.Set(ctx, product, version)
	return product, nil
}

// Search returns products whose name contains name, ignoring case.
func (s *ProductService) Search(ctx context.Context, name string) ([]models.Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Fields: map[string]string{"name": "is required"}}
	}
	products, err := s.products.SearchByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	return products, nil
}

// Add creates a product owned by owner.
func (s *ProductService) Add(ctx context.Context, owner primitive.ObjectID, req dto.ProductRequest) (*models.Product, error) {
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}
	product := &models.Product{
		ItemCode:    strings.TrimSpace(req.ItemCode),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Picture:     strings.TrimSpace(req.Picture),
		Price:       req.Price,
		User:        owner,
	}
	if err := s.products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.cache.Invalidate(ctx, "")
	return product, nil
}

func (s *ProductService) Update(ctx context.Context, id primitive.ObjectID, req dto.ProductRequest) (*models.Product, error) {
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}
	product, err := s.products.Update(ctx, id, repository.ProductFields{
		ItemCode:    strings.TrimSpace(req.ItemCode),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Picture:     strings.TrimSpace(req.Picture),
		Price:       req.Price,
	})
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	s.cache.Invalidate(ctx, id.Hex())
	return product, nil
}

func (s *ProductService) Delete(ctx context.Context, id primitive.ObjectID) error {
	deleted, err := s.products.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if !deleted {
		return ErrProductNotFound
	}
	s.cache.Invalidate(ctx, id.Hex())
	return nil
}
