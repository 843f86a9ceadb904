package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-storefront/dto"
	"go-storefront/models"
)

// memoryCache is a map-backed ProductCache that counts invalidations.
type memoryCache struct {
	version       int64
	list          []models.Product
	hasList       bool
	items         map[string]models.Product
	invalidations []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string]models.Product)}
}

func (c *memoryCache) Version(context.Context) int64 { return c.version }

func (c *memoryCache) GetList(context.Context) ([]models.Product, bool) { return c.list, c.hasList }

func (c *memoryCache) SetList(_ context.Context, products []models.Product, version int64) {
	if version != c.version {
		return
	}
	c.list, c.hasList = products, true
}

func (c *memoryCache) Get(_ context.Context, id string) (*models.Product, bool) {
	p, ok := c.items[id]
	if !ok {
		return nil, false
	}
	return &p, true
}

func (c *memoryCache) Set(_ context.Context, p *models.Product, version int64) {
	if version != c.version {
		return
	}
	c.items[p.ID.Hex()] = *p
}

func (c *memoryCache) Invalidate(_ context.Context, id string) {
	c.version++
	c.list, c.hasList = nil, false
	delete(c.items, id)
	c.invalidations = append(c.invalidations, id)
}

func validProduct() dto.ProductRequest {
	return dto.ProductRequest{
		ItemCode: "SKU-1", Name: "Kettle", Description: "1.7l",
		Picture: "https://cdn.example.com/kettle.png", Price: decimal.RequireFromString("349.99"),
	}
}

func TestProductService_ListUsesCache(t *testing.T) {
	repo := newMockProductRepo()
	repo.add(&models.Product{Name: "Kettle"})
	mc := newMemoryCache()
	svc := NewProductService(repo, mc, discardLog)

	first, err := svc.List(context.Background())
	require.NoError(t, err)
	second, err := svc.List(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.lookups, "second list should be served from cache")
}

func TestProductService_ListDuringUpdateNotCachedStale(t *testing.T) {
	repo := newMockProductRepo()
	product := repo.add(&models.Product{Name: "Old", Price: decimal.NewFromInt(10)})
	svc := NewProductService(repo, newMemoryCache(), discardLog)

	update := validProduct()
	update.Name, update.Price = "New", decimal.NewFromInt(99)
	repo.afterList = func() {
		repo.afterList = nil
		_, err := svc.Update(context.Background(), product.ID, update)
		require.NoError(t, err)
	}

	raced, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, raced, 1)
	assert.Equal(t, "Old", raced[0].Name)

	fresh, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, "New", fresh[0].Name)
	assert.True(t, decimal.NewFromInt(99).Equal(fresh[0].Price))
}

func TestProductService_GetDuringDeleteNotCachedStale(t *testing.T) {
	repo := newMockProductRepo()
	product := repo.add(&models.Product{Name: "Kettle"})
	svc := NewProductService(repo, newMemoryCache(), discardLog)

	repo.afterGet = func() {
		repo.afterGet = nil
		require.NoError(t, svc.Delete(context.Background(), product.ID))
	}

	_, err := svc.Get(context.Background(), product.ID)
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), product.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestProductService_NilCacheFallsThrough(t *testing.T) {
	repo := newMockProductRepo()
	repo.add(&models.Product{Name: "Kettle"})
	svc := NewProductService(repo, nil, discardLog)

	for i := 0; i < 2; i++ {
		products, err := svc.List(context.Background())
		require.NoError(t, err)
		assert.Len(t, products, 1)
	}
	assert.Equal(t, 2, repo.lookups)
}

func TestProductService_Get(t *testing.T) {
	repo := newMockProductRepo()
	p := repo.add(&models.Product{Name: "Kettle"})
	mc := newMemoryCache()
	svc := NewProductService(repo, mc, discardLog)

	got, err := svc.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kettle", got.Name)
	assert.Contains(t, mc.items, p.ID.Hex())

	_, err = svc.Get(context.Background(), primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestProductService_Get_RepositoryError(t *testing.T) {
	repo := newMockProductRepo()
	repo.err = errors.New("connection reset")
	svc := NewProductService(repo, nil, discardLog)

	_, err := svc.Get(context.Background(), primitive.NewObjectID())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrProductNotFound)
}

func TestProductService_Search_RequiresName(t *testing.T) {
	svc := NewProductService(newMockProductRepo(), nil, discardLog)

	_, err := svc.Search(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestProductService_Add(t *testing.T) {
	repo := newMockProductRepo()
	mc := newMemoryCache()
	mc.SetList(context.Background(), []models.Product{}, 0)
	svc := NewProductService(repo, mc, discardLog)
	owner := primitive.NewObjectID()

	product, err := svc.Add(context.Background(), owner, validProduct())
	require.NoError(t, err)
	assert.Equal(t, owner, product.User)
	assert.True(t, product.Price.Equal(decimal.RequireFromString("349.99")))
	assert.False(t, mc.hasList, "catalog list must be invalidated")
}

func TestProductService_Add_Validation(t *testing.T) {
	svc := NewProductService(newMockProductRepo(), nil, discardLog)
	req := validProduct()
	req.Price = decimal.Zero
	req.Picture = "not a url"
	req.Name = ""

	_, err := svc.Add(context.Background(), primitive.NewObjectID(), req)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "price")
	assert.Contains(t, verr.Fields, "picture")
	assert.Contains(t, verr.Fields, "name")
}

func TestProductService_Update(t *testing.T) {
	repo := newMockProductRepo()
	p := repo.add(&models.Product{Name: "Kettle", Price: decimal.NewFromInt(100)})
	mc := newMemoryCache()
	svc := NewProductService(repo, mc, discardLog)

	req := validProduct()
	req.Name = "Steel Kettle"
	updated, err := svc.Update(context.Background(), p.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "Steel Kettle", updated.Name)
	assert.Equal(t, []string{p.ID.Hex()}, mc.invalidations)

	_, err = svc.Update(context.Background(), primitive.NewObjectID(), req)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestProductService_Delete(t *testing.T) {
	repo := newMockProductRepo()
	p := repo.add(&models.Product{Name: "Kettle"})
	mc := newMemoryCache()
	svc := NewProductService(repo, mc, discardLog)

	require.NoError(t, svc.Delete(context.Background(), p.ID))
	assert.Empty(t, repo.products)
	assert.Equal(t, []string{p.ID.Hex()}, mc.invalidations)

	assert.ErrorIs(t, svc.Delete(context.Background(), p.ID), ErrProductNotFound)
}
