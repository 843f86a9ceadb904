// Package cart holds the client-side cart: products picked for checkout,
// kept in memory until they are submitted as an order.
package cart

import (
	"sync"

	"github.com/shopspring/decimal"

	"go-storefront/dto"
	"go-storefront/models"
)

// Line is one product in the cart. Quantity is always at least 1.
type Line struct {
	Product  models.Product
	Quantity int
}

// Subtotal is the product price multiplied by the quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is safe for concurrent use. Lines keep the order they were added in.
type Cart struct {
	mu    sync.Mutex
	lines []Line
}

func New() *Cart {
	return &Cart{}
}

// Add puts product in the cart with quantity 1, or increments its line.
func (c *Cart) Add(product models.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.index(product.ID.Hex()); i >= 0 {
		c.lines[i].Quantity++
		return
	}
	c.lines = append(c.lines, Line{Product: product, Quantity: 1})
}

// Increment raises the quantity of the line for id. It reports false when
// the product is not in the cart.
func (c *Cart) Increment(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.index(id)
	if i < 0 {
		return false
	}
	c.lines[i].Quantity++
	return true
}

// Decrement lowers the quantity of the line for id, removing the line
// instead of letting the quantity reach 0.
func (c *Cart) Decrement(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.index(id)
	if i < 0 {
		return false
	}
	if c.lines[i].Quantity <= 1 {
		c.remove(i)
		return true
	}
	c.lines[i].Quantity--
	return true
}

func (c *Cart) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.index(id)
	if i < 0 {
		return false
	}
	c.remove(i)
	return true
}

func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
}

// Lines returns a copy of the cart contents.
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}

// TotalItems is the sum of all line quantities.
func (c *Cart) TotalItems() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// TotalPrice is the sum of all line subtotals.
func (c *Cart) TotalPrice() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// OrderLines converts the cart into a placeOrder request body.
func (c *Cart) OrderLines() dto.PlaceOrderRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	req := dto.PlaceOrderRequest{Products: make([]dto.OrderLineRequest, 0, len(c.lines))}
	for _, l := range c.lines {
		req.Products = append(req.Products, dto.OrderLineRequest{ProductID: l.Product.ID.Hex(), Quantity: l.Quantity})
	}
	return req
}

func (c *Cart) index(id string) int {
	for i, l := range c.lines {
		if l.Product.ID.Hex() == id {
			return i
		}
	}
	return -1
}

func (c *Cart) remove(i int) {
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
}
