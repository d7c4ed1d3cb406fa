package catalog

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrNotFound     = errors.New("catalog: product not found")
	ErrShopNotFound = errors.New("catalog: shop not found")
	ErrInvalidPrice = errors.New("catalog: price must be zero or greater")
	ErrInvalidStock = errors.New("catalog: stock must be zero or greater")
)

type Shop struct {
	ID   string
	Name string
}

// StockCounter is an atomically updatable, non-negative product quantity.
// The mutex is scoped to a single product: reservations for different products
// never contend, and two shoppers racing for the last unit of the same product
// resolve with exactly one winner.
type StockCounter struct {
	mu  sync.Mutex
	qty int
}

func NewStockCounter(qty int) (*StockCounter, error) {
	if qty < 0 {
		return nil, ErrInvalidStock
	}
	return &StockCounter{qty: qty}, nil
}

// TryReserve atomically checks and decrements the quantity. "Out of stock" is an
// expected outcome, so failure is a boolean, not an error. The lock is held only
// for the check-and-decrement, never across basket- or cart-level logic.
func (c *StockCounter) TryReserve(amount int) bool {
	if amount <= 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.qty < amount {
		return false
	}
	c.qty -= amount
	return true
}

// Release atomically returns a previously reserved amount. It never fails; it is
// only valid as the undo of a prior successful TryReserve of the same amount.
func (c *StockCounter) Release(amount int) {
	if amount <= 0 {
		return
	}
	c.mu.Lock()
	c.qty += amount
	c.mu.Unlock()
}

func (c *StockCounter) Quantity() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.qty
}

// Product belongs to exactly one shop. Its quantity is mutated only through the
// stock counter's reserve/release operations; its price may be changed by shop
// management at any time, which is why purchase flows freeze prices at
// reservation time instead of reading them again later.
type Product struct {
	ID     string
	ShopID string
	Name   string

	mu        sync.RWMutex
	price     int64
	stock     *StockCounter
	UpdatedAt time.Time
}

func NewProduct(id, shopID, name string, price int64, quantity int) (*Product, error) {
	if price < 0 {
		return nil, ErrInvalidPrice
	}
	stock, err := NewStockCounter(quantity)
	if err != nil {
		return nil, err
	}
	return &Product{
		ID:        id,
		ShopID:    shopID,
		Name:      name,
		price:     price,
		stock:     stock,
		UpdatedAt: time.Now().UTC(),
	}, nil
}

func (p *Product) Price() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.price
}

func (p *Product) SetPrice(price int64) error {
	if price < 0 {
		return ErrInvalidPrice
	}
	p.mu.Lock()
	p.price = price
	p.UpdatedAt = time.Now().UTC()
	p.mu.Unlock()
	return nil
}

func (p *Product) Stock() *StockCounter {
	return p.stock
}
