package cart

import (
	"context"
	"errors"
	"fmt"

	dombasket "github.com/grovemarket/marketplace-checkout/internal/domain/basket"
	domcart "github.com/grovemarket/marketplace-checkout/internal/domain/cart"
	domcatalog "github.com/grovemarket/marketplace-checkout/internal/domain/catalog"
	"github.com/grovemarket/marketplace-checkout/internal/observability"
	"github.com/grovemarket/marketplace-checkout/internal/observability/logctx"
)

var ErrShopMismatch = errors.New("cart: product does not belong to shop")

type IDGenerator interface {
	NewID() string
}

// Service manages cart contents outside of checkout: lazy basket creation on
// first add, basket destruction on last remove, and guest-to-user cart merge.
type Service struct {
	carts    domcart.Repository
	products domcatalog.Repository
	ids      IDGenerator
	log      observability.Logger
}

func NewService(carts domcart.Repository, products domcatalog.Repository, ids IDGenerator, logger observability.Logger) *Service {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Service{
		carts:    carts,
		products: products,
		ids:      ids,
		log:      logger.With(observability.F("component", "cart_service")),
	}
}

// Create opens an empty cart for the given principal (user or guest session).
func (s *Service) Create(ctx context.Context, ownerID string) (*domcart.Cart, error) {
	c, err := domcart.New(s.ids.NewID(), ownerID)
	if err != nil {
		return nil, err
	}
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("cart: save: %w", err)
	}
	logctx.FromOr(ctx, s.log).Info("cart_created",
		observability.F("cart_id", c.ID),
		observability.F("owner_id", ownerID),
	)
	return c, nil
}

// AddItem appends a line to the shop's basket, creating the basket on first
// use. The product must belong to the given shop.
func (s *Service) AddItem(ctx context.Context, cartID, shopID, productID string, quantity int) error {
	c, err := s.carts.Find(ctx, cartID)
	if err != nil {
		return err
	}

	p, err := s.products.Product(ctx, productID)
	if err != nil {
		return err
	}
	if p.ShopID != shopID {
		return ErrShopMismatch
	}

	b, ok := c.Basket(shopID)
	if !ok {
		b = dombasket.New(s.ids.NewID(), shopID)
		if err := c.Attach(b); err != nil {
			return err
		}
	}
	if err := b.Add(productID, quantity); err != nil {
		return err
	}
	return s.carts.Save(ctx, c)
}

// RemoveItem drops all lines for the product; the basket is destroyed when its
// last line goes.
func (s *Service) RemoveItem(ctx context.Context, cartID, shopID, productID string) error {
	c, err := s.carts.Find(ctx, cartID)
	if err != nil {
		return err
	}
	b, ok := c.Basket(shopID)
	if !ok {
		return domcart.ErrBasketNotFound
	}
	empty, err := b.Remove(productID)
	if err != nil {
		return err
	}
	if empty {
		c.Detach(shopID)
	}
	return s.carts.Save(ctx, c)
}

// Merge folds a guest cart into the user's cart on login and deletes the guest
// cart. Baskets for shops already present in the target accumulate line by
// line; others move over whole.
func (s *Service) Merge(ctx context.Context, guestCartID, userCartID string) error {
	guest, err := s.carts.Find(ctx, guestCartID)
	if err != nil {
		return err
	}
	target, err := s.carts.Find(ctx, userCartID)
	if err != nil {
		return err
	}

	for _, gb := range guest.Baskets() {
		tb, ok := target.Basket(gb.ShopID)
		if !ok {
			if err := target.Attach(gb); err != nil {
				return err
			}
			continue
		}
		for _, ln := range gb.Lines() {
			if err := tb.Add(ln.ProductID, ln.Quantity); err != nil {
				return err
			}
		}
	}

	if err := s.carts.Save(ctx, target); err != nil {
		return err
	}
	if err := s.carts.Delete(ctx, guestCartID); err != nil {
		return err
	}
	logctx.FromOr(ctx, s.log).Info("cart_merged",
		observability.F("guest_cart_id", guestCartID),
		observability.F("user_cart_id", userCartID),
	)
	return nil
}

// Reparent transfers a cart to a new owner without merging, used when the
// logged-in user had no cart of their own.
func (s *Service) Reparent(ctx context.Context, cartID, newOwnerID string) error {
	c, err := s.carts.Find(ctx, cartID)
	if err != nil {
		return err
	}
	if err := c.Reparent(newOwnerID); err != nil {
		return err
	}
	return s.carts.Save(ctx, c)
}

func (s *Service) Get(ctx context.Context, cartID string) (*domcart.Cart, error) {
	if cartID == "" {
		return nil, errors.New("cart: id is required")
	}
	return s.carts.Find(ctx, cartID)
}
