package catalog

import (
	"context"
)

// Repository resolves products and shops. Implementations must hand back the
// shared Product instance, not a copy, so that every caller reserves against the
// same stock counter.
type Repository interface {
	Product(ctx context.Context, productID string) (*Product, error)
	Shop(ctx context.Context, shopID string) (*Shop, error)
}
