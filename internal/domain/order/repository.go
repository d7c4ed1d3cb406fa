package order

import "context"

// Repository is the persistence collaborator for purchase records. Saving is
// the last step of a purchase; a failure here is fatal for the recording but
// must never trigger a second stock release.
type Repository interface {
	SaveOrder(ctx context.Context, o *Order) error
	SaveShopOrder(ctx context.Context, so *ShopOrder) error
	Order(ctx context.Context, id string) (*Order, error)
	ShopOrders(ctx context.Context, shopID string) ([]*ShopOrder, error)
}
