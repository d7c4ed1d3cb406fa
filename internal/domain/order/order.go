package order

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("order: not found")
	ErrConflict = errors.New("order: already exists")
)

// LineSnapshot freezes one purchased line. UnitPrice is the price captured at
// reservation time; later catalog price changes never alter recorded orders.
type LineSnapshot struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

// BasketSnapshot freezes one purchased basket for a single shop.
type BasketSnapshot struct {
	BasketID string         `json:"basket_id"`
	ShopID   string         `json:"shop_id"`
	Lines    []LineSnapshot `json:"lines"`
	Amount   int64          `json:"amount"`
}

// Order is the buyer-side record of a successful multi-basket purchase. It is
// created once, after payment and shipping committed, and never mutated.
type Order struct {
	ID           string
	BuyerID      string
	Baskets      []BasketSnapshot
	Total        int64
	PaymentTxID  string
	ShippingTxID string
	CreatedAt    time.Time
}

func New(id, buyerID string, baskets []BasketSnapshot, paymentTxID, shippingTxID string) *Order {
	var total int64
	for _, b := range baskets {
		total += b.Amount
	}
	return &Order{
		ID:           id,
		BuyerID:      buyerID,
		Baskets:      baskets,
		Total:        total,
		PaymentTxID:  paymentTxID,
		ShippingTxID: shippingTxID,
		CreatedAt:    time.Now().UTC(),
	}
}

// ShopOrder is the seller-side record for one basket of a purchase, appended to
// the selling shop's order history.
type ShopOrder struct {
	ID        string
	OrderID   string
	ShopID    string
	BuyerID   string
	Lines     []LineSnapshot
	Amount    int64
	CreatedAt time.Time
}

func NewShopOrder(id string, o *Order, snap BasketSnapshot) *ShopOrder {
	return &ShopOrder{
		ID:        id,
		OrderID:   o.ID,
		ShopID:    snap.ShopID,
		BuyerID:   o.BuyerID,
		Lines:     snap.Lines,
		Amount:    snap.Amount,
		CreatedAt: o.CreatedAt,
	}
}
