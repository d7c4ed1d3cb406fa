package order

import "time"

// OrderPlacedEvent is emitted after a purchase was fully recorded.
type OrderPlacedEvent struct {
	OrderID    string
	BuyerID    string
	ShopIDs    []string
	Total      int64
	OccurredAt time.Time
}

func (OrderPlacedEvent) EventName() string { return "order.placed" }

func NewOrderPlacedEvent(o *Order) OrderPlacedEvent {
	shopIDs := make([]string, 0, len(o.Baskets))
	for _, b := range o.Baskets {
		shopIDs = append(shopIDs, b.ShopID)
	}
	return OrderPlacedEvent{
		OrderID:    o.ID,
		BuyerID:    o.BuyerID,
		ShopIDs:    shopIDs,
		Total:      o.Total,
		OccurredAt: time.Now().UTC(),
	}
}

// OrderUnrecordedEvent is emitted when payment and shipping committed but the
// order could not be durably recorded. Stock was legitimately consumed, so the
// only remedy is manual reconciliation against the gateway transaction ids.
type OrderUnrecordedEvent struct {
	OrderID      string
	BuyerID      string
	Total        int64
	PaymentTxID  string
	ShippingTxID string
	Reason       string
	OccurredAt   time.Time
}

func (OrderUnrecordedEvent) EventName() string { return "order.unrecorded" }

func NewOrderUnrecordedEvent(o *Order, reason string) OrderUnrecordedEvent {
	return OrderUnrecordedEvent{
		OrderID:      o.ID,
		BuyerID:      o.BuyerID,
		Total:        o.Total,
		PaymentTxID:  o.PaymentTxID,
		ShippingTxID: o.ShippingTxID,
		Reason:       reason,
		OccurredAt:   time.Now().UTC(),
	}
}
