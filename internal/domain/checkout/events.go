package checkout

import "time"

// StockReleasedEvent is emitted after cart-level compensation restocked every
// reserved basket of a failed purchase attempt.
type StockReleasedEvent struct {
	CartID     string
	ShopIDs    []string
	Stage      string
	OccurredAt time.Time
}

func (StockReleasedEvent) EventName() string { return "checkout.stock_released" }

func NewStockReleasedEvent(cartID string, shopIDs []string, stage string) StockReleasedEvent {
	return StockReleasedEvent{
		CartID:     cartID,
		ShopIDs:    shopIDs,
		Stage:      stage,
		OccurredAt: time.Now().UTC(),
	}
}
