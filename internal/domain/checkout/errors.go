package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyBasket         = errors.New("checkout: basket has no lines")
	ErrPaymentUnavailable  = errors.New("checkout: payment gateway unavailable")
	ErrPaymentFailed       = errors.New("checkout: payment failed")
	ErrShippingUnavailable = errors.New("checkout: shipping gateway unavailable")
	ErrShippingFailed      = errors.New("checkout: shipping failed")
)

// OutOfStockError reports the first basket line whose reservation failed. Out
// of stock is terminal for the attempt; the whole purchase may be retried from
// the fully restocked state it leaves behind.
type OutOfStockError struct {
	ProductID string
	Requested int
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("checkout: product %s out of stock (requested %d)", e.ProductID, e.Requested)
}

// UnrecordedError is the severe succeeded-but-unrecorded condition: payment and
// shipping committed, stock was legitimately consumed, but the order could not
// be durably recorded. It must never trigger a compensating release; the
// transaction ids are surfaced for manual reconciliation.
type UnrecordedError struct {
	OrderID      string
	PaymentTxID  string
	ShippingTxID string
	Cause        error
}

func (e *UnrecordedError) Error() string {
	return fmt.Sprintf("checkout: purchase succeeded but order %s was not recorded: %v", e.OrderID, e.Cause)
}

func (e *UnrecordedError) Unwrap() error { return e.Cause }
