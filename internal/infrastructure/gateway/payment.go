package gateway

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/grovemarket/marketplace-checkout/internal/domain/payment"
)

var ErrPaymentDeclined = errors.New("gateway: payment declined")

const defaultPaymentSuccess = 0.95

// SimulatedPayment stands in for the external payment provider. Handshake
// reports availability; Pay either returns a fresh transaction id or declines
// according to the configured success rate.
type SimulatedPayment struct {
	mu          sync.Mutex
	random      *rand.Rand
	successRate float64
	available   bool
}

func NewSimulatedPayment() *SimulatedPayment {
	return &SimulatedPayment{
		random:      rand.New(rand.NewSource(time.Now().UnixNano())),
		successRate: defaultPaymentSuccess,
		available:   true,
	}
}

func (g *SimulatedPayment) Handshake(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.available
}

func (g *SimulatedPayment) Pay(ctx context.Context, info payment.Info, amount int64) (string, error) {
	_ = info
	_ = amount
	if err := ctx.Err(); err != nil {
		return payment.NoTransaction, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.random.Float64() > g.successRate {
		return payment.NoTransaction, ErrPaymentDeclined
	}
	return uuid.NewString(), nil
}

// SetSuccessRate adjusts the simulated decline rate (primarily for tests).
func (g *SimulatedPayment) SetSuccessRate(rate float64) {
	g.mu.Lock()
	g.successRate = clamp(rate)
	g.mu.Unlock()
}

// SetAvailable toggles the handshake outcome (primarily for tests).
func (g *SimulatedPayment) SetAvailable(available bool) {
	g.mu.Lock()
	g.available = available
	g.mu.Unlock()
}

func clamp(rate float64) float64 {
	if rate < 0 {
		return 0
	}
	if rate > 1 {
		return 1
	}
	return rate
}
