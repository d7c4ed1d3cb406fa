package gateway

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/grovemarket/marketplace-checkout/internal/domain/shipping"
)

var ErrShipmentRefused = errors.New("gateway: shipment refused")

const defaultShippingSuccess = 0.98

// SimulatedShipping stands in for the external shipping provider, mirroring the
// payment simulator's handshake-then-act shape.
type SimulatedShipping struct {
	mu          sync.Mutex
	random      *rand.Rand
	successRate float64
	available   bool
}

func NewSimulatedShipping() *SimulatedShipping {
	return &SimulatedShipping{
		random:      rand.New(rand.NewSource(time.Now().UnixNano())),
		successRate: defaultShippingSuccess,
		available:   true,
	}
}

func (g *SimulatedShipping) Handshake(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.available
}

func (g *SimulatedShipping) Ship(ctx context.Context, info shipping.Info) (string, error) {
	_ = info
	if err := ctx.Err(); err != nil {
		return shipping.NoTransaction, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.random.Float64() > g.successRate {
		return shipping.NoTransaction, ErrShipmentRefused
	}
	return uuid.NewString(), nil
}

func (g *SimulatedShipping) SetSuccessRate(rate float64) {
	g.mu.Lock()
	g.successRate = clamp(rate)
	g.mu.Unlock()
}

func (g *SimulatedShipping) SetAvailable(available bool) {
	g.mu.Lock()
	g.available = available
	g.mu.Unlock()
}
