package dispatch

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/spigell/outreach/internal/outreach"
)

// DefaultSuccessRate is the delivery probability of the simulated transport.
const DefaultSuccessRate = 0.92

// Transport delivers envelopes. Send must wrap credential rejections with
// outreach.ErrAuth and every other failure with outreach.ErrTransport.
type Transport interface {
	Send(ctx context.Context, env Envelope) error
	Close() error
	Simulated() bool
}

var errSimulatedFailure = errors.New("simulated delivery failure")

// SimulatedTransport pretends to deliver messages, succeeding with a fixed
// probability drawn from a seeded generator.
type SimulatedTransport struct {
	mu          sync.Mutex
	rng         *rand.Rand
	successRate float64
}

// NewSimulatedTransport returns a simulated transport. A successRate outside
// (0,1] falls back to DefaultSuccessRate.
func NewSimulatedTransport(seed uint64, successRate float64) *SimulatedTransport {
	if successRate <= 0 || successRate > 1 {
		successRate = DefaultSuccessRate
	}
	return &SimulatedTransport{
		rng:         rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		successRate: successRate,
	}
}

func (t *SimulatedTransport) Send(ctx context.Context, _ Envelope) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", outreach.ErrTransport, err)
	}

	t.mu.Lock()
	roll := t.rng.Float64()
	t.mu.Unlock()

	if roll < t.successRate {
		return nil
	}
	return fmt.Errorf("%w: %w", outreach.ErrTransport, errSimulatedFailure)
}

func (t *SimulatedTransport) Close() error { return nil }

func (t *SimulatedTransport) Simulated() bool { return true }
