package payments

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// SimulatedGateway accepts every hold in process. It backs local runs
// without gateway credentials.
type SimulatedGateway struct {
	mu    sync.Mutex
	holds map[string]string // ref -> state
}

// NewSimulatedGateway creates an empty SimulatedGateway.
func NewSimulatedGateway() *SimulatedGateway {
	return &SimulatedGateway{holds: make(map[string]string)}
}

func (g *SimulatedGateway) Hold(_ context.Context, _ int64, _, _ string) (string, error) {
	ref := "sim_" + uuid.New().String()
	g.mu.Lock()
	g.holds[ref] = "held"
	g.mu.Unlock()
	return ref, nil
}

func (g *SimulatedGateway) Capture(_ context.Context, ref string) error {
	g.mu.Lock()
	g.holds[ref] = "captured"
	g.mu.Unlock()
	return nil
}

func (g *SimulatedGateway) Cancel(_ context.Context, ref string) error {
	g.mu.Lock()
	g.holds[ref] = "cancelled"
	g.mu.Unlock()
	return nil
}
