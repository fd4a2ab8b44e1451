package storage

import (
	"context"
	"sync"

	"github.com/starford/orgboard/internal/models"
)

// MemoryGateway keeps the snapshot in process memory. Nothing survives a
// restart; it backs the "memory" backend and tests.
type MemoryGateway struct {
	mu    sync.RWMutex
	chart *models.Chart
	saves int
}

// NewMemoryGateway creates an empty in-memory gateway.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{}
}

func (g *MemoryGateway) Load(_ context.Context) (models.Chart, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.chart == nil {
		return models.DefaultChart(), nil
	}
	return g.chart.Clone(), nil
}

func (g *MemoryGateway) Save(_ context.Context, c models.Chart) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	cp := c.Clone()
	g.chart = &cp
	g.saves++
	return nil
}

// Saves returns how many times Save succeeded.
func (g *MemoryGateway) Saves() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.saves
}
