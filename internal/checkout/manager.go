package checkout

import (
	"context"
	"fmt"
	"sync"

	"github.com/modacart/modacart-backend/internal/cart"
	"github.com/modacart/modacart-backend/pkg/enums"
	"github.com/modacart/modacart-backend/pkg/logger"
	"github.com/modacart/modacart-backend/pkg/metrics"
)

// Manager hands out one checkout workflow per cart session. Abandoned
// workflows are simply discarded with the session; nothing external holds
// state until the order is submitted.
type Manager struct {
	mu        sync.Mutex
	sessions  map[string]*Orchestrator
	carts     *cart.Manager
	submitter Submitter
	met       *metrics.CartMetrics
	logg      *logger.Logger
}

// NewManager builds the checkout session manager.
func NewManager(carts *cart.Manager, submitter Submitter, met *metrics.CartMetrics, logg *logger.Logger) (*Manager, error) {
	if carts == nil {
		return nil, fmt.Errorf("checkout: cart manager is required")
	}
	if submitter == nil {
		return nil, fmt.Errorf("checkout: submitter is required")
	}
	return &Manager{
		sessions:  make(map[string]*Orchestrator),
		carts:     carts,
		submitter: submitter,
		met:       met,
		logg:      logg,
	}, nil
}

// Get returns the session's workflow, starting one at the address step if
// none exists yet. A workflow that already placed its order is retired here,
// so the same session can check out again with a fresh workflow.
func (m *Manager) Get(ctx context.Context, sessionID string) (*Orchestrator, error) {
	store, err := m.carts.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.sessions[sessionID]; ok {
		if existing.Step() != enums.CheckoutStepPlaced {
			return existing, nil
		}
		delete(m.sessions, sessionID)
	}
	orchestrator, err := NewOrchestrator(store, m.submitter, m.met, m.logg)
	if err != nil {
		return nil, err
	}
	m.sessions[sessionID] = orchestrator
	return orchestrator, nil
}
