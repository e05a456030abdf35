package cart

import (
	"context"
	"fmt"
	"sync"

	pkgerrors "github.com/modacart/modacart-backend/pkg/errors"
	"github.com/modacart/modacart-backend/pkg/logger"
)

// Manager hands out one Store per cart session, restoring state from
// storage the first time a session is seen in this process. There is one
// logical writer per session; across processes the storage layer is
// last-write-wins.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Store
	storage  Storage
	catalog  codeValidator
	logg     *logger.Logger
}

// NewManager builds a session manager backed by the given storage and
// discount catalog.
func NewManager(storage Storage, catalog codeValidator, logg *logger.Logger) (*Manager, error) {
	if storage == nil {
		return nil, fmt.Errorf("storage required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("discount catalog required")
	}
	return &Manager{
		sessions: map[string]*Store{},
		storage:  storage,
		catalog:  catalog,
		logg:     logg,
	}, nil
}

// Get returns the live store for the session, loading the persisted
// snapshot when the session has not been touched by this process yet.
func (m *Manager) Get(ctx context.Context, sessionID string) (*Store, error) {
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart session id required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if store, ok := m.sessions[sessionID]; ok {
		return store, nil
	}

	snap, err := m.storage.Load(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore cart session")
	}
	store, err := NewStore(sessionID, snap, m.storage, m.catalog, m.logg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build cart store")
	}
	m.sessions[sessionID] = store
	return store, nil
}
