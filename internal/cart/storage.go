package cart

import (
	"context"
	"sync"

	"github.com/modacart/modacart-backend/internal/discounts"
	"github.com/modacart/modacart-backend/internal/shipping"
)

// Snapshot is the persisted shape of a cart session: the four logical state
// parts the durable store round-trips. A fresh session is the zero value
// plus the default shipping selection.
type Snapshot struct {
	Items    []Item             `json:"items"`
	Saved    []Item             `json:"saved"`
	Shipping shipping.Info      `json:"shipping"`
	Discount *discounts.Applied `json:"discount,omitempty"`
}

// Storage persists cart snapshots per session. Implementations must treat a
// never-seen session as an empty snapshot, not an error.
type Storage interface {
	Load(ctx context.Context, sessionID string) (Snapshot, error)
	Save(ctx context.Context, sessionID string, snap Snapshot) error
}

// MemoryStorage keeps snapshots in process memory. It backs tests and local
// development without a Redis instance.
type MemoryStorage struct {
	mu    sync.Mutex
	state map[string]Snapshot
}

// NewMemoryStorage builds an empty in-memory snapshot store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{state: map[string]Snapshot{}}
}

// Load returns the stored snapshot, or an empty one with default shipping
// for sessions never saved.
func (m *MemoryStorage) Load(ctx context.Context, sessionID string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.state[sessionID]
	if !ok {
		return Snapshot{Shipping: shipping.Default()}, nil
	}
	return copySnapshot(snap), nil
}

// Save stores a deep copy of the snapshot.
func (m *MemoryStorage) Save(ctx context.Context, sessionID string, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state[sessionID] = copySnapshot(snap)
	return nil
}

func copySnapshot(snap Snapshot) Snapshot {
	out := Snapshot{Shipping: snap.Shipping}
	out.Items = append([]Item(nil), snap.Items...)
	out.Saved = append([]Item(nil), snap.Saved...)
	if snap.Discount != nil {
		d := *snap.Discount
		out.Discount = &d
	}
	return out
}
