package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/modacart/modacart-backend/internal/discounts"
	"github.com/modacart/modacart-backend/internal/pricing"
	"github.com/modacart/modacart-backend/internal/shipping"
	"github.com/modacart/modacart-backend/pkg/db/models"
	"github.com/modacart/modacart-backend/pkg/enums"
	pkgerrors "github.com/modacart/modacart-backend/pkg/errors"
	"github.com/modacart/modacart-backend/pkg/logger"
)

type codeValidator interface {
	Validate(ctx context.Context, code string) (discounts.Applied, error)
}

// Store owns one shopping session's cart state: the active lines, the
// saved-for-later lines, the shipping selection, and the applied discount.
// Every mutation syncs a snapshot to storage afterwards; the in-memory state
// stays authoritative for the session even when a sync fails.
type Store struct {
	mu        sync.Mutex
	sessionID string
	items     []Item
	saved     []Item
	shipping  shipping.Info
	discount  *discounts.Applied
	storage   Storage
	catalog   codeValidator
	logg      *logger.Logger
	now       func() time.Time
}

// NewStore builds a cart store for the session, restoring prior state from
// the provided snapshot.
func NewStore(sessionID string, snap Snapshot, storage Storage, catalog codeValidator, logg *logger.Logger) (*Store, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id required")
	}
	if storage == nil {
		return nil, fmt.Errorf("storage required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("discount catalog required")
	}
	ship := snap.Shipping
	if !ship.Method.IsValid() {
		ship = shipping.Default()
	}
	return &Store{
		sessionID: sessionID,
		items:     append([]Item(nil), snap.Items...),
		saved:     append([]Item(nil), snap.Saved...),
		shipping:  ship,
		discount:  snap.Discount,
		storage:   storage,
		catalog:   catalog,
		logg:      logg,
		now:       time.Now,
	}, nil
}

// SessionID returns the session this store belongs to.
func (s *Store) SessionID() string {
	return s.sessionID
}

// AddItem inserts a line for the product/size/color combination, locking the
// product's effective price. Adding the same combination again increments
// the existing line's quantity instead of inserting a duplicate.
func (s *Store) AddItem(ctx context.Context, product *models.Product, quantity int, size, color string) (Item, error) {
	if product == nil {
		return Item{}, pkgerrors.New(pkgerrors.CodeValidation, "product is required")
	}
	if quantity <= 0 {
		return Item{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := ItemKey(product.ID, size, color)
	if idx := indexOf(s.items, key); idx >= 0 {
		s.items[idx].Quantity += quantity
		s.persist(ctx)
		return s.items[idx], nil
	}

	item := Item{
		ID:            key,
		ProductID:     product.ID,
		Title:         product.Title,
		FeaturedImage: product.FeaturedImage,
		Quantity:      quantity,
		Size:          size,
		Color:         color,
		Price:         product.EffectivePrice(),
		AddedAt:       s.now(),
	}
	s.items = append(s.items, item)
	s.persist(ctx)
	return item, nil
}

// RemoveItem deletes the line. Removing an absent line is a no-op.
func (s *Store) RemoveItem(ctx context.Context, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.items, itemID)
	if idx < 0 {
		return nil
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	s.persist(ctx)
	return nil
}

// UpdateQuantity sets a line's quantity in place. A quantity of zero or
// below removes the line; the locked price is never touched.
func (s *Store) UpdateQuantity(ctx context.Context, itemID string, quantity int) error {
	if quantity <= 0 {
		return s.RemoveItem(ctx, itemID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.items, itemID)
	if idx < 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	s.items[idx].Quantity = quantity
	s.persist(ctx)
	return nil
}

// UpdateItemOptions re-keys a line for a new size/color. When another line
// already holds the target key the quantities merge into it and the original
// line disappears; the merge is deliberate, not an error.
func (s *Store) UpdateItemOptions(ctx context.Context, itemID, size, color string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.items, itemID)
	if idx < 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}

	newKey := ItemKey(s.items[idx].ProductID, size, color)
	if newKey == itemID {
		return nil
	}

	if target := indexOf(s.items, newKey); target >= 0 {
		s.items[target].Quantity += s.items[idx].Quantity
		s.items = append(s.items[:idx], s.items[idx+1:]...)
	} else {
		s.items[idx].ID = newKey
		s.items[idx].Size = size
		s.items[idx].Color = color
	}
	s.persist(ctx)
	return nil
}

// Clear empties the active lines and resets the discount. Saved-for-later
// lines survive.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	s.discount = nil
	s.persist(ctx)
}

// SaveForLater moves an active line to the saved list, preserving its full
// state including the locked price.
func (s *Store) SaveForLater(ctx context.Context, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.items, itemID)
	if idx < 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}

	item := s.items[idx]
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	s.saved = mergeInto(s.saved, item)
	s.persist(ctx)
	return nil
}

// MoveToCart moves a saved line back to the active list.
func (s *Store) MoveToCart(ctx context.Context, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.saved, itemID)
	if idx < 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "saved item not found")
	}

	item := s.saved[idx]
	s.saved = append(s.saved[:idx], s.saved[idx+1:]...)
	s.items = mergeInto(s.items, item)
	s.persist(ctx)
	return nil
}

// ApplyDiscount validates the code against the catalog and, on success,
// replaces the cart's discount state. A rejected code leaves the cart
// untouched.
func (s *Store) ApplyDiscount(ctx context.Context, code string) (discounts.Applied, error) {
	applied, err := s.catalog.Validate(ctx, code)
	if err != nil {
		return discounts.Applied{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.discount = &applied
	s.persist(ctx)
	return applied, nil
}

// RemoveDiscount clears the discount state.
func (s *Store) RemoveDiscount(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discount = nil
	s.persist(ctx)
}

// SetShippingMethod switches the session to the fixed cost/label pair of
// the given method.
func (s *Store) SetShippingMethod(ctx context.Context, method enums.ShippingMethod) error {
	info, err := shipping.Quote(method)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.shipping = info
	s.persist(ctx)
	return nil
}

// Items returns a copy of the active lines.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Item(nil), s.items...)
}

// SavedItems returns a copy of the saved-for-later lines.
func (s *Store) SavedItems() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Item(nil), s.saved...)
}

// Shipping returns the current shipping selection.
func (s *Store) Shipping() shipping.Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shipping
}

// Discount returns the applied discount, or nil when none is active.
func (s *Store) Discount() *discounts.Applied {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.discount == nil {
		return nil
	}
	d := *s.discount
	return &d
}

// Summary derives the pricing breakdown from the current state. It is
// recomputed on every call; nothing is cached.
func (s *Store) Summary() pricing.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := make([]pricing.Line, len(s.items))
	for i, item := range s.items {
		lines[i] = pricing.Line{Price: item.Price, Quantity: item.Quantity}
	}
	pct := 0
	if s.discount != nil {
		pct = s.discount.Percentage
	}
	return pricing.Compute(lines, pct, s.shipping.Cost)
}

// persist syncs a snapshot to storage. Failures are logged and swallowed:
// the in-memory state is the source of truth for the session, and the next
// mutation will retry the write.
func (s *Store) persist(ctx context.Context) {
	snap := Snapshot{
		Items:    append([]Item(nil), s.items...),
		Saved:    append([]Item(nil), s.saved...),
		Shipping: s.shipping,
	}
	if s.discount != nil {
		d := *s.discount
		snap.Discount = &d
	}
	if err := s.storage.Save(ctx, s.sessionID, snap); err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithCartSession(ctx, s.sessionID), "cart.persist_failed", err)
	}
}

func indexOf(items []Item, id string) int {
	for i, item := range items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

// mergeInto appends the item to the list, or merges its quantity into an
// existing line with the same composite key so no key is ever duplicated.
func mergeInto(items []Item, item Item) []Item {
	if idx := indexOf(items, item.ID); idx >= 0 {
		items[idx].Quantity += item.Quantity
		return items
	}
	return append(items, item)
}
