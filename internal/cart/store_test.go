package cart

import (
	"context"
	"testing"

	"github.com/modacart/modacart-backend/internal/discounts"
	"github.com/modacart/modacart-backend/pkg/db/models"
	"github.com/modacart/modacart-backend/pkg/enums"
	pkgerrors "github.com/modacart/modacart-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func newTestStore(t *testing.T) (*Store, *MemoryStorage) {
	t.Helper()
	storage := NewMemoryStorage()
	store, err := NewStore("sess-test", Snapshot{}, storage, discounts.NewCatalog(0), nil)
	if err != nil {
		t.Fatalf("building store: %v", err)
	}
	return store, storage
}

func testProduct(t *testing.T, price string, discounted string) *models.Product {
	t.Helper()
	p := &models.Product{
		ID:            uuid.New(),
		Title:         "Classic Tee",
		Price:         decimal.RequireFromString(price),
		Sizes:         []string{"S", "M", "L"},
		Colors:        []string{"Red", "Blue"},
		InStock:       true,
		StockQuantity: 50,
	}
	if discounted != "" {
		d := decimal.RequireFromString(discounted)
		p.DiscountedPrice = &d
	}
	return p
}

func assertItemCountInvariant(t *testing.T, store *Store) {
	t.Helper()
	sum := 0
	for _, item := range store.Items() {
		sum += item.Quantity
	}
	if got := store.Summary().ItemCount; got != sum {
		t.Fatalf("item count invariant broken: summary says %d, lines sum to %d", got, sum)
	}
}

func TestAddItemMergesDuplicateKey(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()
	product := testProduct(t, "499.00", "")

	for _, qty := range []int{1, 2, 3} {
		if _, err := store.AddItem(ctx, product, qty, "M", "Red"); err != nil {
			t.Fatalf("add: %v", err)
		}
		assertItemCountInvariant(t, store)
	}

	items := store.Items()
	if len(items) != 1 {
		t.Fatalf("expected one merged line, got %d", len(items))
	}
	if items[0].Quantity != 6 {
		t.Fatalf("expected merged quantity 6, got %d", items[0].Quantity)
	}

	// A different size is a different composite key.
	if _, err := store.AddItem(ctx, product, 1, "L", "Red"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(store.Items()) != 2 {
		t.Fatalf("expected two lines after adding a new size")
	}
}

func TestAddItemLocksPriceAtInsertion(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()
	product := testProduct(t, "999.00", "749.00")

	item, err := store.AddItem(ctx, product, 1, "M", "Blue")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !item.Price.Equal(decimal.RequireFromString("749.00")) {
		t.Fatalf("expected discounted price to be locked, got %s", item.Price)
	}

	// A later catalog price change must not leak into the cart line.
	product.Price = decimal.RequireFromString("1999.00")
	product.DiscountedPrice = nil
	if got := store.Items()[0].Price; !got.Equal(decimal.RequireFromString("749.00")) {
		t.Fatalf("locked price changed after catalog update: %s", got)
	}
}

func TestAddItemRejectsBadInput(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := store.AddItem(ctx, nil, 1, "M", "Red"); err == nil {
		t.Fatal("expected error for nil product")
	}
	if _, err := store.AddItem(ctx, testProduct(t, "100", ""), 0, "M", "Red"); err == nil {
		t.Fatal("expected error for zero quantity")
	}
}

func TestUpdateQuantity(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()
	item, _ := store.AddItem(ctx, testProduct(t, "100", ""), 2, "M", "Red")

	if err := store.UpdateQuantity(ctx, item.ID, 5); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := store.Items()[0].Quantity; got != 5 {
		t.Fatalf("expected quantity 5, got %d", got)
	}
	assertItemCountInvariant(t, store)

	// Zero or below means removal, not an error.
	if err := store.UpdateQuantity(ctx, item.ID, 0); err != nil {
		t.Fatalf("update to zero: %v", err)
	}
	if len(store.Items()) != 0 {
		t.Fatal("expected line to be removed")
	}

	err := store.UpdateQuantity(ctx, "missing", 3)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not-found for missing line, got %v", err)
	}
}

func TestRemoveItemIsIdempotent(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()
	item, _ := store.AddItem(ctx, testProduct(t, "100", ""), 1, "M", "Red")

	if err := store.RemoveItem(ctx, item.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := store.RemoveItem(ctx, item.ID); err != nil {
		t.Fatalf("second remove should be a no-op: %v", err)
	}
}

func TestUpdateItemOptionsRenamesKey(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()
	product := testProduct(t, "100", "")
	item, _ := store.AddItem(ctx, product, 2, "M", "Red")

	if err := store.UpdateItemOptions(ctx, item.ID, "L", "Blue"); err != nil {
		t.Fatalf("update options: %v", err)
	}
	items := store.Items()
	if len(items) != 1 {
		t.Fatalf("expected one line, got %d", len(items))
	}
	if items[0].ID != ItemKey(product.ID, "L", "Blue") {
		t.Fatalf("key not renamed: %s", items[0].ID)
	}
	if items[0].Size != "L" || items[0].Color != "Blue" {
		t.Fatalf("options not updated: %+v", items[0])
	}
	if items[0].Quantity != 2 {
		t.Fatalf("quantity should survive rename, got %d", items[0].Quantity)
	}
}

func TestUpdateItemOptionsMergesIntoExistingKey(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()
	product := testProduct(t, "100", "")
	first, _ := store.AddItem(ctx, product, 2, "M", "Red")
	second, _ := store.AddItem(ctx, product, 3, "L", "Red")

	before := len(store.Items())
	if err := store.UpdateItemOptions(ctx, first.ID, "L", "Red"); err != nil {
		t.Fatalf("update options: %v", err)
	}

	items := store.Items()
	if len(items) >= before+1 {
		t.Fatal("merge must never increase the number of distinct lines")
	}
	if len(items) != 1 {
		t.Fatalf("expected lines to collapse into one, got %d", len(items))
	}
	if items[0].ID != second.ID {
		t.Fatalf("expected surviving line to be the merge target, got %s", items[0].ID)
	}
	if items[0].Quantity != 5 {
		t.Fatalf("expected merged quantity 5, got %d", items[0].Quantity)
	}
	assertItemCountInvariant(t, store)
}

func TestUpdateItemOptionsSameKeyIsNoop(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()
	item, _ := store.AddItem(ctx, testProduct(t, "100", ""), 1, "M", "Red")

	if err := store.UpdateItemOptions(ctx, item.ID, "M", "Red"); err != nil {
		t.Fatalf("noop update: %v", err)
	}
	if got := store.Items(); len(got) != 1 || got[0].ID != item.ID {
		t.Fatalf("state should be unchanged: %+v", got)
	}
}

func TestSaveForLaterAndMoveToCart(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()
	item, _ := store.AddItem(ctx, testProduct(t, "250", ""), 2, "S", "Blue")

	if err := store.SaveForLater(ctx, item.ID); err != nil {
		t.Fatalf("save for later: %v", err)
	}
	if len(store.Items()) != 0 {
		t.Fatal("line should have left the active cart")
	}
	saved := store.SavedItems()
	if len(saved) != 1 || saved[0].ID != item.ID || saved[0].Quantity != 2 {
		t.Fatalf("saved list should hold the full line, got %+v", saved)
	}
	if store.Summary().ItemCount != 0 {
		t.Fatal("saved items must not contribute to pricing")
	}

	if err := store.MoveToCart(ctx, item.ID); err != nil {
		t.Fatalf("move to cart: %v", err)
	}
	if len(store.SavedItems()) != 0 {
		t.Fatal("line should have left the saved list")
	}
	if got := store.Items(); len(got) != 1 || got[0].Quantity != 2 {
		t.Fatalf("line should be back in the cart intact, got %+v", got)
	}
}

func TestMoveToCartMergesWithActiveLine(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()
	product := testProduct(t, "250", "")
	item, _ := store.AddItem(ctx, product, 2, "S", "Blue")
	if err := store.SaveForLater(ctx, item.ID); err != nil {
		t.Fatalf("save for later: %v", err)
	}
	// Shopper re-adds the same combination while the original sits saved.
	if _, err := store.AddItem(ctx, product, 1, "S", "Blue"); err != nil {
		t.Fatalf("re-add: %v", err)
	}

	if err := store.MoveToCart(ctx, item.ID); err != nil {
		t.Fatalf("move to cart: %v", err)
	}
	items := store.Items()
	if len(items) != 1 {
		t.Fatalf("expected a single merged line, got %d", len(items))
	}
	if items[0].Quantity != 3 {
		t.Fatalf("expected merged quantity 3, got %d", items[0].Quantity)
	}
}

func TestApplyAndRemoveDiscountRoundTrip(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()
	if _, err := store.AddItem(ctx, testProduct(t, "1000", ""), 1, "M", "Red"); err != nil {
		t.Fatalf("add: %v", err)
	}

	baseline := store.Summary()

	applied, err := store.ApplyDiscount(ctx, "save20")
	if err != nil {
		t.Fatalf("apply discount: %v", err)
	}
	if applied.Code != "SAVE20" || applied.Percentage != 20 {
		t.Fatalf("unexpected discount: %+v", applied)
	}

	discounted := store.Summary()
	if !discounted.Discount.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("expected discount 200, got %s", discounted.Discount)
	}
	if !discounted.Tax.Equal(decimal.NewFromInt(144)) {
		t.Fatalf("expected tax 144, got %s", discounted.Tax)
	}

	store.RemoveDiscount(ctx)
	restored := store.Summary()
	if !restored.Discount.IsZero() {
		t.Fatalf("discount should be zero after removal, got %s", restored.Discount)
	}
	if !restored.Total.Equal(baseline.Total) {
		t.Fatalf("total should return to pre-discount value: %s vs %s", restored.Total, baseline.Total)
	}
}

func TestApplyDiscountInvalidCodeLeavesStateUnchanged(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()
	if _, err := store.ApplyDiscount(ctx, "BOGUS"); err == nil {
		t.Fatal("expected error for unknown code")
	}
	if store.Discount() != nil {
		t.Fatal("failed validation must not mutate discount state")
	}
}

func TestClearResetsDiscountAndKeepsSaved(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()
	product := testProduct(t, "500", "")
	keep, _ := store.AddItem(ctx, product, 1, "S", "Red")
	if err := store.SaveForLater(ctx, keep.ID); err != nil {
		t.Fatalf("save for later: %v", err)
	}
	if _, err := store.AddItem(ctx, product, 2, "M", "Red"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := store.ApplyDiscount(ctx, "WELCOME10"); err != nil {
		t.Fatalf("apply discount: %v", err)
	}

	store.Clear(ctx)

	if len(store.Items()) != 0 {
		t.Fatal("active lines should be gone")
	}
	if store.Discount() != nil {
		t.Fatal("discount should be reset")
	}
	if len(store.SavedItems()) != 1 {
		t.Fatal("saved-for-later lines must survive a clear")
	}
}

func TestSetShippingMethod(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()
	if _, err := store.AddItem(ctx, testProduct(t, "2000", ""), 1, "M", "Red"); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := store.SetShippingMethod(ctx, enums.ShippingMethodExpress); err != nil {
		t.Fatalf("set shipping: %v", err)
	}
	if !store.Summary().Shipping.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("expected express shipping 150, got %s", store.Summary().Shipping)
	}

	if err := store.SetShippingMethod(ctx, enums.ShippingMethod("teleport")); err == nil {
		t.Fatal("expected error for unknown method")
	}
	if store.Shipping().Method != enums.ShippingMethodExpress {
		t.Fatal("failed update must not change shipping state")
	}
}

func TestSummaryScenarioTwoOfProductA(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()
	product := testProduct(t, "799.00", "")

	if _, err := store.AddItem(ctx, product, 2, "M", "Red"); err != nil {
		t.Fatalf("add: %v", err)
	}
	summary := store.Summary()
	if summary.ItemCount != 2 {
		t.Fatalf("expected item count 2, got %d", summary.ItemCount)
	}
	if !summary.Subtotal.Equal(decimal.RequireFromString("1598.00")) {
		t.Fatalf("expected subtotal 1598.00, got %s", summary.Subtotal)
	}
}

func TestSubtotalIsInvariantUnderAddOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	a := testProduct(t, "100", "")
	b := testProduct(t, "250", "")

	first, _ := newTestStore(t)
	first.AddItem(ctx, a, 2, "M", "Red")
	first.AddItem(ctx, b, 1, "L", "Blue")
	first.AddItem(ctx, a, 1, "M", "Red")

	second, _ := newTestStore(t)
	second.AddItem(ctx, b, 1, "L", "Blue")
	second.AddItem(ctx, a, 1, "M", "Red")
	second.AddItem(ctx, a, 2, "M", "Red")

	if !first.Summary().Subtotal.Equal(second.Summary().Subtotal) {
		t.Fatalf("subtotal depends on add order: %s vs %s", first.Summary().Subtotal, second.Summary().Subtotal)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	t.Parallel()

	storage := NewMemoryStorage()
	catalog := discounts.NewCatalog(0)
	store, err := NewStore("sess-rt", Snapshot{}, storage, catalog, nil)
	if err != nil {
		t.Fatalf("building store: %v", err)
	}

	ctx := context.Background()
	product := testProduct(t, "1200", "999")
	item, _ := store.AddItem(ctx, product, 2, "M", "Red")
	store.AddItem(ctx, product, 1, "L", "Blue")
	store.SaveForLater(ctx, item.ID)
	store.ApplyDiscount(ctx, "STUDENT15")
	store.SetShippingMethod(ctx, enums.ShippingMethodExpress)

	snap, err := storage.Load(ctx, "sess-rt")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	reloaded, err := NewStore("sess-rt", snap, storage, catalog, nil)
	if err != nil {
		t.Fatalf("rebuilding store: %v", err)
	}

	if len(reloaded.Items()) != len(store.Items()) {
		t.Fatalf("active lines lost in round trip")
	}
	if len(reloaded.SavedItems()) != len(store.SavedItems()) {
		t.Fatalf("saved lines lost in round trip")
	}
	if reloaded.Shipping().Method != enums.ShippingMethodExpress {
		t.Fatalf("shipping selection lost: %+v", reloaded.Shipping())
	}
	d := reloaded.Discount()
	if d == nil || d.Code != "STUDENT15" {
		t.Fatalf("discount state lost: %+v", d)
	}
	if !reloaded.Summary().Total.Equal(store.Summary().Total) {
		t.Fatalf("summary diverged after reload: %s vs %s", reloaded.Summary().Total, store.Summary().Total)
	}
}

func TestManagerReturnsSameStorePerSession(t *testing.T) {
	t.Parallel()

	manager, err := NewManager(NewMemoryStorage(), discounts.NewCatalog(0), nil)
	if err != nil {
		t.Fatalf("building manager: %v", err)
	}

	ctx := context.Background()
	first, err := manager.Get(ctx, "sess-a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	again, err := manager.Get(ctx, "sess-a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if first != again {
		t.Fatal("expected the same store instance for a session")
	}

	other, err := manager.Get(ctx, "sess-b")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if other == first {
		t.Fatal("sessions must not share stores")
	}

	if _, err := manager.Get(ctx, ""); err == nil {
		t.Fatal("expected error for empty session id")
	}
}
