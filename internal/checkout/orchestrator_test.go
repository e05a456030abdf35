package checkout

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/modacart/modacart-backend/internal/cart"
	"github.com/modacart/modacart-backend/internal/discounts"
	"github.com/modacart/modacart-backend/internal/orders"
	"github.com/modacart/modacart-backend/pkg/db/models"
	"github.com/modacart/modacart-backend/pkg/enums"
	pkgerrors "github.com/modacart/modacart-backend/pkg/errors"
	"github.com/modacart/modacart-backend/pkg/types"
)

type stubSubmitter struct {
	orderNumber string
	err         error
	calls       int
	last        orders.Submission
}

func (s *stubSubmitter) Submit(_ context.Context, submission orders.Submission) (string, error) {
	s.calls++
	s.last = submission
	if s.err != nil {
		return "", s.err
	}
	return s.orderNumber, nil
}

func newCheckoutCart(t *testing.T) *cart.Store {
	t.Helper()

	store, err := cart.NewStore("sess-checkout", cart.Snapshot{}, cart.NewMemoryStorage(), discounts.NewCatalog(0), nil)
	if err != nil {
		t.Fatalf("building cart: %v", err)
	}
	product := &models.Product{
		ID:            uuid.New(),
		Title:         "Wool Coat",
		Price:         decimal.RequireFromString("3500.00"),
		InStock:       true,
		StockQuantity: 3,
	}
	if _, err := store.AddItem(context.Background(), product, 1, "M", "Grey"); err != nil {
		t.Fatalf("seeding cart: %v", err)
	}
	return store
}

func validAddress() types.ShippingAddress {
	return types.ShippingAddress{
		FullName:   "Asha Rao",
		Phone:      "+91 98765 43210",
		Email:      "asha@example.com",
		Street:     "12 MG Road",
		City:       "Bengaluru",
		State:      "Karnataka",
		PostalCode: "560001",
	}
}

func newOrchestrator(t *testing.T, c Cart, submitter Submitter) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(c, submitter, nil, nil)
	if err != nil {
		t.Fatalf("building orchestrator: %v", err)
	}
	return o
}

func advanceToReview(t *testing.T, o *Orchestrator) {
	t.Helper()
	ctx := context.Background()
	if err := o.SubmitAddress(ctx, validAddress()); err != nil {
		t.Fatalf("address step: %v", err)
	}
	if err := o.ConfirmPayment(ctx, enums.PaymentMethodCOD); err != nil {
		t.Fatalf("payment step: %v", err)
	}
}

func TestHappyPathPlacesOrderAndClearsCart(t *testing.T) {
	t.Parallel()

	store := newCheckoutCart(t)
	submitter := &stubSubmitter{orderNumber: "ORD-1001"}
	o := newOrchestrator(t, store, submitter)
	ctx := context.Background()

	advanceToReview(t, o)
	orderNumber, err := o.Submit(ctx, true, "gift wrap please")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if orderNumber != "ORD-1001" {
		t.Fatalf("unexpected order number %q", orderNumber)
	}
	if o.Step() != enums.CheckoutStepPlaced {
		t.Fatalf("expected placed step, got %s", o.Step())
	}
	if o.OrderNumber() != "ORD-1001" {
		t.Fatalf("order number not retained")
	}
	if len(store.Items()) != 0 {
		t.Fatal("cart should be cleared after placement")
	}
	if submitter.last.Notes != "gift wrap please" {
		t.Fatalf("notes not forwarded: %q", submitter.last.Notes)
	}
	if submitter.last.PaymentMethod != "cod" {
		t.Fatalf("payment method not forwarded: %q", submitter.last.PaymentMethod)
	}
	if submitter.last.ShippingAddress.Pincode != "560001" {
		t.Fatalf("postal code should map to pincode, got %q", submitter.last.ShippingAddress.Pincode)
	}
	if submitter.last.ShippingAddress.Country != "India" {
		t.Fatalf("country should default, got %q", submitter.last.ShippingAddress.Country)
	}
}

func TestSubmitAddressEnumeratesMissingFields(t *testing.T) {
	t.Parallel()

	o := newOrchestrator(t, newCheckoutCart(t), &stubSubmitter{orderNumber: "x"})

	err := o.SubmitAddress(context.Background(), types.ShippingAddress{FullName: "Asha Rao", City: "Bengaluru"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected details map, got %T", typed.Details())
	}
	missing, ok := details["missing_fields"].([]string)
	if !ok {
		t.Fatalf("expected missing field list, got %v", details)
	}
	want := map[string]bool{"phone": true, "email": true, "street": true, "state": true, "postal_code": true}
	if len(missing) != len(want) {
		t.Fatalf("expected %d missing fields, got %v", len(want), missing)
	}
	for _, field := range missing {
		if !want[field] {
			t.Fatalf("unexpected missing field %q in %v", field, missing)
		}
	}
	if o.Step() != enums.CheckoutStepAddress {
		t.Fatal("failed validation must not advance the workflow")
	}
}

func TestSubmitAddressRejectsEmptyCart(t *testing.T) {
	t.Parallel()

	store, err := cart.NewStore("sess-empty", cart.Snapshot{}, cart.NewMemoryStorage(), discounts.NewCatalog(0), nil)
	if err != nil {
		t.Fatalf("building cart: %v", err)
	}
	o := newOrchestrator(t, store, &stubSubmitter{orderNumber: "x"})

	err = o.SubmitAddress(context.Background(), validAddress())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict for empty cart, got %v", err)
	}
}

func TestStepGuards(t *testing.T) {
	t.Parallel()

	o := newOrchestrator(t, newCheckoutCart(t), &stubSubmitter{orderNumber: "x"})
	ctx := context.Background()

	if err := o.ConfirmPayment(ctx, enums.PaymentMethodCOD); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("payment before address should be a state conflict, got %v", err)
	}
	if _, err := o.Submit(ctx, true, ""); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("submit before review should be a state conflict, got %v", err)
	}
	if err := o.Back(ctx); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("back at the first step should be a state conflict, got %v", err)
	}
}

func TestBackKeepsCollectedData(t *testing.T) {
	t.Parallel()

	o := newOrchestrator(t, newCheckoutCart(t), &stubSubmitter{orderNumber: "x"})
	ctx := context.Background()

	advanceToReview(t, o)
	if err := o.Back(ctx); err != nil {
		t.Fatalf("back to payment: %v", err)
	}
	if o.Step() != enums.CheckoutStepPayment {
		t.Fatalf("expected payment step, got %s", o.Step())
	}
	if err := o.Back(ctx); err != nil {
		t.Fatalf("back to address: %v", err)
	}
	if o.Step() != enums.CheckoutStepAddress {
		t.Fatalf("expected address step, got %s", o.Step())
	}
	if addr := o.Address(); addr == nil || addr.FullName != "Asha Rao" {
		t.Fatalf("address should survive going back, got %+v", addr)
	}
}

func TestSubmitRequiresTermsAcceptance(t *testing.T) {
	t.Parallel()

	submitter := &stubSubmitter{orderNumber: "x"}
	o := newOrchestrator(t, newCheckoutCart(t), submitter)

	advanceToReview(t, o)
	_, err := o.Submit(context.Background(), false, "")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error without terms, got %v", err)
	}
	if submitter.calls != 0 {
		t.Fatal("order must not be submitted without terms acceptance")
	}
	if o.Step() != enums.CheckoutStepReview {
		t.Fatal("workflow should stay at review")
	}
}

func TestFailedSubmissionKeepsCartAndStep(t *testing.T) {
	t.Parallel()

	store := newCheckoutCart(t)
	submitter := &stubSubmitter{err: pkgerrors.New(pkgerrors.CodeDependency, "pincode not serviceable")}
	o := newOrchestrator(t, store, submitter)
	ctx := context.Background()

	advanceToReview(t, o)
	_, err := o.Submit(ctx, true, "")
	if err == nil {
		t.Fatal("expected submission failure")
	}
	if o.Step() != enums.CheckoutStepReview {
		t.Fatalf("failed submission should stay at review, got %s", o.Step())
	}
	if len(store.Items()) == 0 {
		t.Fatal("cart must be kept on submission failure")
	}

	// Retry succeeds after the upstream recovers.
	submitter.err = nil
	submitter.orderNumber = "ORD-2002"
	orderNumber, err := o.Submit(ctx, true, "")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if orderNumber != "ORD-2002" {
		t.Fatalf("unexpected order number %q", orderNumber)
	}
}

func TestDoubleSubmitIsRejected(t *testing.T) {
	t.Parallel()

	submitter := &stubSubmitter{orderNumber: "ORD-3003"}
	o := newOrchestrator(t, newCheckoutCart(t), submitter)
	ctx := context.Background()

	advanceToReview(t, o)
	if _, err := o.Submit(ctx, true, ""); err != nil {
		t.Fatalf("submit: %v", err)
	}
	_, err := o.Submit(ctx, true, "")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict on double submission, got %v", err)
	}
	if submitter.calls != 1 {
		t.Fatalf("expected one upstream call, got %d", submitter.calls)
	}
}

func TestManagerKeepsOneWorkflowPerSession(t *testing.T) {
	t.Parallel()

	carts, err := cart.NewManager(cart.NewMemoryStorage(), discounts.NewCatalog(0), nil)
	if err != nil {
		t.Fatalf("building cart manager: %v", err)
	}
	manager, err := NewManager(carts, &stubSubmitter{orderNumber: "x"}, nil, nil)
	if err != nil {
		t.Fatalf("building checkout manager: %v", err)
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
		t.Fatal("expected the same workflow per session")
	}
}

func TestManagerRetiresPlacedWorkflow(t *testing.T) {
	t.Parallel()

	carts, err := cart.NewManager(cart.NewMemoryStorage(), discounts.NewCatalog(0), nil)
	if err != nil {
		t.Fatalf("building cart manager: %v", err)
	}
	manager, err := NewManager(carts, &stubSubmitter{orderNumber: "ORD-4004"}, nil, nil)
	if err != nil {
		t.Fatalf("building checkout manager: %v", err)
	}

	ctx := context.Background()
	store, err := carts.Get(ctx, "sess-repeat")
	if err != nil {
		t.Fatalf("cart: %v", err)
	}
	product := &models.Product{
		ID:            uuid.New(),
		Title:         "Linen Shirt",
		Price:         decimal.RequireFromString("1200.00"),
		InStock:       true,
		StockQuantity: 10,
	}
	if _, err := store.AddItem(ctx, product, 1, "L", "White"); err != nil {
		t.Fatalf("seeding cart: %v", err)
	}

	first, err := manager.Get(ctx, "sess-repeat")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	advanceToReview(t, first)
	if _, err := first.Submit(ctx, true, ""); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// Shopping again in the same session must not hit the placed workflow.
	if _, err := store.AddItem(ctx, product, 1, "L", "White"); err != nil {
		t.Fatalf("re-adding item: %v", err)
	}
	second, err := manager.Get(ctx, "sess-repeat")
	if err != nil {
		t.Fatalf("get after placement: %v", err)
	}
	if second == first {
		t.Fatal("placed workflow should be retired")
	}
	if second.Step() != enums.CheckoutStepAddress {
		t.Fatalf("expected a fresh workflow at the address step, got %s", second.Step())
	}
	if err := second.SubmitAddress(ctx, validAddress()); err != nil {
		t.Fatalf("second checkout should start cleanly: %v", err)
	}
}
