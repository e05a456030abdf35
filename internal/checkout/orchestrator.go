package checkout

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/modacart/modacart-backend/internal/cart"
	"github.com/modacart/modacart-backend/internal/orders"
	"github.com/modacart/modacart-backend/internal/pricing"
	"github.com/modacart/modacart-backend/internal/shipping"
	"github.com/modacart/modacart-backend/pkg/enums"
	pkgerrors "github.com/modacart/modacart-backend/pkg/errors"
	"github.com/modacart/modacart-backend/pkg/logger"
	"github.com/modacart/modacart-backend/pkg/metrics"
	"github.com/modacart/modacart-backend/pkg/types"
)

var addressValidate = newAddressValidator()

func newAddressValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// Cart is the slice of cart state the checkout workflow reads and clears.
type Cart interface {
	Items() []cart.Item
	Shipping() shipping.Info
	Summary() pricing.Summary
	Clear(ctx context.Context)
}

// Submitter posts a finalized order and returns its order number.
type Submitter interface {
	Submit(ctx context.Context, submission orders.Submission) (string, error)
}

// Orchestrator walks one cart through the three-step checkout workflow:
// address, then payment, then review. Transitions only move one step at a
// time and collected data survives going back.
type Orchestrator struct {
	mu        sync.Mutex
	cart      Cart
	submitter Submitter
	met       *metrics.CartMetrics
	logg      *logger.Logger

	step        enums.CheckoutStep
	address     *types.ShippingAddress
	payment     enums.PaymentMethod
	notes       string
	orderNumber string
}

// NewOrchestrator builds a workflow for the given cart.
func NewOrchestrator(c Cart, submitter Submitter, met *metrics.CartMetrics, logg *logger.Logger) (*Orchestrator, error) {
	if c == nil {
		return nil, fmt.Errorf("checkout: cart is required")
	}
	if submitter == nil {
		return nil, fmt.Errorf("checkout: submitter is required")
	}
	return &Orchestrator{
		cart:      c,
		submitter: submitter,
		met:       met,
		logg:      logg,
		step:      enums.CheckoutStepAddress,
	}, nil
}

// Step returns the current workflow step.
func (o *Orchestrator) Step() enums.CheckoutStep {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.step
}

// Address returns a copy of the collected shipping address, if any.
func (o *Orchestrator) Address() *types.ShippingAddress {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.address == nil {
		return nil
	}
	copied := *o.address
	return &copied
}

// OrderNumber returns the placed order's number, empty until placement.
func (o *Orchestrator) OrderNumber() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.orderNumber
}

// SubmitAddress validates the shipping address and advances to payment.
// Every missing required field is reported by name in one response so the
// shopper can fix the whole form at once.
func (o *Orchestrator) SubmitAddress(ctx context.Context, address types.ShippingAddress) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.step != enums.CheckoutStepAddress {
		return o.wrongStep(enums.CheckoutStepAddress)
	}
	if len(o.cart.Items()) == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "cannot check out an empty cart")
	}

	if err := addressValidate.Struct(address); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			missing := make([]string, 0, len(errs))
			for _, fieldErr := range errs {
				missing = append(missing, fieldErr.Field())
			}
			return pkgerrors.New(pkgerrors.CodeValidation, "shipping address is incomplete").
				WithDetails(map[string]any{"missing_fields": missing})
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "shipping address is invalid")
	}

	normalized := address.WithDefaultCountry()
	o.address = &normalized
	o.step = enums.CheckoutStepPayment
	return nil
}

// ConfirmPayment records the payment method and advances to review.
func (o *Orchestrator) ConfirmPayment(ctx context.Context, method enums.PaymentMethod) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.step != enums.CheckoutStepPayment {
		return o.wrongStep(enums.CheckoutStepPayment)
	}
	if !method.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method")
	}
	o.payment = method
	o.step = enums.CheckoutStepReview
	return nil
}

// Back moves one step toward the address step. Collected data is kept, so
// moving forward again does not re-ask for it.
func (o *Orchestrator) Back(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.step {
	case enums.CheckoutStepPayment:
		o.step = enums.CheckoutStepAddress
	case enums.CheckoutStepReview:
		o.step = enums.CheckoutStepPayment
	case enums.CheckoutStepAddress:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "already at the first checkout step")
	default:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order has already been placed")
	}
	return nil
}

// Submit places the order. On success the cart is cleared and the order
// number is retained; on failure the cart and workflow state are untouched
// so the shopper can retry from review.
func (o *Orchestrator) Submit(ctx context.Context, acceptTerms bool, notes string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.step == enums.CheckoutStepPlaced {
		return "", pkgerrors.New(pkgerrors.CodeStateConflict, "order has already been placed")
	}
	if o.step != enums.CheckoutStepReview {
		return "", o.wrongStep(enums.CheckoutStepReview)
	}
	if !acceptTerms {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "terms and conditions must be accepted")
	}

	items := o.cart.Items()
	if len(items) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeConflict, "cannot place an order for an empty cart")
	}

	o.notes = notes
	submission := o.buildSubmission(items, notes)

	start := time.Now()
	orderNumber, err := o.submitter.Submit(ctx, submission)
	o.met.ObserveSubmission(time.Since(start))
	if err != nil {
		o.met.IncSubmission("failed")
		if o.logg != nil {
			o.logg.Error(o.logg.WithField(ctx, "step", o.step.String()), "checkout.submit_failed", err)
		}
		return "", err
	}

	o.met.IncSubmission("placed")
	o.orderNumber = orderNumber
	o.step = enums.CheckoutStepPlaced
	o.cart.Clear(ctx)
	if o.logg != nil {
		o.logg.Info(o.logg.WithField(ctx, "order_number", orderNumber), "checkout.order_placed")
	}
	return orderNumber, nil
}

func (o *Orchestrator) buildSubmission(items []cart.Item, notes string) orders.Submission {
	lines := make([]orders.LineItem, 0, len(items))
	for _, item := range items {
		lines = append(lines, orders.LineItem{
			Product:  item.ProductID.String(),
			Quantity: item.Quantity,
			Size:     item.Size,
			Color:    item.Color,
			Price:    item.Price,
		})
	}
	return orders.Submission{
		Items:       lines,
		TotalAmount: o.cart.Summary().Total,
		ShippingAddress: orders.Address{
			Street:  o.address.Street,
			City:    o.address.City,
			State:   o.address.State,
			Pincode: o.address.PostalCode,
			Country: o.address.Country,
		},
		PaymentMethod: o.payment.String(),
		Notes:         notes,
	}
}

func (o *Orchestrator) wrongStep(expected enums.CheckoutStep) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict,
		fmt.Sprintf("checkout is at the %s step, not %s", o.step, expected))
}
