package controllers

import (
	"net/http"

	"github.com/modacart/modacart-backend/api/middleware"
	"github.com/modacart/modacart-backend/api/responses"
	"github.com/modacart/modacart-backend/api/validators"
	checkoutsvc "github.com/modacart/modacart-backend/internal/checkout"
	"github.com/modacart/modacart-backend/pkg/enums"
	pkgerrors "github.com/modacart/modacart-backend/pkg/errors"
	"github.com/modacart/modacart-backend/pkg/logger"
	"github.com/modacart/modacart-backend/pkg/types"
)

type checkoutResponse struct {
	Step        enums.CheckoutStep     `json:"step"`
	Address     *types.ShippingAddress `json:"address,omitempty"`
	OrderNumber string                 `json:"order_number,omitempty"`
}

func newCheckoutResponse(o *checkoutsvc.Orchestrator) checkoutResponse {
	return checkoutResponse{
		Step:        o.Step(),
		Address:     o.Address(),
		OrderNumber: o.OrderNumber(),
	}
}

func sessionCheckout(r *http.Request, mgr *checkoutsvc.Manager) (*checkoutsvc.Orchestrator, error) {
	return mgr.Get(r.Context(), middleware.SessionIDFromContext(r.Context()))
}

// GetCheckout returns the session's current checkout state.
func GetCheckout(mgr *checkoutsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		o, err := sessionCheckout(r, mgr)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCheckoutResponse(o))
	}
}

// checkoutAddressRequest carries the raw address form. Required-field
// enforcement lives in the workflow so every missing field is reported in a
// single response.
type checkoutAddressRequest struct {
	FullName   string `json:"full_name"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

func (r checkoutAddressRequest) toAddress() types.ShippingAddress {
	return types.ShippingAddress{
		FullName:   r.FullName,
		Phone:      r.Phone,
		Email:      r.Email,
		Street:     r.Street,
		City:       r.City,
		State:      r.State,
		PostalCode: r.PostalCode,
		Country:    r.Country,
	}
}

// CheckoutAddress collects the shipping address and advances to payment.
func CheckoutAddress(mgr *checkoutsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload checkoutAddressRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		o, err := sessionCheckout(r, mgr)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := o.SubmitAddress(r.Context(), payload.toAddress()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCheckoutResponse(o))
	}
}

type checkoutPaymentRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required"`
}

// CheckoutPayment records the payment method and advances to review.
func CheckoutPayment(mgr *checkoutsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload checkoutPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(payload.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported payment method"))
			return
		}

		o, err := sessionCheckout(r, mgr)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := o.ConfirmPayment(r.Context(), method); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCheckoutResponse(o))
	}
}

// CheckoutBack steps the workflow back toward the address step.
func CheckoutBack(mgr *checkoutsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		o, err := sessionCheckout(r, mgr)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := o.Back(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCheckoutResponse(o))
	}
}

type checkoutSubmitRequest struct {
	AcceptTerms bool   `json:"accept_terms"`
	Notes       string `json:"notes"`
}

// CheckoutSubmit places the order and returns its order number.
func CheckoutSubmit(mgr *checkoutsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload checkoutSubmitRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		o, err := sessionCheckout(r, mgr)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderNumber, err := o.Submit(r.Context(), payload.AcceptTerms, payload.Notes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]string{"order_number": orderNumber})
	}
}
