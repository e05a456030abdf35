package controllers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/modacart/modacart-backend/api/middleware"
	"github.com/modacart/modacart-backend/api/responses"
	"github.com/modacart/modacart-backend/api/validators"
	cartsvc "github.com/modacart/modacart-backend/internal/cart"
	"github.com/modacart/modacart-backend/internal/discounts"
	productsvc "github.com/modacart/modacart-backend/internal/products"
	"github.com/modacart/modacart-backend/internal/pricing"
	"github.com/modacart/modacart-backend/internal/shipping"
	"github.com/modacart/modacart-backend/pkg/enums"
	pkgerrors "github.com/modacart/modacart-backend/pkg/errors"
	"github.com/modacart/modacart-backend/pkg/logger"
	"github.com/modacart/modacart-backend/pkg/metrics"
)

type cartResponse struct {
	SessionID  string             `json:"session_id"`
	Items      []cartsvc.Item     `json:"items"`
	SavedItems []cartsvc.Item     `json:"saved_items"`
	Shipping   shipping.Info      `json:"shipping"`
	Discount   *discounts.Applied `json:"discount,omitempty"`
	Summary    pricing.Summary    `json:"summary"`
}

func newCartResponse(store *cartsvc.Store) cartResponse {
	return cartResponse{
		SessionID:  store.SessionID(),
		Items:      store.Items(),
		SavedItems: store.SavedItems(),
		Shipping:   store.Shipping(),
		Discount:   store.Discount(),
		Summary:    store.Summary(),
	}
}

func sessionStore(r *http.Request, carts *cartsvc.Manager) (*cartsvc.Store, error) {
	return carts.Get(r.Context(), middleware.SessionIDFromContext(r.Context()))
}

// GetCart returns the session's full cart state and pricing summary.
func GetCart(carts *cartsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := sessionStore(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(store))
	}
}

type addItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
	Size      string    `json:"size" validate:"required"`
	Color     string    `json:"color" validate:"required"`
}

// AddCartItem loads the product from the catalog, checks availability, and
// adds it to the session's cart.
func AddCartItem(carts *cartsvc.Manager, catalog productsvc.Service, met *metrics.CartMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		store, err := sessionStore(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		// A duplicate add merges into the existing line, so stock is checked
		// against the merged quantity, not just the increment.
		requested := payload.Quantity + lineQuantity(store, cartsvc.ItemKey(payload.ProductID, payload.Size, payload.Color))
		product, err := catalog.EnsureAvailable(r.Context(), payload.ProductID, requested, payload.Size, payload.Color)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if _, err := store.AddItem(r.Context(), product, payload.Quantity, payload.Size, payload.Color); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		met.IncMutation("add_item")
		responses.WriteSuccessStatus(w, http.StatusCreated, newCartResponse(store))
	}
}

// lineQuantity returns the quantity already held by the cart line with the
// given composite key, or zero when no such line exists.
func lineQuantity(store *cartsvc.Store, itemID string) int {
	for _, item := range store.Items() {
		if item.ID == itemID {
			return item.Quantity
		}
	}
	return 0
}

type updateItemRequest struct {
	Quantity *int    `json:"quantity,omitempty"`
	Size     *string `json:"size,omitempty"`
	Color    *string `json:"color,omitempty"`
}

// UpdateCartItem changes a line's quantity and/or its size-color options.
func UpdateCartItem(carts *cartsvc.Manager, met *metrics.CartMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID := chi.URLParam(r, "itemID")

		var payload updateItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.Quantity == nil && (payload.Size == nil || payload.Color == nil) {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "provide a quantity or a size and color pair"))
			return
		}

		store, err := sessionStore(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		// Options first: a rename can merge lines, and the quantity update
		// should land on whichever line survives.
		if payload.Size != nil && payload.Color != nil {
			if err := store.UpdateItemOptions(r.Context(), itemID, *payload.Size, *payload.Color); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			met.IncMutation("update_options")
			itemID = renamedItemID(itemID, *payload.Size, *payload.Color)
		}
		if payload.Quantity != nil {
			if err := store.UpdateQuantity(r.Context(), itemID, *payload.Quantity); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			met.IncMutation("update_quantity")
		}

		responses.WriteSuccess(w, newCartResponse(store))
	}
}

// renamedItemID derives the composite key a line carries after its options
// changed. The product segment of the key is stable across the rename.
func renamedItemID(previousID, size, color string) string {
	parts := strings.SplitN(previousID, "::", 3)
	if len(parts) != 3 {
		return previousID
	}
	return fmt.Sprintf("%s::%s::%s", parts[0], size, color)
}

// RemoveCartItem deletes a line. Removing an absent line is a no-op.
func RemoveCartItem(carts *cartsvc.Manager, met *metrics.CartMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := sessionStore(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := store.RemoveItem(r.Context(), chi.URLParam(r, "itemID")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		met.IncMutation("remove_item")
		responses.WriteSuccess(w, newCartResponse(store))
	}
}

// SaveItemForLater moves a line from the active cart to the saved list.
func SaveItemForLater(carts *cartsvc.Manager, met *metrics.CartMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := sessionStore(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := store.SaveForLater(r.Context(), chi.URLParam(r, "itemID")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		met.IncMutation("save_for_later")
		responses.WriteSuccess(w, newCartResponse(store))
	}
}

// MoveItemToCart moves a saved line back into the active cart.
func MoveItemToCart(carts *cartsvc.Manager, met *metrics.CartMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := sessionStore(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := store.MoveToCart(r.Context(), chi.URLParam(r, "itemID")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		met.IncMutation("move_to_cart")
		responses.WriteSuccess(w, newCartResponse(store))
	}
}

// ClearCart empties the active cart. Saved-for-later lines are untouched.
func ClearCart(carts *cartsvc.Manager, met *metrics.CartMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := sessionStore(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		store.Clear(r.Context())
		met.IncMutation("clear")
		responses.WriteSuccess(w, newCartResponse(store))
	}
}

type applyDiscountRequest struct {
	Code string `json:"code" validate:"required"`
}

// ApplyCartDiscount validates and applies a promotion code.
func ApplyCartDiscount(carts *cartsvc.Manager, met *metrics.CartMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload applyDiscountRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		store, err := sessionStore(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if _, err := store.ApplyDiscount(r.Context(), payload.Code); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		met.IncMutation("apply_discount")
		responses.WriteSuccess(w, newCartResponse(store))
	}
}

// RemoveCartDiscount drops the applied promotion code, if any.
func RemoveCartDiscount(carts *cartsvc.Manager, met *metrics.CartMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := sessionStore(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		store.RemoveDiscount(r.Context())
		met.IncMutation("remove_discount")
		responses.WriteSuccess(w, newCartResponse(store))
	}
}

type setShippingRequest struct {
	Method string `json:"method" validate:"required"`
}

// SetCartShipping selects the shipping method for the session.
func SetCartShipping(carts *cartsvc.Manager, met *metrics.CartMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload setShippingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParseShippingMethod(payload.Method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping method"))
			return
		}

		store, err := sessionStore(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := store.SetShippingMethod(r.Context(), method); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		met.IncMutation("set_shipping")
		responses.WriteSuccess(w, newCartResponse(store))
	}
}
