package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/modacart/modacart-backend/api/controllers"
	"github.com/modacart/modacart-backend/api/middleware"
	cartsvc "github.com/modacart/modacart-backend/internal/cart"
	checkoutsvc "github.com/modacart/modacart-backend/internal/checkout"
	productsvc "github.com/modacart/modacart-backend/internal/products"
	"github.com/modacart/modacart-backend/pkg/config"
	"github.com/modacart/modacart-backend/pkg/logger"
	"github.com/modacart/modacart-backend/pkg/metrics"
)

// NewRouter wires the storefront API surface.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	db controllers.Pinger,
	redisClient controllers.Pinger,
	productService productsvc.Service,
	cartManager *cartsvc.Manager,
	checkoutManager *checkoutsvc.Manager,
	cartMetrics *metrics.CartMetrics,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Get("/health/live", controllers.HealthLive(cfg))
	r.Get("/health/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
		"database": db,
		"redis":    redisClient,
	}))

	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Handle("/metrics", metricsHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", controllers.ListProducts(productService, logg))
		r.Get("/products/{productID}", controllers.GetProduct(productService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Session(cfg.Cart.SessionHeader, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.GetCart(cartManager, logg))
				r.Delete("/", controllers.ClearCart(cartManager, cartMetrics, logg))
				r.Post("/items", controllers.AddCartItem(cartManager, productService, cartMetrics, logg))
				r.Patch("/items/{itemID}", controllers.UpdateCartItem(cartManager, cartMetrics, logg))
				r.Delete("/items/{itemID}", controllers.RemoveCartItem(cartManager, cartMetrics, logg))
				r.Post("/items/{itemID}/save", controllers.SaveItemForLater(cartManager, cartMetrics, logg))
				r.Post("/items/{itemID}/move", controllers.MoveItemToCart(cartManager, cartMetrics, logg))
				r.Post("/discount", controllers.ApplyCartDiscount(cartManager, cartMetrics, logg))
				r.Delete("/discount", controllers.RemoveCartDiscount(cartManager, cartMetrics, logg))
				r.Put("/shipping", controllers.SetCartShipping(cartManager, cartMetrics, logg))
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Get("/", controllers.GetCheckout(checkoutManager, logg))
				r.Post("/address", controllers.CheckoutAddress(checkoutManager, logg))
				r.Post("/payment", controllers.CheckoutPayment(checkoutManager, logg))
				r.Post("/back", controllers.CheckoutBack(checkoutManager, logg))
				r.Post("/submit", controllers.CheckoutSubmit(checkoutManager, logg))
			})
		})
	})

	return r
}
