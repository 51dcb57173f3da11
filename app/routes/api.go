// Package routes registers the HTTP surface of the storefront.
package routes

import (
	"net/http"

	"github.com/oliveedge/oliveedge/app/controllers"
	"github.com/oliveedge/oliveedge/app/services"
	"github.com/oliveedge/oliveedge/pkg/ctx"
	"github.com/oliveedge/oliveedge/pkg/metrics"
	"github.com/oliveedge/oliveedge/pkg/middleware"
	"github.com/oliveedge/oliveedge/pkg/rbac"
	"github.com/oliveedge/oliveedge/pkg/router"
	"github.com/oliveedge/oliveedge/pkg/workerpool"
)

// RegisterAPI mounts every route. The order service is shared with the boot
// sequence so the expiry sweep acts on the same wiring.
func RegisterAPI(r *router.Router, orders *services.OrderService, pool *workerpool.Pool) {
	payments := services.NewPaymentService(orders)

	authC := controllers.NewAuthController()
	productC := controllers.NewProductController()
	cartC := controllers.NewCartController()
	wishlistC := controllers.NewWishlistController()
	orderC := controllers.NewOrderController(orders, payments)
	paymentC := controllers.NewPaymentController(payments)
	adminC := controllers.NewAdminController(orders, services.NewAnalyticsService(pool))

	r.Get("/healthz", "healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok")) //nolint:errcheck
	})
	r.Get("/metrics", "metrics", metrics.Handler())

	api := r.Group("/api")

	// Public.
	auth := api.Group("/auth")
	auth.Post("/register", "auth.register", ctx.Wrap(authC.Register))
	auth.Post("/login", "auth.login", ctx.Wrap(authC.Login))
	auth.Get("/profile", "auth.profile", ctx.Wrap(authC.Profile), middleware.Auth)

	api.Get("/products", "products.index", ctx.Wrap(productC.Index))
	api.Get("/products/top", "products.top", ctx.Wrap(productC.Top))
	api.Get("/products/{id}", "products.show", ctx.Wrap(productC.Show))
	api.Post("/products/{id}/reviews", "products.reviews.store", ctx.Wrap(productC.AddReview), middleware.Auth)
	api.Put("/products/{id}/reviews/{rid}/helpful", "products.reviews.helpful", ctx.Wrap(productC.MarkReviewHelpful), middleware.Auth)

	// Buyer, authenticated.
	buyer := api.Group("", middleware.Auth)
	buyer.Get("/cart", "cart.show", ctx.Wrap(cartC.Show))
	buyer.Put("/cart", "cart.put", ctx.Wrap(cartC.Put))
	buyer.Delete("/cart", "cart.clear", ctx.Wrap(cartC.Clear))

	buyer.Get("/wishlist", "wishlist.index", ctx.Wrap(wishlistC.Index))
	buyer.Post("/wishlist/{productId}", "wishlist.store", ctx.Wrap(wishlistC.Store))
	buyer.Delete("/wishlist/{productId}", "wishlist.destroy", ctx.Wrap(wishlistC.Destroy))

	buyer.Post("/orders", "orders.store", ctx.Wrap(orderC.Store))
	buyer.Get("/orders/mine", "orders.mine", ctx.Wrap(orderC.Mine))
	buyer.Get("/orders/{id}", "orders.show", ctx.Wrap(orderC.Show))
	buyer.Put("/orders/{id}/pay", "orders.pay", ctx.Wrap(orderC.Pay))
	buyer.Put("/orders/{id}/cancel", "orders.cancel", ctx.Wrap(orderC.Cancel))
	buyer.Put("/orders/{id}/return", "orders.return", ctx.Wrap(orderC.RequestReturn))
	buyer.Get("/orders/{id}/tracking", "orders.tracking", ctx.Wrap(orderC.Tracking))

	buyer.Post("/payment/create-order", "payment.create", ctx.Wrap(paymentC.CreateOrder))
	buyer.Post("/payment/verify", "payment.verify", ctx.Wrap(paymentC.Verify))

	// Live tracking stream.
	r.Get("/ws/orders/{id}", "orders.stream", ctx.Wrap(orderC.TrackingStream), middleware.Auth)

	// Back office. The transition endpoints also answer on the order-scoped
	// paths for clients that address orders directly.
	api.Put("/orders/{id}/deliver", "orders.deliver",
		ctx.Wrap(adminC.Deliver), middleware.Auth, rbac.HasRole("admin"))
	api.Put("/orders/{id}/status", "orders.status",
		ctx.Wrap(adminC.SetStatus), middleware.Auth, rbac.HasRole("admin"))

	admin := api.Group("/admin", middleware.Auth, rbac.HasRole("admin"))
	admin.Get("/orders", "admin.orders.index", ctx.Wrap(adminC.Orders))
	admin.Put("/orders/{id}/deliver", "admin.orders.deliver", ctx.Wrap(adminC.Deliver))
	admin.Put("/orders/{id}/status", "admin.orders.status", ctx.Wrap(adminC.SetStatus))
	admin.Post("/products", "admin.products.store", ctx.Wrap(productC.Store))
	admin.Put("/products/{id}", "admin.products.update", ctx.Wrap(productC.Update))
	admin.Delete("/products/{id}", "admin.products.destroy", ctx.Wrap(productC.Destroy))
	admin.Post("/products/{id}/image", "admin.products.image", ctx.Wrap(productC.UploadImage))
	admin.Get("/dashboard", "admin.dashboard", ctx.Wrap(adminC.Dashboard))
}
