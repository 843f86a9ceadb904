// routes/routes.go
package routes

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"go-storefront/controllers"
	"go-storefront/middleware"
)

type Controllers struct {
	User    *controllers.UserController
	Product *controllers.ProductController
	Order   *controllers.OrderController
	Health  *controllers.HealthController
}

// RegisterRoutes sets up all the routes for the application
func RegisterRoutes(router *mux.Router, c Controllers, jwtSecret []byte) {
	auth := middleware.AuthMiddleware(jwtSecret)

	router.HandleFunc("/healthz", c.Health.Healthz).Methods(http.MethodGet)
	router.HandleFunc("/readyz", c.Health.Readyz).Methods(http.MethodGet)

	// User routes
	user := router.PathPrefix("/user").Subrouter()
	user.HandleFunc("/register", c.User.Register).Methods(http.MethodPost)
	user.HandleFunc("/login", c.User.Login).Methods(http.MethodPost)
	user.HandleFunc("/logout", c.User.Logout).Methods(http.MethodPost)
	user.Handle("/{userId}", auth(http.HandlerFunc(c.User.GetUser))).Methods(http.MethodGet)

	// Product routes; literal paths before /{id}
	product := router.PathPrefix("/product").Subrouter()
	product.HandleFunc("/getProducts", c.Product.GetProducts).Methods(http.MethodGet)
	product.HandleFunc("/searchProducts", c.Product.SearchProducts).Methods(http.MethodGet)

	admin := product.NewRoute().Subrouter()
	admin.Use(auth, middleware.AdminMiddleware)
	admin.HandleFunc("/addProduct", c.Product.AddProduct).Methods(http.MethodPost)
	admin.HandleFunc("/updateProduct/{id}", c.Product.UpdateProduct).Methods(http.MethodPut)
	admin.HandleFunc("/deleteProduct/{id}", c.Product.DeleteProduct).Methods(http.MethodDelete)

	product.HandleFunc("/{id}", c.Product.GetProduct).Methods(http.MethodGet)

	// Order routes
	order := router.PathPrefix("/order").Subrouter()
	order.Use(auth)
	order.HandleFunc("/placeOrder", c.Order.PlaceOrder).Methods(http.MethodPost)
	order.HandleFunc("/confirmation", c.Order.GetOrderConfirmation).Methods(http.MethodGet)
}

// NewHandler builds the router and wraps it in the request-scoped middleware.
// CORS sits outside the router so preflight requests never reach route matching.
func NewHandler(c Controllers, jwtSecret []byte, allowedOrigins []string, log *slog.Logger) http.Handler {
	router := mux.NewRouter()
	RegisterRoutes(router, c, jwtSecret)
	return middleware.RequestID(middleware.Logging(log)(middleware.CORS(allowedOrigins)(router)))
}
