package http

import (
	"context"
	"net/http"

	"gearhire-backend/internal/config"
	"gearhire-backend/internal/limiter"
	"gearhire-backend/internal/metrics"
	"gearhire-backend/internal/service"

	"github.com/gorilla/mux"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	AuthService    service.AuthService
	CatalogService service.CatalogService
	OrderService   service.OrderService
	// Limiter throttles login and registration. Nil disables throttling.
	Limiter        limiter.Limiter
	DB             Pinger
	AllowedOrigins []string
	// TrustedProxies may set X-Forwarded-For. Empty means the peer address
	// is always the client.
	TrustedProxies TrustedProxies
	ExposeErrors   bool
}

// Handler serves the REST API.
type Handler struct {
	auth         service.AuthService
	catalog      service.CatalogService
	orders       service.OrderService
	limiter      limiter.Limiter
	db           Pinger
	proxies      TrustedProxies
	exposeErrors bool
}

// NewRouter registers every endpoint and wraps the router with the
// request-scoped middleware.
func NewRouter(opts Options) http.Handler {
	h := &Handler{
		auth:         opts.AuthService,
		catalog:      opts.CatalogService,
		orders:       opts.OrderService,
		limiter:      opts.Limiter,
		db:           opts.DB,
		proxies:      opts.TrustedProxies,
		exposeErrors: opts.ExposeErrors,
	}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.Use(metrics.Middleware, h.authorize, h.rateLimit)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/auth/register", h.Register).Methods(http.MethodPost).Name(config.RouteRegister)
	api.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost).Name(config.RouteLogin)
	api.HandleFunc("/auth/me", h.Me).Methods(http.MethodGet).Name(config.RouteMe)

	api.HandleFunc("/products", h.ListProducts).Methods(http.MethodGet).Name(config.RouteListProducts)
	api.HandleFunc("/products", h.CreateProduct).Methods(http.MethodPost).Name(config.RouteCreateProduct)
	api.HandleFunc("/products/categories", h.ListCategories).Methods(http.MethodGet).Name(config.RouteListCategories)
	api.HandleFunc("/products/categories", h.CreateCategory).Methods(http.MethodPost).Name(config.RouteCreateCategory)
	api.HandleFunc("/products/{id:[0-9]+}", h.GetProduct).Methods(http.MethodGet).Name(config.RouteGetProduct)
	api.HandleFunc("/products/{id:[0-9]+}/availability", h.CheckAvailability).Methods(http.MethodGet).Name(config.RouteProductAvailable)

	api.HandleFunc("/orders", h.CreateOrder).Methods(http.MethodPost).Name(config.RouteCreateOrder)
	api.HandleFunc("/orders", h.ListOrders).Methods(http.MethodGet).Name(config.RouteListOrders)
	api.HandleFunc("/orders/my-orders", h.MyOrders).Methods(http.MethodGet).Name(config.RouteMyOrders)
	api.HandleFunc("/orders/{id:[0-9]+}", h.GetOrder).Methods(http.MethodGet).Name(config.RouteGetOrder)
	api.HandleFunc("/orders/{id:[0-9]+}/status", h.UpdateOrderStatus).Methods(http.MethodPatch).Name(config.RouteUpdateOrderStatus)
	api.HandleFunc("/orders/{id:[0-9]+}/cancel", h.CancelOrder).Methods(http.MethodPost).Name(config.RouteCancelOrder)

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet).Name(config.RouteHealth)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet).Name(config.RouteMetrics)

	var handler http.Handler = r
	handler = cors(opts.AllowedOrigins)(handler)
	handler = h.logRequests(handler)
	handler = recovery(handler)
	handler = requestID(handler)
	return handler
}
