package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vendorconnect/vendorconnect-backend/api/controllers"
	groupordercontrollers "github.com/vendorconnect/vendorconnect-backend/api/controllers/grouporders"
	ordercontrollers "github.com/vendorconnect/vendorconnect-backend/api/controllers/orders"
	"github.com/vendorconnect/vendorconnect-backend/api/middleware"
	"github.com/vendorconnect/vendorconnect-backend/internal/grouporders"
	"github.com/vendorconnect/vendorconnect-backend/internal/orders"
	"github.com/vendorconnect/vendorconnect-backend/pkg/config"
	"github.com/vendorconnect/vendorconnect-backend/pkg/logger"
)

// RouterParams aggregate everything the HTTP surface needs.
type RouterParams struct {
	Config       *config.Config
	Logger       *logger.Logger
	Dependencies map[string]controllers.Pinger
	GroupOrders  grouporders.Service
	Orders       orders.Service
	OrderFactory *orders.Factory
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.ExtraCORSOrigins...),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.Dependencies))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/group-orders", func(r chi.Router) {
			r.Post("/", groupordercontrollers.Create(params.GroupOrders, logg))
			r.Get("/", groupordercontrollers.List(params.GroupOrders, logg))
			r.Get("/{groupOrderId}", groupordercontrollers.Get(params.GroupOrders, logg))
			r.Post("/{groupOrderId}/join", groupordercontrollers.Join(params.GroupOrders, logg))
			r.Post("/{groupOrderId}/leave", groupordercontrollers.Leave(params.GroupOrders, logg))
			r.Post("/{groupOrderId}/place", groupordercontrollers.Place(params.GroupOrders, params.OrderFactory, logg))
			r.Post("/{groupOrderId}/materialize", groupordercontrollers.Materialize(params.OrderFactory, logg))
			r.Post("/{groupOrderId}/cancel", groupordercontrollers.Cancel(params.GroupOrders, logg))
			r.Post("/{groupOrderId}/deliver", groupordercontrollers.Deliver(params.GroupOrders, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(params.Orders, logg))
			r.Get("/{orderId}", ordercontrollers.Get(params.Orders, logg))
			r.Get("/by-number/{orderNumber}", ordercontrollers.GetByNumber(params.Orders, logg))
			r.Patch("/{orderId}/status", ordercontrollers.UpdateStatus(params.Orders, logg))
		})
	})

	return r
}
