package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ThanaboonChantasawat/wow-key-store-backend/api/controllers"
	ordercontrollers "github.com/ThanaboonChantasawat/wow-key-store-backend/api/controllers/orders"
	"github.com/ThanaboonChantasawat/wow-key-store-backend/api/middleware"
	"github.com/ThanaboonChantasawat/wow-key-store-backend/internal/escrow"
	"github.com/ThanaboonChantasawat/wow-key-store-backend/internal/orders"
	"github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/config"
	"github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/db"
	"github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/enums"
	"github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/logger"
	"github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	ordersService orders.Service,
	escrowService escrow.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/buyer/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.BuyerList(ordersService, logg))
			r.Post("/bulk-cancel", ordercontrollers.BulkCancel(ordersService, logg))
			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", ordercontrollers.Detail(ordersService, logg))
				r.Get("/escrow", ordercontrollers.EscrowTrail(ordersService, escrowService, logg))
				r.Post("/confirm", ordercontrollers.ConfirmReceipt(ordersService, logg))
				r.Post("/cancel", ordercontrollers.CancelOrder(ordersService, logg))
			})
		})

		r.Route("/seller/orders", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.ActorRoleSeller), logg))
			r.Get("/", ordercontrollers.SellerList(ordersService, logg))
			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", ordercontrollers.Detail(ordersService, logg))
				r.Post("/delivery", ordercontrollers.RecordDelivery(ordersService, logg))
				r.Post("/notes", ordercontrollers.SellerNotes(ordersService, logg))
			})
		})

		r.Route("/admin/orders", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.ActorRoleAdmin), logg))
			r.Post("/bulk-cancel", ordercontrollers.BulkCancel(ordersService, logg))
			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", ordercontrollers.Detail(ordersService, logg))
				r.Get("/escrow", ordercontrollers.EscrowTrail(ordersService, escrowService, logg))
				r.Post("/cancel", ordercontrollers.CancelOrder(ordersService, logg))
			})
		})
	})

	return r
}
