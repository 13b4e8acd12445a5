package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/vendorledger/api/controllers"
	payoutcontrollers "github.com/angelmondragon/vendorledger/api/controllers/payouts"
	"github.com/angelmondragon/vendorledger/api/middleware"
	"github.com/angelmondragon/vendorledger/internal/commission"
	"github.com/angelmondragon/vendorledger/internal/ledger"
	"github.com/angelmondragon/vendorledger/internal/payouts"
	"github.com/angelmondragon/vendorledger/internal/vendororders"
	"github.com/angelmondragon/vendorledger/internal/vendors"
	"github.com/angelmondragon/vendorledger/pkg/config"
	"github.com/angelmondragon/vendorledger/pkg/db"
	"github.com/angelmondragon/vendorledger/pkg/enums"
	"github.com/angelmondragon/vendorledger/pkg/logger"
	"github.com/angelmondragon/vendorledger/pkg/redis"
)

// Services groups the domain services the HTTP layer dispatches to.
type Services struct {
	Commission   commission.Service
	Vendors      vendors.Service
	Ledger       ledger.Service
	VendorOrders vendororders.Service
	Payouts      payouts.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	// typed nils must not reach the interface checks downstream
	var (
		redisPinger redis.Pinger
		idemStore   redis.IdempotencyStore
	)
	if redisClient != nil {
		redisPinger = redisClient
		idemStore = redisClient
	}

	idem := middleware.Idempotency(idemStore, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisPinger))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1", func(r chi.Router) {
			r.Route("/vendors/{vendorId}", func(r chi.Router) {
				r.With(idem).Post("/payouts", payoutcontrollers.VendorPayoutCreate(svc.Payouts, logg))
				r.Get("/payouts", payoutcontrollers.VendorPayoutList(svc.Payouts, svc.Vendors, logg))
				r.Get("/balance", controllers.VendorBalance(svc.Vendors, svc.Ledger, logg))
				r.Get("/ledger", controllers.VendorLedger(svc.Vendors, svc.Ledger, logg))
			})

			r.Get("/payouts/{payoutId}", payoutcontrollers.PayoutDetail(svc.Payouts, logg))
			r.With(idem).Delete("/payouts/{payoutId}", payoutcontrollers.PayoutCancel(svc.Payouts, logg))

			r.Get("/commission", controllers.CommissionCurrent(svc.Commission, logg))
			r.Get("/commission/history", controllers.CommissionHistory(svc.Commission, logg))
			r.Post("/commission/calculate", controllers.CommissionCalculate(svc.Commission, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.RoleAdmin, logg))
			r.Get("/ping", controllers.AdminPing())

			r.Route("/v1", func(r chi.Router) {
				r.Get("/payouts", payoutcontrollers.AdminPayoutList(svc.Payouts, logg))
				r.With(idem).Post("/payouts/bulk-approve", payoutcontrollers.AdminPayoutBulkApprove(svc.Payouts, logg))
				r.With(idem).Post("/payouts/{payoutId}/approve", payoutcontrollers.AdminPayoutApprove(svc.Payouts, logg))
				r.With(idem).Post("/payouts/{payoutId}/reject", payoutcontrollers.AdminPayoutReject(svc.Payouts, logg))

				r.With(idem).Put("/commission", controllers.AdminCommissionSet(svc.Commission, logg))
				r.With(idem).Post("/commission/reset", controllers.AdminCommissionReset(svc.Commission, logg))

				r.With(idem).Delete("/vendors/{vendorId}", controllers.AdminVendorDelete(svc.Vendors, logg))
				r.With(idem).Put("/vendors/{vendorId}/commission", controllers.AdminVendorCommission(svc.Vendors, logg))

				r.Route("/orders/{orderId}", func(r chi.Router) {
					r.With(idem).Post("/split", controllers.AdminSplitOrder(svc.VendorOrders, logg))
					r.Get("/vendor-orders", controllers.AdminListVendorOrders(svc.VendorOrders, logg))
				})

				r.Route("/vendor-orders/{vendorOrderId}", func(r chi.Router) {
					r.With(idem).Post("/status", controllers.AdminVendorOrderStatus(svc.VendorOrders, logg))
					r.With(idem).Post("/settle", controllers.AdminSettleVendorOrder(svc.VendorOrders, logg))
				})
			})
		})
	})

	return r
}
