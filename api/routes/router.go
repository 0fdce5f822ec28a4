package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nuptio/nuptio-backend/api/controllers"
	"github.com/nuptio/nuptio-backend/api/middleware"
	"github.com/nuptio/nuptio-backend/internal/contributions"
	"github.com/nuptio/nuptio-backend/internal/recon"
	"github.com/nuptio/nuptio-backend/pkg/config"
	"github.com/nuptio/nuptio-backend/pkg/logger"
	"github.com/nuptio/nuptio-backend/pkg/redis"
)

// RouterParams carries everything the HTTP surface needs.
type RouterParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            controllers.Pinger
	Redis         *redis.Client
	Contributions contributions.Service
	Recon         *recon.Engine
	Metrics       prometheus.Gatherer
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": params.DB,
			"redis":    params.Redis,
		}))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(params.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/contributions", func(r chi.Router) {
		r.Use(middleware.Idempotency(params.Redis, logg))
		r.Post("/checkout", controllers.CheckoutContribution(params.Contributions, logg))
	})

	r.Route("/api/v1/ops", func(r chi.Router) {
		r.Use(middleware.OperatorToken(cfg.Ops.ReconcileToken, logg))
		r.Post("/reconcile", controllers.TriggerReconciliation(params.Recon, logg))
	})

	return r
}
