package controllers

import (
	"net/http"

	"github.com/nuptio/nuptio-backend/api/responses"
	"github.com/nuptio/nuptio-backend/internal/recon"
	"github.com/nuptio/nuptio-backend/pkg/logger"
)

// TriggerReconciliation runs both reconciliation phases synchronously and
// returns the per-phase counts. Row-level failures are already counted in the
// summary, so the response is a 200 even when some rows errored.
func TriggerReconciliation(engine *recon.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		summary, err := engine.Run(ctx)
		if err != nil && logg != nil {
			logg.Error(ctx, "reconciliation finished with row errors", err)
		}

		responses.WriteSuccess(w, summary)
	}
}
