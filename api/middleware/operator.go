package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/nuptio/nuptio-backend/api/responses"
	pkgerrors "github.com/nuptio/nuptio-backend/pkg/errors"
	"github.com/nuptio/nuptio-backend/pkg/logger"
)

// OperatorToken gates operator-only endpoints behind a static bearer token.
// Rejections happen before any database or gateway access. An empty
// configured token disables the surface entirely.
func OperatorToken(token string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "operator endpoints are disabled"))
				return
			}

			header := r.Header.Get("Authorization")
			presented, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || presented == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "bearer token required"))
				return
			}

			if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid operator token"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
