package middleware

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/graphiti-lang/graphiti/internal/web/auth"
)

// Auth requires a valid bearer token on every request except skipPaths and
// stores the verified claims in the request context
func Auth(service *auth.AuthService, logger *zap.Logger, skipPaths ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip(skipPaths, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				w.Header().Set("WWW-Authenticate", "Bearer")
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Authorization required")
				return
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid authorization format")
				return
			}

			claims, err := service.ValidateToken(token)
			if err != nil {
				logger.Debug("rejected token",
					zap.String("request_id", GetRequestID(r.Context())),
					zap.Error(err),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		})
	}
}
