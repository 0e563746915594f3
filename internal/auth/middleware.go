package auth

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/fdg312/meal-hub/internal/config"
	"github.com/fdg312/meal-hub/internal/userctx"
)

// Middleware - middleware для проверки авторизации
type Middleware struct {
	config  *config.Config
	service *Service
	logger  *zap.Logger
}

func NewMiddleware(cfg *config.Config, service *Service, logger *zap.Logger) *Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Middleware{
		config:  cfg,
		service: service,
		logger:  logger.Named("auth"),
	}
}

// Authenticate puts the user id into the request context.
//
//   - AUTH_MODE=none: every request acts as config.DefaultUserID.
//   - AUTH_MODE=dev, AUTH_REQUIRED=1: a valid Bearer token is mandatory.
//   - AUTH_MODE=dev otherwise: the token is verified when present, requests
//     without one act as config.DefaultUserID.
//
// Public paths (/healthz, /v1/auth/*, /v1/cron/*) pass through untouched.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if m.config.AuthMode == config.AuthModeNone {
			next.ServeHTTP(w, r.WithContext(userctx.WithUserID(r.Context(), config.DefaultUserID)))
			return
		}

		authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
		if authHeader == "" && !m.config.AuthRequired {
			next.ServeHTTP(w, r.WithContext(userctx.WithUserID(r.Context(), config.DefaultUserID)))
			return
		}

		userID, err := m.authenticateHeader(authHeader)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
			return
		}

		m.logger.Debug("auth token accepted",
			zap.String("sub", userID), zap.String("method", r.Method), zap.String("path", r.URL.Path))
		next.ServeHTTP(w, r.WithContext(userctx.WithUserID(r.Context(), userID)))
	})
}

func (m *Middleware) authenticateHeader(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrInvalidToken
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrInvalidToken
	}

	return m.service.VerifyJWT(strings.TrimSpace(parts[1]))
}

func isPublicPath(path string) bool {
	return path == "/healthz" || strings.HasPrefix(path, "/v1/auth/") || strings.HasPrefix(path, "/v1/cron/")
}
