package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"quiz-forge-service/internal/logger"
)

type ctxKey int

const userIDKey ctxKey = iota

// TokenResolver maps a bearer token to the id of the user it was issued to.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (string, error)
}

// requireAuth accepts "Authorization: Bearer <token>" or a ?token= query
// parameter. Browsers cannot set headers on WebSocket upgrades.
func requireAuth(tokens TokenResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", errors.New("missing or invalid token"))
				return
			}
			userID, err := tokens.ResolveToken(r.Context(), token)
			if err != nil {
				status, code := classify(err)
				writeError(w, status, code, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
		})
	}
}

func extractToken(r *http.Request) string {
	if q := r.URL.Query().Get("token"); q != "" {
		return q
	}
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func userIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"latency", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
