package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"sponsortree-backend/internal/logger"
	"sponsortree-backend/internal/metrics"
	"sponsortree-backend/internal/security"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	adminClaimsKey
)

const requestIDHeader = "X-Request-ID"

// RequestIDFromContext returns the id assigned by the request id middleware.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func adminClaimsFromContext(ctx context.Context) *security.AdminClaims {
	claims, _ := ctx.Value(adminClaimsKey).(*security.AdminClaims)
	return claims
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestID keeps a caller supplied X-Request-ID or assigns a fresh one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// accessLog logs one line per request and feeds the HTTP metrics. The path
// label is the route template so ids do not explode cardinality.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				path = tmpl
			}
		}
		elapsed := time.Since(start)
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		metrics.ResponseTimeHistogram.WithLabelValues(r.Method, path).Observe(elapsed.Seconds())

		logger.InfoContext(r.Context(), "HTTP request",
			"requestID", RequestIDFromContext(r.Context()),
			"method", r.Method,
			"path", path,
			"status", rec.status,
			"duration", elapsed,
		)
	})
}

// requireAdmin rejects requests without a valid members page token.
func requireAdmin(tokens security.TokenManager, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("Authorization")
		if len(token) > 7 && strings.EqualFold(token[:7], "Bearer ") {
			token = token[7:]
		}
		if token == "" {
			writeMessage(w, http.StatusUnauthorized, "authorization token is not provided")
			return
		}

		claims, err := tokens.ValidateToken(token)
		if err != nil {
			logger.Debug("Rejected admin token", "error", err)
			writeMessage(w, http.StatusUnauthorized, err.Error())
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), adminClaimsKey, claims)))
	}
}
