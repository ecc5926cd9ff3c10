package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/terra-clan/solution-builder/internal/metrics"
	"github.com/terra-clan/solution-builder/internal/models"
)

// Request headers identifying who a request is made for and by
const (
	HeaderClientID = "X-Client-ID"
	HeaderOperator = "X-Operator"
)

// ClientStore looks up clients by id
type ClientStore interface {
	GetClient(ctx context.Context, id string) (*models.Client, error)
}

// ClientMiddleware resolves the client named by the X-Client-ID header
type ClientMiddleware struct {
	clients ClientStore
}

// NewClientMiddleware creates new client middleware.
// With a nil store every client id is accepted as an active client.
func NewClientMiddleware(clients ClientStore) *ClientMiddleware {
	return &ClientMiddleware{clients: clients}
}

// Identify puts the requesting client and operator into the request context
func (m *ClientMiddleware) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(HeaderClientID))
		if id == "" {
			respondError(w, http.StatusBadRequest, "missing_client", "provide the client id in the X-Client-ID header")
			return
		}

		client := &models.Client{ID: id, IsActive: true}
		if m.clients != nil {
			found, err := m.clients.GetClient(r.Context(), id)
			if err != nil {
				slog.Error("failed to lookup client", "error", err, "client_id", id)
				respondError(w, http.StatusInternalServerError, "internal_error", "failed to lookup client")
				return
			}
			if found == nil {
				slog.Warn("unknown client", "client_id", id, "remote_addr", r.RemoteAddr)
				respondError(w, http.StatusNotFound, "client_not_found", "client not found")
				return
			}
			if !found.IsActive {
				slog.Warn("inactive client request", "client_id", found.ShortID())
				respondError(w, http.StatusForbidden, "client_inactive", "client has been deactivated")
				return
			}
			client = found
		}

		ctx := ContextWithClient(r.Context(), client)
		ctx = ContextWithOperator(ctx, strings.TrimSpace(r.Header.Get(HeaderOperator)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// metricsMiddleware records request counts and latency per route pattern
func metricsMiddleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.ObserveHTTP(r.Method, route, status, time.Since(start))
		})
	}
}
