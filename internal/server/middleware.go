package server

import (
	"context"
	"net/http"
	"time"

	"payment-reconciliation-service/internal/models"
	"payment-reconciliation-service/pkg/logger"

	"github.com/google/uuid"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// RequestID returns the id attached by the middleware, or "" outside it.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// requestID attaches a uuid to the request context and echoes it in the
// X-Request-Id header. An incoming header wins so ids survive proxies.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.WithFields(logger.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"request_id":  RequestID(r.Context()),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("request handled")
	})
}

// recoverPanic keeps the always-200 contract even when a handler faults:
// the client sees {found:false, reason} instead of a dropped connection.
func (s *Server) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.WithFields(logger.Fields{
					"panic":      rec,
					"path":       r.URL.Path,
					"request_id": RequestID(r.Context()),
				}).Error("handler panicked")
				writeJSON(w, models.NotFound("internal error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
