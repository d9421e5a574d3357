// Package server is the HTTP boundary of the reconciliation service. It is
// deliberately forgiving: the check endpoint always answers 200 with an
// outcome body, folding every internal failure into {found:false, reason}
// so callers never have to branch on status codes.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"payment-reconciliation-service/internal/bankclient"
	"payment-reconciliation-service/internal/models"
	"payment-reconciliation-service/pkg/logger"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Checker runs one reconciliation check.
type Checker interface {
	CheckByCode(ctx context.Context, rawCode string) models.Outcome
}

// BankDiagnostics is the slice of the bank client the ping endpoint needs.
type BankDiagnostics interface {
	HasToken() bool
	TokenTail() string
	ClientInfo(ctx context.Context) (*bankclient.ClientInfo, error)
}

// Config holds HTTP server settings.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Server serves the reconciliation HTTP API.
type Server struct {
	checker Checker
	bank    BankDiagnostics
	config  Config
	logger  logger.Logger
	router  *mux.Router
}

// New wires the routes and middleware.
func New(checker Checker, bank BankDiagnostics, config Config) *Server {
	if config.Addr == "" {
		config.Addr = DefaultConfig().Addr
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = DefaultConfig().ShutdownTimeout
	}

	s := &Server{
		checker: checker,
		bank:    bank,
		config:  config,
		logger:  logger.WithComponent("server"),
	}

	r := mux.NewRouter()
	r.Use(s.requestID, s.accessLog, s.recoverPanic)
	r.HandleFunc("/payments/check", s.handleCheck).Methods("POST")
	r.HandleFunc("/payments/bank/ping", s.handlePing).Methods("GET")
	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	s.router = r

	return s
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then drains in-flight requests within
// the shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", s.config.Addr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type checkRequest struct {
	Code string `json:"code"`
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, models.NotFound("request body must be JSON with a code field"))
		return
	}

	outcome := s.checker.CheckByCode(r.Context(), req.Code)
	writeJSON(w, outcome)
}

type pingResponse struct {
	OK     bool   `json:"ok"`
	Tail   string `json:"tail,omitempty"`
	Client string `json:"client,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// handlePing verifies the configured bank credential end to end by calling
// client-info. Only the token's last characters are ever reported.
func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	if !s.bank.HasToken() {
		writeJSON(w, pingResponse{OK: false, Reason: "bank token is not configured"})
		return
	}

	info, err := s.bank.ClientInfo(r.Context())
	if err != nil {
		s.logger.WithError(err).Warn("bank ping failed")
		writeJSON(w, pingResponse{OK: false, Tail: s.bank.TokenTail(), Reason: err.Error()})
		return
	}

	writeJSON(w, pingResponse{OK: true, Tail: s.bank.TokenTail(), Client: info.Name})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.WithComponent("server").WithError(err).Error("response encode failed")
	}
}
