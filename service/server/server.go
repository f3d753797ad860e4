package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kjansen/solwallet/service/config"
	"github.com/kjansen/solwallet/service/metrics"
	"github.com/kjansen/solwallet/service/solana"
)

// Server represents the HTTP server for the wallet service.
type Server struct {
	addr    string
	cfg     *config.Config
	wallet  *solana.Client
	service *ServiceWallet
	metrics *metrics.Metrics
	logger  *slog.Logger
	server  *http.Server
}

// New creates a new HTTP server with the given dependencies.
// The wallet client handles all ledger operations; it is constructed once
// per process and injected here rather than shared through globals.
// The service wallet is optional - if nil, the fixed sender/recipient demo
// endpoints won't be available.
// The metrics is optional - if nil, no metrics endpoint will be available.
func New(addr string, cfg *config.Config, wallet *solana.Client, service *ServiceWallet, m *metrics.Metrics, logger *slog.Logger) *Server {
	return &Server{
		addr:    addr,
		cfg:     cfg,
		wallet:  wallet,
		service: service,
		metrics: m,
		logger:  logger,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	route := func(pattern, name string, h http.Handler) {
		mux.Handle(pattern, metrics.HTTPMetricsMiddleware(s.metrics, name)(h))
	}

	// Per-request-key wallet routes
	route("POST /api/wallet/balance", "/api/wallet/balance", handleWalletBalance(s.wallet, s.logger))
	route("POST /api/wallet/transactions", "/api/wallet/transactions", handleWalletTransactions(s.wallet, s.cfg.HistoryLimit, s.logger))
	route("POST /api/wallet/transfer", "/api/wallet/transfer", handleWalletTransfer(s.wallet, s.cfg.ConfirmationTimeout, s.logger))

	// Fixed sender/recipient demo routes (if a service wallet is configured)
	if s.service != nil {
		route("GET /api/wallet/info", "/api/wallet/info", handleWalletInfo(s.service, s.cfg.Network, s.cfg.BalanceRefreshInterval))
		route("GET /api/wallet/balance", "/api/wallet/balance", handleServiceBalance(s.wallet, s.service, s.logger))
		route("POST /api/transaction/send", "/api/transaction/send", handleServiceSend(s.wallet, s.service, s.cfg.ConfirmationTimeout, s.logger))
		route("GET /api/transaction/history", "/api/transaction/history", handleServiceHistory(s.wallet, s.service, s.cfg.HistoryLimit, s.logger))
		s.logger.Info("service wallet endpoints enabled",
			"sender", s.service.Sender.PublicKey().String(),
			"recipient", s.service.Recipient.String(),
		)
	} else {
		s.logger.Warn("service wallet not configured, demo endpoints disabled")
	}

	// Health check endpoints. The /api/health form carries the JSON body
	// the browser client expects; /health is the bare probe.
	route("GET /api/health", "/api/health", handleHealth(s.cfg.Network))
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics endpoint (if metrics collector is configured)
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.Handler())
		s.logger.Info("Prometheus metrics endpoint enabled")
	}

	// Wrap mux with CORS middleware
	handler := corsMiddleware(mux)

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second, // transfer handlers block through confirmation
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// corsMiddleware adds CORS headers to all responses and handles OPTIONS preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
