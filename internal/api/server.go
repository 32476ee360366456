// Package api exposes the HTTP control and query surface: monitoring
// lifecycle, holder and transaction queries, dashboard aggregates and the
// WebSocket feed endpoint.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"tokenwise/internal/discovery"
	"tokenwise/internal/monitor"
	"tokenwise/internal/observability"
	"tokenwise/internal/storage"
)

// Server routes API requests to the monitoring stack.
type Server struct {
	monitor    *monitor.Monitor
	discoverer *discovery.Discoverer

	txs       storage.TransactionStore
	snapshots storage.SnapshotStore

	ws    http.Handler
	token string

	started time.Time
	log     zerolog.Logger
}

// Options for creating a Server.
type Options struct {
	// Token is the default mint address served by the API.
	Token string

	Monitor    *monitor.Monitor
	Discoverer *discovery.Discoverer

	TransactionStore storage.TransactionStore
	SnapshotStore    storage.SnapshotStore

	// WebSocket is the handler mounted at /ws/transactions.
	WebSocket http.Handler

	Logger zerolog.Logger
}

// NewServer creates the API server.
func NewServer(opts Options) *Server {
	return &Server{
		monitor:    opts.Monitor,
		discoverer: opts.Discoverer,
		txs:        opts.TransactionStore,
		snapshots:  opts.SnapshotStore,
		ws:         opts.WebSocket,
		token:      opts.Token,
		started:    time.Now(),
		log:        opts.Logger,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", observability.Handler())

	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/realtime/status", s.handleRealtimeStatus)
	mux.HandleFunc("POST /api/realtime/start-monitoring", s.handleStartMonitoring)
	mux.HandleFunc("POST /api/realtime/stop-monitoring", s.handleStopMonitoring)
	mux.HandleFunc("POST /api/discover-wallets", s.handleDiscoverWallets)
	mux.HandleFunc("GET /api/token-holders/{mint}", s.handleTokenHolders)
	mux.HandleFunc("GET /api/wallets/{wallet}/transactions", s.handleWalletTransactions)
	mux.HandleFunc("GET /api/analytics/dashboard", s.handleDashboard)

	mux.Handle("GET /ws/transactions", s.ws)

	return mux
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error().Err(err).Msg("encode response")
	}
}

// writeError writes a JSON error body.
func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, map[string]string{"error": msg})
}
