package api

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"tokenwise/internal/domain"
	"tokenwise/internal/monitor"
	"tokenwise/internal/solana"
	"tokenwise/internal/storage"
)

// defaultWalletTxLimit caps per-wallet transaction listings when the client
// passes no limit.
const defaultWalletTxLimit = 20

// Sizes for the dashboard response.
const (
	dashboardHolders      = 10
	dashboardTransactions = 20
	dashboardWallets      = 10
)

// handleStatus reports overall service status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.monitor.Status(r.Context())

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "online",
		"monitoring_active": st.MonitoringActive,
		"connected_clients": st.ConnectedClients,
		"tracked_wallets":   st.TrackedWallets,
		"uptime":            time.Since(s.started).String(),
		"timestamp":         time.Now().UTC(),
	})
}

// handleRealtimeStatus reports the live monitoring state plus feed activity
// over the last hour.
func (s *Server) handleRealtimeStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st := s.monitor.Status(ctx)

	recentHour, err := s.txs.CountSince(ctx, time.Now().UTC().Add(-time.Hour))
	if err != nil {
		s.log.Error().Err(err).Msg("count recent transactions")
		s.writeError(w, http.StatusInternalServerError, "failed to retrieve realtime status")
		return
	}

	// The newest stored transaction carries the last processed slot.
	var lastSlot int64
	if latest, err := s.txs.Recent(ctx, 1); err == nil && len(latest) > 0 {
		lastSlot = latest[0].Slot
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"monitoring_active":      st.MonitoringActive,
		"connected_clients":      st.ConnectedClients,
		"tracked_wallets":        st.TrackedWallets,
		"monitored_token":        st.MonitoringToken,
		"recent_transactions_1h": recentHour,
		"last_processed_slot":    lastSlot,
		"timestamp":              time.Now().UTC(),
	})
}

// handleStartMonitoring starts the monitoring loop. Starting an already
// active loop is not an error.
func (s *Server) handleStartMonitoring(w http.ResponseWriter, r *http.Request) {
	if err := s.monitor.Start(); err != nil && !errors.Is(err, monitor.ErrAlreadyRunning) {
		s.log.Error().Err(err).Msg("start monitoring")
		s.writeError(w, http.StatusInternalServerError, "failed to start monitoring")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Real-time monitoring started.",
	})
}

// handleStopMonitoring stops the monitoring loop.
func (s *Server) handleStopMonitoring(w http.ResponseWriter, r *http.Request) {
	s.monitor.Stop()

	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Real-time monitoring stopped.",
	})
}

// handleDiscoverWallets runs an on-demand holder discovery pass. An empty
// mint falls back to the monitored token.
func (s *Server) handleDiscoverWallets(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mint string `json:"mint"`
		TopN int    `json:"top_n"`
	}
	// An empty body means defaults.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	mint := req.Mint
	if mint == "" {
		mint = s.token
	}
	if err := solana.ValidateAddress(mint); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid mint address")
		return
	}

	snapshot, err := s.discoverer.Run(r.Context(), mint, req.TopN)
	if err != nil {
		s.log.Error().Err(err).Str("mint", mint).Msg("wallet discovery failed")
		s.writeError(w, http.StatusBadGateway, "wallet discovery failed")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "success",
		"token_address": snapshot.TokenAddress,
		"holder_count":  snapshot.HolderCount,
		"total_supply":  snapshot.TotalSupply,
		"last_updated":  snapshot.LastUpdated,
	})
}

// handleTokenHolders returns the latest holder snapshot for a mint.
func (s *Server) handleTokenHolders(w http.ResponseWriter, r *http.Request) {
	mint := r.PathValue("mint")

	snapshot, err := s.snapshots.Get(r.Context(), mint)
	if errors.Is(err, storage.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "token holders snapshot not found for this mint")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("mint", mint).Msg("load holder snapshot")
		s.writeError(w, http.StatusInternalServerError, "failed to retrieve token holders")
		return
	}

	s.writeJSON(w, http.StatusOK, snapshot.Holders)
}

// handleWalletTransactions lists the most recent transactions for one wallet
// together with its per-protocol usage.
func (s *Server) handleWalletTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	wallet := r.PathValue("wallet")

	limit := defaultWalletTxLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	txs, err := s.txs.ByWallet(ctx, wallet, limit)
	if err != nil {
		s.log.Error().Err(err).Str("wallet", wallet).Msg("load wallet transactions")
		s.writeError(w, http.StatusInternalServerError, "failed to retrieve wallet transactions")
		return
	}

	protocols, err := s.txs.ProtocolCountsByWallet(ctx, wallet)
	if err != nil {
		s.log.Error().Err(err).Str("wallet", wallet).Msg("load wallet protocol usage")
		s.writeError(w, http.StatusInternalServerError, "failed to retrieve wallet transactions")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"wallet_address": wallet,
		"transactions":   txs,
		"protocol_usage": protocolUsage(protocols),
	})
}

// handleDashboard aggregates the analytics dashboard payload.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	totalTx, err := s.txs.CountTotal(ctx)
	if err != nil {
		s.dashboardError(w, err, "count transactions")
		return
	}
	buys, err := s.txs.CountByAction(ctx, domain.ActionBuy)
	if err != nil {
		s.dashboardError(w, err, "count buys")
		return
	}
	sells, err := s.txs.CountByAction(ctx, domain.ActionSell)
	if err != nil {
		s.dashboardError(w, err, "count sells")
		return
	}

	recent, err := s.txs.Recent(ctx, dashboardTransactions)
	if err != nil {
		s.dashboardError(w, err, "load recent transactions")
		return
	}
	protocols, err := s.txs.ProtocolCounts(ctx)
	if err != nil {
		s.dashboardError(w, err, "load protocol counts")
		return
	}
	active, err := s.txs.MostActiveWallets(ctx, dashboardWallets)
	if err != nil {
		s.dashboardError(w, err, "load most active wallets")
		return
	}

	var topHolders []domain.TokenHolder
	var holderCount int
	snapshot, err := s.snapshots.Get(ctx, s.token)
	switch {
	case err == nil:
		topHolders = snapshot.Holders
		if len(topHolders) > dashboardHolders {
			topHolders = topHolders[:dashboardHolders]
		}
		holderCount = snapshot.HolderCount
	case !errors.Is(err, storage.ErrNotFound):
		s.dashboardError(w, err, "load holder snapshot")
		return
	}

	st := s.monitor.Status(ctx)

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_wallets":       st.TrackedWallets,
		"total_transactions":  totalTx,
		"buy_count":           buys,
		"sell_count":          sells,
		"buy_sell_ratio":      buySellRatio(buys, sells),
		"recent_transactions": recent,
		"protocol_usage":      protocolUsage(protocols),
		"most_active_wallets": active,
		"top_token_holders":   topHolders,
		"holder_count":        holderCount,
		"monitoring_active":   st.MonitoringActive,
		"connected_clients":   st.ConnectedClients,
		"timestamp":           time.Now().UTC(),
	})
}

func (s *Server) dashboardError(w http.ResponseWriter, err error, msg string) {
	s.log.Error().Err(err).Msg(msg)
	s.writeError(w, http.StatusInternalServerError, "failed to build dashboard")
}

// buySellRatio is buys over sells rounded to two decimals, with sells
// clamped to at least one to avoid division by zero.
func buySellRatio(buys, sells int64) float64 {
	denom := sells
	if denom < 1 {
		denom = 1
	}
	return math.Round(float64(buys)/float64(denom)*100) / 100
}

// protocolUsage flattens ranked protocol counts into a name to count map.
func protocolUsage(counts []domain.ProtocolCount) map[string]int64 {
	usage := make(map[string]int64, len(counts))
	for _, c := range counts {
		usage[c.Protocol] = c.Count
	}
	return usage
}
