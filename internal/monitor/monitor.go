// Package monitor runs the real-time monitoring loop: periodic holder
// discovery, transaction feed ingestion and dashboard broadcasts.
package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tokenwise/internal/discovery"
	"tokenwise/internal/domain"
	"tokenwise/internal/feed"
	"tokenwise/internal/hub"
	"tokenwise/internal/observability"
	"tokenwise/internal/storage"
)

// Default cadence values.
const (
	DefaultPollInterval      = 5 * time.Second
	DefaultDiscoveryInterval = 6 * time.Hour
)

// Sizes for the dashboard broadcast payload.
const (
	dashboardHolders      = 10
	dashboardTransactions = 20
	dashboardWallets      = 10
)

// ErrAlreadyRunning is returned by Start when the loop is active.
var ErrAlreadyRunning = errors.New("monitoring already running")

// Monitor owns the monitoring lifecycle for one token.
type Monitor struct {
	token      string
	registry   *hub.Registry
	source     feed.Source
	discoverer *discovery.Discoverer

	txs       storage.TransactionStore
	snapshots storage.SnapshotStore
	trackers  storage.WalletTrackerStore

	pollInterval      time.Duration
	discoveryInterval time.Duration

	log zerolog.Logger

	mu            sync.Mutex
	running       bool
	cancel        context.CancelFunc
	done          chan struct{}
	lastDiscovery time.Time
	wallets       []string // cached tracked wallet addresses
}

// Options for creating a Monitor.
type Options struct {
	// Token is the mint address being monitored.
	Token string

	Registry   *hub.Registry
	Source     feed.Source
	Discoverer *discovery.Discoverer

	TransactionStore storage.TransactionStore
	SnapshotStore    storage.SnapshotStore
	TrackerStore     storage.WalletTrackerStore

	// PollInterval defaults to 5s, DiscoveryInterval to 6h.
	PollInterval      time.Duration
	DiscoveryInterval time.Duration

	Logger zerolog.Logger
}

// New creates a Monitor and arranges for the loop to stop itself once the
// last WebSocket client disconnects. Clients reconnecting later must start
// monitoring explicitly.
func New(opts Options) *Monitor {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.DiscoveryInterval <= 0 {
		opts.DiscoveryInterval = DefaultDiscoveryInterval
	}

	m := &Monitor{
		token:             opts.Token,
		registry:          opts.Registry,
		source:            opts.Source,
		discoverer:        opts.Discoverer,
		txs:               opts.TransactionStore,
		snapshots:         opts.SnapshotStore,
		trackers:          opts.TrackerStore,
		pollInterval:      opts.PollInterval,
		discoveryInterval: opts.DiscoveryInterval,
		log:               opts.Logger,
	}

	// The stop runs on a fresh goroutine: the empty notification fires
	// inside the loop's own broadcast and a synchronous Stop would wait
	// on itself.
	m.registry.SetOnEmpty(func() { go m.stopIfEmpty() })

	return m
}

// stopIfEmpty stops monitoring unless a client reconnected between the
// empty notification and this deferred stop running.
func (m *Monitor) stopIfEmpty() {
	if m.registry.Count() > 0 {
		return
	}
	m.Stop()
}

// Start launches the monitoring loop. Returns ErrAlreadyRunning when active.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	m.running = true

	observability.DefaultMetrics.MonitoringActive.Set(1)
	m.log.Info().Str("token", m.token).Dur("poll_interval", m.pollInterval).Msg("monitoring started")

	go m.loop(ctx, m.done)
	return nil
}

// Stop halts the loop and waits for it to exit. Safe to call when idle.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	done := m.done
	m.running = false
	m.mu.Unlock()

	cancel()
	<-done

	observability.DefaultMetrics.MonitoringActive.Set(0)
	m.log.Info().Str("token", m.token).Msg("monitoring stopped")
}

// Running reports whether the loop is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Status reports the live monitoring state.
func (m *Monitor) Status(ctx context.Context) hub.Status {
	var tracked int64
	if count, err := m.trackers.CountActive(ctx); err == nil {
		tracked = count
	}

	return hub.Status{
		MonitoringActive: m.Running(),
		ConnectedClients: m.registry.Count(),
		TrackedWallets:   tracked,
		MonitoringToken:  m.token,
	}
}

// loop drives iterations at the poll cadence until cancelled.
func (m *Monitor) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	m.iterate(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.iterate(ctx)
		}
	}
}

// iterate performs one monitoring pass. Failures are logged and the loop
// carries on; only cancellation stops it.
func (m *Monitor) iterate(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	m.maybeDiscover(ctx)

	if len(m.walletCache()) == 0 {
		m.reloadWallets(ctx)
	}

	if tx := m.source.Generate(m.walletCache()); tx != nil {
		if err := m.txs.Insert(ctx, tx); err != nil {
			m.log.Error().Err(err).Str("signature", tx.Signature).Msg("store transaction")
		} else {
			m.registry.Broadcast("new_transaction", tx)
		}
	}

	m.broadcastDashboard(ctx)
}

// maybeDiscover runs holder discovery when the interval has elapsed.
func (m *Monitor) maybeDiscover(ctx context.Context) {
	m.mu.Lock()
	due := m.lastDiscovery.IsZero() || time.Since(m.lastDiscovery) >= m.discoveryInterval
	m.mu.Unlock()

	if !due {
		return
	}

	if _, err := m.discoverer.Run(ctx, m.token, 0); err != nil {
		m.log.Error().Err(err).Str("token", m.token).Msg("holder discovery failed")
		return
	}

	m.mu.Lock()
	m.lastDiscovery = time.Now()
	m.mu.Unlock()

	m.reloadWallets(ctx)
}

// reloadWallets refreshes the tracked wallet cache from storage.
func (m *Monitor) reloadWallets(ctx context.Context) {
	trackers, err := m.trackers.Active(ctx, 0)
	if err != nil {
		m.log.Error().Err(err).Msg("load tracked wallets")
		return
	}

	wallets := make([]string, len(trackers))
	for i, t := range trackers {
		wallets[i] = t.Address
	}

	m.mu.Lock()
	m.wallets = wallets
	m.mu.Unlock()

	m.log.Info().Int("wallets", len(wallets)).Msg("tracked wallet cache reloaded")
}

func (m *Monitor) walletCache() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.wallets
}

// broadcastDashboard pushes the aggregate dashboard state to all clients.
func (m *Monitor) broadcastDashboard(ctx context.Context) {
	var topHolders []domain.TokenHolder
	var holderCount int
	if snap, err := m.snapshots.Get(ctx, m.token); err == nil {
		topHolders = snap.Holders
		if len(topHolders) > dashboardHolders {
			topHolders = topHolders[:dashboardHolders]
		}
		holderCount = snap.HolderCount
	} else if !errors.Is(err, storage.ErrNotFound) {
		m.log.Error().Err(err).Msg("load holder snapshot")
	}

	recent, err := m.txs.Recent(ctx, dashboardTransactions)
	if err != nil {
		m.log.Error().Err(err).Msg("load recent transactions")
	}

	protocols, err := m.txs.ProtocolCounts(ctx)
	if err != nil {
		m.log.Error().Err(err).Msg("load protocol counts")
	}

	active, err := m.txs.MostActiveWallets(ctx, dashboardWallets)
	if err != nil {
		m.log.Error().Err(err).Msg("load most active wallets")
	}

	m.registry.Broadcast("dashboard_update", map[string]interface{}{
		"monitoring_active":     m.Running(),
		"connected_clients":     m.registry.Count(),
		"tracked_wallets_count": len(m.walletCache()),
		"top_holders":           topHolders,
		"recent_transactions":   recent,
		"protocol_usage":        protocols,
		"most_active_wallets":   active,
		"holder_count":          holderCount,
	})
}
