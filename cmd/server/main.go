// Command server runs the token monitoring API: holder discovery, the
// real-time transaction feed and the WebSocket dashboard endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"tokenwise/internal/api"
	"tokenwise/internal/discovery"
	"tokenwise/internal/feed"
	"tokenwise/internal/hub"
	"tokenwise/internal/monitor"
	"tokenwise/internal/solana"
	"tokenwise/internal/storage"
	chstore "tokenwise/internal/storage/clickhouse"
	"tokenwise/internal/storage/memory"
	"tokenwise/internal/storage/migrations"
	pgstore "tokenwise/internal/storage/postgres"
)

// defaultToken is the mint monitored when none is configured.
const defaultToken = "9BB6NFEcjBCtnNLFko2FqVQBq8HHM13kCyYcdQbgpump"

const shutdownTimeout = 30 * time.Second

type stores struct {
	txs       storage.TransactionStore
	snapshots storage.SnapshotStore
	trackers  storage.WalletTrackerStore
}

func main() {
	// Load .env if present; system env vars win.
	godotenv.Load()

	rpcEndpoint := flag.String("rpc-endpoint", envOr("SOLANA_RPC_ENDPOINT", "https://api.mainnet-beta.solana.com"), "Solana RPC HTTP endpoint")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	token := flag.String("token", envOr("MONITORED_TOKEN", defaultToken), "Token mint address to monitor")
	addr := flag.String("addr", envOr("LISTEN_ADDR", ":8000"), "HTTP listen address")
	topHolders := flag.Int("top-holders", discovery.DefaultTopHolders, "Number of top holders to track")
	pollInterval := flag.Duration("poll-interval", monitor.DefaultPollInterval, "Monitoring loop interval")
	discoveryInterval := flag.Duration("discovery-interval", monitor.DefaultDiscoveryInterval, "Holder discovery interval")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL and ClickHouse")
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", "tokenwise").
		Logger()

	if err := solana.ValidateAddress(*token); err != nil {
		log.Fatal().Err(err).Str("token", *token).Msg("invalid token mint address")
	}
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		log.Fatal().Msg("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create stores")
	}
	defer cleanup()

	rpc := solana.NewHTTPClient(*rpcEndpoint)
	registry := hub.NewRegistry(log.Logger)
	discoverer := discovery.NewDiscoverer(rpc, st.snapshots, st.trackers, *topHolders, log.Logger)

	mon := monitor.New(monitor.Options{
		Token:             *token,
		Registry:          registry,
		Source:            feed.NewSyntheticSource(*token, nil),
		Discoverer:        discoverer,
		TransactionStore:  st.txs,
		SnapshotStore:     st.snapshots,
		TrackerStore:      st.trackers,
		PollInterval:      *pollInterval,
		DiscoveryInterval: *discoveryInterval,
		Logger:            log.Logger,
	})

	server := api.NewServer(api.Options{
		Token:            *token,
		Monitor:          mon,
		Discoverer:       discoverer,
		TransactionStore: st.txs,
		SnapshotStore:    st.snapshots,
		WebSocket:        hub.NewHandler(registry, st.txs, mon.Status, log.Logger),
		Logger:           log.Logger,
	})

	httpServer := &http.Server{
		Addr:    *addr,
		Handler: server.Handler(),
	}

	// Monitoring starts with the server. Clients can stop and restart it
	// over the API; it also stops itself when the last client disconnects.
	if err := mon.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start monitoring")
	}

	done := make(chan struct{})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Warn().Str("signal", sig.String()).Msg("shutdown signal received")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		go func() {
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("http shutdown")
			}
		}()

		// Wait for a second signal for immediate shutdown.
		select {
		case sig := <-sigCh:
			log.Error().Str("signal", sig.String()).Msg("second signal received, forcing immediate shutdown")
			os.Exit(1)
		case <-time.After(shutdownTimeout):
			log.Error().Msg("graceful shutdown timed out, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	log.Info().
		Str("addr", *addr).
		Str("token", *token).
		Bool("use_memory", *useMemory).
		Msg("server listening")

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}

	mon.Stop()
	close(done)

	log.Info().Msg("shutdown complete")
}

// createStores wires the storage backends: PostgreSQL for snapshots and
// trackers, ClickHouse for the transactions log, or all in-memory.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*stores, func(), error) {
	if useMemory {
		log.Info().Msg("using in-memory storage")
		return &stores{
			txs:       memory.NewTransactionStore(),
			snapshots: memory.NewSnapshotStore(),
			trackers:  memory.NewWalletTrackerStore(),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	cleanup := func() {
		conn.Close()
		pool.Close()
	}
	return &stores{
		txs:       chstore.NewTransactionStore(conn),
		snapshots: pgstore.NewSnapshotStore(pool),
		trackers:  pgstore.NewWalletTrackerStore(pool),
	}, cleanup, nil
}

// envOr returns the env var value or a fallback when unset.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
