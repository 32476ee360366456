package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tokenwise/internal/discovery"
	"tokenwise/internal/domain"
	"tokenwise/internal/feed"
	"tokenwise/internal/hub"
	"tokenwise/internal/monitor"
	"tokenwise/internal/solana"
	"tokenwise/internal/storage/memory"
)

// testMint is a syntactically valid 32-byte base58 mint address.
const testMint = "So11111111111111111111111111111111111111112"

type fakeRPC struct {
	accounts []solana.TokenAccount
	supply   *solana.TokenSupply
	err      error
}

func (f *fakeRPC) GetTokenAccountsByMint(context.Context, string) ([]solana.TokenAccount, error) {
	return f.accounts, f.err
}

func (f *fakeRPC) GetTokenSupply(context.Context, string) (*solana.TokenSupply, error) {
	return f.supply, nil
}

func (f *fakeRPC) GetSignaturesForAddress(context.Context, string, int) ([]solana.SignatureInfo, error) {
	return nil, nil
}

func (f *fakeRPC) GetTransaction(context.Context, string) (*solana.Transaction, error) {
	return nil, nil
}

func (f *fakeRPC) GetBalance(context.Context, string) (uint64, error) {
	return 0, nil
}

type testEnv struct {
	server    *httptest.Server
	monitor   *monitor.Monitor
	txs       *memory.TransactionStore
	snapshots *memory.SnapshotStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	rpc := &fakeRPC{
		accounts: []solana.TokenAccount{
			{Pubkey: "acct1", Owner: "walletA", Amount: 100},
			{Pubkey: "acct2", Owner: "walletB", Amount: 30},
		},
		supply: &solana.TokenSupply{Amount: 1000, Decimals: 0, UIAmount: 1000},
	}

	registry := hub.NewRegistry(zerolog.Nop())
	snapshots := memory.NewSnapshotStore()
	trackers := memory.NewWalletTrackerStore()
	txs := memory.NewTransactionStore()
	disc := discovery.NewDiscoverer(rpc, snapshots, trackers, 100, zerolog.Nop())

	m := monitor.New(monitor.Options{
		Token:            testMint,
		Registry:         registry,
		Source:           feed.NewSyntheticSource(testMint, nil),
		Discoverer:       disc,
		TransactionStore: txs,
		SnapshotStore:    snapshots,
		TrackerStore:     trackers,
		PollInterval:     time.Hour,
		Logger:           zerolog.Nop(),
	})

	srv := NewServer(Options{
		Token:            testMint,
		Monitor:          m,
		Discoverer:       disc,
		TransactionStore: txs,
		SnapshotStore:    snapshots,
		WebSocket:        hub.NewHandler(registry, txs, m.Status, zerolog.Nop()),
		Logger:           zerolog.Nop(),
	})

	server := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		m.Stop()
		server.Close()
	})
	return &testEnv{server: server, monitor: m, txs: txs, snapshots: snapshots}
}

func getJSON(t *testing.T, url string, wantStatus int) map[string]interface{} {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("GET %s: expected %d, got %d", url, wantStatus, resp.StatusCode)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
	return body
}

func postJSON(t *testing.T, url string, payload interface{}, wantStatus int) map[string]interface{} {
	t.Helper()

	var buf bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&buf).Encode(payload); err != nil {
			t.Fatalf("encode payload: %v", err)
		}
	}
	resp, err := http.Post(url, "application/json", &buf)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("POST %s: expected %d, got %d", url, wantStatus, resp.StatusCode)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
	return body
}

func seedTransaction(t *testing.T, env *testEnv, sig, wallet, action, protocol string, at time.Time) {
	t.Helper()

	err := env.txs.Insert(context.Background(), &domain.Transaction{
		Signature:    sig,
		Timestamp:    at,
		Wallet:       wallet,
		TokenAddress: testMint,
		Amount:       50,
		ActionType:   action,
		Protocol:     protocol,
		Slot:         150_000_000,
	})
	if err != nil {
		t.Fatalf("seed transaction: %v", err)
	}
}

func TestServer_Health(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestServer_Status(t *testing.T) {
	env := newTestEnv(t)

	body := getJSON(t, env.server.URL+"/api/status", http.StatusOK)
	if body["status"] != "online" {
		t.Errorf("unexpected status: %v", body["status"])
	}
	if body["monitoring_active"] != false {
		t.Errorf("expected monitoring inactive: %v", body["monitoring_active"])
	}
}

func TestServer_RealtimeStatus(t *testing.T) {
	env := newTestEnv(t)

	now := time.Now().UTC()
	seedTransaction(t, env, "sig-old", "walletA", domain.ActionBuy, "Jupiter", now.Add(-2*time.Hour))
	seedTransaction(t, env, "sig-new", "walletA", domain.ActionBuy, "Jupiter", now)

	body := getJSON(t, env.server.URL+"/api/realtime/status", http.StatusOK)
	if body["monitored_token"] != testMint {
		t.Errorf("unexpected token: %v", body["monitored_token"])
	}
	if body["recent_transactions_1h"] != float64(1) {
		t.Errorf("expected 1 recent transaction, got %v", body["recent_transactions_1h"])
	}
	if body["last_processed_slot"] != float64(150_000_000) {
		t.Errorf("unexpected last slot: %v", body["last_processed_slot"])
	}
}

func TestServer_StartStopMonitoring(t *testing.T) {
	env := newTestEnv(t)

	body := postJSON(t, env.server.URL+"/api/realtime/start-monitoring", nil, http.StatusOK)
	if body["status"] != "success" {
		t.Fatalf("unexpected start response: %v", body)
	}
	if !env.monitor.Running() {
		t.Fatal("expected monitor running after start")
	}

	// Starting again succeeds quietly.
	postJSON(t, env.server.URL+"/api/realtime/start-monitoring", nil, http.StatusOK)

	body = postJSON(t, env.server.URL+"/api/realtime/stop-monitoring", nil, http.StatusOK)
	if body["status"] != "success" {
		t.Fatalf("unexpected stop response: %v", body)
	}
	if env.monitor.Running() {
		t.Fatal("expected monitor stopped after stop")
	}
}

func TestServer_DiscoverWallets(t *testing.T) {
	env := newTestEnv(t)

	body := postJSON(t, env.server.URL+"/api/discover-wallets", map[string]interface{}{"top_n": 1}, http.StatusOK)
	if body["status"] != "success" {
		t.Fatalf("unexpected response: %v", body)
	}
	if body["holder_count"] != float64(1) {
		t.Errorf("expected top_n to cap holders at 1, got %v", body["holder_count"])
	}
	if body["token_address"] != testMint {
		t.Errorf("expected default mint used, got %v", body["token_address"])
	}

	// The snapshot is now queryable.
	resp, err := http.Get(env.server.URL + "/api/token-holders/" + testMint)
	if err != nil {
		t.Fatalf("GET token-holders: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected snapshot after discovery, got %d", resp.StatusCode)
	}
}

func TestServer_DiscoverWallets_InvalidMint(t *testing.T) {
	env := newTestEnv(t)

	postJSON(t, env.server.URL+"/api/discover-wallets", map[string]interface{}{"mint": "not-a-mint"}, http.StatusBadRequest)
}

func TestServer_TokenHolders_NotFound(t *testing.T) {
	env := newTestEnv(t)

	body := getJSON(t, env.server.URL+"/api/token-holders/"+testMint, http.StatusNotFound)
	if body["error"] == "" {
		t.Error("expected error message in 404 body")
	}
}

func TestServer_TokenHolders(t *testing.T) {
	env := newTestEnv(t)

	err := env.snapshots.Upsert(context.Background(), &domain.TokenHolderSnapshot{
		TokenAddress: testMint,
		Holders: []domain.TokenHolder{
			{Owner: "walletA", Address: "acct1", Balance: 100, UIAmount: 100},
		},
		TotalSupply: 1000,
		HolderCount: 1,
		LastUpdated: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}

	resp, err := http.Get(env.server.URL + "/api/token-holders/" + testMint)
	if err != nil {
		t.Fatalf("GET token-holders: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var holders []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&holders); err != nil {
		t.Fatalf("decode holders: %v", err)
	}
	if len(holders) != 1 || holders[0]["owner"] != "walletA" {
		t.Errorf("unexpected holders: %v", holders)
	}
}

func TestServer_WalletTransactions(t *testing.T) {
	env := newTestEnv(t)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seedTransaction(t, env, "sig1", "walletA", domain.ActionBuy, "Jupiter", base)
	seedTransaction(t, env, "sig2", "walletA", domain.ActionSell, "Raydium", base.Add(time.Minute))
	seedTransaction(t, env, "sig3", "walletA", domain.ActionBuy, "Jupiter", base.Add(2*time.Minute))
	seedTransaction(t, env, "sig4", "walletB", domain.ActionBuy, "Orca", base.Add(3*time.Minute))

	body := getJSON(t, env.server.URL+"/api/wallets/walletA/transactions?limit=2", http.StatusOK)
	if body["wallet_address"] != "walletA" {
		t.Errorf("unexpected wallet: %v", body["wallet_address"])
	}

	txs, ok := body["transactions"].([]interface{})
	if !ok {
		t.Fatalf("unexpected transactions shape: %T", body["transactions"])
	}
	if len(txs) != 2 {
		t.Fatalf("expected limit applied, got %d transactions", len(txs))
	}
	first := txs[0].(map[string]interface{})
	if first["signature"] != "sig3" {
		t.Errorf("expected newest first, got %v", first["signature"])
	}

	usage, ok := body["protocol_usage"].(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected protocol_usage shape: %T", body["protocol_usage"])
	}
	if usage["Jupiter"] != float64(2) || usage["Raydium"] != float64(1) {
		t.Errorf("unexpected protocol usage: %v", usage)
	}
	if _, present := usage["Orca"]; present {
		t.Error("other wallet's protocol leaked into usage")
	}
}

func TestServer_WalletTransactions_InvalidLimit(t *testing.T) {
	env := newTestEnv(t)

	getJSON(t, env.server.URL+"/api/wallets/walletA/transactions?limit=abc", http.StatusBadRequest)
}

func TestServer_Dashboard(t *testing.T) {
	env := newTestEnv(t)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seedTransaction(t, env, "sig1", "walletA", domain.ActionBuy, "Jupiter", base)
	seedTransaction(t, env, "sig2", "walletA", domain.ActionBuy, "Jupiter", base.Add(time.Minute))
	seedTransaction(t, env, "sig3", "walletB", domain.ActionBuy, "Raydium", base.Add(2*time.Minute))
	seedTransaction(t, env, "sig4", "walletB", domain.ActionSell, "Orca", base.Add(3*time.Minute))

	body := getJSON(t, env.server.URL+"/api/analytics/dashboard", http.StatusOK)

	if body["total_transactions"] != float64(4) {
		t.Errorf("unexpected total: %v", body["total_transactions"])
	}
	if body["buy_count"] != float64(3) || body["sell_count"] != float64(1) {
		t.Errorf("unexpected counts: buys=%v sells=%v", body["buy_count"], body["sell_count"])
	}
	if body["buy_sell_ratio"] != float64(3) {
		t.Errorf("unexpected ratio: %v", body["buy_sell_ratio"])
	}
	if body["holder_count"] != float64(0) {
		t.Errorf("expected no holders before discovery: %v", body["holder_count"])
	}

	active, ok := body["most_active_wallets"].([]interface{})
	if !ok || len(active) != 2 {
		t.Fatalf("unexpected most_active_wallets: %v", body["most_active_wallets"])
	}
}

func TestBuySellRatio(t *testing.T) {
	cases := []struct {
		buys, sells int64
		want        float64
	}{
		{0, 0, 0},
		{3, 0, 3},
		{3, 2, 1.5},
		{1, 3, 0.33},
		{2, 3, 0.67},
	}
	for _, c := range cases {
		if got := buySellRatio(c.buys, c.sells); got != c.want {
			t.Errorf("buySellRatio(%d, %d) = %v, want %v", c.buys, c.sells, got, c.want)
		}
	}
}
