package solana

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mr-tron/base58"
)

// buildTokenAccountData encodes a synthetic SPL token account.
func buildTokenAccountData(mint, owner []byte, amount uint64) string {
	data := make([]byte, tokenAccountSize)
	copy(data[0:32], mint)
	copy(data[32:64], owner)
	binary.LittleEndian.PutUint64(data[64:72], amount)
	return base64.StdEncoding.EncodeToString(data)
}

// buildMintAccountData encodes a synthetic SPL mint account.
func buildMintAccountData(supply uint64, decimals uint8) string {
	data := make([]byte, 82)
	binary.LittleEndian.PutUint64(data[36:44], supply)
	data[44] = decimals
	return base64.StdEncoding.EncodeToString(data)
}

func testKey(fill byte) []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = fill
	}
	return key
}

func TestParseTokenAccount(t *testing.T) {
	mint := testKey(1)
	owner := testKey(2)

	acct, err := ParseTokenAccount(buildTokenAccountData(mint, owner, 1500))
	if err != nil {
		t.Fatalf("ParseTokenAccount: %v", err)
	}

	if acct.Mint != base58.Encode(mint) {
		t.Errorf("mint mismatch: got %s", acct.Mint)
	}
	if acct.Owner != base58.Encode(owner) {
		t.Errorf("owner mismatch: got %s", acct.Owner)
	}
	if acct.Amount != 1500 {
		t.Errorf("expected amount 1500, got %d", acct.Amount)
	}
}

func TestParseTokenAccount_TooShort(t *testing.T) {
	short := base64.StdEncoding.EncodeToString(make([]byte, 40))
	if _, err := ParseTokenAccount(short); err == nil {
		t.Fatal("expected error for short account data")
	}
}

func TestParseMintAccount(t *testing.T) {
	supply, err := ParseMintAccount(buildMintAccountData(5_000_000, 6))
	if err != nil {
		t.Fatalf("ParseMintAccount: %v", err)
	}

	if supply.Amount != 5_000_000 {
		t.Errorf("expected raw supply 5000000, got %d", supply.Amount)
	}
	if supply.Decimals != 6 {
		t.Errorf("expected decimals 6, got %d", supply.Decimals)
	}
	if supply.UIAmount != 5.0 {
		t.Errorf("expected ui supply 5.0, got %f", supply.UIAmount)
	}
}

func TestHTTPClient_GetTokenAccountsByMint(t *testing.T) {
	mint := testKey(1)
	ownerA := testKey(2)
	ownerB := testKey(3)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		if req.Method != "getProgramAccounts" {
			t.Errorf("expected method getProgramAccounts, got %s", req.Method)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": []map[string]interface{}{
				{
					"pubkey": "acct1",
					"account": map[string]interface{}{
						"data":  []string{buildTokenAccountData(mint, ownerA, 100), "base64"},
						"owner": TokenProgramID,
					},
				},
				{
					"pubkey": "acct2",
					"account": map[string]interface{}{
						"data":  []string{buildTokenAccountData(mint, ownerB, 30), "base64"},
						"owner": TokenProgramID,
					},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	accounts, err := client.GetTokenAccountsByMint(context.Background(), base58.Encode(mint))
	if err != nil {
		t.Fatalf("GetTokenAccountsByMint: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(accounts))
	}

	if accounts[0].Pubkey != "acct1" {
		t.Errorf("expected pubkey acct1, got %s", accounts[0].Pubkey)
	}
	if accounts[0].Owner != base58.Encode(ownerA) {
		t.Errorf("owner mismatch for acct1")
	}
	if accounts[0].Amount != 100 {
		t.Errorf("expected amount 100, got %d", accounts[0].Amount)
	}
	if accounts[1].Amount != 30 {
		t.Errorf("expected amount 30, got %d", accounts[1].Amount)
	}
}

func TestHTTPClient_GetTokenSupply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"value": map[string]interface{}{
					"data": []string{buildMintAccountData(1_000_000_000, 9), "base64"},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	supply, err := client.GetTokenSupply(context.Background(), "somemint")
	if err != nil {
		t.Fatalf("GetTokenSupply: %v", err)
	}
	if supply == nil {
		t.Fatal("expected supply, got nil")
	}
	if supply.Decimals != 9 {
		t.Errorf("expected decimals 9, got %d", supply.Decimals)
	}
	if supply.UIAmount != 1.0 {
		t.Errorf("expected ui supply 1.0, got %f", supply.UIAmount)
	}
}

func TestHTTPClient_GetTokenSupply_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  map[string]interface{}{"value": nil},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	supply, err := client.GetTokenSupply(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetTokenSupply: %v", err)
	}
	if supply != nil {
		t.Errorf("expected nil for missing mint, got %+v", supply)
	}
}

func TestValidateAddress(t *testing.T) {
	valid := base58.Encode(testKey(7))
	if err := ValidateAddress(valid); err != nil {
		t.Errorf("expected valid address, got %v", err)
	}

	if err := ValidateAddress("not-base58-0OIl"); err == nil {
		t.Error("expected error for invalid base58")
	}

	short := base58.Encode([]byte{1, 2, 3})
	if err := ValidateAddress(short); err == nil {
		t.Error("expected error for short address")
	}
}

func TestIsOnCurve(t *testing.T) {
	// The ed25519 identity point is on the curve.
	identity := make([]byte, 32)
	identity[0] = 1
	if !IsOnCurve(identity) {
		t.Error("expected identity point on curve")
	}

	if IsOnCurve([]byte{1, 2, 3}) {
		t.Error("expected false for wrong length")
	}
}

func TestIsOnCurveAddress(t *testing.T) {
	identity := make([]byte, 32)
	identity[0] = 1
	if onCurve, decoded := IsOnCurveAddress(base58.Encode(identity)); !decoded || !onCurve {
		t.Errorf("expected identity encoding on curve: onCurve=%v decoded=%v", onCurve, decoded)
	}

	if _, decoded := IsOnCurveAddress("not-base58!"); decoded {
		t.Error("expected decoded false for invalid base58")
	}
	if _, decoded := IsOnCurveAddress(base58.Encode([]byte{1, 2, 3})); decoded {
		t.Error("expected decoded false for wrong length")
	}
}
