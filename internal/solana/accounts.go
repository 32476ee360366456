package solana

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"
)

// TokenProgramID is the SPL Token Program address.
const TokenProgramID = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5mW"

// tokenAccountSize is the fixed byte size of an SPL token account.
const tokenAccountSize = 165

// GetTokenAccountsByMint retrieves all token accounts holding the given mint
// via getProgramAccounts with a byte-offset match on the mint field.
func (c *HTTPClient) GetTokenAccountsByMint(ctx context.Context, mint string) ([]TokenAccount, error) {
	params := []interface{}{
		TokenProgramID,
		map[string]interface{}{
			"encoding":   "base64",
			"commitment": "confirmed",
			"filters": []interface{}{
				map[string]interface{}{"dataSize": tokenAccountSize},
				map[string]interface{}{
					"memcmp": map[string]interface{}{"offset": 0, "bytes": mint},
				},
			},
		},
	}

	var result []programAccountResult
	if err := c.call(ctx, "getProgramAccounts", params, &result, 0); err != nil {
		return nil, err
	}

	accounts := make([]TokenAccount, 0, len(result))
	for _, r := range result {
		if len(r.Account.Data) < 1 {
			continue
		}
		acct, err := ParseTokenAccount(r.Account.Data[0])
		if err != nil {
			return nil, fmt.Errorf("parse token account %s: %w", r.Pubkey, err)
		}
		acct.Pubkey = r.Pubkey
		accounts = append(accounts, acct)
	}

	return accounts, nil
}

// programAccountResult is one raw entry from getProgramAccounts.
type programAccountResult struct {
	Pubkey  string `json:"pubkey"`
	Account struct {
		Data  []string `json:"data"` // [base64_data, encoding]
		Owner string   `json:"owner"`
	} `json:"account"`
}

// ParseTokenAccount parses base64-encoded SPL token account data.
// Layout: mint(32) | owner(32) | amount(8 LE) | ...
func ParseTokenAccount(data string) (TokenAccount, error) {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return TokenAccount{}, fmt.Errorf("decode account data: %w", err)
	}
	if len(decoded) < 72 {
		return TokenAccount{}, fmt.Errorf("account data too short: %d bytes", len(decoded))
	}

	return TokenAccount{
		Mint:   base58.Encode(decoded[:32]),
		Owner:  base58.Encode(decoded[32:64]),
		Amount: binary.LittleEndian.Uint64(decoded[64:72]),
	}, nil
}

// GetTokenSupply retrieves supply and decimals for a mint by parsing the
// mint account. Returns nil if the mint account does not exist.
func (c *HTTPClient) GetTokenSupply(ctx context.Context, mint string) (*TokenSupply, error) {
	params := []interface{}{
		mint,
		map[string]interface{}{
			"encoding":   "base64",
			"commitment": "confirmed",
		},
	}

	var result struct {
		Value *struct {
			Data []string `json:"data"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getAccountInfo", params, &result, 0); err != nil {
		return nil, err
	}

	if result.Value == nil || len(result.Value.Data) < 1 {
		return nil, nil
	}

	supply, err := ParseMintAccount(result.Value.Data[0])
	if err != nil {
		return nil, fmt.Errorf("parse mint account %s: %w", mint, err)
	}
	return supply, nil
}

// ParseMintAccount parses base64-encoded SPL mint account data.
// Layout: mint_authority_option(4) | mint_authority(32) | supply(8 LE) | decimals(1) | ...
func ParseMintAccount(data string) (*TokenSupply, error) {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode mint data: %w", err)
	}
	if len(decoded) < 45 {
		return nil, fmt.Errorf("mint data too short: %d bytes", len(decoded))
	}

	supply := binary.LittleEndian.Uint64(decoded[36:44])
	decimals := decoded[44]

	return &TokenSupply{
		Amount:   supply,
		Decimals: decimals,
		UIAmount: float64(supply) / pow10(decimals),
	}, nil
}

// pow10 returns 10^n as a float64.
func pow10(n uint8) float64 {
	result := 1.0
	for i := uint8(0); i < n; i++ {
		result *= 10
	}
	return result
}
