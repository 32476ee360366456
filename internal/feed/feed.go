// Package feed produces transactions for tracked wallets. The synthetic
// source stands in for live chain parsing and emits plausible swap activity.
package feed

import (
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"tokenwise/internal/domain"
	"tokenwise/internal/observability"
)

// Source produces one transaction per call for a wallet drawn from the
// tracked set. Returns nil when there are no wallets to draw from.
type Source interface {
	Generate(wallets []string) *domain.Transaction
}

// Amount bounds for synthetic swaps, in UI token units.
const (
	minAmount = 10.0
	maxAmount = 1000.0
)

// Slot bounds for synthetic transactions.
const (
	minSlot = 100_000_000
	maxSlot = 200_000_000
)

// SyntheticSource generates random buy/sell transactions for the configured
// token.
type SyntheticSource struct {
	token string
	rng   *rand.Rand
	now   func() time.Time
}

// NewSyntheticSource creates a source for the given token address. A nil rng
// gets a time-seeded default.
func NewSyntheticSource(token string, rng *rand.Rand) *SyntheticSource {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &SyntheticSource{
		token: token,
		rng:   rng,
		now:   time.Now,
	}
}

// Compile-time interface check.
var _ Source = (*SyntheticSource)(nil)

// Generate produces a transaction for a uniformly chosen wallet.
func (s *SyntheticSource) Generate(wallets []string) *domain.Transaction {
	if len(wallets) == 0 {
		return nil
	}

	now := s.now().UTC()

	action := domain.ActionBuy
	if s.rng.Intn(2) == 1 {
		action = domain.ActionSell
	}

	protocols := domain.ProtocolNames()

	amount := minAmount + s.rng.Float64()*(maxAmount-minAmount)
	amount = math.Round(amount*10000) / 10000

	tx := &domain.Transaction{
		Signature:    newSignature(now),
		Timestamp:    now,
		Wallet:       wallets[s.rng.Intn(len(wallets))],
		TokenAddress: s.token,
		Amount:       amount,
		ActionType:   action,
		Protocol:     protocols[s.rng.Intn(len(protocols))],
		BlockTime:    now.Unix(),
		Slot:         minSlot + s.rng.Int63n(maxSlot-minSlot),
	}

	observability.RecordTransactionGenerated(action)
	return tx
}

// newSignature builds a unique synthetic signature from a dashless UUID and
// the current unix timestamp.
func newSignature(now time.Time) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "") + strconv.FormatInt(now.Unix(), 10)
}
