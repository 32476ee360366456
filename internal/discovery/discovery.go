// Package discovery finds the top holders of a token and persists them
// as a ranked snapshot plus wallet trackers for ongoing monitoring.
package discovery

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"tokenwise/internal/domain"
	"tokenwise/internal/observability"
	"tokenwise/internal/solana"
	"tokenwise/internal/storage"
)

// DefaultTopHolders is the default snapshot size.
const DefaultTopHolders = 100

// Discoverer aggregates token accounts into per-owner holdings.
type Discoverer struct {
	rpc       solana.RPCClient
	snapshots storage.SnapshotStore
	trackers  storage.WalletTrackerStore
	topN      int
	log       zerolog.Logger
	now       func() time.Time
}

// NewDiscoverer creates a Discoverer. A non-positive topN falls back to
// DefaultTopHolders.
func NewDiscoverer(rpc solana.RPCClient, snapshots storage.SnapshotStore, trackers storage.WalletTrackerStore, topN int, log zerolog.Logger) *Discoverer {
	if topN <= 0 {
		topN = DefaultTopHolders
	}
	return &Discoverer{
		rpc:       rpc,
		snapshots: snapshots,
		trackers:  trackers,
		topN:      topN,
		log:       log,
		now:       time.Now,
	}
}

// Run performs one discovery pass for the given mint. A positive topN
// overrides the configured snapshot size for this pass. On any chain or
// storage error the previous snapshot is left untouched.
func (d *Discoverer) Run(ctx context.Context, tokenAddress string, topN int) (*domain.TokenHolderSnapshot, error) {
	started := d.now()
	if topN <= 0 {
		topN = d.topN
	}

	accounts, err := d.rpc.GetTokenAccountsByMint(ctx, tokenAddress)
	if err != nil {
		observability.RecordDiscoveryFailure()
		return nil, fmt.Errorf("fetch token accounts: %w", err)
	}

	supply, err := d.rpc.GetTokenSupply(ctx, tokenAddress)
	if err != nil {
		observability.RecordDiscoveryFailure()
		return nil, fmt.Errorf("fetch token supply: %w", err)
	}

	holders := aggregateHolders(accounts, supply)
	if len(holders) > topN {
		holders = holders[:topN]
	}

	var totalSupply float64
	if supply != nil {
		totalSupply = supply.UIAmount
		if totalSupply > 0 {
			for i := range holders {
				pct := holders[i].UIAmount / totalSupply * 100
				holders[i].Percentage = &pct
			}
		}
	}

	snapshot := &domain.TokenHolderSnapshot{
		TokenAddress: tokenAddress,
		Holders:      holders,
		TotalSupply:  totalSupply,
		HolderCount:  len(holders),
		LastUpdated:  d.now().UTC(),
	}

	if err := d.snapshots.Upsert(ctx, snapshot); err != nil {
		observability.RecordDiscoveryFailure()
		return nil, fmt.Errorf("persist snapshot: %w", err)
	}

	for _, h := range holders {
		tracker := &domain.WalletTracker{
			Address:      h.Owner,
			TrackedSince: snapshot.LastUpdated,
			Active:       isWalletOwner(h.Owner),
			Balance:      h.Balance,
			TokenAmount:  h.Balance,
		}
		if err := d.trackers.Upsert(ctx, tracker); err != nil {
			observability.RecordDiscoveryFailure()
			return nil, fmt.Errorf("persist tracker %s: %w", h.Owner, err)
		}
	}

	if count, err := d.trackers.CountActive(ctx); err == nil {
		observability.DefaultMetrics.TrackedWallets.Set(float64(count))
	}
	observability.RecordDiscoverySuccess(snapshot.HolderCount)
	observability.DefaultMetrics.LastSuccessfulDiscovery.SetToCurrentTime()
	observability.DefaultMetrics.DiscoveryDuration.Observe(d.now().Sub(started).Seconds())

	d.log.Info().
		Str("token", tokenAddress).
		Int("holders", snapshot.HolderCount).
		Float64("total_supply", totalSupply).
		Dur("took", d.now().Sub(started)).
		Msg("holder discovery completed")

	return snapshot, nil
}

// isWalletOwner reports whether an owner can be a monitorable wallet.
// Off-curve owners are program derived (pool and exchange vaults); their
// trackers are kept inactive so the feed skips them. Owners that do not
// decode cannot be classified and stay active.
func isWalletOwner(owner string) bool {
	onCurve, decoded := solana.IsOnCurveAddress(owner)
	return !decoded || onCurve
}

// aggregateHolders folds token accounts into one entry per owner, sorted by
// balance descending. The first account seen for an owner is kept as the
// representative address; stable sort preserves first-seen order on ties.
func aggregateHolders(accounts []solana.TokenAccount, supply *solana.TokenSupply) []domain.TokenHolder {
	var decimals uint8
	if supply != nil {
		decimals = supply.Decimals
	}
	divisor := math.Pow(10, float64(decimals))

	totals := make(map[string]uint64)
	representative := make(map[string]string)
	var order []string

	for _, acct := range accounts {
		if acct.Amount == 0 {
			continue
		}
		if _, seen := totals[acct.Owner]; !seen {
			order = append(order, acct.Owner)
			representative[acct.Owner] = acct.Pubkey
		}
		totals[acct.Owner] += acct.Amount
	}

	holders := make([]domain.TokenHolder, 0, len(order))
	for _, owner := range order {
		ui := float64(totals[owner]) / divisor
		holders = append(holders, domain.TokenHolder{
			Owner:    owner,
			Address:  representative[owner],
			Balance:  ui,
			UIAmount: ui,
			Decimals: decimals,
		})
	}

	sort.SliceStable(holders, func(i, j int) bool {
		return holders[i].Balance > holders[j].Balance
	})

	return holders
}
