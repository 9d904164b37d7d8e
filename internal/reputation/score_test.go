package reputation

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ReputationIndexor/internal/store"
	"github.com/goran-ethernal/ReputationIndexor/pkg/config"
	"github.com/stretchr/testify/require"
)

func defaultScoring(t *testing.T) config.ScoringConfig {
	t.Helper()

	cfg := config.ScoringConfig{}
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())

	return cfg
}

func TestScoreZeroActivity(t *testing.T) {
	t.Parallel()

	owner := &store.DomainOwner{
		Address:         common.HexToAddress("0xaaa1"),
		OwnerType:       store.OwnerTypeAgent,
		TotalVolumeUSDC: big.NewRat(500, 1),
		TotalVolumeETH:  new(big.Rat),
	}

	require.EqualValues(t, 0, Score(owner, 1_700_000_000, defaultScoring(t)))
}

func TestScoreFreshRegistration(t *testing.T) {
	t.Parallel()

	// One successful registration costing 5 USDC, scored at the event time:
	// 1/100*20 + 1*25 + 0 + 5/10000*20 + 1/20*10 + 1*10 = 35.71 -> 36
	now := int64(1_700_000_000)
	owner := &store.DomainOwner{
		Address:                   common.HexToAddress("0xaaa1"),
		OwnerType:                 store.OwnerTypeHuman,
		TotalTransactions:         1,
		SuccessfulTransactions:    1,
		TotalVolumeUSDC:           big.NewRat(5, 1),
		TotalVolumeETH:            new(big.Rat),
		FirstTransactionAt:        now,
		LastTransactionAt:         now,
		UniqueContractsInteracted: 1,
	}

	require.EqualValues(t, 36, Score(owner, now, defaultScoring(t)))
}

func TestScoreAllFactorsCapped(t *testing.T) {
	t.Parallel()

	now := int64(1_700_000_000)
	owner := &store.DomainOwner{
		TotalTransactions:         1_000_000,
		SuccessfulTransactions:    1_000_000,
		TotalVolumeUSDC:           big.NewRat(1_000_000, 1),
		TotalVolumeETH:            new(big.Rat),
		FirstTransactionAt:        now - 10*365*86400,
		LastTransactionAt:         now,
		UniqueContractsInteracted: 500,
	}

	require.EqualValues(t, 100, Score(owner, now, defaultScoring(t)))
}

func TestScoreRecencyDecay(t *testing.T) {
	t.Parallel()

	now := int64(1_700_000_000)
	base := &store.DomainOwner{
		TotalTransactions:         1_000_000,
		SuccessfulTransactions:    1_000_000,
		TotalVolumeUSDC:           big.NewRat(1_000_000, 1),
		TotalVolumeETH:            new(big.Rat),
		FirstTransactionAt:        now - 10*365*86400,
		UniqueContractsInteracted: 500,
	}

	tests := []struct {
		name      string
		lastTxAgo int64
		wantScore int64
	}{
		{
			name:      "active now gets the full recency factor",
			lastTxAgo: 0,
			wantScore: 100,
		},
		{
			name:      "half the window decays half the factor",
			lastTxAgo: 45 * 86400,
			wantScore: 95,
		},
		{
			name:      "exactly at the window boundary contributes zero",
			lastTxAgo: 90 * 86400,
			wantScore: 90,
		},
		{
			name:      "far past the window still contributes zero",
			lastTxAgo: 400 * 86400,
			wantScore: 90,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			owner := *base
			owner.LastTransactionAt = now - tt.lastTxAgo
			require.EqualValues(t, tt.wantScore, Score(&owner, now, defaultScoring(t)))
		})
	}
}

func TestScoreBounds(t *testing.T) {
	t.Parallel()

	now := int64(1_700_000_000)
	owners := []*store.DomainOwner{
		{
			TotalTransactions:  1,
			FirstTransactionAt: now,
			LastTransactionAt:  now - 1000*86400,
			TotalVolumeUSDC:    new(big.Rat),
			TotalVolumeETH:     new(big.Rat),
		},
		{
			TotalTransactions:         1 << 60,
			SuccessfulTransactions:    1 << 60,
			TotalVolumeUSDC:           big.NewRat(1<<62, 1),
			TotalVolumeETH:            new(big.Rat),
			FirstTransactionAt:        1,
			LastTransactionAt:         now,
			UniqueContractsInteracted: 1 << 40,
		},
	}

	for _, owner := range owners {
		score := Score(owner, now, defaultScoring(t))
		require.GreaterOrEqual(t, score, int64(0))
		require.LessOrEqual(t, score, int64(100))
	}
}

func TestScoreDeterminism(t *testing.T) {
	t.Parallel()

	now := int64(1_700_000_000)
	owner := &store.DomainOwner{
		TotalTransactions:         37,
		SuccessfulTransactions:    31,
		FailedTransactions:        6,
		TotalVolumeUSDC:           big.NewRat(123456789, 1000000),
		TotalVolumeETH:            big.NewRat(987654321, 1000000000),
		FirstTransactionAt:        now - 123*86400 - 4567,
		LastTransactionAt:         now - 11*86400 - 321,
		UniqueContractsInteracted: 7,
	}

	first := Score(owner, now, defaultScoring(t))
	for range 100 {
		require.Equal(t, first, Score(owner, now, defaultScoring(t)))
	}
}

func TestScoreSuccessRate(t *testing.T) {
	t.Parallel()

	// Only the success-rate factor moves: a lone failed transaction at the
	// recency boundary with no volume or diversity.
	now := int64(1_700_000_000)
	owner := &store.DomainOwner{
		TotalTransactions:  100,
		FailedTransactions: 100,
		TotalVolumeUSDC:    new(big.Rat),
		TotalVolumeETH:     new(big.Rat),
		FirstTransactionAt: now,
		LastTransactionAt:  now - 90*86400,
	}

	// tx count capped at 100/100 -> 20 points, everything else zero
	require.EqualValues(t, 20, Score(owner, now, defaultScoring(t)))

	owner.SuccessfulTransactions = 50
	owner.FailedTransactions = 50

	// plus 50/100 of the 25-point success factor
	require.EqualValues(t, 33, Score(owner, now, defaultScoring(t)))
}

func TestRoundHalfUp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value *big.Rat
		want  int64
	}{
		{big.NewRat(0, 1), 0},
		{big.NewRat(1, 2), 1},
		{big.NewRat(3571, 100), 36},
		{big.NewRat(355, 10), 36},
		{big.NewRat(3549, 100), 35},
		{big.NewRat(100, 1), 100},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, roundHalfUp(tt.value), "rounding %s", tt.value.RatString())
	}
}

func TestCustomWeights(t *testing.T) {
	t.Parallel()

	cfg := config.ScoringConfig{
		TxCountWeight:        40,
		TxCountTarget:        10,
		SuccessRateWeight:    10,
		AccountAgeWeight:     10,
		AccountAgeTargetDays: 30,
		VolumeWeight:         20,
		VolumeTargetUSDC:     100,
		DiversityWeight:      10,
		DiversityTarget:      5,
		RecencyWeight:        10,
		RecencyWindowDays:    7,
	}
	require.NoError(t, cfg.Validate())

	now := int64(1_700_000_000)
	owner := &store.DomainOwner{
		TotalTransactions:         10,
		SuccessfulTransactions:    10,
		TotalVolumeUSDC:           big.NewRat(100, 1),
		TotalVolumeETH:            new(big.Rat),
		FirstTransactionAt:        now - 30*86400,
		LastTransactionAt:         now,
		UniqueContractsInteracted: 5,
	}

	require.EqualValues(t, 100, Score(owner, now, cfg))
}
