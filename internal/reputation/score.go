package reputation

import (
	"math/big"

	"github.com/goran-ethernal/ReputationIndexor/internal/store"
	"github.com/goran-ethernal/ReputationIndexor/pkg/config"
)

const (
	secondsPerDay = 86400

	scoreFloor = 0
	scoreCap   = 100
)

var (
	ratOne  = big.NewRat(1, 1)
	ratHalf = big.NewRat(1, 2)
)

// Score computes the bounded reputation score for an owner at the given
// reference time. The six factor sub-scores are summed, rounded half-up and
// clamped to [0, 100]. All arithmetic is rational, so identical inputs always
// produce the identical score on every platform.
//
// An owner with no observed activity scores 0 regardless of its other fields.
func Score(owner *store.DomainOwner, now int64, cfg config.ScoringConfig) int64 {
	if owner.TotalTransactions == 0 {
		return 0
	}

	sum := new(big.Rat)
	sum.Add(sum, cappedFactor(new(big.Rat).SetUint64(owner.TotalTransactions), cfg.TxCountTarget, cfg.TxCountWeight))
	sum.Add(sum, successFactor(owner, cfg.SuccessRateWeight))
	sum.Add(sum, cappedFactor(daysSince(owner.FirstTransactionAt, now), cfg.AccountAgeTargetDays, cfg.AccountAgeWeight))
	sum.Add(sum, cappedFactor(owner.TotalVolumeUSDC, cfg.VolumeTargetUSDC, cfg.VolumeWeight))
	sum.Add(sum, cappedFactor(new(big.Rat).SetUint64(owner.UniqueContractsInteracted), cfg.DiversityTarget, cfg.DiversityWeight))
	sum.Add(sum, recencyFactor(daysSince(owner.LastTransactionAt, now), cfg.RecencyWindowDays, cfg.RecencyWeight))

	score := roundHalfUp(sum)
	if score < scoreFloor {
		return scoreFloor
	}
	if score > scoreCap {
		return scoreCap
	}
	return score
}

// cappedFactor computes min(value/target, 1) * weight.
func cappedFactor(value *big.Rat, target, weight int64) *big.Rat {
	if value == nil || value.Sign() <= 0 {
		return new(big.Rat)
	}

	ratio := new(big.Rat).Quo(value, new(big.Rat).SetInt64(target))
	if ratio.Cmp(ratOne) > 0 {
		ratio.Set(ratOne)
	}

	return ratio.Mul(ratio, new(big.Rat).SetInt64(weight))
}

// successFactor computes (successful/total) * weight. Total is known to be
// positive here.
func successFactor(owner *store.DomainOwner, weight int64) *big.Rat {
	ratio := new(big.Rat).SetFrac(
		new(big.Int).SetUint64(owner.SuccessfulTransactions),
		new(big.Int).SetUint64(owner.TotalTransactions),
	)

	return ratio.Mul(ratio, new(big.Rat).SetInt64(weight))
}

// recencyFactor computes max(0, 1 - days/window) * weight, a linear decay to
// zero over the recency window.
func recencyFactor(days *big.Rat, windowDays, weight int64) *big.Rat {
	decay := new(big.Rat).Quo(days, new(big.Rat).SetInt64(windowDays))

	remaining := new(big.Rat).Sub(ratOne, decay)
	if remaining.Sign() < 0 {
		return new(big.Rat)
	}

	return remaining.Mul(remaining, new(big.Rat).SetInt64(weight))
}

// daysSince returns (now - then) / 86400 as an exact rational, clamped at
// zero for timestamps that are not in the past.
func daysSince(then, now int64) *big.Rat {
	if now <= then {
		return new(big.Rat)
	}
	return big.NewRat(now-then, secondsPerDay)
}

// roundHalfUp rounds a non-negative rational half-up to an integer:
// floor(x + 1/2).
func roundHalfUp(x *big.Rat) int64 {
	shifted := new(big.Rat).Add(x, ratHalf)
	return new(big.Int).Quo(shifted.Num(), shifted.Denom()).Int64()
}
