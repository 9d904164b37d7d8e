package reputation

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ReputationIndexor/internal/events"
	"github.com/goran-ethernal/ReputationIndexor/internal/store"
)

// On-chain fixed-point denominators: USDC carries 6 decimals, gas costs are
// denominated in wei (18 decimals).
var (
	usdcUnit = new(big.Int).Exp(big.NewInt(10), big.NewInt(6), nil)
	weiUnit  = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
)

// USDCToDecimal converts a raw 6-decimal USDC amount to a decimal value.
func USDCToDecimal(raw *big.Int) *big.Rat {
	if raw == nil {
		return new(big.Rat)
	}
	return new(big.Rat).SetFrac(raw, usdcUnit)
}

// WeiToDecimal converts a wei amount to a decimal ETH value.
func WeiToDecimal(raw *big.Int) *big.Rat {
	if raw == nil {
		return new(big.Rat)
	}
	return new(big.Rat).SetFrac(raw, weiUnit)
}

// The fold functions below apply one event to an owner's aggregate state,
// mutating the in-memory copy only. Persistence and score recomputation are
// the ingestion driver's job. Every fold keeps the invariants:
// counters and volumes never decrease, lastTransactionAt never moves
// backwards, uniqueContractsInteracted == len(InteractedContracts), and the
// HUMAN -> AGENT classification never reverts.

func touch(owner *store.DomainOwner, timestamp int64) {
	if timestamp > owner.LastTransactionAt {
		owner.LastTransactionAt = timestamp
	}
}

func addVolumeUSDC(owner *store.DomainOwner, amount *big.Rat) {
	if owner.TotalVolumeUSDC == nil {
		owner.TotalVolumeUSDC = new(big.Rat)
	}
	owner.TotalVolumeUSDC.Add(owner.TotalVolumeUSDC, amount)
}

func addVolumeETH(owner *store.DomainOwner, amount *big.Rat) {
	if owner.TotalVolumeETH == nil {
		owner.TotalVolumeETH = new(big.Rat)
	}
	owner.TotalVolumeETH.Add(owner.TotalVolumeETH, amount)
}

// ApplyNameRegistered folds a single-domain registration into the owner.
// Registrations routed through the EntryPoint classify the owner as an agent;
// a direct registration leaves an existing AGENT classification untouched.
func ApplyNameRegistered(owner *store.DomainOwner, ev *events.NameRegistered, entryPoint common.Address) {
	if ev.TxTo != nil && *ev.TxTo == entryPoint {
		owner.MarkAgent()
	}

	owner.TotalTransactions++
	owner.SuccessfulTransactions++
	touch(owner, ev.Timestamp)
	addVolumeUSDC(owner, USDCToDecimal(ev.Cost))
	owner.AddContract(ev.Contract)
}

// ApplyBatchRegistered folds an atomic batch registration into the owner.
// Batch registration is an agent-only capability, so the owner is forced to
// AGENT. The batch either fully succeeds or reverts, so all count
// registrations are successful.
func ApplyBatchRegistered(owner *store.DomainOwner, ev *events.BatchRegistered) {
	owner.MarkAgent()

	owner.TotalTransactions += ev.Count
	owner.SuccessfulTransactions += ev.Count
	touch(owner, ev.Timestamp)
	addVolumeUSDC(owner, USDCToDecimal(ev.TotalCost))
	owner.AddContract(ev.Contract)
}

// ApplyAgentWalletDeployed classifies both sides of a wallet deployment as
// agents: the domain owner that deployed the wallet and the wallet address
// itself, which becomes a tracked owner from this point on. No counters,
// volumes or timestamps change.
func ApplyAgentWalletDeployed(deployer, wallet *store.DomainOwner) {
	deployer.MarkAgent()
	wallet.MarkAgent()
}

// ApplyTokenTransfer folds one side of a USDC transfer into an already-known
// owner. The driver calls it once per known side; unknown counterparties never
// reach this function.
func ApplyTokenTransfer(owner *store.DomainOwner, ev *events.TokenTransfer) {
	owner.TotalTransactions++
	owner.SuccessfulTransactions++
	touch(owner, ev.Timestamp)
	addVolumeUSDC(owner, USDCToDecimal(ev.Value))
	owner.AddContract(ev.Contract)
}

// ApplyUserOperation folds an ERC-4337 execution receipt into the sending
// wallet's owner record. Using the EntryPoint at all is agent behavior, so the
// owner is forced to AGENT. Gas spend accumulates into the ETH volume whether
// or not the operation succeeded.
func ApplyUserOperation(owner *store.DomainOwner, ev *events.UserOperationExecuted) {
	owner.MarkAgent()

	owner.TotalTransactions++
	if ev.Success {
		owner.SuccessfulTransactions++
	} else {
		owner.FailedTransactions++
	}
	touch(owner, ev.Timestamp)
	addVolumeETH(owner, WeiToDecimal(ev.ActualGasCost))
	owner.AddContract(ev.Contract)
}
