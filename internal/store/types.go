package store

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// OwnerType classifies a tracked address as a human wallet or an
// agent-controlled one.
type OwnerType string

const (
	OwnerTypeHuman OwnerType = "HUMAN"
	OwnerTypeAgent OwnerType = "AGENT"
)

// DomainOwner is the per-address aggregate entity. It is created lazily on the
// first event referencing the address and never deleted. Every field except
// FirstTransactionAt is updated in place by the aggregation fold functions.
type DomainOwner struct {
	ID      int64          `meddler:"id,pk" json:"-"`
	Address common.Address `meddler:"address,address" json:"address"`

	// OwnerType upgrades from HUMAN to AGENT and never reverts.
	OwnerType OwnerType `meddler:"owner_type" json:"owner_type"`

	TotalTransactions      uint64 `meddler:"total_transactions" json:"total_transactions"`
	SuccessfulTransactions uint64 `meddler:"successful_transactions" json:"successful_transactions"`
	FailedTransactions     uint64 `meddler:"failed_transactions" json:"failed_transactions"`

	TotalVolumeUSDC *big.Rat `meddler:"total_volume_usdc,rat" json:"total_volume_usdc"`
	TotalVolumeETH  *big.Rat `meddler:"total_volume_eth,rat" json:"total_volume_eth"`

	FirstTransactionAt int64 `meddler:"first_transaction_at" json:"first_transaction_at"`
	LastTransactionAt  int64 `meddler:"last_transaction_at" json:"last_transaction_at"`

	// UniqueContractsInteracted always equals len(InteractedContracts).
	UniqueContractsInteracted uint64 `meddler:"unique_contracts_interacted" json:"unique_contracts_interacted"`

	ReputationScore int64 `meddler:"reputation_score" json:"reputation_score"`
	LastScoreUpdate int64 `meddler:"last_score_update" json:"last_score_update"`

	// InteractedContracts is the contract-diversity set, persisted in the
	// owner_contracts join table.
	InteractedContracts map[common.Address]struct{} `meddler:"-" json:"-"`
}

// IsAgent reports whether the owner has been classified as an agent.
func (o *DomainOwner) IsAgent() bool {
	return o.OwnerType == OwnerTypeAgent
}

// MarkAgent upgrades the owner to AGENT. The classification is one-way.
func (o *DomainOwner) MarkAgent() {
	o.OwnerType = OwnerTypeAgent
}

// AddContract inserts a contract into the diversity set and keeps the
// persisted count in sync with the set size.
func (o *DomainOwner) AddContract(contract common.Address) {
	if o.InteractedContracts == nil {
		o.InteractedContracts = make(map[common.Address]struct{})
	}
	if _, seen := o.InteractedContracts[contract]; seen {
		return
	}
	o.InteractedContracts[contract] = struct{}{}
	o.UniqueContractsInteracted = uint64(len(o.InteractedContracts))
}

// Domain records a single registered domain name. It is created once on the
// registration event and immutable thereafter; owner_type is a snapshot of
// the owner's classification at registration time.
type Domain struct {
	ID           int64          `meddler:"id,pk" json:"-"`
	Name         string         `meddler:"name" json:"name"`
	OwnerAddress common.Address `meddler:"owner_address,address" json:"owner"`
	OwnerType    OwnerType      `meddler:"owner_type" json:"owner_type"`
	RegisteredAt int64          `meddler:"registered_at" json:"registered_at"`
	ExpiresAt    int64          `meddler:"expires_at" json:"expires_at"`
	IsActive     bool           `meddler:"is_active" json:"is_active"`
	Cost         *big.Rat       `meddler:"cost,rat" json:"cost"`
}

// Transaction is one row of the append-only processed-event ledger. EventID is
// the stable per-event identifier (tx hash + log index, with a suffix when one
// event touches two owners), so replaying the same logical event is visible as
// a duplicate.
type Transaction struct {
	ID           int64          `meddler:"id,pk" json:"-"`
	EventID      string         `meddler:"event_id" json:"event_id"`
	OwnerAddress common.Address `meddler:"owner_address,address" json:"owner"`
	BlockNumber  uint64         `meddler:"block_number" json:"block_number"`
	LogIndex     uint           `meddler:"log_index" json:"log_index"`
	Timestamp    int64          `meddler:"timestamp" json:"timestamp"`
	Successful   bool           `meddler:"successful" json:"successful"`
	ValueUSDC    *big.Rat       `meddler:"value_usdc,rat" json:"value_usdc"`
	ValueETH     *big.Rat       `meddler:"value_eth,rat" json:"value_eth"`
	ToContract   common.Address `meddler:"to_contract,address" json:"to_contract"`
	GasUsed      uint64         `meddler:"gas_used" json:"gas_used"`
	UserOpHash   *common.Hash   `meddler:"user_op_hash,hash" json:"user_op_hash,omitempty"`
}

// ScoreSnapshot is one row of the append-only per-owner score history,
// written once per processed event that recomputes an owner's score.
type ScoreSnapshot struct {
	ID           int64          `meddler:"id,pk" json:"-"`
	OwnerAddress common.Address `meddler:"owner_address,address" json:"owner"`
	Score        int64          `meddler:"score" json:"score"`
	Timestamp    int64          `meddler:"timestamp" json:"timestamp"`
	BlockNumber  uint64         `meddler:"block_number" json:"block_number"`
	LogIndex     uint           `meddler:"log_index" json:"log_index"`
}

// Cursor marks the last durably committed feed position. Events at or below
// the cursor are skipped on replay.
type Cursor struct {
	ID           int64  `meddler:"id,pk"`
	LastBlock    uint64 `meddler:"last_block"`
	LastLogIndex uint   `meddler:"last_log_index"`
	LastEventID  string `meddler:"last_event_id"`
	UpdatedAt    int64  `meddler:"updated_at"`
}

// Behind reports whether the given feed position is at or below the cursor,
// i.e. already committed.
func (c *Cursor) Behind(blockNumber uint64, logIndex uint) bool {
	if blockNumber != c.LastBlock {
		return blockNumber < c.LastBlock
	}
	return logIndex <= c.LastLogIndex
}
