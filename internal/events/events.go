package events

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ErrMalformedEvent marks events that fail validation. The ingestion driver
// treats these as fatal for the feed position unless skip-and-continue is
// configured.
var ErrMalformedEvent = errors.New("malformed event")

// Kind identifies one of the five consumed event kinds.
type Kind string

const (
	KindNameRegistered        Kind = "NameRegistered"
	KindBatchRegistered       Kind = "BatchRegistered"
	KindAgentWalletDeployed   Kind = "AgentWalletDeployed"
	KindTokenTransfer         Kind = "TokenTransfer"
	KindUserOperationExecuted Kind = "UserOperationExecuted"
)

// Meta is the envelope every consumed event carries: the emitting contract
// and the event's position in the log.
type Meta struct {
	// Contract is the address of the contract that emitted the event
	Contract common.Address

	// BlockNumber is the block the event was included in
	BlockNumber uint64

	// Timestamp is the block timestamp in Unix seconds
	Timestamp int64

	// TxHash is the hash of the enclosing transaction
	TxHash common.Hash

	// LogIndex is the index of the log within the block
	LogIndex uint
}

// EventMeta returns the event envelope.
func (m Meta) EventMeta() Meta { return m }

// ID returns the stable per-event identifier: tx hash plus log index,
// unique even when one transaction emits multiple events.
func (m Meta) ID() string {
	return fmt.Sprintf("%s-%d", m.TxHash.Hex(), m.LogIndex)
}

func (m Meta) validate() error {
	if m.TxHash == (common.Hash{}) {
		return fmt.Errorf("%w: missing transaction hash", ErrMalformedEvent)
	}
	if m.Timestamp <= 0 {
		return fmt.Errorf("%w: missing block timestamp", ErrMalformedEvent)
	}
	return nil
}

// Event is a decoded, immutable on-chain event consumed by the indexer.
type Event interface {
	Kind() Kind
	EventMeta() Meta
	Validate() error
}

// NameRegistered is emitted by the registry when a single domain is registered.
type NameRegistered struct {
	Meta

	// Owner is the registering address
	Owner common.Address

	// Name is the fully-qualified domain name
	Name string

	// Cost is the registration cost in raw USDC units (6 decimals)
	Cost *big.Int

	// Expires is the registration expiry as a Unix timestamp
	Expires int64

	// TxTo is the `to` address of the enclosing transaction. Registrations
	// routed through the EntryPoint classify the owner as an agent.
	TxTo *common.Address
}

func (e *NameRegistered) Kind() Kind { return KindNameRegistered }

func (e *NameRegistered) Validate() error {
	if err := e.validate(); err != nil {
		return err
	}
	if e.Owner == (common.Address{}) {
		return fmt.Errorf("%w: NameRegistered missing owner", ErrMalformedEvent)
	}
	if e.Name == "" {
		return fmt.Errorf("%w: NameRegistered missing name", ErrMalformedEvent)
	}
	if e.Cost == nil || e.Cost.Sign() < 0 {
		return fmt.Errorf("%w: NameRegistered cost missing or negative", ErrMalformedEvent)
	}
	return nil
}

// BatchRegistered is emitted by the registry when multiple domains are
// registered in one atomic call. Batch registration is an agent-only
// capability.
type BatchRegistered struct {
	Meta

	// Owner is the registering address
	Owner common.Address

	// Count is the number of domains registered in the batch
	Count uint64

	// TotalCost is the total cost in raw USDC units (6 decimals)
	TotalCost *big.Int
}

func (e *BatchRegistered) Kind() Kind { return KindBatchRegistered }

func (e *BatchRegistered) Validate() error {
	if err := e.validate(); err != nil {
		return err
	}
	if e.Owner == (common.Address{}) {
		return fmt.Errorf("%w: BatchRegistered missing owner", ErrMalformedEvent)
	}
	if e.Count == 0 {
		return fmt.Errorf("%w: BatchRegistered count must be positive", ErrMalformedEvent)
	}
	if e.TotalCost == nil || e.TotalCost.Sign() < 0 {
		return fmt.Errorf("%w: BatchRegistered total cost missing or negative", ErrMalformedEvent)
	}
	return nil
}

// AgentWalletDeployed is emitted by the wallet factory when a domain owner
// deploys a smart-contract wallet.
type AgentWalletDeployed struct {
	Meta

	// Owner is the domain owner that deployed the wallet
	Owner common.Address

	// Wallet is the address of the deployed wallet
	Wallet common.Address
}

func (e *AgentWalletDeployed) Kind() Kind { return KindAgentWalletDeployed }

func (e *AgentWalletDeployed) Validate() error {
	if err := e.validate(); err != nil {
		return err
	}
	if e.Owner == (common.Address{}) {
		return fmt.Errorf("%w: AgentWalletDeployed missing owner", ErrMalformedEvent)
	}
	if e.Wallet == (common.Address{}) {
		return fmt.Errorf("%w: AgentWalletDeployed missing wallet", ErrMalformedEvent)
	}
	return nil
}

// TokenTransfer is a USDC-denominated ERC-20 Transfer.
type TokenTransfer struct {
	Meta

	From common.Address
	To   common.Address

	// Value is the transferred amount in raw USDC units (6 decimals)
	Value *big.Int
}

func (e *TokenTransfer) Kind() Kind { return KindTokenTransfer }

func (e *TokenTransfer) Validate() error {
	if err := e.validate(); err != nil {
		return err
	}
	if e.Value == nil || e.Value.Sign() < 0 {
		return fmt.Errorf("%w: TokenTransfer value missing or negative", ErrMalformedEvent)
	}
	return nil
}

// UserOperationExecuted is the EntryPoint's receipt for an ERC-4337
// meta-transaction.
type UserOperationExecuted struct {
	Meta

	// Sender is the smart-contract wallet the operation was executed for
	Sender common.Address

	// Success reports whether the operation's execution succeeded
	Success bool

	// ActualGasCost is the gas cost paid, in wei
	ActualGasCost *big.Int

	// ActualGasUsed is the total gas used by the operation
	ActualGasUsed *big.Int

	// UserOpHash is the unique hash of the user operation
	UserOpHash common.Hash
}

func (e *UserOperationExecuted) Kind() Kind { return KindUserOperationExecuted }

func (e *UserOperationExecuted) Validate() error {
	if err := e.validate(); err != nil {
		return err
	}
	if e.Sender == (common.Address{}) {
		return fmt.Errorf("%w: UserOperationExecuted missing sender", ErrMalformedEvent)
	}
	if e.ActualGasCost == nil || e.ActualGasCost.Sign() < 0 {
		return fmt.Errorf("%w: UserOperationExecuted gas cost missing or negative", ErrMalformedEvent)
	}
	if e.ActualGasUsed == nil || e.ActualGasUsed.Sign() < 0 {
		return fmt.Errorf("%w: UserOperationExecuted gas used missing or negative", ErrMalformedEvent)
	}
	return nil
}
