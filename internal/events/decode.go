package events

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Event signatures of the five consumed event kinds.
const (
	sigNameRegistered      = "NameRegistered(address,string,uint256,uint256)"
	sigBatchRegistered     = "BatchRegistered(address,uint256,uint256)"
	sigAgentWalletDeployed = "AgentWalletDeployed(address,address)"
	sigTransfer            = "Transfer(address,address,uint256)"
	sigUserOperationEvent  = "UserOperationEvent(bytes32,address,address,uint256,bool,uint256,uint256)"
)

var (
	stringType  = mustNewType("string")
	uint256Type = mustNewType("uint256")
	boolType    = mustNewType("bool")

	// Non-indexed data layouts per event kind
	nameRegisteredData  = abi.Arguments{{Type: stringType}, {Type: uint256Type}, {Type: uint256Type}}
	batchRegisteredData = abi.Arguments{{Type: uint256Type}, {Type: uint256Type}}
	transferData        = abi.Arguments{{Type: uint256Type}}
	userOperationData   = abi.Arguments{{Type: uint256Type}, {Type: boolType}, {Type: uint256Type}, {Type: uint256Type}}
)

func mustNewType(t string) abi.Type {
	ty, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return ty
}

// Decoder decodes raw logs from the configured contracts into typed events.
// Decoding happens at the feed boundary; the aggregation code only ever sees
// typed, validated events.
type Decoder struct {
	registry      common.Address
	walletFactory common.Address
	token         common.Address
	entryPoint    common.Address

	nameRegisteredTopic      common.Hash
	batchRegisteredTopic     common.Hash
	agentWalletDeployedTopic common.Hash
	transferTopic            common.Hash
	userOperationTopic       common.Hash
}

// NewDecoder creates a Decoder bound to the given source contracts.
// A zero address disables decoding for that contract's event kinds.
func NewDecoder(registry, walletFactory, token, entryPoint common.Address) *Decoder {
	return &Decoder{
		registry:                 registry,
		walletFactory:            walletFactory,
		token:                    token,
		entryPoint:               entryPoint,
		nameRegisteredTopic:      crypto.Keccak256Hash([]byte(sigNameRegistered)),
		batchRegisteredTopic:     crypto.Keccak256Hash([]byte(sigBatchRegistered)),
		agentWalletDeployedTopic: crypto.Keccak256Hash([]byte(sigAgentWalletDeployed)),
		transferTopic:            crypto.Keccak256Hash([]byte(sigTransfer)),
		userOperationTopic:       crypto.Keccak256Hash([]byte(sigUserOperationEvent)),
	}
}

// EventsToIndex returns the address-to-topics filter for the log feed.
func (d *Decoder) EventsToIndex() map[common.Address][]common.Hash {
	filter := make(map[common.Address][]common.Hash)

	if d.registry != (common.Address{}) {
		filter[d.registry] = []common.Hash{d.nameRegisteredTopic, d.batchRegisteredTopic}
	}
	if d.walletFactory != (common.Address{}) {
		filter[d.walletFactory] = []common.Hash{d.agentWalletDeployedTopic}
	}
	if d.token != (common.Address{}) {
		filter[d.token] = []common.Hash{d.transferTopic}
	}
	if d.entryPoint != (common.Address{}) {
		filter[d.entryPoint] = []common.Hash{d.userOperationTopic}
	}

	return filter
}

// Decode converts a raw log into a typed event. It returns (nil, nil) for
// logs that do not match any consumed event kind, so callers can skip
// unrelated logs without treating them as errors.
func (d *Decoder) Decode(lg types.Log, blockTime int64) (Event, error) {
	if len(lg.Topics) == 0 {
		return nil, nil
	}

	meta := Meta{
		Contract:    lg.Address,
		BlockNumber: lg.BlockNumber,
		Timestamp:   blockTime,
		TxHash:      lg.TxHash,
		LogIndex:    lg.Index,
	}

	switch lg.Topics[0] {
	case d.nameRegisteredTopic:
		if lg.Address != d.registry {
			return nil, nil
		}
		return d.decodeNameRegistered(lg, meta)
	case d.batchRegisteredTopic:
		if lg.Address != d.registry {
			return nil, nil
		}
		return d.decodeBatchRegistered(lg, meta)
	case d.agentWalletDeployedTopic:
		if lg.Address != d.walletFactory {
			return nil, nil
		}
		return d.decodeAgentWalletDeployed(lg, meta)
	case d.transferTopic:
		if lg.Address != d.token {
			return nil, nil
		}
		return d.decodeTransfer(lg, meta)
	case d.userOperationTopic:
		if lg.Address != d.entryPoint {
			return nil, nil
		}
		return d.decodeUserOperation(lg, meta)
	default:
		return nil, nil
	}
}

func (d *Decoder) decodeNameRegistered(lg types.Log, meta Meta) (Event, error) {
	if len(lg.Topics) != 2 {
		return nil, fmt.Errorf("%w: NameRegistered expects 2 topics, got %d", ErrMalformedEvent, len(lg.Topics))
	}

	vals, err := nameRegisteredData.Unpack(lg.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: NameRegistered data: %v", ErrMalformedEvent, err)
	}

	name, _ := vals[0].(string)
	cost, _ := vals[1].(*big.Int)
	expires, _ := vals[2].(*big.Int)

	return &NameRegistered{
		Meta:    meta,
		Owner:   common.BytesToAddress(lg.Topics[1].Bytes()),
		Name:    name,
		Cost:    cost,
		Expires: expires.Int64(),
	}, nil
}

func (d *Decoder) decodeBatchRegistered(lg types.Log, meta Meta) (Event, error) {
	if len(lg.Topics) != 2 {
		return nil, fmt.Errorf("%w: BatchRegistered expects 2 topics, got %d", ErrMalformedEvent, len(lg.Topics))
	}

	vals, err := batchRegisteredData.Unpack(lg.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: BatchRegistered data: %v", ErrMalformedEvent, err)
	}

	count, _ := vals[0].(*big.Int)
	totalCost, _ := vals[1].(*big.Int)

	return &BatchRegistered{
		Meta:      meta,
		Owner:     common.BytesToAddress(lg.Topics[1].Bytes()),
		Count:     count.Uint64(),
		TotalCost: totalCost,
	}, nil
}

func (d *Decoder) decodeAgentWalletDeployed(lg types.Log, meta Meta) (Event, error) {
	if len(lg.Topics) != 3 {
		return nil, fmt.Errorf("%w: AgentWalletDeployed expects 3 topics, got %d", ErrMalformedEvent, len(lg.Topics))
	}

	return &AgentWalletDeployed{
		Meta:   meta,
		Owner:  common.BytesToAddress(lg.Topics[1].Bytes()),
		Wallet: common.BytesToAddress(lg.Topics[2].Bytes()),
	}, nil
}

func (d *Decoder) decodeTransfer(lg types.Log, meta Meta) (Event, error) {
	if len(lg.Topics) != 3 {
		return nil, fmt.Errorf("%w: Transfer expects 3 topics, got %d", ErrMalformedEvent, len(lg.Topics))
	}

	vals, err := transferData.Unpack(lg.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: Transfer data: %v", ErrMalformedEvent, err)
	}

	value, _ := vals[0].(*big.Int)

	return &TokenTransfer{
		Meta:  meta,
		From:  common.BytesToAddress(lg.Topics[1].Bytes()),
		To:    common.BytesToAddress(lg.Topics[2].Bytes()),
		Value: value,
	}, nil
}

func (d *Decoder) decodeUserOperation(lg types.Log, meta Meta) (Event, error) {
	if len(lg.Topics) != 4 {
		return nil, fmt.Errorf("%w: UserOperationEvent expects 4 topics, got %d", ErrMalformedEvent, len(lg.Topics))
	}

	vals, err := userOperationData.Unpack(lg.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: UserOperationEvent data: %v", ErrMalformedEvent, err)
	}

	success, _ := vals[1].(bool)
	actualGasCost, _ := vals[2].(*big.Int)
	actualGasUsed, _ := vals[3].(*big.Int)

	return &UserOperationExecuted{
		Meta:          meta,
		Sender:        common.BytesToAddress(lg.Topics[2].Bytes()),
		Success:       success,
		ActualGasCost: actualGasCost,
		ActualGasUsed: actualGasUsed,
		UserOpHash:    lg.Topics[1],
	}, nil
}
