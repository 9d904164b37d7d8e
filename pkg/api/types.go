package api

import (
	"strings"
	"time"

	"github.com/goran-ethernal/ReputationIndexor/internal/store"
)

// Decimal digits used when rendering volume accumulators.
const (
	usdcDecimals = 6
	ethDecimals  = 18
)

// OwnerResponse is the API representation of an owner aggregate.
type OwnerResponse struct {
	Address                   string   `json:"address"`
	OwnerType                 string   `json:"owner_type"`
	TotalTransactions         uint64   `json:"total_transactions"`
	SuccessfulTransactions    uint64   `json:"successful_transactions"`
	FailedTransactions        uint64   `json:"failed_transactions"`
	TotalVolumeUSDC           string   `json:"total_volume_usdc"`
	TotalVolumeETH            string   `json:"total_volume_eth"`
	FirstTransactionAt        int64    `json:"first_transaction_at"`
	LastTransactionAt         int64    `json:"last_transaction_at"`
	UniqueContractsInteracted uint64   `json:"unique_contracts_interacted"`
	InteractedContracts       []string `json:"interacted_contracts"`
	ReputationScore           int64    `json:"reputation_score"`
	LastScoreUpdate           int64    `json:"last_score_update"`
}

func newOwnerResponse(owner *store.DomainOwner) OwnerResponse {
	contracts := make([]string, 0, len(owner.InteractedContracts))
	for contract := range owner.InteractedContracts {
		contracts = append(contracts, strings.ToLower(contract.Hex()))
	}

	return OwnerResponse{
		Address:                   strings.ToLower(owner.Address.Hex()),
		OwnerType:                 string(owner.OwnerType),
		TotalTransactions:         owner.TotalTransactions,
		SuccessfulTransactions:    owner.SuccessfulTransactions,
		FailedTransactions:        owner.FailedTransactions,
		TotalVolumeUSDC:           owner.TotalVolumeUSDC.FloatString(usdcDecimals),
		TotalVolumeETH:            owner.TotalVolumeETH.FloatString(ethDecimals),
		FirstTransactionAt:        owner.FirstTransactionAt,
		LastTransactionAt:         owner.LastTransactionAt,
		UniqueContractsInteracted: owner.UniqueContractsInteracted,
		InteractedContracts:       contracts,
		ReputationScore:           owner.ReputationScore,
		LastScoreUpdate:           owner.LastScoreUpdate,
	}
}

// DomainResponse is the API representation of a registered domain.
type DomainResponse struct {
	Name         string `json:"name"`
	Owner        string `json:"owner"`
	OwnerType    string `json:"owner_type"`
	RegisteredAt int64  `json:"registered_at"`
	ExpiresAt    int64  `json:"expires_at"`
	IsActive     bool   `json:"is_active"`
	Cost         string `json:"cost"`
}

func newDomainResponse(domain *store.Domain) DomainResponse {
	return DomainResponse{
		Name:         domain.Name,
		Owner:        strings.ToLower(domain.OwnerAddress.Hex()),
		OwnerType:    string(domain.OwnerType),
		RegisteredAt: domain.RegisteredAt,
		ExpiresAt:    domain.ExpiresAt,
		IsActive:     domain.IsActive,
		Cost:         domain.Cost.FloatString(usdcDecimals),
	}
}

// TransactionResponse is one ledger row in API form.
type TransactionResponse struct {
	EventID     string  `json:"event_id"`
	Owner       string  `json:"owner"`
	BlockNumber uint64  `json:"block_number"`
	LogIndex    uint    `json:"log_index"`
	Timestamp   int64   `json:"timestamp"`
	Successful  bool    `json:"successful"`
	ValueUSDC   string  `json:"value_usdc"`
	ValueETH    string  `json:"value_eth"`
	ToContract  string  `json:"to_contract"`
	GasUsed     uint64  `json:"gas_used"`
	UserOpHash  *string `json:"user_op_hash,omitempty"`
}

func newTransactionResponse(txn *store.Transaction) TransactionResponse {
	resp := TransactionResponse{
		EventID:     txn.EventID,
		Owner:       strings.ToLower(txn.OwnerAddress.Hex()),
		BlockNumber: txn.BlockNumber,
		LogIndex:    txn.LogIndex,
		Timestamp:   txn.Timestamp,
		Successful:  txn.Successful,
		ValueUSDC:   txn.ValueUSDC.FloatString(usdcDecimals),
		ValueETH:    txn.ValueETH.FloatString(ethDecimals),
		ToContract:  strings.ToLower(txn.ToContract.Hex()),
		GasUsed:     txn.GasUsed,
	}

	if txn.UserOpHash != nil {
		hash := txn.UserOpHash.Hex()
		resp.UserOpHash = &hash
	}

	return resp
}

// ScoreSnapshotResponse is one score history point in API form.
type ScoreSnapshotResponse struct {
	Owner       string `json:"owner"`
	Score       int64  `json:"score"`
	Timestamp   int64  `json:"timestamp"`
	BlockNumber uint64 `json:"block_number"`
	LogIndex    uint   `json:"log_index"`
}

func newScoreSnapshotResponse(snap *store.ScoreSnapshot) ScoreSnapshotResponse {
	return ScoreSnapshotResponse{
		Owner:       strings.ToLower(snap.OwnerAddress.Hex()),
		Score:       snap.Score,
		Timestamp:   snap.Timestamp,
		BlockNumber: snap.BlockNumber,
		LogIndex:    snap.LogIndex,
	}
}

// PaginationResult contains pagination information for list responses.
type PaginationResult struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// TransactionsResponse is the paginated ledger listing for one owner.
type TransactionsResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	Pagination   PaginationResult      `json:"pagination"`
}

// ScoreHistoryResponse is the score-over-time listing for one owner.
type ScoreHistoryResponse struct {
	History []ScoreSnapshotResponse `json:"history"`
}

// LeaderboardResponse is the score-ordered owner listing.
type LeaderboardResponse struct {
	Owners     []OwnerResponse  `json:"owners"`
	Pagination PaginationResult `json:"pagination"`
}

// HealthResponse reports service health and ingestion progress.
type HealthResponse struct {
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	IngestState  string    `json:"ingest_state"`
	LastBlock    uint64    `json:"last_block"`
	LastLogIndex uint      `json:"last_log_index"`
}

// ErrorResponse is the error body returned by all endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
