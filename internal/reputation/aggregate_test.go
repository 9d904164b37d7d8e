package reputation

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ReputationIndexor/internal/events"
	"github.com/goran-ethernal/ReputationIndexor/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	registryAddr   = common.HexToAddress("0x1000000000000000000000000000000000000001")
	tokenAddr      = common.HexToAddress("0x1000000000000000000000000000000000000003")
	entryPointAddr = common.HexToAddress("0x1000000000000000000000000000000000000004")
	ownerAddr      = common.HexToAddress("0x2000000000000000000000000000000000000001")
)

func newOwner(firstSeen int64) *store.DomainOwner {
	return &store.DomainOwner{
		Address:            ownerAddr,
		OwnerType:          store.OwnerTypeHuman,
		TotalVolumeUSDC:    new(big.Rat),
		TotalVolumeETH:     new(big.Rat),
		FirstTransactionAt: firstSeen,
		LastTransactionAt:  firstSeen,
	}
}

func meta(ts int64, contract common.Address) events.Meta {
	return events.Meta{
		Contract:    contract,
		BlockNumber: 100,
		Timestamp:   ts,
		TxHash:      common.HexToHash("0xabc1"),
		LogIndex:    3,
	}
}

func TestUSDCToDecimal(t *testing.T) {
	t.Parallel()

	require.Equal(t, "5", USDCToDecimal(big.NewInt(5_000_000)).RatString())
	require.Equal(t, "1/1000000", USDCToDecimal(big.NewInt(1)).RatString())
	require.Equal(t, "0", USDCToDecimal(nil).RatString())
}

func TestWeiToDecimal(t *testing.T) {
	t.Parallel()

	oneEth := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	require.Equal(t, "1", WeiToDecimal(oneEth).RatString())
	require.Equal(t, "21/1000000", WeiToDecimal(big.NewInt(21_000_000_000_000)).RatString())
	require.Equal(t, "0", WeiToDecimal(nil).RatString())
}

func TestApplyNameRegistered(t *testing.T) {
	t.Parallel()

	owner := newOwner(1000)
	ev := &events.NameRegistered{
		Meta:    meta(2000, registryAddr),
		Owner:   ownerAddr,
		Name:    "alice.eth",
		Cost:    big.NewInt(5_000_000),
		Expires: 4000,
	}

	ApplyNameRegistered(owner, ev, entryPointAddr)

	assert.Equal(t, store.OwnerTypeHuman, owner.OwnerType)
	assert.EqualValues(t, 1, owner.TotalTransactions)
	assert.EqualValues(t, 1, owner.SuccessfulTransactions)
	assert.EqualValues(t, 0, owner.FailedTransactions)
	assert.Equal(t, "5", owner.TotalVolumeUSDC.RatString())
	assert.EqualValues(t, 2000, owner.LastTransactionAt)
	assert.EqualValues(t, 1000, owner.FirstTransactionAt)
	assert.EqualValues(t, 1, owner.UniqueContractsInteracted)
	assert.Contains(t, owner.InteractedContracts, registryAddr)
}

func TestApplyNameRegisteredViaEntryPoint(t *testing.T) {
	t.Parallel()

	owner := newOwner(1000)
	ev := &events.NameRegistered{
		Meta:  meta(2000, registryAddr),
		Owner: ownerAddr,
		Name:  "bot.eth",
		Cost:  big.NewInt(5_000_000),
		TxTo:  &entryPointAddr,
	}

	ApplyNameRegistered(owner, ev, entryPointAddr)
	assert.True(t, owner.IsAgent())

	// Classification never reverts on a later direct registration.
	direct := &events.NameRegistered{
		Meta:  meta(3000, registryAddr),
		Owner: ownerAddr,
		Name:  "bot2.eth",
		Cost:  big.NewInt(5_000_000),
	}
	ApplyNameRegistered(owner, direct, entryPointAddr)
	assert.True(t, owner.IsAgent())
}

func TestApplyBatchRegistered(t *testing.T) {
	t.Parallel()

	owner := newOwner(1000)
	ev := &events.BatchRegistered{
		Meta:      meta(2000, registryAddr),
		Owner:     ownerAddr,
		Count:     5,
		TotalCost: big.NewInt(25_000_000),
	}

	ApplyBatchRegistered(owner, ev)

	assert.True(t, owner.IsAgent())
	assert.EqualValues(t, 5, owner.TotalTransactions)
	assert.EqualValues(t, 5, owner.SuccessfulTransactions)
	assert.Equal(t, "25", owner.TotalVolumeUSDC.RatString())
	assert.EqualValues(t, 1, owner.UniqueContractsInteracted)
}

func TestApplyAgentWalletDeployed(t *testing.T) {
	t.Parallel()

	deployer := newOwner(1000)
	wallet := newOwner(2000)

	ApplyAgentWalletDeployed(deployer, wallet)

	assert.True(t, deployer.IsAgent())
	assert.True(t, wallet.IsAgent())

	// Only the classification changes.
	assert.EqualValues(t, 0, deployer.TotalTransactions)
	assert.Equal(t, "0", deployer.TotalVolumeUSDC.RatString())
	assert.EqualValues(t, 1000, deployer.LastTransactionAt)
	assert.EqualValues(t, 0, wallet.TotalTransactions)
}

func TestApplyTokenTransfer(t *testing.T) {
	t.Parallel()

	owner := newOwner(1000)
	ev := &events.TokenTransfer{
		Meta:  meta(2000, tokenAddr),
		From:  ownerAddr,
		To:    common.HexToAddress("0x2000000000000000000000000000000000000002"),
		Value: big.NewInt(1_500_000),
	}

	ApplyTokenTransfer(owner, ev)

	assert.Equal(t, store.OwnerTypeHuman, owner.OwnerType)
	assert.EqualValues(t, 1, owner.TotalTransactions)
	assert.EqualValues(t, 1, owner.SuccessfulTransactions)
	assert.Equal(t, "3/2", owner.TotalVolumeUSDC.RatString())
	assert.Contains(t, owner.InteractedContracts, tokenAddr)
}

func TestApplyUserOperation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		success        bool
		wantSuccessful uint64
		wantFailed     uint64
	}{
		{name: "successful operation", success: true, wantSuccessful: 1, wantFailed: 0},
		{name: "failed operation still accrues gas", success: false, wantSuccessful: 0, wantFailed: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			owner := newOwner(1000)
			ev := &events.UserOperationExecuted{
				Meta:          meta(2000, entryPointAddr),
				Sender:        ownerAddr,
				Success:       tt.success,
				ActualGasCost: big.NewInt(21_000_000_000_000),
				ActualGasUsed: big.NewInt(21000),
				UserOpHash:    common.HexToHash("0xdead"),
			}

			ApplyUserOperation(owner, ev)

			assert.True(t, owner.IsAgent())
			assert.EqualValues(t, 1, owner.TotalTransactions)
			assert.Equal(t, tt.wantSuccessful, owner.SuccessfulTransactions)
			assert.Equal(t, tt.wantFailed, owner.FailedTransactions)
			assert.Equal(t, "21/1000000", owner.TotalVolumeETH.RatString())
		})
	}
}

func TestDiversityCountsDistinctContracts(t *testing.T) {
	t.Parallel()

	owner := newOwner(1000)

	for i := range 3 {
		ApplyTokenTransfer(owner, &events.TokenTransfer{
			Meta:  meta(int64(2000+i), tokenAddr),
			From:  ownerAddr,
			Value: big.NewInt(1),
		})
	}
	ApplyNameRegistered(owner, &events.NameRegistered{
		Meta:  meta(3000, registryAddr),
		Owner: ownerAddr,
		Name:  "alice.eth",
		Cost:  big.NewInt(0),
	}, entryPointAddr)

	assert.EqualValues(t, 2, owner.UniqueContractsInteracted)
	assert.Len(t, owner.InteractedContracts, 2)
}

func TestLastTransactionAtMonotonic(t *testing.T) {
	t.Parallel()

	owner := newOwner(1000)
	owner.LastTransactionAt = 5000

	ApplyTokenTransfer(owner, &events.TokenTransfer{
		Meta:  meta(2000, tokenAddr),
		From:  ownerAddr,
		Value: big.NewInt(1),
	})

	assert.EqualValues(t, 5000, owner.LastTransactionAt)
}
