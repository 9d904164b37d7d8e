package db

import (
	"database/sql"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/russross/meddler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type meddlerRow struct {
	ID      int64           `meddler:"id,pk"`
	Addr    common.Address  `meddler:"addr,address"`
	AddrPtr *common.Address `meddler:"addr_ptr,address"`
	Hash    common.Hash     `meddler:"hash,hash"`
	HashPtr *common.Hash    `meddler:"hash_ptr,hash"`
	Amount  *big.Rat        `meddler:"amount,rat"`
}

func newMeddlerTestDB(t *testing.T) *sql.DB {
	t.Helper()

	database, err := NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	_, err = database.Exec(`CREATE TABLE rows (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		addr TEXT NOT NULL,
		addr_ptr TEXT,
		hash TEXT NOT NULL,
		hash_ptr TEXT,
		amount TEXT NOT NULL
	)`)
	require.NoError(t, err)

	return database
}

func TestMeddlerRoundTrip(t *testing.T) {
	t.Parallel()

	database := newMeddlerTestDB(t)

	addr := common.HexToAddress("0xAbCd000000000000000000000000000000000001")
	ptrAddr := common.HexToAddress("0x2000000000000000000000000000000000000002")
	hash := common.HexToHash("0xdead")
	ptrHash := common.HexToHash("0xbeef")

	row := &meddlerRow{
		Addr:    addr,
		AddrPtr: &ptrAddr,
		Hash:    hash,
		HashPtr: &ptrHash,
		Amount:  big.NewRat(123456789, 1000000),
	}
	require.NoError(t, meddler.Insert(database, "rows", row))
	require.NotZero(t, row.ID)

	got := new(meddlerRow)
	require.NoError(t, meddler.QueryRow(database, got, `SELECT * FROM rows WHERE id = ?`, row.ID))

	assert.Equal(t, addr, got.Addr)
	require.NotNil(t, got.AddrPtr)
	assert.Equal(t, ptrAddr, *got.AddrPtr)
	assert.Equal(t, hash, got.Hash)
	require.NotNil(t, got.HashPtr)
	assert.Equal(t, ptrHash, *got.HashPtr)
	assert.Equal(t, "123456789/1000000", got.Amount.RatString())
}

func TestMeddlerNilPointers(t *testing.T) {
	t.Parallel()

	database := newMeddlerTestDB(t)

	row := &meddlerRow{
		Addr:   common.HexToAddress("0x1"),
		Hash:   common.HexToHash("0x2"),
		Amount: new(big.Rat),
	}
	require.NoError(t, meddler.Insert(database, "rows", row))

	got := new(meddlerRow)
	require.NoError(t, meddler.QueryRow(database, got, `SELECT * FROM rows WHERE id = ?`, row.ID))

	assert.Nil(t, got.AddrPtr)
	assert.Nil(t, got.HashPtr)
	assert.Equal(t, "0", got.Amount.RatString())
}

func TestMeddlerStoresCanonicalAddresses(t *testing.T) {
	t.Parallel()

	database := newMeddlerTestDB(t)

	row := &meddlerRow{
		Addr:   common.HexToAddress("0xABCD000000000000000000000000000000000001"),
		Hash:   common.HexToHash("0x1"),
		Amount: new(big.Rat),
	}
	require.NoError(t, meddler.Insert(database, "rows", row))

	var stored string
	require.NoError(t, database.QueryRow(`SELECT addr FROM rows WHERE id = ?`, row.ID).Scan(&stored))
	assert.Equal(t, "0xabcd000000000000000000000000000000000001", stored)
}

func TestMeddlerRatPrecision(t *testing.T) {
	t.Parallel()

	database := newMeddlerTestDB(t)

	// One wei in ETH terms needs the full 18 fractional digits.
	oneWei := new(big.Rat).SetFrac(big.NewInt(1), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))

	row := &meddlerRow{
		Addr:   common.HexToAddress("0x1"),
		Hash:   common.HexToHash("0x1"),
		Amount: oneWei,
	}
	require.NoError(t, meddler.Insert(database, "rows", row))

	got := new(meddlerRow)
	require.NoError(t, meddler.QueryRow(database, got, `SELECT * FROM rows WHERE id = ?`, row.ID))
	assert.Equal(t, 0, got.Amount.Cmp(oneWei))
}
