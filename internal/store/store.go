package store

import (
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ReputationIndexor/internal/db"
	"github.com/goran-ethernal/ReputationIndexor/internal/logger"
	"github.com/goran-ethernal/ReputationIndexor/internal/metrics"
	"github.com/russross/meddler"
)

// ErrNotFound is returned by lookups for entities that do not exist.
var ErrNotFound = errors.New("not found")

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
	Exec(query string, args ...any) (sql.Result, error)
}

// Store is the durable keyed entity store: per-address aggregates, registered
// domains, the append-only transaction ledger and the score snapshot history.
// The ingestion driver is the single writer; the read API reads concurrently
// through SQLite's WAL mode.
type Store struct {
	db          *sql.DB
	log         *logger.Logger
	maintenance db.Maintenance
}

// New creates a Store over the given database connection.
func New(database *sql.DB, log *logger.Logger, maintenance db.Maintenance) *Store {
	if maintenance == nil {
		maintenance = &db.NoOpMaintenance{}
	}

	return &Store{
		db:          database,
		log:         log.WithComponent("store"),
		maintenance: maintenance,
	}
}

// Begin starts the per-event unit of work. All writes for one event must go
// through the returned transaction so they commit or fail as one.
func (s *Store) Begin() (*sql.Tx, error) {
	return s.db.Begin()
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// addrKey returns the canonical (lowercase hex) storage key for an address.
func addrKey(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

// LoadOrCreateOwner returns the aggregate entity for the address, creating a
// fresh HUMAN record with zeroed counters when the address is seen for the
// first time. firstSeen becomes both firstTransactionAt and lastTransactionAt
// of a new record.
func (s *Store) LoadOrCreateOwner(tx *sql.Tx, addr common.Address, firstSeen int64) (*DomainOwner, error) {
	owner, err := s.getOwner(tx, addr)
	if err == nil {
		return owner, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	owner = &DomainOwner{
		Address:             addr,
		OwnerType:           OwnerTypeHuman,
		TotalVolumeUSDC:     new(big.Rat),
		TotalVolumeETH:      new(big.Rat),
		FirstTransactionAt:  firstSeen,
		LastTransactionAt:   firstSeen,
		InteractedContracts: make(map[common.Address]struct{}),
	}

	if err := meddler.Insert(tx, "domain_owners", owner); err != nil {
		return nil, fmt.Errorf("failed to create owner %s: %w", addrKey(addr), err)
	}

	metrics.OwnerCreatedInc()
	s.log.Debugf("created owner %s at %d", addrKey(addr), firstSeen)

	return owner, nil
}

// FindOwner returns the aggregate entity for the address within the given
// transaction, or ErrNotFound. Unlike LoadOrCreateOwner it never creates a
// record, which is what transfer-style events need.
func (s *Store) FindOwner(tx *sql.Tx, addr common.Address) (*DomainOwner, error) {
	return s.getOwner(tx, addr)
}

// GetOwner returns the aggregate entity for the address, or ErrNotFound.
func (s *Store) GetOwner(addr common.Address) (*DomainOwner, error) {
	unlock := s.maintenance.AcquireOperationLock()
	defer unlock()

	return s.getOwner(s.db, addr)
}

func (s *Store) getOwner(q querier, addr common.Address) (*DomainOwner, error) {
	owner := new(DomainOwner)
	err := meddler.QueryRow(q, owner, `SELECT * FROM domain_owners WHERE address = ?`, addrKey(addr))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load owner %s: %w", addrKey(addr), err)
	}

	if err := s.loadContracts(q, owner); err != nil {
		return nil, err
	}

	return owner, nil
}

func (s *Store) loadContracts(q querier, owner *DomainOwner) error {
	rows, err := q.Query(`SELECT contract_address FROM owner_contracts WHERE owner_id = ?`, owner.ID)
	if err != nil {
		return fmt.Errorf("failed to load contract set for %s: %w", addrKey(owner.Address), err)
	}
	defer rows.Close()

	owner.InteractedContracts = make(map[common.Address]struct{})
	for rows.Next() {
		var contract string
		if err := rows.Scan(&contract); err != nil {
			return err
		}
		owner.InteractedContracts[common.HexToAddress(contract)] = struct{}{}
	}

	return rows.Err()
}

// SaveOwner persists the full aggregate record, overwriting the prior value
// for that address, and syncs the contract-diversity join table.
// Last-writer-wins is safe because the ingestion driver applies events
// single-threaded and in order.
func (s *Store) SaveOwner(tx *sql.Tx, owner *DomainOwner) error {
	if err := meddler.Update(tx, "domain_owners", owner); err != nil {
		return fmt.Errorf("failed to save owner %s: %w", addrKey(owner.Address), err)
	}

	for contract := range owner.InteractedContracts {
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO owner_contracts (owner_id, contract_address) VALUES (?, ?)`,
			owner.ID, addrKey(contract),
		); err != nil {
			return fmt.Errorf("failed to save contract set for %s: %w", addrKey(owner.Address), err)
		}
	}

	return nil
}

// InsertDomain records a newly registered domain.
func (s *Store) InsertDomain(tx *sql.Tx, domain *Domain) error {
	if err := meddler.Insert(tx, "domains", domain); err != nil {
		return fmt.Errorf("failed to insert domain %s: %w", domain.Name, err)
	}
	return nil
}

// GetDomain returns the domain registered under the given name, or ErrNotFound.
func (s *Store) GetDomain(name string) (*Domain, error) {
	unlock := s.maintenance.AcquireOperationLock()
	defer unlock()

	domain := new(Domain)
	err := meddler.QueryRow(s.db, domain, `SELECT * FROM domains WHERE name = ?`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load domain %s: %w", name, err)
	}

	return domain, nil
}

// AppendTransaction appends one row to the processed-event ledger.
func (s *Store) AppendTransaction(tx *sql.Tx, txn *Transaction) error {
	if err := meddler.Insert(tx, "transactions", txn); err != nil {
		return fmt.Errorf("failed to append transaction %s: %w", txn.EventID, err)
	}
	return nil
}

// AppendSnapshot appends one row to the per-owner score history.
func (s *Store) AppendSnapshot(tx *sql.Tx, snap *ScoreSnapshot) error {
	if err := meddler.Insert(tx, "score_snapshots", snap); err != nil {
		return fmt.Errorf("failed to append snapshot for %s: %w", addrKey(snap.OwnerAddress), err)
	}

	metrics.SnapshotWrittenInc()

	return nil
}

// ListTransactions returns the owner's ledger rows ordered by time.
func (s *Store) ListTransactions(addr common.Address, limit, offset int) ([]*Transaction, error) {
	unlock := s.maintenance.AcquireOperationLock()
	defer unlock()

	var txns []*Transaction
	err := meddler.QueryAll(s.db, &txns, `
		SELECT * FROM transactions
		WHERE owner_address = ?
		ORDER BY timestamp ASC, id ASC
		LIMIT ? OFFSET ?`,
		addrKey(addr), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions for %s: %w", addrKey(addr), err)
	}

	return txns, nil
}

// CountTransactions returns the total ledger rows for the owner.
func (s *Store) CountTransactions(addr common.Address) (int, error) {
	unlock := s.maintenance.AcquireOperationLock()
	defer unlock()

	var total int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM transactions WHERE owner_address = ?`, addrKey(addr)).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions for %s: %w", addrKey(addr), err)
	}

	return total, nil
}

// ListScoreHistory returns the owner's score snapshots within [fromTime, toTime],
// ordered by time. A zero toTime means no upper bound.
func (s *Store) ListScoreHistory(addr common.Address, fromTime, toTime int64) ([]*ScoreSnapshot, error) {
	unlock := s.maintenance.AcquireOperationLock()
	defer unlock()

	query := `SELECT * FROM score_snapshots WHERE owner_address = ? AND timestamp >= ?`
	args := []any{addrKey(addr), fromTime}

	if toTime > 0 {
		query += ` AND timestamp <= ?`
		args = append(args, toTime)
	}
	query += ` ORDER BY timestamp ASC, id ASC`

	var snaps []*ScoreSnapshot
	if err := meddler.QueryAll(s.db, &snaps, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list score history for %s: %w", addrKey(addr), err)
	}

	return snaps, nil
}

// Leaderboard returns owners ordered by reputation score. Owners with no
// observed activity (e.g. deployed agent wallets that never transacted) are
// filtered out unless includeZero is set.
func (s *Store) Leaderboard(limit, offset int, includeZero bool) ([]*DomainOwner, error) {
	unlock := s.maintenance.AcquireOperationLock()
	defer unlock()

	query := `SELECT * FROM domain_owners`
	if !includeZero {
		query += ` WHERE total_transactions > 0`
	}
	query += ` ORDER BY reputation_score DESC, total_transactions DESC, address ASC LIMIT ? OFFSET ?`

	var owners []*DomainOwner
	if err := meddler.QueryAll(s.db, &owners, query, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}

	for _, owner := range owners {
		if err := s.loadContracts(s.db, owner); err != nil {
			return nil, err
		}
	}

	return owners, nil
}

// CountOwners returns the number of owners eligible for the leaderboard.
func (s *Store) CountOwners(includeZero bool) (int, error) {
	unlock := s.maintenance.AcquireOperationLock()
	defer unlock()

	query := `SELECT COUNT(*) FROM domain_owners`
	if !includeZero {
		query += ` WHERE total_transactions > 0`
	}

	var total int
	if err := s.db.QueryRow(query).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count owners: %w", err)
	}

	return total, nil
}

// Stats summarizes the store contents and the committed feed position.
type Stats struct {
	Owners       int64  `json:"owners"`
	Agents       int64  `json:"agents"`
	Domains      int64  `json:"domains"`
	Transactions int64  `json:"transactions"`
	Snapshots    int64  `json:"snapshots"`
	LastBlock    uint64 `json:"last_block"`
	LastLogIndex uint   `json:"last_log_index"`
}

// GetStats returns store-wide counters for the stats endpoint.
func (s *Store) GetStats() (*Stats, error) {
	unlock := s.maintenance.AcquireOperationLock()
	defer unlock()

	stats := new(Stats)

	counts := []struct {
		query string
		dst   *int64
	}{
		{`SELECT COUNT(*) FROM domain_owners`, &stats.Owners},
		{`SELECT COUNT(*) FROM domain_owners WHERE owner_type = 'AGENT'`, &stats.Agents},
		{`SELECT COUNT(*) FROM domains`, &stats.Domains},
		{`SELECT COUNT(*) FROM transactions`, &stats.Transactions},
		{`SELECT COUNT(*) FROM score_snapshots`, &stats.Snapshots},
	}

	for _, c := range counts {
		if err := s.db.QueryRow(c.query).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("failed to gather stats: %w", err)
		}
	}

	cursor, err := s.GetCursor()
	if err != nil {
		return nil, err
	}
	stats.LastBlock = cursor.LastBlock
	stats.LastLogIndex = cursor.LastLogIndex

	return stats, nil
}

// GetCursor returns the committed feed position.
func (s *Store) GetCursor() (*Cursor, error) {
	cursor := new(Cursor)
	if err := meddler.QueryRow(s.db, cursor, `SELECT * FROM ingest_cursor WHERE id = 1`); err != nil {
		return nil, fmt.Errorf("failed to load ingest cursor: %w", err)
	}
	return cursor, nil
}

// SaveCursor advances the committed feed position inside the per-event
// transaction, making replay idempotent.
func (s *Store) SaveCursor(tx *sql.Tx, blockNumber uint64, logIndex uint, eventID string) error {
	cursor := &Cursor{
		ID:           1,
		LastBlock:    blockNumber,
		LastLogIndex: logIndex,
		LastEventID:  eventID,
		UpdatedAt:    time.Now().Unix(),
	}

	if err := meddler.Update(tx, "ingest_cursor", cursor); err != nil {
		return fmt.Errorf("failed to save ingest cursor: %w", err)
	}

	return nil
}

// AcquireOperationLock exposes the maintenance lock to the ingestion driver so
// commits do not interleave with vacuum/checkpoint runs.
func (s *Store) AcquireOperationLock() func() {
	return s.maintenance.AcquireOperationLock()
}
