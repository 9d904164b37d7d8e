package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"math/big"
	"math/rand"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ReputationIndexor/internal/events"
	"github.com/goran-ethernal/ReputationIndexor/internal/feed"
	"github.com/goran-ethernal/ReputationIndexor/internal/logger"
	"github.com/goran-ethernal/ReputationIndexor/internal/metrics"
	"github.com/goran-ethernal/ReputationIndexor/internal/reputation"
	"github.com/goran-ethernal/ReputationIndexor/internal/store"
	"github.com/goran-ethernal/ReputationIndexor/pkg/config"
)

// State is the driver's processing state. The driver is Idle between events,
// Applying while an event's unit of work is in flight, briefly Committed
// after a durable commit, and Failed when it halted on an unrecoverable
// error.
type State string

const (
	StateIdle      State = "idle"
	StateApplying  State = "applying"
	StateCommitted State = "committed"
	StateFailed    State = "failed"
)

// Driver consumes the ordered event feed and folds each event into the
// entity store: load the affected owners, apply the aggregation fold,
// recompute scores, then persist the owner updates, ledger rows, snapshots
// and the feed cursor in one transaction per event. Processing is
// single-threaded; event N+1 is not touched until event N's commit is
// durable.
type Driver struct {
	feed       feed.Feed
	store      *store.Store
	entryPoint common.Address
	scoring    config.ScoringConfig
	cfg        config.IngestConfig
	log        *logger.Logger

	mu     sync.RWMutex
	state  State
	cursor *store.Cursor
}

// New creates an ingestion driver.
func New(
	eventFeed feed.Feed,
	entityStore *store.Store,
	entryPoint common.Address,
	scoring config.ScoringConfig,
	cfg config.IngestConfig,
	log *logger.Logger,
) *Driver {
	return &Driver{
		feed:       eventFeed,
		store:      entityStore,
		entryPoint: entryPoint,
		scoring:    scoring,
		cfg:        cfg,
		log:        log.WithComponent("ingest"),
		state:      StateIdle,
	}
}

// State returns the driver's current processing state.
func (d *Driver) State() State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

func (d *Driver) setState(s State) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}

// Run pulls events from the feed until the context is cancelled or the
// driver fails. It runs for the lifetime of the feed; there is no "done".
func (d *Driver) Run(ctx context.Context) error {
	cursor, err := d.store.GetCursor()
	if err != nil {
		return err
	}
	d.cursor = cursor

	d.log.Infow("starting ingestion",
		"last_block", cursor.LastBlock,
		"last_log_index", cursor.LastLogIndex,
	)
	metrics.LastIngestedBlockSet(cursor.LastBlock)
	metrics.ComponentHealthSet("ingest", true)

	for {
		ev, err := d.feed.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			if errors.Is(err, events.ErrMalformedEvent) {
				if d.skipMalformed(err) {
					continue
				}
				d.fail()
				return fmt.Errorf("halting on malformed event: %w", err)
			}

			d.fail()
			return fmt.Errorf("event feed failed: %w", err)
		}

		if err := d.processEvent(ctx, ev); err != nil {
			d.fail()
			return err
		}
	}
}

func (d *Driver) fail() {
	d.setState(StateFailed)
	metrics.ComponentHealthSet("ingest", false)
}

// skipMalformed reports whether the driver is configured to log and skip
// malformed events. Skipping does not advance the cursor: a malformed event
// has no derivable writes, so replays simply skip it again.
func (d *Driver) skipMalformed(err error) bool {
	metrics.EventMalformedInc()

	if !d.cfg.SkipMalformed {
		return false
	}

	d.log.Warnw("skipping malformed event", "error", err)
	metrics.EventSkippedInc("malformed")

	return true
}

// processEvent validates and commits one event. Events at or below the
// committed cursor were already applied in a previous run and are skipped,
// which makes feed replay idempotent.
func (d *Driver) processEvent(ctx context.Context, ev events.Event) error {
	meta := ev.EventMeta()

	if d.cursor.Behind(meta.BlockNumber, meta.LogIndex) {
		d.log.Debugw("skipping replayed event", "event_id", meta.ID())
		metrics.EventSkippedInc("replayed")
		return nil
	}

	if err := ev.Validate(); err != nil {
		if d.skipMalformed(err) {
			return nil
		}
		return fmt.Errorf("halting on malformed event %s: %w", meta.ID(), err)
	}

	d.setState(StateApplying)
	start := time.Now()

	if err := d.commitWithRetry(ctx, ev); err != nil {
		return fmt.Errorf("event %s: %w", meta.ID(), err)
	}

	d.setState(StateCommitted)

	d.cursor.LastBlock = meta.BlockNumber
	d.cursor.LastLogIndex = meta.LogIndex
	d.cursor.LastEventID = meta.ID()

	metrics.EventProcessedInc(string(ev.Kind()))
	metrics.EventProcessingTimeLog(string(ev.Kind()), time.Since(start))
	metrics.LastIngestedBlockSet(meta.BlockNumber)

	d.setState(StateIdle)

	return nil
}

// commitWithRetry retries the per-event unit of work with exponential
// backoff. Every attempt re-reads the owners from the last committed state
// inside a fresh transaction, so a retry never folds on top of a partial
// write.
func (d *Driver) commitWithRetry(ctx context.Context, ev events.Event) error {
	retry := d.cfg.CommitRetry
	if retry == nil {
		return d.applyOnce(ev)
	}

	var lastErr error
	for attempt := 1; attempt <= retry.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = d.applyOnce(ev)
		if lastErr == nil {
			return nil
		}

		if attempt >= retry.MaxAttempts {
			break
		}

		metrics.CommitRetryInc()
		backoff := commitBackoff(attempt, retry)
		d.log.Warnw("commit failed, retrying",
			"attempt", attempt,
			"max_attempts", retry.MaxAttempts,
			"backoff", backoff,
			"error", lastErr,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	return fmt.Errorf("commit failed after %d attempts: %w", retry.MaxAttempts, lastErr)
}

// commitBackoff computes the backoff before the next commit attempt with
// jitter.
func commitBackoff(attempt int, cfg *config.RetryConfig) time.Duration {
	backoff := float64(cfg.InitialBackoff.Duration) * math.Pow(cfg.BackoffMultiplier, float64(attempt-1))
	if backoff > float64(cfg.MaxBackoff.Duration) {
		backoff = float64(cfg.MaxBackoff.Duration)
	}

	jitterRange := backoff * 0.25
	backoff += (rand.Float64() * 2 * jitterRange) - jitterRange
	if backoff < 0 {
		backoff = 0
	}

	return time.Duration(backoff)
}

// applyOnce runs the full unit of work for one event: owner folds, score
// recomputation, ledger/snapshot appends and the cursor advance, all in one
// transaction.
func (d *Driver) applyOnce(ev events.Event) (err error) {
	unlock := d.store.AcquireOperationLock()
	defer unlock()

	tx, err := d.store.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			d.log.Errorw("failed to rollback transaction", "error", rollbackErr)
		}
	}()

	switch e := ev.(type) {
	case *events.NameRegistered:
		err = d.applyNameRegistered(tx, e)
	case *events.BatchRegistered:
		err = d.applyBatchRegistered(tx, e)
	case *events.AgentWalletDeployed:
		err = d.applyAgentWalletDeployed(tx, e)
	case *events.TokenTransfer:
		err = d.applyTokenTransfer(tx, e)
	case *events.UserOperationExecuted:
		err = d.applyUserOperation(tx, e)
	default:
		return fmt.Errorf("unsupported event kind %s", ev.Kind())
	}
	if err != nil {
		return err
	}

	meta := ev.EventMeta()
	if err := d.store.SaveCursor(tx, meta.BlockNumber, meta.LogIndex, meta.ID()); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	return nil
}

// saveScored recomputes the owner's score at the event timestamp, persists
// the owner and appends the score snapshot. Scoring against the event
// timestamp rather than wall-clock time keeps replays byte-identical.
func (d *Driver) saveScored(tx *sql.Tx, owner *store.DomainOwner, meta events.Meta) error {
	wasAgent := owner.IsAgent()

	score := reputation.Score(owner, meta.Timestamp, d.scoring)
	owner.ReputationScore = score
	owner.LastScoreUpdate = meta.Timestamp
	metrics.ScoreComputedLog(score)

	if err := d.store.SaveOwner(tx, owner); err != nil {
		return err
	}

	if owner.IsAgent() && !wasAgent {
		metrics.AgentClassifiedInc()
	}

	return d.store.AppendSnapshot(tx, &store.ScoreSnapshot{
		OwnerAddress: owner.Address,
		Score:        score,
		Timestamp:    meta.Timestamp,
		BlockNumber:  meta.BlockNumber,
		LogIndex:     meta.LogIndex,
	})
}

func (d *Driver) applyNameRegistered(tx *sql.Tx, ev *events.NameRegistered) error {
	owner, err := d.store.LoadOrCreateOwner(tx, ev.Owner, ev.Timestamp)
	if err != nil {
		return err
	}
	wasAgent := owner.IsAgent()

	reputation.ApplyNameRegistered(owner, ev, d.entryPoint)
	if owner.IsAgent() && !wasAgent {
		d.log.Infow("owner classified as agent via EntryPoint registration", "owner", ev.Owner.Hex())
	}

	if err := d.saveScored(tx, owner, ev.Meta); err != nil {
		return err
	}

	if err := d.store.InsertDomain(tx, &store.Domain{
		Name:         ev.Name,
		OwnerAddress: ev.Owner,
		OwnerType:    owner.OwnerType,
		RegisteredAt: ev.Timestamp,
		ExpiresAt:    ev.Expires,
		IsActive:     true,
		Cost:         reputation.USDCToDecimal(ev.Cost),
	}); err != nil {
		return err
	}

	return d.store.AppendTransaction(tx, &store.Transaction{
		EventID:      ev.ID(),
		OwnerAddress: ev.Owner,
		BlockNumber:  ev.BlockNumber,
		LogIndex:     ev.LogIndex,
		Timestamp:    ev.Timestamp,
		Successful:   true,
		ValueUSDC:    reputation.USDCToDecimal(ev.Cost),
		ValueETH:     new(big.Rat),
		ToContract:   ev.Contract,
	})
}

func (d *Driver) applyBatchRegistered(tx *sql.Tx, ev *events.BatchRegistered) error {
	owner, err := d.store.LoadOrCreateOwner(tx, ev.Owner, ev.Timestamp)
	if err != nil {
		return err
	}

	reputation.ApplyBatchRegistered(owner, ev)

	if err := d.saveScored(tx, owner, ev.Meta); err != nil {
		return err
	}

	return d.store.AppendTransaction(tx, &store.Transaction{
		EventID:      ev.ID(),
		OwnerAddress: ev.Owner,
		BlockNumber:  ev.BlockNumber,
		LogIndex:     ev.LogIndex,
		Timestamp:    ev.Timestamp,
		Successful:   true,
		ValueUSDC:    reputation.USDCToDecimal(ev.TotalCost),
		ValueETH:     new(big.Rat),
		ToContract:   ev.Contract,
	})
}

// applyAgentWalletDeployed classifies the deployer and the freshly deployed
// wallet as agents. No counters move and no ledger row is written; the wallet
// becomes a tracked owner with zero activity.
func (d *Driver) applyAgentWalletDeployed(tx *sql.Tx, ev *events.AgentWalletDeployed) error {
	deployer, err := d.store.LoadOrCreateOwner(tx, ev.Owner, ev.Timestamp)
	if err != nil {
		return err
	}
	wallet, err := d.store.LoadOrCreateOwner(tx, ev.Wallet, ev.Timestamp)
	if err != nil {
		return err
	}

	deployerWasAgent := deployer.IsAgent()
	walletWasAgent := wallet.IsAgent()

	reputation.ApplyAgentWalletDeployed(deployer, wallet)

	for _, change := range []struct {
		owner    *store.DomainOwner
		wasAgent bool
	}{
		{deployer, deployerWasAgent},
		{wallet, walletWasAgent},
	} {
		if err := d.store.SaveOwner(tx, change.owner); err != nil {
			return err
		}
		if !change.wasAgent {
			metrics.AgentClassifiedInc()
		}
	}

	return nil
}

// applyTokenTransfer folds a USDC transfer into the sides already tracked by
// the store. Unknown counterparties are ignored; transfers never create
// owners. The from side is applied before the to side so self-transfers fold
// sequentially.
func (d *Driver) applyTokenTransfer(tx *sql.Tx, ev *events.TokenTransfer) error {
	known := 0

	for _, side := range []struct {
		addr   common.Address
		suffix string
	}{
		{ev.From, "from"},
		{ev.To, "to"},
	} {
		owner, err := d.store.FindOwner(tx, side.addr)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		known++

		reputation.ApplyTokenTransfer(owner, ev)

		if err := d.saveScored(tx, owner, ev.Meta); err != nil {
			return err
		}

		if err := d.store.AppendTransaction(tx, &store.Transaction{
			EventID:      fmt.Sprintf("%s-%s", ev.ID(), side.suffix),
			OwnerAddress: side.addr,
			BlockNumber:  ev.BlockNumber,
			LogIndex:     ev.LogIndex,
			Timestamp:    ev.Timestamp,
			Successful:   true,
			ValueUSDC:    reputation.USDCToDecimal(ev.Value),
			ValueETH:     new(big.Rat),
			ToContract:   ev.Contract,
		}); err != nil {
			return err
		}
	}

	if known == 0 {
		metrics.EventSkippedInc("unknown_address")
	}

	return nil
}

// applyUserOperation folds an ERC-4337 execution receipt into the sending
// wallet, if it is tracked. Unknown senders are a no-op.
func (d *Driver) applyUserOperation(tx *sql.Tx, ev *events.UserOperationExecuted) error {
	owner, err := d.store.FindOwner(tx, ev.Sender)
	if errors.Is(err, store.ErrNotFound) {
		metrics.EventSkippedInc("unknown_address")
		return nil
	}
	if err != nil {
		return err
	}

	reputation.ApplyUserOperation(owner, ev)

	if err := d.saveScored(tx, owner, ev.Meta); err != nil {
		return err
	}

	userOpHash := ev.UserOpHash

	return d.store.AppendTransaction(tx, &store.Transaction{
		EventID:      ev.ID(),
		OwnerAddress: ev.Sender,
		BlockNumber:  ev.BlockNumber,
		LogIndex:     ev.LogIndex,
		Timestamp:    ev.Timestamp,
		Successful:   ev.Success,
		ValueUSDC:    new(big.Rat),
		ValueETH:     reputation.WeiToDecimal(ev.ActualGasCost),
		ToContract:   ev.Contract,
		GasUsed:      ev.ActualGasUsed.Uint64(),
		UserOpHash:   &userOpHash,
	})
}
