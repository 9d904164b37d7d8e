package feed

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/ReputationIndexor/internal/events"
	"github.com/goran-ethernal/ReputationIndexor/internal/logger"
	"github.com/goran-ethernal/ReputationIndexor/internal/metrics"
	"github.com/goran-ethernal/ReputationIndexor/internal/rpc"
	itypes "github.com/goran-ethernal/ReputationIndexor/internal/types"
	"github.com/goran-ethernal/ReputationIndexor/pkg/config"
)

// item is one buffered feed position: a decoded event, or the decode error
// for the log at that position.
type item struct {
	event events.Event
	err   error
}

// LogFeed polls an Ethereum RPC endpoint for logs of the configured contracts
// and delivers them as typed events in (block number, log index) order. It
// fetches block ranges in chunks, resolves block timestamps in batch, and for
// registration events also resolves the enclosing transaction's `to` address
// so the driver can classify the owner.
type LogFeed struct {
	cfg      config.FeedConfig
	finality itypes.BlockFinality
	rpc      *rpc.Client
	decoder  *events.Decoder
	log      *logger.Logger

	addresses []common.Address
	topics    [][]common.Hash

	chunkSize uint64
	nextBlock uint64
	buffer    []item
}

// NewLogFeed creates a LogFeed that starts fetching at startBlock.
func NewLogFeed(
	cfg config.FeedConfig,
	rpcClient *rpc.Client,
	decoder *events.Decoder,
	startBlock uint64,
	log *logger.Logger,
) (*LogFeed, error) {
	finality, err := itypes.ParseBlockFinality(cfg.Finality)
	if err != nil {
		return nil, err
	}

	// One query covers all contracts: the address list plus an OR filter over
	// the event topics. The decoder drops address/topic pairings that do not
	// belong together.
	filter := decoder.EventsToIndex()
	addresses := make([]common.Address, 0, len(filter))
	var topic0 []common.Hash
	for addr, topics := range filter {
		addresses = append(addresses, addr)
		topic0 = append(topic0, topics...)
	}
	sort.Slice(addresses, func(i, j int) bool {
		return addresses[i].Cmp(addresses[j]) < 0
	})

	return &LogFeed{
		cfg:       cfg,
		finality:  finality,
		rpc:       rpcClient,
		decoder:   decoder,
		log:       log.WithComponent("feed"),
		addresses: addresses,
		topics:    [][]common.Hash{topic0},
		chunkSize: cfg.ChunkSize,
		nextBlock: startBlock,
	}, nil
}

// Next returns the next event in (block number, log index) order, blocking
// until one is available or the context is cancelled.
func (f *LogFeed) Next(ctx context.Context) (events.Event, error) {
	for len(f.buffer) == 0 {
		if err := f.fetchNextChunk(ctx); err != nil {
			return nil, err
		}
	}

	next := f.buffer[0]
	f.buffer = f.buffer[1:]

	return next.event, next.err
}

// fetchNextChunk fetches the next block range, decodes its logs and appends
// them to the buffer. When caught up with the finalized head it waits one
// poll interval before returning with an empty buffer.
func (f *LogFeed) fetchNextChunk(ctx context.Context) error {
	finalizedBlock, err := f.getFinalizedBlock(ctx)
	if err != nil {
		return fmt.Errorf("failed to get finalized block: %w", err)
	}
	metrics.FeedHeadBlockSet(finalizedBlock)

	if f.nextBlock > finalizedBlock {
		f.log.Debugw("caught up with finalized head, waiting",
			"next_block", f.nextBlock,
			"finalized", finalizedBlock,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(f.cfg.PollInterval.Duration):
			return nil
		}
	}

	fromBlock := f.nextBlock
	toBlock := min(fromBlock+f.chunkSize-1, finalizedBlock)

	logs, err := f.fetchLogs(ctx, fromBlock, &toBlock)
	if err != nil {
		return err
	}
	metrics.FeedChunkFetchedInc()

	if len(logs) == 0 {
		f.nextBlock = toBlock + 1
		return nil
	}

	sort.Slice(logs, func(i, j int) bool {
		if logs[i].BlockNumber != logs[j].BlockNumber {
			return logs[i].BlockNumber < logs[j].BlockNumber
		}
		return logs[i].Index < logs[j].Index
	})

	timestamps, err := f.blockTimestamps(ctx, logs)
	if err != nil {
		return err
	}

	decoded := 0
	for _, lg := range logs {
		ev, decodeErr := f.decoder.Decode(lg, timestamps[lg.BlockNumber])
		if decodeErr != nil {
			f.buffer = append(f.buffer, item{err: fmt.Errorf(
				"log %s-%d in block %d: %w", lg.TxHash.Hex(), lg.Index, lg.BlockNumber, decodeErr)})
			continue
		}
		if ev == nil {
			continue
		}

		if nameReg, ok := ev.(*events.NameRegistered); ok {
			if err := f.resolveTxTo(ctx, nameReg); err != nil {
				return err
			}
		}

		f.buffer = append(f.buffer, item{event: ev})
		decoded++
	}
	metrics.FeedLogsDecodedInc(decoded)

	f.log.Infow("fetched chunk",
		"from_block", fromBlock,
		"to_block", toBlock,
		"logs_count", len(logs),
		"events_count", decoded,
	)

	f.nextBlock = toBlock + 1

	return nil
}

// fetchLogs runs eth_getLogs for the range, shrinking the range when the
// endpoint rejects it as too large. A successful shrink narrows toBlock so
// the caller resumes from the right position.
func (f *LogFeed) fetchLogs(ctx context.Context, fromBlock uint64, toBlock *uint64) ([]ethtypes.Log, error) {
	for {
		query := ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(fromBlock),
			ToBlock:   new(big.Int).SetUint64(*toBlock),
			Addresses: f.addresses,
			Topics:    f.topics,
		}

		logs, err := f.rpc.GetLogs(ctx, query)
		if err == nil {
			return logs, nil
		}

		tooMany, errData := rpc.IsTooManyResultsError(err)
		if !tooMany {
			return nil, fmt.Errorf("failed to fetch logs [%d, %d]: %w", fromBlock, *toBlock, err)
		}

		if suggestedFrom, suggestedTo, ok := rpc.ParseSuggestedBlockRange(errData); ok &&
			suggestedFrom == fromBlock && suggestedTo < *toBlock {
			*toBlock = suggestedTo
		} else {
			half := fromBlock + (*toBlock-fromBlock)/2
			if half <= fromBlock {
				return nil, fmt.Errorf("failed to fetch logs for single block %d: %w", fromBlock, err)
			}
			*toBlock = half
		}

		f.log.Warnw("log range too large, shrinking",
			"from_block", fromBlock,
			"to_block", *toBlock,
		)
	}
}

// blockTimestamps resolves the timestamps of every block the logs reference.
func (f *LogFeed) blockTimestamps(ctx context.Context, logs []ethtypes.Log) (map[uint64]int64, error) {
	seen := make(map[uint64]struct{}, len(logs))
	blockNums := make([]uint64, 0, len(logs))
	for _, lg := range logs {
		if _, ok := seen[lg.BlockNumber]; ok {
			continue
		}
		seen[lg.BlockNumber] = struct{}{}
		blockNums = append(blockNums, lg.BlockNumber)
	}

	headers, err := f.rpc.BatchGetBlockHeaders(ctx, blockNums)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch headers: %w", err)
	}

	timestamps := make(map[uint64]int64, len(headers))
	for i, header := range headers {
		if header == nil {
			return nil, fmt.Errorf("missing header for block %d", blockNums[i])
		}
		timestamps[header.Number.Uint64()] = int64(header.Time)
	}

	return timestamps, nil
}

// resolveTxTo fetches the enclosing transaction of a registration event and
// records its `to` address on the event.
func (f *LogFeed) resolveTxTo(ctx context.Context, ev *events.NameRegistered) error {
	tx, err := f.rpc.GetTransaction(ctx, ev.TxHash)
	if err != nil {
		return fmt.Errorf("failed to fetch transaction %s: %w", ev.TxHash.Hex(), err)
	}

	ev.TxTo = tx.To()

	return nil
}

// getFinalizedBlock gets the block number considered finalized based on config.
func (f *LogFeed) getFinalizedBlock(ctx context.Context) (uint64, error) {
	var header *ethtypes.Header
	var err error

	switch f.finality {
	case itypes.FinalityFinalized:
		header, err = f.rpc.GetFinalizedBlockHeader(ctx)
	case itypes.FinalitySafe:
		header, err = f.rpc.GetSafeBlockHeader(ctx)
	case itypes.FinalityLatest:
		header, err = f.rpc.GetLatestBlockHeader(ctx)
		if err == nil && f.cfg.FinalizedLag > 0 {
			// Apply lag to latest block
			finalizedNum := header.Number.Uint64()
			if finalizedNum > f.cfg.FinalizedLag {
				finalizedNum -= f.cfg.FinalizedLag
			} else {
				finalizedNum = 0
			}
			return finalizedNum, nil
		}
	default:
		return 0, fmt.Errorf("invalid finality mode: %s", f.finality)
	}

	if err != nil {
		return 0, err
	}

	return header.Number.Uint64(), nil
}
