package feed

import (
	"context"

	"github.com/goran-ethernal/ReputationIndexor/internal/events"
)

// Feed is the ordered on-chain event source the ingestion driver pulls from.
// Next blocks until an event is available, delivering events in strictly
// increasing (block number, log index) order. A returned error wrapping
// events.ErrMalformedEvent marks a log at the current feed position that
// could not be decoded; any other error is a feed failure.
type Feed interface {
	Next(ctx context.Context) (events.Event, error)
}
