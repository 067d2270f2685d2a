// Package queryhandler implements QueryHandler: it owns the
// read-locked IndexSet, keeps it current by subscribing to the bus,
// and executes the read-only query vocabulary against a consistent
// snapshot. Grounded on original_source/src/application.rs's
// QueryHandler (RwLock'd model, subscribe-before-replay ordering).
package queryhandler

import (
	"context"
	"errors"
	"sync"

	"github.com/cuemby/blister/internal/domainevent"
	"github.com/cuemby/blister/internal/eventbus"
	"github.com/cuemby/blister/internal/readmodel"
	"github.com/cuemby/blister/pkg/blisterlog"
	"github.com/cuemby/blister/pkg/blistermetrics"
)

// Query is implemented by every member of the read vocabulary (§4.E):
// a small value that runs a pure function against a read-locked
// IndexSet and returns a newly owned result.
type Query interface {
	name() string
	execute(idx *readmodel.IndexSet) (any, error)
}

// QueryHandler serializes query execution against concurrent
// apply-loop writes via a single reader-writer lock around IndexSet.
type QueryHandler struct {
	mu  sync.RWMutex
	idx *readmodel.IndexSet
	sub *eventbus.Subscription
}

// New subscribes to bus and folds every event durable at subscription
// time into a fresh IndexSet before returning. Call Run to keep the
// IndexSet current with events emitted after construction.
func New(bus *eventbus.Bus) (*QueryHandler, error) {
	sub, journal, err := bus.Subscribe()
	if err != nil {
		return nil, err
	}

	idx := readmodel.New()
	for _, ext := range journal {
		event, err := domainevent.FromExternalRepresentation(ext)
		if err != nil {
			return nil, err
		}
		idx.Apply(event)
	}

	return &QueryHandler{idx: idx, sub: sub}, nil
}

// Run applies every event arriving on the query handler's subscription
// to its IndexSet until ctx is cancelled or the subscription lags.
// This is the "QueryHandler task" of §5, structurally identical to the
// dispatcher's apply loop but writing IndexSet instead of WriteModel.
func (q *QueryHandler) Run(ctx context.Context) error {
	logger := blisterlog.WithComponent("queryhandler")
	for {
		ext, err := q.sub.Poll(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			logger.Error().Err(err).Msg("read-model apply loop exiting")
			return err
		}

		event, err := domainevent.FromExternalRepresentation(ext)
		if err != nil {
			logger.Error().Err(err).Msg("read-model apply loop exiting on undecodable event")
			return err
		}

		timer := blistermetrics.NewTimer()
		q.mu.Lock()
		q.idx.Apply(event)
		q.mu.Unlock()
		timer.ObserveDuration(blistermetrics.ReadModelApplyDuration)
	}
}

// Issue takes the read lock and runs query against the current
// IndexSet snapshot. Within one call the snapshot is consistent;
// across two calls separated by an Emit, the later call reflects at
// least everything the earlier one saw.
func (q *QueryHandler) Issue(query Query) (any, error) {
	timer := blistermetrics.NewTimer()
	defer timer.ObserveDurationVec(blistermetrics.QueryDuration, query.name())

	q.mu.RLock()
	defer q.mu.RUnlock()
	return query.execute(q.idx)
}
