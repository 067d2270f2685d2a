// Package app is blister's composition root: it wires EventStore ->
// EventBus -> (Dispatcher, QueryHandler), owns their lifecycle, and
// guarantees both projections have drained the durable log before
// traffic is accepted. Grounded on
// original_source/src/application.rs's CommandQueryOrchestrator plus
// the teacher's cmd/warren/main.go wiring order (construct stores
// before starting loops).
package app

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/cuemby/blister/internal/dispatcher"
	"github.com/cuemby/blister/internal/eventbus"
	"github.com/cuemby/blister/internal/eventstore"
	"github.com/cuemby/blister/internal/queryhandler"
	"github.com/cuemby/blister/pkg/blisterlog"
)

// Application owns the Store and Bus for the process lifetime and
// exposes the two operations every external layer is allowed to call:
// SubmitCommand and IssueQuery.
type Application struct {
	store        *eventstore.Store
	bus          *eventbus.Bus
	dispatcher   *dispatcher.Dispatcher
	queryHandler *queryhandler.QueryHandler
	ready        atomic.Bool
}

// New opens the event store at dataDir and wires the bus, dispatcher,
// and query handler. The query handler subscribes first (per §4.G's
// "fresh subscription taken before any replay"); each subscription
// independently captures the journal durable at the moment it was
// taken, so construction order between the two does not affect what
// either one sees.
func New(dataDir string) (*Application, error) {
	store, err := eventstore.Open(dataDir)
	if err != nil {
		return nil, err
	}

	bus := eventbus.New(store)

	qh, err := queryhandler.New(bus)
	if err != nil {
		store.Close()
		return nil, err
	}

	d, err := dispatcher.New(bus)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &Application{store: store, bus: bus, dispatcher: d, queryHandler: qh}, nil
}

// Start spawns the WriteModel and ReadModel apply loops as two
// goroutines raced against ctx via errgroup: the group's Wait returns
// as soon as either loop exits (error, lag, or ctx cancellation),
// which is the Go rendition of §4.G/§5's "race the tasks against the
// termination waiter". Start blocks until shutdown; Ready reports true
// for the duration the loops are live.
func (a *Application) Start(ctx context.Context) error {
	logger := blisterlog.WithComponent("app")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.dispatcher.Run(gctx) })
	g.Go(func() error { return a.queryHandler.Run(gctx) })

	a.ready.Store(true)
	logger.Info().Msg("application started, both apply loops running")

	err := g.Wait()
	a.ready.Store(false)

	if err != nil {
		logger.Error().Err(err).Msg("application stopped with error")
	} else {
		logger.Info().Msg("application stopped")
	}
	return err
}

// Ready reports whether both apply loops are currently running.
// Traffic must not be accepted while this is false.
func (a *Application) Ready() bool {
	return a.ready.Load()
}

// SubmitCommand is the sole write entry point external layers call.
func (a *Application) SubmitCommand(cmd dispatcher.Command) (dispatcher.Outcome, error) {
	return a.dispatcher.Submit(cmd)
}

// IssueQuery is the sole read entry point external layers call.
func (a *Application) IssueQuery(query queryhandler.Query) (any, error) {
	return a.queryHandler.Issue(query)
}

// Close releases the underlying event store file handle. Call after
// Start has returned.
func (a *Application) Close() error {
	return a.store.Close()
}
