// Package dispatcher implements CommandDispatcher: it validates a
// command against an in-process WriteModel, mints identities, and
// emits the resulting domain event. Grounded on
// original_source/src/application.rs's CommandDispatcher::accept
// (validate-then-emit, read-lock only for validation).
package dispatcher

import (
	"context"
	"errors"
	"regexp"

	"github.com/rs/zerolog"

	"github.com/cuemby/blister/internal/blisterr"
	"github.com/cuemby/blister/internal/domainevent"
	"github.com/cuemby/blister/internal/eventbus"
	"github.com/cuemby/blister/internal/writemodel"
	"github.com/cuemby/blister/pkg/blisterlog"
	"github.com/cuemby/blister/pkg/blistermetrics"
	"github.com/cuemby/blister/pkg/types"
)

// keywordPattern is the closed grammar a Keyword must match.
var keywordPattern = regexp.MustCompile(`^[\p{L}_-]+$`)

// Rejection reasons a command can fail validation with. These are
// values, not errors in the sense of §7's policy split: Submit never
// returns one of these as its error return, only inside an Outcome.
var (
	ErrAuthorNotFound = errors.New("dispatcher: author does not exist")
	ErrReaderNotFound = errors.New("dispatcher: reader does not exist")
	ErrBookNotFound   = errors.New("dispatcher: book does not exist")
	ErrMonikerTaken   = errors.New("dispatcher: unique moniker already claimed")
	ErrAlreadyRead    = errors.New("dispatcher: reader already recorded as having read this book")
	ErrInvalidKeyword = blisterr.ErrInvalidKeyword
)

// Kind discriminates the five commands the dispatcher accepts.
type Kind int

const (
	KindAddAuthor Kind = iota
	KindAddBook
	KindAddReader
	KindAddReadBook
	KindAddKeyword
)

// Command is a write intent submitted to the dispatcher. Exactly one
// of the payload fields is meaningful, selected by Kind.
type Command struct {
	Kind Kind

	AuthorInfo    types.AuthorInfo
	BookInfo      types.BookInfo
	ReaderInfo    types.ReaderInfo
	ReadingInfo   types.ReadingInfo
	Keyword       types.Keyword
	KeywordTarget types.KeywordTarget
}

func NewAddAuthor(info types.AuthorInfo) Command {
	return Command{Kind: KindAddAuthor, AuthorInfo: info}
}

func NewAddBook(info types.BookInfo) Command {
	return Command{Kind: KindAddBook, BookInfo: info}
}

func NewAddReader(info types.ReaderInfo) Command {
	return Command{Kind: KindAddReader, ReaderInfo: info}
}

func NewAddReadBook(info types.ReadingInfo) Command {
	return Command{Kind: KindAddReadBook, ReadingInfo: info}
}

func NewAddKeyword(keyword types.Keyword, target types.KeywordTarget) Command {
	return Command{Kind: KindAddKeyword, Keyword: keyword, KeywordTarget: target}
}

// name returns the command's metrics/log label.
func (c Command) name() string {
	switch c.Kind {
	case KindAddAuthor:
		return "add_author"
	case KindAddBook:
		return "add_book"
	case KindAddReader:
		return "add_reader"
	case KindAddReadBook:
		return "add_read_book"
	case KindAddKeyword:
		return "add_keyword"
	default:
		return "unknown"
	}
}

// Outcome is the result of submitting a command: a validation
// rejection is a value here, never a Go error (see §7).
type Outcome struct {
	Accepted bool
	Resource types.ResourceIdentity
	Reason   error
}

func accepted(resource types.ResourceIdentity) Outcome {
	return Outcome{Accepted: true, Resource: resource}
}

func rejected(reason error) Outcome {
	return Outcome{Accepted: false, Resource: types.NoResource, Reason: reason}
}

// Dispatcher validates commands against its own WriteModel and emits
// the resulting events onto the bus. It owns a subscription to the
// bus and applies every event durable since its own construction to
// that WriteModel, keeping validation current with the log without a
// second read path into IndexSet.
type Dispatcher struct {
	wm  *writemodel.WriteModel
	bus *eventbus.Bus
	sub *eventbus.Subscription
}

// New subscribes to bus, replays every event durable at subscription
// time into a fresh WriteModel, and returns a Dispatcher ready to
// validate commands. Call Run to keep the WriteModel current with
// events emitted after construction.
func New(bus *eventbus.Bus) (*Dispatcher, error) {
	sub, journal, err := bus.Subscribe()
	if err != nil {
		return nil, err
	}

	wm := writemodel.New()
	for _, ext := range journal {
		event, err := domainevent.FromExternalRepresentation(ext)
		if err != nil {
			return nil, err
		}
		wm.Apply(event)
	}

	return &Dispatcher{wm: wm, bus: bus, sub: sub}, nil
}

// Run applies every event arriving on the dispatcher's subscription to
// its WriteModel until ctx is cancelled or the subscription lags. This
// is the "Dispatcher task" of §5: its only suspension points are
// receiving the next event and the WriteModel write lock Apply takes
// internally.
func (d *Dispatcher) Run(ctx context.Context) error {
	logger := blisterlog.WithComponent("dispatcher")
	for {
		ext, err := d.sub.Poll(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			logger.Error().Err(err).Msg("write-model apply loop exiting")
			return err
		}

		event, err := domainevent.FromExternalRepresentation(ext)
		if err != nil {
			logger.Error().Err(err).Msg("write-model apply loop exiting on undecodable event")
			return err
		}

		timer := blistermetrics.NewTimer()
		d.wm.Apply(event)
		timer.ObserveDuration(blistermetrics.WriteModelApplyDuration)
	}
}

// Submit validates cmd against the current WriteModel snapshot and,
// on success, emits the resulting event. Identity minting is
// non-deterministic (fresh UUID v4) and happens only after validation
// passes.
func (d *Dispatcher) Submit(cmd Command) (Outcome, error) {
	logger := blisterlog.WithCommand(cmd.name())

	switch cmd.Kind {
	case KindAddAuthor:
		id := types.NewAuthorID()
		return d.emit(domainevent.NewAuthorAdded(id, cmd.AuthorInfo), types.AuthorResource(id), cmd.name())

	case KindAddBook:
		var authorExists bool
		d.wm.Read(func(s writemodel.Snapshot) { authorExists = s.HasAuthor(cmd.BookInfo.Author) })
		if !authorExists {
			return d.reject(ErrAuthorNotFound, cmd.name(), logger), nil
		}
		id := types.NewBookID()
		return d.emit(domainevent.NewBookAdded(id, cmd.BookInfo), types.BookResource(id), cmd.name())

	case KindAddReader:
		var monikerTaken bool
		d.wm.Read(func(s writemodel.Snapshot) { monikerTaken = s.MonikerTaken(cmd.ReaderInfo.UniqueMoniker) })
		if monikerTaken {
			return d.reject(ErrMonikerTaken, cmd.name(), logger), nil
		}
		id := types.NewReaderID()
		return d.emit(domainevent.NewReaderAdded(id, cmd.ReaderInfo), types.ReaderResource(id), cmd.name())

	case KindAddReadBook:
		var readerExists, bookExists, alreadyRead bool
		d.wm.Read(func(s writemodel.Snapshot) {
			readerExists = s.HasReader(cmd.ReadingInfo.ReaderID)
			bookExists = s.HasBook(cmd.ReadingInfo.BookID)
			alreadyRead = s.HasRead(cmd.ReadingInfo.ReaderID, cmd.ReadingInfo.BookID)
		})
		switch {
		case !readerExists:
			return d.reject(ErrReaderNotFound, cmd.name(), logger), nil
		case !bookExists:
			return d.reject(ErrBookNotFound, cmd.name(), logger), nil
		case alreadyRead:
			return d.reject(ErrAlreadyRead, cmd.name(), logger), nil
		}
		return d.emit(domainevent.NewBookRead(cmd.ReadingInfo.ReaderID, cmd.ReadingInfo), types.NoResource, cmd.name())

	case KindAddKeyword:
		if !keywordPattern.MatchString(string(cmd.Keyword)) {
			return d.reject(ErrInvalidKeyword, cmd.name(), logger), nil
		}
		return d.emit(domainevent.NewKeywordAdded(cmd.KeywordTarget, cmd.Keyword), types.NoResource, cmd.name())

	default:
		return Outcome{}, errors.New("dispatcher: unhandled command kind")
	}
}

// reject records a rejected outcome's metric and logs it at the
// boundary that decided not to propagate it further, per §7.
func (d *Dispatcher) reject(reason error, command string, logger zerolog.Logger) Outcome {
	blistermetrics.CommandsTotal.WithLabelValues(command, "rejected").Inc()
	logger.Warn().Err(reason).Msg("command rejected")
	return rejected(reason)
}

// emit persists and broadcasts event without holding the WriteModel
// lock (the lock was already released when Read's callback returned).
func (d *Dispatcher) emit(event domainevent.Event, resource types.ResourceIdentity, command string) (Outcome, error) {
	if _, err := d.bus.Emit(event); err != nil {
		blistermetrics.CommandsTotal.WithLabelValues(command, "error").Inc()
		return Outcome{}, err
	}
	blistermetrics.CommandsTotal.WithLabelValues(command, "accepted").Inc()
	return accepted(resource), nil
}
