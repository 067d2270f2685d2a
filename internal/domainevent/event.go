// Package domainevent defines blister's closed set of domain events
// and the conversion to and from the durable ExternalRepresentation.
package domainevent

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cuemby/blister/internal/blisterr"
	"github.com/cuemby/blister/pkg/types"
	"github.com/cuemby/blister/pkg/wireevent"
)

// Kind discriminates the five event variants blister's log can hold.
type Kind int

const (
	KindBookAdded Kind = iota
	KindAuthorAdded
	KindReaderAdded
	KindBookRead
	KindKeywordAdded
)

// Event is the tagged union of everything blister's log can record.
// Exactly one of the payload fields is meaningful, selected by Kind;
// the others are the zero value. This shape (enum discriminant plus
// per-variant fields) is the idiomatic Go rendition of the original's
// Rust enum-with-payload.
type Event struct {
	Kind Kind

	BookID   types.BookID
	AuthorID types.AuthorID
	ReaderID types.ReaderID

	BookInfo      types.BookInfo
	AuthorInfo    types.AuthorInfo
	ReaderInfo    types.ReaderInfo
	ReadingInfo   types.ReadingInfo
	KeywordTarget types.KeywordTarget
	Keyword       types.Keyword
}

func NewBookAdded(id types.BookID, info types.BookInfo) Event {
	return Event{Kind: KindBookAdded, BookID: id, BookInfo: info}
}

func NewAuthorAdded(id types.AuthorID, info types.AuthorInfo) Event {
	return Event{Kind: KindAuthorAdded, AuthorID: id, AuthorInfo: info}
}

func NewReaderAdded(id types.ReaderID, info types.ReaderInfo) Event {
	return Event{Kind: KindReaderAdded, ReaderID: id, ReaderInfo: info}
}

func NewBookRead(readerID types.ReaderID, info types.ReadingInfo) Event {
	return Event{Kind: KindBookRead, ReaderID: readerID, ReadingInfo: info}
}

func NewKeywordAdded(target types.KeywordTarget, keyword types.Keyword) Event {
	return Event{Kind: KindKeywordAdded, KeywordTarget: target, Keyword: keyword}
}

// what returns the discriminator string stored alongside the event.
func (e Event) what() wireevent.Discriminator {
	switch e.Kind {
	case KindBookAdded:
		return wireevent.BookAdded
	case KindAuthorAdded:
		return wireevent.AuthorAdded
	case KindReaderAdded:
		return wireevent.ReaderAdded
	case KindBookRead:
		return wireevent.BookRead
	case KindKeywordAdded:
		return wireevent.KeywordAdded
	default:
		panic(fmt.Sprintf("domainevent: unhandled kind %d", e.Kind))
	}
}

// aggregateID returns the aggregate this event belongs to: the created
// entity's own id for *Added events, the reader's id for BookRead (the
// reading history is part of the reader's stream), and the target's
// id for KeywordAdded.
func (e Event) aggregateID() uuid.UUID {
	switch e.Kind {
	case KindBookAdded:
		return e.BookID.UUID
	case KindAuthorAdded:
		return e.AuthorID.UUID
	case KindReaderAdded:
		return e.ReaderID.UUID
	case KindBookRead:
		return e.ReaderID.UUID
	case KindKeywordAdded:
		if e.KeywordTarget.Kind == types.KeywordTargetBook {
			return e.KeywordTarget.BookID.UUID
		}
		return e.KeywordTarget.AuthorID.UUID
	default:
		panic(fmt.Sprintf("domainevent: unhandled kind %d", e.Kind))
	}
}

// keywordTargetWire is the {"Book": uuid} | {"Author": uuid} payload
// shape for keyword-added events.
type keywordTargetWire struct {
	Book   *uuid.UUID `json:"Book,omitempty"`
	Author *uuid.UUID `json:"Author,omitempty"`
}

type keywordAddedWire struct {
	Keyword string            `json:"keyword"`
	Target  keywordTargetWire `json:"target"`
}

// ExternalRepresentation implements wireevent.Descriptor.
func (e Event) ExternalRepresentation(id uuid.UUID, when time.Time) (wireevent.ExternalRepresentation, error) {
	var (
		data any
		err  error
	)

	switch e.Kind {
	case KindBookAdded:
		data = e.BookInfo
	case KindAuthorAdded:
		data = e.AuthorInfo
	case KindReaderAdded:
		data = e.ReaderInfo
	case KindBookRead:
		data = e.ReadingInfo
	case KindKeywordAdded:
		wire := keywordAddedWire{Keyword: string(e.Keyword)}
		if e.KeywordTarget.Kind == types.KeywordTargetBook {
			wire.Target.Book = &e.KeywordTarget.BookID.UUID
		} else {
			wire.Target.Author = &e.KeywordTarget.AuthorID.UUID
		}
		data = wire
	default:
		panic(fmt.Sprintf("domainevent: unhandled kind %d", e.Kind))
	}

	payload, err := wireevent.Encode(data)
	if err != nil {
		return wireevent.ExternalRepresentation{}, err
	}

	return wireevent.ExternalRepresentation{
		ID:          id,
		When:        when,
		AggregateID: e.aggregateID(),
		What:        e.what(),
		Data:        payload,
	}, nil
}

// FromExternalRepresentation reconstructs a typed Event from its
// durable form, failing with ErrUnknownEventType on any discriminator
// outside the closed set.
func FromExternalRepresentation(ext wireevent.ExternalRepresentation) (Event, error) {
	switch ext.What {
	case wireevent.BookAdded:
		var info types.BookInfo
		if err := wireevent.Decode(ext.Data, &info); err != nil {
			return Event{}, err
		}
		return NewBookAdded(types.BookID{UUID: ext.AggregateID}, info), nil

	case wireevent.AuthorAdded:
		var info types.AuthorInfo
		if err := wireevent.Decode(ext.Data, &info); err != nil {
			return Event{}, err
		}
		return NewAuthorAdded(types.AuthorID{UUID: ext.AggregateID}, info), nil

	case wireevent.ReaderAdded:
		var info types.ReaderInfo
		if err := wireevent.Decode(ext.Data, &info); err != nil {
			return Event{}, err
		}
		return NewReaderAdded(types.ReaderID{UUID: ext.AggregateID}, info), nil

	case wireevent.BookRead:
		var info types.ReadingInfo
		if err := wireevent.Decode(ext.Data, &info); err != nil {
			return Event{}, err
		}
		return NewBookRead(types.ReaderID{UUID: ext.AggregateID}, info), nil

	case wireevent.KeywordAdded:
		var wire keywordAddedWire
		if err := wireevent.Decode(ext.Data, &wire); err != nil {
			return Event{}, err
		}
		var target types.KeywordTarget
		switch {
		case wire.Target.Book != nil:
			target = types.BookTarget(types.BookID{UUID: *wire.Target.Book})
		case wire.Target.Author != nil:
			target = types.AuthorTarget(types.AuthorID{UUID: *wire.Target.Author})
		default:
			return Event{}, fmt.Errorf("%w: keyword-added with neither Book nor Author target", blisterr.ErrJSONCodec)
		}
		return NewKeywordAdded(target, types.Keyword(wire.Keyword)), nil

	default:
		return Event{}, fmt.Errorf("%w: %q", blisterr.ErrUnknownEventType, ext.What)
	}
}
