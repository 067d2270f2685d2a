package domainevent

import (
	"fmt"

	"github.com/cuemby/blister/internal/blisterr"
	"github.com/cuemby/blister/pkg/types"
	"github.com/cuemby/blister/pkg/wireevent"
)

// Stream is the ordered sequence of ExternalRepresentations for a
// single aggregate id, as returned by EventStore.findByAggregateId.
type Stream []wireevent.ExternalRepresentation

// first decodes the stream's first record as a typed Event, failing if
// the stream is empty.
func (s Stream) first() (Event, error) {
	if len(s) == 0 {
		return Event{}, fmt.Errorf("%w: empty aggregate stream", blisterr.ErrAggregateParse)
	}
	return FromExternalRepresentation(s[0])
}

// TryLoadAuthor reconstructs an Author from its event stream. An
// Author's stream starts with AuthorAdded; later KeywordAdded events
// targeting the author share its aggregate id and are not consulted
// here.
func TryLoadAuthor(stream Stream) (types.Author, error) {
	event, err := stream.first()
	if err != nil {
		return types.Author{}, err
	}
	if event.Kind != KindAuthorAdded {
		return types.Author{}, fmt.Errorf("%w: expected an AuthorAdded", blisterr.ErrAggregateParse)
	}
	return types.Author{ID: event.AuthorID, Info: event.AuthorInfo}, nil
}

// TryLoadBook reconstructs a Book from its event stream. A Book's
// stream starts with BookAdded; later KeywordAdded events targeting
// the book share its aggregate id and are not consulted here.
func TryLoadBook(stream Stream) (types.Book, error) {
	event, err := stream.first()
	if err != nil {
		return types.Book{}, err
	}
	if event.Kind != KindBookAdded {
		return types.Book{}, fmt.Errorf("%w: expected a BookAdded", blisterr.ErrAggregateParse)
	}
	return types.Book{ID: event.BookID, Info: event.BookInfo}, nil
}

// TryLoadReader reconstructs a Reader from its event stream. A
// Reader's stream starts with ReaderAdded; later BookRead events in
// the same stream are the reader's reading history, not consulted
// here (QueryHandler/IndexSet owns that view).
func TryLoadReader(stream Stream) (types.Reader, error) {
	event, err := stream.first()
	if err != nil {
		return types.Reader{}, err
	}
	if event.Kind != KindReaderAdded {
		return types.Reader{}, fmt.Errorf("%w: expected a ReaderAdded", blisterr.ErrAggregateParse)
	}
	return types.Reader{ID: event.ReaderID, Info: event.ReaderInfo}, nil
}
