package dispatcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/blister/internal/domainevent"
	"github.com/cuemby/blister/internal/eventbus"
	"github.com/cuemby/blister/internal/eventstore"
	"github.com/cuemby/blister/pkg/types"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	store, err := eventstore.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	bus := eventbus.New(store)
	d, err := New(bus)
	require.NoError(t, err)
	return d
}

// TestAddAuthorIsAlwaysAccepted covers S1.
func TestAddAuthorIsAlwaysAccepted(t *testing.T) {
	d := newTestDispatcher(t)

	outcome, err := d.Submit(NewAddAuthor(types.AuthorInfo{Name: "A"}))
	require.NoError(t, err)
	assert.True(t, outcome.Accepted)

	id, ok := outcome.Resource.AsAuthorID()
	assert.True(t, ok)
	assert.NotEqual(t, types.AuthorID{}, id)
}

// TestAddBookBeforeAuthorIsRejected covers S2.
func TestAddBookBeforeAuthorIsRejected(t *testing.T) {
	d := newTestDispatcher(t)

	outcome, err := d.Submit(NewAddBook(types.BookInfo{ISBN: "978-0", Title: "T", Author: types.NewAuthorID()}))
	require.NoError(t, err)
	assert.False(t, outcome.Accepted)
	assert.ErrorIs(t, outcome.Reason, ErrAuthorNotFound)
}

func TestAddBookAfterAuthorAppliedIsAccepted(t *testing.T) {
	d := newTestDispatcher(t)

	authorOutcome, err := d.Submit(NewAddAuthor(types.AuthorInfo{Name: "A"}))
	require.NoError(t, err)
	authorID, _ := authorOutcome.Resource.AsAuthorID()

	// Submit validates against the dispatcher's own WriteModel but
	// never applies the event it emits; after construction,
	// WriteModel.Apply only runs from Run. Drive the loop once to fold
	// the AuthorAdded in.
	require.NoError(t, drainOne(t, d))

	outcome, err := d.Submit(NewAddBook(types.BookInfo{ISBN: "978-0", Title: "T", Author: authorID}))
	require.NoError(t, err)
	assert.True(t, outcome.Accepted)
}

// TestAddReaderRejectsDuplicateMoniker covers S4.
func TestAddReaderRejectsDuplicateMoniker(t *testing.T) {
	d := newTestDispatcher(t)

	first, err := d.Submit(NewAddReader(types.ReaderInfo{Name: "N", UniqueMoniker: "m"}))
	require.NoError(t, err)
	require.True(t, first.Accepted)

	require.NoError(t, drainOne(t, d))

	second, err := d.Submit(NewAddReader(types.ReaderInfo{Name: "N2", UniqueMoniker: "m"}))
	require.NoError(t, err)
	assert.False(t, second.Accepted)
	assert.ErrorIs(t, second.Reason, ErrMonikerTaken)
}

func TestAddReadBookRejectsUnknownReaderOrBook(t *testing.T) {
	d := newTestDispatcher(t)

	outcome, err := d.Submit(NewAddReadBook(types.ReadingInfo{ReaderID: types.NewReaderID(), BookID: types.NewBookID()}))
	require.NoError(t, err)
	assert.False(t, outcome.Accepted)
	assert.ErrorIs(t, outcome.Reason, ErrReaderNotFound)
}

func TestAddReadBookIsIdempotentAtSecondSubmit(t *testing.T) {
	d := newTestDispatcher(t)

	readerOutcome, err := d.Submit(NewAddReader(types.ReaderInfo{Name: "R", UniqueMoniker: "r"}))
	require.NoError(t, err)
	readerID, _ := readerOutcome.Resource.AsReaderID()
	require.NoError(t, drainOne(t, d))

	authorOutcome, err := d.Submit(NewAddAuthor(types.AuthorInfo{Name: "A"}))
	require.NoError(t, err)
	authorID, _ := authorOutcome.Resource.AsAuthorID()
	require.NoError(t, drainOne(t, d))

	bookOutcome, err := d.Submit(NewAddBook(types.BookInfo{ISBN: "1", Title: "T", Author: authorID}))
	require.NoError(t, err)
	bookID, _ := bookOutcome.Resource.AsBookID()
	require.NoError(t, drainOne(t, d))

	first, err := d.Submit(NewAddReadBook(types.ReadingInfo{ReaderID: readerID, BookID: bookID}))
	require.NoError(t, err)
	require.True(t, first.Accepted)
	require.NoError(t, drainOne(t, d))

	second, err := d.Submit(NewAddReadBook(types.ReadingInfo{ReaderID: readerID, BookID: bookID}))
	require.NoError(t, err)
	assert.False(t, second.Accepted)
	assert.ErrorIs(t, second.Reason, ErrAlreadyRead)
}

func TestAddKeywordRejectsInvalidPattern(t *testing.T) {
	d := newTestDispatcher(t)

	outcome, err := d.Submit(NewAddKeyword("has space", types.BookTarget(types.NewBookID())))
	require.NoError(t, err)
	assert.False(t, outcome.Accepted)
	assert.ErrorIs(t, outcome.Reason, ErrInvalidKeyword)
}

func TestAddKeywordAcceptsValidPattern(t *testing.T) {
	d := newTestDispatcher(t)

	outcome, err := d.Submit(NewAddKeyword("fiction", types.BookTarget(types.NewBookID())))
	require.NoError(t, err)
	assert.True(t, outcome.Accepted)
}

// drainOne polls a single event off the dispatcher's own subscription
// and applies it, standing in for what Run would do in the background
// during these synchronous, single-goroutine tests.
func drainOne(t *testing.T, d *Dispatcher) error {
	t.Helper()
	ext, err := d.sub.Poll(t.Context())
	if err != nil {
		return err
	}
	event, err := domainevent.FromExternalRepresentation(ext)
	if err != nil {
		return err
	}
	d.wm.Apply(event)
	return nil
}
