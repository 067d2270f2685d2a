package eventstore

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/blister/internal/domainevent"
	"github.com/cuemby/blister/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPersistAssignsIDAndRoundTrips(t *testing.T) {
	store := openTestStore(t)

	authorID := types.NewAuthorID()
	ext, err := store.Persist(domainevent.NewAuthorAdded(authorID, types.AuthorInfo{Name: "Ursula K. Le Guin"}))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, ext.ID)
	assert.Equal(t, authorID.UUID, ext.AggregateID)

	found, err := store.FindByEventID(ext.ID)
	require.NoError(t, err)
	assert.Equal(t, ext.ID, found.ID)
	assert.Equal(t, ext.AggregateID, found.AggregateID)
	assert.Equal(t, ext.What, found.What)
}

func TestFindByEventIDMissing(t *testing.T) {
	store := openTestStore(t)

	_, err := store.FindByEventID(uuid.New())
	assert.Error(t, err)
}

func TestFindByAggregateIDReturnsAppendOrder(t *testing.T) {
	store := openTestStore(t)

	readerID := types.NewReaderID()
	_, err := store.Persist(domainevent.NewReaderAdded(readerID, types.ReaderInfo{Name: "Alice", UniqueMoniker: "alice"}))
	require.NoError(t, err)

	bookA := types.NewBookID()
	bookB := types.NewBookID()
	_, err = store.Persist(domainevent.NewBookRead(readerID, types.ReadingInfo{ReaderID: readerID, BookID: bookA}))
	require.NoError(t, err)
	_, err = store.Persist(domainevent.NewBookRead(readerID, types.ReadingInfo{ReaderID: readerID, BookID: bookB}))
	require.NoError(t, err)

	stream, err := store.FindByAggregateID(readerID.UUID)
	require.NoError(t, err)
	require.Len(t, stream, 3)

	reader, err := domainevent.TryLoadReader(stream)
	require.NoError(t, err)
	assert.Equal(t, "alice", reader.Info.UniqueMoniker)

	firstRead, err := domainevent.FromExternalRepresentation(stream[1])
	require.NoError(t, err)
	secondRead, err := domainevent.FromExternalRepresentation(stream[2])
	require.NoError(t, err)
	assert.Equal(t, bookA, firstRead.ReadingInfo.BookID)
	assert.Equal(t, bookB, secondRead.ReadingInfo.BookID)
}

func TestJournalIsGloballyOrderedAcrossAggregates(t *testing.T) {
	store := openTestStore(t)

	author := types.NewAuthorID()
	book := types.NewBookID()
	reader := types.NewReaderID()

	_, err := store.Persist(domainevent.NewAuthorAdded(author, types.AuthorInfo{Name: "Author"}))
	require.NoError(t, err)
	_, err = store.Persist(domainevent.NewBookAdded(book, types.BookInfo{ISBN: "978-0-00-000000-0", Title: "Title", Author: author}))
	require.NoError(t, err)
	_, err = store.Persist(domainevent.NewReaderAdded(reader, types.ReaderInfo{Name: "Reader", UniqueMoniker: "reader"}))
	require.NoError(t, err)

	journal, err := store.Journal()
	require.NoError(t, err)
	require.Len(t, journal, 3)
	assert.Equal(t, author.UUID, journal[0].AggregateID)
	assert.Equal(t, book.UUID, journal[1].AggregateID)
	assert.Equal(t, reader.UUID, journal[2].AggregateID)
}

func TestLoadAggregateReconstructsBookRoot(t *testing.T) {
	store := openTestStore(t)

	author := types.NewAuthorID()
	book := types.NewBookID()
	_, err := store.Persist(domainevent.NewAuthorAdded(author, types.AuthorInfo{Name: "Author"}))
	require.NoError(t, err)
	_, err = store.Persist(domainevent.NewBookAdded(book, types.BookInfo{ISBN: "978-0", Title: "Title", Author: author}))
	require.NoError(t, err)

	loaded, err := LoadAggregate(store, book.UUID, domainevent.TryLoadBook)
	require.NoError(t, err)
	assert.Equal(t, book, loaded.ID)
	assert.Equal(t, "Title", loaded.Info.Title)
}

func TestLoadAggregateFailsOnEmptyStream(t *testing.T) {
	store := openTestStore(t)

	_, err := LoadAggregate(store, uuid.New(), domainevent.TryLoadAuthor)
	assert.Error(t, err)
}
