package readmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/blister/internal/domainevent"
	"github.com/cuemby/blister/pkg/types"
)

// TestSearchFindsTitleIsbnAndRejectsShortTerm covers S5.
func TestSearchFindsTitleIsbnAndRejectsShortTerm(t *testing.T) {
	idx := New()
	author := types.NewAuthorID()
	book := types.NewBookID()

	idx.Apply(domainevent.NewAuthorAdded(author, types.AuthorInfo{Name: "Alice"}))
	idx.Apply(domainevent.NewBookAdded(book, types.BookInfo{ISBN: "978-0", Title: "Tango Romeo", Author: author}))

	hits, err := idx.Search("Tango")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, ProjectionBookTitle, hits[0].Projection.Kind)
	assert.Equal(t, book, hits[0].Projection.BookID)
	assert.Equal(t, "Tango Romeo", hits[0].Source)

	hits, err = idx.Search("978-0")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, ProjectionBookIsbn, hits[0].Projection.Kind)

	hits, err = idx.Search("Al")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

// TestKeywordAddedIsIdempotentAndBidirectional covers S6.
func TestKeywordAddedIsIdempotentAndBidirectional(t *testing.T) {
	idx := New()
	book := types.NewBookID()
	target := types.BookTarget(book)

	idx.Apply(domainevent.NewKeywordAdded(target, "fiction"))
	idx.Apply(domainevent.NewKeywordAdded(target, "fiction"))

	keywords := idx.TargetKeywords(types.BookResource(book))
	assert.Equal(t, []types.Keyword{"fiction"}, keywords)

	targets := idx.KeywordTargets("fiction")
	require.Len(t, targets, 1)
	id, ok := targets[0].AsBookID()
	require.True(t, ok)
	assert.Equal(t, book, id)
}

// TestBooksByReaderDeduplicatesRepeatedReads covers invariant 8.
func TestBooksByReaderDeduplicatesRepeatedReads(t *testing.T) {
	idx := New()
	reader := types.NewReaderID()
	book := types.NewBookID()

	idx.Apply(domainevent.NewBookRead(reader, types.ReadingInfo{ReaderID: reader, BookID: book}))
	idx.Apply(domainevent.NewBookRead(reader, types.ReadingInfo{ReaderID: reader, BookID: book}))

	records := idx.BooksByReader(reader)
	require.Len(t, records, 1)
	assert.Equal(t, book, records[0].BookID)
}

func TestBooksByAuthorIdPreservesAppendOrder(t *testing.T) {
	idx := New()
	author := types.NewAuthorID()
	idx.Apply(domainevent.NewAuthorAdded(author, types.AuthorInfo{Name: "Author"}))

	first := types.NewBookID()
	second := types.NewBookID()
	idx.Apply(domainevent.NewBookAdded(first, types.BookInfo{ISBN: "1", Title: "First", Author: author}))
	idx.Apply(domainevent.NewBookAdded(second, types.BookInfo{ISBN: "2", Title: "Second", Author: author}))

	books := idx.BooksByAuthorId(author)
	require.Len(t, books, 2)
	assert.Equal(t, first, books[0].ID)
	assert.Equal(t, second, books[1].ID)
}

func TestUniqueReaderByMonikerResolvesReader(t *testing.T) {
	idx := New()
	reader := types.NewReaderID()
	idx.Apply(domainevent.NewReaderAdded(reader, types.ReaderInfo{Name: "Name", UniqueMoniker: "moniker"}))

	found, ok := idx.UniqueReaderByMoniker("moniker")
	require.True(t, ok)
	assert.Equal(t, reader, found.ID)

	_, ok = idx.UniqueReaderByMoniker("missing")
	assert.False(t, ok)
}
