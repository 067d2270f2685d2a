package writemodel

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cuemby/blister/internal/domainevent"
	"github.com/cuemby/blister/pkg/types"
)

func TestApplyAuthorAddedMakesAuthorExist(t *testing.T) {
	wm := New()
	authorID := types.NewAuthorID()
	wm.Apply(domainevent.NewAuthorAdded(authorID, types.AuthorInfo{Name: "Author"}))

	wm.Read(func(s Snapshot) {
		assert.True(t, s.HasAuthor(authorID))
		assert.False(t, s.HasAuthor(types.NewAuthorID()))
	})
}

func TestApplyReaderAddedClaimsMoniker(t *testing.T) {
	wm := New()
	readerID := types.NewReaderID()
	wm.Apply(domainevent.NewReaderAdded(readerID, types.ReaderInfo{Name: "Reader", UniqueMoniker: "moniker"}))

	wm.Read(func(s Snapshot) {
		assert.True(t, s.HasReader(readerID))
		assert.True(t, s.MonikerTaken("moniker"))
		assert.False(t, s.MonikerTaken("other"))
	})
}

func TestApplyBookReadIsPerReaderPerBook(t *testing.T) {
	wm := New()
	reader := types.NewReaderID()
	book := types.NewBookID()
	otherBook := types.NewBookID()

	wm.Apply(domainevent.NewBookRead(reader, types.ReadingInfo{ReaderID: reader, BookID: book}))

	wm.Read(func(s Snapshot) {
		assert.True(t, s.HasRead(reader, book))
		assert.False(t, s.HasRead(reader, otherBook))
		assert.False(t, s.HasRead(types.NewReaderID(), book))
	})
}

func TestApplyIsIdempotentForRepeatedBookRead(t *testing.T) {
	wm := New()
	reader := types.NewReaderID()
	book := types.NewBookID()

	wm.Apply(domainevent.NewBookRead(reader, types.ReadingInfo{ReaderID: reader, BookID: book}))
	wm.Apply(domainevent.NewBookRead(reader, types.ReadingInfo{ReaderID: reader, BookID: book}))

	wm.Read(func(s Snapshot) {
		assert.True(t, s.HasRead(reader, book))
	})
}
