// Package writemodel holds the projection the dispatcher consults to
// validate commands before minting an identity and emitting an event.
// It answers existence and uniqueness questions only and is never
// exposed to a reader outside the dispatcher.
package writemodel

import (
	"sync"

	"github.com/cuemby/blister/internal/domainevent"
	"github.com/cuemby/blister/pkg/types"
)

// WriteModel is the dispatcher's validation-only projection. The zero
// value is not usable; build one with New.
type WriteModel struct {
	mu sync.RWMutex

	authorIDs map[types.AuthorID]struct{}
	bookIDs   map[types.BookID]struct{}
	readerIDs map[types.ReaderID]struct{}

	readerByMoniker map[string]types.ReaderID
	booksRead       map[types.ReaderID]map[types.BookID]struct{}
}

// New returns an empty WriteModel.
func New() *WriteModel {
	return &WriteModel{
		authorIDs:       make(map[types.AuthorID]struct{}),
		bookIDs:         make(map[types.BookID]struct{}),
		readerIDs:       make(map[types.ReaderID]struct{}),
		readerByMoniker: make(map[string]types.ReaderID),
		booksRead:       make(map[types.ReaderID]map[types.BookID]struct{}),
	}
}

// Snapshot is a read-locked view used by the dispatcher's validation
// step. It must not be retained past the call that produced it.
type Snapshot struct {
	wm *WriteModel
}

// Read takes a read lock and hands the caller a Snapshot to validate
// against; the lock is released when fn returns.
func (w *WriteModel) Read(fn func(Snapshot)) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	fn(Snapshot{wm: w})
}

// HasAuthor reports whether id exists.
func (s Snapshot) HasAuthor(id types.AuthorID) bool {
	_, ok := s.wm.authorIDs[id]
	return ok
}

// HasBook reports whether id exists.
func (s Snapshot) HasBook(id types.BookID) bool {
	_, ok := s.wm.bookIDs[id]
	return ok
}

// HasReader reports whether id exists.
func (s Snapshot) HasReader(id types.ReaderID) bool {
	_, ok := s.wm.readerIDs[id]
	return ok
}

// MonikerTaken reports whether moniker is already claimed by a reader.
func (s Snapshot) MonikerTaken(moniker string) bool {
	_, ok := s.wm.readerByMoniker[moniker]
	return ok
}

// HasRead reports whether reader already has book recorded as read.
func (s Snapshot) HasRead(reader types.ReaderID, book types.BookID) bool {
	read, ok := s.wm.booksRead[reader]
	if !ok {
		return false
	}
	_, ok = read[book]
	return ok
}

// Apply mutates the model for one persisted event under the model's
// write lock, which it takes itself. The dispatcher calls it while
// replaying the journal in New and from its apply loop.
func (w *WriteModel) Apply(event domainevent.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch event.Kind {
	case domainevent.KindAuthorAdded:
		w.authorIDs[event.AuthorID] = struct{}{}

	case domainevent.KindBookAdded:
		w.bookIDs[event.BookID] = struct{}{}

	case domainevent.KindReaderAdded:
		w.readerIDs[event.ReaderID] = struct{}{}
		w.readerByMoniker[event.ReaderInfo.UniqueMoniker] = event.ReaderID

	case domainevent.KindBookRead:
		read, ok := w.booksRead[event.ReaderID]
		if !ok {
			read = make(map[types.BookID]struct{})
			w.booksRead[event.ReaderID] = read
		}
		read[event.ReadingInfo.BookID] = struct{}{}

	case domainevent.KindKeywordAdded:
		// KeywordAdded carries no existence/uniqueness fact the
		// dispatcher needs to validate against; only IndexSet cares.
	}
}
