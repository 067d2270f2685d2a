package queryhandler

import (
	"github.com/cuemby/blister/internal/blisterr"
	"github.com/cuemby/blister/internal/readmodel"
	"github.com/cuemby/blister/pkg/types"
)

// AllBooksQuery returns every book known to the system.
type AllBooksQuery struct{}

func (AllBooksQuery) name() string { return "all_books" }
func (AllBooksQuery) execute(idx *readmodel.IndexSet) (any, error) {
	return idx.AllBooks(), nil
}

// BookByIDQuery resolves a single book by id.
type BookByIDQuery struct{ ID types.BookID }

func (BookByIDQuery) name() string { return "book_by_id" }
func (q BookByIDQuery) execute(idx *readmodel.IndexSet) (any, error) {
	book, ok := idx.BookById(q.ID)
	if !ok {
		return nil, blisterr.ErrNotFound
	}
	return book, nil
}

// AllAuthorsQuery returns every author known to the system.
type AllAuthorsQuery struct{}

func (AllAuthorsQuery) name() string { return "all_authors" }
func (AllAuthorsQuery) execute(idx *readmodel.IndexSet) (any, error) {
	return idx.AllAuthors(), nil
}

// AuthorByIDQuery resolves a single author by id.
type AuthorByIDQuery struct{ ID types.AuthorID }

func (AuthorByIDQuery) name() string { return "author_by_id" }
func (q AuthorByIDQuery) execute(idx *readmodel.IndexSet) (any, error) {
	author, ok := idx.AuthorById(q.ID)
	if !ok {
		return nil, blisterr.ErrNotFound
	}
	return author, nil
}

// AuthorByBookIDQuery resolves the author of a given book.
type AuthorByBookIDQuery struct{ BookID types.BookID }

func (AuthorByBookIDQuery) name() string { return "author_by_book_id" }
func (q AuthorByBookIDQuery) execute(idx *readmodel.IndexSet) (any, error) {
	author, ok := idx.AuthorByBookId(q.BookID)
	if !ok {
		return nil, blisterr.ErrNotFound
	}
	return author, nil
}

// BooksByAuthorIDQuery returns an author's books in append order.
type BooksByAuthorIDQuery struct{ AuthorID types.AuthorID }

func (BooksByAuthorIDQuery) name() string { return "books_by_author_id" }
func (q BooksByAuthorIDQuery) execute(idx *readmodel.IndexSet) (any, error) {
	return idx.BooksByAuthorId(q.AuthorID), nil
}

// AllReadersQuery returns every reader known to the system.
type AllReadersQuery struct{}

func (AllReadersQuery) name() string { return "all_readers" }
func (AllReadersQuery) execute(idx *readmodel.IndexSet) (any, error) {
	return idx.AllReaders(), nil
}

// ReaderByIDQuery resolves a single reader by id.
type ReaderByIDQuery struct{ ID types.ReaderID }

func (ReaderByIDQuery) name() string { return "reader_by_id" }
func (q ReaderByIDQuery) execute(idx *readmodel.IndexSet) (any, error) {
	reader, ok := idx.ReaderById(q.ID)
	if !ok {
		return nil, blisterr.ErrNotFound
	}
	return reader, nil
}

// BooksByReaderQuery returns a reader's deduplicated reading history.
type BooksByReaderQuery struct{ ReaderID types.ReaderID }

func (BooksByReaderQuery) name() string { return "books_by_reader" }
func (q BooksByReaderQuery) execute(idx *readmodel.IndexSet) (any, error) {
	return idx.BooksByReader(q.ReaderID), nil
}

// UniqueReaderByMonikerQuery resolves a reader by their unique moniker.
type UniqueReaderByMonikerQuery struct{ Moniker string }

func (UniqueReaderByMonikerQuery) name() string { return "unique_reader_by_moniker" }
func (q UniqueReaderByMonikerQuery) execute(idx *readmodel.IndexSet) (any, error) {
	reader, ok := idx.UniqueReaderByMoniker(q.Moniker)
	if !ok {
		return nil, blisterr.ErrNotFound
	}
	return reader, nil
}

// SearchQuery looks a term up verbatim in the full-text index.
type SearchQuery struct{ Term string }

func (SearchQuery) name() string { return "search" }
func (q SearchQuery) execute(idx *readmodel.IndexSet) (any, error) {
	return idx.Search(q.Term)
}

// AllKeywordsQuery returns every distinct keyword ever added.
type AllKeywordsQuery struct{}

func (AllKeywordsQuery) name() string { return "all_keywords" }
func (AllKeywordsQuery) execute(idx *readmodel.IndexSet) (any, error) {
	return idx.AllKeywords(), nil
}

// TargetKeywordsQuery returns the keywords attached to a target.
type TargetKeywordsQuery struct{ Target types.ResourceIdentity }

func (TargetKeywordsQuery) name() string { return "target_keywords" }
func (q TargetKeywordsQuery) execute(idx *readmodel.IndexSet) (any, error) {
	return idx.TargetKeywords(q.Target), nil
}

// KeywordTargetsQuery returns every target a keyword is attached to.
type KeywordTargetsQuery struct{ Keyword types.Keyword }

func (KeywordTargetsQuery) name() string { return "keyword_targets" }
func (q KeywordTargetsQuery) execute(idx *readmodel.IndexSet) (any, error) {
	return idx.KeywordTargets(q.Keyword), nil
}
