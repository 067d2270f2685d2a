// Package readmodel implements IndexSet, the multi-index projection
// the query handler maintains for every read the service exposes:
// entity lookups, inverse relations, tokenized full-text search, and
// the keyword↔target tag facet. Grounded on
// original_source/server/src/core/model/query.rs, rendered as Go maps
// behind a reader-writer lock instead of Rust's RwLock<IndexSet>.
package readmodel

import (
	"fmt"
	"strings"

	"github.com/cuemby/blister/internal/blisterr"
	"github.com/cuemby/blister/internal/domainevent"
	"github.com/cuemby/blister/pkg/types"
)

// searchTermLengthThreshold mirrors the original's constant: a token
// no longer than this is noise and never indexed.
const searchTermLengthThreshold = 1

// ProjectionKind discriminates which field of which entity a text
// index hit points at.
type ProjectionKind int

const (
	ProjectionBookTitle ProjectionKind = iota
	ProjectionBookIsbn
	ProjectionAuthorName
)

// Projection is a typed pointer into IndexSet's entity maps, the
// payload the text index stores per indexed term.
type Projection struct {
	Kind     ProjectionKind
	BookID   types.BookID
	AuthorID types.AuthorID
}

// SearchHit pairs a text-index match with the canonical string it
// resolved against.
type SearchHit struct {
	Projection Projection
	Source     string
}

// KeywordID is the compact interned id a keyword string is assigned
// on first use. 16 bits comfortably covers any realistic corpus.
type KeywordID uint16

// IndexSet is the read side's full projection. The zero value is not
// usable; build one with New.
type IndexSet struct {
	authors map[types.AuthorID]types.AuthorInfo
	books   map[types.BookID]types.BookInfo
	readers map[types.ReaderID]types.ReaderInfo

	readerByMoniker map[string]types.ReaderID
	booksByAuthor   map[types.AuthorID][]types.BookID
	booksByReader   map[types.ReaderID]map[types.BookID]types.ReadingRecord

	termProjections map[string]map[Projection]struct{}

	nextKeywordID  KeywordID
	keywordToID    map[types.Keyword]KeywordID
	idToKeyword    map[KeywordID]types.Keyword
	targetKeywords map[types.ResourceIdentity]map[KeywordID]struct{}
	keywordTargets map[KeywordID]map[types.ResourceIdentity]struct{}
}

// New returns an empty IndexSet.
func New() *IndexSet {
	return &IndexSet{
		authors:         make(map[types.AuthorID]types.AuthorInfo),
		books:           make(map[types.BookID]types.BookInfo),
		readers:         make(map[types.ReaderID]types.ReaderInfo),
		readerByMoniker: make(map[string]types.ReaderID),
		booksByAuthor:   make(map[types.AuthorID][]types.BookID),
		booksByReader:   make(map[types.ReaderID]map[types.BookID]types.ReadingRecord),
		termProjections: make(map[string]map[Projection]struct{}),
		keywordToID:     make(map[types.Keyword]KeywordID),
		idToKeyword:     make(map[KeywordID]types.Keyword),
		targetKeywords:  make(map[types.ResourceIdentity]map[KeywordID]struct{}),
		keywordTargets:  make(map[KeywordID]map[types.ResourceIdentity]struct{}),
	}
}

// Apply mutates the index set for one persisted event. It takes no
// lock of its own: queryhandler.New calls it while replaying the
// journal into a fresh IndexSet that nothing else can see yet, and the
// read-model apply loop calls it under the write lock this type sits
// behind (see queryhandler.QueryHandler).
func (idx *IndexSet) Apply(event domainevent.Event) {
	switch event.Kind {
	case domainevent.KindAuthorAdded:
		idx.authors[event.AuthorID] = event.AuthorInfo
		idx.indexPhrase(event.AuthorInfo.Name, Projection{Kind: ProjectionAuthorName, AuthorID: event.AuthorID})

	case domainevent.KindBookAdded:
		idx.books[event.BookID] = event.BookInfo
		idx.booksByAuthor[event.BookInfo.Author] = append(idx.booksByAuthor[event.BookInfo.Author], event.BookID)
		idx.bindTerm(event.BookInfo.ISBN, Projection{Kind: ProjectionBookIsbn, BookID: event.BookID})
		idx.indexPhrase(event.BookInfo.Title, Projection{Kind: ProjectionBookTitle, BookID: event.BookID})

	case domainevent.KindReaderAdded:
		idx.readers[event.ReaderID] = event.ReaderInfo
		idx.readerByMoniker[event.ReaderInfo.UniqueMoniker] = event.ReaderID

	case domainevent.KindBookRead:
		byReader, ok := idx.booksByReader[event.ReaderID]
		if !ok {
			byReader = make(map[types.BookID]types.ReadingRecord)
			idx.booksByReader[event.ReaderID] = byReader
		}
		if _, already := byReader[event.ReadingInfo.BookID]; !already {
			byReader[event.ReadingInfo.BookID] = types.ReadingRecord{
				BookID: event.ReadingInfo.BookID,
				When:   event.ReadingInfo.When,
			}
		}

	case domainevent.KindKeywordAdded:
		idx.addKeywordToTarget(event.Keyword, resourceIdentityOf(event.KeywordTarget))
	}
}

func resourceIdentityOf(target types.KeywordTarget) types.ResourceIdentity {
	if target.Kind == types.KeywordTargetBook {
		return types.BookResource(target.BookID)
	}
	return types.AuthorResource(target.AuthorID)
}

func (idx *IndexSet) addKeywordToTarget(keyword types.Keyword, target types.ResourceIdentity) {
	id, ok := idx.keywordToID[keyword]
	if !ok {
		id = idx.nextKeywordID
		idx.nextKeywordID++
		idx.keywordToID[keyword] = id
		idx.idToKeyword[id] = keyword
	}

	targets, ok := idx.targetKeywords[target]
	if !ok {
		targets = make(map[KeywordID]struct{})
		idx.targetKeywords[target] = targets
	}
	targets[id] = struct{}{}

	keywords, ok := idx.keywordTargets[id]
	if !ok {
		keywords = make(map[types.ResourceIdentity]struct{})
		idx.keywordTargets[id] = keywords
	}
	keywords[target] = struct{}{}
}

func (idx *IndexSet) indexPhrase(phrase string, target Projection) {
	for _, token := range tokenize(phrase) {
		idx.bindTerm(token, target)
	}
}

func (idx *IndexSet) bindTerm(term string, target Projection) {
	set, ok := idx.termProjections[term]
	if !ok {
		set = make(map[Projection]struct{})
		idx.termProjections[term] = set
	}
	set[target] = struct{}{}
}

// tokenize splits on the original's delimiter set and keeps tokens
// longer than searchTermLengthThreshold.
func tokenize(phrase string) []string {
	fields := strings.FieldsFunc(phrase, func(r rune) bool {
		switch r {
		case ' ', ',', '.', '-', '(', ')':
			return true
		default:
			return false
		}
	})

	tokens := fields[:0]
	for _, f := range fields {
		if len(f) > searchTermLengthThreshold {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// AllBooks returns every book in no particular order.
func (idx *IndexSet) AllBooks() []types.Book {
	books := make([]types.Book, 0, len(idx.books))
	for id, info := range idx.books {
		books = append(books, types.Book{ID: id, Info: info})
	}
	return books
}

// BookById looks up a single book.
func (idx *IndexSet) BookById(id types.BookID) (types.Book, bool) {
	info, ok := idx.books[id]
	return types.Book{ID: id, Info: info}, ok
}

// AllAuthors returns every author in no particular order.
func (idx *IndexSet) AllAuthors() []types.Author {
	authors := make([]types.Author, 0, len(idx.authors))
	for id, info := range idx.authors {
		authors = append(authors, types.Author{ID: id, Info: info})
	}
	return authors
}

// AuthorById looks up a single author.
func (idx *IndexSet) AuthorById(id types.AuthorID) (types.Author, bool) {
	info, ok := idx.authors[id]
	return types.Author{ID: id, Info: info}, ok
}

// AuthorByBookId resolves a book to its author.
func (idx *IndexSet) AuthorByBookId(id types.BookID) (types.Author, bool) {
	book, ok := idx.books[id]
	if !ok {
		return types.Author{}, false
	}
	return idx.AuthorById(book.Author)
}

// BooksByAuthorId returns an author's books in the order they were
// added.
func (idx *IndexSet) BooksByAuthorId(id types.AuthorID) []types.Book {
	ids := idx.booksByAuthor[id]
	books := make([]types.Book, 0, len(ids))
	for _, bookID := range ids {
		if book, ok := idx.BookById(bookID); ok {
			books = append(books, book)
		}
	}
	return books
}

// AllReaders returns every reader in no particular order.
func (idx *IndexSet) AllReaders() []types.Reader {
	readers := make([]types.Reader, 0, len(idx.readers))
	for id, info := range idx.readers {
		readers = append(readers, types.Reader{ID: id, Info: info})
	}
	return readers
}

// ReaderById looks up a single reader.
func (idx *IndexSet) ReaderById(id types.ReaderID) (types.Reader, bool) {
	info, ok := idx.readers[id]
	return types.Reader{ID: id, Info: info}, ok
}

// BooksByReader returns a reader's reading history, each book
// appearing at most once regardless of how many BookRead events were
// ever recorded for the pair.
func (idx *IndexSet) BooksByReader(id types.ReaderID) []types.ReadingRecord {
	byReader := idx.booksByReader[id]
	records := make([]types.ReadingRecord, 0, len(byReader))
	for _, record := range byReader {
		records = append(records, record)
	}
	return records
}

// UniqueReaderByMoniker resolves a reader's unique moniker.
func (idx *IndexSet) UniqueReaderByMoniker(moniker string) (types.Reader, bool) {
	id, ok := idx.readerByMoniker[moniker]
	if !ok {
		return types.Reader{}, false
	}
	return idx.ReaderById(id)
}

// AllKeywords returns every keyword ever added, in no particular
// order.
func (idx *IndexSet) AllKeywords() []types.Keyword {
	keywords := make([]types.Keyword, 0, len(idx.keywordToID))
	for keyword := range idx.keywordToID {
		keywords = append(keywords, keyword)
	}
	return keywords
}

// TargetKeywords returns the keywords attached to target.
func (idx *IndexSet) TargetKeywords(target types.ResourceIdentity) []types.Keyword {
	ids := idx.targetKeywords[target]
	keywords := make([]types.Keyword, 0, len(ids))
	for id := range ids {
		keywords = append(keywords, idx.idToKeyword[id])
	}
	return keywords
}

// KeywordTargets returns every target a keyword is attached to.
func (idx *IndexSet) KeywordTargets(keyword types.Keyword) []types.ResourceIdentity {
	id, ok := idx.keywordToID[keyword]
	if !ok {
		return nil
	}
	targets := idx.keywordTargets[id]
	result := make([]types.ResourceIdentity, 0, len(targets))
	for target := range targets {
		result = append(result, target)
	}
	return result
}

// Search looks up term verbatim in the text index and resolves every
// hit back to its canonical source string. A hit that cannot be
// resolved means the text index and an entity map disagree, which is
// a storage-consistency fault rather than a user-facing miss.
func (idx *IndexSet) Search(term string) ([]SearchHit, error) {
	projections := idx.termProjections[term]
	if len(projections) == 0 {
		return nil, nil
	}

	hits := make([]SearchHit, 0, len(projections))
	for projection := range projections {
		hit, err := idx.resolveProjection(projection)
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func (idx *IndexSet) resolveProjection(projection Projection) (SearchHit, error) {
	var source string

	switch projection.Kind {
	case ProjectionBookIsbn:
		book, ok := idx.books[projection.BookID]
		if !ok {
			return SearchHit{}, fmt.Errorf("%w: isbn projection for missing book %s", blisterr.ErrCorrupt, projection.BookID)
		}
		source = book.ISBN

	case ProjectionBookTitle:
		book, ok := idx.books[projection.BookID]
		if !ok {
			return SearchHit{}, fmt.Errorf("%w: title projection for missing book %s", blisterr.ErrCorrupt, projection.BookID)
		}
		source = book.Title

	case ProjectionAuthorName:
		author, ok := idx.authors[projection.AuthorID]
		if !ok {
			return SearchHit{}, fmt.Errorf("%w: name projection for missing author %s", blisterr.ErrCorrupt, projection.AuthorID)
		}
		source = author.Name

	default:
		return SearchHit{}, fmt.Errorf("%w: unknown projection kind %d", blisterr.ErrCorrupt, projection.Kind)
	}

	return SearchHit{Projection: projection, Source: source}, nil
}
