// Package types holds blister's domain identifiers and entity shapes.
//
// Identifiers wrap a raw UUID in a role-specific type so that an
// AuthorID can never be passed where a BookID is expected, even though
// both are backed by the same 16 bytes.
package types

import (
	"time"

	"github.com/google/uuid"
)

// AuthorID identifies an Author aggregate.
type AuthorID struct{ UUID uuid.UUID }

// BookID identifies a Book aggregate.
type BookID struct{ UUID uuid.UUID }

// ReaderID identifies a Reader aggregate.
type ReaderID struct{ UUID uuid.UUID }

// NewAuthorID mints a fresh, non-deterministic author identity.
func NewAuthorID() AuthorID { return AuthorID{UUID: uuid.New()} }

// NewBookID mints a fresh, non-deterministic book identity.
func NewBookID() BookID { return BookID{UUID: uuid.New()} }

// NewReaderID mints a fresh, non-deterministic reader identity.
func NewReaderID() ReaderID { return ReaderID{UUID: uuid.New()} }

func (id AuthorID) String() string { return id.UUID.String() }
func (id BookID) String() string   { return id.UUID.String() }
func (id ReaderID) String() string { return id.UUID.String() }

// Author is the reconstructed aggregate root for an AuthorAdded event.
type Author struct {
	ID   AuthorID
	Info AuthorInfo
}

// AuthorInfo is the data carried by AuthorAdded.
type AuthorInfo struct {
	Name string `json:"name"`
}

// Book is the reconstructed aggregate root for a BookAdded event.
type Book struct {
	ID   BookID
	Info BookInfo
}

// BookInfo is the data carried by BookAdded.
type BookInfo struct {
	ISBN   string   `json:"isbn"`
	Title  string   `json:"title"`
	Author AuthorID `json:"author"`
}

// Reader is the reconstructed aggregate root for a ReaderAdded event.
type Reader struct {
	ID   ReaderID
	Info ReaderInfo
}

// ReaderInfo is the data carried by ReaderAdded.
type ReaderInfo struct {
	Name          string `json:"name"`
	UniqueMoniker string `json:"unique_moniker"`
}

// ReadingInfo is the data carried by BookRead. It names the book read
// (the event's aggregate id is the reader) and, optionally, when the
// reading happened.
type ReadingInfo struct {
	ReaderID ReaderID   `json:"reader_id"`
	BookID   BookID     `json:"book_id"`
	When     *time.Time `json:"when,omitempty"`
}

// ReadingRecord is one (Reader, Book) pair in a reader's history.
type ReadingRecord struct {
	BookID BookID
	When   *time.Time
}

// Keyword is a non-empty tag string matching [\p{L}_-]+.
type Keyword string

// KeywordTargetKind discriminates the two entities a keyword can tag.
type KeywordTargetKind int

const (
	// KeywordTargetBook tags a Book.
	KeywordTargetBook KeywordTargetKind = iota
	// KeywordTargetAuthor tags an Author.
	KeywordTargetAuthor
)

// KeywordTarget is a tagged union over {BookID, AuthorID}.
type KeywordTarget struct {
	Kind     KeywordTargetKind
	BookID   BookID
	AuthorID AuthorID
}

// BookTarget builds a KeywordTarget pointing at a book.
func BookTarget(id BookID) KeywordTarget {
	return KeywordTarget{Kind: KeywordTargetBook, BookID: id}
}

// AuthorTarget builds a KeywordTarget pointing at an author.
func AuthorTarget(id AuthorID) KeywordTarget {
	return KeywordTarget{Kind: KeywordTargetAuthor, AuthorID: id}
}

// resourceKind enumerates the three mintable resource kinds. Kept
// separate from KeywordTargetKind (which only spans Book/Author)
// because AddReader also mints an identity.
type resourceKind int

const (
	resourceKindNone resourceKind = iota
	resourceKindAuthor
	resourceKindBook
	resourceKindReader
)

// ResourceIdentity is returned by Accepted outcomes on create-commands.
type ResourceIdentity struct {
	kind   resourceKind
	author AuthorID
	book   BookID
	reader ReaderID
}

// NoResource is the identity value for relation-commands (AddReadBook,
// AddKeyword) which do not mint a new entity.
var NoResource = ResourceIdentity{kind: resourceKindNone}

func AuthorResource(id AuthorID) ResourceIdentity {
	return ResourceIdentity{kind: resourceKindAuthor, author: id}
}

func BookResource(id BookID) ResourceIdentity {
	return ResourceIdentity{kind: resourceKindBook, book: id}
}

func ReaderResource(id ReaderID) ResourceIdentity {
	return ResourceIdentity{kind: resourceKindReader, reader: id}
}

// AsAuthorID returns the wrapped author id and whether this identity is one.
func (r ResourceIdentity) AsAuthorID() (AuthorID, bool) {
	return r.author, r.kind == resourceKindAuthor
}

// AsBookID returns the wrapped book id and whether this identity is one.
func (r ResourceIdentity) AsBookID() (BookID, bool) {
	return r.book, r.kind == resourceKindBook
}

// AsReaderID returns the wrapped reader id and whether this identity is one.
func (r ResourceIdentity) AsReaderID() (ReaderID, bool) {
	return r.reader, r.kind == resourceKindReader
}
