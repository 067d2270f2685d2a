// Package wireevent defines the serialization-stable form an event
// takes once it leaves the domain layer and enters the event store:
// ExternalRepresentation, the discriminator strings, and the Descriptor
// contract a domain event type implements to convert to it.
package wireevent

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cuemby/blister/internal/blisterr"
)

// Discriminator is one of the fixed "what" strings a stored event may
// carry. Replay fails loudly on any value outside this set.
type Discriminator string

const (
	BookAdded    Discriminator = "book-added"
	AuthorAdded  Discriminator = "author-added"
	ReaderAdded  Discriminator = "reader-added"
	BookRead     Discriminator = "book-read"
	KeywordAdded Discriminator = "keyword-added"
)

// ExternalRepresentation is the durable, self-describing form of an
// event as stored on disk: {eventId, timestamp, aggregateId, what, data}.
type ExternalRepresentation struct {
	ID          uuid.UUID       `json:"id"`
	When        time.Time       `json:"when"`
	AggregateID uuid.UUID       `json:"aggregateId"`
	What        Discriminator   `json:"what"`
	Data        json.RawMessage `json:"data"`
}

// Descriptor is implemented by a domain event type so it can be
// converted to an ExternalRepresentation without the event store
// needing to know the domain's event shapes. It covers encoding only;
// decoding back to a typed event is left to the domain package.
type Descriptor interface {
	// ExternalRepresentation stamps the event with the id and
	// timestamp the store minted for it and serializes its payload.
	ExternalRepresentation(id uuid.UUID, when time.Time) (ExternalRepresentation, error)
}

// Decode turns a payload into a typed struct, wrapping JSON errors in
// the closed error taxonomy.
func Decode(data json.RawMessage, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", blisterr.ErrJSONCodec, err)
	}
	return nil
}

// Encode serializes a payload, wrapping JSON errors in the closed
// error taxonomy.
func Encode(in any) (json.RawMessage, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", blisterr.ErrJSONCodec, err)
	}
	return data, nil
}
