// Package eventstore implements blister's durable, content-addressed
// append-only log on top of an embedded go.etcd.io/bbolt keyspace,
// grounded on the teacher's pkg/storage/boltdb.go bucket-per-concern
// layout.
//
// Three buckets realize the layout spec.md §6 describes as two
// partitions ("events", "aggregates") plus the journal-ordering
// partition SPEC_FULL.md §4.A adds ("log"):
//
//   - events:     eventID (16 bytes)            -> JSON ExternalRepresentation
//   - aggregates: aggregateID ++ seq (8 bytes)   -> eventID (16 bytes)
//   - log:        seq (8 bytes, big-endian)      -> eventID (16 bytes)
//
// seq is a single monotonic counter (bbolt's bucket NextSequence)
// shared between "aggregates" and "log", taken inside the same write
// transaction as the primary insert. Because bbolt's B+tree sorts keys
// lexicographically and event ids are random UUIDv4s, a literal
// aggregateID++eventID secondary key could not be scanned back in
// append order; suffixing with the shared sequence instead guarantees
// both a per-aggregate prefix scan (bucket "aggregates") and a global
// scan (bucket "log") replay in true append order.
package eventstore

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/cuemby/blister/internal/blisterr"
	"github.com/cuemby/blister/internal/domainevent"
	"github.com/cuemby/blister/pkg/wireevent"
)

var (
	bucketEvents     = []byte("events")
	bucketAggregates = []byte("aggregates")
	bucketLog        = []byte("log")
)

// nowFn is the wall-clock source Persist stamps events with. Tests may
// override it to get deterministic ExternalRepresentation timestamps.
var nowFn = time.Now

// Store is the durable event log. The zero value is not usable; build
// one with Open.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if absent) the bbolt file "blister.db" under
// dataDir and ensures all three buckets exist.
func Open(dataDir string) (*Store, error) {
	path := filepath.Join(dataDir, "blister.db")

	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", blisterr.ErrEventArchive, path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketEvents, bucketAggregates, bucketLog} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: creating buckets: %v", blisterr.ErrEventArchive, err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying file handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Persist assigns a fresh event id and the current wall-clock time,
// serializes the event to its ExternalRepresentation, and writes the
// primary and secondary records in one bbolt write transaction. bbolt
// commits that transaction with fsync by default (DB.NoSync is never
// set here), which is the "SyncAll durability barrier" spec.md §4.A
// requires before Persist returns success.
func (s *Store) Persist(event domainevent.Event) (wireevent.ExternalRepresentation, error) {
	id := uuid.New()
	ext, err := event.ExternalRepresentation(id, nowFn())
	if err != nil {
		return wireevent.ExternalRepresentation{}, err
	}

	payload, err := json.Marshal(ext)
	if err != nil {
		return wireevent.ExternalRepresentation{}, fmt.Errorf("%w: %v", blisterr.ErrJSONCodec, err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		events := tx.Bucket(bucketEvents)
		aggregates := tx.Bucket(bucketAggregates)
		log := tx.Bucket(bucketLog)

		if err := events.Put(id[:], payload); err != nil {
			return err
		}

		seq, err := aggregates.NextSequence()
		if err != nil {
			return err
		}

		aggKey := append(append([]byte{}, ext.AggregateID[:]...), seqBytes(seq)...)
		if err := aggregates.Put(aggKey, id[:]); err != nil {
			return err
		}

		return log.Put(seqBytes(seq), id[:])
	})
	if err != nil {
		return wireevent.ExternalRepresentation{}, fmt.Errorf("%w: %v", blisterr.ErrIO, err)
	}

	return ext, nil
}

func seqBytes(seq uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, seq)
	return buf
}

// FindByEventID resolves a single event by its primary key.
func (s *Store) FindByEventID(id uuid.UUID) (wireevent.ExternalRepresentation, error) {
	var ext wireevent.ExternalRepresentation

	err := s.db.View(func(tx *bolt.Tx) error {
		payload := tx.Bucket(bucketEvents).Get(id[:])
		if payload == nil {
			return fmt.Errorf("%w: event %s", blisterr.ErrNotFound, id)
		}
		return json.Unmarshal(payload, &ext)
	})
	if err != nil {
		return wireevent.ExternalRepresentation{}, err
	}
	return ext, nil
}

// FindByAggregateID returns every event recorded against aggregateID,
// in append order, by prefix-scanning the "aggregates" bucket and
// resolving each hit against the "events" bucket.
func (s *Store) FindByAggregateID(aggregateID uuid.UUID) (domainevent.Stream, error) {
	var stream domainevent.Stream

	err := s.db.View(func(tx *bolt.Tx) error {
		aggregates := tx.Bucket(bucketAggregates)
		events := tx.Bucket(bucketEvents)
		prefix := aggregateID[:]

		c := aggregates.Cursor()
		for k, eventID := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, eventID = c.Next() {
			payload := events.Get(eventID)
			if payload == nil {
				return fmt.Errorf("%w: aggregates entry for %x has no events record", blisterr.ErrCorrupt, eventID)
			}
			var ext wireevent.ExternalRepresentation
			if err := json.Unmarshal(payload, &ext); err != nil {
				return fmt.Errorf("%w: %v", blisterr.ErrJSONCodec, err)
			}
			stream = append(stream, ext)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stream, nil
}

// LoadAggregate reconstructs an aggregate root of type T by fetching
// its event stream and handing it to tryLoad, the root's own
// reconstruction contract (internal/domainevent.TryLoadAuthor and
// friends). This is the Go rendition of the spec's
// "aggregate-identity <-> aggregate-root reciprocal binding": instead
// of binding identity and root types through interfaces, the caller
// passes tryLoad as a function value and T is inferred from it.
func LoadAggregate[T any](s *Store, aggregateID uuid.UUID, tryLoad func(domainevent.Stream) (T, error)) (T, error) {
	var zero T

	stream, err := s.FindByAggregateID(aggregateID)
	if err != nil {
		return zero, err
	}
	return tryLoad(stream)
}

// Journal returns every event ever persisted, in true global append
// order, by scanning the "log" bucket.
func (s *Store) Journal() ([]wireevent.ExternalRepresentation, error) {
	var all []wireevent.ExternalRepresentation

	err := s.db.View(func(tx *bolt.Tx) error {
		log := tx.Bucket(bucketLog)
		events := tx.Bucket(bucketEvents)

		return log.ForEach(func(_, eventID []byte) error {
			payload := events.Get(eventID)
			if payload == nil {
				return fmt.Errorf("%w: log entry for %x has no events record", blisterr.ErrCorrupt, eventID)
			}
			var ext wireevent.ExternalRepresentation
			if err := json.Unmarshal(payload, &ext); err != nil {
				return fmt.Errorf("%w: %v", blisterr.ErrJSONCodec, err)
			}
			all = append(all, ext)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}
