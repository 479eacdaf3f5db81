// Package store is the persistence boundary for bounty-board. It maps a
// collection name to an ordered sequence of JSON records and only supports
// whole-collection reads and writes. Every read returns a version token that
// the next write must present; a stale token fails with ErrConflict so a lost
// update becomes a retryable error instead of silent data loss.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	CollectionBounties    = "bounties"
	CollectionSubmissions = "submissions"
)

var (
	// ErrConflict means the collection changed since the version presented on write.
	ErrConflict = errors.New("store: version conflict")
	// ErrUnavailable wraps backend failures (I/O, network, driver errors).
	ErrUnavailable = errors.New("store: unavailable")
	// ErrUnknownCollection is returned for names other than the known collections.
	ErrUnknownCollection = errors.New("store: unknown collection")
)

// Version is an opaque optimistic-concurrency token. The empty Version
// identifies a collection that has never been written.
type Version string

// Snapshot is a whole collection as read at a given version.
type Snapshot struct {
	Records []json.RawMessage
	Version Version
}

// RecordStore is implemented by every backend.
type RecordStore interface {
	ReadAll(ctx context.Context, collection string) (Snapshot, error)
	// WriteAll replaces the collection if its current version equals expected
	// and returns the new version.
	WriteAll(ctx context.Context, collection string, records []json.RawMessage, expected Version) (Version, error)
	Close() error
}

func checkCollection(name string) error {
	switch name {
	case CollectionBounties, CollectionSubmissions:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownCollection, name)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}

// Decode unmarshals every record of a snapshot into T, keeping order.
func Decode[T any](snap Snapshot) ([]T, error) {
	out := make([]T, 0, len(snap.Records))
	for i, raw := range snap.Records {
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("decode record %d: %w", i, err)
		}
		out = append(out, item)
	}
	return out, nil
}

// Encode marshals items into records, keeping order.
func Encode[T any](items []T) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(items))
	for i := range items {
		raw, err := json.Marshal(items[i])
		if err != nil {
			return nil, fmt.Errorf("encode record %d: %w", i, err)
		}
		out = append(out, raw)
	}
	return out, nil
}

// marshalPayload and unmarshalPayload convert between the record list and the
// single JSON array document that the durable backends persist.
func marshalPayload(records []json.RawMessage) ([]byte, error) {
	if records == nil {
		records = []json.RawMessage{}
	}
	return json.Marshal(records)
}

func unmarshalPayload(payload []byte) ([]json.RawMessage, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	var records []json.RawMessage
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, err
	}
	return records, nil
}
