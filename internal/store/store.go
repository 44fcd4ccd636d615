// Package store is the persisted record store: JSON documents grouped in
// collections and addressed by store-assigned ids.
package store

import (
	"context"
	"encoding/json"
	"errors"
)

// Collections used by the launcher.
const (
	CollectionAccounts     = "accounts"
	CollectionClientConfig = "configClient"
)

// SingletonID addresses the only record of a singleton collection.
const SingletonID = ""

var (
	// ErrNotFound is returned by Read and Update when no record matches.
	ErrNotFound = errors.New("record not found")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("store closed")
)

// Record is one stored document.
type Record struct {
	ID   string
	Data json.RawMessage
}

// Decode unmarshals the record data into v.
func (r Record) Decode(v any) error {
	return json.Unmarshal(r.Data, v)
}

// Store is the CRUD-by-id contract every component consumes.
//
// Ids are decimal strings assigned by Create and never reused. ReadAll
// returns records in insertion order. Update with SingletonID creates the
// singleton record when it does not exist yet; any other missing id yields
// ErrNotFound. Delete of a missing record is not an error.
type Store interface {
	Create(ctx context.Context, collection string, value any) (string, error)
	Read(ctx context.Context, collection, id string, dst any) error
	ReadAll(ctx context.Context, collection string) ([]Record, error)
	Update(ctx context.Context, collection, id string, value any) error
	Delete(ctx context.Context, collection, id string) error
	Close() error
}
