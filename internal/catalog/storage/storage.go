// Package storage defines persistence contracts for the snippet catalog.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
var ErrAlreadyExists = errors.New("record already exists")

// ErrVersionConflict indicates a catalog write lost an optimistic concurrency
// race: the stored version no longer matches the version read at load time.
var ErrVersionConflict = errors.New("catalog version conflict")

// CanonicalSnippet is the single shared record for a normalized command.
// Records are append-only: once created they are never updated or deleted.
type CanonicalSnippet struct {
	SnippetID   string
	CommandText string
	Tags        []string
	Summary     string
	CreatedAt   time.Time
}

// OverlayEntry is one user's private customization of a canonical snippet.
// CommandText is a denormalized copy of the canonical command text, refreshed
// on every merge.
type OverlayEntry struct {
	SnippetID   string   `json:"snippet_id"`
	CommandText string   `json:"command_text"`
	Tags        []string `json:"tags"`
	Summary     string   `json:"summary"`
}

// UserCatalog holds one user's overlay entries, ordered, unique by snippet
// ID. Version carries the optimistic concurrency token: PutCatalog succeeds
// only when the stored version still equals Version, then increments it.
type UserCatalog struct {
	Identity  string
	Entries   []OverlayEntry
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EntryBySnippetID returns a pointer to the entry for snippetID, or nil.
func (c *UserCatalog) EntryBySnippetID(snippetID string) *OverlayEntry {
	for i := range c.Entries {
		if c.Entries[i].SnippetID == snippetID {
			return &c.Entries[i]
		}
	}
	return nil
}

// CanonicalStore persists the shared, append-only snippet catalog.
type CanonicalStore interface {
	// GetByNormalizedCommand returns the snippet whose normalized command
	// text equals key, or ErrNotFound.
	GetByNormalizedCommand(ctx context.Context, key string) (CanonicalSnippet, error)

	// CreateIfAbsent creates snippet keyed by the normalized command text
	// key. When a record for key already exists the store reports created ==
	// false and returns the existing record unchanged; it never overwrites.
	// This is the sole serialization point for concurrent writers.
	CreateIfAbsent(ctx context.Context, key string, snippet CanonicalSnippet) (created bool, winner CanonicalSnippet, err error)

	// SearchByTag returns snippets whose tag sequence contains any of the
	// terms by exact string match, in the store's native order.
	SearchByTag(ctx context.Context, terms []string) ([]CanonicalSnippet, error)
}

// OverlayStore persists per-user overlay catalogs at whole-collection
// granularity.
type OverlayStore interface {
	// GetCatalog returns the catalog for identity, or ErrNotFound.
	GetCatalog(ctx context.Context, identity string) (UserCatalog, error)

	// PutCatalog writes the whole catalog back. The write is conditional on
	// catalog.Version matching the stored version; a mismatch yields
	// ErrVersionConflict and no change. A catalog with Version 0 is created
	// fresh and fails with ErrVersionConflict if the identity already has one.
	PutCatalog(ctx context.Context, catalog UserCatalog) error
}
