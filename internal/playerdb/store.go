// Package playerdb is the per-player document store. Each player gets one
// database holding a flat keyed document: scalar blobs, index lists, and the
// entities those indexes reference, all addressed by (scope, key).
package playerdb

import (
	"context"
	"encoding/json"
)

// RawStore is the full persisted per-player document, read in one piece.
// Values are left undecoded; the pipeline decodes per domain.
type RawStore map[string]json.RawMessage

// Entity decodes the top-level value under key into out. It reports false
// when the key is absent, which callers must distinguish from a decode error:
// an absent key means the domain was never written, not that it is broken.
func (r RawStore) Entity(key string, out any) (bool, error) {
	raw, ok := r[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return true, err
	}
	return true, nil
}

// Store is the document-store collaborator the pipeline owns for a session.
type Store interface {
	// Init opens (creating if needed) the store for the given player.
	// Calling Init again switches to another player's store.
	Init(ctx context.Context, playerID, displayName string) error
	// Path returns the location of the currently open store, for display.
	Path() string
	// FindAll reads the entire document into memory in a single pass.
	FindAll(ctx context.Context) (RawStore, error)
	// Get reads one value under (scope, key) into out, reporting false when
	// the key is absent.
	Get(ctx context.Context, scope, key string, out any) (bool, error)
	// Upsert writes one value under (scope, key). Scope "" addresses the
	// top level; a non-empty scope addresses a key inside the named
	// top-level sub-document.
	Upsert(ctx context.Context, scope, key string, value any) error
	Close() error
}
