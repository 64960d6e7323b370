// Package cachestore implements the keyed build cache shared across pipeline
// runs. Entries are opaque archives of build state, restored at job start
// and saved at job end. The contract per key is last-writer-wins: a save
// overwrites any prior entry, the engine never evicts, and concurrent jobs
// stay race-free by using disjoint key prefixes rather than locks.
package cachestore

import "context"

// Store is the cache entry store consumed by the cache step.
type Store interface {
	// Restore extracts the entry for key into root, returning false on a
	// miss. A miss is not an error; the job simply proceeds cold.
	Restore(ctx context.Context, key Key, root string) (bool, error)

	// Save archives the given paths (relative to root) under key,
	// overwriting any existing entry. Paths that do not exist are skipped
	// so a failed partial build does not poison the save.
	Save(ctx context.Context, key Key, root string, paths []string) error
}
