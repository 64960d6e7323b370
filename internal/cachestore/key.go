package cachestore

import (
	"fmt"
	"os"

	"github.com/opencontainers/go-digest"
)

// Key identifies one cache entry. Entries are content-addressed over the
// dependency lock file plus the toolchain and OS identity, namespaced by a
// job-class prefix. Distinct prefixes never collide even when every other
// component matches; that isolation keeps a debug build's cached state out
// of a release build.
type Key struct {
	// Prefix namespaces entries by job class, e.g. "test" vs "release".
	Prefix string
	// OS is the operating system identifier, e.g. "linux".
	OS string
	// Toolchain is the toolchain version identity, e.g. "nightly-2020-05-15".
	Toolchain string
	// LockHash is the digest of the dependency lock file contents.
	LockHash digest.Digest
}

// NewKey derives a key from the lock file's contents.
func NewKey(prefix, osID, toolchain string, lockContents []byte) Key {
	return Key{
		Prefix:    prefix,
		OS:        osID,
		Toolchain: toolchain,
		LockHash:  digest.FromBytes(lockContents),
	}
}

// KeyFromLockFile derives a key by hashing the lock file at the given path.
func KeyFromLockFile(prefix, osID, toolchain, lockPath string) (Key, error) {
	contents, err := os.ReadFile(lockPath)
	if err != nil {
		return Key{}, fmt.Errorf("reading lock file %s: %w", lockPath, err)
	}
	return NewKey(prefix, osID, toolchain, contents), nil
}

// String renders the full key. Every component participates, so any
// differing component yields a different entry.
func (k Key) String() string {
	return fmt.Sprintf("%s-%s-%s-%s", k.Prefix, k.OS, k.Toolchain, k.LockHash.Encoded())
}
