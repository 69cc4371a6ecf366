// Package store implements spec.md §4.8's Document Store: versioned,
// per-URI documents with incremental reparsing and a content-fingerprint
// keyed analysis cache.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/dosco/sqlls/internal/dialect"
	"github.com/dosco/sqlls/internal/grammar"
)

// Edit is one text replacement within a document, in the same shape
// textDocument/didChange reports (UTF-8 byte offsets, already translated
// from the wire's UTF-16 positions by the caller).
type Edit struct {
	StartByte  uint32
	OldEndByte uint32
	NewEndByte uint32
	NewText    []byte
}

// Document is one open file: its latest text, version, dialect, and parsed
// tree. All mutation happens through Store.Update under the document's
// lock; readers obtain a Snapshot instead of touching this struct directly.
type Document struct {
	URI     string
	Version int
	Dialect dialect.ID
	Text    []byte
	Tree    *grammar.Tree

	mu sync.RWMutex
}

// Snapshot is an immutable, point-in-time view of a document handed to
// readers (providers, the dispatcher) without holding the document's lock —
// spec.md §5's "readers acquire an immutable snapshot reference, not a
// lock" policy.
type Snapshot struct {
	URI         string
	Version     int
	Dialect     dialect.ID
	Text        []byte
	Tree        *grammar.Tree
	Fingerprint string
}

// fingerprint hashes text so the analysis cache can key off content rather
// than version (two versions with identical text after an undo share a
// cache entry).
func fingerprint(text []byte) string {
	sum := sha256.Sum256(text)
	return hex.EncodeToString(sum[:8])
}

func (d *Document) snapshot() Snapshot {
	return Snapshot{
		URI:         d.URI,
		Version:     d.Version,
		Dialect:     d.Dialect,
		Text:        d.Text,
		Tree:        d.Tree,
		Fingerprint: fingerprint(d.Text),
	}
}

// ErrStaleVersion is returned by Store.Update when an edit's declared
// version is not exactly one greater than the document's current version —
// spec.md §4.8's "out-of-order versions are rejected" rule.
type ErrStaleVersion struct {
	URI             string
	Current, Wanted int
}

func (e *ErrStaleVersion) Error() string {
	return fmt.Sprintf("store: %s: out-of-order version %d (current %d)", e.URI, e.Wanted, e.Current)
}
