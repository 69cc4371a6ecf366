package store

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/dosco/sqlls/internal/dialect"
	"github.com/dosco/sqlls/internal/grammar"
)

// Analysis is whatever a document's analysis pass computes once per
// distinct (fingerprint, dialect) pair: a built scope tree, the statement
// node it was built from, and the diagnostics produced alongside it. It is
// declared as an interface{} payload here because the concrete type
// (internal/scope.Tree + internal/providers.Diagnostic) lives above this
// package in the dependency graph; the store only needs to cache and share
// it, not interpret it.
type Analysis = interface{}

// AnalysisFunc computes the Analysis for a document snapshot; Store calls
// this at most once per distinct (fingerprint, dialect) pair thanks to the
// LRU cache plus singleflight dedup.
type AnalysisFunc func(ctx context.Context, snap Snapshot) (Analysis, error)

// Store holds every open document plus a shared analysis cache, per
// spec.md §4.8.
type Store struct {
	mu   sync.RWMutex
	docs map[string]*Document

	analysisCache *lru.Cache[string, Analysis]
	group         singleflight.Group
}

// New builds a Store whose analysis cache holds up to cacheSize entries.
func New(cacheSize int) (*Store, error) {
	c, err := lru.New[string, Analysis](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Store{docs: map[string]*Document{}, analysisCache: c}, nil
}

// Open registers a newly opened document at version 1 (or the version the
// client reports), parsing it fresh.
func (s *Store) Open(ctx context.Context, uri, text string, version int, id dialect.ID) error {
	tree, err := grammar.Parse(ctx, []byte(text), id, nil)
	if err != nil {
		return fmt.Errorf("store: open %s: %w", uri, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[uri] = &Document{URI: uri, Version: version, Dialect: id, Text: []byte(text), Tree: tree}
	return nil
}

// Close discards a document and releases its parse tree.
func (s *Store) Close(uri string) {
	s.mu.Lock()
	doc, ok := s.docs[uri]
	delete(s.docs, uri)
	s.mu.Unlock()
	if ok && doc.Tree != nil {
		doc.Tree.Close()
	}
}

// Update applies edits (already translated to byte offsets and concatenated
// new text per edit) in order, reparsing incrementally, and bumps the
// document to newVersion. Edits must be applied in version order; Update
// rejects a newVersion that is not exactly current+1.
func (s *Store) Update(ctx context.Context, uri string, newVersion int, edits []Edit) error {
	s.mu.RLock()
	doc, ok := s.docs[uri]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("store: update: unknown document %s", uri)
	}

	doc.mu.Lock()
	defer doc.mu.Unlock()

	if newVersion != doc.Version+1 {
		return &ErrStaleVersion{URI: uri, Current: doc.Version, Wanted: newVersion}
	}

	oldTree := doc.Tree
	text := doc.Text
	for _, e := range edits {
		text = applyEdit(text, e)
		if oldTree != nil {
			grammar.ApplyEdit(oldTree, grammar.Edit{
				StartByte:  e.StartByte,
				OldEndByte: e.OldEndByte,
				NewEndByte: e.NewEndByte,
			})
		}
	}

	newTree, err := grammar.Parse(ctx, text, doc.Dialect, oldTree)
	if err != nil {
		return fmt.Errorf("store: update %s: %w", uri, err)
	}

	doc.Text = text
	doc.Tree = newTree
	doc.Version = newVersion
	return nil
}

func applyEdit(text []byte, e Edit) []byte {
	if int(e.OldEndByte) > len(text) {
		e.OldEndByte = uint32(len(text))
	}
	out := make([]byte, 0, len(text)-int(e.OldEndByte-e.StartByte)+len(e.NewText))
	out = append(out, text[:e.StartByte]...)
	out = append(out, e.NewText...)
	out = append(out, text[e.OldEndByte:]...)
	return out
}

// Snapshot returns an immutable view of uri's current state.
func (s *Store) Snapshot(uri string) (Snapshot, bool) {
	s.mu.RLock()
	doc, ok := s.docs[uri]
	s.mu.RUnlock()
	if !ok {
		return Snapshot{}, false
	}
	doc.mu.RLock()
	defer doc.mu.RUnlock()
	return doc.snapshot(), true
}

// Analyze returns the cached Analysis for snap's (Fingerprint, Dialect),
// computing it via compute on a cache miss. Concurrent callers racing on
// the same key share one computation (spec.md §4.8's cache semantics).
func (s *Store) Analyze(ctx context.Context, snap Snapshot, compute AnalysisFunc) (Analysis, error) {
	key := snap.Fingerprint + "\x00" + snap.Dialect.String()

	if a, ok := s.analysisCache.Get(key); ok {
		return a, nil
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		if a, ok := s.analysisCache.Get(key); ok {
			return a, nil
		}
		a, err := compute(ctx, snap)
		if err != nil {
			return nil, err
		}
		s.analysisCache.Add(key, a)
		return a, nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}
