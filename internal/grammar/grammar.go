// Package grammar wraps the incremental, error-tolerant tree-sitter SQL
// parser shared by every dialect family. Dialect-specific lexical
// differences (backtick vs double-quote identifiers, dollar-quoted
// strings, RETURNING, ...) that the single upstream tree-sitter SQL grammar
// does not distinguish are reclassified by the overlay pass in overlay.go,
// per the Open Question resolution recorded in DESIGN.md.
package grammar

import (
	"context"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	tssql "github.com/smacker/go-tree-sitter/sql"

	"github.com/dosco/sqlls/internal/dialect"
)

// Quality grades how much of a parse tree a malformed edit destroyed, per
// spec.md §4.1's failure semantics.
type Quality uint8

const (
	// Clean means no ERROR nodes anywhere in the tree.
	Clean Quality = iota
	// Partial means some ERROR nodes exist but statement boundaries are
	// intact — downstream analysis can still locate the enclosing
	// statement for any position.
	Partial
	// Degraded means the statement boundary itself is uncertain (an ERROR
	// node spans what should be a top-level statement separator).
	Degraded
)

func (q Quality) String() string {
	switch q {
	case Clean:
		return "clean"
	case Partial:
		return "partial"
	case Degraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Tree is the CST produced by Parse: the tree-sitter tree, the
// source it was parsed from, the dialect it was parsed as, and a quality
// grade.
type Tree struct {
	sitterTree *sitter.Tree
	Source     []byte
	Dialect    dialect.ID
	Quality    Quality
}

// Root returns the typed root node of the tree.
func (t *Tree) Root() *Node {
	if t == nil || t.sitterTree == nil {
		return nil
	}
	return &Node{n: t.sitterTree.RootNode(), src: t.Source}
}

// Close releases the underlying tree-sitter tree. Safe to call on a nil
// Tree.
func (t *Tree) Close() {
	if t != nil && t.sitterTree != nil {
		t.sitterTree.Close()
	}
}

// Edit describes a single text edit for incremental reparse, mirroring
// sitter.EditInput's byte-offset/point fields.
type Edit struct {
	StartByte   uint32
	OldEndByte  uint32
	NewEndByte  uint32
	StartPoint  Point
	OldEndPoint Point
	NewEndPoint Point
}

// Point is a (row, column) source location, 0-indexed, columns in bytes.
type Point struct {
	Row    uint32
	Column uint32
}

func (p Point) toSitter() sitter.Point {
	return sitter.Point{Row: p.Row, Column: p.Column}
}

// pool is a per-dialect-family pool of tree-sitter parsers. A *sitter.Parser
// is not safe for concurrent use, so the Request Dispatcher's worker pool
// borrows one per in-flight parse and returns it when done — the same
// "parsers are pooled per dialect-family" resource policy spec.md §5 calls
// for.
type pool struct {
	mu    sync.Mutex
	free  []*sitter.Parser
	lang  *sitter.Language
}

var (
	poolsMu sync.Mutex
	pools   = map[dialect.Family]*pool{}
)

func familyPool(f dialect.Family) *pool {
	poolsMu.Lock()
	defer poolsMu.Unlock()
	if p, ok := pools[f]; ok {
		return p
	}
	p := &pool{lang: tssql.GetLanguage()}
	pools[f] = p
	return p
}

func (p *pool) acquire() *sitter.Parser {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n := len(p.free); n > 0 {
		parser := p.free[n-1]
		p.free = p.free[:n-1]
		return parser
	}
	parser := sitter.NewParser()
	parser.SetLanguage(p.lang)
	return parser
}

func (p *pool) release(parser *sitter.Parser) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.free = append(p.free, parser)
}

// SetPoolSize pre-warms n parser instances for family f, matching the
// worker-pool size at server startup (spec.md §5: "N instances, N =
// worker-pool size").
func SetPoolSize(f dialect.Family, n int) {
	p := familyPool(f)
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.free) < n {
		parser := sitter.NewParser()
		parser.SetLanguage(p.lang)
		p.free = append(p.free, parser)
	}
}

// Parse produces a CST for source under id, reusing previous's tree (if
// non-nil) for incremental parsing. previous must already have had Edit
// applied for every edit since it was produced. Parse never fails: on
// malformed input it returns a tree containing ERROR nodes, graded by
// Quality.
func Parse(ctx context.Context, source []byte, id dialect.ID, previous *Tree) (*Tree, error) {
	p := familyPool(id.Family())
	parser := p.acquire()
	defer p.release(parser)

	var old *sitter.Tree
	if previous != nil {
		old = previous.sitterTree
	}

	st, err := parser.ParseCtx(ctx, old, source)
	if err != nil {
		return nil, err
	}

	t := &Tree{sitterTree: st, Source: source, Dialect: id}
	t.Quality = grade(t.Root())
	return t, nil
}

// ApplyEdit records a text edit against an existing tree so a subsequent
// Parse call can reuse unaffected subtrees. Call this once per edit
// described in a textDocument/didChange notification, in order, before
// reparsing.
func ApplyEdit(t *Tree, e Edit) {
	if t == nil || t.sitterTree == nil {
		return
	}
	t.sitterTree.Edit(sitter.EditInput{
		StartIndex:  e.StartByte,
		OldEndIndex: e.OldEndByte,
		NewEndIndex: e.NewEndByte,
		StartPoint:  e.StartPoint.toSitter(),
		OldEndPoint: e.OldEndPoint.toSitter(),
		NewEndPoint: e.NewEndPoint.toSitter(),
	})
}

// grade walks the tree once, classifying it Clean/Partial/Degraded.
func grade(root *Node) Quality {
	if root == nil {
		return Degraded
	}
	hasError := false
	boundaryBroken := false

	var walk func(n *Node, depth int)
	walk = func(n *Node, depth int) {
		if n == nil {
			return
		}
		if n.IsError() {
			hasError = true
			// An ERROR node that is a direct child of the source_file
			// (depth 1) swallows an entire statement boundary.
			if depth <= 1 {
				boundaryBroken = true
			}
		}
		for i := 0; i < n.ChildCount(); i++ {
			walk(n.Child(i), depth+1)
		}
	}
	walk(root, 0)

	switch {
	case boundaryBroken:
		return Degraded
	case hasError:
		return Partial
	default:
		return Clean
	}
}
