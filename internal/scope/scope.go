// Package scope builds the per-statement scope tree spec.md §4.4 describes:
// which tables/aliases/CTEs are visible at a given point in a (possibly
// nested) query, and resolves a bare or qualified column reference against
// that visibility set.
package scope

import (
	"github.com/dosco/sqlls/internal/catalog"
	"github.com/dosco/sqlls/internal/dialect"
	"github.com/dosco/sqlls/internal/grammar"
	"github.com/dosco/sqlls/internal/sdata"
)

// Binding names one table (or CTE) visible in a scope, resolved against the
// catalog where possible. A CTE binding carries only the CTE's name: the
// builder does not derive a column set from the CTE body, so its Table has
// no Columns.
type Binding struct {
	Alias   string
	Table   sdata.Table
	IsCTE   bool
	HasTable bool // true only for a table found in the catalog snapshot; false for every CTE and every unknown table

	// NameStart/NameEnd is the byte range of the table_reference's name
	// token, used to anchor an unresolved-table diagnostic at the
	// identifier the FROM clause actually wrote.
	NameStart uint32
	NameEnd   uint32
}

// Name is the identifier this binding answers to in a FROM/JOIN list or
// qualifier position: the alias if present, else the table's bare name.
func (b Binding) Name() string {
	if b.Alias != "" {
		return b.Alias
	}
	return b.Table.Name
}

// scopeNode is one arena entry: its bindings plus an integer parent index
// (spec.md §9's "parent pointers as arena + integer indices" re-architecture
// note, avoiding Go back-pointer/GC-cycle concerns entirely).
type scopeNode struct {
	parent   int // -1 for the root scope
	bindings []Binding
}

// Tree is an immutable arena of scopes built for one document's CST. Index
// 0 is always the outermost, document-level scope, which holds no bindings;
// each select_statement opens a child scope below it.
type Tree struct {
	nodes            []scopeNode
	catalogAvailable bool // false when no snapshot backed the Builder, so an unbound table means "no catalog", not "unresolved"
}

const noParent = -1

// Builder constructs a Tree by walking a parsed statement's CST, resolving
// each table_reference against the Builder's catalog snapshot.
type Builder struct {
	cat    catalog.Catalog
	id     dialect.ID
	snap   *sdata.Snapshot
	tree   Tree
}

// NewBuilder prepares a Builder backed by a pre-fetched snapshot, so
// repeated scope builds for the same document don't re-hit the catalog.
func NewBuilder(id dialect.ID, snap *sdata.Snapshot, cat catalog.Catalog) *Builder {
	return &Builder{cat: cat, id: id, snap: snap}
}

// Build walks root (a source_file or select_statement node) and returns the
// resulting Tree plus the index of the innermost scope containing pos —
// the index callers pass to ResolveColumn and Visible.
func (b *Builder) Build(root *grammar.Node, pos uint32) (*Tree, int) {
	b.tree = Tree{nodes: []scopeNode{{parent: noParent}}, catalogAvailable: b.snap != nil}
	innermost := b.walk(root, 0, pos)
	out := b.tree
	return &out, innermost
}

// walk recurses through the statement, opening a new scope at each
// select_statement (subqueries and CTE bodies alike) and returns the index
// of the deepest scope whose statement contains pos.
func (b *Builder) walk(n *grammar.Node, parentScope int, pos uint32) int {
	if n == nil {
		return parentScope
	}

	scopeIdx := parentScope
	if n.Kind() == grammar.KindSelectStatement {
		scopeIdx = b.openScope(parentScope)
		b.populateCTEs(n, scopeIdx)
		b.populateFrom(n, scopeIdx)
	}

	deepest := scopeIdx
	if n.StartByte() <= pos && pos <= n.EndByte() {
		deepest = scopeIdx
	}
	for i := 0; i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		if child == nil {
			continue
		}
		childScope := scopeIdx
		if child.StartByte() <= pos && pos <= child.EndByte() {
			childScope = b.walk(child, scopeIdx, pos)
			deepest = childScope
		} else {
			b.walk(child, scopeIdx, pos)
		}
	}
	return deepest
}

func (b *Builder) openScope(parent int) int {
	b.tree.nodes = append(b.tree.nodes, scopeNode{parent: parent})
	return len(b.tree.nodes) - 1
}

func (b *Builder) populateFrom(stmt *grammar.Node, scopeIdx int) {
	from := findDescendant(stmt, grammar.KindFromClause)
	if from == nil {
		return
	}
	var collect func(n *grammar.Node)
	collect = func(n *grammar.Node) {
		if n == nil {
			return
		}
		if n.Kind() == grammar.KindTableReference {
			b.bindTableReference(n, scopeIdx)
		}
		for i := 0; i < n.NamedChildCount(); i++ {
			collect(n.NamedChild(i))
		}
	}
	collect(from)
}

func (b *Builder) bindTableReference(ref *grammar.Node, scopeIdx int) {
	nameNode := ref.Field("name")
	if nameNode == nil {
		nameNode = ref.NamedChild(0)
	}
	if nameNode == nil {
		return
	}
	name := grammar.UnquoteIdentifier(nameNode.Text(), b.id)
	alias := ""
	if a := ref.Field("alias"); a != nil {
		alias = grammar.UnquoteIdentifier(a.Text(), b.id)
	}

	binding := Binding{Alias: alias, NameStart: nameNode.StartByte(), NameEnd: nameNode.EndByte()}
	if cteIdx := b.lookupCTE(scopeIdx, name); cteIdx >= 0 {
		binding.IsCTE = true
		binding.Table = sdata.Table{Name: name}
		b.tree.nodes[scopeIdx].bindings = append(b.tree.nodes[scopeIdx].bindings, binding)
		return
	}

	if b.snap != nil {
		if t, ok := b.snap.Table("", name); ok {
			binding.Table = t
			binding.HasTable = true
		} else {
			binding.Table = sdata.Table{Name: name}
		}
	} else {
		binding.Table = sdata.Table{Name: name}
	}
	b.tree.nodes[scopeIdx].bindings = append(b.tree.nodes[scopeIdx].bindings, binding)
}

func (b *Builder) populateCTEs(stmt *grammar.Node, scopeIdx int) {
	with := stmt.AncestorOfKind(grammar.KindCTEClause)
	if with == nil {
		return
	}
	for i := 0; i < with.NamedChildCount(); i++ {
		def := with.NamedChild(i)
		if def.Kind() != grammar.KindCTEDefinition {
			continue
		}
		if def.StartByte() > stmt.StartByte() {
			continue
		}
		nameNode := def.Field("name")
		if nameNode == nil {
			continue
		}
		name := grammar.UnquoteIdentifier(nameNode.Text(), b.id)
		b.tree.nodes[scopeIdx].bindings = append(b.tree.nodes[scopeIdx].bindings, Binding{
			Alias: name,
			Table: sdata.Table{Name: name},
			IsCTE: true,
		})
	}
}

// lookupCTE reports whether name names a CTE visible from scopeIdx (or an
// ancestor scope), returning the defining scope's index or -1.
func (b *Builder) lookupCTE(scopeIdx int, name string) int {
	for idx := scopeIdx; idx != noParent; idx = b.tree.nodes[idx].parent {
		for _, bind := range b.tree.nodes[idx].bindings {
			if bind.IsCTE && eqFold(bind.Alias, name) {
				return idx
			}
		}
	}
	return -1
}

// Visible returns every binding visible from scopeIdx, innermost-first, so
// a closer alias shadows a same-named outer binding (ANSI shadowing rule,
// spec.md §4.4).
func (t *Tree) Visible(scopeIdx int) []Binding {
	var out []Binding
	for idx := scopeIdx; idx != noParent; idx = t.nodes[idx].parent {
		out = append(out, t.nodes[idx].bindings...)
	}
	return out
}

// UnresolvedTables returns every binding across the whole tree that names a
// real (non-CTE) table the catalog does not recognize, for diagnostics'
// table-resolution pass. It reports nothing when the Builder had no
// catalog snapshot to check against, since every binding would otherwise
// spuriously look unresolved.
func (t *Tree) UnresolvedTables() []Binding {
	if !t.catalogAvailable {
		return nil
	}
	var out []Binding
	for _, node := range t.nodes {
		for _, b := range node.bindings {
			if !b.IsCTE && !b.HasTable {
				out = append(out, b)
			}
		}
	}
	return out
}

func findDescendant(n *grammar.Node, kind grammar.Kind) *grammar.Node {
	if n == nil {
		return nil
	}
	if n.Kind() == kind {
		return n
	}
	for i := 0; i < n.NamedChildCount(); i++ {
		if found := findDescendant(n.NamedChild(i), kind); found != nil {
			return found
		}
	}
	return nil
}

func eqFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
