package grammar

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// Kind enumerates the node kinds downstream layers depend on, per spec.md
// §4.1's "node kinds the downstream layers depend on" list. It gives the
// context detector compile-time exhaustiveness on Location dispatch instead
// of comparing raw strings against the grammar's node-type names — the
// "CST traversal by string node kinds" re-architecture note in spec.md §9.
type Kind string

const (
	KindSourceFile      Kind = "source_file"
	KindSelectStatement Kind = "select_statement"
	KindProjection      Kind = "projection"
	KindFromClause      Kind = "from_clause"
	KindTableReference  Kind = "table_reference"
	KindJoinClause      Kind = "join_clause"
	KindJoinType        Kind = "join_type"
	KindWhereClause     Kind = "where_clause"
	KindGroupByClause   Kind = "group_by_clause"
	KindHavingClause    Kind = "having_clause"
	KindOrderByClause   Kind = "order_by_clause"
	KindLimitClause     Kind = "limit_clause"
	KindCTEClause       Kind = "cte_clause"
	KindCTEDefinition   Kind = "cte_definition"
	KindColumnReference Kind = "column_reference"
	KindFunctionCall    Kind = "function_call"
	KindCaseExpression  Kind = "case_expression"
	KindBinaryExpr      Kind = "binary_expression"
	KindIdentifier      Kind = "identifier"
	KindAlias           Kind = "alias"
	KindError           Kind = "ERROR"
)

// clauseLikeKinds is the set of "clause-like" ancestors the context
// detector's step 2 walks up to, per spec.md §4.2.
var clauseLikeKinds = map[Kind]bool{
	KindProjection:    true,
	KindFromClause:    true,
	KindWhereClause:   true,
	KindGroupByClause: true,
	KindHavingClause:  true,
	KindOrderByClause: true,
	KindJoinClause:    true,
	KindFunctionCall:  true,
}

// IsClauseLike reports whether kind is one of the clause-like ancestors the
// context detector stops a upward walk at.
func IsClauseLike(k Kind) bool { return clauseLikeKinds[k] }

// Node is a typed view over a *sitter.Node: byte range, kind, named-field
// access, and parent/sibling traversal, satisfying spec.md §3's CST
// contract ("node kind, source byte range, named field accessors, and
// parent/sibling traversal").
type Node struct {
	n   *sitter.Node
	src []byte
}

// Kind returns the node's grammar-defined kind.
func (nd *Node) Kind() Kind {
	if nd == nil || nd.n == nil {
		return ""
	}
	return Kind(nd.n.Type())
}

// IsError reports whether this node is a tree-sitter ERROR node (malformed
// input the parser recovered around).
func (nd *Node) IsError() bool {
	return nd != nil && nd.n != nil && nd.n.IsError()
}

// IsMissing reports whether the parser synthesized this node to recover
// from a missing required token.
func (nd *Node) IsMissing() bool {
	return nd != nil && nd.n != nil && nd.n.IsMissing()
}

// StartByte and EndByte give the node's byte range within the source the
// tree was parsed from.
func (nd *Node) StartByte() uint32 {
	if nd == nil || nd.n == nil {
		return 0
	}
	return nd.n.StartByte()
}

func (nd *Node) EndByte() uint32 {
	if nd == nil || nd.n == nil {
		return 0
	}
	return nd.n.EndByte()
}

// Text returns the source text spanned by this node.
func (nd *Node) Text() string {
	if nd == nil || nd.n == nil {
		return ""
	}
	s, e := nd.StartByte(), nd.EndByte()
	if int(e) > len(nd.src) {
		e = uint32(len(nd.src))
	}
	if s > e {
		return ""
	}
	return string(nd.src[s:e])
}

// ChildCount returns the number of children, named and unnamed.
func (nd *Node) ChildCount() int {
	if nd == nil || nd.n == nil {
		return 0
	}
	return int(nd.n.ChildCount())
}

// Child returns the i'th child (named or unnamed).
func (nd *Node) Child(i int) *Node {
	if nd == nil || nd.n == nil {
		return nil
	}
	c := nd.n.Child(i)
	if c == nil {
		return nil
	}
	return &Node{n: c, src: nd.src}
}

// NamedChildCount returns the number of named children.
func (nd *Node) NamedChildCount() int {
	if nd == nil || nd.n == nil {
		return 0
	}
	return int(nd.n.NamedChildCount())
}

// NamedChild returns the i'th named child.
func (nd *Node) NamedChild(i int) *Node {
	if nd == nil || nd.n == nil {
		return nil
	}
	c := nd.n.NamedChild(i)
	if c == nil {
		return nil
	}
	return &Node{n: c, src: nd.src}
}

// Field returns the child bound to the grammar's named field fieldName
// (e.g. "name" on an alias node), or nil if absent.
func (nd *Node) Field(fieldName string) *Node {
	if nd == nil || nd.n == nil {
		return nil
	}
	c := nd.n.ChildByFieldName(fieldName)
	if c == nil {
		return nil
	}
	return &Node{n: c, src: nd.src}
}

// Parent returns the node's parent, or nil at the root.
func (nd *Node) Parent() *Node {
	if nd == nil || nd.n == nil {
		return nil
	}
	p := nd.n.Parent()
	if p == nil {
		return nil
	}
	return &Node{n: p, src: nd.src}
}

// NextSibling and PrevSibling traverse all siblings, named and unnamed
// (needed to find the token immediately preceding a cursor, e.g. a "."
// before an identifier).
func (nd *Node) NextSibling() *Node {
	if nd == nil || nd.n == nil {
		return nil
	}
	s := nd.n.NextSibling()
	if s == nil {
		return nil
	}
	return &Node{n: s, src: nd.src}
}

func (nd *Node) PrevSibling() *Node {
	if nd == nil || nd.n == nil {
		return nil
	}
	s := nd.n.PrevSibling()
	if s == nil {
		return nil
	}
	return &Node{n: s, src: nd.src}
}

// AncestorOfKind walks Parent() pointers until it finds one of kind k, or
// returns nil if none exists before the root.
func (nd *Node) AncestorOfKind(k Kind) *Node {
	for cur := nd; cur != nil; cur = cur.Parent() {
		if cur.Kind() == k {
			return cur
		}
	}
	return nil
}

// NamedDescendantForByteRange finds the smallest named node spanning
// [start, end), mirroring tree-sitter's descendant lookup. It walks from
// the receiver downward rather than using the C cursor API directly so it
// degrades gracefully (returns the deepest node reached) if the tree has
// ERROR nodes along the path.
func (nd *Node) NamedDescendantForByteRange(start, end uint32) *Node {
	cur := nd
	for {
		if cur == nil {
			return nil
		}
		var next *Node
		for i := 0; i < cur.NamedChildCount(); i++ {
			c := cur.NamedChild(i)
			if c.StartByte() <= start && end <= c.EndByte() {
				next = c
				break
			}
		}
		if next == nil {
			return cur
		}
		cur = next
	}
}
