// Package context implements the pure, CST-based context detector: given a
// parsed tree, its source, and a cursor byte offset, it identifies the
// syntactic slot being edited, the tables/aliases already visible, and any
// qualifier preceding the cursor. It performs no I/O and never touches the
// catalog, per spec.md §4.2.
package context

import (
	"strings"

	"github.com/dosco/sqlls/internal/dialect"
	"github.com/dosco/sqlls/internal/grammar"
)

// Location names the syntactic slot the cursor sits in, per spec.md §3.
type Location uint8

const (
	Unknown Location = iota
	SelectProjection
	FromClause
	JoinTarget
	JoinOnPredicate
	WherePredicate
	GroupBy
	OrderBy
	HavingPredicate
	FunctionArgument
	Keyword
)

func (l Location) String() string {
	switch l {
	case SelectProjection:
		return "SelectProjection"
	case FromClause:
		return "FromClause"
	case JoinTarget:
		return "JoinTarget"
	case JoinOnPredicate:
		return "JoinOnPredicate"
	case WherePredicate:
		return "WherePredicate"
	case GroupBy:
		return "GroupBy"
	case OrderBy:
		return "OrderBy"
	case HavingPredicate:
		return "HavingPredicate"
	case FunctionArgument:
		return "FunctionArgument"
	case Keyword:
		return "Keyword"
	default:
		return "Unknown"
	}
}

// TableRef names one table visible in a scope: its catalog name, an
// optional alias, and whether it names a CTE rather than a catalog table.
type TableRef struct {
	Name    string
	Alias   string
	IsCTE   bool
}

// ByteRange is a half-open [Start, End) byte span within a document.
type ByteRange struct {
	Start uint32
	End   uint32
}

// CompletionContext is the context detector's output, per spec.md §3.
type CompletionContext struct {
	Location     Location
	VisibleTables []TableRef
	Qualifier    string // empty if no "qualifier." precedes the cursor
	TriggerRange ByteRange
	CurrentToken string // partial identifier under the cursor, for prefix filtering

	// UsedTextualFallback is true when the CST walk could not locate a
	// usable enclosing statement and the detector fell back to the
	// documented regex-based scan (spec.md §9's "fallback textual table
	// extraction" note). Providers and telemetry use this to distinguish a
	// confident CST-based answer from the known-incomplete workaround.
	UsedTextualFallback bool
}

// HasQualifier reports whether a "qualifier." preceded the cursor.
func (c CompletionContext) HasQualifier() bool { return c.Qualifier != "" }

// Detect implements spec.md §4.2's algorithm. tree must be non-nil; pos is
// a byte offset into source (tree.Source).
func Detect(tree *grammar.Tree, pos uint32) CompletionContext {
	root := tree.Root()
	if root == nil {
		return CompletionContext{Location: Unknown}
	}

	target := locateNode(root, pos, tree.Source)
	if target == nil {
		return detectFallback(tree, pos)
	}

	loc, clause := classifyLocation(target)
	stmt := target.AncestorOfKind(grammar.KindSelectStatement)
	if stmt == nil {
		// The enclosing statement could not be found cleanly (e.g. the walk
		// bottomed out inside an ERROR node) — fall back per spec.md §4.2's
		// resilience contract.
		fb := detectFallback(tree, pos)
		fb.Location = loc
		return fb
	}

	visible := collectVisibleTables(stmt, tree.Dialect)

	qualifier, currentToken := qualifierAndToken(tree.Source, pos)

	if loc == Unknown && clause != nil && clause.Kind() == grammar.KindJoinClause {
		loc = JoinOnPredicate
	}

	return CompletionContext{
		Location:      loc,
		VisibleTables: visible,
		Qualifier:     qualifier,
		TriggerRange:  tokenRange(tree.Source, pos),
		CurrentToken:  currentToken,
	}
}

// locateNode finds the deepest node containing pos (step 1 of spec.md
// §4.2's algorithm), biasing toward the next slot at a token boundary
// (spec.md's "cursor at token boundary" edge policy): when pos sits exactly
// between two tokens (e.g. right after a comma), the walk prefers the node
// that starts at pos over the one that ends at pos.
func locateNode(root *grammar.Node, pos uint32, src []byte) *grammar.Node {
	if pos > uint32(len(src)) {
		pos = uint32(len(src))
	}
	node := root.NamedDescendantForByteRange(pos, pos)
	if node == nil {
		return root
	}
	// Bias toward the next slot: if pos is this node's end and it has a
	// following sibling, prefer the sibling (typing the first character of
	// a new column after a comma should read as the next projection item,
	// not the tail of the previous expression).
	if node.EndByte() == pos {
		if next := node.NextSibling(); next != nil && next.StartByte() == pos {
			return next
		}
	}
	return node
}

// classifyLocation implements step 2: walk to the nearest clause-like
// ancestor and map it to a Location.
func classifyLocation(target *grammar.Node) (Location, *grammar.Node) {
	for cur := target; cur != nil; cur = cur.Parent() {
		switch cur.Kind() {
		case grammar.KindProjection:
			return SelectProjection, cur
		case grammar.KindFromClause:
			if cur.AncestorOfKind(grammar.KindJoinClause) != nil {
				return JoinTarget, cur
			}
			return FromClause, cur
		case grammar.KindJoinClause:
			// Distinguish the join target (table_reference) from the ON
			// predicate by checking whether target sits under the "on"
			// field.
			if onNode := cur.Field("on"); onNode != nil && nodeContains(onNode, target) {
				return JoinOnPredicate, cur
			}
			return JoinTarget, cur
		case grammar.KindWhereClause:
			return WherePredicate, cur
		case grammar.KindGroupByClause:
			return GroupBy, cur
		case grammar.KindOrderByClause:
			return OrderBy, cur
		case grammar.KindHavingClause:
			return HavingPredicate, cur
		case grammar.KindFunctionCall:
			return FunctionArgument, cur
		case grammar.KindSelectStatement, grammar.KindSourceFile:
			return Keyword, cur
		}
	}
	return Unknown, nil
}

func nodeContains(ancestor, n *grammar.Node) bool {
	return ancestor.StartByte() <= n.StartByte() && n.EndByte() <= ancestor.EndByte()
}

// collectVisibleTables implements step 3: gather every table_reference in
// the statement's from_clause plus every preceding cte_definition.
func collectVisibleTables(stmt *grammar.Node, id dialect.ID) []TableRef {
	var out []TableRef

	// CTEs: walk up past stmt to any enclosing cte_clause ("WITH ...").
	if with := stmt.AncestorOfKind(grammar.KindCTEClause); with != nil {
		for i := 0; i < with.NamedChildCount(); i++ {
			def := with.NamedChild(i)
			if def.Kind() != grammar.KindCTEDefinition {
				continue
			}
			// CTEs that precede this statement, and the CTE whose body
			// contains it, are visible; a CTE is visible inside its own
			// body whether or not the WITH list says RECURSIVE.
			if def.StartByte() > stmt.StartByte() {
				continue
			}
			nameNode := def.Field("name")
			if nameNode == nil {
				continue
			}
			out = append(out, TableRef{
				Name:  grammar.UnquoteIdentifier(nameNode.Text(), id),
				IsCTE: true,
			})
		}
	}

	from := findDescendant(stmt, grammar.KindFromClause)
	if from == nil {
		return out
	}
	for i := 0; i < from.NamedChildCount(); i++ {
		child := from.NamedChild(i)
		if child.Kind() != grammar.KindTableReference {
			continue
		}
		ref := tableRefFromNode(child, id)
		if ref.Name != "" {
			out = append(out, ref)
		}
	}

	// JoinOnPredicate prioritizes the two joined tables; append any join
	// targets within this statement's from_clause too (JOINs nest under
	// from_clause in most SQL grammars).
	var walkJoins func(n *grammar.Node)
	walkJoins = func(n *grammar.Node) {
		if n == nil {
			return
		}
		if n.Kind() == grammar.KindJoinClause {
			if tr := findDescendant(n, grammar.KindTableReference); tr != nil {
				ref := tableRefFromNode(tr, id)
				if ref.Name != "" {
					out = append(out, ref)
				}
			}
		}
		for i := 0; i < n.NamedChildCount(); i++ {
			walkJoins(n.NamedChild(i))
		}
	}
	walkJoins(from)

	return dedupeTableRefs(out)
}

func tableRefFromNode(tableRef *grammar.Node, id dialect.ID) TableRef {
	nameNode := tableRef.Field("name")
	if nameNode == nil {
		nameNode = tableRef.NamedChild(0)
	}
	if nameNode == nil {
		return TableRef{}
	}
	ref := TableRef{Name: grammar.UnquoteIdentifier(nameNode.Text(), id)}
	if aliasNode := tableRef.Field("alias"); aliasNode != nil {
		ref.Alias = grammar.UnquoteIdentifier(aliasNode.Text(), id)
	} else if a := findDescendant(tableRef, grammar.KindAlias); a != nil {
		if n := a.NamedChild(0); n != nil {
			ref.Alias = grammar.UnquoteIdentifier(n.Text(), id)
		}
	}
	return ref
}

func dedupeTableRefs(in []TableRef) []TableRef {
	seen := map[string]bool{}
	out := make([]TableRef, 0, len(in))
	for _, r := range in {
		key := r.Name + "\x00" + r.Alias
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
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

// qualifierAndToken implements steps 4-5: if the token immediately
// preceding pos (skipping whitespace) is "." preceded by an identifier, that
// identifier is the qualifier; the partial identifier under the cursor (if
// any) becomes CurrentToken.
func qualifierAndToken(src []byte, pos uint32) (qualifier, currentToken string) {
	i := int(pos)
	if i > len(src) {
		i = len(src)
	}

	// current token: scan backward over identifier characters from pos.
	j := i
	for j > 0 && isIdentByte(src[j-1]) {
		j--
	}
	currentToken = string(src[j:i])

	k := j
	for k > 0 && isSpace(src[k-1]) {
		k--
	}
	if k > 0 && src[k-1] == '.' {
		m := k - 1
		for m > 0 && isSpace(src[m-1]) {
			m--
		}
		e := m
		for m > 0 && isIdentByte(src[m-1]) {
			m--
		}
		qualifier = string(src[m:e])
	}
	return
}

func tokenRange(src []byte, pos uint32) ByteRange {
	i := int(pos)
	if i > len(src) {
		i = len(src)
	}
	j := i
	for j > 0 && isIdentByte(src[j-1]) {
		j--
	}
	return ByteRange{Start: uint32(j), End: pos}
}

func isIdentByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// trimQuotes strips a leading/trailing matching quote character, used when
// the textual fallback captures a backtick/double-quoted identifier.
func trimQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '`' && s[len(s)-1] == '`') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return strings.TrimSpace(s)
}
