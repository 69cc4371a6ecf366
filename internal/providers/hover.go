package providers

import (
	"fmt"
	"strings"

	"github.com/dosco/sqlls/internal/dialect"
	"github.com/dosco/sqlls/internal/grammar"
	"github.com/dosco/sqlls/internal/sdata"
	"github.com/dosco/sqlls/internal/scope"
)

// HoverContent is the result of a hover lookup, per spec.md §4.6's
// hover(tree, scope, catalog, pos) → Option<HoverContent>.
type HoverContent struct {
	Title string
	Body  string
}

// Hover identifies the token at pos and, if it names a column, table, or
// function, returns descriptive content. Returns (HoverContent{}, false)
// for any other token (keyword, literal, punctuation) — callers should not
// render a hover popup in that case.
func Hover(root *grammar.Node, tree *scope.Tree, scopeIdx int, snap *sdata.Snapshot, id dialect.ID, pos uint32) (HoverContent, bool) {
	target := root.NamedDescendantForByteRange(pos, pos)
	if target == nil {
		return HoverContent{}, false
	}

	switch target.Kind() {
	case grammar.KindColumnReference:
		return hoverColumnReference(target, tree, scopeIdx, id)
	case grammar.KindTableReference:
		return hoverTableReference(target, snap, id)
	case grammar.KindFunctionCall:
		return hoverFunctionCall(target, id)
	case grammar.KindIdentifier:
		// An identifier outside a typed reference node: try each
		// interpretation in turn, since the grammar may not wrap every
		// bare identifier in a column_reference/table_reference node.
		if hc, ok := hoverColumnReference(target, tree, scopeIdx, id); ok {
			return hc, true
		}
		if hc, ok := hoverTableReference(target, snap, id); ok {
			return hc, true
		}
		return HoverContent{}, false
	default:
		return HoverContent{}, false
	}
}

func hoverColumnReference(target *grammar.Node, tree *scope.Tree, scopeIdx int, id dialect.ID) (HoverContent, bool) {
	if tree == nil {
		return HoverContent{}, false
	}
	text := grammar.UnquoteIdentifier(target.Text(), id)
	qualifier, column := splitQualified(text)

	res := tree.ResolveColumn(scopeIdx, qualifier, column)
	switch res.Verdict {
	case scope.Resolved:
		col, _ := res.Binding.Table.Column(column)
		title := fmt.Sprintf("%s.%s: %s", res.Binding.Table.Name, col.Name, col.Type)
		var body strings.Builder
		if col.IsPK {
			body.WriteString("primary key\n")
		}
		if col.Nullable {
			body.WriteString("nullable\n")
		}
		return HoverContent{Title: title, Body: body.String()}, true
	case scope.Ambiguous:
		var names []string
		for _, c := range res.Candidates {
			names = append(names, c.Table.Name)
		}
		return HoverContent{
			Title: fmt.Sprintf("%s: ambiguous", column),
			Body:  "present in: " + strings.Join(names, ", "),
		}, true
	default:
		return HoverContent{}, false
	}
}

func hoverTableReference(target *grammar.Node, snap *sdata.Snapshot, id dialect.ID) (HoverContent, bool) {
	if snap == nil {
		return HoverContent{}, false
	}
	name := grammar.UnquoteIdentifier(target.Text(), id)
	t, ok := snap.Table("", name)
	if !ok {
		return HoverContent{}, false
	}
	var body strings.Builder
	for _, c := range t.Columns {
		fmt.Fprintf(&body, "%s %s", c.Name, c.Type)
		if c.IsPK {
			body.WriteString(" (pk)")
		}
		body.WriteByte('\n')
	}
	return HoverContent{Title: t.QualifiedName(), Body: body.String()}, true
}

func hoverFunctionCall(target *grammar.Node, id dialect.ID) (HoverContent, bool) {
	nameNode := target.Field("name")
	if nameNode == nil {
		nameNode = target.NamedChild(0)
	}
	if nameNode == nil {
		return HoverContent{}, false
	}
	name := nameNode.Text()
	for _, f := range dialect.For(id).Functions() {
		if strings.EqualFold(f.Name, name) {
			return HoverContent{Title: f.Signature, Body: f.Doc}, true
		}
	}
	return HoverContent{}, false
}

func splitQualified(text string) (qualifier, column string) {
	if i := strings.LastIndexByte(text, '.'); i >= 0 {
		return text[:i], text[i+1:]
	}
	return "", text
}
