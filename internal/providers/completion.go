// Package providers implements spec.md §4.5-4.7's completion, hover, and
// diagnostics providers: pure functions over a parsed tree, its
// CompletionContext, its Scope, and a catalog snapshot.
package providers

import (
	"sort"
	"strings"

	sqlcontext "github.com/dosco/sqlls/internal/context"
	"github.com/dosco/sqlls/internal/dialect"
	"github.com/dosco/sqlls/internal/sdata"
	"github.com/dosco/sqlls/internal/scope"
)

// Kind discriminates a CompletionSuggestion's origin, mirroring spec.md
// §3's CompletionSuggestion kinds.
type Kind uint8

const (
	KindColumn Kind = iota
	KindTable
	KindFunction
	KindKeyword
)

// Suggestion is one completion candidate plus the ranking tier it was
// assigned, lower tier sorting first (spec.md §4.5's "ranking" rule).
type Suggestion struct {
	Label      string
	InsertText string
	Detail     string
	Doc        string
	Kind       Kind
	tier       int
}

// tiers, ascending = better, exactly spec.md §4.5's ranking list.
const (
	tierExactPrefix = iota
	tierFKJoining
	tierPrimaryKey
	tierAliasedScopeColumn
	tierVisibleTableColumn
	tierCatalogTableOrFunction
	tierKeyword
)

// Complete implements spec.md §4.5's complete(ctx, scope, catalog, dialect).
// snap may be nil (e.g. catalog unavailable) — suggestions degrade to
// scope-only / keyword-only results rather than failing.
func Complete(cctx sqlcontext.CompletionContext, tree *scope.Tree, scopeIdx int, snap *sdata.Snapshot, id dialect.ID) []Suggestion {
	var out []Suggestion

	switch cctx.Location {
	case sqlcontext.SelectProjection, sqlcontext.WherePredicate, sqlcontext.HavingPredicate, sqlcontext.OrderBy, sqlcontext.GroupBy:
		out = completeColumnSlot(cctx, tree, scopeIdx, snap, id)
	case sqlcontext.FromClause, sqlcontext.JoinTarget:
		out = completeTableSlot(cctx, tree, scopeIdx, snap)
	case sqlcontext.JoinOnPredicate:
		out = completeJoinPredicate(cctx, tree, scopeIdx, snap)
	case sqlcontext.FunctionArgument:
		out = completeColumnSlot(cctx, tree, scopeIdx, snap, id)
		out = append(out, completeFunctions(id)...)
	case sqlcontext.Keyword:
		out = completeKeywords(id)
	default:
		return nil
	}

	out = filterByPrefix(out, cctx.CurrentToken)
	sortSuggestions(out)
	return out
}

func completeColumnSlot(cctx sqlcontext.CompletionContext, tree *scope.Tree, scopeIdx int, snap *sdata.Snapshot, id dialect.ID) []Suggestion {
	var out []Suggestion

	if cctx.HasQualifier() && tree != nil {
		for _, b := range tree.Visible(scopeIdx) {
			if !strings.EqualFold(b.Name(), cctx.Qualifier) {
				continue
			}
			for _, c := range b.Table.Columns {
				out = append(out, Suggestion{
					Label:      c.Name,
					InsertText: c.Name,
					Detail:     c.Type,
					Kind:       KindColumn,
					tier:       tierAliasedScopeColumn,
				})
			}
			return append(out, completeFunctions(id)...)
		}
		// Qualifier didn't resolve: no column suggestions, but functions
		// still make sense.
		return completeFunctions(id)
	}

	var bindings []scope.Binding
	if tree != nil {
		bindings = tree.Visible(scopeIdx)
	}
	if len(bindings) > 0 {
		seen := map[string]bool{}
		for _, b := range bindings {
			for _, c := range b.Table.Columns {
				key := strings.ToLower(b.Name() + "." + c.Name)
				if seen[key] {
					continue
				}
				seen[key] = true
				tier := tierVisibleTableColumn
				if c.IsPK {
					tier = tierPrimaryKey
				}
				out = append(out, Suggestion{
					Label:      c.Name,
					InsertText: c.Name,
					Detail:     b.Name() + "." + c.Type,
					Kind:       KindColumn,
					tier:       tier,
				})
			}
		}
	} else if snap != nil {
		// No scope info available (e.g. scope building failed): fall back
		// to every catalog table's columns.
		for _, t := range snap.Tables {
			for _, c := range t.Columns {
				out = append(out, Suggestion{Label: c.Name, InsertText: c.Name, Detail: t.Name + "." + c.Type, Kind: KindColumn, tier: tierVisibleTableColumn})
			}
		}
	}

	out = append(out, completeFunctions(id)...)
	return out
}

func completeFunctions(id dialect.ID) []Suggestion {
	d := dialect.For(id)
	var out []Suggestion
	for _, f := range d.Functions() {
		out = append(out, Suggestion{
			Label:      f.Name,
			InsertText: f.Signature,
			Detail:     f.Returns,
			Doc:        f.Doc,
			Kind:       KindFunction,
			tier:       tierCatalogTableOrFunction,
		})
	}
	return out
}

func completeTableSlot(cctx sqlcontext.CompletionContext, tree *scope.Tree, scopeIdx int, snap *sdata.Snapshot) []Suggestion {
	present := map[string]bool{}
	if tree != nil {
		for _, b := range tree.Visible(scopeIdx) {
			present[strings.ToLower(b.Table.Name)] = true
		}
	}

	var out []Suggestion
	if snap != nil {
		for _, t := range snap.Tables {
			if present[strings.ToLower(t.Name)] {
				continue
			}
			out = append(out, Suggestion{
				Label:      t.QualifiedName(),
				InsertText: t.Name,
				Detail:     "table",
				Kind:       KindTable,
				tier:       tierCatalogTableOrFunction,
			})
		}
	}
	// CTEs declared so far in this statement are also valid FROM/JOIN
	// targets, per spec.md §4.5.
	if tree != nil {
		for _, b := range tree.Visible(scopeIdx) {
			if b.IsCTE {
				out = append(out, Suggestion{Label: b.Table.Name, InsertText: b.Table.Name, Detail: "CTE", Kind: KindTable, tier: tierCatalogTableOrFunction})
			}
		}
	}
	return out
}

func completeJoinPredicate(cctx sqlcontext.CompletionContext, tree *scope.Tree, scopeIdx int, snap *sdata.Snapshot) []Suggestion {
	if tree == nil || snap == nil {
		return nil
	}
	visible := tree.Visible(scopeIdx)
	if len(visible) < 2 {
		return completeColumnSlot(cctx, tree, scopeIdx, snap, dialect.Unknown)
	}
	ab, bb := visible[len(visible)-2], visible[len(visible)-1]
	a, b := ab.Table, bb.Table
	fkCols := map[string]bool{}
	for _, fk := range snap.ForeignKeysBetween(a, b) {
		fkCols[strings.ToLower(a.Name+"."+fk.LocalColumn)] = true
		fkCols[strings.ToLower(b.Name+"."+fk.TargetColumn)] = true
	}

	// A qualifier ("o.") narrows the list to that binding's columns,
	// labelled by bare column name as completeColumnSlot does.
	var out []Suggestion
	for _, bind := range []scope.Binding{ab, bb} {
		if cctx.HasQualifier() && !strings.EqualFold(bind.Name(), cctx.Qualifier) {
			continue
		}
		t := bind.Table
		for _, c := range t.Columns {
			tier := tierVisibleTableColumn
			if fkCols[strings.ToLower(t.Name+"."+c.Name)] {
				tier = tierFKJoining
			} else if c.IsPK {
				tier = tierPrimaryKey
			}
			label := t.Name + "." + c.Name
			if cctx.HasQualifier() {
				label = c.Name
			}
			out = append(out, Suggestion{
				Label:      label,
				InsertText: label,
				Detail:     c.Type,
				Kind:       KindColumn,
				tier:       tier,
			})
		}
	}
	return out
}

func completeKeywords(id dialect.ID) []Suggestion {
	var out []Suggestion
	for _, kw := range dialect.For(id).Keywords() {
		out = append(out, Suggestion{Label: kw, InsertText: kw, Kind: KindKeyword, tier: tierKeyword})
	}
	return out
}

// filterByPrefix applies current_token as a case-insensitive prefix filter;
// per spec.md §4.5, if filtering would empty the list, the unfiltered list
// is returned instead so the client's own filtering takes over.
func filterByPrefix(in []Suggestion, token string) []Suggestion {
	if token == "" {
		return in
	}
	lower := strings.ToLower(token)
	var out []Suggestion
	for _, s := range in {
		if strings.HasPrefix(strings.ToLower(s.Label), lower) {
			s.tier = minTier(s.tier, tierExactPrefix)
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return in
	}
	return out
}

func minTier(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func sortSuggestions(in []Suggestion) {
	sort.SliceStable(in, func(i, j int) bool {
		if in[i].tier != in[j].tier {
			return in[i].tier < in[j].tier
		}
		return strings.ToLower(in[i].Label) < strings.ToLower(in[j].Label)
	})
}
