package scope

// Verdict discriminates a column resolution's outcome, per spec.md §4.4's
// "ambiguity is data, not an error" invariant: callers branch on Verdict
// instead of an error value, and an Ambiguous result still carries every
// candidate table so the diagnostics provider can list them.
type Verdict uint8

const (
	Unresolved Verdict = iota
	Resolved
	Ambiguous
)

// Resolution is the result of resolving one column reference (optionally
// qualified) against a scope.
type Resolution struct {
	Verdict    Verdict
	Binding    Binding   // set when Verdict == Resolved
	Candidates []Binding // set when Verdict == Ambiguous: every table offering the column
}

// ResolveColumn implements spec.md §4.4's resolve_column(scope, qualifier?,
// column) → Resolution:
//
//   - a qualifier narrows the search to the one binding (alias or bare
//     table name) it names, innermost scope wins on a name collision;
//   - a bare column searches every visible binding; zero matches is
//     Unresolved, exactly one is Resolved, more than one is Ambiguous.
//
// CTE bindings whose column set could not be determined (HasTable == false)
// are treated as a silent match during qualifier lookup, since their shape
// is unknown rather than absent. A qualifier naming a real table the
// catalog has no record of is Unresolved, not Resolved — a FROM-clause
// table the catalog doesn't recognize cannot back any column reference.
// Either case never contributes false ambiguity to a bare (unqualified)
// search, which only considers bindings with HasTable == true.
func (t *Tree) ResolveColumn(scopeIdx int, qualifier, column string) Resolution {
	visible := t.Visible(scopeIdx)

	if qualifier != "" {
		for _, b := range visible {
			if !eqFold(b.Name(), qualifier) {
				continue
			}
			if !b.HasTable && !b.IsCTE {
				// qualifier names a table the catalog doesn't recognize;
				// nothing backs the column, so it can't be resolved either.
				return Resolution{Verdict: Unresolved}
			}
			return Resolution{Verdict: Resolved, Binding: b}
		}
		return Resolution{Verdict: Unresolved}
	}

	var matches []Binding
	for _, b := range visible {
		if !b.HasTable {
			continue
		}
		if _, ok := b.Table.Column(column); ok {
			matches = append(matches, b)
		}
	}

	switch len(matches) {
	case 0:
		return Resolution{Verdict: Unresolved}
	case 1:
		return Resolution{Verdict: Resolved, Binding: matches[0]}
	default:
		return Resolution{Verdict: Ambiguous, Candidates: matches}
	}
}
