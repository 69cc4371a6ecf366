package providers

import (
	"fmt"

	"github.com/dosco/sqlls/internal/context"
	"github.com/dosco/sqlls/internal/grammar"
	"github.com/dosco/sqlls/internal/scope"
)

// Severity mirrors LSP's DiagnosticSeverity ordering (1 = Error ... 4 = Hint).
type Severity uint8

const (
	SeverityError Severity = iota + 1
	SeverityWarning
	SeverityInformation
	SeverityHint
)

// Diagnostic is one finding to surface via textDocument/publishDiagnostics.
type Diagnostic struct {
	Range    context.ByteRange
	Severity Severity
	Message  string
}

// Config knobs affecting diagnostic severity, per SPEC_FULL.md's resolution
// of the ambiguous-column Open Question.
type Config struct {
	// AmbiguityInProjectionSeverity grades an Ambiguous column reference
	// outside ON/USING (default Warning).
	AmbiguityInProjectionSeverity Severity
}

// DefaultConfig is the zero-value-safe default: Warning-level ambiguity.
var DefaultConfig = Config{AmbiguityInProjectionSeverity: SeverityWarning}

// ColumnRef is one column reference found while walking the tree for
// semantic diagnostics: its scope, qualifier/name, byte range, and whether
// it sits in a position where ambiguity is an error per the SQL standard
// (ON/USING clauses).
type ColumnRef struct {
	ScopeIdx       int
	Qualifier      string
	Column         string
	Range          context.ByteRange
	StrictPosition bool // true inside ON/USING
}

// Diagnose implements spec.md §4.7: syntax diagnostics from ERROR nodes,
// unresolved-table diagnostics from every non-CTE binding in tree the
// catalog couldn't back (tree.UnresolvedTables), plus semantic diagnostics
// from a caller-supplied list of column references, each resolved here
// against tree at its ScopeIdx. Diagnose does not walk the CST for column
// references itself; lspserver's publishDiagnostics passes nil refs.
func Diagnose(root *grammar.Node, refs []ColumnRef, tree *scope.Tree, cfg Config) []Diagnostic {
	var out []Diagnostic

	var walkErrors func(n *grammar.Node)
	walkErrors = func(n *grammar.Node) {
		if n == nil {
			return
		}
		if n.IsError() {
			out = append(out, Diagnostic{
				Range:    context.ByteRange{Start: n.StartByte(), End: n.EndByte()},
				Severity: SeverityError,
				Message:  "syntax error",
			})
		}
		for i := 0; i < n.ChildCount(); i++ {
			walkErrors(n.Child(i))
		}
	}
	walkErrors(root)

	if tree != nil {
		for _, b := range tree.UnresolvedTables() {
			out = append(out, Diagnostic{
				Range:    context.ByteRange{Start: b.NameStart, End: b.NameEnd},
				Severity: SeverityError,
				Message:  fmt.Sprintf("unresolved table reference %q", b.Table.Name),
			})
		}
	}

	for _, ref := range refs {
		if tree == nil {
			continue
		}
		res := tree.ResolveColumn(ref.ScopeIdx, ref.Qualifier, ref.Column)
		switch res.Verdict {
		case scope.Unresolved:
			out = append(out, Diagnostic{
				Range:    ref.Range,
				Severity: SeverityError,
				Message:  fmt.Sprintf("unresolved column reference %q", qualifiedName(ref)),
			})
		case scope.Ambiguous:
			sev := cfg.AmbiguityInProjectionSeverity
			if sev == 0 {
				sev = SeverityWarning
			}
			if ref.StrictPosition {
				sev = SeverityWarning // spec.md §4.7: stricter ON/USING enforcement is out of scope for v1
			}
			out = append(out, Diagnostic{
				Range:    ref.Range,
				Severity: sev,
				Message:  fmt.Sprintf("ambiguous column reference %q", qualifiedName(ref)),
			})
		}
	}

	return out
}

func qualifiedName(ref ColumnRef) string {
	if ref.Qualifier == "" {
		return ref.Column
	}
	return ref.Qualifier + "." + ref.Column
}
