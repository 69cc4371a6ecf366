package grammar

import (
	"strings"

	"github.com/dosco/sqlls/internal/dialect"
)

// TokenClass is what the dialect overlay reclassifies a raw lexical token
// as, layered on top of the single upstream tree-sitter SQL grammar's
// generic identifier/string node kinds.
type TokenClass uint8

const (
	ClassPlain TokenClass = iota
	ClassQuotedIdentifier
	ClassDollarQuotedString
	ClassDialectKeyword
)

// ClassifyToken implements the dialect overlay described in spec.md §4.1's
// "dialect specialization" note: the base tree-sitter SQL grammar lexes
// backtick-quoted text, double-quoted text, and dollar-quoted strings all as
// generic identifier/string tokens, so family-specific meaning is recovered
// here from the raw token text rather than from a second compiled grammar.
// See DESIGN.md for why this, not per-dialect grammars, is the grounded
// choice given the ecosystem ships one tree-sitter SQL grammar.
func ClassifyToken(text string, id dialect.ID) TokenClass {
	switch id.Family() {
	case dialect.MySQLFamily:
		if strings.HasPrefix(text, "`") && strings.HasSuffix(text, "`") && len(text) >= 2 {
			return ClassQuotedIdentifier
		}
	case dialect.PostgreSQLFamily:
		if strings.HasPrefix(text, `"`) && strings.HasSuffix(text, `"`) && len(text) >= 2 {
			return ClassQuotedIdentifier
		}
		if strings.HasPrefix(text, "$$") || isDollarTag(text) {
			return ClassDollarQuotedString
		}
	}
	upper := strings.ToUpper(text)
	for _, kw := range dialect.For(id).Keywords() {
		if upper == kw {
			return ClassDialectKeyword
		}
	}
	return ClassPlain
}

// isDollarTag recognizes PostgreSQL's $tag$...$tag$ dollar-quoting syntax.
func isDollarTag(text string) bool {
	if len(text) < 2 || text[0] != '$' {
		return false
	}
	end := strings.IndexByte(text[1:], '$')
	return end >= 0
}

// UnquoteIdentifier strips family-specific quoting from an identifier token
// so the context detector and scope resolver compare bare names
// consistently regardless of how the user quoted them.
func UnquoteIdentifier(text string, id dialect.ID) string {
	switch id.Family() {
	case dialect.MySQLFamily:
		if strings.HasPrefix(text, "`") && strings.HasSuffix(text, "`") && len(text) >= 2 {
			return strings.ReplaceAll(text[1:len(text)-1], "``", "`")
		}
	case dialect.PostgreSQLFamily:
		if strings.HasPrefix(text, `"`) && strings.HasSuffix(text, `"`) && len(text) >= 2 {
			return strings.ReplaceAll(text[1:len(text)-1], `""`, `"`)
		}
	}
	return text
}
