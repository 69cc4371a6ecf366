package context

import (
	"regexp"
	"strings"

	"github.com/dosco/sqlls/internal/grammar"
)

// FallbackWarnings counts how many times the textual fallback fired, so an
// operator can notice CST regressions without the fallback silently masking
// them — spec.md §9's "this fallback must not silently mask CST
// regressions; it must emit an internal warning counter" requirement.
var FallbackWarnings uint64

// maxFallbackTables bounds the textual fallback's table extraction. Open
// Question 2 in spec.md §9 is resolved here as "extract exhaustively, up to
// a bound" rather than "only the first two" — see DESIGN.md.
const maxFallbackTables = 16

// fromJoinPattern matches the table name of "FROM table" and "JOIN table"
// fragments; aliasPattern then reads an optional "[AS] alias" right after
// it, and a clause keyword in that slot (JOIN, ON, WHERE, ...) is not taken
// for an alias, so "FROM a JOIN b" yields both a and b. It is deliberately
// simple: it is a documented incomplete workaround (spec.md §9), not a
// correctness path, and in particular it does not understand subquery
// aliases ("(SELECT ...) AS alias") — Open Question 1.
var fromJoinPattern = regexp.MustCompile(`(?i)\b(?:FROM|JOIN)\s+([A-Za-z_][A-Za-z0-9_.` + "`" + `"]*)`)

var aliasPattern = regexp.MustCompile(`(?i)^\s+(?:AS\s+)?([A-Za-z_][A-Za-z0-9_]*)`)

var aliasStopWords = map[string]bool{
	"AS": true, "JOIN": true, "ON": true, "USING": true, "WHERE": true, "INNER": true,
	"LEFT": true, "RIGHT": true, "FULL": true, "CROSS": true, "OUTER": true, "NATURAL": true,
	"STRAIGHT_JOIN": true, "GROUP": true, "ORDER": true, "HAVING": true, "LIMIT": true, "UNION": true, "SET": true,
}

// detectFallback implements spec.md §4.2's resilience contract: when the
// CST walk cannot locate a usable enclosing statement (e.g. pos is inside an
// ERROR node), fall back to a textual scan of source up to pos.
func detectFallback(tree *grammar.Tree, pos uint32) CompletionContext {
	FallbackWarnings++

	src := tree.Source
	if int(pos) > len(src) {
		pos = uint32(len(src))
	}
	scan := src[:pos]

	var tables []TableRef
	seen := map[string]bool{}
	for _, m := range fromJoinPattern.FindAllSubmatchIndex(scan, -1) {
		if len(tables) >= maxFallbackTables {
			break
		}
		name := trimQuotes(string(scan[m[2]:m[3]]))
		alias := ""
		if a := aliasPattern.FindSubmatch(scan[m[1]:]); a != nil && !aliasStopWords[strings.ToUpper(string(a[1]))] {
			alias = string(a[1])
		}
		key := name + "\x00" + alias
		if seen[key] {
			continue
		}
		seen[key] = true
		tables = append(tables, TableRef{Name: name, Alias: alias})
	}

	qualifier, currentToken := qualifierAndToken(src, pos)

	return CompletionContext{
		Location:            inferLocationFromText(scan),
		VisibleTables:        tables,
		Qualifier:            qualifier,
		CurrentToken:         currentToken,
		TriggerRange:         tokenRange(src, pos),
		UsedTextualFallback:  true,
	}
}

var (
	selectKeyword  = regexp.MustCompile(`(?i)\bSELECT\b`)
	fromKeyword    = regexp.MustCompile(`(?i)\bFROM\b`)
	whereKeyword   = regexp.MustCompile(`(?i)\bWHERE\b`)
	groupByKeyword = regexp.MustCompile(`(?i)\bGROUP\s+BY\b`)
	orderByKeyword = regexp.MustCompile(`(?i)\bORDER\s+BY\b`)
	havingKeyword  = regexp.MustCompile(`(?i)\bHAVING\b`)
)

// inferLocationFromText makes a best-effort Location guess from the last
// clause keyword appearing before pos, when the CST-based classifier could
// not run at all.
func inferLocationFromText(scan []byte) Location {
	type hit struct {
		loc Location
		idx int
	}
	var hits []hit
	if m := lastMatch(selectKeyword, scan); m >= 0 {
		hits = append(hits, hit{SelectProjection, m})
	}
	if m := lastMatch(fromKeyword, scan); m >= 0 {
		hits = append(hits, hit{FromClause, m})
	}
	if m := lastMatch(whereKeyword, scan); m >= 0 {
		hits = append(hits, hit{WherePredicate, m})
	}
	if m := lastMatch(groupByKeyword, scan); m >= 0 {
		hits = append(hits, hit{GroupBy, m})
	}
	if m := lastMatch(orderByKeyword, scan); m >= 0 {
		hits = append(hits, hit{OrderBy, m})
	}
	if m := lastMatch(havingKeyword, scan); m >= 0 {
		hits = append(hits, hit{HavingPredicate, m})
	}
	best := Unknown
	bestIdx := -1
	for _, h := range hits {
		if h.idx > bestIdx {
			bestIdx = h.idx
			best = h.loc
		}
	}
	return best
}

func lastMatch(re *regexp.Regexp, s []byte) int {
	idxs := re.FindAllIndex(s, -1)
	if len(idxs) == 0 {
		return -1
	}
	return idxs[len(idxs)-1][0]
}
