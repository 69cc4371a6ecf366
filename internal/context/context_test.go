package context

import (
	"context"
	"testing"

	"github.com/dosco/sqlls/internal/dialect"
	"github.com/dosco/sqlls/internal/grammar"
)

func parse(t *testing.T, src string) *grammar.Tree {
	t.Helper()
	tree, err := grammar.Parse(context.Background(), []byte(src), dialect.MySQL80, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	t.Cleanup(tree.Close)
	return tree
}

func TestDetectSelectProjectionNoFrom(t *testing.T) {
	src := "SELECT "
	tree := parse(t, src)
	ctx := Detect(tree, uint32(len(src)))
	if len(ctx.VisibleTables) != 0 {
		t.Errorf("expected no visible tables with no FROM clause yet, got %v", ctx.VisibleTables)
	}
}

func TestDetectQualifierOnDotTrigger(t *testing.T) {
	src := "SELECT users. FROM users"
	pos := uint32(len("SELECT users."))
	tree := parse(t, src)
	ctx := Detect(tree, pos)
	if ctx.Qualifier != "users" {
		t.Errorf("Qualifier = %q, want %q", ctx.Qualifier, "users")
	}
}

func TestFallbackExtractsJoinChain(t *testing.T) {
	src := []byte("SELECT x FROM a JOIN b ON a.id=b.a_id JOIN c ON b.id=c.b_id WHERE ")
	tree, err := grammar.Parse(context.Background(), src, dialect.MySQL80, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	defer tree.Close()

	ctx := detectFallback(tree, uint32(len(src)))
	names := map[string]bool{}
	for _, tr := range ctx.VisibleTables {
		names[tr.Name] = true
	}
	for _, want := range []string{"a", "b", "c"} {
		if !names[want] {
			t.Errorf("fallback should recover table %q from the JOIN chain, got %v", want, ctx.VisibleTables)
		}
	}
	if !ctx.UsedTextualFallback {
		t.Error("UsedTextualFallback should be true")
	}
}

func TestQualifierAndTokenNoDot(t *testing.T) {
	q, tok := qualifierAndToken([]byte("SELECT na"), 9)
	if q != "" {
		t.Errorf("Qualifier = %q, want empty", q)
	}
	if tok != "na" {
		t.Errorf("CurrentToken = %q, want %q", tok, "na")
	}
}
