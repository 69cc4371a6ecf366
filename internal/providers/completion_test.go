package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	sqlcontext "github.com/dosco/sqlls/internal/context"
	"github.com/dosco/sqlls/internal/dialect"
	"github.com/dosco/sqlls/internal/grammar"
	"github.com/dosco/sqlls/internal/sdata"
	"github.com/dosco/sqlls/internal/scope"
)

func testSnapshot() *sdata.Snapshot {
	users := sdata.Table{Name: "users", Columns: []sdata.Column{
		{Name: "id", Type: "int", IsPK: true},
		{Name: "name", Type: "text"},
	}}
	orders := sdata.Table{Name: "orders", Columns: []sdata.Column{
		{Name: "id", Type: "int", IsPK: true},
		{Name: "user_id", Type: "int"},
	}, FKs: []sdata.ForeignKey{{LocalColumn: "user_id", TargetTable: "users", TargetColumn: "id"}}}
	return &sdata.Snapshot{Tables: []sdata.Table{users, orders}}
}

func buildScope(t *testing.T, src string, pos uint32) (*grammar.Tree, *scope.Tree, int) {
	t.Helper()
	tree, err := grammar.Parse(context.Background(), []byte(src), dialect.MySQL80, nil)
	require.NoError(t, err)
	t.Cleanup(tree.Close)

	b := scope.NewBuilder(dialect.MySQL80, testSnapshot(), nil)
	st, scopeIdx := b.Build(tree.Root(), pos)
	return tree, st, scopeIdx
}

func TestCompleteProjectionNoQualifier(t *testing.T) {
	src := "SELECT  FROM users"
	pos := uint32(7)
	tree, st, scopeIdx := buildScope(t, src, pos)

	cctx := sqlcontext.Detect(tree, pos)
	out := Complete(cctx, st, scopeIdx, testSnapshot(), dialect.MySQL80)
	require.NotEmpty(t, out)

	var labels []string
	for _, s := range out {
		labels = append(labels, s.Label)
	}
	require.Contains(t, labels, "id")
	require.Contains(t, labels, "name")
}

func TestCompleteJoinOnPredicateRanksFKFirst(t *testing.T) {
	src := "SELECT x FROM users JOIN orders ON "
	pos := uint32(len(src))
	tree, st, scopeIdx := buildScope(t, src, pos)

	cctx := sqlcontext.Detect(tree, pos)
	out := Complete(cctx, st, scopeIdx, testSnapshot(), dialect.MySQL80)
	require.NotEmpty(t, out)
	require.Equal(t, tierFKJoining, out[0].tier)
}

func TestCompletePrefixFilter(t *testing.T) {
	src := "SELECT na FROM users"
	pos := uint32(9)
	tree, st, scopeIdx := buildScope(t, src, pos)

	cctx := sqlcontext.Detect(tree, pos)
	out := Complete(cctx, st, scopeIdx, testSnapshot(), dialect.MySQL80)
	for _, s := range out {
		if s.Kind == KindColumn {
			require.Contains(t, s.Label, "na")
		}
	}
}
