package scope

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dosco/sqlls/internal/dialect"
	"github.com/dosco/sqlls/internal/grammar"
	"github.com/dosco/sqlls/internal/sdata"
)

func parse(t *testing.T, src string) *grammar.Tree {
	t.Helper()
	tree, err := grammar.Parse(context.Background(), []byte(src), dialect.MySQL80, nil)
	require.NoError(t, err)
	t.Cleanup(tree.Close)
	return tree
}

func testSnapshot() *sdata.Snapshot {
	users := sdata.Table{Name: "users", Columns: []sdata.Column{{Name: "id", Type: "int", IsPK: true}, {Name: "name", Type: "text"}}}
	orders := sdata.Table{Name: "orders", Columns: []sdata.Column{{Name: "id", Type: "int", IsPK: true}, {Name: "user_id", Type: "int"}, {Name: "name", Type: "text"}}}
	return &sdata.Snapshot{Tables: []sdata.Table{users, orders}}
}

func TestResolveColumnUnambiguous(t *testing.T) {
	src := "SELECT user_id FROM orders"
	tree := parse(t, src)

	b := NewBuilder(dialect.MySQL80, testSnapshot(), nil)
	stmt, pos := tree.Root(), uint32(len(src))
	tr, scopeIdx := b.Build(stmt, pos)

	res := tr.ResolveColumn(scopeIdx, "", "user_id")
	require.Equal(t, Resolved, res.Verdict)
	require.Equal(t, "orders", res.Binding.Table.Name)
}

func TestResolveColumnAmbiguous(t *testing.T) {
	src := "SELECT name FROM users JOIN orders ON users.id = orders.user_id"
	tree := parse(t, src)

	b := NewBuilder(dialect.MySQL80, testSnapshot(), nil)
	tr, scopeIdx := b.Build(tree.Root(), uint32(len(src)))

	res := tr.ResolveColumn(scopeIdx, "", "name")
	require.Equal(t, Ambiguous, res.Verdict)
	require.Len(t, res.Candidates, 2)
}

func TestResolveColumnQualified(t *testing.T) {
	src := "SELECT o.name FROM users u JOIN orders o ON u.id = o.user_id"
	tree := parse(t, src)

	b := NewBuilder(dialect.MySQL80, testSnapshot(), nil)
	tr, scopeIdx := b.Build(tree.Root(), uint32(len(src)))

	res := tr.ResolveColumn(scopeIdx, "o", "name")
	require.Equal(t, Resolved, res.Verdict)
	require.Equal(t, "orders", res.Binding.Table.Name)
}

func TestResolveColumnUnresolved(t *testing.T) {
	src := "SELECT nonexistent FROM users"
	tree := parse(t, src)

	b := NewBuilder(dialect.MySQL80, testSnapshot(), nil)
	tr, scopeIdx := b.Build(tree.Root(), uint32(len(src)))

	res := tr.ResolveColumn(scopeIdx, "", "nonexistent")
	require.Equal(t, Unresolved, res.Verdict)
}

func TestCTEVisibleAsQualifier(t *testing.T) {
	src := "WITH recent AS (SELECT id FROM orders) SELECT recent.id FROM recent"
	tree := parse(t, src)

	b := NewBuilder(dialect.MySQL80, testSnapshot(), nil)
	tr, scopeIdx := b.Build(tree.Root(), uint32(len(src)))

	res := tr.ResolveColumn(scopeIdx, "recent", "id")
	require.Equal(t, Resolved, res.Verdict)
	require.True(t, res.Binding.IsCTE)
}
