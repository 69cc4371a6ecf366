package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	sqlcontext "github.com/dosco/sqlls/internal/context"
	"github.com/dosco/sqlls/internal/dialect"
	"github.com/dosco/sqlls/internal/grammar"
	"github.com/dosco/sqlls/internal/scope"
)

func TestDiagnoseSyntaxError(t *testing.T) {
	tree, err := grammar.Parse(context.Background(), []byte("SELET * FROM users"), dialect.MySQL80, nil)
	require.NoError(t, err)
	defer tree.Close()

	out := Diagnose(tree.Root(), nil, nil, DefaultConfig)
	require.NotEmpty(t, out)
	require.Equal(t, SeverityError, out[0].Severity)
}

func TestDiagnoseUnresolvedColumn(t *testing.T) {
	src := "SELECT ghost FROM users"
	tree, st, scopeIdx := buildScope(t, src, uint32(len(src)))

	refs := []ColumnRef{{ScopeIdx: scopeIdx, Column: "ghost", Range: sqlcontext.ByteRange{Start: 7, End: 12}}}
	out := Diagnose(tree.Root(), refs, st, DefaultConfig)
	require.Len(t, out, 1)
	require.Equal(t, SeverityError, out[0].Severity)
}

func TestDiagnoseAmbiguousColumnWarns(t *testing.T) {
	src := "SELECT id FROM users JOIN orders ON users.id = orders.user_id"
	tree, st, scopeIdx := buildScope(t, src, uint32(len(src)))

	refs := []ColumnRef{{ScopeIdx: scopeIdx, Column: "id", Range: sqlcontext.ByteRange{Start: 7, End: 9}}}
	out := Diagnose(tree.Root(), refs, st, DefaultConfig)
	require.Len(t, out, 1)
	require.Equal(t, SeverityWarning, out[0].Severity)
}

func TestDiagnoseUnresolvedTable(t *testing.T) {
	src := "SELECT * FROM nonexistent_table"
	tree, st, _ := buildScope(t, src, uint32(len(src)))

	out := Diagnose(tree.Root(), nil, st, DefaultConfig)
	require.Len(t, out, 1)
	require.Equal(t, SeverityError, out[0].Severity)
	require.Contains(t, out[0].Message, "nonexistent_table")
}

func TestDiagnoseNoCatalogNoTableDiagnostic(t *testing.T) {
	src := "SELECT * FROM users"
	tree, err := grammar.Parse(context.Background(), []byte(src), dialect.MySQL80, nil)
	require.NoError(t, err)
	defer tree.Close()

	b := scope.NewBuilder(dialect.MySQL80, nil, nil)
	st, _ := b.Build(tree.Root(), uint32(len(src)))

	out := Diagnose(tree.Root(), nil, st, DefaultConfig)
	require.Empty(t, out)
}
