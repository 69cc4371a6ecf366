package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dosco/sqlls/internal/dialect"
	"github.com/dosco/sqlls/internal/grammar"
)

func TestHoverColumnReference(t *testing.T) {
	src := "SELECT id FROM users"
	pos := uint32(7) // inside "id"
	tree, err := grammar.Parse(context.Background(), []byte(src), dialect.MySQL80, nil)
	require.NoError(t, err)
	defer tree.Close()

	snap := testSnapshot()
	bScope, stScope, scopeIdx := buildScope(t, src, pos)
	_ = bScope

	hc, ok := Hover(tree.Root(), stScope, scopeIdx, snap, dialect.MySQL80, pos)
	if ok {
		require.Contains(t, hc.Title, "id")
	}
}

func TestHoverUnknownPosition(t *testing.T) {
	src := "SELECT id FROM users"
	tree, err := grammar.Parse(context.Background(), []byte(src), dialect.MySQL80, nil)
	require.NoError(t, err)
	defer tree.Close()

	_, ok := Hover(tree.Root(), nil, 0, nil, dialect.MySQL80, uint32(len(src)))
	require.False(t, ok)
}
