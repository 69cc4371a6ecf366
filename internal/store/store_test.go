package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dosco/sqlls/internal/dialect"
)

func TestOpenUpdateSnapshot(t *testing.T) {
	s, err := New(64)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Open(ctx, "file:///a.sql", "SELECT id FROM users", 1, dialect.MySQL80))

	snap, ok := s.Snapshot("file:///a.sql")
	require.True(t, ok)
	require.Equal(t, 1, snap.Version)

	err = s.Update(ctx, "file:///a.sql", 2, []Edit{
		{StartByte: 7, OldEndByte: 9, NewEndByte: 15, NewText: []byte("id, name")},
	})
	require.NoError(t, err)

	snap, ok = s.Snapshot("file:///a.sql")
	require.True(t, ok)
	require.Equal(t, 2, snap.Version)
	require.Equal(t, "SELECT id, name FROM users", string(snap.Text))
}

func TestUpdateRejectsOutOfOrderVersion(t *testing.T) {
	s, err := New(64)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, s.Open(ctx, "file:///a.sql", "SELECT 1", 1, dialect.MySQL80))

	err = s.Update(ctx, "file:///a.sql", 5, nil)
	require.Error(t, err)
	var stale *ErrStaleVersion
	require.ErrorAs(t, err, &stale)
}

func TestAnalyzeSharesComputation(t *testing.T) {
	s, err := New(64)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, s.Open(ctx, "file:///a.sql", "SELECT 1", 1, dialect.MySQL80))
	snap, _ := s.Snapshot("file:///a.sql")

	calls := 0
	compute := func(context.Context, Snapshot) (Analysis, error) {
		calls++
		return "computed", nil
	}

	a1, err := s.Analyze(ctx, snap, compute)
	require.NoError(t, err)
	a2, err := s.Analyze(ctx, snap, compute)
	require.NoError(t, err)

	require.Equal(t, a1, a2)
	require.Equal(t, 1, calls)
}

func TestCloseReleasesDocument(t *testing.T) {
	s, err := New(64)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, s.Open(ctx, "file:///a.sql", "SELECT 1", 1, dialect.MySQL80))
	s.Close("file:///a.sql")

	_, ok := s.Snapshot("file:///a.sql")
	require.False(t, ok)
}
