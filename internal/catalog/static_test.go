package catalog

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const fixtureYAML = `
dialect: postgresql14
tables:
  - schema: public
    name: users
    columns:
      - {name: id, type: integer, primary_key: true}
      - {name: email, type: text}
  - schema: public
    name: orders
    columns:
      - {name: id, type: integer, primary_key: true}
      - {name: user_id, type: integer}
    foreign_keys:
      - {column: user_id, target_schema: public, target_table: users, target_column: id}
`

func TestLoadStatic(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/snapshot.yaml", []byte(fixtureYAML), 0o644))

	cat, err := LoadStatic(fs, "/snapshot.yaml")
	require.NoError(t, err)
	defer cat.Close()

	tables, err := cat.ListTables(context.Background(), "public")
	require.NoError(t, err)
	require.Len(t, tables, 2)

	orders, ok, err := cat.GetTable(context.Background(), "public", "orders")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, orders.FKs, 1)
	require.Equal(t, "users", orders.FKs[0].TargetTable)

	typ, ok, err := cat.GetColumnType(context.Background(), "public", "users", "email")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "text", typ)
}

func TestLoadStaticUnknownDialect(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/bad.yaml", []byte("dialect: oracle\n"), 0o644))

	_, err := LoadStatic(fs, "/bad.yaml")
	require.Error(t, err)
}

func TestLoadStaticMissingFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := LoadStatic(fs, "/missing.yaml")
	require.Error(t, err)
}
