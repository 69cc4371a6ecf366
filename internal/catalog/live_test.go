package catalog

import (
	"context"
	"database/sql"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/dosco/sqlls/internal/dialect"
)

// newMockLive builds a Live catalog around a sqlmock connection, bypassing
// NewLive's sql.Open/driver registration (sqlmock supplies its own *sql.DB),
// then runs one refresh against the expectations set on mock.
func newMockLive(t *testing.T, id dialect.ID, mock sqlmock.Sqlmock, db *sql.DB) *Live {
	t.Helper()
	l := &Live{db: db, id: id, schema: "public"}
	l.fromSnapshot = fromSnapshot{get: l.snapshot}
	_, err := l.refresh(context.Background())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	return l
}

func TestLiveIntrospectMySQL(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM information_schema.TABLES").
		WithArgs("app").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_SCHEMA", "TABLE_NAME", "TABLE_TYPE"}).
			AddRow("app", "users", "BASE TABLE"))

	mock.ExpectQuery("FROM information_schema.COLUMNS").
		WithArgs("app").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME", "COLUMN_NAME", "COLUMN_TYPE", "IS_NULLABLE", "COLUMN_KEY", "ORDINAL_POSITION"}).
			AddRow("users", "id", "int(11)", "NO", "PRI", 1).
			AddRow("users", "email", "varchar(255)", "YES", "", 2))

	mock.ExpectQuery("FROM information_schema.KEY_COLUMN_USAGE").
		WithArgs("app").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME", "COLUMN_NAME", "REFERENCED_TABLE_SCHEMA", "REFERENCED_TABLE_NAME", "REFERENCED_COLUMN_NAME"}))

	mock.ExpectQuery("FROM information_schema.STATISTICS").
		WithArgs("app").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME", "INDEX_NAME", "COLUMN_NAME", "NON_UNIQUE", "SEQ_IN_INDEX"}))

	l := &Live{db: db, id: dialect.MySQL80, schema: "app"}
	l.fromSnapshot = fromSnapshot{get: l.snapshot}
	_, err = l.refresh(context.Background())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	table, ok, err := l.GetTable(context.Background(), "app", "users")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, table.Columns, 2)
	require.True(t, table.Columns[0].IsPK)
	require.Equal(t, "int", table.Columns[0].Type)
}

func TestLiveSnapshotReusesPublishedSnapshot(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM information_schema.tables").
		WithArgs("public").
		WillReturnRows(sqlmock.NewRows([]string{"table_schema", "table_name", "table_type"}))
	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("public").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "column_name", "data_type", "is_nullable", "is_pk", "ordinal_position"}))
	mock.ExpectQuery("FROM information_schema.table_constraints tc").
		WithArgs("public").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "column_name", "foreign_table_schema", "foreign_table_name", "foreign_column_name"}))
	mock.ExpectQuery("FROM pg_index").
		WithArgs("public").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "index_name", "column_name", "non_unique", "seq_in_index"}))

	l := newMockLive(t, dialect.PostgreSQL14, mock, db)

	snap1, err := l.Snapshot(context.Background())
	require.NoError(t, err)
	snap2, err := l.Snapshot(context.Background())
	require.NoError(t, err)
	require.Same(t, snap1, snap2)
}
