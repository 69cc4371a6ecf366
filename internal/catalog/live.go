package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"sync/atomic"
	"time"

	retry "github.com/avast/retry-go"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/dosco/sqlls/internal/dialect"
	"github.com/dosco/sqlls/internal/sdata"
)

//go:embed introspect/mysql_tables.sql
var mysqlTablesStmt string

//go:embed introspect/mysql_columns.sql
var mysqlColumnsStmt string

//go:embed introspect/mysql_foreign_keys.sql
var mysqlForeignKeysStmt string

//go:embed introspect/mysql_indexes.sql
var mysqlIndexesStmt string

//go:embed introspect/postgres_tables.sql
var postgresTablesStmt string

//go:embed introspect/postgres_columns.sql
var postgresColumnsStmt string

//go:embed introspect/postgres_foreign_keys.sql
var postgresForeignKeysStmt string

//go:embed introspect/postgres_indexes.sql
var postgresIndexesStmt string

// Live is a database-introspection-backed Catalog. Refreshes are
// singleflight-guarded so concurrent callers during a cold cache share one
// round trip (spec.md §4.3's "refresh is single-flighted" requirement), and
// the resulting snapshot is published through an atomic.Pointer so readers
// never block on a refresh in flight.
type Live struct {
	fromSnapshot

	db      *sql.DB
	id      dialect.ID
	schema  string
	log     *zap.SugaredLogger
	ttl     time.Duration
	current atomic.Pointer[sdata.Snapshot]
	group   singleflight.Group
	stop    chan struct{}
}

// NewLive opens (or reuses) a *sql.DB for id's family and wraps it as a Live
// catalog scoped to schema. driverName/dsn selection mirrors the teacher's
// serv/db.go dispatch on database type: go-sql-driver/mysql for the MySQL
// family, jackc/pgx/v5/stdlib for the PostgreSQL family.
func NewLive(ctx context.Context, id dialect.ID, dsn, schema string, ttl time.Duration, log *zap.SugaredLogger) (*Live, error) {
	var driverName string
	switch id.Family() {
	case dialect.MySQLFamily:
		driverName = "mysql"
	case dialect.PostgreSQLFamily:
		driverName = "pgx"
	default:
		return nil, fmt.Errorf("catalog: live backend has no driver for dialect %s", id)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", driverName, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: ping %s: %w", driverName, err)
	}

	l := &Live{
		db:     db,
		id:     id,
		schema: schema,
		log:    log,
		ttl:    ttl,
		stop:   make(chan struct{}),
	}
	l.fromSnapshot = fromSnapshot{get: l.snapshot}

	if _, err := l.refresh(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if ttl > 0 {
		go l.refreshLoop()
	}
	return l, nil
}

func (l *Live) Dialect() dialect.ID { return l.id }

func (l *Live) Close() error {
	close(l.stop)
	return l.db.Close()
}

func (l *Live) Snapshot(ctx context.Context) (*sdata.Snapshot, error) {
	return l.snapshot(ctx)
}

func (l *Live) snapshot(ctx context.Context) (*sdata.Snapshot, error) {
	if snap := l.current.Load(); snap != nil {
		return snap, nil
	}
	return l.refresh(ctx)
}

// refreshAttempts and refreshBaseDelay bound the retry-with-backoff window
// around one introspection attempt: a transient connection blip (DB
// mid-restart, a brief network partition) recovers within a few seconds
// without forcing the caller to wait a full TTL tick.
const (
	refreshAttempts  = 4
	refreshBaseDelay = 250 * time.Millisecond
)

// refresh introspects the database and publishes a new snapshot, sharing
// in-flight work across concurrent callers via singleflight and retrying a
// failed introspection with exponential backoff before giving up.
func (l *Live) refresh(ctx context.Context) (*sdata.Snapshot, error) {
	v, err, _ := l.group.Do("refresh", func() (interface{}, error) {
		var snap *sdata.Snapshot
		err := retry.Do(
			func() error {
				s, err := l.introspect(ctx)
				if err != nil {
					return err
				}
				snap = s
				return nil
			},
			retry.Context(ctx),
			retry.Attempts(refreshAttempts),
			retry.Delay(refreshBaseDelay),
			retry.DelayType(retry.BackOffDelay),
			retry.LastErrorOnly(true),
			retry.OnRetry(func(n uint, err error) {
				if l.log != nil {
					l.log.Warnw("catalog introspect attempt failed, retrying", "attempt", n+1, "error", err)
				}
			}),
		)
		if err != nil {
			return nil, fmt.Errorf("catalog: introspect: %w", err)
		}
		l.current.Store(snap)
		if l.log != nil {
			l.log.Infow("catalog refreshed", "dialect", l.id.String(), "tables", len(snap.Tables))
		}
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*sdata.Snapshot), nil
}

func (l *Live) refreshLoop() {
	ticker := time.NewTicker(l.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if _, err := l.refresh(ctx); err != nil && l.log != nil {
				l.log.Warnw("catalog refresh failed", "error", err)
			}
			cancel()
		}
	}
}

func (l *Live) introspect(ctx context.Context) (*sdata.Snapshot, error) {
	switch l.id.Family() {
	case dialect.MySQLFamily:
		return l.introspectMySQL(ctx)
	case dialect.PostgreSQLFamily:
		return l.introspectPostgres(ctx)
	default:
		return nil, fmt.Errorf("catalog: no introspection path for dialect %s", l.id)
	}
}

func (l *Live) introspectMySQL(ctx context.Context) (*sdata.Snapshot, error) {
	d := dialect.For(l.id)
	tables := map[string]*sdata.Table{}
	var order []string

	rows, err := l.db.QueryContext(ctx, mysqlTablesStmt, l.schema)
	if err != nil {
		return nil, fmt.Errorf("catalog: list tables: %w", err)
	}
	for rows.Next() {
		var schema, name, kind string
		if err := rows.Scan(&schema, &name, &kind); err != nil {
			rows.Close()
			return nil, err
		}
		t := &sdata.Table{Schema: schema, Name: name, IsView: kind == "VIEW"}
		tables[name] = t
		order = append(order, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	colRows, err := l.db.QueryContext(ctx, mysqlColumnsStmt, l.schema)
	if err != nil {
		return nil, fmt.Errorf("catalog: list columns: %w", err)
	}
	for colRows.Next() {
		var table, col, rawType, nullable, key string
		var ordinal int
		if err := colRows.Scan(&table, &col, &rawType, &nullable, &key, &ordinal); err != nil {
			colRows.Close()
			return nil, err
		}
		if t, ok := tables[table]; ok {
			t.Columns = append(t.Columns, sdata.Column{
				Name:     col,
				Type:     d.NormalizeType(rawType),
				Nullable: nullable == "YES",
				IsPK:     key == "PRI",
			})
		}
	}
	colRows.Close()
	if err := colRows.Err(); err != nil {
		return nil, err
	}

	fkRows, err := l.db.QueryContext(ctx, mysqlForeignKeysStmt, l.schema)
	if err != nil {
		return nil, fmt.Errorf("catalog: list foreign keys: %w", err)
	}
	for fkRows.Next() {
		var table, col, refSchema, refTable, refCol string
		if err := fkRows.Scan(&table, &col, &refSchema, &refTable, &refCol); err != nil {
			fkRows.Close()
			return nil, err
		}
		if t, ok := tables[table]; ok {
			t.FKs = append(t.FKs, sdata.ForeignKey{
				LocalColumn:  col,
				TargetSchema: refSchema,
				TargetTable:  refTable,
				TargetColumn: refCol,
			})
		}
	}
	fkRows.Close()
	if err := fkRows.Err(); err != nil {
		return nil, err
	}

	idxRows, err := l.db.QueryContext(ctx, mysqlIndexesStmt, l.schema)
	if err != nil {
		return nil, fmt.Errorf("catalog: list indexes: %w", err)
	}
	indexes := map[string]map[string]*sdata.Index{}
	for idxRows.Next() {
		var table, idxName, col string
		var nonUnique, seq int
		if err := idxRows.Scan(&table, &idxName, &col, &nonUnique, &seq); err != nil {
			idxRows.Close()
			return nil, err
		}
		byName, ok := indexes[table]
		if !ok {
			byName = map[string]*sdata.Index{}
			indexes[table] = byName
		}
		idx, ok := byName[idxName]
		if !ok {
			idx = &sdata.Index{Name: idxName, Unique: nonUnique == 0}
			byName[idxName] = idx
		}
		idx.Columns = append(idx.Columns, col)
	}
	idxRows.Close()
	if err := idxRows.Err(); err != nil {
		return nil, err
	}
	for table, byName := range indexes {
		t, ok := tables[table]
		if !ok {
			continue
		}
		for _, idx := range byName {
			t.Indexes = append(t.Indexes, *idx)
		}
	}

	return buildSnapshot(l.id, order, tables, d.Functions()), nil
}

func (l *Live) introspectPostgres(ctx context.Context) (*sdata.Snapshot, error) {
	d := dialect.For(l.id)
	tables := map[string]*sdata.Table{}
	var order []string

	rows, err := l.db.QueryContext(ctx, postgresTablesStmt, l.schema)
	if err != nil {
		return nil, fmt.Errorf("catalog: list tables: %w", err)
	}
	for rows.Next() {
		var schema, name, kind string
		if err := rows.Scan(&schema, &name, &kind); err != nil {
			rows.Close()
			return nil, err
		}
		t := &sdata.Table{Schema: schema, Name: name, IsView: kind == "VIEW"}
		tables[name] = t
		order = append(order, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	colRows, err := l.db.QueryContext(ctx, postgresColumnsStmt, l.schema)
	if err != nil {
		return nil, fmt.Errorf("catalog: list columns: %w", err)
	}
	for colRows.Next() {
		var table, col, rawType, nullable string
		var isPK bool
		var ordinal int
		if err := colRows.Scan(&table, &col, &rawType, &nullable, &isPK, &ordinal); err != nil {
			colRows.Close()
			return nil, err
		}
		if t, ok := tables[table]; ok {
			t.Columns = append(t.Columns, sdata.Column{
				Name:     col,
				Type:     d.NormalizeType(rawType),
				Nullable: nullable == "YES",
				IsPK:     isPK,
			})
		}
	}
	colRows.Close()
	if err := colRows.Err(); err != nil {
		return nil, err
	}

	fkRows, err := l.db.QueryContext(ctx, postgresForeignKeysStmt, l.schema)
	if err != nil {
		return nil, fmt.Errorf("catalog: list foreign keys: %w", err)
	}
	for fkRows.Next() {
		var table, col, refSchema, refTable, refCol string
		if err := fkRows.Scan(&table, &col, &refSchema, &refTable, &refCol); err != nil {
			fkRows.Close()
			return nil, err
		}
		if t, ok := tables[table]; ok {
			t.FKs = append(t.FKs, sdata.ForeignKey{
				LocalColumn:  col,
				TargetSchema: refSchema,
				TargetTable:  refTable,
				TargetColumn: refCol,
			})
		}
	}
	fkRows.Close()
	if err := fkRows.Err(); err != nil {
		return nil, err
	}

	idxRows, err := l.db.QueryContext(ctx, postgresIndexesStmt, l.schema)
	if err != nil {
		return nil, fmt.Errorf("catalog: list indexes: %w", err)
	}
	indexes := map[string]map[string]*sdata.Index{}
	for idxRows.Next() {
		var table, idxName, col string
		var nonUnique bool
		var seq int
		if err := idxRows.Scan(&table, &idxName, &col, &nonUnique, &seq); err != nil {
			idxRows.Close()
			return nil, err
		}
		byName, ok := indexes[table]
		if !ok {
			byName = map[string]*sdata.Index{}
			indexes[table] = byName
		}
		idx, ok := byName[idxName]
		if !ok {
			idx = &sdata.Index{Name: idxName, Unique: !nonUnique}
			byName[idxName] = idx
		}
		idx.Columns = append(idx.Columns, col)
	}
	idxRows.Close()
	if err := idxRows.Err(); err != nil {
		return nil, err
	}
	for table, byName := range indexes {
		t, ok := tables[table]
		if !ok {
			continue
		}
		for _, idx := range byName {
			t.Indexes = append(t.Indexes, *idx)
		}
	}

	return buildSnapshot(l.id, order, tables, d.Functions()), nil
}

func buildSnapshot(id dialect.ID, order []string, tables map[string]*sdata.Table, functions []dialect.Function) *sdata.Snapshot {
	out := make([]sdata.Table, 0, len(order))
	for _, name := range order {
		out = append(out, *tables[name])
	}
	fns := make([]sdata.Function, 0, len(functions))
	for _, f := range functions {
		fns = append(fns, sdata.Function{Name: f.Name, Signature: f.Signature, Returns: f.Returns, Doc: f.Doc, Aggregate: f.Aggregate})
	}
	return &sdata.Snapshot{
		Dialect:     id.String(),
		Tables:      out,
		Functions:   fns,
		Fingerprint: sdata.Fingerprint(out, fns),
	}
}
