// Package catalog implements spec.md §4.3's Catalog component: schema
// introspection behind one interface, with a live (database-backed) and a
// static (snapshot-file-backed) implementation.
package catalog

import (
	"context"

	"github.com/dosco/sqlls/internal/dialect"
	"github.com/dosco/sqlls/internal/sdata"
)

// Catalog is the contract both backends implement: table listing, single
// table lookup, dialect function listing, column type lookup, and
// bidirectional foreign key listing.
type Catalog interface {
	ListTables(ctx context.Context, schema string) ([]sdata.Table, error)
	GetTable(ctx context.Context, schema, name string) (sdata.Table, bool, error)
	ListFunctions(ctx context.Context) ([]sdata.Function, error)
	GetColumnType(ctx context.Context, schema, table, column string) (string, bool, error)
	ForeignKeys(ctx context.Context, schema, table string) ([]sdata.ForeignKey, error)

	// Snapshot returns the full immutable snapshot backing the above
	// lookups, for callers (scope resolution, completion) that want to
	// read many tables without repeated interface calls.
	Snapshot(ctx context.Context) (*sdata.Snapshot, error)

	// Dialect reports the dialect this catalog was built for.
	Dialect() dialect.ID

	Close() error
}

// fromSnapshot implements the read side of Catalog purely in terms of an
// in-memory *sdata.Snapshot, so both backends can embed it instead of
// duplicating lookup logic.
type fromSnapshot struct {
	get func(ctx context.Context) (*sdata.Snapshot, error)
}

func (f fromSnapshot) ListTables(ctx context.Context, schema string) ([]sdata.Table, error) {
	snap, err := f.get(ctx)
	if err != nil {
		return nil, err
	}
	if schema == "" {
		return snap.Tables, nil
	}
	var out []sdata.Table
	for _, t := range snap.Tables {
		if t.Schema == schema {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f fromSnapshot) GetTable(ctx context.Context, schema, name string) (sdata.Table, bool, error) {
	snap, err := f.get(ctx)
	if err != nil {
		return sdata.Table{}, false, err
	}
	t, ok := snap.Table(schema, name)
	return t, ok, nil
}

func (f fromSnapshot) ListFunctions(ctx context.Context) ([]sdata.Function, error) {
	snap, err := f.get(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Functions, nil
}

func (f fromSnapshot) GetColumnType(ctx context.Context, schema, table, column string) (string, bool, error) {
	t, ok, err := f.GetTable(ctx, schema, table)
	if err != nil || !ok {
		return "", false, err
	}
	col, ok := t.Column(column)
	if !ok {
		return "", false, nil
	}
	return col.Type, true, nil
}

func (f fromSnapshot) ForeignKeys(ctx context.Context, schema, table string) ([]sdata.ForeignKey, error) {
	t, ok, err := f.GetTable(ctx, schema, table)
	if err != nil || !ok {
		return nil, err
	}
	return t.FKs, nil
}
