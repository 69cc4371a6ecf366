// Package sdata holds the catalog's schema data model: tables, columns,
// functions, and foreign keys, plus the immutable snapshot type the catalog
// cache publishes. Named after the teacher's internal/sdata package, which
// plays the same "schema data" role for graphjin's compiler.
package sdata

import (
	"fmt"
	"sort"
	"strings"
)

// Column describes one column of a table or view.
type Column struct {
	Name     string
	Type     string // normalized via dialect.Dialect.NormalizeType
	Nullable bool
	IsPK     bool
}

// ForeignKey describes one outgoing reference from a local column to a
// column on another table.
type ForeignKey struct {
	LocalColumn  string
	TargetSchema string
	TargetTable  string
	TargetColumn string
}

// Index describes one index defined on a table.
type Index struct {
	Name    string
	Columns []string
	Unique  bool
}

// Table is the catalog's metadata for one table or view, following
// spec.md's TableMeta: column order preserved, primary-key columns
// flagged, foreign keys bidirectionally queryable.
type Table struct {
	Schema  string
	Name    string
	Columns []Column
	FKs     []ForeignKey
	Indexes []Index
	IsView  bool
}

// QualifiedName renders "schema.table", or bare "table" when Schema is empty.
func (t Table) QualifiedName() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// Column looks up a column by case-insensitive name.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Column{}, false
}

// IncomingFKs returns the foreign keys on other tables in the snapshot that
// reference t, letting resolvers walk joins in either direction (spec.md's
// "foreign keys are bidirectionally queryable" invariant).
func (t Table) IncomingFKs(snap *Snapshot) []FKEdge {
	var out []FKEdge
	for _, other := range snap.Tables {
		for _, fk := range other.FKs {
			if strings.EqualFold(fk.TargetTable, t.Name) && strings.EqualFold(fk.TargetSchema, t.Schema) {
				out = append(out, FKEdge{From: other, FK: fk})
			}
		}
	}
	return out
}

// FKEdge pairs a foreign key with the table that declares it, used when
// listing either outgoing or incoming references.
type FKEdge struct {
	From Table
	FK   ForeignKey
}

// Function describes one catalog or dialect builtin function.
type Function struct {
	Name      string
	Signature string
	Returns   string
	Doc       string
	Aggregate bool
}

// Snapshot is an immutable, fully-populated view of a catalog at a point in
// time: every table present has a complete Columns list — spec.md's
// "no reader ever observes a snapshot containing a partially-populated
// table" invariant is maintained by only ever publishing fully-built
// Snapshot values (see internal/catalog).
type Snapshot struct {
	Dialect     string
	Tables      []Table
	Functions   []Function
	Fingerprint string
}

// Table looks up a table by schema (optional) and name, case-insensitively.
func (s *Snapshot) Table(schema, name string) (Table, bool) {
	for _, t := range s.Tables {
		if !strings.EqualFold(t.Name, name) {
			continue
		}
		if schema != "" && !strings.EqualFold(t.Schema, schema) {
			continue
		}
		return t, true
	}
	return Table{}, false
}

// TablesByPrefix returns every table whose name starts with prefix
// (case-insensitive), sorted by name.
func (s *Snapshot) TablesByPrefix(prefix string) []Table {
	var out []Table
	lower := strings.ToLower(prefix)
	for _, t := range s.Tables {
		if strings.HasPrefix(strings.ToLower(t.Name), lower) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ForeignKeysBetween returns the foreign keys that join a and b in either
// direction — the JoinOnPredicate completion location's primary input.
func (s *Snapshot) ForeignKeysBetween(a, b Table) []ForeignKey {
	var out []ForeignKey
	for _, fk := range a.FKs {
		if strings.EqualFold(fk.TargetTable, b.Name) {
			out = append(out, fk)
		}
	}
	for _, fk := range b.FKs {
		if strings.EqualFold(fk.TargetTable, a.Name) {
			out = append(out, ForeignKey{
				LocalColumn:  fk.TargetColumn,
				TargetSchema: a.Schema,
				TargetTable:  a.Name,
				TargetColumn: fk.LocalColumn,
			})
		}
	}
	return out
}

// Fingerprint computes a cheap, deterministic content hash over a table and
// function set's names; the catalog backends store it as
// Snapshot.Fingerprint. Neither catalog.Cache nor the store's analysis
// cache uses it as a key.
func Fingerprint(tables []Table, functions []Function) string {
	var sb strings.Builder
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.QualifiedName()
	}
	sort.Strings(names)
	for _, n := range names {
		sb.WriteString(n)
		sb.WriteByte(';')
	}
	fnames := make([]string, len(functions))
	for i, f := range functions {
		fnames[i] = f.Name
	}
	sort.Strings(fnames)
	for _, n := range fnames {
		sb.WriteString(n)
		sb.WriteByte(';')
	}
	return fmt.Sprintf("%x", fnv32(sb.String()))
}

// fnv32 is a tiny dependency-free FNV-1a hash, sufficient for a cache key
// (not a security boundary).
func fnv32(s string) uint32 {
	const (
		offset32 = 2166136261
		prime32  = 16777619
	)
	h := uint32(offset32)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime32
	}
	return h
}
