package catalog

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/dosco/sqlls/internal/dialect"
	"github.com/dosco/sqlls/internal/sdata"
)

// staticDoc is the on-disk shape of a static catalog snapshot file, decoded
// with yaml.v3 (also accepts JSON, which is a YAML subset).
type staticDoc struct {
	Dialect   string             `yaml:"dialect"`
	Tables    []staticTable      `yaml:"tables"`
	Functions []staticFunction   `yaml:"functions"`
}

type staticTable struct {
	Schema  string         `yaml:"schema"`
	Name    string         `yaml:"name"`
	IsView  bool           `yaml:"is_view"`
	Columns []staticColumn `yaml:"columns"`
	FKs     []staticFK     `yaml:"foreign_keys"`
}

type staticColumn struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Nullable bool   `yaml:"nullable"`
	PK       bool   `yaml:"primary_key"`
}

type staticFK struct {
	Column       string `yaml:"column"`
	TargetSchema string `yaml:"target_schema"`
	TargetTable  string `yaml:"target_table"`
	TargetColumn string `yaml:"target_column"`
}

type staticFunction struct {
	Name      string `yaml:"name"`
	Signature string `yaml:"signature"`
	Returns   string `yaml:"returns"`
	Doc       string `yaml:"doc"`
	Aggregate bool   `yaml:"aggregate"`
}

// Static is a snapshot-file-backed Catalog for projects without a reachable
// database (CI, offline editing, fixtures), loaded once at startup via an
// afero.Fs so tests can substitute an in-memory filesystem.
type Static struct {
	fromSnapshot

	id   dialect.ID
	snap *sdata.Snapshot
}

// LoadStatic reads and decodes a static snapshot file from fs.
func LoadStatic(fs afero.Fs, path string) (*Static, error) {
	b, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read static snapshot %s: %w", path, err)
	}

	var doc staticDoc
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("catalog: parse static snapshot %s: %w", path, err)
	}

	id, err := dialect.ParseID(doc.Dialect)
	if err != nil {
		return nil, fmt.Errorf("catalog: static snapshot %s: %w", path, err)
	}
	d := dialect.For(id)

	tables := make([]sdata.Table, 0, len(doc.Tables))
	for _, st := range doc.Tables {
		t := sdata.Table{Schema: st.Schema, Name: st.Name, IsView: st.IsView}
		for _, c := range st.Columns {
			t.Columns = append(t.Columns, sdata.Column{
				Name:     c.Name,
				Type:     d.NormalizeType(c.Type),
				Nullable: c.Nullable,
				IsPK:     c.PK,
			})
		}
		for _, fk := range st.FKs {
			t.FKs = append(t.FKs, sdata.ForeignKey{
				LocalColumn:  fk.Column,
				TargetSchema: fk.TargetSchema,
				TargetTable:  fk.TargetTable,
				TargetColumn: fk.TargetColumn,
			})
		}
		tables = append(tables, t)
	}

	functions := d.Functions()
	fns := make([]sdata.Function, 0, len(doc.Functions)+len(functions))
	for _, f := range functions {
		fns = append(fns, sdata.Function{Name: f.Name, Signature: f.Signature, Returns: f.Returns, Doc: f.Doc, Aggregate: f.Aggregate})
	}
	for _, f := range doc.Functions {
		fns = append(fns, sdata.Function{Name: f.Name, Signature: f.Signature, Returns: f.Returns, Doc: f.Doc, Aggregate: f.Aggregate})
	}

	snap := &sdata.Snapshot{
		Dialect:     id.String(),
		Tables:      tables,
		Functions:   fns,
		Fingerprint: sdata.Fingerprint(tables, fns),
	}

	s := &Static{id: id, snap: snap}
	s.fromSnapshot = fromSnapshot{get: func(context.Context) (*sdata.Snapshot, error) { return s.snap, nil }}
	return s, nil
}

func (s *Static) Dialect() dialect.ID { return s.id }

func (s *Static) Snapshot(context.Context) (*sdata.Snapshot, error) { return s.snap, nil }

func (s *Static) Close() error { return nil }
