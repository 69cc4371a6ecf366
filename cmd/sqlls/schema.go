package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dosco/sqlls/internal/catalog"
	"github.com/dosco/sqlls/internal/config"
	"github.com/dosco/sqlls/internal/sdata"
)

// schemaCmd groups catalog-snapshot maintenance commands.
func schemaCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "schema",
		Short: "Catalog snapshot commands",
	}
	c.AddCommand(schemaDumpCmd())
	return c
}

// schemaDumpCmd connects to a live database, introspects it, and writes the
// result as a static snapshot file — the format internal/catalog.LoadStatic
// reads back, so CI and offline editing can use catalog.mode: static without
// a reachable database.
func schemaDumpCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "dump",
		Short: "Dump a live database's schema to a static snapshot file",
		Long: `Connect to catalog.connection_string, introspect every table, column,
and foreign key, and write the result as a YAML snapshot file that
catalog.mode: static can load without a database connection.`,
		Run: cmdSchemaDump,
	}
	c.Flags().String("output", "schema.yaml", "output snapshot file path")
	return c
}

func cmdSchemaDump(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(afero.NewOsFs(), cfgPath)
	if err != nil {
		log.Fatalf("config: %s", err)
	}
	if cfg.Catalog.Mode != config.CatalogModeLive {
		log.Fatalf("schema dump requires catalog.mode: live in config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	live, err := catalog.NewLive(ctx, cfg.DialectID(), cfg.Catalog.ConnectionString, cfg.Catalog.Schema, 0, log)
	if err != nil {
		log.Fatalf("connect: %s", err)
	}
	defer live.Close()

	snap, err := live.Snapshot(ctx)
	if err != nil {
		log.Fatalf("introspect: %s", err)
	}

	out, _ := cmd.Flags().GetString("output")
	if err := writeSnapshot(out, snap); err != nil {
		log.Fatalf("write %s: %s", out, err)
	}
	log.Infof("wrote %d tables to %s", len(snap.Tables), out)
}

// on-disk shapes mirroring internal/catalog.staticDoc — duplicated rather
// than exported from internal/catalog, since that package's YAML shape is
// load-only and this command is the one place that writes it.
type snapshotDoc struct {
	Dialect string        `yaml:"dialect"`
	Tables  []snapshotTable `yaml:"tables"`
}

type snapshotTable struct {
	Schema  string          `yaml:"schema"`
	Name    string          `yaml:"name"`
	IsView  bool            `yaml:"is_view"`
	Columns []snapshotColumn `yaml:"columns"`
	FKs     []snapshotFK    `yaml:"foreign_keys,omitempty"`
}

type snapshotColumn struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Nullable bool   `yaml:"nullable"`
	PK       bool   `yaml:"primary_key,omitempty"`
}

type snapshotFK struct {
	Column       string `yaml:"column"`
	TargetSchema string `yaml:"target_schema"`
	TargetTable  string `yaml:"target_table"`
	TargetColumn string `yaml:"target_column"`
}

func writeSnapshot(path string, snap *sdata.Snapshot) error {
	doc := snapshotDoc{Dialect: snap.Dialect}
	for _, t := range snap.Tables {
		st := snapshotTable{Schema: t.Schema, Name: t.Name, IsView: t.IsView}
		for _, c := range t.Columns {
			st.Columns = append(st.Columns, snapshotColumn{Name: c.Name, Type: c.Type, Nullable: c.Nullable, PK: c.IsPK})
		}
		for _, fk := range t.FKs {
			st.FKs = append(st.FKs, snapshotFK{Column: fk.LocalColumn, TargetSchema: fk.TargetSchema, TargetTable: fk.TargetTable, TargetColumn: fk.TargetColumn})
		}
		doc.Tables = append(doc.Tables, st)
	}

	b, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return os.WriteFile(path, b, 0o644)
}
