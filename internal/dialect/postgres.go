package dialect

import "strings"

// postgresDialect implements the PostgreSQL family base (PostgreSQL 12 and
// 14). version only selects the reported ID and Name; every Supports*
// method returns true for both versions.
type postgresDialect struct {
	version int // 12 or 14
}

func (d *postgresDialect) ID() ID {
	if d.version >= 14 {
		return PostgreSQL14
	}
	return PostgreSQL12
}

func (d *postgresDialect) Family() Family { return PostgreSQLFamily }
func (d *postgresDialect) Name() string   { return d.ID().String() }

func (d *postgresDialect) QuoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func (d *postgresDialect) Keywords() []string {
	kw := append([]string{}, baseKeywords...)
	kw = append(kw, "RETURNING", "RECURSIVE", "OVER", "PARTITION BY",
		"LATERAL", "ILIKE", "DISTINCT ON", "FILTER", "WINDOW", "ON CONFLICT")
	return kw
}

func (d *postgresDialect) Functions() []Function {
	fns := append([]Function{}, baseFunctions...)
	fns = append(fns,
		Function{Name: "STRING_AGG", Signature: "STRING_AGG(expr, sep)", Returns: "text", Aggregate: true},
		Function{Name: "ARRAY_AGG", Signature: "ARRAY_AGG(expr)", Returns: "array", Aggregate: true},
		Function{Name: "COALESCE", Signature: "COALESCE(expr, ...)", Returns: "same as first non-null arg"},
		Function{Name: "NOW", Signature: "NOW()", Returns: "timestamptz"},
		Function{Name: "ROW_NUMBER", Signature: "ROW_NUMBER() OVER (...)", Returns: "bigint"},
		Function{Name: "RANK", Signature: "RANK() OVER (...)", Returns: "bigint"},
		Function{Name: "JSONB_BUILD_OBJECT", Signature: "JSONB_BUILD_OBJECT(key, val, ...)", Returns: "jsonb"},
	)
	return fns
}

// postgresTypeAliases maps pg_catalog type names onto canonical names.
var postgresTypeAliases = map[string]string{
	"integer":           "int",
	"int4":              "int",
	"int8":              "bigint",
	"bigint":            "bigint",
	"smallint":          "smallint",
	"int2":              "smallint",
	"character varying": "varchar",
	"varchar":           "varchar",
	"character":         "char",
	"text":              "text",
	"boolean":            "bool",
	"bool":              "bool",
	"timestamp without time zone": "timestamp",
	"timestamp with time zone":    "timestamptz",
	"date":              "date",
	"numeric":           "numeric",
	"real":              "float4",
	"double precision":  "float8",
	"json":              "json",
	"jsonb":             "jsonb",
	"uuid":              "uuid",
	"bytea":             "bytea",
}

func (d *postgresDialect) NormalizeType(rawType string) string {
	t := strings.ToLower(strings.TrimSpace(rawType))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	if n, ok := postgresTypeAliases[t]; ok {
		return n
	}
	return t
}

func (d *postgresDialect) SupportsWindowFunctions() bool { return true }
func (d *postgresDialect) SupportsRecursiveCTE() bool     { return true }
func (d *postgresDialect) SupportsReturning() bool         { return true }

// cockroachDBDialect overlays CockroachDB-specific vocabulary on top of the
// PostgreSQL 14 base; CockroachDB speaks the PostgreSQL wire protocol and
// most of its DML/DQL grammar, with its own DDL/clustering extensions.
type cockroachDBDialect struct {
	postgresDialect
}

func (d *cockroachDBDialect) ID() ID     { return CockroachDB }
func (d *cockroachDBDialect) Name() string { return "cockroachdb" }

func (d *cockroachDBDialect) Keywords() []string {
	return append(d.postgresDialect.Keywords(), "INTERLEAVE", "AS OF SYSTEM TIME", "FAMILY")
}

func (d *cockroachDBDialect) Functions() []Function {
	return append(d.postgresDialect.Functions(), Function{Name: "GEN_RANDOM_UUID", Signature: "GEN_RANDOM_UUID()", Returns: "uuid"})
}
