package dialect

import "strings"

// mysqlDialect implements the MySQL family base (MySQL 5.7 and 8.0). The
// version field gates features the grammar overlay and completion provider
// need to know about: window functions and recursive CTEs only exist from
// 8.0 onward, mirroring spec.md's "MySQL 8.0 extends 5.7 with window
// functions and recursive CTEs" note.
type mysqlDialect struct {
	version int // 57 or 80
}

func (d *mysqlDialect) ID() ID {
	if d.version >= 80 {
		return MySQL80
	}
	return MySQL57
}

func (d *mysqlDialect) Family() Family { return MySQLFamily }
func (d *mysqlDialect) Name() string   { return d.ID().String() }

func (d *mysqlDialect) QuoteIdentifier(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}

func (d *mysqlDialect) Keywords() []string {
	kw := append([]string{}, baseKeywords...)
	kw = append(kw, "REPLACE INTO", "LIMIT", "IGNORE", "ON DUPLICATE KEY UPDATE", "STRAIGHT_JOIN")
	if d.SupportsWindowFunctions() {
		kw = append(kw, "OVER", "PARTITION BY")
	}
	if d.SupportsRecursiveCTE() {
		kw = append(kw, "RECURSIVE")
	}
	return kw
}

func (d *mysqlDialect) Functions() []Function {
	fns := append([]Function{}, baseFunctions...)
	fns = append(fns,
		Function{Name: "GROUP_CONCAT", Signature: "GROUP_CONCAT(expr ORDER BY ... SEPARATOR sep)", Returns: "text", Aggregate: true},
		Function{Name: "IFNULL", Signature: "IFNULL(expr, alt)", Returns: "same as expr"},
		Function{Name: "DATE_FORMAT", Signature: "DATE_FORMAT(date, fmt)", Returns: "text"},
		Function{Name: "NOW", Signature: "NOW()", Returns: "datetime"},
	)
	if d.SupportsWindowFunctions() {
		fns = append(fns,
			Function{Name: "ROW_NUMBER", Signature: "ROW_NUMBER() OVER (...)", Returns: "bigint"},
			Function{Name: "RANK", Signature: "RANK() OVER (...)", Returns: "bigint"},
		)
	}
	return fns
}

// mysqlTypeAliases maps information_schema type names (as returned by
// MySQL's DATA_TYPE column) onto the canonical names TableMeta stores.
var mysqlTypeAliases = map[string]string{
	"int":        "int",
	"integer":    "int",
	"tinyint":    "tinyint",
	"smallint":   "smallint",
	"mediumint":  "mediumint",
	"bigint":     "bigint",
	"varchar":    "varchar",
	"char":       "char",
	"text":       "text",
	"mediumtext": "text",
	"longtext":   "text",
	"datetime":   "datetime",
	"timestamp":  "timestamp",
	"date":       "date",
	"decimal":    "decimal",
	"float":      "float",
	"double":     "double",
	"json":       "json",
	"blob":       "blob",
	"enum":       "enum",
	"bool":       "tinyint",
	"boolean":    "tinyint",
}

func (d *mysqlDialect) NormalizeType(rawType string) string {
	t := strings.ToLower(strings.TrimSpace(rawType))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = t[:i]
	}
	if i := strings.IndexByte(t, ' '); i >= 0 {
		t = t[:i]
	}
	if n, ok := mysqlTypeAliases[t]; ok {
		return n
	}
	return t
}

func (d *mysqlDialect) SupportsWindowFunctions() bool { return d.version >= 80 }
func (d *mysqlDialect) SupportsRecursiveCTE() bool     { return d.version >= 80 }
func (d *mysqlDialect) SupportsReturning() bool         { return false }

// tidbDialect overlays TiDB-specific vocabulary on top of the MySQL 8.0
// base; TiDB is wire- and syntax-compatible with MySQL but adds a handful
// of its own clauses.
type tidbDialect struct {
	mysqlDialect
}

func (d *tidbDialect) ID() ID     { return TiDB }
func (d *tidbDialect) Name() string { return "tidb" }

func (d *tidbDialect) Keywords() []string {
	return append(d.mysqlDialect.Keywords(), "SHARD_ROW_ID_BITS", "PRE_SPLIT_REGIONS", "AUTO_RANDOM")
}

func (d *tidbDialect) Functions() []Function {
	return append(d.mysqlDialect.Functions(), Function{Name: "TIDB_VERSION", Signature: "TIDB_VERSION()", Returns: "text"})
}

// mariaDBDialect overlays MariaDB-specific vocabulary. Unlike upstream
// MySQL, MariaDB supports RETURNING on INSERT/UPDATE/DELETE.
type mariaDBDialect struct {
	mysqlDialect
}

func (d *mariaDBDialect) ID() ID       { return MariaDB }
func (d *mariaDBDialect) Name() string { return "mariadb" }

func (d *mariaDBDialect) Keywords() []string {
	return append(d.mysqlDialect.Keywords(), "RETURNING", "SEQUENCE")
}

func (d *mariaDBDialect) SupportsReturning() bool { return true }
