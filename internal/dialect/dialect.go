// Package dialect describes the SQL dialects sqlls understands and the
// family-level grammar, keyword, and type differences between them.
package dialect

import "fmt"

// Family groups dialects that share a parser and, largely, a completion
// vocabulary. MySQL, TiDB, and MariaDB share the MySQL family; PostgreSQL and
// CockroachDB share the PostgreSQL family.
type Family uint8

const (
	UnknownFamily Family = iota
	MySQLFamily
	PostgreSQLFamily
)

func (f Family) String() string {
	switch f {
	case MySQLFamily:
		return "mysql-family"
	case PostgreSQLFamily:
		return "postgresql-family"
	default:
		return "unknown-family"
	}
}

// ID names one supported dialect/version combination.
type ID uint8

const (
	Unknown ID = iota
	MySQL57
	MySQL80
	TiDB
	MariaDB
	PostgreSQL12
	PostgreSQL14
	CockroachDB
)

// All is the ordered list of every supported dialect ID.
var All = []ID{MySQL57, MySQL80, TiDB, MariaDB, PostgreSQL12, PostgreSQL14, CockroachDB}

func (id ID) String() string {
	switch id {
	case MySQL57:
		return "mysql5.7"
	case MySQL80:
		return "mysql8.0"
	case TiDB:
		return "tidb"
	case MariaDB:
		return "mariadb"
	case PostgreSQL12:
		return "postgresql12"
	case PostgreSQL14:
		return "postgresql14"
	case CockroachDB:
		return "cockroachdb"
	default:
		return "unknown"
	}
}

// Family reports the parser/keyword family this dialect belongs to.
func (id ID) Family() Family {
	switch id {
	case MySQL57, MySQL80, TiDB, MariaDB:
		return MySQLFamily
	case PostgreSQL12, PostgreSQL14, CockroachDB:
		return PostgreSQLFamily
	default:
		return UnknownFamily
	}
}

// ParseID maps a configuration string (as set via the `dialect` option in
// initializationOptions) onto a dialect ID.
func ParseID(s string) (ID, error) {
	for _, id := range All {
		if id.String() == s {
			return id, nil
		}
	}
	return Unknown, fmt.Errorf("dialect: unsupported dialect %q", s)
}

// Function describes one catalog-independent builtin (scalar or aggregate)
// a dialect makes available for completion inside a FunctionArgument or
// projection slot.
type Function struct {
	Name      string
	Signature string
	Returns   string
	Doc       string
	Aggregate bool
}

// Dialect is the compile-time-specialized, per-family/version behavior the
// context detector's downstream consumers (completion, scope resolution,
// the grammar overlay) need: keyword vocabulary, identifier quoting, type
// normalization, and feature flags that gate parser overlay rules.
type Dialect interface {
	ID() ID
	Family() Family
	Name() string

	// QuoteIdentifier returns how this dialect would quote s if it needed
	// quoting (backticks for MySQL family, double quotes for PostgreSQL
	// family). Used to render insert_text for table/column suggestions.
	QuoteIdentifier(s string) string

	// Keywords lists the dialect's reserved/completion keywords, used by
	// the completion provider's Keyword Location and the grammar overlay's
	// token reclassification.
	Keywords() []string

	// Functions lists builtin scalar/aggregate functions available for
	// completion in this dialect.
	Functions() []Function

	// NormalizeType maps a raw information_schema/pg_catalog type name to
	// the canonical type name TableMeta.Columns store (e.g. "int(11)" and
	// "integer" both normalize to "int").
	NormalizeType(rawType string) string

	SupportsWindowFunctions() bool
	SupportsRecursiveCTE() bool
	SupportsReturning() bool
}

// For returns the Dialect implementation for id. Unknown ids fall back to
// the MySQL 8.0 dialect so callers always get a usable (if imprecise)
// vocabulary rather than a nil interface.
func For(id ID) Dialect {
	switch id {
	case MySQL57:
		return &mysqlDialect{version: 57}
	case MySQL80:
		return &mysqlDialect{version: 80}
	case TiDB:
		return &tidbDialect{mysqlDialect{version: 80}}
	case MariaDB:
		return &mariaDBDialect{mysqlDialect{version: 80}}
	case PostgreSQL12:
		return &postgresDialect{version: 12}
	case PostgreSQL14:
		return &postgresDialect{version: 14}
	case CockroachDB:
		return &cockroachDBDialect{postgresDialect{version: 14}}
	default:
		return &mysqlDialect{version: 80}
	}
}

// baseKeywords are shared across every dialect; overlays append to this set.
var baseKeywords = []string{
	"SELECT", "FROM", "WHERE", "GROUP BY", "HAVING", "ORDER BY", "LIMIT",
	"JOIN", "INNER JOIN", "LEFT JOIN", "RIGHT JOIN", "FULL JOIN", "ON",
	"AS", "DISTINCT", "UNION", "UNION ALL", "WITH", "INSERT INTO",
	"UPDATE", "DELETE FROM", "SET", "VALUES", "AND", "OR", "NOT", "IN",
	"EXISTS", "BETWEEN", "LIKE", "IS NULL", "IS NOT NULL", "ASC", "DESC",
	"CASE", "WHEN", "THEN", "ELSE", "END",
}

var baseFunctions = []Function{
	{Name: "COUNT", Signature: "COUNT(expr)", Returns: "bigint", Aggregate: true, Doc: "Counts rows."},
	{Name: "SUM", Signature: "SUM(expr)", Returns: "numeric", Aggregate: true, Doc: "Sums a numeric expression."},
	{Name: "AVG", Signature: "AVG(expr)", Returns: "numeric", Aggregate: true, Doc: "Averages a numeric expression."},
	{Name: "MIN", Signature: "MIN(expr)", Returns: "same as expr", Aggregate: true, Doc: "Minimum value."},
	{Name: "MAX", Signature: "MAX(expr)", Returns: "same as expr", Aggregate: true, Doc: "Maximum value."},
	{Name: "COALESCE", Signature: "COALESCE(expr, ...)", Returns: "same as first non-null arg", Doc: "First non-null argument."},
	{Name: "UPPER", Signature: "UPPER(str)", Returns: "text"},
	{Name: "LOWER", Signature: "LOWER(str)", Returns: "text"},
}
