package db

import (
	"fmt"
	"strconv"
	"strings"
)

// TableRef identifies a table inside the catalog
type TableRef struct {
	Schema string
	Name   string
}

// String returns the qualified table name
func (t TableRef) String() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// QualifiedName quotes the table for use in a statement, prefixed with its
// namespace when one is known
func QualifiedName(d Dialect, t TableRef) string {
	if t.Schema == "" {
		return d.QuoteIdentifier(t.Name)
	}
	return d.QuoteIdentifier(t.Schema) + "." + d.QuoteIdentifier(t.Name)
}

// Dialect captures the per-database differences the introspector and the
// data fetchers need.
//
// Catalog queries must return rows exposing table_schema and table_name
// (tables) or column_name and type_name (columns). Column names are matched
// case-insensitively.
type Dialect interface {
	// Name returns the dialect name
	Name() string
	// TablesQuery returns the query listing base tables, excluding views and
	// system tables
	TablesQuery() (string, []any)
	// ColumnsQuery returns the query listing the columns of one table in
	// ordinal order
	ColumnsQuery(table TableRef) (string, []any)
	// Placeholder returns the bind parameter for the nth (1-based) argument
	Placeholder(n int) string
	// QuoteIdentifier quotes a table or column name
	QuoteIdentifier(identifier string) string
	// SupportsReturning reports whether INSERT ... RETURNING is available
	SupportsReturning() bool
	// NormalizeTypeName strips length/precision modifiers from a native type name
	NormalizeTypeName(typeName string) string
	// TypeAliases maps dialect type names onto canonical names
	TypeAliases() map[string]string
}

var (
	// Postgres is the PostgreSQL dialect, used by both the pgx and lib/pq drivers
	Postgres Dialect = postgresDialect{}
	// SQLite is the SQLite dialect
	SQLite Dialect = sqliteDialect{}
	// MySQL is the MySQL dialect
	MySQL Dialect = mysqlDialect{}
)

// DialectFor returns the dialect for a database/sql driver name
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "pgx", "postgres":
		return Postgres, nil
	case "sqlite3":
		return SQLite, nil
	case "mysql":
		return MySQL, nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", driver)
	}
}

// SupportedDrivers lists the driver names accepted by DialectFor
func SupportedDrivers() []string {
	return []string{"pgx", "postgres", "sqlite3", "mysql"}
}

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) TablesQuery() (string, []any) {
	return `
SELECT table_schema, table_name
FROM information_schema.tables
WHERE table_type = 'BASE TABLE'
  AND table_schema NOT IN ('pg_catalog', 'information_schema')
ORDER BY table_schema, table_name
`, nil
}

// The JDBC driver reports sequence-backed integer columns as serial/bigserial;
// the CASE reproduces that from the column default.
func (postgresDialect) ColumnsQuery(table TableRef) (string, []any) {
	return `
SELECT column_name,
       CASE
           WHEN column_default LIKE 'nextval(%' AND udt_name = 'int8' THEN 'bigserial'
           WHEN column_default LIKE 'nextval(%' AND udt_name = 'int4' THEN 'serial'
           ELSE udt_name
       END AS type_name
FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2
ORDER BY ordinal_position
`, []any{table.Schema, table.Name}
}

func (postgresDialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (postgresDialect) QuoteIdentifier(identifier string) string {
	return quoteWith(identifier, `"`)
}

func (postgresDialect) SupportsReturning() bool { return true }

func (postgresDialect) NormalizeTypeName(typeName string) string {
	return normalizeTypeName(typeName)
}

func (postgresDialect) TypeAliases() map[string]string {
	return map[string]string{
		"BOOL":        "BOOLEAN",
		"NUMERIC":     "DECIMAL",
		"FLOAT4":      "REAL",
		"INT2":        "INTEGER",
		"SERIAL":      "INTEGER",
		"BPCHAR":      "CHAR",
		"TIMESTAMPTZ": "TIMESTAMP",
		"DATE":        "TIMESTAMP",
	}
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) TablesQuery() (string, []any) {
	return `
SELECT 'main' AS table_schema, name AS table_name
FROM sqlite_master
WHERE type = 'table' AND name NOT LIKE 'sqlite\_%' ESCAPE '\'
ORDER BY name
`, nil
}

func (sqliteDialect) ColumnsQuery(table TableRef) (string, []any) {
	return `
SELECT name AS column_name, type AS type_name
FROM pragma_table_info(?)
ORDER BY cid
`, []any{table.Name}
}

func (sqliteDialect) Placeholder(int) string { return "?" }

func (sqliteDialect) QuoteIdentifier(identifier string) string {
	return quoteWith(identifier, `"`)
}

func (sqliteDialect) SupportsReturning() bool { return true }

func (sqliteDialect) NormalizeTypeName(typeName string) string {
	return normalizeTypeName(typeName)
}

func (sqliteDialect) TypeAliases() map[string]string {
	return map[string]string{
		"INT":              "INTEGER",
		"BIGINT":           "INT8",
		"BLOB":             "BYTEA",
		"NUMERIC":          "DECIMAL",
		"DATETIME":         "TIMESTAMP",
		"BOOL":             "BOOLEAN",
		"DOUBLE PRECISION": "DOUBLE",
	}
}

type mysqlDialect struct{}

func (mysqlDialect) Name() string { return "mysql" }

func (mysqlDialect) TablesQuery() (string, []any) {
	return `
SELECT table_schema AS table_schema, table_name AS table_name
FROM information_schema.tables
WHERE table_type = 'BASE TABLE' AND table_schema = DATABASE()
ORDER BY table_name
`, nil
}

func (mysqlDialect) ColumnsQuery(table TableRef) (string, []any) {
	return `
SELECT column_name AS column_name, data_type AS type_name
FROM information_schema.columns
WHERE table_schema = ? AND table_name = ?
ORDER BY ordinal_position
`, []any{table.Schema, table.Name}
}

func (mysqlDialect) Placeholder(int) string { return "?" }

func (mysqlDialect) QuoteIdentifier(identifier string) string {
	return quoteWith(identifier, "`")
}

func (mysqlDialect) SupportsReturning() bool { return false }

func (mysqlDialect) NormalizeTypeName(typeName string) string {
	return normalizeTypeName(typeName)
}

func (mysqlDialect) TypeAliases() map[string]string {
	return map[string]string{
		"INT":      "INTEGER",
		"TINYINT":  "INTEGER",
		"SMALLINT": "INTEGER",
		"BIGINT":   "INT8",
		"DATETIME": "TIMESTAMP",
		"BLOB":     "BYTEA",
		"LONGTEXT": "TEXT",
	}
}

// normalizeTypeName drops modifiers such as VARCHAR(255) or NUMERIC(10,2) and
// collapses inner whitespace
func normalizeTypeName(typeName string) string {
	if i := strings.IndexByte(typeName, '('); i >= 0 {
		typeName = typeName[:i]
	}
	return strings.Join(strings.Fields(typeName), " ")
}

// quoteWith wraps an identifier in the quote character, doubling any
// embedded quotes
func quoteWith(identifier, quote string) string {
	escaped := strings.ReplaceAll(identifier, quote, quote+quote)
	return quote + escaped + quote
}
