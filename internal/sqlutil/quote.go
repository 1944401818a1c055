// Package sqlutil provides SQL utility functions.
package sqlutil

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// QuoteIdentifier quotes a SQL identifier (table name, column name, etc.)
// with backticks and escapes any backticks within the identifier.
func QuoteIdentifier(name string) string {
	escaped := strings.ReplaceAll(name, "`", "``")
	return "`" + escaped + "`"
}

// QuoteDoubleIdentifier quotes a SQL identifier with ANSI double quotes.
func QuoteDoubleIdentifier(name string) string {
	escaped := strings.ReplaceAll(name, `"`, `""`)
	return `"` + escaped + `"`
}

// Dialect captures the identifier quoting and placeholder style of a SQL backend.
type Dialect struct {
	Name        string
	quote       func(string) string
	placeholder sq.PlaceholderFormat
}

var (
	// MySQL covers MySQL and TiDB.
	MySQL = Dialect{Name: "mysql", quote: QuoteIdentifier, placeholder: sq.Question}
	// Postgres uses ANSI quoting and numbered placeholders.
	Postgres = Dialect{Name: "postgres", quote: QuoteDoubleIdentifier, placeholder: sq.Dollar}
	// SQLite uses ANSI quoting and question-mark placeholders.
	SQLite = Dialect{Name: "sqlite3", quote: QuoteDoubleIdentifier, placeholder: sq.Question}
)

// DialectFor returns the dialect for a database/sql driver name.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "mysql", "tidb":
		return MySQL, nil
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported SQL dialect %q", driver)
	}
}

// Quote quotes a single identifier.
func (d Dialect) Quote(name string) string {
	if d.quote == nil {
		return QuoteIdentifier(name)
	}
	return d.quote(name)
}

// QualifiedColumn renders table.column with both parts quoted.
func (d Dialect) QualifiedColumn(table, column string) string {
	if table == "" {
		return d.Quote(column)
	}
	return d.Quote(table) + "." + d.Quote(column)
}

// Placeholder returns the squirrel placeholder format for the dialect.
func (d Dialect) Placeholder() sq.PlaceholderFormat {
	if d.placeholder == nil {
		return sq.Question
	}
	return d.placeholder
}
