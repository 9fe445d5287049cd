// Package ddl is a small, backend-neutral model of a table plus a renderer
// for CREATE TABLE statements. Backends supply identifier quoting and the
// Kind to SQL type mapping.
package ddl

import (
	"fmt"
	"strings"
)

// BuildCreateTableSQL renders
//
//	CREATE TABLE <fqn> (
//	  <col> <type> [NOT NULL],
//	  ...
//	);
//
// quote is applied to the table name and every column name; nil emits them
// verbatim. Every column must have a name and an SQLType.
func BuildCreateTableSQL(t TableDef, quote func(string) string) (string, error) {
	if quote == nil {
		quote = func(s string) string { return s }
	}
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}

	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("ddl: column %s missing SQLType", name)
		}
		def := quote(name) + " " + typ
		if !c.Nullable {
			def += " NOT NULL"
		}
		cols = append(cols, def)
	}

	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n);", quote(fqn), strings.Join(cols, ",\n  ")), nil
}

// QuoteIdent double-quotes an identifier, doubling embedded quotes. Both
// Postgres and SQLite accept this form.
func QuoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
