package ddl

import "strconv"

// Kind is the logical type of a column, inferred from its values.
type Kind string

const (
	KindInt  Kind = "int"
	KindReal Kind = "real"
	KindText Kind = "text"
)

// ColumnDef describes one column. SQLType is filled in by a backend's type
// mapping; Kind is backend-neutral.
type ColumnDef struct {
	Name     string
	Kind     Kind
	SQLType  string
	Nullable bool
}

// TableDef is a table name plus its ordered columns.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// ColumnNames returns the column names in order.
func (t TableDef) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// WithTypes returns a copy of t with SQLType set from mapType.
func (t TableDef) WithTypes(mapType func(Kind) string) TableDef {
	cols := make([]ColumnDef, len(t.Columns))
	for i, c := range t.Columns {
		c.SQLType = mapType(c.Kind)
		cols[i] = c
	}
	return TableDef{FQN: t.FQN, Columns: cols}
}

// Infer builds a TableDef from string rows. A column is KindInt when every
// non-nil value parses as a 64-bit integer, KindReal when every non-nil value
// parses as a float, and KindText otherwise (including all-nil columns).
// Every column is nullable.
func Infer(name string, columns []string, rows [][]*string) TableDef {
	def := TableDef{FQN: name, Columns: make([]ColumnDef, len(columns))}
	for i, col := range columns {
		def.Columns[i] = ColumnDef{Name: col, Kind: inferColumn(rows, i), Nullable: true}
	}
	return def
}

func inferColumn(rows [][]*string, i int) Kind {
	kind := KindInt
	seen := false
	for _, row := range rows {
		if i >= len(row) || row[i] == nil {
			continue
		}
		seen = true
		v := *row[i]
		if kind == KindInt {
			if _, err := strconv.ParseInt(v, 10, 64); err == nil {
				continue
			}
			kind = KindReal
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return KindText
		}
	}
	if !seen {
		return KindText
	}
	return kind
}

// Convert turns a string cell into the Go value a driver expects for kind.
// nil stays nil. Values that do not parse are passed through as strings.
func Convert(kind Kind, v *string) any {
	if v == nil {
		return nil
	}
	switch kind {
	case KindInt:
		if n, err := strconv.ParseInt(*v, 10, 64); err == nil {
			return n
		}
	case KindReal:
		if f, err := strconv.ParseFloat(*v, 64); err == nil {
			return f
		}
	}
	return *v
}
