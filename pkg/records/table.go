package records

import (
	"encoding/binary"
	"sort"

	"github.com/zeebo/xxh3"
)

// Table is a named, column-ordered row set. A nil cell is a SQL NULL.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]*string
}

// NewTable returns an empty table with the given columns.
func NewTable(name string, columns ...string) *Table {
	return &Table{Name: name, Columns: columns}
}

// Append adds one row. The row must be aligned to t.Columns.
func (t *Table) Append(row ...*string) {
	t.Rows = append(t.Rows, row)
}

// Len reports the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Fingerprint hashes the table's name, columns and rows in order. Two tables
// with the same content and row order have the same fingerprint.
func (t *Table) Fingerprint() uint64 {
	h := xxh3.New()
	writeField(h, &t.Name)
	for i := range t.Columns {
		writeField(h, &t.Columns[i])
	}
	for _, row := range t.Rows {
		_, _ = h.Write([]byte{'\x1e'})
		for _, cell := range row {
			writeField(h, cell)
		}
	}
	return h.Sum64()
}

// writeField writes a length-prefixed cell so that ("ab","c") and ("a","bc")
// hash differently. nil is encoded with a distinct marker.
func writeField(h *xxh3.Hasher, v *string) {
	var lenBuf [9]byte
	if v == nil {
		lenBuf[0] = 0
		_, _ = h.Write(lenBuf[:1])
		return
	}
	lenBuf[0] = 1
	binary.LittleEndian.PutUint64(lenBuf[1:], uint64(len(*v)))
	_, _ = h.Write(lenBuf[:])
	_, _ = h.WriteString(*v)
}

// TableSet maps a logical table name (e.g. "links/category_link") to its rows.
type TableSet map[string]*Table

// Names returns the table names in sorted order.
func (s TableSet) Names() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Fingerprint combines the fingerprints of every table in name order.
func (s TableSet) Fingerprint() uint64 {
	h := xxh3.New()
	var buf [8]byte
	for _, n := range s.Names() {
		binary.LittleEndian.PutUint64(buf[:], s[n].Fingerprint())
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}
