// Package csvio serializes a table set to delimited files and reads them
// back. One file per table, named after the logical table name
// (details/game_details -> <dir>/details/game_details.csv), with a header row
// and no index column. NULL is written as an empty field and an empty field
// reads back as NULL.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"bggetl/pkg/records"
)

// Ext is the extension of every table file.
const Ext = ".csv"

// PathFor returns the file path for a logical table name under dir.
func PathFor(dir, table string) string {
	return filepath.Join(dir, filepath.FromSlash(table)+Ext)
}

// TableName returns the SQL table name for a table file: its base name
// without extension.
func TableName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), Ext)
}

// WriteSet writes every table in set under dir, in name order, and returns
// the paths written. Parent directories are created as needed.
func WriteSet(dir string, set records.TableSet) ([]string, error) {
	paths := make([]string, 0, len(set))
	for _, name := range set.Names() {
		p := PathFor(dir, name)
		if err := WriteTable(p, set[name]); err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// WriteTable writes one table to path, replacing any existing file.
func WriteTable(path string, t *records.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("csvio: mkdir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csvio: create %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(t.Columns); err != nil {
		f.Close()
		return fmt.Errorf("csvio: write header %s: %w", path, err)
	}
	rec := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i := range rec {
			if i < len(row) {
				rec[i] = records.Deref(row[i])
			} else {
				rec[i] = ""
			}
		}
		if err := w.Write(rec); err != nil {
			f.Close()
			return fmt.Errorf("csvio: write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("csvio: flush %s: %w", path, err)
	}
	return f.Close()
}

// ReadTable reads a file written by WriteTable. The returned table is named
// after TableName(path).
func ReadTable(path string) (*records.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csvio: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("csvio: %s has no header", path)
	}
	if err != nil {
		return nil, fmt.Errorf("csvio: read header %s: %w", path, err)
	}

	t := records.NewTable(TableName(path), header...)
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csvio: read %s: %w", path, err)
		}
		row := make([]*string, len(rec))
		for i, v := range rec {
			if v != "" {
				row[i] = records.Str(v)
			}
		}
		t.Append(row...)
	}
	return t, nil
}

// ListDir returns the table files directly inside dir, in name order.
// A missing dir yields no files.
func ListDir(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+Ext))
	if err != nil {
		return nil, err
	}
	return matches, nil
}
