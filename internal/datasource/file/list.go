// Package file holds the on-disk side of extraction: id lists going in,
// numbered XML batch files coming out, and listing them back for transform.
package file

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// BatchExt is the extension of persisted catalog batches.
const BatchExt = ".xml"

// ReadIDList reads one game id per line. Blank lines and lines starting with
// '#' are skipped; order is preserved.
func ReadIDList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// BatchFileName returns the zero-padded name of the n-th batch: 0000.xml,
// 0001.xml, and so on. Names sort in batch order up to 10000 batches.
func BatchFileName(n int) string {
	return fmt.Sprintf("%04d%s", n, BatchExt)
}

// WriteBatch stores one batch payload as dir/BatchFileName(n) and returns the
// path written. dir is created if needed.
func WriteBatch(ctx context.Context, dir string, n int, payload string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	p := filepath.Join(dir, BatchFileName(n))
	if err := os.WriteFile(p, []byte(payload), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", p, err)
	}
	return p, nil
}

// ListXML returns the *.xml files directly inside dir, sorted by name.
// Subdirectories are not searched. A missing or unreadable dir is an error.
func ListXML(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != BatchExt {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}
