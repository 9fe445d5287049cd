// Package catalog talks to the public XML catalog API: it builds query URLs,
// splits id lists into bounded batches and fetches them one at a time under a
// fixed delay.
package catalog

import (
	"fmt"
	"strings"

	"bggetl/internal/errs"
)

// Param is one query parameter. Params are kept in a slice so the caller's
// order is preserved in the URL.
type Param struct {
	Key   string
	Value string
}

// BuildQueryURL returns base/resource?k1=v1&k2=v2. Values are not encoded;
// callers pass already-safe values. No params yields a trailing "?".
func BuildQueryURL(base, resource string, params ...Param) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(base, "/"))
	b.WriteByte('/')
	b.WriteString(resource)
	b.WriteByte('?')
	for i, p := range params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(p.Key)
		b.WriteByte('=')
		b.WriteString(p.Value)
	}
	return b.String()
}

// SegmentList splits items into ceil(len(items)/size) contiguous batches in
// input order; only the last may be short. size < 1 is a ConfigurationError.
// Batches share the backing array of items.
func SegmentList[T any](items []T, size int) ([][]T, error) {
	if size < 1 {
		return nil, &errs.ConfigurationError{
			Field:   "batch_size",
			Message: fmt.Sprintf("must be at least 1, got %d", size),
		}
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for begin := 0; begin < len(items); begin += size {
		end := min(begin+size, len(items))
		out = append(out, items[begin:end:end])
	}
	return out, nil
}
