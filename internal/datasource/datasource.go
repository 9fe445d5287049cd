// Package datasource defines how pipeline stages obtain raw bytes.
package datasource

import (
	"context"
	"io"
)

// Source yields one readable payload, such as a saved batch file.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	// Path names the payload in logs and parse errors.
	Path() string
}
