package file

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalOpen(t *testing.T) {
	t.Parallel()

	type tc struct {
		name            string
		prepare         func(t *testing.T) string
		makeCtx         func(t *testing.T) context.Context
		wantErrIs       error
		wantErrContains string
		wantContent     string
	}

	writeBatch := func(t *testing.T, payload string) string {
		t.Helper()
		p, err := WriteBatch(context.Background(), t.TempDir(), 0, payload)
		if err != nil {
			t.Fatalf("WriteBatch: %v", err)
		}
		return p
	}

	cases := []tc{
		{
			name:        "success_reads_content",
			prepare:     func(t *testing.T) string { return writeBatch(t, "<items/>") },
			makeCtx:     func(t *testing.T) context.Context { return context.Background() },
			wantContent: "<items/>",
		},
		{
			name: "missing_file_errors_with_wrapping",
			prepare: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "0000.xml")
			},
			makeCtx:         func(t *testing.T) context.Context { return context.Background() },
			wantErrIs:       os.ErrNotExist,
			wantErrContains: "open ",
		},
		{
			name:    "pre_canceled_context_short_circuits",
			prepare: func(t *testing.T) string { return writeBatch(t, "ignored") },
			makeCtx: func(t *testing.T) context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			wantErrIs: context.Canceled,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			src := NewLocal(c.prepare(t))
			rc, err := src.Open(c.makeCtx(t))

			if c.wantErrIs != nil {
				if !errors.Is(err, c.wantErrIs) {
					t.Fatalf("errors.Is(%v, %v) = false", err, c.wantErrIs)
				}
				if c.wantErrContains != "" && !strings.Contains(err.Error(), c.wantErrContains) {
					t.Fatalf("error %q does not contain %q", err, c.wantErrContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("Open() unexpected error: %v", err)
			}
			defer rc.Close()

			got, err := io.ReadAll(rc)
			if err != nil {
				t.Fatalf("reading: %v", err)
			}
			if string(got) != c.wantContent {
				t.Fatalf("content = %q, want %q", got, c.wantContent)
			}
		})
	}
}

func BenchmarkLocalOpen(b *testing.B) {
	p, err := WriteBatch(context.Background(), b.TempDir(), 0, "<items/>")
	if err != nil {
		b.Fatal(err)
	}
	src := NewLocal(p)
	ctx := context.Background()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		rc, err := src.Open(ctx)
		if err != nil {
			b.Fatal(err)
		}
		_ = rc.Close()
	}
}
