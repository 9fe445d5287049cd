package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"bggetl/internal/ddl"
	"bggetl/internal/logging"
	"bggetl/internal/metrics"
	"bggetl/internal/storage/csvio"
)

// DefaultBatchSize is used when LoadOptions.BatchSize is not positive.
const DefaultBatchSize = 5000

// LoadDirs are the csv subdirectories loaded, in order.
var LoadDirs = []string{"details", "links"}

// LoadOptions tune LoadDir. A zero BatchSize means DefaultBatchSize and a
// nil Log discards output.
type LoadOptions struct {
	BatchSize int
	Log       *logging.Logger
	// Job labels metrics; "bggetl" when empty.
	Job string
}

// TableLoad describes one successfully loaded file.
type TableLoad struct {
	Table       string
	Path        string
	Rows        int64
	Fingerprint uint64
}

// FileError is a file that could not be loaded.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string { return fmt.Sprintf("load %s: %v", e.Path, e.Err) }

func (e FileError) Unwrap() error { return e.Err }

// LoadReport lists the files LoadDir loaded and the ones that failed, each in
// load order.
type LoadReport struct {
	Loaded []TableLoad
	Failed []FileError
}

// Rows is the total number of rows loaded across all tables.
func (r LoadReport) Rows() int64 {
	var n int64
	for _, t := range r.Loaded {
		n += t.Rows
	}
	return n
}

// LoadDir loads every csv file under csvDir/details and then csvDir/links
// into a table named after the file stem, replacing any existing table.
// A file that fails to load is logged and recorded in the report, and the
// remaining files are still loaded. Only cancellation aborts the walk.
func LoadDir(ctx context.Context, repo Repository, csvDir string, opts LoadOptions) (LoadReport, error) {
	log := logging.Or(opts.Log)
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Job == "" {
		opts.Job = "bggetl"
	}

	var report LoadReport
	for _, sub := range LoadDirs {
		paths, err := csvio.ListDir(filepath.Join(csvDir, sub))
		if err != nil {
			return report, err
		}
		for _, path := range paths {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			table := csvio.TableName(path)
			log.Info("loading table", "file", path, "table", table)

			tl, err := loadFile(ctx, repo, path, table, opts)
			if err != nil {
				if ctx.Err() != nil {
					return report, ctx.Err()
				}
				log.Error("failed to load table", "file", path, "table", table, "error", err)
				report.Failed = append(report.Failed, FileError{Path: path, Err: err})
				continue
			}
			metrics.RecordTableLoad(opts.Job, table, tl.Rows)
			log.Info("loaded table", "table", table, "rows", tl.Rows, "fingerprint", fmt.Sprintf("%016x", tl.Fingerprint))
			report.Loaded = append(report.Loaded, tl)
		}
	}
	return report, nil
}

func loadFile(ctx context.Context, repo Repository, path, table string, opts LoadOptions) (TableLoad, error) {
	t, err := csvio.ReadTable(path)
	if err != nil {
		return TableLoad{}, err
	}

	def := ddl.Infer(table, t.Columns, t.Rows)
	if err := repo.ReplaceTable(ctx, def); err != nil {
		return TableLoad{}, fmt.Errorf("replace table %s: %w", table, err)
	}

	kinds := make([]ddl.Kind, len(def.Columns))
	for i, c := range def.Columns {
		kinds[i] = c.Kind
	}

	g, gctx := errgroup.WithContext(ctx)
	rows := make(chan []any, opts.BatchSize)
	g.Go(func() error {
		defer close(rows)
		for _, r := range t.Rows {
			row := make([]any, len(kinds))
			for i, k := range kinds {
				if i < len(r) {
					row[i] = ddl.Convert(k, r[i])
				}
			}
			select {
			case rows <- row:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	var loaded int64
	g.Go(func() error {
		copyFn := func(ctx context.Context, columns []string, batch [][]any) (int64, error) {
			return repo.CopyFrom(ctx, table, columns, batch)
		}
		n, err := LoadBatches(gctx, opts.Log, t.Columns, rows, opts.BatchSize, copyFn)
		loaded = n
		return err
	})
	if err := g.Wait(); err != nil {
		return TableLoad{}, err
	}

	return TableLoad{Table: table, Path: path, Rows: loaded, Fingerprint: t.Fingerprint()}, nil
}
