// Package pipeline runs the nightly job: download the rankings dump, fetch
// catalog records for the ranked ids, transform them into tables, write the
// tables as csv and load them into the configured database.
//
// Every step is also callable on its own so the CLI can resume a run from
// the files a previous step left in the run directory.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"bggetl/internal/catalog"
	"bggetl/internal/config"
	"bggetl/internal/datasource/file"
	"bggetl/internal/datasource/httpds"
	"bggetl/internal/logging"
	"bggetl/internal/metrics"
	"bggetl/internal/rankings"
	"bggetl/internal/session"
	"bggetl/internal/storage"
	"bggetl/internal/storage/csvio"
	"bggetl/internal/transform"
	"bggetl/pkg/records"
)

// Step names, used as metric labels.
const (
	StepLogin     = "login"
	StepDump      = "dump"
	StepExtract   = "extract"
	StepTransform = "transform"
	StepWrite     = "write"
	StepLoad      = "load"
)

// Runner executes the job steps for one run directory. It holds the logged-in
// session after the first step that needs it, so the dump download and every
// catalog batch share the same cookies. A Runner is not safe for concurrent
// use.
type Runner struct {
	cfg    config.Config
	log    *logging.Logger
	layout config.Layout
	runID  string
	sess   *session.Session

	sleep httpds.SleepFunc
	open  func(ctx context.Context, cfg storage.Config) (storage.Repository, error)
}

// New prepares a run whose files live under cfg's layout for day.
func New(cfg config.Config, log *logging.Logger, day time.Time) *Runner {
	runID := uuid.NewString()
	return &Runner{
		cfg:    cfg,
		log:    logging.Or(log).With("run_id", runID, "job", cfg.Job),
		layout: cfg.Layout(day),
		runID:  runID,
		sleep:  httpds.SleepContext,
		open:   storage.New,
	}
}

// WithSleep replaces the pause between catalog batches.
func (r *Runner) WithSleep(fn httpds.SleepFunc) *Runner {
	r.sleep = fn
	return r
}

// RunID is the uuid attached to every log line of this run.
func (r *Runner) RunID() string { return r.runID }

// Layout returns the run's directory layout.
func (r *Runner) Layout() config.Layout { return r.layout }

// Summary reports what a full run did.
type Summary struct {
	RunID   string
	DataDir string
	IDs     int
	Batches int
	Stats   transform.Stats
	Files   []string
	Load    storage.LoadReport
}

// Run executes every step in order and stops at the first failure. Files
// that fail to load are reported in Summary.Load but do not fail the run.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	sum := Summary{RunID: r.runID, DataDir: r.layout.Root}
	start := time.Now()
	r.log.Info("starting job", "data_dir", r.layout.Root)

	ids, err := r.Rankings(ctx)
	if err != nil {
		return sum, err
	}
	sum.IDs = len(ids)

	if sum.Batches, err = r.Extract(ctx, ids); err != nil {
		return sum, err
	}

	set, stats, err := r.Transform(ctx)
	if err != nil {
		return sum, err
	}
	sum.Stats = stats

	if sum.Files, err = r.Write(set); err != nil {
		return sum, err
	}

	if sum.Load, err = r.Load(ctx); err != nil {
		return sum, err
	}

	r.log.Info("job complete",
		"ids", sum.IDs,
		"batches", sum.Batches,
		"games", stats.Games,
		"tables", len(sum.Files),
		"rows_loaded", sum.Load.Rows(),
		"failed_loads", len(sum.Load.Failed),
		"elapsed", time.Since(start).Truncate(time.Millisecond),
	)
	return sum, nil
}

// login authenticates once per Runner. Later calls return the same session.
func (r *Runner) login(ctx context.Context) (*session.Session, error) {
	if r.sess != nil {
		return r.sess, nil
	}
	err := metrics.Time(r.cfg.Job, StepLogin, func() error {
		sess, err := session.Authenticate(ctx, session.Options{
			BaseURL:   r.cfg.API.SiteURL,
			Timeout:   r.cfg.API.Timeout.Duration,
			UserAgent: r.cfg.API.UserAgent,
			Log:       r.log,
		}, session.Credentials{
			Username: r.cfg.Credentials.Username,
			Password: r.cfg.Credentials.Password,
		})
		if err != nil {
			return err
		}
		r.sess = sess
		return nil
	})
	return r.sess, err
}

// Rankings logs in, downloads the latest dump into the run directory and
// returns the ranked ids, limited to extract.top_k_only when positive.
func (r *Runner) Rankings(ctx context.Context) ([]string, error) {
	sess, err := r.login(ctx)
	if err != nil {
		return nil, err
	}

	var ids []string
	err = metrics.Time(r.cfg.Job, StepDump, func() error {
		r.log.Info("downloading latest rankings dump")
		dir, err := rankings.NewFetcher(sess, r.log).FetchLatestDump(ctx, r.layout.Rankings())
		if err != nil {
			return err
		}
		ids, err = rankings.ReadIDs(filepath.Join(dir, rankings.RanksFile), 0)
		return err
	})
	if err != nil {
		return nil, err
	}
	r.log.Info("found games in rankings dump", "count", len(ids))
	return r.topK(ids), nil
}

// ReadIDs reads a plain id list (one id per line) instead of the rankings
// dump. extract.top_k_only applies the same way.
func (r *Runner) ReadIDs(path string) ([]string, error) {
	ids, err := file.ReadIDList(path)
	if err != nil {
		return nil, fmt.Errorf("read id list: %w", err)
	}
	r.log.Info("read id list", "path", path, "count", len(ids))
	return r.topK(ids), nil
}

func (r *Runner) topK(ids []string) []string {
	if k := r.cfg.Extract.TopKOnly; k > 0 && k < len(ids) {
		r.log.Info("limiting extraction to top games", "top_k", k)
		return ids[:k]
	}
	return ids
}

// Extract fetches ids in batches into the run's xml directory and returns
// the number of batch files written.
//
// Behavior:
//   - Batches go out one at a time over the run's logged-in session, logging
//     in first if no earlier step has.
//   - Failed requests are retried only when extract.max_retries is positive.
func (r *Runner) Extract(ctx context.Context, ids []string) (int, error) {
	sess, err := r.login(ctx)
	if err != nil {
		return 0, err
	}

	var n int
	err = metrics.Time(r.cfg.Job, StepExtract, func() error {
		getter := httpds.NewClient(httpds.Config{
			Timeout:    r.cfg.API.Timeout.Duration,
			UserAgent:  r.cfg.API.UserAgent,
			MaxRetries: r.cfg.Extract.MaxRetries,
			Jar:        sess.Jar(),
		}).WithSleep(r.sleep)
		client, err := catalog.NewClient(getter, catalog.Config{
			BaseURL:   r.cfg.API.CatalogURL,
			BatchSize: r.cfg.Extract.BatchSize,
			Delay:     r.cfg.Extract.Delay.Duration,
		}, r.log)
		if err != nil {
			return err
		}
		client.WithSleep(r.sleep)

		r.log.Info("extracting game data", "ids", len(ids), "dir", r.layout.XML())
		n, err = client.ExtractToDir(ctx, ids, r.layout.XML())
		metrics.RecordBatches(r.cfg.Job, int64(n))
		return err
	})
	return n, err
}

// Transform parses the run's xml directory.
func (r *Runner) Transform(ctx context.Context) (records.TableSet, transform.Stats, error) {
	var (
		set   records.TableSet
		stats transform.Stats
	)
	err := metrics.Time(r.cfg.Job, StepTransform, func() error {
		r.log.Info("transforming", "dir", r.layout.XML())
		t := &transform.Transformer{Log: r.log, Workers: r.cfg.Transform.Workers}
		var err error
		set, stats, err = t.TransformStats(ctx, r.layout.XML())
		return err
	})
	if err != nil {
		return nil, stats, err
	}

	metrics.RecordRecords(r.cfg.Job, "games", int64(stats.Games))
	metrics.RecordRecords(r.cfg.Job, "links", int64(stats.Links))
	metrics.RecordRecords(r.cfg.Job, "parse_errors", int64(stats.ParseErrors))
	metrics.RecordRecords(r.cfg.Job, "dropped_items", int64(stats.Dropped))
	r.log.Info("transformed",
		"files", stats.Files,
		"games", stats.Games,
		"links", stats.Links,
		"parse_errors", stats.ParseErrors,
		"tables", len(set),
		"fingerprint", fmt.Sprintf("%016x", set.Fingerprint()),
	)
	return set, stats, nil
}

// Write saves set under the run's csv directory.
func (r *Runner) Write(set records.TableSet) ([]string, error) {
	var files []string
	err := metrics.Time(r.cfg.Job, StepWrite, func() error {
		var err error
		files, err = csvio.WriteSet(r.layout.CSV(), set)
		return err
	})
	if err == nil {
		r.log.Info("wrote tables", "dir", r.layout.CSV(), "files", len(files))
	}
	return files, err
}

// Load replaces each database table with the run's csv files.
func (r *Runner) Load(ctx context.Context) (storage.LoadReport, error) {
	var report storage.LoadReport
	err := metrics.Time(r.cfg.Job, StepLoad, func() error {
		repo, err := r.open(ctx, storage.Config{Kind: r.cfg.Storage.Kind, DSN: r.cfg.Storage.DSN})
		if err != nil {
			return fmt.Errorf("open %s storage: %w", r.cfg.Storage.Kind, err)
		}
		defer repo.Close()

		r.log.Info("loading", "dir", r.layout.CSV(), "storage", r.cfg.Storage.Kind)
		report, err = storage.LoadDir(ctx, repo, r.layout.CSV(), storage.LoadOptions{
			BatchSize: r.cfg.Storage.BatchSize,
			Log:       r.log,
			Job:       r.cfg.Job,
		})
		return err
	})
	if err != nil {
		return report, err
	}
	if len(report.Failed) > 0 {
		r.log.Warn("some tables failed to load", "failed", len(report.Failed), "loaded", len(report.Loaded))
	} else {
		r.log.Info("loading complete", "tables", len(report.Loaded), "rows", report.Rows())
	}
	return report, nil
}
