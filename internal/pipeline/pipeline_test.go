package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"bggetl/internal/config"
	"bggetl/internal/ddl"
	"bggetl/internal/errs"
	"bggetl/internal/logging"
	"bggetl/internal/session"
	"bggetl/internal/storage"
	_ "bggetl/internal/storage/all"
)

const ranksCSV = "\ufeffid,name,yearpublished,rank\n13,Catan,1995,1\n822,Carcassonne,2000,2\n30549,Pandemic,2008,3\n"

func itemXML(id, name, category string) string {
	return fmt.Sprintf(`<item type="boardgame" id="%s">
	<name type="primary" sortindex="1" value="%s"/>
	<description>About %s.</description>
	<yearpublished value="2000"/>
	<link type="boardgamecategory" id="%s" value="Category %s"/>
	<statistics page="1"><ratings><usersrated value="10"/><average value="7.25"/></ratings></statistics>
</item>`, id, name, name, category, category)
}

// fakeSite serves login, the dump page, the archive and the catalog API.
type fakeSite struct {
	*httptest.Server

	mu       sync.Mutex
	queries  []string
	cookies  []string
	failures int // catalog requests left to answer with 503
}

func newFakeSite(t *testing.T, loginStatus int) *fakeSite {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("boardgames_ranks.csv")
	require.NoError(t, err)
	_, err = w.Write([]byte(ranksCSV))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	archive := buf.Bytes()

	items := map[string]string{
		"13":    itemXML("13", "Catan", "1021"),
		"822":   itemXML("822", "Carcassonne", "1035"),
		"30549": itemXML("30549", "Pandemic", "1021"),
	}

	site := &fakeSite{}
	mux := http.NewServeMux()
	mux.HandleFunc(session.LoginPath, func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "SessionID", Value: "ok", Path: "/"})
		w.WriteHeader(loginStatus)
	})
	mux.HandleFunc("/data_dumps/bg_ranks", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><a href="/dl/ranks.zip">Click to Download</a></body></html>`))
	})
	mux.HandleFunc("/dl/ranks.zip", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(archive)
	})
	mux.HandleFunc("/xmlapi2/thing", func(w http.ResponseWriter, r *http.Request) {
		ids := r.URL.Query().Get("id")
		cookie := "<none>"
		if c, err := r.Cookie("SessionID"); err == nil {
			cookie = c.Value
		}
		site.mu.Lock()
		site.queries = append(site.queries, ids)
		site.cookies = append(site.cookies, cookie)
		fail := site.failures > 0
		if fail {
			site.failures--
		}
		site.mu.Unlock()
		if fail {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		var b strings.Builder
		b.WriteString(`<?xml version="1.0" encoding="utf-8"?><items>`)
		for _, id := range strings.Split(ids, ",") {
			b.WriteString(items[id])
		}
		b.WriteString(`</items>`)
		_, _ = w.Write([]byte(b.String()))
	})
	site.Server = httptest.NewServer(mux)
	t.Cleanup(site.Close)
	return site
}

func (s *fakeSite) seen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

func (s *fakeSite) seenCookies() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.cookies...)
}

func (s *fakeSite) failNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = n
}

func noSleep(context.Context, time.Duration) error { return nil }

func testConfig(t *testing.T, site *fakeSite) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.API.SiteURL = site.URL
	cfg.API.CatalogURL = site.URL + "/xmlapi2"
	cfg.Credentials = config.Credentials{Username: "alice", Password: "pw"}
	cfg.Paths.DataPath = t.TempDir()
	cfg.Extract.BatchSize = 1
	cfg.Extract.TopKOnly = 2
	cfg.Storage = config.Storage{Kind: "sqlite", DSN: filepath.Join(t.TempDir(), "bgg.db"), BatchSize: 10}
	return cfg
}

var runDay = time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)

func TestRunEndToEnd(t *testing.T) {
	t.Parallel()

	site := newFakeSite(t, http.StatusNoContent)
	cfg := testConfig(t, site)

	var sleeps []time.Duration
	core, logs := observer.New(zap.InfoLevel)
	r := New(cfg, logging.FromZap(zap.New(core)), runDay).WithSleep(func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	})

	sum, err := r.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, r.RunID(), sum.RunID)
	require.Equal(t, filepath.Join(cfg.Paths.DataPath, "2026", "10", "18"), sum.DataDir)
	require.Equal(t, 2, sum.IDs)
	require.Equal(t, 2, sum.Batches)
	require.Equal(t, []string{"13", "822"}, site.seen())
	require.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, sleeps)
	require.Equal(t, 2, sum.Stats.Games)
	require.Empty(t, sum.Load.Failed)

	for _, rel := range []string{"xml/0000.xml", "xml/0001.xml", "csv/details/game_details.csv", "csv/links/category_link.csv", "rankings_dumps/boardgames_ranks.csv"} {
		_, err := os.Stat(filepath.Join(sum.DataDir, filepath.FromSlash(rel)))
		require.NoError(t, err, rel)
	}

	db, err := sql.Open("sqlite", cfg.Storage.DSN)
	require.NoError(t, err)
	defer db.Close()

	var title string
	var rating float64
	require.NoError(t, db.QueryRow(`SELECT title, avg_rating FROM game_details WHERE game_id = 822`).Scan(&title, &rating))
	require.Equal(t, "Carcassonne", title)
	require.Equal(t, 7.25, rating)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM category_details`).Scan(&n))
	require.Equal(t, 2, n)

	entries := logs.FilterMessage("job complete").All()
	require.Len(t, entries, 1)
	require.Equal(t, sum.RunID, entries[0].ContextMap()["run_id"])
}

func TestExtractReusesLoginSession(t *testing.T) {
	t.Parallel()

	site := newFakeSite(t, http.StatusNoContent)
	r := New(testConfig(t, site), nil, runDay).WithSleep(noSleep)

	ids, err := r.Rankings(context.Background())
	require.NoError(t, err)
	n, err := r.Extract(context.Background(), ids)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, []string{"ok", "ok"}, site.seenCookies())
}

func TestExtractLogsInWhenNoEarlierStepDid(t *testing.T) {
	t.Parallel()

	site := newFakeSite(t, http.StatusNoContent)
	r := New(testConfig(t, site), nil, runDay).WithSleep(noSleep)

	n, err := r.Extract(context.Background(), []string{"30549"})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, []string{"ok"}, site.seenCookies())
}

func TestExtractRetries(t *testing.T) {
	t.Parallel()

	t.Run("off by default", func(t *testing.T) {
		t.Parallel()
		site := newFakeSite(t, http.StatusNoContent)
		site.failNext(1)
		r := New(testConfig(t, site), nil, runDay).WithSleep(noSleep)

		_, err := r.Extract(context.Background(), []string{"13"})
		var re *errs.RemoteError
		require.ErrorAs(t, err, &re)
		require.Equal(t, http.StatusServiceUnavailable, re.StatusCode)
		require.Len(t, site.seen(), 1)
	})

	t.Run("max_retries re-sends the batch", func(t *testing.T) {
		t.Parallel()
		site := newFakeSite(t, http.StatusNoContent)
		site.failNext(1)
		cfg := testConfig(t, site)
		cfg.Extract.MaxRetries = 1
		r := New(cfg, nil, runDay).WithSleep(noSleep)

		n, err := r.Extract(context.Background(), []string{"13"})
		require.NoError(t, err)
		require.Equal(t, 1, n)
		require.Equal(t, []string{"13", "13"}, site.seen())
	})
}

func TestReadIDsAppliesTopK(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Paths.DataPath = t.TempDir()
	cfg.Extract.TopKOnly = 2
	r := New(cfg, nil, runDay)

	path := filepath.Join(t.TempDir(), "ids.txt")
	require.NoError(t, os.WriteFile(path, []byte("# picks\n13\n\n822\n30549\n"), 0o644))

	ids, err := r.ReadIDs(path)
	require.NoError(t, err)
	require.Equal(t, []string{"13", "822"}, ids)

	_, err = r.ReadIDs(filepath.Join(t.TempDir(), "missing.txt"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunLoginRejected(t *testing.T) {
	t.Parallel()

	site := newFakeSite(t, http.StatusUnauthorized)
	r := New(testConfig(t, site), nil, runDay)

	_, err := r.Run(context.Background())
	var ae *errs.AuthenticationError
	require.ErrorAs(t, err, &ae)
	require.Equal(t, http.StatusUnauthorized, ae.StatusCode)
	require.Empty(t, site.seen())
}

// stubRepo records replaced tables and fails CopyFrom for one of them.
type stubRepo struct {
	replaced []string
	failOn   string
	closed   bool
}

func (s *stubRepo) ReplaceTable(_ context.Context, def ddl.TableDef) error {
	s.replaced = append(s.replaced, def.FQN)
	return nil
}

func (s *stubRepo) CopyFrom(_ context.Context, table string, _ []string, rows [][]any) (int64, error) {
	if table == s.failOn {
		return 0, errors.New("constraint violation")
	}
	return int64(len(rows)), nil
}

func (s *stubRepo) Close() { s.closed = true }

func TestLoadReportsFailedFiles(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Paths.DataPath = t.TempDir()
	r := New(cfg, nil, runDay)

	csvDir := r.Layout().CSV()
	for rel, body := range map[string]string{
		"details/game_details.csv":     "game_id,title\n1,A\n",
		"links/mechanic_link.csv":      "game_id,mechanic_id\n1,2\n",
		"details/mechanic_details.csv": "mechanic_id,mechanic_name\n2,Dice\n",
	} {
		path := filepath.Join(csvDir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}

	repo := &stubRepo{failOn: "mechanic_link"}
	r.open = func(context.Context, storage.Config) (storage.Repository, error) { return repo, nil }

	report, err := r.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Loaded, 2)
	require.Len(t, report.Failed, 1)
	require.Equal(t, []string{"game_details", "mechanic_details", "mechanic_link"}, repo.replaced)
	require.True(t, repo.closed)
}

func TestLoadOpenError(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Storage.Kind = "nope"
	r := New(cfg, nil, runDay)

	_, err := r.Load(context.Background())
	require.ErrorContains(t, err, "unsupported storage.kind=nope")
}

func TestInstallMetrics(t *testing.T) {
	t.Parallel()

	flush, err := InstallMetrics("bgg", config.Metrics{Backend: "none"}, nil)
	require.NoError(t, err)
	flush()

	_, err = InstallMetrics("bgg", config.Metrics{Backend: "graphite"}, nil)
	require.ErrorContains(t, err, "graphite")

	_, err = InstallMetrics("bgg", config.Metrics{Backend: "prompush"}, nil)
	require.Error(t, err)

	_, err = InstallMetrics("bgg", config.Metrics{Backend: "datadog"}, nil)
	require.Error(t, err)
}
