package rankings

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"bggetl/internal/errs"
	"bggetl/internal/session"
)

const ranksCSV = "id,name,yearpublished,rank\n224517,Brass: Birmingham,2018,1\n161936,Pandemic Legacy: Season 1,2015,2\n174430,Gloomhaven,2017,3\n"

func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// dumpSite serves login, the dump page and the archive.
func dumpSite(t *testing.T, page string, archive []byte, archiveStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(session.LoginPath, func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "SessionID", Value: "ok", Path: "/"})
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc(DumpPagePath, func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("SessionID"); err != nil {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(page))
	})
	mux.HandleFunc("/dumps/bg_ranks.zip", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(archiveStatus)
		_, _ = w.Write(archive)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newFetcher(t *testing.T, srv *httptest.Server) *Fetcher {
	t.Helper()
	s, err := session.Authenticate(context.Background(), session.Options{BaseURL: srv.URL}, session.Credentials{Username: "u", Password: "p"})
	require.NoError(t, err)
	return NewFetcher(s, nil)
}

func TestFetchLatestDump(t *testing.T) {
	t.Parallel()

	archive := zipBytes(t, map[string]string{RanksFile: ranksCSV})
	srv := dumpSite(t, `<html><a href="/dumps/bg_ranks.zip">Click to Download</a></html>`, archive, http.StatusOK)

	out := filepath.Join(t.TempDir(), "rankings_dumps", "new")
	dir, err := newFetcher(t, srv).FetchLatestDump(context.Background(), out)
	require.NoError(t, err)
	require.Equal(t, out, dir)

	ids, err := ReadIDs(filepath.Join(dir, RanksFile), 0)
	require.NoError(t, err)
	require.Equal(t, []string{"224517", "161936", "174430"}, ids)
}

func TestFetchLatestDump_NoLink(t *testing.T) {
	t.Parallel()

	for _, page := range []string{
		`<html><a href="/elsewhere">Nothing here</a></html>`,
		`<html><a href="">Click to Download</a></html>`,
	} {
		srv := dumpSite(t, page, nil, http.StatusOK)
		_, err := newFetcher(t, srv).FetchLatestDump(context.Background(), t.TempDir())
		require.ErrorIs(t, err, errs.ErrLinkNotFound, page)
	}
}

func TestFetchLatestDump_ArchiveStatus(t *testing.T) {
	t.Parallel()

	srv := dumpSite(t, `<a href="/dumps/bg_ranks.zip">Click to Download</a>`, []byte("gone"), http.StatusNotFound)
	_, err := newFetcher(t, srv).FetchLatestDump(context.Background(), t.TempDir())
	var re *errs.RemoteError
	require.True(t, errors.As(err, &re), "got %v", err)
	require.Equal(t, http.StatusNotFound, re.StatusCode)
}

func TestExtractZip_RejectsTraversal(t *testing.T) {
	t.Parallel()

	archive := zipBytes(t, map[string]string{"../evil.txt": "x"})
	dir := t.TempDir()
	_, err := extractZip(archive, filepath.Join(dir, "out"))
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "evil.txt"))
	require.True(t, os.IsNotExist(statErr))
}

func TestExtractZip_NestedEntries(t *testing.T) {
	t.Parallel()

	archive := zipBytes(t, map[string]string{"a/b/c.csv": "id\n1\n", "top.csv": "id\n2\n"})
	dir := filepath.Join(t.TempDir(), "x")
	files, err := extractZip(archive, dir)
	require.NoError(t, err)
	require.Len(t, files, 2)

	b, err := os.ReadFile(filepath.Join(dir, "a", "b", "c.csv"))
	require.NoError(t, err)
	require.Equal(t, "id\n1\n", string(b))
}

func TestExtractZip_NotAZip(t *testing.T) {
	t.Parallel()

	_, err := extractZip([]byte("plain text"), t.TempDir())
	require.Error(t, err)
}
