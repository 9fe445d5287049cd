// Package rankings downloads the latest rankings dump: it finds the download
// link on the member-only dump page, fetches the archive and unpacks it.
package rankings

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"bggetl/internal/errs"
	"bggetl/internal/logging"
	"bggetl/internal/session"
)

// DumpPagePath is the dump listing page, relative to the session base URL.
const DumpPagePath = "/data_dumps/bg_ranks"

// Fetcher downloads rankings dumps over a logged-in session.
type Fetcher struct {
	Session *session.Session
	Log     *logging.Logger
}

// NewFetcher returns a Fetcher; a nil log discards output.
func NewFetcher(s *session.Session, log *logging.Logger) *Fetcher {
	return &Fetcher{Session: s, Log: logging.Or(log)}
}

// FetchLatestDump downloads the newest dump archive and extracts it into
// outputDir, which is created if absent. It returns outputDir.
//
// A page without a download anchor yields *errs.LinkNotFoundError. Non-200
// responses yield *errs.RemoteError. Nothing is retried.
func (f *Fetcher) FetchLatestDump(ctx context.Context, outputDir string) (string, error) {
	log := logging.Or(f.Log)

	page, err := f.get(ctx, DumpPagePath)
	if err != nil {
		return "", err
	}
	href, ok := FindDownloadLink(bytes.NewReader(page))
	if !ok {
		return "", &errs.LinkNotFoundError{Page: DumpPagePath}
	}
	log.Info("found rankings dump", "href", href)

	archive, err := f.get(ctx, href)
	if err != nil {
		return "", err
	}
	files, err := extractZip(archive, outputDir)
	if err != nil {
		return "", err
	}
	log.Info("extracted rankings dump", "dir", outputDir, "files", len(files), "bytes", len(archive))
	return outputDir, nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	res, err := f.Session.R(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("rankings: get %s: %w", url, err)
	}
	if res.StatusCode() != http.StatusOK {
		return nil, &errs.RemoteError{StatusCode: res.StatusCode(), URL: res.Request.URL}
	}
	return res.Body(), nil
}
