// Package transform turns a directory of saved catalog payloads into the
// final table set: one game_details table plus a junction and a dimension
// table per discovered link type.
package transform

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"bggetl/internal/datasource"
	"bggetl/internal/datasource/file"
	"bggetl/internal/errs"
	"bggetl/internal/logging"
	xmlparser "bggetl/internal/parser/xml"
	"bggetl/internal/transformer"
	"bggetl/pkg/records"
)

// Stats summarizes one Transform call.
type Stats struct {
	Files       int
	ParseErrors int
	Items       int // <item> elements carrying a non-empty id
	Games       int
	Links       int
	Dropped     int // items rejected by ParseItem
}

// Transformer reads payload files and builds tables. The zero value parses
// files one at a time and discards logs.
type Transformer struct {
	Log *logging.Logger

	// Workers bounds how many files are parsed at once. Values below 1 mean 1.
	// Results are aggregated in file-name order regardless of Workers.
	Workers int
}

// fileResult is what one payload file contributes.
type fileResult struct {
	games   []records.GameRecord
	links   []records.LinkRecord
	items   int
	dropped int
	failed  bool
}

// Transform is TransformStats without the counters.
func (t *Transformer) Transform(ctx context.Context, dir string) (records.TableSet, error) {
	set, _, err := t.TransformStats(ctx, dir)
	return set, err
}

// TransformStats parses every *.xml file directly in dir.
//
// A file that is not well-formed XML is logged and skipped. Any other
// failure, including an unreadable dir, aborts the call. details/game_details
// is present only when at least one game was parsed.
func (t *Transformer) TransformStats(ctx context.Context, dir string) (records.TableSet, Stats, error) {
	log := logging.Or(t.Log)

	paths, err := file.ListXML(dir)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("transform: %w", err)
	}

	results := make([]fileResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(t.Workers, 1))
	for i, p := range paths {
		g.Go(func() error {
			res, err := parseSource(gctx, file.NewLocal(p))
			var pe *errs.XMLParseError
			if errors.As(err, &pe) {
				log.Error("failed to parse payload", "path", p, "error", err)
				results[i] = fileResult{failed: true}
				return nil
			}
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Stats{}, fmt.Errorf("transform: %w", err)
	}

	st := Stats{Files: len(paths)}
	games := records.NewTable(records.GameDetailsTable, records.GameColumns...)
	var links []records.LinkRecord
	for _, r := range results {
		if r.failed {
			st.ParseErrors++
			continue
		}
		st.Items += r.items
		st.Dropped += r.dropped
		for _, gr := range r.games {
			games.Append(gr.Row()...)
		}
		links = append(links, r.links...)
	}
	st.Games = games.Len()
	st.Links = len(links)

	set := transformer.NormalizeLinks(links)
	if games.Len() > 0 {
		set[games.Name] = games
	}
	log.Info("transformed payloads",
		"dir", dir,
		"files", st.Files,
		"parse_errors", st.ParseErrors,
		"games", st.Games,
		"links", st.Links,
		"tables", len(set),
	)
	return set, st, nil
}

// parseSource parses one payload. Parse errors carry src.Path().
func parseSource(ctx context.Context, src datasource.Source) (fileResult, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return fileResult{}, err
	}
	defer rc.Close()

	root, err := xmlparser.ParseDocument(rc)
	if err != nil {
		var pe *errs.XMLParseError
		if errors.As(err, &pe) {
			pe.Path = src.Path()
		}
		return fileResult{}, err
	}

	var res fileResult
	for _, item := range root.Descendants(xmlparser.ItemTag) {
		if item.AttrOr("id", "") == "" {
			continue
		}
		res.items++
		game, links, ok := xmlparser.ParseItem(item)
		if !ok {
			res.dropped++
			continue
		}
		res.games = append(res.games, game)
		res.links = append(res.links, links...)
	}
	return res, nil
}
