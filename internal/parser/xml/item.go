package xmlparser

import (
	"strings"

	"bggetl/internal/parser/html"
	"bggetl/pkg/records"
)

const (
	// ItemTag is the element name of one catalog entry.
	ItemTag = "item"

	// BoardGameKind is the only item type that yields a record.
	BoardGameKind = "boardgame"

	// linkTypePrefix is stripped from every <link type="..."> value, so
	// "boardgamecategory" becomes "category".
	linkTypePrefix = "boardgame"
)

var (
	ratingsPath     = MustCompilePath("statistics/ratings")
	descriptionPath = MustCompilePath("description")
)

// field binds one GameRecord slot to the path it is read from.
type field struct {
	path Path
	set  func(*records.GameRecord, *string)
}

// itemFields are read relative to the <item> element.
var itemFields = []field{
	{MustCompilePath("name[@type='primary']"), func(g *records.GameRecord, v *string) { g.Title = v }},
	{MustCompilePath("yearpublished"), func(g *records.GameRecord, v *string) { g.YearPublished = v }},
	{MustCompilePath("minplayers"), func(g *records.GameRecord, v *string) { g.MinPlayers = v }},
	{MustCompilePath("maxplayers"), func(g *records.GameRecord, v *string) { g.MaxPlayers = v }},
	{MustCompilePath("playingtime"), func(g *records.GameRecord, v *string) { g.PlayingTime = v }},
	{MustCompilePath("minplaytime"), func(g *records.GameRecord, v *string) { g.MinPlaytime = v }},
	{MustCompilePath("maxplaytime"), func(g *records.GameRecord, v *string) { g.MaxPlaytime = v }},
	{MustCompilePath("minage"), func(g *records.GameRecord, v *string) { g.MinAge = v }},
}

// ratingFields are read relative to statistics/ratings.
var ratingFields = []field{
	{MustCompilePath("usersrated"), func(g *records.GameRecord, v *string) { g.TotalRatings = v }},
	{MustCompilePath("average"), func(g *records.GameRecord, v *string) { g.AvgRating = v }},
	{MustCompilePath("bayesaverage"), func(g *records.GameRecord, v *string) { g.BayesRating = v }},
	{MustCompilePath("stddev"), func(g *records.GameRecord, v *string) { g.StdDevRatings = v }},
	{MustCompilePath("owned"), func(g *records.GameRecord, v *string) { g.OwnedCopies = v }},
	{MustCompilePath("wishing"), func(g *records.GameRecord, v *string) { g.Wishlist = v }},
	{MustCompilePath("numweights"), func(g *records.GameRecord, v *string) { g.TotalWeights = v }},
	{MustCompilePath("averageweight"), func(g *records.GameRecord, v *string) { g.AverageWeight = v }},
}

// ParseItem builds the game record and link records for one <item>.
//
// ok is false when the item is not a board game, has no id, or has no
// statistics/ratings block. Any other missing element only leaves the
// corresponding field nil.
func ParseItem(item *Node) (game records.GameRecord, links []records.LinkRecord, ok bool) {
	if item.AttrOr("type", "") != BoardGameKind {
		return game, nil, false
	}
	id, hasID := item.Attr("id")
	if !hasID {
		return game, nil, false
	}
	ratings := item.Find(ratingsPath)
	if ratings == nil {
		return game, nil, false
	}

	game.GameID = id
	game.Description = html.NormalizeDescription(TextAt(item, descriptionPath, ""))
	for _, f := range itemFields {
		f.set(&game, ValueAt(item, f.path))
	}
	for _, f := range ratingFields {
		f.set(&game, ValueAt(ratings, f.path))
	}

	for _, l := range item.ChildrenNamed("link") {
		links = append(links, records.LinkRecord{
			GameID:   id,
			LinkType: strings.TrimPrefix(l.AttrOr("type", ""), linkTypePrefix),
			LinkID:   attrPtr(l, "id"),
			LinkName: attrPtr(l, "value"),
		})
	}
	return game, links, true
}

func attrPtr(n *Node, name string) *string {
	v, ok := n.Attr(name)
	if !ok {
		return nil
	}
	return &v
}
