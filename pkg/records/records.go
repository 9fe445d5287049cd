// Package records holds the in-memory shapes produced by the transform stage:
// one GameRecord per catalog item, one LinkRecord per <link> child, and the
// named tables they are normalized into.
//
// All values are transient. They are built fresh on every run and discarded
// once serialized.
package records

// GameDetailsTable is the fixed table holding every parsed GameRecord.
const GameDetailsTable = "details/game_details"

// GameColumns is the column order of the game_details table.
var GameColumns = []string{
	"game_id",
	"title",
	"description",
	"year_published",
	"min_players",
	"max_players",
	"playing_time",
	"min_playtime",
	"max_playtime",
	"min_age",
	"total_ratings",
	"avg_rating",
	"bayes_rating",
	"std_dev_ratings",
	"owned_copies",
	"wishlist",
	"total_weights",
	"average_weight",
}

// GameRecord is one catalog item. Scalar fields are nil when the source
// element or its value attribute is absent; nothing is coerced at parse time.
type GameRecord struct {
	GameID      string
	Title       *string
	Description string

	YearPublished *string
	MinPlayers    *string
	MaxPlayers    *string
	PlayingTime   *string
	MinPlaytime   *string
	MaxPlaytime   *string
	MinAge        *string

	TotalRatings  *string
	AvgRating     *string
	BayesRating   *string
	StdDevRatings *string
	OwnedCopies   *string
	Wishlist      *string
	TotalWeights  *string
	AverageWeight *string
}

// Row returns the record's values aligned to GameColumns.
func (g GameRecord) Row() []*string {
	id := g.GameID
	desc := g.Description
	return []*string{
		&id,
		g.Title,
		&desc,
		g.YearPublished,
		g.MinPlayers,
		g.MaxPlayers,
		g.PlayingTime,
		g.MinPlaytime,
		g.MaxPlaytime,
		g.MinAge,
		g.TotalRatings,
		g.AvgRating,
		g.BayesRating,
		g.StdDevRatings,
		g.OwnedCopies,
		g.Wishlist,
		g.TotalWeights,
		g.AverageWeight,
	}
}

// LinkRecord is one typed relation from a game to an external entity. The
// type is open-ended: it is whatever the source declares, minus the
// "boardgame" prefix.
type LinkRecord struct {
	GameID   string
	LinkType string
	LinkID   *string
	LinkName *string
}

// LinkTableName is the junction table name for link type t.
func LinkTableName(t string) string { return "links/" + t + "_link" }

// DetailsTableName is the dimension table name for link type t.
func DetailsTableName(t string) string { return "details/" + t + "_details" }

// Str returns a pointer to a copy of s.
func Str(s string) *string { return &s }

// Deref returns *p, or "" when p is nil.
func Deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
