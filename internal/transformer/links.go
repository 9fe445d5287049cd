// Package transformer reshapes parsed records into relational tables.
//
// NormalizeLinks turns the flat list of typed links collected from every item
// into one junction table and one dimension table per link type. Link types
// are open-ended: a type never seen before simply gets its own pair of tables.
package transformer

import (
	"strings"

	"bggetl/pkg/records"
)

// linkGroup accumulates the two tables for one link type.
type linkGroup struct {
	junction  *records.Table
	dimension *records.Table

	pairs map[string]struct{} // (game_id, id) already in junction
	ids   map[string]struct{} // id already in dimension
}

func newLinkGroup(t string) *linkGroup {
	idCol := t + "_id"
	return &linkGroup{
		junction:  records.NewTable(records.LinkTableName(t), "game_id", idCol),
		dimension: records.NewTable(records.DetailsTableName(t), idCol, t+"_name"),
		pairs:     make(map[string]struct{}),
		ids:       make(map[string]struct{}),
	}
}

func (g *linkGroup) add(l records.LinkRecord) {
	pk := keyOf(&l.GameID, l.LinkID)
	if _, seen := g.pairs[pk]; !seen {
		g.pairs[pk] = struct{}{}
		gameID := l.GameID
		g.junction.Append(&gameID, l.LinkID)
	}
	// First name seen for an id wins.
	ik := keyOf(l.LinkID)
	if _, seen := g.ids[ik]; !seen {
		g.ids[ik] = struct{}{}
		g.dimension.Append(l.LinkID, l.LinkName)
	}
}

// NormalizeLinks splits links by type into links/<t>_link (game_id, <t>_id)
// and details/<t>_details (<t>_id, <t>_name).
//
// Exact duplicate links are collapsed first. Junction rows are distinct by
// (game_id, <t>_id) and dimension rows by <t>_id; rows keep first-seen order.
// An empty id or name is stored as NULL, the same value a csv round trip
// gives it, so distinctness survives writing and reloading the tables.
// An empty input yields an empty set.
func NormalizeLinks(links []records.LinkRecord) records.TableSet {
	out := records.TableSet{}
	if len(links) == 0 {
		return out
	}

	seen := make(map[string]struct{}, len(links))
	groups := make(map[string]*linkGroup)
	for _, l := range links {
		l.LinkID, l.LinkName = nullIfEmpty(l.LinkID), nullIfEmpty(l.LinkName)
		k := keyOf(&l.GameID, &l.LinkType, l.LinkID, l.LinkName)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}

		g, ok := groups[l.LinkType]
		if !ok {
			g = newLinkGroup(l.LinkType)
			groups[l.LinkType] = g
		}
		g.add(l)
	}

	for _, g := range groups {
		out[g.junction.Name] = g.junction
		out[g.dimension.Name] = g.dimension
	}
	return out
}

func nullIfEmpty(v *string) *string {
	if v != nil && *v == "" {
		return nil
	}
	return v
}

// keyOf joins nullable values into a map key. nil is encoded as "\x00" so it
// never collides with the empty string.
func keyOf(vals ...*string) string {
	var b strings.Builder
	for i, v := range vals {
		if i > 0 {
			b.WriteByte('\x1f')
		}
		if v == nil {
			b.WriteByte('\x00')
			continue
		}
		b.WriteByte('=')
		b.WriteString(*v)
	}
	return b.String()
}
