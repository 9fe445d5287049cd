package xmlparser

import (
	"fmt"
	"strings"
)

// seg is one path segment with an optional attribute predicate.
type seg struct{ name, attrName, attrVal string }

// Path is a compiled relative path like "statistics/ratings/average" or
// "name[@type='primary']". A predicate is allowed on the last segment only.
type Path struct {
	raw  string
	segs []seg
}

func (p Path) String() string { return p.raw }

// CompilePath parses a relative path.
func CompilePath(raw string) (Path, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Path{}, fmt.Errorf("empty path")
	}
	parts := strings.Split(raw, "/")
	segs := make([]seg, 0, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return Path{}, fmt.Errorf("bad empty segment in %q", raw)
		}
		s := seg{name: p}
		if j := strings.Index(p, "["); j != -1 {
			if i != len(parts)-1 || !strings.HasSuffix(p, "]") {
				return Path{}, fmt.Errorf("predicate only allowed on last segment in %q", raw)
			}
			pred := strings.TrimSpace(p[j+1 : len(p)-1])
			s.name = p[:j]
			eq := strings.Index(pred, "=")
			if !strings.HasPrefix(pred, "@") || eq < 2 {
				return Path{}, fmt.Errorf("unsupported predicate %q in %q", pred, raw)
			}
			s.attrName = pred[1:eq]
			s.attrVal = strings.Trim(strings.TrimSpace(pred[eq+1:]), `"'`)
		}
		segs = append(segs, s)
	}
	return Path{raw: raw, segs: segs}, nil
}

// MustCompilePath is CompilePath for package-level literals.
func MustCompilePath(raw string) Path {
	p, err := CompilePath(raw)
	if err != nil {
		panic(fmt.Sprintf("xmlparser: %v", err))
	}
	return p
}

func (s seg) matches(n *Node) bool {
	if n.Name != s.name {
		return false
	}
	if s.attrName == "" {
		return true
	}
	v, ok := n.Attr(s.attrName)
	return ok && v == s.attrVal
}
