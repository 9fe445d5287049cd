// Package xmlparser turns catalog XML payloads into an optional-node tree and
// extracts game and link records from it.
//
// Every lookup on the tree is nil-safe: a missing element anywhere along a
// path yields a nil *Node, and reading from a nil *Node yields "absent". Field
// extraction therefore never needs its own presence checks.
package xmlparser

import (
	"encoding/xml"
	"errors"
	"io"

	"golang.org/x/net/html/charset"

	"bggetl/internal/errs"
)

// Node is one XML element. Attribute and element names are local names.
type Node struct {
	Name     string
	Attrs    map[string]string
	Text     string
	Children []*Node
}

// Attr returns the attribute value and whether it is present. Safe on nil.
func (n *Node) Attr(name string) (string, bool) {
	if n == nil {
		return "", false
	}
	v, ok := n.Attrs[name]
	return v, ok
}

// AttrOr returns the attribute value or def when absent. Safe on nil.
func (n *Node) AttrOr(name, def string) string {
	if v, ok := n.Attr(name); ok {
		return v
	}
	return def
}

// Find returns the first element, in document order, reached by following p
// from n's children. It returns nil when nothing matches or n is nil.
func (n *Node) Find(p Path) *Node {
	if n == nil || len(p.segs) == 0 {
		return nil
	}
	return findFrom(n, p.segs)
}

func findFrom(n *Node, segs []seg) *Node {
	for _, c := range n.Children {
		if !segs[0].matches(c) {
			continue
		}
		if len(segs) == 1 {
			return c
		}
		if hit := findFrom(c, segs[1:]); hit != nil {
			return hit
		}
	}
	return nil
}

// ChildrenNamed returns the direct children called name. Safe on nil.
func (n *Node) ChildrenNamed(name string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Descendants returns every element called name below n, in document order.
// n itself is not included.
func (n *Node) Descendants(name string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	var walk func(*Node)
	walk = func(cur *Node) {
		for _, c := range cur.Children {
			if c.Name == name {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

// ValueAt is the one accessor used for every scalar field: it follows p from n
// and returns the "value" attribute of the element found, or nil when the
// element or the attribute is absent at any level.
func ValueAt(n *Node, p Path) *string {
	v, ok := n.Find(p).Attr("value")
	if !ok {
		return nil
	}
	return &v
}

// TextAt returns the character data of the element at p, or def.
func TextAt(n *Node, p Path, def string) string {
	hit := n.Find(p)
	if hit == nil {
		return def
	}
	return hit.Text
}

// ParseDocument reads a whole XML document into a tree and returns its root.
// Malformed input yields *errs.XMLParseError.
func ParseDocument(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = true
	dec.CharsetReader = charset.NewReaderLabel

	var (
		root  *Node
		stack []*Node
		text  [][]byte
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &errs.XMLParseError{Err: err}
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Name: t.Name.Local}
			if len(t.Attr) > 0 {
				n.Attrs = make(map[string]string, len(t.Attr))
				for _, a := range t.Attr {
					n.Attrs[a.Name.Local] = a.Value
				}
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, &errs.XMLParseError{Err: errors.New("junk after document element")}
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)
			text = append(text, nil)
		case xml.CharData:
			if len(text) > 0 {
				text[len(text)-1] = append(text[len(text)-1], t...)
			}
		case xml.EndElement:
			top := stack[len(stack)-1]
			top.Text = string(text[len(text)-1])
			stack = stack[:len(stack)-1]
			text = text[:len(text)-1]
		}
	}
	if root == nil {
		return nil, &errs.XMLParseError{Err: errors.New("no element found")}
	}
	if len(stack) > 0 {
		return nil, &errs.XMLParseError{Err: io.ErrUnexpectedEOF}
	}
	return root, nil
}
