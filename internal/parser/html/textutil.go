// Package html provides the small text normalization primitives applied to
// item descriptions. Descriptions arrive HTML-escaped inside the XML payload,
// sometimes double-escaped and sometimes carrying mis-encoded punctuation.
//
//   - UnescapeEntities: decode named and numeric character references.
//   - FixMisencoded: repair known UTF-8-read-as-CP1252 sequences.
//   - CollapseWhitespaceRuns: reduce runs of two or more whitespace runes.
//   - NormalizeDescription: all of the above plus NFC and trimming.
package html

import (
	"strings"
	"unicode"

	xhtml "golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// misencoded maps byte sequences produced by decoding UTF-8 as CP1252 back to
// the intended character. The right single quote is the one seen in practice.
var misencoded = strings.NewReplacer(
	"â€™", "'",
	"’", "'",
)

// UnescapeEntities decodes HTML character references such as &rsquo; and
// &#123;. Unknown references are left as-is.
func UnescapeEntities(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	return xhtml.UnescapeString(s)
}

// FixMisencoded replaces the legacy mis-encoded apostrophe, and the typographic
// apostrophe it stands for, with a plain ASCII apostrophe.
func FixMisencoded(s string) string {
	return misencoded.Replace(s)
}

// CollapseWhitespaceRuns replaces every run of two or more whitespace runes
// with a single ASCII space. A lone whitespace rune is kept unchanged.
func CollapseWhitespaceRuns(s string) string {
	if s == "" {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	var (
		run      int
		firstRun rune
	)
	flush := func() {
		switch {
		case run == 1:
			b.WriteRune(firstRun)
		case run > 1:
			b.WriteByte(' ')
		}
		run = 0
	}
	for _, r := range s {
		if unicode.IsSpace(r) {
			if run == 0 {
				firstRun = r
			}
			run++
			continue
		}
		flush()
		b.WriteRune(r)
	}
	flush()
	return b.String()
}

// NormalizeDescription is the description cleanup applied to every item:
// entity decoding, apostrophe repair, NFC, whitespace-run collapsing and
// trimming. An empty input yields "".
func NormalizeDescription(s string) string {
	if s == "" {
		return ""
	}
	s = UnescapeEntities(s)
	s = FixMisencoded(s)
	s = norm.NFC.String(s)
	s = CollapseWhitespaceRuns(s)
	return strings.TrimSpace(s)
}
