// These tests pin the description cleanup behavior. Expected values for the
// "happy path" cases come from descriptions seen in real catalog payloads.

package html

import (
	"testing"
)

func TestNormalizeDescription(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"only spaces", "   ", ""},
		{"simple", "This is a simple description.", "This is a simple description."},
		{"escaped apostrophes", "Description with &rsquo;escaped&rsquo; characters.", "Description with 'escaped' characters."},
		{"numeric entity", "Description with &#12345; HTML entities.", "Description with 〹 HTML entities."},
		{"multiple spaces", "Description with   multiple    spaces.", "Description with multiple spaces."},
		{"two spaces", "A  B", "A B"},
		{"three spaces", "A   B", "A B"},
		{"combined", "Description with &rsquo;escaped&rsquo; characters and &#123; HTML entities.", "Description with 'escaped' characters and { HTML entities."},
		{"leading and trailing", "  Description with leading and trailing spaces.   ", "Description with leading and trailing spaces."},
		{"legacy apostrophe", "Itâ€™s a game", "It's a game"},
		{"double escaped newline run", "Line one&#10;&#10;Line two", "Line one Line two"},
		{"single newline kept", "Line one\nLine two", "Line one\nLine two"},
		{"ampersand escape", "Cats &amp; Dogs", "Cats & Dogs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := NormalizeDescription(tt.in); got != tt.want {
				t.Fatalf("NormalizeDescription(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCollapseWhitespaceRuns(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"a b", "a b"},
		{"a\tb", "a\tb"},
		{"a \t\n b", "a b"},
		{"  a", " a"},
		{"a  ", "a "},
	}
	for _, tt := range tests {
		if got := CollapseWhitespaceRuns(tt.in); got != tt.want {
			t.Errorf("CollapseWhitespaceRuns(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUnescapeEntitiesLeavesPlainText(t *testing.T) {
	t.Parallel()

	in := "no references here"
	if got := UnescapeEntities(in); got != in {
		t.Fatalf("UnescapeEntities(%q) = %q", in, got)
	}
	if got := UnescapeEntities("&zzz;"); got != "&zzz;" {
		t.Fatalf("unknown entity changed: %q", got)
	}
}
