package rankings

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// DownloadText is the visible text of the dump download anchor.
const DownloadText = "Click to Download"

type anchorState int

const (
	scanning anchorState = iota
	awaitingText
	done
)

type anchorEvent int

const (
	anchorOpen   anchorEvent = iota // <a> carrying an href
	matchingText                    // text equal to DownloadText once trimmed
	otherText
	anchorClose
)

type anchorAction int

const (
	noAction anchorAction = iota
	rememberHref
	acceptHref
	forgetHref
)

type transition struct {
	next   anchorState
	action anchorAction
}

// anchorTable lists every transition; a (state, event) pair that is not
// listed leaves the machine where it is.
var anchorTable = map[anchorState]map[anchorEvent]transition{
	scanning: {
		anchorOpen: {awaitingText, rememberHref},
	},
	awaitingText: {
		anchorOpen:   {awaitingText, rememberHref},
		matchingText: {done, acceptHref},
		anchorClose:  {scanning, forgetHref},
	},
}

// anchorFinder scans HTML for the first <a href> whose text is DownloadText.
type anchorFinder struct {
	state   anchorState
	pending string
	found   string
}

func (f *anchorFinder) fire(ev anchorEvent, href string) {
	tr, ok := anchorTable[f.state][ev]
	if !ok {
		return
	}
	switch tr.action {
	case rememberHref:
		f.pending = href
	case acceptHref:
		f.found = f.pending
	case forgetHref:
		f.pending = ""
	}
	f.state = tr.next
}

// FindDownloadLink returns the href of the first anchor whose text is
// DownloadText, and false when there is none. Text nested inside the anchor
// (for example in a <span>) is matched too. An anchor with an empty href
// does not qualify.
func FindDownloadLink(r io.Reader) (string, bool) {
	var f anchorFinder
	z := html.NewTokenizer(r)
	for f.state != done {
		switch z.Next() {
		case html.ErrorToken:
			return "", false
		case html.StartTagToken:
			if href, ok := anchorHref(z); ok {
				f.fire(anchorOpen, href)
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); string(name) == "a" {
				f.fire(anchorClose, "")
			}
		case html.TextToken:
			if strings.TrimSpace(string(z.Text())) == DownloadText {
				f.fire(matchingText, "")
			} else {
				f.fire(otherText, "")
			}
		}
	}
	return f.found, true
}

func anchorHref(z *html.Tokenizer) (string, bool) {
	name, hasAttr := z.TagName()
	if string(name) != "a" || !hasAttr {
		return "", false
	}
	for {
		key, val, more := z.TagAttr()
		if string(key) == "href" {
			href := strings.TrimSpace(string(val))
			return href, href != ""
		}
		if !more {
			return "", false
		}
	}
}
