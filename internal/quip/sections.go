package quip

import (
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// topLevelSectionIDs returns the id of the outermost identified element of
// every top-level block in a document body, in document order.
func topLevelSectionIDs(body string) ([]string, error) {
	z := html.NewTokenizer(strings.NewReader(body))

	var ids []string
	depth := 0
	claimedAt := -1

	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return nil, err
			}
			return ids, nil
		case html.StartTagToken:
			tok := z.Token()
			if claimedAt < 0 {
				if id := attr(tok, "id"); id != "" {
					ids = append(ids, id)
					claimedAt = depth
				}
			}
			if !isVoid(tok.DataAtom) {
				depth++
			} else if claimedAt == depth {
				claimedAt = -1
			}
		case html.SelfClosingTagToken:
			if claimedAt < 0 {
				if id := attr(z.Token(), "id"); id != "" {
					ids = append(ids, id)
				}
			}
		case html.EndTagToken:
			if depth > 0 {
				depth--
			}
			if depth == claimedAt {
				claimedAt = -1
			}
		}
	}
}

func attr(tok html.Token, name string) string {
	for _, a := range tok.Attr {
		if a.Key == name {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func isVoid(a atom.Atom) bool {
	switch a {
	case atom.Area, atom.Base, atom.Br, atom.Col, atom.Embed, atom.Hr, atom.Img,
		atom.Input, atom.Link, atom.Meta, atom.Source, atom.Track, atom.Wbr:
		return true
	default:
		return false
	}
}
