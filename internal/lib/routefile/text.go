package routefile

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// PlainText reduces a placemark description, which map editors export as
// HTML, to a single line of text with entities decoded
func PlainText(description string) string {
	if !strings.ContainsAny(description, "<&") {
		return collapseSpace(description)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(description))
	if err != nil {
		return collapseSpace(description)
	}

	// Block breaks separate words in the rendered popup
	doc.Find("br, p, div, li").Each(func(_ int, s *goquery.Selection) {
		for _, n := range s.Nodes {
			if n.Parent != nil {
				n.Parent.InsertBefore(&html.Node{Type: html.TextNode, Data: " "}, n.NextSibling)
			}
		}
	})
	return collapseSpace(doc.Text())
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
