// Package ir builds the serializer's generic Element tree from the raw
// XHTML a spine item carries, using goquery's parser so this package never
// has to reimplement HTML tokenizing.
package ir

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/mobiwright/mobicore/mobi/serialize"
)

// pageBreakClasses marks an element as carrying a page break before it —
// the convention calibre and most FB2-to-HTML pipelines use for injecting
// Kindle page breaks into flowed text.
var pageBreakClasses = map[string]bool{
	"mbp-pagebreak": true,
	"page-break":    true,
}

// Parse parses an XHTML fragment and returns the root Element of its
// <body>, or of the document itself if no <body> tag is present.
func Parse(htmlContent string) (*serialize.Element, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, err
	}

	body := doc.Find("body").First()
	var root *html.Node
	if body.Length() > 0 {
		root = body.Get(0)
	} else if len(doc.Nodes) > 0 {
		root = doc.Nodes[0]
	} else {
		return serialize.NewElement("body"), nil
	}

	return convert(root), nil
}

// convert walks an *html.Node tree depth-first, producing the equivalent
// serialize.Element tree. Comment and doctype nodes are dropped; text
// nodes become bare text Elements.
func convert(n *html.Node) *serialize.Element {
	switch n.Type {
	case html.TextNode:
		return serialize.NewText(n.Data)
	case html.ElementNode:
		e := serialize.NewElement(n.Data)
		for _, a := range n.Attr {
			e.Attrs[a.Key] = a.Val
		}
		if pageBreakClasses[e.Attrs["class"]] {
			e.PageBreakBefore = true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.CommentNode || c.Type == html.DoctypeNode {
				continue
			}
			e.Children = append(e.Children, convert(c))
		}
		return e
	default:
		e := serialize.NewElement("body")
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.CommentNode || c.Type == html.DoctypeNode {
				continue
			}
			e.Children = append(e.Children, convert(c))
		}
		return e
	}
}
