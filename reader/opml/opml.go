// Package opml parses OPML subscription lists into trees of outlines.
package opml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/dsh2dsh/feedkit/reader/encoding"
)

var (
	ErrEmptyDocument = errors.New("reader/opml: empty document")
	ErrNotXML        = errors.New("reader/opml: not an XML document")
	ErrUnrecognized  = errors.New("reader/opml: unrecognized document")
)

// Outline is an outline element. Grouping outlines have children and no
// XMLURL, feeds have XMLURL and no children.
type Outline struct {
	Text        string     `json:"text,omitempty"`
	Title       string     `json:"title,omitempty"`
	Type        string     `json:"type,omitempty"`
	XMLURL      string     `json:"xml_url,omitempty"`
	HTMLURL     string     `json:"html_url,omitempty"`
	Description string     `json:"description,omitempty"`
	Outlines    []*Outline `json:"outlines,omitempty"`
}

// Parse returns top level outlines of body of OPML document s.
func Parse(s string) ([]*Outline, error) {
	if strings.TrimSpace(s) == "" {
		return nil, ErrEmptyDocument
	}

	doc, err := xmlquery.ParseWithOptions(strings.NewReader(s),
		xmlquery.ParserOptions{
			Decoder: &xmlquery.DecoderOptions{
				Strict:        false,
				Entity:        xml.HTMLEntity,
				CharsetReader: encoding.NewReaderLabel,
			},
		})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotXML, err)
	} else if !hasElement(doc) {
		return nil, fmt.Errorf("%w: no root element", ErrNotXML)
	}

	root := firstChild(doc, "opml")
	if root == nil {
		return nil, fmt.Errorf("%w: no <opml> root", ErrUnrecognized)
	}

	body := firstChild(root, "body")
	if body == nil {
		return nil, fmt.Errorf("%w: no <body>", ErrUnrecognized)
	}
	return outlines(body), nil
}

func hasElement(doc *xmlquery.Node) bool {
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			return true
		}
	}
	return false
}

// firstChild returns the first element child of n named name. For a document
// node only the root element is considered.
func firstChild(n *xmlquery.Node, name string) *xmlquery.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.ElementNode {
			continue
		}
		if strings.EqualFold(c.Data, name) {
			return c
		}
		if n.Type == xmlquery.DocumentNode {
			return nil
		}
	}
	return nil
}

func outlines(parent *xmlquery.Node) []*Outline {
	var items []*Outline
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode && strings.EqualFold(c.Data, "outline") {
			items = append(items, newOutline(c))
		}
	}
	return items
}

func newOutline(n *xmlquery.Node) *Outline {
	self := &Outline{}
	for _, a := range n.Attr {
		value := strings.TrimSpace(a.Value)
		switch strings.ToLower(a.Name.Local) {
		case "text":
			self.Text = value
		case "title":
			self.Title = value
		case "type":
			self.Type = value
		case "xmlurl":
			self.XMLURL = value
		case "htmlurl":
			self.HTMLURL = value
		case "description":
			self.Description = value
		}
	}

	self.Outlines = outlines(n)
	return self
}

// Name returns title of the outline, or its text if title is empty.
func (self *Outline) Name() string {
	if self.Title != "" {
		return self.Title
	}
	return self.Text
}

// IsFeed reports whether the outline points to a feed.
func (self *Outline) IsFeed() bool { return self.XMLURL != "" }

// Flatten returns feed outlines of the tree in document order.
func Flatten(outlines []*Outline) []*Outline {
	var feeds []*Outline
	for _, o := range outlines {
		if o.IsFeed() {
			feeds = append(feeds, o)
		}
		feeds = append(feeds, Flatten(o.Outlines)...)
	}
	return feeds
}
