// Package dom implements XPath and CSS queryable views of a parsed HTML
// document.
package dom

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/dsh2dsh/feedkit/reader/encoding"
)

// Tree is a view of nodes of a parsed document. All views of the same
// document share its nodes, so a change made through one view is visible
// through all of them.
type Tree struct {
	nodes []*html.Node
}

// Parse parses s as HTML. It never fails, because the HTML parser recovers
// from any malformed input.
func Parse(s string) *Tree {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		doc = &html.Node{Type: html.DocumentNode}
	}
	return &Tree{nodes: []*html.Node{doc}}
}

// ParseReader parses HTML from r, decoding it to UTF-8 using charset of
// contentType or a meta tag.
func ParseReader(r io.Reader, contentType string) (*Tree, error) {
	utf8Reader, err := encoding.NewCharsetReader(r, contentType)
	if err != nil {
		return nil, fmt.Errorf("reader/dom: charset reader: %w", err)
	}

	doc, err := html.Parse(utf8Reader)
	if err != nil {
		return nil, fmt.Errorf("reader/dom: parse html: %w", err)
	}
	return &Tree{nodes: []*html.Node{doc}}, nil
}

// FromNodes returns a view of nodes.
func FromNodes(nodes ...*html.Node) *Tree {
	return &Tree{nodes: slices.Clip(nodes)}
}

// HasClass returns XPath predicate matching elements with class token.
func HasClass(token string) string {
	return "contains(concat(' ', normalize-space(@class), ' '), ' " + token +
		" ')"
}

func (self *Tree) Nodes() []*html.Node { return self.nodes }

func (self *Tree) Len() int { return len(self.nodes) }

// First returns a view of the first node only.
func (self *Tree) First() *Tree {
	if len(self.nodes) == 0 {
		return self
	}
	return &Tree{nodes: self.nodes[:1]}
}

func (self *Tree) Each(fn func(t *Tree)) {
	for _, n := range self.nodes {
		fn(&Tree{nodes: []*html.Node{n}})
	}
}

// Select evaluates XPath expression relative to every node of the view. An
// expression starting with "/" starts from the node itself, not from the
// document root. It returns nil if the expression is invalid or nothing
// matched.
func (self *Tree) Select(expr string) *Tree {
	nodes := self.query(expr)
	if len(nodes) == 0 {
		return nil
	}
	return &Tree{nodes: nodes}
}

func (self *Tree) query(expr string) []*html.Node {
	if strings.HasPrefix(expr, "/") {
		expr = "." + expr
	}

	compiled, err := xpath.Compile(expr)
	if err != nil {
		return nil
	}

	var nodes []*html.Node
	seen := make(map[*html.Node]struct{})
	for _, n := range self.nodes {
		for _, found := range htmlquery.QuerySelectorAll(n, compiled) {
			if _, ok := seen[found]; ok {
				continue
			}
			seen[found] = struct{}{}
			nodes = append(nodes, found)
		}
	}
	return nodes
}

// Find selects descendants matching CSS selector. It returns nil if the
// selector is invalid or nothing matched.
func (self *Tree) Find(selector string) *Tree {
	var nodes []*html.Node
	seen := make(map[*html.Node]struct{})
	for _, n := range self.nodes {
		for _, found := range goquery.NewDocumentFromNode(n).Find(selector).Nodes {
			if _, ok := seen[found]; !ok {
				seen[found] = struct{}{}
				nodes = append(nodes, found)
			}
		}
	}

	if len(nodes) == 0 {
		return nil
	}
	return &Tree{nodes: nodes}
}

// Remove detaches nodes matching XPath expression from the document and
// returns number of removed nodes.
func (self *Tree) Remove(expr string) int {
	var removed int
	for _, n := range self.query(expr) {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
			removed++
		}
	}
	return removed
}

// Text returns decoded and NFC normalized text of every node, one line per
// node. Text of block elements and line breaks are separated by a new line.
// Scripts and styles inside of nodes have no text.
func (self *Tree) Text() string {
	lines := make([]string, len(self.nodes))
	var b strings.Builder
	for i, n := range self.nodes {
		b.Reset()
		writeText(&b, n)
		lines[i] = encoding.Normalize(strings.TrimSuffix(b.String(), "\n"))
	}
	return strings.Join(lines, "\n")
}

var blockElements = map[atom.Atom]struct{}{
	atom.Address: {}, atom.Article: {}, atom.Aside: {}, atom.Blockquote: {},
	atom.Caption: {}, atom.Dd: {}, atom.Details: {}, atom.Dialog: {},
	atom.Div: {}, atom.Dl: {}, atom.Dt: {}, atom.Fieldset: {},
	atom.Figcaption: {}, atom.Figure: {}, atom.Footer: {}, atom.Form: {},
	atom.H1: {}, atom.H2: {}, atom.H3: {}, atom.H4: {}, atom.H5: {},
	atom.H6: {}, atom.Header: {}, atom.Hgroup: {}, atom.Hr: {}, atom.Li: {},
	atom.Main: {}, atom.Nav: {}, atom.Ol: {}, atom.P: {}, atom.Pre: {},
	atom.Section: {}, atom.Summary: {}, atom.Table: {}, atom.Td: {},
	atom.Th: {}, atom.Tr: {}, atom.Ul: {},
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.CommentNode, html.DoctypeNode:
		return
	}

	if n.Type == html.ElementNode && n.DataAtom == atom.Br {
		b.WriteByte('\n')
		return
	}

	_, block := blockElements[n.DataAtom]
	block = block && n.Type == html.ElementNode
	if block {
		newLine(b)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			switch c.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				continue
			}
		}
		writeText(b, c)
	}

	if block {
		newLine(b)
	}
}

func newLine(b *strings.Builder) {
	if s := b.String(); s != "" && s[len(s)-1] != '\n' {
		b.WriteByte('\n')
	}
}

// HTML returns markup of every node, one per line.
func (self *Tree) HTML() string {
	lines := make([]string, len(self.nodes))
	for i, n := range self.nodes {
		lines[i] = htmlquery.OutputHTML(n, n.Type != html.DocumentNode)
	}
	return strings.Join(lines, "\n")
}

// InnerHTML returns markup of children of every node, one line per node.
func (self *Tree) InnerHTML() string {
	lines := make([]string, len(self.nodes))
	for i, n := range self.nodes {
		lines[i] = htmlquery.OutputHTML(n, false)
	}
	return strings.Join(lines, "\n")
}

// Attr returns value of attribute name of the first node. For a view of
// selected attributes, like "//a/@href", it returns the value itself.
func (self *Tree) Attr(name string) string {
	if len(self.nodes) == 0 {
		return ""
	}
	return htmlquery.SelectAttr(self.nodes[0], name)
}

// Clone returns a deep copy of the view, detached from its document.
func (self *Tree) Clone() *Tree {
	nodes := make([]*html.Node, len(self.nodes))
	for i, n := range self.nodes {
		nodes[i] = cloneNode(n)
	}
	return &Tree{nodes: nodes}
}

func cloneNode(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      slices.Clone(n.Attr),
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(cloneNode(child))
	}
	return c
}
