package parser

import (
	"strings"

	"github.com/antchfx/xmlquery"
)

// children returns child elements of n with qualified name, like "item" or
// "dc:date". A nil n has no children.
func children(n *xmlquery.Node, name string) []*xmlquery.Node {
	if n == nil {
		return nil
	}

	var nodes []*xmlquery.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode &&
			strings.EqualFold(qualifiedName(c), name) {
			nodes = append(nodes, c)
		}
	}
	return nodes
}

func child(n *xmlquery.Node, name string) *xmlquery.Node {
	if nodes := children(n, name); len(nodes) != 0 {
		return nodes[0]
	}
	return nil
}

// childText returns trimmed text of the first non empty child of n named by
// any of names, in order of names.
func childText(n *xmlquery.Node, names ...string) string {
	for _, name := range names {
		for _, c := range children(n, name) {
			if s := strings.TrimSpace(c.InnerText()); s != "" {
				return s
			}
		}
	}
	return ""
}

// childTexts returns texts of every child of n named name.
func childTexts(n *xmlquery.Node, name string) []string {
	nodes := children(n, name)
	texts := make([]string, len(nodes))
	for i, c := range nodes {
		texts[i] = c.InnerText()
	}
	return texts
}

func xmlAttr(n *xmlquery.Node, name string) string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(n.SelectAttr(name))
}

// nodeAt returns nodes[i] or nil, if i is out of range.
func nodeAt(nodes []*xmlquery.Node, i int) *xmlquery.Node {
	if i < len(nodes) {
		return nodes[i]
	}
	return nil
}
