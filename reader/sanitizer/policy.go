package sanitizer

import (
	"slices"
	"strings"

	"github.com/dsh2dsh/bluemonday/v2"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var titlePolicy = bluemonday.StrictPolicy()

// StripTags returns text of s without any tags.
func StripTags(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	return titlePolicy.Sanitize(s)
}

// Sanitize returns safe HTML of s. Elements, which aren't allowed, are
// removed with all their content, blocked elements are replaced by their
// children, attributes and URLs are filtered. Every non-ASCII character is
// encoded as a numeric character reference.
func Sanitize(s string, opts ...Option) string {
	if strings.TrimSpace(s) == "" {
		return s
	}

	c := newConfig(opts...)
	nodes, err := parseFragment(s)
	if err != nil {
		return ""
	}

	var b strings.Builder
	for _, n := range nodes {
		for _, kept := range c.filter(n) {
			_ = html.Render(&b, kept)
		}
	}

	nodes, err = parseFragment(c.policy().Sanitize(b.String()))
	if err != nil {
		return ""
	}

	b.Reset()
	for _, n := range nodes {
		writeNode(&b, n)
	}
	return b.String()
}

func parseFragment(s string) ([]*html.Node, error) {
	return html.ParseFragment(strings.NewReader(s), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
}

// filter returns what is left of n: nothing, n itself, or its children if n
// is blocked.
func (self *Config) filter(n *html.Node) []*html.Node {
	switch n.Type {
	case html.TextNode:
		return []*html.Node{n}
	case html.ElementNode:
	default:
		return nil
	}

	blocked := self.isBlocked(n.Data)
	if !blocked && (!self.isAllowed(n.Data) || pixelTracker(n)) {
		return nil
	}

	var children []*html.Node
	for child := n.FirstChild; child != nil; {
		next := child.NextSibling
		n.RemoveChild(child)
		children = append(children, self.filter(child)...)
		child = next
	}

	if blocked {
		return children
	}

	for _, child := range children {
		n.AppendChild(child)
	}
	return []*html.Node{n}
}

func pixelTracker(n *html.Node) bool {
	if n.DataAtom != atom.Img {
		return false
	}

	var height, width bool
	for _, attr := range n.Attr {
		if attr.Val == "0" || attr.Val == "1" {
			switch attr.Key {
			case "height":
				height = true
			case "width":
				width = true
			}
		}
	}
	return height && width
}

func (self *Config) policy() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AllowURLSchemes("http", "https", "mailto")
	p.AllowRelativeURLs(true)

	elements := make([]string, 0, len(self.allowed))
	for name := range self.allowed {
		if !self.isBlocked(name) {
			elements = append(elements, name)
		}
	}
	if len(elements) == 0 {
		return p
	}
	slices.Sort(elements)
	p.AllowElements(elements...)

	// links and images without attributes make no sense
	p.AllowNoAttrs().OnElements(slices.DeleteFunc(slices.Clone(elements),
		func(name string) bool { return name == "a" || name == "img" })...)

	for _, name := range elements {
		attrs := self.attrs[name]
		if len(attrs) == 0 {
			continue
		}

		sized := slices.DeleteFunc(slices.Clone(attrs), func(attr string) bool {
			return attr == "width" || attr == "height"
		})
		if len(sized) < len(attrs) {
			p.AllowAttrs("width", "height").Matching(bluemonday.Number).
				OnElements(name)
		}
		if len(sized) > 0 {
			p.AllowAttrs(sized...).OnElements(name)
		}
	}
	return p
}
