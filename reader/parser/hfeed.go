package parser

import (
	"slices"
	"strings"

	"golang.org/x/net/html"

	"github.com/dsh2dsh/feedkit/model"
	"github.com/dsh2dsh/feedkit/reader/dom"
	"github.com/dsh2dsh/feedkit/urllib"
)

const (
	classFeed  = "h-feed"
	classEntry = "h-entry"
)

// ParseHFeed parses h-feed microformat of HTML document s. Relative links of
// entries are resolved against baseURL. The first h-feed element is the
// feed, or the whole document if there is no one.
func (self *Parser) ParseHFeed(s, baseURL string) (*model.Feed, error) {
	if strings.TrimSpace(s) == "" {
		return nil, ErrEmptyFeed
	}

	doc := dom.Parse(s)
	root := doc.Nodes()[0]
	if t := doc.Select("//*[" + dom.HasClass(classFeed) + "]"); t != nil {
		root = t.Nodes()[0]
	}

	p := hFeed{parser: self, root: root, baseURL: baseURL}
	return p.Feed(), nil
}

type hFeed struct {
	parser  *Parser
	root    *html.Node
	baseURL string
}

func (self *hFeed) Feed() *model.Feed {
	feed := model.NewFeed(model.TypeHFeed)
	feed.Title = text(property(self.root, "p-name"))
	feed.Description = text(property(self.root, "p-summary"))
	feed.SetLink(model.RelAlternate, self.url(property(self.root, "u-url")))

	entries := property(self.root, classEntry)
	feed.Entries = make([]*model.Entry, len(entries))
	for i, n := range entries {
		feed.Entries[i] = self.entry(n)
	}
	return feed
}

func (self *hFeed) entry(n *html.Node) *model.Entry {
	entry := model.NewEntry()
	if uid := property(n, "u-uid"); len(uid) != 0 {
		entry.ID = attrOrText(uid[0], "href")
	}

	entry.Title = text(property(n, "p-name"))
	entry.SetLink(model.RelAlternate, self.url(property(n, "u-url")))
	entry.Author = text(property(n, "p-author"))

	if published := property(n, "dt-published"); len(published) != 0 {
		entry.PublishedAt = self.parser.firstDate(
			attrOrText(published[0], "datetime"))
	}

	if content := property(n, "e-content"); len(content) != 0 {
		entry.ContentType = model.ContentTypeHTML
		entry.Content = strings.TrimSpace(dom.FromNodes(content[0]).InnerHTML())
	}

	for _, c := range property(n, "p-category") {
		s := strings.TrimSpace(dom.FromNodes(c).Text())
		entry.AddCategory(s, s)
	}
	return entry
}

func (self *hFeed) url(nodes []*html.Node) string {
	if len(nodes) == 0 {
		return ""
	}

	href := strings.TrimSpace(attr(nodes[0], "href"))
	if href == "" {
		return ""
	}
	return urllib.AbsoluteURL(self.baseURL, href)
}

// property returns descendants of root with class name, which belong to
// root itself and not to an h-entry nested in it.
func property(root *html.Node, name string) []*html.Node {
	found := dom.FromNodes(root).Select(".//*[" + dom.HasClass(name) + "]")
	if found == nil {
		return nil
	}

	return slices.DeleteFunc(found.Nodes(), func(n *html.Node) bool {
		for p := n.Parent; p != nil && p != root; p = p.Parent {
			if hasClass(p, classEntry) {
				return true
			}
		}
		return false
	})
}

func hasClass(n *html.Node, name string) bool {
	return slices.Contains(strings.Fields(attr(n, "class")), name)
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val
		}
	}
	return ""
}

func attrOrText(n *html.Node, name string) string {
	if s := strings.TrimSpace(attr(n, name)); s != "" {
		return s
	}
	return strings.TrimSpace(dom.FromNodes(n).Text())
}

func text(nodes []*html.Node) string {
	if len(nodes) == 0 {
		return ""
	}
	return strings.TrimSpace(dom.FromNodes(nodes[0]).Text())
}
