package parser

import (
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/dsh2dsh/feedkit/model"
)

// parseRDF parses RSS 1.0 documents. Items are siblings of the channel,
// identified by links and dated by dc:date only.
func (self *Parser) parseRDF(doc *document) (*model.Feed, error) {
	feed := model.NewFeed(model.TypeRDF)
	channel := child(doc.root, "channel")
	feed.Title = decodeText(childText(channel, "title"))
	feed.Description = childText(channel, "description")
	feed.SetLink(model.RelAlternate, childText(channel, "link"))

	items := children(doc.root, "item")
	if len(items) == 0 {
		// RSS 0.90 puts items into the channel.
		items = children(channel, "item")
	}

	feed.Entries = make([]*model.Entry, len(items))
	for i, n := range items {
		feed.Entries[i] = self.rdfEntry(n)
	}
	return feed, nil
}

func (self *Parser) rdfEntry(n *xmlquery.Node) *model.Entry {
	entry := model.NewEntry()
	entry.Title = decodeText(childText(n, "title"))
	entry.SetLink(model.RelAlternate, childText(n, "link"))
	if entry.Link == "" {
		entry.SetLink(model.RelAlternate, xmlAttr(n, "rdf:about"))
	}
	entry.ID = entry.Link

	entry.ContentType = model.ContentTypeHTML
	entry.Content = childText(n, "content:encoded", "description")
	entry.PublishedAt = self.firstDate(childTexts(n, "dc:date")...)
	entry.Author = childText(n, "dc:creator")

	for _, s := range childTexts(n, "dc:subject") {
		s = strings.TrimSpace(s)
		entry.AddCategory(s, s)
	}
	return entry
}
