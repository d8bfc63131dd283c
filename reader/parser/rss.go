// SPDX-FileCopyrightText: Copyright The Miniflux Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package parser // import "github.com/dsh2dsh/feedkit/reader/parser"

import (
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/dsh2dsh/gofeed/v2/options"
	"github.com/dsh2dsh/gofeed/v2/rss"

	"github.com/dsh2dsh/feedkit/model"
)

type rssFeed struct {
	parser  *Parser
	rss     *rss.Feed
	channel *xmlquery.Node
	feed    *model.Feed
}

func (self *Parser) parseRSS(doc *document) (*model.Feed, error) {
	parsed, err := rss.NewParser().Parse(strings.NewReader(doc.text),
		options.WithSkipUnknownElements(true))
	if err != nil {
		return nil, err
	}

	p := rssFeed{parser: self, rss: parsed, channel: child(doc.root, "channel")}
	return p.Feed(), nil
}

func (self *rssFeed) Feed() *model.Feed {
	self.feed = model.NewFeed(model.TypeRSS)
	self.feed.Title = decodeText(self.rss.GetTitle())
	self.feed.Description = strings.TrimSpace(self.rss.GetDescription())
	self.feed.SetLink(model.RelAlternate, strings.TrimSpace(self.rss.Link()))
	setAtomLinks(self.channel, self.feed.SetLink)

	for s := range self.rss.AllCategories() {
		s = strings.TrimSpace(s)
		self.feed.AddCategory(s, s)
	}

	nodes := children(self.channel, "item")
	self.feed.Entries = make([]*model.Entry, len(self.rss.Items))
	for i, item := range self.rss.Items {
		self.feed.Entries[i] = self.entry(item, nodeAt(nodes, i))
	}
	return self.feed
}

func (self *rssFeed) entry(item *rss.Item, n *xmlquery.Node) *model.Entry {
	entry := model.NewEntry()
	entry.Title = decodeText(item.GetTitle())
	entry.SetLink(model.RelAlternate, strings.TrimSpace(item.Link()))
	setAtomLinks(n, entry.SetLink)
	entry.SetLink(model.RelReplies, strings.TrimSpace(item.Comments))
	entry.SetLink(model.RelVia, xmlAttr(child(n, "source"), "url"))

	entry.ID = entry.Link
	if item.GUID != nil {
		if id := strings.TrimSpace(item.GUID.Value); id != "" {
			entry.ID = id
		}
	}

	entry.ContentType = model.ContentTypeHTML
	entry.Content = childText(n, "content:encoded", "description")
	if entry.Content == "" {
		entry.Content = strings.TrimSpace(item.GetContent())
	}

	// Dates and authors come as written, the parsed item has them normalized.
	entry.PublishedAt = self.parser.firstDate(childText(n, "pubDate"),
		childText(n, "dc:date"), childText(n, "dc:created"))
	entry.Author = childText(n, "author", "dc:creator")

	for s := range item.AllCategories() {
		s = strings.TrimSpace(s)
		entry.AddCategory(s, s)
	}

	for enc := range item.AllEnclosures() {
		if u := strings.TrimSpace(enc.URL); u != "" {
			entry.Enclosures.Append(rssEnclosure(u, enc.Type, enc.Length))
		}
	}
	return entry
}

func rssEnclosure(u, mimeType, length string) model.Enclosure {
	enc := model.Enclosure{URL: u, MimeType: strings.TrimSpace(mimeType)}
	if size, err := strconv.ParseInt(strings.TrimSpace(length), 10,
		64); err == nil {
		enc.Size = size
	}
	return enc
}

// setAtomLinks calls set for every atom:link child of n. Links without rel
// are alternate ones.
func setAtomLinks(n *xmlquery.Node, set func(rel, href string)) {
	for _, link := range children(n, "atom:link") {
		href := xmlAttr(link, "href")
		if href == "" {
			continue
		}

		rel := xmlAttr(link, "rel")
		if rel == "" {
			rel = model.RelAlternate
		}
		set(rel, href)
	}
}
