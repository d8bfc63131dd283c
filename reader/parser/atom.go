// SPDX-FileCopyrightText: Copyright The Miniflux Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package parser // import "github.com/dsh2dsh/feedkit/reader/parser"

import (
	"slices"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/dsh2dsh/gofeed/v2/atom"
	"github.com/dsh2dsh/gofeed/v2/options"

	"github.com/dsh2dsh/feedkit/model"
)

type atomFeed struct {
	parser *Parser
	atom   *atom.Feed
	root   *xmlquery.Node
	feed   *model.Feed
}

func (self *Parser) parseAtom(doc *document) (*model.Feed, error) {
	parsed, err := atom.NewParser().Parse(strings.NewReader(doc.text),
		options.WithSkipUnknownElements(true))
	if err != nil {
		return nil, err
	}

	p := atomFeed{parser: self, atom: parsed, root: doc.root}
	return p.Feed(), nil
}

func (self *atomFeed) Feed() *model.Feed {
	self.feed = model.NewFeed(model.TypeAtom)
	self.feed.Title = decodeText(self.atom.Title)
	self.feed.Description = decodeText(self.atom.Subtitle)

	// Links of the feed element itself, the parsed feed has them merged with
	// links of entries.
	for _, link := range children(self.root, "link") {
		self.feed.SetLink(xmlAttr(link, "rel"), xmlAttr(link, "href"))
	}
	addAtomCategories(self.root, self.feed.AddCategory)

	self.feed.Entries = self.entries()
	return self.feed
}

func (self *atomFeed) entries() []*model.Entry {
	nodes := children(self.root, "entry")
	entries := make([]*model.Entry, len(self.atom.Entries))
	for i, item := range self.atom.Entries {
		entries[i] = self.entry(item, nodeAt(nodes, i))
	}
	return entries
}

func (self *atomFeed) entry(item *atom.Entry, n *xmlquery.Node,
) *model.Entry {
	entry := model.NewEntry()
	entry.ID = strings.TrimSpace(item.ID)
	entry.Title = decodeText(item.Title)

	for _, link := range item.Links {
		rel, href := strings.TrimSpace(link.Rel), strings.TrimSpace(link.Href)
		if strings.EqualFold(rel, model.RelEnclosure) {
			if href != "" {
				entry.Enclosures.Append(atomEnclosure(href, link.Type, link.Length))
			}
			continue
		}
		entry.SetLink(rel, href)
	}
	addAtomCategories(n, entry.AddCategory)

	entry.PublishedAt = self.parser.firstDate(childText(n, "published"),
		childText(n, "updated"))
	self.content(entry, item, n)

	entry.Author = joinAtomAuthors(item.Authors)
	if entry.Author == "" {
		entry.Author = joinAtomAuthors(self.atom.Authors)
	}
	return entry
}

// content sets content of entry from content element, or from summary
// element, if entry has no content.
func (self *atomFeed) content(entry *model.Entry, item *atom.Entry,
	n *xmlquery.Node,
) {
	entry.Content = strings.TrimSpace(item.GetContent())
	contentType := xmlAttr(child(n, "content"), "type")
	if strings.TrimSpace(childText(n, "content")) == "" {
		contentType = xmlAttr(child(n, "summary"), "type")
		if entry.Content == "" {
			entry.Content = childText(n, "summary")
		}
	}

	switch strings.ToLower(contentType) {
	case "html", "xhtml", "text/html":
		entry.ContentType = model.ContentTypeHTML
	}
}

func addAtomCategories(n *xmlquery.Node, add func(term, label string)) {
	for _, c := range children(n, "category") {
		add(xmlAttr(c, "term"), xmlAttr(c, "label"))
	}
}

func atomEnclosure(href, mimeType, length string) model.Enclosure {
	enc := model.Enclosure{URL: href, MimeType: strings.TrimSpace(mimeType)}
	if s := strings.TrimSpace(length); s != "" {
		if size, err := strconv.ParseInt(s, 10, 64); err == nil {
			enc.Size = size
		}
	}
	return enc
}

func joinAtomAuthors(authors []*atom.Person) string {
	names := make([]string, 0, len(authors))
	for _, a := range authors {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			name = strings.TrimSpace(a.Email)
		}
		if name != "" {
			names = append(names, name)
		}
	}

	if len(names) < 2 {
		return strings.Join(names, "")
	}
	slices.Sort(names)
	return strings.Join(slices.Compact(names), ", ")
}
