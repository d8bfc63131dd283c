// SPDX-FileCopyrightText: Copyright The Miniflux Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package parser // import "github.com/dsh2dsh/feedkit/reader/parser"

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/dsh2dsh/feedkit/model"
)

// Link relation of external_url of JSON Feed items.
const relRelated = "related"

type jsonFeed struct {
	parser *Parser
	json   gjson.Result
	feed   *model.Feed
}

func (self *Parser) parseJSON(doc *document) (*model.Feed, error) {
	p := jsonFeed{parser: self, json: doc.json}
	return p.Feed(), nil
}

func (self *jsonFeed) Feed() *model.Feed {
	self.feed = model.NewFeed(model.TypeJSON)
	self.feed.Title = jsonText(self.json, "title")
	self.feed.Description = jsonText(self.json, "description")
	self.feed.SetLink(model.RelAlternate, jsonString(self.json, "home_page_url"))
	self.feed.SetLink(model.RelSelf, jsonString(self.json, "feed_url"))

	items := self.json.Get("items")
	if !items.IsArray() {
		self.feed.Entries = []*model.Entry{}
		return self.feed
	}

	entries := make([]*model.Entry, 0, len(items.Array()))
	for _, item := range items.Array() {
		if item.IsObject() {
			entries = append(entries, self.entry(item))
		}
	}
	self.feed.Entries = entries
	return self.feed
}

func (self *jsonFeed) entry(item gjson.Result) *model.Entry {
	entry := model.NewEntry()
	entry.ID = jsonString(item, "id")
	entry.Title = jsonText(item, "title")
	entry.SetLink(model.RelAlternate, jsonString(item, "url"))
	entry.SetLink(relRelated, jsonString(item, "external_url"))

	if s := jsonString(item, "content_html"); s != "" {
		entry.ContentType = model.ContentTypeHTML
		entry.Content = s
	} else {
		entry.Content = jsonString(item, "content_text")
	}

	entry.PublishedAt = self.parser.firstDate(
		jsonString(item, "date_published"), jsonString(item, "date_modified"))

	for _, tag := range item.Get("tags").Array() {
		if tag.Type == gjson.String {
			s := decodeText(tag.Str)
			entry.AddCategory(s, s)
		}
	}

	entry.Author = self.author(item)
	for _, a := range item.Get("attachments").Array() {
		entry.Enclosures.Append(model.Enclosure{
			URL:      jsonString(a, "url"),
			MimeType: jsonString(a, "mime_type"),
			Size:     a.Get("size_in_bytes").Int(),
		})
	}
	return entry
}

func (self *jsonFeed) author(item gjson.Result) string {
	names := make([]string, 0, 1)
	for _, a := range item.Get("authors").Array() {
		if s := jsonText(a, "name"); s != "" {
			names = append(names, s)
		}
	}

	if len(names) == 0 {
		if s := jsonText(item, "author.name"); s != "" {
			names = append(names, s)
		}
	}
	return strings.Join(names, ", ")
}

// jsonString returns trimmed value of string field path of r, or empty
// string for values of other types.
func jsonString(r gjson.Result, path string) string {
	v := r.Get(path)
	if v.Type != gjson.String {
		return ""
	}
	return strings.TrimSpace(v.Str)
}

func jsonText(r gjson.Result, path string) string {
	return decodeText(jsonString(r, path))
}
