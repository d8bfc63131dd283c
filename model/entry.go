// SPDX-FileCopyrightText: Copyright The Miniflux Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package model // import "github.com/dsh2dsh/feedkit/model"

import (
	"maps"
	"slices"
	"strconv"
	"time"
)

// Content types of entries.
const (
	ContentTypeText = "text"
	ContentTypeHTML = "html"
)

// Entry is an item of a feed.
type Entry struct {
	ID         string            `json:"id"`
	Title      string            `json:"title"`
	Link       string            `json:"link"`
	Links      map[string]string `json:"links,omitempty"`
	Categories map[string]string `json:"categories,omitempty"`
	Author     string            `json:"author,omitempty"`
	// PublishedAt is nil if the entry has no date or it can't be parsed.
	PublishedAt *time.Time `json:"published_at,omitempty"`
	ContentType string     `json:"content_type"`
	// Content is raw content of the entry, it's unsafe to display it as is.
	Content    string        `json:"content"`
	Enclosures EnclosureList `json:"enclosures,omitempty"`
}

func NewEntry() *Entry {
	return &Entry{
		Links:       make(map[string]string),
		Categories:  make(map[string]string),
		ContentType: ContentTypeText,
	}
}

// SetLink sets link of relation rel. Only first alternate link is kept, and
// it becomes Link too.
func (self *Entry) SetLink(rel, href string) {
	self.Link = setLink(self.Links, self.Link, rel, href)
}

func (self *Entry) AddCategory(term, label string) {
	addCategory(self.Categories, term, label)
}

func (self *Entry) hash(h *hasher) {
	h.write(self.ID, self.Title, self.Link)
	h.writeMap(self.Links)
	h.writeMap(self.Categories)
	h.write(self.Author)
	h.writeTime(self.PublishedAt)
	h.write(self.ContentType, self.Content)
	h.writeInt(len(self.Enclosures))
	for i := range self.Enclosures {
		e := &self.Enclosures[i]
		h.write(e.URL, e.MimeType, strconv.FormatInt(e.Size, 10))
	}
}

func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}
