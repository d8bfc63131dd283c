// SPDX-FileCopyrightText: Copyright The Miniflux Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package model // import "github.com/dsh2dsh/feedkit/model"

import (
	"encoding/hex"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Feed types.
const (
	TypeAtom  = "atom"
	TypeRSS   = "rss"
	TypeRDF   = "rdf"
	TypeJSON  = "json"
	TypeHFeed = "h-feed"
)

// Link relations.
const (
	RelAlternate = "alternate"
	RelSelf      = "self"
	RelReplies   = "replies"
	RelVia       = "via"
	RelEnclosure = "enclosure"
)

// Feed is a feed of any format, parsed into the common model.
type Feed struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	// Link is the same as Links["alternate"].
	Link string `json:"link"`
	// Links maps link relations to URLs.
	Links map[string]string `json:"links,omitempty"`
	// Categories maps terms to labels.
	Categories map[string]string `json:"categories,omitempty"`
	Entries    []*Entry          `json:"entries"`
}

func NewFeed(feedType string) *Feed {
	return &Feed{
		Type:       feedType,
		Links:      make(map[string]string),
		Categories: make(map[string]string),
	}
}

// SetLink sets link of relation rel. Only first alternate link is kept, and
// it becomes Link too.
func (self *Feed) SetLink(rel, href string) {
	self.Link = setLink(self.Links, self.Link, rel, href)
}

func (self *Feed) AddCategory(term, label string) {
	addCategory(self.Categories, term, label)
}

// Hash returns hex encoded xxhash of content of the feed. It doesn't depend on
// order of links and categories, but depends on order of entries.
func (self *Feed) Hash() string {
	h := newHasher()
	h.write(self.Type, self.Title, self.Description, self.Link)
	h.writeMap(self.Links)
	h.writeMap(self.Categories)
	h.writeInt(len(self.Entries))
	for _, e := range self.Entries {
		e.hash(h)
	}
	return h.String()
}

func setLink(links map[string]string, link, rel, href string) string {
	if href == "" {
		return link
	}

	if rel == "" {
		rel = RelAlternate
	}

	if rel == RelAlternate {
		if _, ok := links[rel]; ok {
			return link
		}
		links[rel] = href
		return href
	}
	links[rel] = href
	return link
}

func addCategory(categories map[string]string, term, label string) {
	if term == "" {
		term = label
	}
	if term == "" {
		return
	}

	if label == "" {
		label = term
	}
	categories[term] = label
}

type hasher struct {
	d   *xxhash.Digest
	buf []byte
}

func newHasher() *hasher { return &hasher{d: xxhash.New()} }

// write writes every s prefixed by its length.
func (self *hasher) write(values ...string) {
	for _, s := range values {
		self.writeInt(len(s))
		_, _ = self.d.WriteString(s)
	}
}

func (self *hasher) writeInt(n int) {
	self.buf = strconv.AppendInt(self.buf[:0], int64(n), 10)
	self.buf = append(self.buf, ':')
	_, _ = self.d.Write(self.buf)
}

func (self *hasher) writeMap(m map[string]string) {
	keys := sortedKeys(m)
	self.writeInt(len(keys))
	for _, k := range keys {
		self.write(k, m[k])
	}
}

func (self *hasher) writeTime(t *time.Time) {
	if t == nil {
		self.write("")
		return
	}
	self.write(t.UTC().Format(time.RFC3339Nano))
}

func (self *hasher) String() string {
	return hex.EncodeToString(self.d.Sum(nil))
}
