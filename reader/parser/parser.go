// SPDX-FileCopyrightText: Copyright The Miniflux Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package parser parses Atom, RSS, RDF, JSON and h-feed documents into
// [model.Feed].
package parser // import "github.com/dsh2dsh/feedkit/reader/parser"

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dsh2dsh/feedkit/model"
	"github.com/dsh2dsh/feedkit/reader/date"
)

var (
	ErrEmptyFeed             = errors.New("reader/parser: empty feed")
	ErrNotParseable          = errors.New("reader/parser: neither XML nor JSON")
	ErrFeedFormatNotDetected = errors.New("reader/parser: unable to detect feed format")
)

var defaultParser = New()

type Parser struct {
	dates *date.Parser
}

type Option func(self *Parser)

// WithDateParser sets parser of dates of entries.
func WithDateParser(p *date.Parser) Option {
	return func(self *Parser) { self.dates = p }
}

func New(opts ...Option) *Parser {
	self := &Parser{}
	for _, fn := range opts {
		fn(self)
	}

	if self.dates == nil {
		self.dates = date.New()
	}
	return self
}

// Parse detects format of s and parses it using default parser.
func Parse(s string) (*model.Feed, error) { return defaultParser.Parse(s) }

// ParseHFeed parses h-feed microformat of HTML document s using default
// parser.
func ParseHFeed(s, baseURL string) (*model.Feed, error) {
	return defaultParser.ParseHFeed(s, baseURL)
}

// IsFeed reports whether s looks like a feed of any supported format, except
// h-feed.
func IsFeed(s string) bool { return DetectFormat(s) != FormatUnknown }

// Parse detects format of s and parses it.
func (self *Parser) Parse(s string) (*model.Feed, error) {
	if strings.TrimSpace(s) == "" {
		return nil, ErrEmptyFeed
	}

	doc := newDocument(s)
	if !doc.XML() && !doc.JSON() {
		return nil, ErrNotParseable
	}

	for _, strategy := range strategies {
		if !strategy.canHandle(doc) {
			continue
		}
		feed, err := strategy.parse(self, doc)
		if err != nil {
			return nil, fmt.Errorf("reader/parser: parse %s feed: %w",
				strategy.format, err)
		}
		return feed, nil
	}
	return nil, ErrFeedFormatNotDetected
}
