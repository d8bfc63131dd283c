// Package scraper extracts metadata and content of a web page.
package scraper

import (
	"mime"
	"strings"

	"github.com/dsh2dsh/feedkit/reader/dom"
	"github.com/dsh2dsh/feedkit/urllib"
)

var feedTypes = map[string]struct{}{
	"application/atom+xml": {},
	"application/feed+json": {},
	"application/json":      {},
	"application/rdf+xml":   {},
	"application/rss+xml":   {},
	"application/xml":       {},
	"text/xml":              {},
}

// Page is everything extracted from a web page.
type Page struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Illustration string   `json:"illustration"`
	Content      string   `json:"content"`
	Markdown     string   `json:"markdown,omitempty"`
	Duration     int      `json:"duration"`
	Feeds        []string `json:"feeds,omitempty"`
}

// Extract returns all metadata of t.
func Extract(t *dom.Tree) *Page {
	p := &Page{
		Title:        Title(t),
		Description:  Description(t),
		Illustration: Illustration(t),
		Feeds:        Feeds(t),
	}

	if body := contentNode(t); body != nil {
		p.Content = collapseSpace(body.Text())
		p.Markdown = markdown(body)
	}
	p.Duration = duration(t, p.Content)
	return p
}

// firstOf returns trimmed text of the first match of the first expression
// matched something.
func firstOf(t *dom.Tree, exprs ...string) string {
	for _, expr := range exprs {
		if found := t.Select(expr); found != nil {
			return strings.TrimSpace(found.First().Text())
		}
	}
	return ""
}

func Title(t *dom.Tree) string {
	return firstOf(t,
		"//meta[@property='og:title']/@content",
		"//meta[@name='twitter:title']/@content",
		"//title[not(ancestor::svg)]")
}

func Description(t *dom.Tree) string {
	return firstOf(t,
		"//meta[@property='og:description']/@content",
		"//meta[@name='twitter:description']/@content",
		"//meta[@name='description']/@content")
}

func Illustration(t *dom.Tree) string {
	return firstOf(t,
		"//meta[@property='og:image']/@content",
		"//meta[@name='twitter:image']/@content")
}

// Content returns whitespace collapsed text of the main part of t: <main>,
// or an element with id="main", or <body>. It returns "" if there's no body.
func Content(t *dom.Tree) string {
	if body := contentNode(t); body != nil {
		return collapseSpace(body.Text())
	}
	return ""
}

// contentNode returns a copy of the main part of t without scripts.
func contentNode(t *dom.Tree) *dom.Tree {
	for _, expr := range [...]string{"//main", "//*[@id='main']", "//body"} {
		if found := t.Select(expr); found != nil {
			body := found.First().Clone()
			body.Remove("//script|//style|//noscript")
			return body
		}
	}
	return nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Duration returns reading or watching time in minutes. It prefers
// meta[itemprop=duration] and estimates it by number of words otherwise.
func Duration(t *dom.Tree) int {
	return duration(t, Content(t))
}

func duration(t *dom.Tree, content string) int {
	if found := t.Select("//meta[@itemprop='duration']/@content"); found != nil {
		d, err := parseISO8601(strings.TrimSpace(found.First().Text()))
		if err == nil {
			return ceilMinutes(d)
		}
	}
	return estimateMinutes(content)
}

// Feeds returns href of every link[rel=alternate] with a feed MIME type, in
// document order.
func Feeds(t *dom.Tree) []string {
	links := t.Find("link[rel~='alternate'][href]")
	if links == nil {
		return nil
	}

	var feeds []string
	links.Each(func(link *dom.Tree) {
		if !isFeedType(link.Attr("type")) {
			return
		}
		if href := strings.TrimSpace(link.Attr("href")); href != "" {
			feeds = append(feeds, href)
		}
	})
	return feeds
}

func isFeedType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(contentType)
	}
	_, ok := feedTypes[strings.ToLower(mediaType)]
	return ok
}

// ResolveFeeds returns absolute and unique URLs of [Feeds], resolved against
// <base href> or pageURL.
func ResolveFeeds(t *dom.Tree, pageURL string) []string {
	if base := t.Find("head base[href]"); base != nil {
		if href := strings.TrimSpace(base.Attr("href")); urllib.IsAbsoluteURL(href) {
			pageURL = href
		}
	}

	var feeds []string
	seen := make(map[string]struct{})
	for _, href := range Feeds(t) {
		feedURL, err := urllib.ResolveToAbsoluteURL(pageURL, href)
		if err != nil {
			continue
		}
		if _, ok := seen[feedURL]; !ok {
			seen[feedURL] = struct{}{}
			feeds = append(feeds, feedURL)
		}
	}
	return feeds
}
