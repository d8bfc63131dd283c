package parser

import (
	"encoding/xml"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/tidwall/gjson"

	"github.com/dsh2dsh/feedkit/model"
	"github.com/dsh2dsh/feedkit/reader/encoding"
)

type Format string

const (
	FormatUnknown Format = ""
	FormatAtom    Format = model.TypeAtom
	FormatRSS     Format = model.TypeRSS
	FormatRDF     Format = model.TypeRDF
	FormatJSON    Format = model.TypeJSON
)

// formatStrategy is one row of the dispatch table.
type formatStrategy struct {
	format    Format
	canHandle func(doc *document) bool
	parse     func(p *Parser, doc *document) (*model.Feed, error)
}

// strategies are evaluated in order, first matched wins.
var strategies = [...]formatStrategy{
	{
		format:    FormatAtom,
		canHandle: func(doc *document) bool { return doc.RootIs("feed") },
		parse:     (*Parser).parseAtom,
	},
	{
		format:    FormatRSS,
		canHandle: func(doc *document) bool { return doc.RootIs("rss") },
		parse:     (*Parser).parseRSS,
	},
	{
		format:    FormatRDF,
		canHandle: func(doc *document) bool { return doc.RootContains("rdf") },
		parse:     (*Parser).parseRDF,
	},
	{
		format:    FormatJSON,
		canHandle: isJSONFeed,
		parse:     (*Parser).parseJSON,
	},
}

// DetectFormat returns format of s, or FormatUnknown.
func DetectFormat(s string) Format {
	if strings.TrimSpace(s) == "" {
		return FormatUnknown
	}

	doc := newDocument(s)
	for _, strategy := range strategies {
		if strategy.canHandle(doc) {
			return strategy.format
		}
	}
	return FormatUnknown
}

// document is s parsed once as XML and JSON.
type document struct {
	text string
	root *xmlquery.Node
	json gjson.Result
}

func newDocument(s string) *document {
	doc := &document{text: s}
	trimmed := strings.TrimLeft(s, "\ufeff \t\r\n")
	if strings.HasPrefix(trimmed, "<") {
		doc.root = xmlRoot(s)
	} else if gjson.Valid(trimmed) {
		doc.json = gjson.Parse(trimmed)
	}
	return doc
}

// xmlRoot returns the root element of s. The decoder isn't strict and knows
// HTML entities, but doesn't auto close any elements, because names like
// link or meta are regular elements of feeds.
func xmlRoot(s string) *xmlquery.Node {
	node, err := xmlquery.ParseWithOptions(strings.NewReader(s),
		xmlquery.ParserOptions{
			Decoder: &xmlquery.DecoderOptions{
				Strict:        false,
				Entity:        xml.HTMLEntity,
				CharsetReader: encoding.NewReaderLabel,
			},
		})
	if err != nil {
		return nil
	}

	for n := node.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == xmlquery.ElementNode {
			return n
		}
	}
	return nil
}

func (self *document) XML() bool { return self.root != nil }

func (self *document) JSON() bool { return self.json.Exists() }

func (self *document) RootIs(name string) bool {
	return self.root != nil && strings.EqualFold(self.root.Data, name)
}

func (self *document) RootContains(s string) bool {
	if self.root == nil {
		return false
	}
	return strings.Contains(strings.ToLower(qualifiedName(self.root)), s)
}

func qualifiedName(n *xmlquery.Node) string {
	prefix := n.Prefix
	if prefix == "" && !strings.Contains(n.NamespaceURI, ":") {
		// unresolved prefix of a document without namespace declarations
		prefix = n.NamespaceURI
	}

	if prefix == "" {
		return n.Data
	}
	return prefix + ":" + n.Data
}

func isJSONFeed(doc *document) bool {
	if !doc.json.IsObject() {
		return false
	}
	for _, key := range [...]string{"version", "title", "items"} {
		if !doc.json.Get(key).Exists() {
			return false
		}
	}
	return true
}
