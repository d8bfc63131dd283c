package sanitizer

import (
	"maps"
	"slices"
)

var (
	defaultAllowedElements = []string{
		"a", "abbr", "acronym", "address", "article", "aside", "audio", "b",
		"bdi", "bdo", "blockquote", "br", "caption", "center", "cite", "code",
		"col", "colgroup", "dd", "del", "details", "dfn", "div", "dl", "dt", "em",
		"figcaption", "figure", "footer", "h1", "h2", "h3", "h4", "h5", "h6",
		"header", "hr", "i", "img", "ins", "kbd", "li", "mark", "ol", "p",
		"picture", "pre", "q", "rp", "rt", "ruby", "s", "samp", "section",
		"small", "source", "span", "strike", "strong", "sub", "summary", "sup",
		"table", "tbody", "td", "tfoot", "th", "thead", "time", "tr", "tt", "u",
		"ul", "var", "video", "wbr",
	}

	defaultAllowedAttrs = map[string][]string{
		"a":          {"href", "title", "hreflang"},
		"abbr":       {"title"},
		"acronym":    {"title"},
		"audio":      {"src", "controls"},
		"blockquote": {"cite"},
		"col":        {"span"},
		"colgroup":   {"span"},
		"del":        {"cite", "datetime"},
		"img":        {"src", "srcset", "alt", "title", "width", "height"},
		"ins":        {"cite", "datetime"},
		"ol":         {"start", "reversed"},
		"q":          {"cite"},
		"source":     {"src", "srcset", "type", "media"},
		"td":         {"colspan", "rowspan", "headers"},
		"th":         {"colspan", "rowspan", "headers", "scope"},
		"time":       {"datetime"},
		"video":      {"src", "controls", "poster", "width", "height"},
	}
)

// Config is a set of elements and attributes to keep.
type Config struct {
	allowed map[string]struct{}
	blocked map[string]struct{}
	attrs   map[string][]string
}

type Option func(c *Config)

// WithAllowedElements replaces default list of allowed elements.
func WithAllowedElements(elements ...string) Option {
	return func(c *Config) { c.allowed = makeSet(elements) }
}

// WithBlockedElements sets elements, which are removed, keeping their
// children.
func WithBlockedElements(elements ...string) Option {
	return func(c *Config) { c.blocked = makeSet(elements) }
}

// WithAllowedAttributes replaces allowed attributes of element.
func WithAllowedAttributes(element string, attrs ...string) Option {
	return func(c *Config) { c.attrs[element] = slices.Clone(attrs) }
}

func newConfig(opts ...Option) *Config {
	c := &Config{
		allowed: makeSet(defaultAllowedElements),
		blocked: map[string]struct{}{},
		attrs:   maps.Clone(defaultAllowedAttrs),
	}
	for _, fn := range opts {
		fn(c)
	}
	return c
}

func makeSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, s := range items {
		set[s] = struct{}{}
	}
	return set
}

func (self *Config) isAllowed(name string) bool {
	_, ok := self.allowed[name]
	return ok
}

func (self *Config) isBlocked(name string) bool {
	_, ok := self.blocked[name]
	return ok
}
