// Package date parses dates found in feeds, which are often far from any
// standard.
package date // import "github.com/dsh2dsh/feedkit/reader/date"

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var defaultParser = New()

// DefaultLayouts returns layouts tried by a parser created without
// WithLayouts, in the order they are tried.
func DefaultLayouts() []string {
	return []string{
		"Mon, 02 Jan 06 15:04:05 MST",
		time.RFC822,
		time.RFC822Z,
		time.RFC1123,
		time.RFC1123Z,
		"Mon, 2 Jan 2006 15:04:05 MST",
		"Mon, 2 Jan 2006 15:04:05 -0700",
		"2 Jan 2006 15:04:05 -0700",
		time.RFC3339,
		"2006-01-02T15:04:05.000Z07:00",
		"2006-01-02T15:04:05.000000Z07:00",
		"2006-01-02T15:04Z07:00",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05 -0700",
		"2006-01-02 15:04:05",
		"2006-01-02",
		time.RFC850,
		time.ANSIC,
		time.UnixDate,
		"Mon, 02 Jan 2006 15:04 MST",
		"January 2, 2006",
		"02 Jan 2006",
		"Monday, January 2, 2006 - 15:04",
	}
}

// Parser tries a list of layouts and returns the first successful result.
type Parser struct {
	layouts []string
	lenient bool
}

func New(opts ...Option) *Parser {
	p := &Parser{layouts: DefaultLayouts()}
	for _, fn := range opts {
		fn(p)
	}
	return p
}

// Parse parses s using default layouts.
func Parse(s string) (time.Time, bool) { return defaultParser.Parse(s) }

// Parse returns parsed time and true, or zero time and false if s doesn't
// match any layout.
func (self *Parser) Parse(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range self.layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return fixZone(t), true
		}
	}

	if self.lenient {
		if t, err := dateparse.ParseAny(s); err == nil {
			return fixZone(t), true
		}
	}
	return time.Time{}, false
}

// zoneOffsets are offsets in hours of North American zones, allowed by
// RFC 822. time.Parse knows abbreviations of the local zone only and
// fabricates a zero offset for others.
var zoneOffsets = map[string]int{
	"EST": -5, "EDT": -4,
	"CST": -6, "CDT": -5,
	"MST": -7, "MDT": -6,
	"PST": -8, "PDT": -7,
}

func fixZone(t time.Time) time.Time {
	name, _ := t.Zone()
	hours, ok := zoneOffsets[name]
	if !ok {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(),
		t.Second(), t.Nanosecond(), time.FixedZone(name, hours*60*60))
}

// ParsePtr is like Parse, but returns nil instead of false.
func (self *Parser) ParsePtr(s string) *time.Time {
	if t, ok := self.Parse(s); ok {
		return &t
	}
	return nil
}
