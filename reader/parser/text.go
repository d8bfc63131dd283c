package parser

import (
	"strings"
	"time"

	"golang.org/x/net/html"
)

// decodeText decodes HTML entities of s and trims it.
func decodeText(s string) string {
	return strings.TrimSpace(html.UnescapeString(s))
}

// firstDate returns the first parseable date of values.
func (self *Parser) firstDate(values ...string) *time.Time {
	for _, s := range values {
		if t := self.dates.ParsePtr(s); t != nil {
			return t
		}
	}
	return nil
}
