// Package urlcleaner removes tracking parameters and unwraps redirections
// from URLs using ClearURLs provider rules.
package urlcleaner // import "github.com/dsh2dsh/feedkit/reader/urlcleaner"

import (
	"net/url"
	"regexp"
	"strings"
)

const maxRedirections = 16

// Cleaner removes tracking parameters from URLs. It's safe for concurrent
// use.
type Cleaner struct {
	rules *Rules
}

// New returns a Cleaner using rules, or DefaultRules if rules is nil.
func New(rules *Rules) *Cleaner {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Cleaner{rules: rules}
}

// Clear returns rawURL without tracking parameters. It returns an empty
// string if rawURL belongs to a blocked provider.
func (self *Cleaner) Clear(rawURL string) string {
	return self.clear(rawURL, 0)
}

func (self *Cleaner) clear(rawURL string, depth int) string {
	providers := self.matching(rawURL)
	if len(providers) == 0 {
		return rawURL
	}

	for _, p := range providers {
		for _, re := range p.Exceptions {
			if re.MatchString(rawURL) {
				return rawURL
			}
		}
	}

	for _, p := range providers {
		if p.CompleteProvider {
			return ""
		}
	}

	s := rawURL
	for _, p := range providers {
		for _, re := range p.RawRules {
			s = re.ReplaceAllString(s, "")
		}
	}

	if depth < maxRedirections {
		for _, p := range providers {
			for _, re := range p.Redirections {
				if m := re.FindStringSubmatch(s); len(m) > 1 && m[1] != "" {
					return self.clear(decodeTarget(m[1]), depth+1)
				}
			}
		}
	}
	return stripParams(s, providers)
}

func (self *Cleaner) matching(rawURL string) []*Provider {
	var providers []*Provider
	for _, p := range self.rules.Providers {
		if p.URLPattern.MatchString(rawURL) {
			providers = append(providers, p)
		}
	}
	return providers
}

// decodeTarget percent-decodes a redirection target, which is sometimes
// encoded more than once. A plus sign stays itself, because only an encoded
// space becomes a space in a target URL.
func decodeTarget(s string) string {
	for range 4 {
		if strings.Contains(s, "://") {
			break
		}
		decoded, err := url.PathUnescape(s)
		if err != nil || decoded == s {
			break
		}
		s = decoded
	}
	return s
}

func stripParams(s string, providers []*Provider) string {
	s, fragment, hasFragment := strings.Cut(s, "#")
	base, query, hasQuery := strings.Cut(s, "?")

	tracking := func(name string) bool {
		decoded, err := url.QueryUnescape(name)
		if err != nil {
			decoded = name
		}
		for _, p := range providers {
			if matchName(p.Rules, name, decoded) ||
				matchName(p.ReferralMarketing, name, decoded) {
				return true
			}
		}
		return false
	}

	var b strings.Builder
	b.WriteString(base)
	if hasQuery {
		if q := filterParams(query, tracking); q != "" || query == "" {
			b.WriteByte('?')
			b.WriteString(q)
		}
	}
	if hasFragment {
		if f := filterParams(fragment, tracking); f != "" || fragment == "" {
			b.WriteByte('#')
			b.WriteString(f)
		}
	}
	return b.String()
}

func filterParams(s string, tracking func(name string) bool) string {
	if s == "" {
		return ""
	}

	params := strings.Split(s, "&")
	kept := params[:0]
	for _, param := range params {
		name, _, _ := strings.Cut(param, "=")
		if name != "" && tracking(name) {
			continue
		}
		kept = append(kept, param)
	}
	return strings.Join(kept, "&")
}

func matchName(rules []*regexp.Regexp, name, decoded string) bool {
	for _, re := range rules {
		if re.MatchString(name) || (decoded != name && re.MatchString(decoded)) {
			return true
		}
	}
	return false
}
