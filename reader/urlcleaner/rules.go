package urlcleaner

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sync"

	"go.yaml.in/yaml/v4"

	"github.com/dsh2dsh/feedkit/internal/logging"
)

//go:embed rules.yaml
var defaultRulesData []byte

var ErrInvalidRules = errors.New("invalid rules")

var defaultRules = sync.OnceValue(func() *Rules {
	r, err := LoadRules(context.Background(), bytes.NewReader(defaultRulesData))
	if err != nil {
		panic(err)
	}
	return r
})

// DefaultRules returns embedded rules. The returned value is shared and must
// not be modified.
func DefaultRules() *Rules { return defaultRules() }

// Rules is an ordered list of providers.
type Rules struct {
	Providers []*Provider
}

// Provider describes how to clean URLs of one site or of a group of sites.
type Provider struct {
	Name             string
	URLPattern       *regexp.Regexp
	CompleteProvider bool

	// Rules and ReferralMarketing match names of query or fragment
	// parameters.
	Rules             []*regexp.Regexp
	ReferralMarketing []*regexp.Regexp

	// RawRules, Redirections and Exceptions match the whole URL.
	RawRules     []*regexp.Regexp
	Redirections []*regexp.Regexp
	Exceptions   []*regexp.Regexp
}

type rulesDoc struct {
	Providers yaml.Node `yaml:"providers"`
}

type providerDoc struct {
	URLPattern        string   `yaml:"urlPattern"`
	CompleteProvider  bool     `yaml:"completeProvider"`
	Rules             []string `yaml:"rules"`
	ReferralMarketing []string `yaml:"referralMarketing"`
	RawRules          []string `yaml:"rawRules"`
	Redirections      []string `yaml:"redirections"`
	Exceptions        []string `yaml:"exceptions"`
}

// LoadRules reads rules in ClearURLs data format, JSON or YAML. Order of
// providers is preserved. Expressions Go can't compile are logged and
// skipped.
func LoadRules(ctx context.Context, r io.Reader) (*Rules, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reader/urlcleaner: read rules: %w", err)
	}

	var doc rulesDoc
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("reader/urlcleaner: %w: %w", ErrInvalidRules, err)
	} else if doc.Providers.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("reader/urlcleaner: %w: providers must be a mapping",
			ErrInvalidRules)
	}

	log := logging.FromContext(ctx)
	content := doc.Providers.Content
	rules := &Rules{Providers: make([]*Provider, 0, len(content)/2)}

	for i := 0; i+1 < len(content); i += 2 {
		name := content[i].Value
		var pd providerDoc
		if err := content[i+1].Decode(&pd); err != nil {
			return nil, fmt.Errorf("reader/urlcleaner: %w: provider %q: %w",
				ErrInvalidRules, name, err)
		}

		p := pd.compile(log.With(slog.String("provider", name)))
		if p == nil {
			continue
		}
		p.Name = name
		rules.Providers = append(rules.Providers, p)
	}
	return rules, nil
}

func (self *providerDoc) compile(log *slog.Logger) *Provider {
	urlPattern, err := regexp.Compile("(?i)" + self.URLPattern)
	if err != nil || self.URLPattern == "" {
		log.Warn("reader/urlcleaner: skip provider with invalid urlPattern",
			slog.String("urlPattern", self.URLPattern), slog.Any("error", err))
		return nil
	}

	return &Provider{
		URLPattern:        urlPattern,
		CompleteProvider:  self.CompleteProvider,
		Rules:             compileAll(log, self.Rules, paramExpr),
		ReferralMarketing: compileAll(log, self.ReferralMarketing, paramExpr),
		RawRules:          compileAll(log, self.RawRules, urlExpr),
		Redirections:      compileAll(log, self.Redirections, urlExpr),
		Exceptions:        compileAll(log, self.Exceptions, urlExpr),
	}
}

func paramExpr(s string) string { return "(?i)^(?:" + s + ")$" }

func urlExpr(s string) string { return "(?i)" + s }

func compileAll(log *slog.Logger, exprs []string, wrap func(string) string,
) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(exprs))
	for _, s := range exprs {
		re, err := regexp.Compile(wrap(s))
		if err != nil {
			log.Warn("reader/urlcleaner: skip invalid expression",
				slog.String("expr", s), slog.Any("error", err))
			continue
		}
		compiled = append(compiled, re)
	}
	return compiled
}
