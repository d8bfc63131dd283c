package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dsh2dsh/feedkit/internal/config"
	"github.com/dsh2dsh/feedkit/internal/logging"
	"github.com/dsh2dsh/feedkit/internal/metric"
	"github.com/dsh2dsh/feedkit/reader/cache"
	"github.com/dsh2dsh/feedkit/reader/dom"
	"github.com/dsh2dsh/feedkit/reader/fetcher"
	"github.com/dsh2dsh/feedkit/reader/parser"
	"github.com/dsh2dsh/feedkit/reader/scraper"
	"github.com/dsh2dsh/feedkit/reader/urlcleaner"
	"github.com/dsh2dsh/feedkit/urllib"
)

const formatHTML = "html"

var (
	ErrUnusableURL = errors.New("unusable URL")
	ErrBlockedURL  = errors.New("URL blocked by tracking rules")
)

var (
	flagNoCache     bool
	flagCookie      string
	flagHeaders     []string
	flagInsecure    bool
	flagNoHTTP2     bool
	flagNoRedirects bool
	flagPassword    string
	flagUsername    string
)

type fetchResult struct {
	URL       string `json:"url"`
	Canonical string `json:"canonical,omitempty"`
	Cached    bool   `json:"cached"`
	// Revalidated is true if cached content was confirmed by a conditional
	// request.
	Revalidated bool          `json:"revalidated,omitempty"`
	Status      int           `json:"status,omitempty"`
	Feed        *feedResult   `json:"feed,omitempty"`
	Page        *scraper.Page `json:"page,omitempty"`
	Error       string        `json:"error,omitempty"`
}

var fetchCmd = cobra.Command{
	Use:   "fetch URL...",
	Short: "Fetch and parse feeds and web pages",
	Args:  cobra.MinimumNArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		return withMetrics(cmd, func(reg prometheus.Registerer) error {
			f, err := newURLFetcher(cmd.Context(), reg)
			if err != nil {
				return err
			}

			results := f.FetchAll(cmd.Context(), args)
			if err := writeJSON(cmd, results); err != nil {
				return err
			}
			return failedResults(results)
		})
	},
}

func init() {
	fetchCmd.Flags().BoolVar(&flagNoCache, "no-cache", false,
		"Don't read or write content cache")
	fetchCmd.Flags().BoolVar(&flagSanitize, "sanitize", false,
		"Sanitize HTML content of entries")

	fetchCmd.Flags().StringVar(&flagUsername, "user", "",
		"Username for basic authentication")
	fetchCmd.Flags().StringVar(&flagPassword, "password", "",
		"Password for basic authentication")
	fetchCmd.Flags().StringVar(&flagCookie, "cookie", "",
		"Cookie header of requests")
	fetchCmd.Flags().StringArrayVarP(&flagHeaders, "header", "H", nil,
		`Extra header of requests, like "Accept-Language: en"`)
	fetchCmd.Flags().BoolVar(&flagInsecure, "insecure", false,
		"Ignore TLS errors")
	fetchCmd.Flags().BoolVar(&flagNoHTTP2, "no-http2", false,
		"Disable HTTP/2")
	fetchCmd.Flags().BoolVar(&flagNoRedirects, "no-redirects", false,
		"Don't follow redirects")
}

type urlFetcher struct {
	cleaner  *urlcleaner.Cleaner
	cache    *cache.Cache
	builder  *fetcher.RequestBuilder
	parser   *parser.Parser
	workers  int
	maxAge   time.Duration
	sanitize bool
}

func newURLFetcher(ctx context.Context, reg prometheus.Registerer,
) (*urlFetcher, error) {
	cleaner, err := newCleaner(ctx)
	if err != nil {
		return nil, err
	}

	limiter := fetcher.NewHostLimiter(int(config.Opts.ConnectionsPerServer()),
		config.Opts.RateLimitPerServer()).
		WithLimits(func(hostname string) (int64, float64) {
			limits := config.Opts.FindHostLimits(hostname)
			return limits.Connections, limits.Rate
		})

	builder, err := newRequestBuilder(limiter)
	if err != nil {
		return nil, err
	}

	f := &urlFetcher{
		cleaner:  cleaner,
		builder:  builder,
		parser:   newFeedParser(),
		workers:  config.Opts.FetchWorkers(),
		maxAge:   config.Opts.CacheMaxAge(),
		sanitize: flagSanitize,
	}

	if !flagNoCache {
		c, err := openCache(reg)
		if err != nil {
			return nil, err
		}
		f.cache = c
	}
	return f, nil
}

func newRequestBuilder(limiter *fetcher.HostLimiter,
) (*fetcher.RequestBuilder, error) {
	builder := fetcher.NewRequestBuilder().
		WithUserAgent(config.Opts.HTTPClientUserAgent(),
			fetcher.DefaultUserAgent).
		WithTimeout(config.Opts.HTTPClientTimeout()).
		WithMaxBodySize(config.Opts.HTTPClientMaxBodySize()).
		WithLimiter(limiter).
		WithUsernameAndPassword(flagUsername, flagPassword).
		WithCookie(flagCookie).
		IgnoreTLSErrors(flagInsecure).
		DisableHTTP2(flagNoHTTP2)

	if flagNoRedirects {
		builder.WithoutRedirects()
	}

	for _, h := range flagHeaders {
		key, value, ok := strings.Cut(h, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid header %q", h)
		}
		builder.WithHeader(key, strings.TrimSpace(value))
	}
	return builder, nil
}

// FetchAll fetches urls in parallel and returns results in the same order.
func (self *urlFetcher) FetchAll(ctx context.Context, urls []string,
) []*fetchResult {
	results := make([]*fetchResult, len(urls))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(self.workers)

	for i, u := range urls {
		g.Go(func() error {
			results[i] = self.Fetch(ctx, u)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Fetch canonicalizes rawURL, removes tracking parameters from it, downloads
// it or gets it from the cache and parses downloaded content as a feed or a
// web page.
func (self *urlFetcher) Fetch(ctx context.Context, rawURL string,
) *fetchResult {
	r := &fetchResult{URL: rawURL}
	if err := self.fetch(ctx, r); err != nil {
		logging.FromContext(ctx).Warn("unable fetch URL",
			slog.String("url", rawURL), slog.Any("error", err))
		r.Error = err.Error()
	}
	return r
}

func (self *urlFetcher) fetch(ctx context.Context, r *fetchResult) error {
	canonical := urllib.Sanitize(r.URL)
	if canonical == "" {
		return ErrUnusableURL
	}

	cleaned := self.cleaner.Clear(canonical)
	if cleaned == "" {
		return ErrBlockedURL
	}
	r.Canonical = cleaned

	ctx = logging.With(ctx, slog.String("url", cleaned))
	raw, err := self.download(ctx, r)
	if err != nil {
		return err
	}

	resp := fetcher.ParseResponse(raw)
	r.Status = resp.Status
	if err := fetcher.StatusError(urllib.Domain(cleaned), resp); err != nil {
		return err
	}

	if !r.Cached && self.cache != nil {
		self.cache.Save(cache.Hash(cleaned), raw)
	}
	return self.parse(ctx, r, resp.UTF8Data())
}

// download returns fresh content of r.Canonical from the cache or downloads
// it. Stale cached content is revalidated by a conditional request, using its
// ETag and Last-Modified headers.
func (self *urlFetcher) download(ctx context.Context, r *fetchResult,
) ([]byte, error) {
	log := logging.FromContext(ctx)
	key := cache.Hash(r.Canonical)

	var stale []byte
	if self.cache != nil {
		if raw := self.cache.Get(key, self.maxAge); raw != nil {
			log.Debug("got URL from cache", slog.String("key", key))
			r.Cached = true
			return raw, nil
		}
		stale = self.cache.Stale(key)
	}

	var opts []fetcher.RequestOption
	if stale != nil {
		resp := fetcher.ParseResponse(stale)
		opts = append(opts,
			fetcher.IfNoneMatch(resp.Header("ETag", "")),
			fetcher.IfModifiedSince(resp.Header("Last-Modified", "")))
	}

	start := time.Now()
	raw, err := self.builder.Fetch(ctx, r.Canonical, opts...)
	status := "error"
	if err == nil {
		status = strconv.Itoa(fetcher.ParseResponse(raw).Status)
	}
	metric.FetchDuration.WithLabelValues(status).
		Observe(time.Since(start).Seconds())

	if err != nil {
		return nil, fmt.Errorf("fetch %q: %w", r.Canonical, err)
	} else if stale != nil && status == strconv.Itoa(http.StatusNotModified) {
		log.Debug("cached URL not modified", slog.String("key", key))
		self.cache.Save(key, stale)
		r.Cached, r.Revalidated = true, true
		return stale, nil
	}

	log.Debug("fetched URL", slog.Int("size", len(raw)))
	return raw, nil
}

func (self *urlFetcher) parse(ctx context.Context, r *fetchResult,
	body string,
) error {
	format := string(parser.DetectFormat(body))
	if format == "" {
		format = formatHTML
	}
	start := time.Now()
	defer func() {
		metric.ParseDuration.WithLabelValues(format).
			Observe(time.Since(start).Seconds())
	}()

	if format != formatHTML {
		feed, err := self.parser.Parse(body)
		if err != nil {
			return err
		}
		r.Feed = newFeedResult(feed, self.sanitize)
		return nil
	}

	t := dom.Parse(body)
	r.Page = extractPage(t, r.Canonical)
	if t.Select("//*["+dom.HasClass("h-feed")+"]") == nil {
		return nil
	}

	feed, err := self.parser.ParseHFeed(body, r.Canonical)
	if err != nil {
		logging.FromContext(ctx).Debug("unable parse h-feed",
			slog.Any("error", err))
		return nil
	}
	r.Feed = newFeedResult(feed, self.sanitize)
	return nil
}

func failedResults(results []*fetchResult) error {
	var failed int
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d URLs failed", failed, len(results))
	}
	return nil
}
