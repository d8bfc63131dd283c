package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/dsh2dsh/feedkit/internal/config"
	"github.com/dsh2dsh/feedkit/model"
	"github.com/dsh2dsh/feedkit/reader/date"
	"github.com/dsh2dsh/feedkit/reader/dom"
	"github.com/dsh2dsh/feedkit/reader/fetcher"
	"github.com/dsh2dsh/feedkit/reader/opml"
	"github.com/dsh2dsh/feedkit/reader/parser"
	"github.com/dsh2dsh/feedkit/reader/sanitizer"
	"github.com/dsh2dsh/feedkit/reader/scraper"
)

var (
	flagBaseURL   string
	flagFlat      bool
	flagReadable  bool
	flagSanitize  bool
	flagStripTags bool
	flagTruncate  int
)

type responseResult struct {
	Status      int         `json:"status"`
	Headers     http.Header `json:"headers,omitempty"`
	ContentType string      `json:"content_type,omitempty"`
	Encoding    string      `json:"encoding"`
	Body        string      `json:"body"`
}

type extractResult struct {
	*scraper.Page
	Readerable bool             `json:"readerable"`
	Article    *scraper.Article `json:"article,omitempty"`
}

type feedResult struct {
	Hash string `json:"hash"`
	*model.Feed
}

var responseCmd = cobra.Command{
	Use:   "response FILE",
	Short: "Parse raw HTTP response",
	Args:  cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}
		return writeJSON(cmd, newResponseResult(fetcher.ParseResponse(raw)))
	},
}

var feedCmd = cobra.Command{
	Use:   "feed FILE",
	Short: "Parse Atom, RSS, RDF or JSON feed",
	Args:  cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}

		feed, err := newFeedParser().Parse(string(b))
		if err != nil {
			return err
		}
		return writeJSON(cmd, newFeedResult(feed, flagSanitize))
	},
}

var hfeedCmd = cobra.Command{
	Use:   "hfeed FILE",
	Short: "Parse h-feed of HTML page",
	Args:  cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}

		feed, err := newFeedParser().ParseHFeed(string(b), flagBaseURL)
		if err != nil {
			return err
		}
		return writeJSON(cmd, newFeedResult(feed, flagSanitize))
	},
}

var opmlCmd = cobra.Command{
	Use:   "opml FILE",
	Short: "Parse OPML document",
	Args:  cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}

		outlines, err := opml.Parse(string(b))
		if err != nil {
			return err
		} else if flagFlat {
			outlines = opml.Flatten(outlines)
		}
		return writeJSON(cmd, outlines)
	},
}

var extractCmd = cobra.Command{
	Use:   "extract FILE",
	Short: "Extract metadata of HTML page",
	Args:  cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}

		t := dom.Parse(string(b))
		r := extractResult{
			Page:       extractPage(t, flagBaseURL),
			Readerable: scraper.Readerable(t),
		}
		if flagReadable {
			article, err := scraper.Readable(t, flagBaseURL)
			if err != nil {
				return err
			}
			r.Article = article
		}
		return writeJSON(cmd, &r)
	},
}

var sanitizeCmd = cobra.Command{
	Use:   "sanitize FILE",
	Short: "Sanitize HTML fragment",
	Args:  cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := readInput(cmd, args[0])
		if err != nil {
			return err
		} else if flagTruncate < 0 {
			return fmt.Errorf("invalid --truncate: %d", flagTruncate)
		}

		var s string
		if flagStripTags {
			s = sanitizer.StripTags(string(b))
		} else {
			s = sanitizer.Sanitize(string(b))
		}

		if flagTruncate > 0 {
			s = sanitizer.TruncateHTML(s, flagTruncate)
		}
		return writeJSON(cmd, struct {
			Content string `json:"content"`
		}{Content: s})
	},
}

func init() {
	hfeedCmd.Flags().StringVar(&flagBaseURL, "base", "",
		"URL of the page, used to resolve relative links")
	extractCmd.Flags().StringVar(&flagBaseURL, "base", "",
		"URL of the page, used to resolve feed links")
	extractCmd.Flags().BoolVar(&flagReadable, "readable", false,
		"Extract readable article too")

	feedCmd.Flags().BoolVar(&flagSanitize, "sanitize", false,
		"Sanitize HTML content of entries")
	hfeedCmd.Flags().BoolVar(&flagSanitize, "sanitize", false,
		"Sanitize HTML content of entries")

	opmlCmd.Flags().BoolVar(&flagFlat, "flat", false,
		"Print feed outlines only, without groups")

	sanitizeCmd.Flags().BoolVar(&flagStripTags, "strip", false,
		"Strip all tags, keeping text only")
	sanitizeCmd.Flags().IntVar(&flagTruncate, "truncate", 0,
		"Truncate text to this number of characters")
}

func newResponseResult(resp *fetcher.Response) *responseResult {
	return &responseResult{
		Status:      resp.Status,
		Headers:     resp.Headers(),
		ContentType: resp.ContentType(),
		Encoding:    resp.Encoding(),
		Body:        resp.UTF8Data(),
	}
}

func newFeedParser() *parser.Parser {
	return parser.New(parser.WithDateParser(
		date.New(date.WithLenient(config.Opts.DateLenient()))))
}

// newFeedResult returns feed with its hash. The hash is calculated before
// sanitizing, so it's the same for the same document.
func newFeedResult(feed *model.Feed, sanitize bool) *feedResult {
	r := &feedResult{Hash: feed.Hash(), Feed: feed}
	if sanitize {
		sanitizeEntries(feed)
	}
	return r
}

func sanitizeEntries(feed *model.Feed) {
	for _, entry := range feed.Entries {
		if entry.ContentType == model.ContentTypeHTML {
			entry.Content = sanitizer.Sanitize(entry.Content)
		}
	}
}

func extractPage(t *dom.Tree, pageURL string) *scraper.Page {
	page := scraper.Extract(t)
	if pageURL != "" {
		page.Feeds = scraper.ResolveFeeds(t, pageURL)
	}
	return page
}
