package scraper

import (
	"fmt"
	"net/url"
	"strings"

	"codeberg.org/readeck/go-readability/v2"
	shiori "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"github.com/dsh2dsh/feedkit/reader/dom"
)

// Article is the readable part of a web page.
type Article struct {
	Title    string `json:"title"`
	Byline   string `json:"byline,omitempty"`
	SiteName string `json:"site_name,omitempty"`
	Excerpt  string `json:"excerpt,omitempty"`
	Content  string `json:"content"`
	Text     string `json:"text"`
}

// Readable extracts the main article of t using Mozilla's Readability
// algorithm. Relative links of the article are resolved against pageURL. t
// isn't modified.
func Readable(t *dom.Tree, pageURL string) (*Article, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("reader/scraper: parse page URL %q: %w", pageURL,
			err)
	}

	article, err := readability.FromReader(strings.NewReader(t.HTML()), u)
	if err != nil {
		return nil, fmt.Errorf("reader/scraper: extracting readable content: %w",
			err)
	}

	a := &Article{
		Title:    strings.TrimSpace(article.Title()),
		Byline:   strings.TrimSpace(article.Byline()),
		SiteName: metaContent(t, "og:site_name"),
		Excerpt:  strings.TrimSpace(article.Excerpt()),
	}
	if article.Node == nil {
		return a, nil
	}

	var b strings.Builder
	if err := html.Render(&b, article.Node); err != nil {
		return nil, fmt.Errorf("reader/scraper: render readable content: %w", err)
	}
	a.Content = b.String()

	b.Reset()
	if err := article.RenderText(&b); err != nil {
		return nil, fmt.Errorf("reader/scraper: render readable text: %w", err)
	}
	a.Text = collapseSpace(b.String())
	return a, nil
}

// Readerable reports whether t looks like a page with an article, which
// [Readable] is able to extract. t isn't modified.
func Readerable(t *dom.Tree) bool {
	for _, n := range t.Clone().Nodes() {
		if shiori.CheckDocument(n) {
			return true
		}
	}
	return false
}

func metaContent(t *dom.Tree, property string) string {
	found := t.Select("//meta[@property='" + property + "']")
	if found == nil {
		return ""
	}
	return strings.TrimSpace(found.Attr("content"))
}
