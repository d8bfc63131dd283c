package scraper

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"

	"github.com/dsh2dsh/feedkit/reader/dom"
)

var excessiveLinesRe = regexp.MustCompile(`\n{4,}`)

func newConverter() *md.Converter {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return converter
}

// Markdown renders the main part of t as Markdown.
func Markdown(t *dom.Tree) string {
	if body := contentNode(t); body != nil {
		return markdown(body)
	}
	return ""
}

func markdown(body *dom.Tree) string {
	s, err := newConverter().ConvertString(body.InnerHTML())
	if err != nil {
		return ""
	}
	return cleanMarkdown(s)
}

func cleanMarkdown(content string) string {
	content = excessiveLinesRe.ReplaceAllString(content, "\n\n\n")
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
