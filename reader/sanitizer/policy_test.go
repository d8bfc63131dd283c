package sanitizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripTags(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{
			name:  "plain text",
			title: "Foo bar baz",
			want:  "Foo bar baz",
		},
		{
			name:  "with html",
			title: "Foo <string>bar</strong> baz",
			want:  "Foo bar baz",
		},
		{
			name:  "broken html",
			title: "Foo <string>bar baz",
			want:  "Foo bar baz",
		},
		{
			name:  "with spaces",
			title: " Foo bar <b>baz</b>",
			want:  "Foo bar baz",
		},
		{
			name:  "with entities",
			title: "&amp;Foo &lt; bar &gt; baz",
			want:  "&amp;Foo &lt; bar &gt; baz",
		},
		{name: "empty", title: "   ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripTags(tt.title))
		})
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		opts  []Option
	}{
		{
			name:  "valid input",
			input: `<p>This is a <strong>text</strong> with an image: <img src="http://example.org/" alt="Test">.</p>`,
			want:  `<p>This is a <strong>text</strong> with an image: <img src="http://example.org/" alt="Test">.</p>`,
		},
		{
			name:  "with html and body",
			input: `<html><head></head><body><p>Text</p></body></html>`,
			want:  `<p>Text</p>`,
		},
		{
			name:  "plain text",
			input: `Just "plain" text`,
			want:  `Just "plain" text`,
		},
		{
			name:  "text outside tags",
			input: `before <b>bold</b> after`,
			want:  `before <b>bold</b> after`,
		},
		{
			name:  "script removed with content",
			input: `<p>Hello <script>alert("x")</script>world</p>`,
			want:  `<p>Hello world</p>`,
		},
		{
			name:  "disallowed element removed with descendants",
			input: `<div>keep<form><p>drop</p><input name="x"></form></div>`,
			want:  `<div>keep</div>`,
		},
		{
			name:  "comments removed",
			input: `<p>a<!-- comment -->b</p>`,
			want:  `<p>ab</p>`,
		},
		{
			name:  "non ascii",
			input: `<p>café — ok</p>`,
			want:  `<p>caf&#233; &#8212; ok</p>`,
		},
		{
			name:  "non ascii attribute",
			input: `<img src="/i.png" alt="é">`,
			want:  `<img src="/i.png" alt="&#233;">`,
		},
		{
			name:  "entities",
			input: `<p>a &amp; b &lt; c &eacute;</p>`,
			want:  `<p>a &amp; b &lt; c &#233;</p>`,
		},
		{
			name:  "javascript url",
			input: `<a href="javascript:alert(1)">link</a>`,
			want:  `link`,
		},
		{
			name:  "allowed urls",
			input: `<a href="https://example.org/">a</a><a href="mailto:a@example.org">b</a><a href="/rel">c</a>`,
			want:  `<a href="https://example.org/">a</a><a href="mailto:a@example.org">b</a><a href="/rel">c</a>`,
		},
		{
			name:  "disallowed attributes",
			input: `<p onclick="x()" style="color:red" class="c">text</p>`,
			want:  `<p>text</p>`,
		},
		{
			name:  "incorrect width",
			input: `<img src="https://example.org/image.png" width="10px" height="20">`,
			want:  `<img src="https://example.org/image.png" height="20">`,
		},
		{
			name:  "pixel tracker",
			input: `<p>text<img src="https://example.org/pixel.gif" width="1" height="1"></p>`,
			want:  `<p>text</p>`,
		},
		{
			name:  "blocked element keeps children",
			input: `<div><p>one</p><span>two</span></div>`,
			want:  `<p>one</p>two`,
			opts:  []Option{WithBlockedElements("div", "span")},
		},
		{
			name:  "blocked inside disallowed",
			input: `<form><span>drop</span></form><span>keep</span>`,
			want:  `keep`,
			opts:  []Option{WithBlockedElements("span")},
		},
		{
			name:  "custom allowed elements",
			input: `<p>para</p><b>bold</b><i>italic</i>`,
			want:  `<b>bold</b>`,
			opts:  []Option{WithAllowedElements("b")},
		},
		{
			name:  "custom attributes",
			input: `<p title="t" lang="en">text</p>`,
			want:  `<p title="t">text</p>`,
			opts:  []Option{WithAllowedAttributes("p", "title")},
		},
		{
			name:  "blank",
			input: "  ",
			want:  "  ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.input, tt.opts...))
		})
	}
}

func TestSanitize_idempotent(t *testing.T) {
	input := `<div><p>Ça va? <a href="/x?a=1&amp;b=2">lien</a></p><script>x</script></div>`
	once := Sanitize(input)
	assert.Equal(t, once, Sanitize(once))
}

func TestTruncateHTML(t *testing.T) {
	tests := []struct {
		name  string
		input string
		max   int
		want  string
	}{
		{name: "short", input: "<p>Hello   world</p>", max: 20, want: "Hello world"},
		{name: "truncated", input: "<p>Hello world</p>", max: 5, want: "Hello…"},
		{name: "unicode", input: "<b>привет мир</b>", max: 6, want: "привет…"},
		{name: "entities", input: "a &amp; b", max: 10, want: "a & b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TruncateHTML(tt.input, tt.max))
		})
	}
}

func BenchmarkSanitize(b *testing.B) {
	input := strings.Repeat(
		`<div><p>Text with <a href="https://example.org/">a link</a> and <img src="/i.png" alt="é"></p><script>x</script></div>`,
		100)
	b.ReportAllocs()
	for b.Loop() {
		Sanitize(input)
	}
}
