package sanitizer

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

var voidElements = map[string]struct{}{
	"area": {}, "base": {}, "br": {}, "col": {}, "embed": {}, "hr": {},
	"img": {}, "input": {}, "link": {}, "meta": {}, "source": {}, "track": {},
	"wbr": {},
}

var rawTextElements = map[string]struct{}{
	"iframe": {}, "noembed": {}, "noframes": {}, "noscript": {},
	"plaintext": {}, "script": {}, "style": {}, "xmp": {},
}

// writeNode writes n like html.Render does, but escapes only what must be
// escaped and writes every non-ASCII character as a numeric character
// reference.
func writeNode(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		writeEscaped(b, n.Data, false)
		return
	case html.ElementNode:
	default:
		return
	}

	b.WriteByte('<')
	b.WriteString(n.Data)
	for _, attr := range n.Attr {
		b.WriteByte(' ')
		b.WriteString(attr.Key)
		b.WriteString(`="`)
		writeEscaped(b, attr.Val, true)
		b.WriteByte('"')
	}
	b.WriteByte('>')

	if _, ok := voidElements[n.Data]; ok {
		return
	}

	_, raw := rawTextElements[n.Data]
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if raw && child.Type == html.TextNode {
			b.WriteString(child.Data)
		} else {
			writeNode(b, child)
		}
	}

	b.WriteString("</")
	b.WriteString(n.Data)
	b.WriteByte('>')
}

func writeEscaped(b *strings.Builder, s string, attr bool) {
	for _, r := range s {
		switch {
		case r == '&':
			b.WriteString("&amp;")
		case r == '<':
			b.WriteString("&lt;")
		case r == '>':
			b.WriteString("&gt;")
		case r == '"' && attr:
			b.WriteString("&#34;")
		case r > 0x7f:
			b.WriteString("&#")
			b.WriteString(strconv.Itoa(int(r)))
			b.WriteByte(';')
		default:
			b.WriteRune(r)
		}
	}
}
