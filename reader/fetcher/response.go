// SPDX-FileCopyrightText: Copyright The Miniflux Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package fetcher // import "github.com/dsh2dsh/feedkit/reader/fetcher"

import (
	"bytes"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dsh2dsh/feedkit/reader/encoding"
)

// Response is a parsed raw HTTP response.
type Response struct {
	// Status is 0 if the status line is absent or can't be parsed.
	Status int
	// Data is the response body as is.
	Data []byte

	headers map[string]string
	names   []string
}

// ParseResponse parses raw bytes of HTTP response: the status line, headers
// and the body, separated from headers by an empty line. It never fails.
func ParseResponse(raw []byte) *Response {
	r := &Response{headers: make(map[string]string)}
	head, body := splitHead(raw)
	r.Data = body

	lines := strings.Split(string(head), "\n")
	if len(lines) > 0 {
		if status, ok := parseStatusLine(lines[0]); ok {
			r.Status = status
			lines = lines[1:]
		}
	}

	for _, line := range lines {
		name, value, ok := strings.Cut(strings.TrimRight(line, "\r"), ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			continue
		}
		r.addHeader(name, strings.TrimSpace(value))
	}
	return r
}

// splitHead splits raw at the first empty line. Without an empty line the
// whole raw is the header block.
func splitHead(raw []byte) (head, body []byte) {
	crlf := bytes.Index(raw, []byte("\r\n\r\n"))
	lf := bytes.Index(raw, []byte("\n\n"))

	switch {
	case crlf >= 0 && (lf < 0 || crlf < lf):
		return raw[:crlf], raw[crlf+4:]
	case lf >= 0:
		return raw[:lf], raw[lf+2:]
	}
	return raw, []byte{}
}

func parseStatusLine(line string) (int, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "HTTP/") {
		return 0, false
	}

	if len(fields) > 1 {
		if status, err := strconv.Atoi(fields[1]); err == nil {
			return status, true
		}
	}
	return 0, true
}

func (self *Response) addHeader(name, value string) {
	key := strings.ToLower(name)
	if prev, ok := self.headers[key]; ok {
		self.headers[key] = prev + ", " + value
		return
	}
	self.headers[key] = value
	self.names = append(self.names, name)
}

// Header returns value of header name, case-insensitively, or def if there
// is no such header.
func (self *Response) Header(name, def string) string {
	if v, ok := self.headers[strings.ToLower(name)]; ok {
		return v
	}
	return def
}

// Headers returns all headers using their names as first seen.
func (self *Response) Headers() http.Header {
	h := make(http.Header, len(self.names))
	for _, name := range self.names {
		h[name] = []string{self.headers[strings.ToLower(name)]}
	}
	return h
}

func (self *Response) ContentType() string {
	return self.Header("Content-Type", "")
}

// IsHTML reports whether the response looks like an HTML document.
func (self *Response) IsHTML() bool {
	if strings.Contains(strings.ToLower(self.ContentType()), "html") {
		return true
	}

	head := bytes.ToLower(self.Data[:min(len(self.Data), 1024)])
	return bytes.Contains(head, []byte("<html")) ||
		bytes.Contains(head, []byte("<!doctype html"))
}

// IsXML reports whether the response starts with an XML declaration.
func (self *Response) IsXML() bool {
	data := bytes.TrimLeft(bytes.TrimPrefix(self.Data, []byte("\xef\xbb\xbf")),
		" \t\r\n")
	return bytes.HasPrefix(data, []byte("<?xml"))
}

// Encoding returns lower-cased name of the body's character encoding: the
// charset of Content-Type, then a meta tag of HTML or the XML declaration,
// then "utf-8".
func (self *Response) Encoding() string {
	if enc := encoding.FromContentType(self.ContentType()); enc != "" {
		return enc
	}

	if self.IsHTML() {
		if enc := encoding.FromHTMLMeta(self.Data); enc != "" {
			return enc
		}
	}

	if self.IsXML() {
		if enc := encoding.FromXMLDeclaration(self.Data); enc != "" {
			return enc
		}
	}
	return encoding.DefaultCharset
}

// UTF8Data returns the body converted to UTF-8. Bytes that can't be converted
// are replaced by '?'.
func (self *Response) UTF8Data() string {
	return encoding.ToUTF8(self.Data, self.Encoding())
}

// RetryDelay returns delay requested by Retry-After header.
func (self *Response) RetryDelay() time.Duration {
	retryAfter := self.Header("Retry-After", "")
	if retryAfter == "" {
		return 0
	}

	// First, try to parse as an integer (number of seconds)
	if seconds, err := strconv.Atoi(retryAfter); err == nil {
		return time.Duration(max(0, seconds)) * time.Second
	}

	// If not an integer, try to parse as an HTTP-date
	t, err := time.Parse(time.RFC1123, retryAfter)
	if err != nil || t.Before(time.Now()) {
		return 0
	}
	return time.Until(t)
}

// MaxAge returns max-age of Cache-Control header rounded up to minutes.
func (self *Response) MaxAge() time.Duration {
	cacheControl := self.Header("Cache-Control", "")
	for directive := range strings.SplitSeq(cacheControl, ",") {
		directive = strings.TrimSpace(directive)
		if s, ok := strings.CutPrefix(directive, "max-age="); ok {
			if maxAge, err := strconv.Atoi(s); err == nil {
				minutes := math.Ceil(float64(maxAge) / 60)
				return time.Duration(minutes) * time.Minute
			}
		}
	}
	return 0
}
