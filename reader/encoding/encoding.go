// SPDX-FileCopyrightText: Copyright The Miniflux Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package encoding // import "github.com/dsh2dsh/feedkit/reader/encoding"

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const DefaultCharset = "utf-8"

var (
	contentTypeCharsetRe = regexp.MustCompile(
		`(?i)charset\s*=\s*["']?([^"';\s]+)`)
	metaCharsetRe = regexp.MustCompile(
		`(?i)<meta\s[^>]*charset\s*=\s*["']?\s*([a-z0-9_:.()-]+)`)
	xmlEncodingRe = regexp.MustCompile(
		`(?i)^\s*<\?xml\s[^>]*\bencoding\s*=\s*["']([a-z0-9_:.-]+)["']`)

	utf8BOM = []byte("\xef\xbb\xbf")
)

// NewCharsetReader returns an io.Reader that converts the content of r to
// UTF-8.
//
// Only the first 1024 bytes are used to detect the encoding when
// contentType doesn't specify it.
func NewCharsetReader(r io.Reader, contentType string) (io.Reader, error) {
	reader, err := charset.NewReader(r, contentType)
	switch {
	case errors.Is(err, io.EOF):
		return r, nil
	case err != nil:
		return nil, fmt.Errorf(
			"reader/encoding: new charset reader with contentType=%q: %w",
			contentType, err)
	}
	return reader, nil
}

// NewReaderLabel is a charset reader for XML decoders. Unknown labels are
// read as UTF-8.
func NewReaderLabel(label string, input io.Reader) (io.Reader, error) {
	r, err := charset.NewReaderLabel(label, input)
	if err != nil {
		return input, nil
	}
	return r, nil
}

// FromContentType returns lower-cased charset parameter of a Content-Type
// header value or an empty string.
func FromContentType(contentType string) string {
	if contentType == "" {
		return ""
	}

	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		return strings.ToLower(strings.TrimSpace(params["charset"]))
	}

	if m := contentTypeCharsetRe.FindStringSubmatch(contentType); m != nil {
		return strings.ToLower(m[1])
	}
	return ""
}

// FromHTMLMeta returns charset declared by <meta charset> or <meta
// http-equiv="Content-Type"> tag.
func FromHTMLMeta(b []byte) string {
	if m := metaCharsetRe.FindSubmatch(b); m != nil {
		return strings.ToLower(string(m[1]))
	}
	return ""
}

// FromXMLDeclaration returns encoding attribute of the XML declaration.
func FromXMLDeclaration(b []byte) string {
	b = bytes.TrimPrefix(b, utf8BOM)
	if m := xmlEncodingRe.FindSubmatch(b); m != nil {
		return strings.ToLower(string(m[1]))
	}
	return ""
}

// ToUTF8 converts b from encoding named by label to UTF-8. Bytes which can't
// be converted are replaced by '?'.
func ToUTF8(b []byte, label string) string {
	enc, name := charset.Lookup(label)
	if enc == nil || name == DefaultCharset {
		return replaceInvalid(bytes.TrimPrefix(b, utf8BOM))
	}

	s, _, err := transform.Bytes(enc.NewDecoder(), b)
	if err != nil {
		return replaceInvalid(b)
	}
	return strings.ReplaceAll(string(s), "\uFFFD", "?")
}

// replaceInvalid returns b as a string with every byte of invalid UTF-8
// replaced by '?'.
func replaceInvalid(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}

	var sb strings.Builder
	sb.Grow(len(b))
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size == 1 {
			sb.WriteByte('?')
		} else {
			sb.Write(b[:size])
		}
		b = b[size:]
	}
	return sb.String()
}

// Normalize returns s as valid NFC normalized UTF-8.
func Normalize(s string) string {
	return norm.NFC.String(strings.ToValidUTF8(s, "\uFFFD"))
}
