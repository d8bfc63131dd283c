// SPDX-FileCopyrightText: Copyright The Miniflux Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package fetcher // import "github.com/dsh2dsh/feedkit/reader/fetcher"

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		status  int
		headers map[string]string
		body    string
	}{
		{
			name:   "crlf",
			raw:    "HTTP/1.1 200 OK\r\nContent-Type: text/html\r\nX-Foo: bar\r\n\r\n<html></html>",
			status: 200,
			headers: map[string]string{
				"content-type": "text/html",
				"X-FOO":        "bar",
			},
			body: "<html></html>",
		},
		{
			name:    "lf",
			raw:     "HTTP/1.0 404 Not Found\nServer: test\n\nnot found",
			status:  404,
			headers: map[string]string{"server": "test"},
			body:    "not found",
		},
		{
			name:    "no terminator",
			raw:     "HTTP/1.1 204 No Content\r\nServer: test",
			status:  204,
			headers: map[string]string{"server": "test"},
			body:    "",
		},
		{
			name:    "no status line",
			raw:     "Content-Type: text/plain\r\n\r\nbody",
			status:  0,
			headers: map[string]string{"content-type": "text/plain"},
			body:    "body",
		},
		{
			name:   "repeated headers",
			raw:    "HTTP/1.1 200 OK\r\nSet-Cookie: a=1\r\nset-cookie: b=2\r\n\r\n",
			status: 200,
			headers: map[string]string{
				"Set-Cookie": "a=1, b=2",
			},
		},
		{
			name:    "invalid status",
			raw:     "HTTP/1.1 abc OK\r\nServer: test\r\n\r\nbody",
			status:  0,
			headers: map[string]string{"server": "test"},
			body:    "body",
		},
		{
			name:    "malformed header lines",
			raw:     "HTTP/1.1 200 OK\r\ngarbage\r\n: empty\r\nX-Ok: yes\r\n\r\n",
			status:  200,
			headers: map[string]string{"x-ok": "yes"},
		},
		{
			name:   "body with empty line",
			raw:    "HTTP/1.1 200 OK\r\n\r\nline1\r\n\r\nline2",
			status: 200,
			body:   "line1\r\n\r\nline2",
		},
		{
			name: "empty",
			raw:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ParseResponse([]byte(tt.raw))
			require.NotNil(t, r)
			assert.Equal(t, tt.status, r.Status)
			assert.Equal(t, tt.body, string(r.Data))
			for name, value := range tt.headers {
				assert.Equal(t, value, r.Header(name, ""), name)
			}
			assert.Len(t, r.Headers(), len(tt.headers))
		})
	}
}

func TestResponse_Header_default(t *testing.T) {
	r := ParseResponse([]byte("HTTP/1.1 200 OK\r\n\r\n"))
	assert.Equal(t, "def", r.Header("X-Missing", "def"))
}

func TestResponse_Encoding(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		html bool
		xml  bool
	}{
		{
			name: "content type",
			raw:  "HTTP/1.1 200 OK\r\nContent-Type: text/html; charset=ISO-8859-1\r\n\r\n<html>",
			want: "iso-8859-1",
			html: true,
		},
		{
			name: "html meta",
			raw:  "HTTP/1.1 200 OK\r\nContent-Type: text/html\r\n\r\n<html><head><meta charset=\"windows-1251\"></head></html>",
			want: "windows-1251",
			html: true,
		},
		{
			name: "html meta http-equiv",
			raw:  "HTTP/1.1 200 OK\r\n\r\n<!DOCTYPE html><html><head><meta http-equiv=\"Content-Type\" content=\"text/html; charset=koi8-r\"></head></html>",
			want: "koi8-r",
			html: true,
		},
		{
			name: "xml declaration",
			raw:  "HTTP/1.1 200 OK\r\nContent-Type: application/xml\r\n\r\n<?xml version=\"1.0\" encoding=\"ISO-8859-2\"?><rss/>",
			want: "iso-8859-2",
			xml:  true,
		},
		{
			name: "default",
			raw:  "HTTP/1.1 200 OK\r\nContent-Type: application/json\r\n\r\n{}",
			want: "utf-8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ParseResponse([]byte(tt.raw))
			assert.Equal(t, tt.want, r.Encoding())
			assert.Equal(t, tt.html, r.IsHTML())
			assert.Equal(t, tt.xml, r.IsXML())
		})
	}
}

func TestResponse_UTF8Data(t *testing.T) {
	raw := append([]byte(
		"HTTP/1.1 200 OK\r\nContent-Type: text/plain; charset=iso-8859-1\r\n\r\n"),
		'c', 'a', 'f', 0xe9)
	r := ParseResponse(raw)
	assert.Equal(t, "café", r.UTF8Data())

	r = ParseResponse([]byte("HTTP/1.1 200 OK\r\n\r\nab\xffc"))
	assert.Equal(t, "ab?c", r.UTF8Data())
}

func TestResponse_RetryDelay(t *testing.T) {
	r := ParseResponse([]byte("HTTP/1.1 429 Too Many Requests\r\nRetry-After: 30\r\n\r\n"))
	assert.Equal(t, 30*time.Second, r.RetryDelay())

	r = ParseResponse([]byte("HTTP/1.1 429 Too Many Requests\r\nRetry-After: garbage\r\n\r\n"))
	assert.Zero(t, r.RetryDelay())

	future := time.Now().Add(time.Hour).UTC().Format(time.RFC1123)
	r = ParseResponse([]byte("HTTP/1.1 429 Too Many Requests\r\nRetry-After: " +
		future + "\r\n\r\n"))
	assert.InDelta(t, time.Hour.Seconds(), r.RetryDelay().Seconds(), 2)
}

func TestResponse_MaxAge(t *testing.T) {
	r := ParseResponse([]byte("HTTP/1.1 200 OK\r\nCache-Control: public, max-age=61\r\n\r\n"))
	assert.Equal(t, 2*time.Minute, r.MaxAge())

	r = ParseResponse([]byte("HTTP/1.1 200 OK\r\n\r\n"))
	assert.Zero(t, r.MaxAge())
}

func TestStatusError(t *testing.T) {
	r := ParseResponse([]byte("HTTP/1.1 200 OK\r\n\r\n"))
	require.NoError(t, StatusError("example.org", r))

	r = ParseResponse([]byte("HTTP/1.1 500 Internal Server Error\r\n\r\n"))
	require.Error(t, StatusError("example.org", r))

	r = ParseResponse([]byte("HTTP/1.1 429 Too Many Requests\r\nRetry-After: 60\r\n\r\n"))
	err := StatusError("example.org", r)
	var tooMany *ErrTooManyRequests
	require.ErrorAs(t, err, &tooMany)
	assert.WithinDuration(t, time.Now().Add(time.Minute), tooMany.RetryAfter(),
		2*time.Second)
}
