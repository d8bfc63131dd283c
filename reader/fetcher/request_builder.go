// SPDX-FileCopyrightText: Copyright The Miniflux Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package fetcher // import "github.com/dsh2dsh/feedkit/reader/fetcher"

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/klauspost/compress/gzhttp"

	"github.com/dsh2dsh/feedkit/internal/logging"
)

const (
	DefaultUserAgent   = "feedkit (+https://github.com/dsh2dsh/feedkit)"
	DefaultTimeout     = 20 * time.Second
	DefaultMaxBodySize = 15 << 20

	defaultAcceptHeader = "application/xml, application/atom+xml, application/rss+xml, application/rdf+xml, application/feed+json, text/html, */*;q=0.9"
)

// RequestBuilder makes GET requests and returns raw responses, suitable for
// [ParseResponse].
type RequestBuilder struct {
	headers          http.Header
	timeout          time.Duration
	maxBodySize      int64
	withoutRedirects bool
	ignoreTLSErrors  bool
	disableHTTP2     bool
	limiter          *HostLimiter

	client   *http.Client
	clientMu sync.Mutex
}

// RequestOption sets headers of a single request.
type RequestOption func(h http.Header)

// IfNoneMatch makes the request conditional on etag, if it isn't empty.
func IfNoneMatch(etag string) RequestOption {
	return func(h http.Header) {
		if etag != "" {
			h.Set("If-None-Match", etag)
		}
	}
}

// IfModifiedSince makes the request conditional on lastModified, if it isn't
// empty.
func IfModifiedSince(lastModified string) RequestOption {
	return func(h http.Header) {
		if lastModified != "" {
			h.Set("If-Modified-Since", lastModified)
		}
	}
}

func NewRequestBuilder() *RequestBuilder {
	r := &RequestBuilder{
		headers:     make(http.Header),
		timeout:     DefaultTimeout,
		maxBodySize: DefaultMaxBodySize,
	}
	return r.WithUserAgent("", DefaultUserAgent)
}

func (r *RequestBuilder) WithHeader(key, value string) *RequestBuilder {
	r.headers.Set(key, value)
	return r
}

func (r *RequestBuilder) WithUserAgent(userAgent string, defaultUserAgent string) *RequestBuilder {
	if userAgent != "" {
		r.headers.Set("User-Agent", userAgent)
	} else {
		r.headers.Set("User-Agent", defaultUserAgent)
	}
	return r
}

func (r *RequestBuilder) WithCookie(cookie string) *RequestBuilder {
	if cookie != "" {
		r.headers.Set("Cookie", cookie)
	}
	return r
}

func (r *RequestBuilder) WithUsernameAndPassword(username, password string) *RequestBuilder {
	if username != "" && password != "" {
		r.headers.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(username+":"+password)))
	}
	return r
}

func (r *RequestBuilder) WithTimeout(d time.Duration) *RequestBuilder {
	if d > 0 {
		r.timeout = d
		r.client = nil
	}
	return r
}

func (r *RequestBuilder) Timeout() time.Duration { return r.timeout }

func (r *RequestBuilder) WithMaxBodySize(n int64) *RequestBuilder {
	if n > 0 {
		r.maxBodySize = n
	}
	return r
}

// WithLimiter limits concurrent connections and request rate per host. The
// same limiter can be shared by many builders.
func (r *RequestBuilder) WithLimiter(l *HostLimiter) *RequestBuilder {
	r.limiter = l
	return r
}

func (r *RequestBuilder) WithoutRedirects() *RequestBuilder {
	r.withoutRedirects = true
	r.client = nil
	return r
}

func (r *RequestBuilder) DisableHTTP2(value bool) *RequestBuilder {
	r.disableHTTP2 = value
	r.client = nil
	return r
}

func (r *RequestBuilder) IgnoreTLSErrors(value bool) *RequestBuilder {
	r.ignoreTLSErrors = value
	r.client = nil
	return r
}

// Fetch requests rawURL and returns the response as raw bytes: the status
// line, headers, an empty line and the body. Non-2xx responses aren't errors,
// see [Response.Status]. It's safe to call Fetch from many goroutines.
func (r *RequestBuilder) Fetch(ctx context.Context, rawURL string,
	opts ...RequestOption,
) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("reader/fetcher: parse %q: %w", rawURL, err)
	}

	if r.limiter != nil {
		hostname := u.Hostname()
		if err := r.limiter.Acquire(ctx, hostname); err != nil {
			return nil, err
		}
		defer r.limiter.Release(hostname)
	}

	resp, err := r.execute(ctx, rawURL, opts)
	if err != nil {
		return nil, err
	}
	defer BodyClose(resp.Body)
	return r.dump(resp)
}

func (r *RequestBuilder) execute(ctx context.Context, requestURL string,
	opts []RequestOption,
) (*http.Response, error) {
	req, err := r.req(ctx, requestURL, opts)
	if err != nil {
		return nil, err
	}

	log := logging.FromContext(ctx)
	log.Debug("Making outgoing request",
		slog.String("method", req.Method),
		slog.String("url", req.URL.String()),
		slog.Any("headers", req.Header),
		slog.Bool("without_redirects", r.withoutRedirects),
		slog.Bool("ignore_tls_errors", r.ignoreTLSErrors),
		slog.Bool("disable_http2", r.disableHTTP2))

	start := time.Now()
	resp, err := r.httpClient().Do(req)
	if err != nil {
		return nil, classifyClientErr(err)
	}

	log.Debug("Got response",
		slog.Int("status_code", resp.StatusCode),
		slog.String("status", resp.Status),
		slog.Int64("content_length", resp.ContentLength),
		slog.String("proto", resp.Proto),
		slog.Duration("request_time", time.Since(start)))
	return resp, nil
}

func (r *RequestBuilder) dump(resp *http.Response) ([]byte, error) {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s %s\r\n", resp.Proto, resp.Status)
	if err := resp.Header.Write(&b); err != nil {
		return nil, fmt.Errorf("reader/fetcher: write headers: %w", err)
	}
	b.WriteString("\r\n")

	body := http.MaxBytesReader(nil, resp.Body, r.maxBodySize)
	_, err := io.Copy(&b, body)
	if err == nil || errors.Is(err, io.EOF) {
		return b.Bytes(), nil
	}

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return nil, fmt.Errorf("%w: %d bytes", ErrBodyTooLarge,
			maxBytesErr.Limit)
	}
	return nil, fmt.Errorf("reader/fetcher: unable to read response body: %w",
		err)
}

func (r *RequestBuilder) httpClient() *http.Client {
	r.clientMu.Lock()
	defer r.clientMu.Unlock()
	if r.client == nil {
		r.client = r.makeClient()
	}
	return r.client
}

func (r *RequestBuilder) makeClient() *http.Client {
	client := &http.Client{
		Transport: r.transport(),
		Timeout:   r.Timeout(),
	}

	if r.withoutRedirects {
		client.CheckRedirect = withoutRedirects
	}
	return client
}

func withoutRedirects(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

func (r *RequestBuilder) transport() http.RoundTripper {
	dialer := &net.Dialer{Timeout: r.Timeout()}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSClientConfig:       r.tlsConfig(),
		TLSHandshakeTimeout:   r.Timeout(),
		IdleConnTimeout:       10 * time.Second,
		ResponseHeaderTimeout: r.Timeout(),

		// Setting `DialContext` disables HTTP/2, this option forces the transport
		// to try HTTP/2 regardless.
		ForceAttemptHTTP2: true,
	}

	if r.disableHTTP2 {
		transport.ForceAttemptHTTP2 = false
		// https://pkg.go.dev/net/http#hdr-HTTP_2
		transport.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}
	}
	return gzhttp.Transport(transport)
}

func (r *RequestBuilder) tlsConfig() *tls.Config {
	if !r.ignoreTLSErrors {
		return nil
	}

	// We get the safe ciphers and the insecure ones if we are ignoring TLS
	// errors. This allows to connect to badly configured servers anyway.
	ciphers := slices.Concat(tls.CipherSuites(), tls.InsecureCipherSuites())
	cipherSuites := make([]uint16, len(ciphers))
	for i, cipher := range ciphers {
		cipherSuites[i] = cipher.ID
	}

	return &tls.Config{
		CipherSuites:       cipherSuites,
		InsecureSkipVerify: r.ignoreTLSErrors,
	}
}

func (r *RequestBuilder) req(ctx context.Context, requestURL string,
	opts []RequestOption,
) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("reader/fetcher: create http request: %w", err)
	}
	req.Header = r.headers.Clone()
	for _, fn := range opts {
		fn(req.Header)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", defaultAcceptHeader)
	}
	return req, nil
}

// maxPostHandlerReadBytes is the max number of Request.Body bytes not
// consumed by a handler that the server will read from the client
// in order to keep a connection alive.
//
// See: net/http/server.go
const maxPostHandlerReadBytes = 256 << 10

// https://github.com/golang/go/issues/60240
func BodyClose(r io.ReadCloser) {
	_, _ = io.CopyN(io.Discard, r, maxPostHandlerReadBytes+1)
	r.Close()
}
