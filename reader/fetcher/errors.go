package fetcher

import (
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"time"
)

var (
	ErrBodyTooLarge = errors.New("reader/fetcher: response body too large")
	ErrTLS          = errors.New("reader/fetcher: tls error")
	ErrNetwork      = errors.New("reader/fetcher: network error")
	ErrTimeout      = errors.New("reader/fetcher: network timeout")
	ErrEmptyReply   = errors.New("reader/fetcher: empty response")
)

func classifyClientErr(err error) error {
	const msgFmt = "%w: %w"
	switch {
	case sslError(err):
		return fmt.Errorf(msgFmt, ErrTLS, err)
	case os.IsTimeout(err):
		return fmt.Errorf(msgFmt, ErrTimeout, err)
	case errors.Is(err, io.EOF):
		return fmt.Errorf(msgFmt, ErrEmptyReply, err)
	case networkError(err):
		return fmt.Errorf(msgFmt, ErrNetwork, err)
	}
	return fmt.Errorf("reader/fetcher: http client error: %w", err)
}

func networkError(err error) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func sslError(err error) bool {
	var certErr *x509.UnknownAuthorityError
	if errors.As(err, &certErr) {
		return true
	}

	var hostErr *x509.HostnameError
	if errors.As(err, &hostErr) {
		return true
	}

	var algErr *x509.InsecureAlgorithmError
	return errors.As(err, &algErr)
}

type ErrTooManyRequests struct {
	hostname   string
	retryAfter time.Time
}

var _ error = (*ErrTooManyRequests)(nil)

func NewErrTooManyRequests(hostname string, retryAfter time.Time,
) *ErrTooManyRequests {
	return &ErrTooManyRequests{
		hostname:   hostname,
		retryAfter: retryAfter,
	}
}

func (self *ErrTooManyRequests) Error() string {
	return fmt.Sprintf(
		"reader/fetcher: host %q rate limited, retry in %s",
		self.hostname, time.Until(self.RetryAfter()).Round(time.Second))
}

func (self *ErrTooManyRequests) RetryAfter() time.Time {
	return self.retryAfter
}

// StatusError returns an error for unsuccessful status of resp, or nil.
func StatusError(hostname string, resp *Response) error {
	switch {
	case resp.Status == 429:
		return NewErrTooManyRequests(hostname,
			time.Now().Add(resp.RetryDelay()))
	case resp.Status >= 400:
		return fmt.Errorf("reader/fetcher: unexpected status code: %d",
			resp.Status)
	}
	return nil
}
