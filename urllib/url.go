// SPDX-FileCopyrightText: Copyright The Miniflux Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package urllib canonicalizes URLs and resolves them against each other.
package urllib // import "github.com/dsh2dsh/feedkit/urllib"

import (
	"fmt"
	"net/url"
	"strings"
)

// IsAbsoluteURL reports whether the link is absolute.
func IsAbsoluteURL(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return u.IsAbs()
}

// ResolveToAbsoluteURL resolves input against baseURL, if input is relative.
func ResolveToAbsoluteURL(baseURL, input string) (string, error) {
	if input == "" || IsAbsoluteURL(input) {
		return input, nil
	}

	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("urllib: unable parse input URL %q: %w", input, err)
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("urllib: unable parse base URL %q: %w",
			baseURL, err)
	}
	return base.ResolveReference(u).String(), nil
}

// AbsoluteURL is like ResolveToAbsoluteURL, but returns input as is on
// errors.
func AbsoluteURL(baseURL, input string) string {
	if baseURL == "" {
		return input
	}
	if s, err := ResolveToAbsoluteURL(baseURL, input); err == nil {
		return s
	}
	return input
}

// Domain returns only the domain part of the given URL.
func Domain(websiteURL string) string {
	u, err := url.Parse(websiteURL)
	if err != nil || u.Host == "" {
		return websiteURL
	}
	return u.Hostname()
}

// DomainWithoutWWW returns Domain without leading "www.".
func DomainWithoutWWW(websiteURL string) string {
	return strings.TrimPrefix(Domain(websiteURL), "www.")
}
