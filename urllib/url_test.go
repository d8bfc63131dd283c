// SPDX-FileCopyrightText: Copyright The Miniflux Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package urllib // import "github.com/dsh2dsh/feedkit/urllib"

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAbsoluteURL(t *testing.T) {
	assert.True(t, IsAbsoluteURL("https://example.org/file.pdf"))
	assert.False(t, IsAbsoluteURL("/file.pdf"))
	assert.False(t, IsAbsoluteURL("://example.org"))
}

func TestResolveToAbsoluteURL(t *testing.T) {
	tests := []struct {
		base     string
		input    string
		expected string
	}{
		{"https://example.org/", "https://example.org/test.html", "https://example.org/test.html"},
		{"https://example.org/folder/", "/test.html", "https://example.org/test.html"},
		{"https://example.org/folder/", "test.html", "https://example.org/folder/test.html"},
		{"https://example.org/folder/", "//cdn.example.org/x.png", "https://cdn.example.org/x.png"},
		{"https://example.org/", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ResolveToAbsoluteURL(tt.base, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	_, err := ResolveToAbsoluteURL("https://example.org/", "%zz")
	require.Error(t, err)
	assert.Equal(t, "%zz", AbsoluteURL("https://example.org/", "%zz"))
	assert.Equal(t, "x.html", AbsoluteURL("", "x.html"))
}

func TestDomain(t *testing.T) {
	assert.Equal(t, "example.org", Domain("https://example.org:8443/path"))
	assert.Equal(t, "www.example.org", Domain("http://www.example.org/"))
	assert.Equal(t, "example.org", DomainWithoutWWW("http://www.example.org/"))
	assert.Equal(t, "not an url", Domain("not an url"))
}
