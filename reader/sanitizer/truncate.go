// SPDX-FileCopyrightText: Copyright The Miniflux Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package sanitizer // import "github.com/dsh2dsh/feedkit/reader/sanitizer"

import (
	"html"
	"strings"
)

// TruncateHTML returns plain text of input, collapsed and truncated to
// maxLen characters.
func TruncateHTML(input string, maxLen int) string {
	text := html.UnescapeString(StripTags(input))
	text = strings.Join(strings.Fields(text), " ")

	runes := []rune(text)
	if len(runes) > maxLen {
		return strings.TrimSpace(string(runes[:maxLen])) + "…"
	}
	return text
}
