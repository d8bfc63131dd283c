// SPDX-FileCopyrightText: Copyright The Miniflux Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package model // import "github.com/dsh2dsh/feedkit/model"

import "strings"

// Enclosure is a media file attached to an entry.
type Enclosure struct {
	URL      string `json:"url,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// EnclosureList is a list of enclosures in document order.
type EnclosureList []Enclosure

// Append adds e unless its URL is empty or already in the list. The MIME type
// is lower-cased and a negative size becomes 0.
func (self *EnclosureList) Append(e Enclosure) {
	e.URL = strings.TrimSpace(e.URL)
	if e.URL == "" || self.contains(e.URL) {
		return
	}

	e.MimeType = strings.ToLower(strings.TrimSpace(e.MimeType))
	e.Size = max(e.Size, 0)
	*self = append(*self, e)
}

func (self EnclosureList) contains(url string) bool {
	for i := range self {
		if self[i].URL == url {
			return true
		}
	}
	return false
}
