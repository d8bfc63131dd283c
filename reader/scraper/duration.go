// SPDX-FileCopyrightText: Copyright The Miniflux Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package scraper // import "github.com/dsh2dsh/feedkit/reader/scraper"

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const wordsPerMinute = 200

var iso8601Regex = regexp.MustCompile(`^P((?P<year>\d+)Y)?((?P<month>\d+)M)?((?P<week>\d+)W)?((?P<day>\d+)D)?(T((?P<hour>\d+)H)?((?P<minute>\d+)M)?((?P<second>\d+)S)?)?$`)

var errInvalidDuration = errors.New("reader/scraper: invalid ISO 8601 duration")

func parseISO8601(from string) (time.Duration, error) {
	match := iso8601Regex.FindStringSubmatch(from)
	if match == nil || from == "P" || strings.HasSuffix(from, "T") {
		return 0, fmt.Errorf("%w: %q", errInvalidDuration, from)
	}

	var d time.Duration
	for i, name := range iso8601Regex.SubexpNames() {
		part := match[i]
		if i == 0 || name == "" || part == "" {
			continue
		}

		val, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("reader/scraper: %w", err)
		}

		switch name {
		case "week":
			d += time.Duration(val) * 7 * 24 * time.Hour
		case "day":
			d += time.Duration(val) * 24 * time.Hour
		case "hour":
			d += time.Duration(val) * time.Hour
		case "minute":
			d += time.Duration(val) * time.Minute
		case "second":
			d += time.Duration(val) * time.Second
		default:
			return 0, fmt.Errorf("%w: unsupported field %s", errInvalidDuration, name)
		}
	}
	return d, nil
}

func ceilMinutes(d time.Duration) int {
	return int(math.Ceil(d.Minutes()))
}

func estimateMinutes(text string) int {
	words := len(strings.Fields(text))
	return (words + wordsPerMinute - 1) / wordsPerMinute
}
