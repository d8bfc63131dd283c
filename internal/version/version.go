// SPDX-FileCopyrightText: Copyright The Miniflux Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package version // import "github.com/dsh2dsh/feedkit/internal/version"

import "strings"

const (
	devVersion = "Development Version"
	repoURL    = "https://github.com/dsh2dsh/feedkit"
)

// Variables populated at build time when using LD_FLAGS.
var (
	Commit    = "Unknown (built outside VCS)"
	BuildDate = "Unknown (built outside VCS)"
	Version   = devVersion
)

// UserAgent returns default User-Agent of HTTP requests.
func UserAgent() string {
	v := Version
	if v == devVersion {
		v = "dev"
	}
	return "feedkit/" + v + " (+" + repoURL + ")"
}

// Info returns multiline description of the build.
func Info() string {
	var b strings.Builder
	b.WriteString("Version: " + Version + "\n")
	b.WriteString("Commit: " + Commit + "\n")
	b.WriteString("Build Date: " + BuildDate + "\n")
	if u := releaseURL(); u != "" {
		b.WriteString("Release: " + u + "\n")
	}
	return b.String()
}

func releaseURL() string {
	if Version == devVersion {
		return ""
	}

	tag, commits, found := strings.Cut(Version, "-")
	if !found {
		return repoURL + "/releases/tag/v" + tag
	}

	_, hash, found := strings.Cut(commits, "-g")
	if !found {
		return ""
	}
	return repoURL + "/compare/v" + tag + "..." + hash
}
