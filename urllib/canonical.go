package urllib

import (
	"net/netip"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/net/idna"
)

const maxUnescapeRounds = 1024

var (
	schemeRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)
	ipPartRe = regexp.MustCompile(`^(?:0[xX][0-9a-fA-F]+|[0-9]+)$`)

	defaultPorts = map[string]string{
		"http":  "80",
		"https": "443",
		"ftp":   "21",
	}
)

// Sanitize returns canonical form of raw URL or an empty string, if raw
// can't be used as an URL.
//
// The result is stable: Sanitize(Sanitize(u)) == Sanitize(u).
func Sanitize(raw string) string {
	s := strings.TrimFunc(raw, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	})
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\t', '\r', '\n':
			return -1
		}
		return r
	}, s)
	if s == "" {
		return ""
	}

	s, fragment, hasFragment := strings.Cut(s, "#")
	if !schemeRe.MatchString(s) {
		s = "http://" + s
	}
	s = unescapeAll(s)

	scheme, rest, _ := strings.Cut(s, "://")
	scheme = strings.ToLower(scheme)
	rest, query, hasQuery := strings.Cut(rest, "?")

	authority, path := rest, "/"
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		authority, path = rest[:i], rest[i:]
	}

	authority, ok := canonicalAuthority(scheme, authority)
	if !ok {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s) + 8)
	b.WriteString(scheme)
	b.WriteString("://")
	b.WriteString(authority)
	b.WriteString(escape(canonicalPath(path)))
	if hasQuery {
		b.WriteByte('?')
		b.WriteString(escape(query))
	}
	if hasFragment {
		b.WriteByte('#')
		b.WriteString(escape(unescapeAll(fragment)))
	}
	return b.String()
}

func canonicalAuthority(scheme, s string) (string, bool) {
	var userinfo string
	if i := strings.LastIndexByte(s, '@'); i >= 0 {
		userinfo, s = escape(s[:i+1]), s[i+1:]
	}

	host, port, ok := splitHostPort(s)
	if !ok {
		return "", false
	}

	if port != "" {
		n, err := strconv.ParseUint(port, 10, 16)
		if err != nil {
			return "", false
		}
		port = strconv.FormatUint(n, 10)
		if port == defaultPorts[scheme] {
			port = ""
		}
	}

	host, ok = canonicalHost(host)
	if !ok {
		return "", false
	}

	if port != "" {
		return userinfo + host + ":" + port, true
	}
	return userinfo + host, true
}

func splitHostPort(s string) (host, port string, ok bool) {
	if !strings.HasPrefix(s, "[") {
		host, port, _ = strings.Cut(s, ":")
		return host, port, !strings.Contains(port, ":")
	}

	end := strings.IndexByte(s, ']')
	if end < 0 {
		return "", "", false
	}
	host, rest := s[:end+1], s[end+1:]
	if rest != "" {
		if rest[0] != ':' {
			return "", "", false
		}
		port = rest[1:]
	}
	return host, port, true
}

func canonicalHost(host string) (string, bool) {
	if strings.HasPrefix(host, "[") {
		addr, err := netip.ParseAddr(host[1 : len(host)-1])
		if err != nil || !addr.Is6() {
			return "", false
		}
		return "[" + addr.String() + "]", true
	}

	host = strings.ToLower(host)
	labels := strings.FieldsFunc(host, func(r rune) bool { return r == '.' })
	host = strings.Join(labels, ".")
	if host == "" {
		return "", false
	}

	if ip, ok := parseIPv4(labels); ok {
		return ip, true
	}

	if !isASCII(host) {
		ascii, err := idna.Lookup.ToASCII(host)
		if err != nil || ascii == "" {
			return "", false
		}
		host = strings.ToLower(ascii)
	}

	for i := range len(host) {
		if !isHostByte(host[i]) {
			return "", false
		}
	}
	return host, true
}

// parseIPv4 converts inet_aton style address into dotted-decimal form. Every
// part may be decimal, octal (leading 0) or hex (leading 0x) and the last part
// fills all remaining bytes.
func parseIPv4(parts []string) (string, bool) {
	if len(parts) == 0 || len(parts) > 4 {
		return "", false
	}

	values := make([]uint64, len(parts))
	for i, p := range parts {
		if !ipPartRe.MatchString(p) {
			return "", false
		}
		v, err := strconv.ParseUint(p, 0, 32)
		if err != nil {
			return "", false
		}
		values[i] = v
	}

	last := len(values) - 1
	if values[last] >= 1<<(8*(4-last)) {
		return "", false
	}

	var ip uint32
	for i, v := range values[:last] {
		if v > 0xff {
			return "", false
		}
		ip |= uint32(v) << (24 - 8*i)
	}
	ip |= uint32(values[last])

	return netip.AddrFrom4([4]byte{
		byte(ip >> 24), byte(ip >> 16), byte(ip >> 8), byte(ip),
	}).String(), true
}

func canonicalPath(path string) string {
	segments := strings.Split(path, "/")[1:]
	out := make([]string, 0, len(segments))
	var trailing bool

	for i, seg := range segments {
		last := i == len(segments)-1
		switch seg {
		case "", ".":
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, seg)
			continue
		}
		trailing = last
	}

	if trailing && len(out) > 0 {
		return "/" + strings.Join(out, "/") + "/"
	}
	return "/" + strings.Join(out, "/")
}

func unescapeAll(s string) string {
	for range maxUnescapeRounds {
		u := unescape(s)
		if u == s {
			break
		}
		s = u
	}
	return s
}

// unescape decodes valid %XX sequences and keeps everything else as is.
func unescape(s string) string {
	i := strings.IndexByte(s, '%')
	if i < 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	b.WriteString(s[:i])
	for ; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func escape(s string) string {
	const upperhex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := range len(s) {
		c := s[i]
		if c <= ' ' || c >= 0x7f || c == '#' || c == '%' {
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&15])
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isHostByte(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-._~!$&'()*+,;=", c) >= 0
}

func isASCII(s string) bool {
	for i := range len(s) {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

func isHex(c byte) bool {
	switch {
	case '0' <= c && c <= '9', 'a' <= c && c <= 'f', 'A' <= c && c <= 'F':
		return true
	}
	return false
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	}
	return c - 'A' + 10
}
