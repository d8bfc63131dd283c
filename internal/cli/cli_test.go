package cli

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const testRSS = `<?xml version="1.0"?>
<rss version="2.0"><channel>
<title>Test Feed</title>
<link>https://example.com/</link>
<item>
	<title>First</title>
	<link>https://example.com/1</link>
	<guid>1</guid>
	<pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate>
	<description><![CDATA[<p onclick="x()">Hello <script>alert(1)</script>world</p>]]></description>
</item>
</channel></rss>`

const testPage = `<html><head>
<title>Page Title</title>
<meta name="description" content="Page description">
<link rel="alternate" type="application/rss+xml" href="/feed.xml">
</head><body>
<div class="h-feed">
	<h1 class="p-name">Notes</h1>
	<article class="h-entry">
		<a class="u-url" href="/notes/1">link</a>
		<p class="p-name">Note one</p>
	</article>
</div>
</body></html>`

// execute runs the command with args and returns its stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CACHE_DIR", t.TempDir())
	t.Setenv("LOG_LEVEL", "error")
	resetFlags(&Cmd)

	var stdout, stderr bytes.Buffer
	Cmd.SetArgs(args)
	Cmd.SetIn(strings.NewReader(stdin))
	Cmd.SetOut(&stdout)
	Cmd.SetErr(&stderr)
	t.Cleanup(func() {
		Cmd.SetIn(nil)
		Cmd.SetOut(nil)
		Cmd.SetErr(nil)
	})

	err := Cmd.Execute()
	return stdout.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if v, ok := f.Value.(pflag.SliceValue); ok {
			_ = v.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	fname := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(fname, []byte(content), 0o600))
	return fname
}

func TestCanonical(t *testing.T) {
	out, err := execute(t, "", "canonical", "HTTP://www.GOOgle.com:80/a/./b/../c",
		"   ")
	require.NoError(t, err)

	results := gjson.Parse(out).Array()
	require.Len(t, results, 2)
	assert.Equal(t, "http://www.google.com/a/c", results[0].Get("result").String())
	assert.Empty(t, results[1].Get("result").String())
}

func TestClear(t *testing.T) {
	out, err := execute(t, "", "clear",
		"https://example.com/page?id=5&utm_campaign=x&fbclid=y#frag",
		"https://googlesyndication.com")
	require.NoError(t, err)

	results := gjson.Parse(out).Array()
	require.Len(t, results, 2)
	assert.Equal(t, "https://example.com/page?id=5#frag",
		results[0].Get("result").String())
	assert.Empty(t, results[1].Get("result").String())
}

func TestClear_rulesFile(t *testing.T) {
	rules := writeFile(t, "rules.yaml", `providers:
  example:
    urlPattern: '^https?://example\.com'
    rules: ['ref']
`)
	t.Setenv("URL_CLEANER_RULES", rules)

	out, err := execute(t, "", "clear",
		"https://example.com/?ref=x&utm_source=y")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/?utm_source=y",
		gjson.Get(out, "0.result").String())
}

func TestClear_loopback(t *testing.T) {
	const u = "http://127.0.0.1:8080/feed.xml?utm_source=x"
	out, err := execute(t, "", "clear", u)
	require.NoError(t, err)
	assert.Equal(t, u, gjson.Get(out, "0.result").String())
}

func TestResponse(t *testing.T) {
	raw := "HTTP/1.1 404 Not Found\r\n" +
		"Content-Type: text/html; charset=ISO-8859-1\r\n" +
		"X-Multi: a\r\nX-Multi: b\r\n\r\n" +
		"<p>caf\xe9</p>"

	out, err := execute(t, raw, "response", "-")
	require.NoError(t, err)

	r := gjson.Parse(out)
	assert.Equal(t, int64(404), r.Get("status").Int())
	assert.Equal(t, "iso-8859-1", r.Get("encoding").String())
	assert.Equal(t, "<p>café</p>", r.Get("body").String())
	assert.Equal(t, "a, b", r.Get("headers.X-Multi.0").String())
}

func TestFeed(t *testing.T) {
	out, err := execute(t, testRSS, "feed", "-")
	require.NoError(t, err)

	r := gjson.Parse(out)
	assert.Len(t, r.Get("hash").String(), 16)
	assert.Equal(t, "rss", r.Get("type").String())
	assert.Equal(t, "Test Feed", r.Get("title").String())
	assert.Equal(t, "https://example.com/1", r.Get("entries.0.link").String())
	assert.Equal(t, "2006-01-02T15:04:05Z",
		r.Get("entries.0.published_at").String())
	assert.Contains(t, r.Get("entries.0.content").String(), "<script>")

	out2, err := execute(t, testRSS, "feed", "--sanitize", "-")
	require.NoError(t, err)
	r2 := gjson.Parse(out2)
	assert.Equal(t, r.Get("hash").String(), r2.Get("hash").String())
	content := r2.Get("entries.0.content").String()
	assert.NotContains(t, content, "script")
	assert.NotContains(t, content, "onclick")
	assert.Contains(t, content, "Hello world")
}

func TestFeed_errors(t *testing.T) {
	_, err := execute(t, "", "feed", "-")
	require.Error(t, err)

	_, err = execute(t, "<html></html>", "feed", "-")
	require.Error(t, err)

	_, err = execute(t, "", "feed", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestHFeed(t *testing.T) {
	out, err := execute(t, testPage, "hfeed", "--base",
		"https://example.com/notes/", "-")
	require.NoError(t, err)

	r := gjson.Parse(out)
	assert.Equal(t, "h-feed", r.Get("type").String())
	assert.Equal(t, "Notes", r.Get("title").String())
	assert.Equal(t, "https://example.com/notes/1",
		r.Get("entries.0.link").String())
	assert.Equal(t, "Note one", r.Get("entries.0.title").String())
}

func TestOPML(t *testing.T) {
	fname := writeFile(t, "subscriptions.opml", `<?xml version="1.0"?>
<opml version="2.0"><head><title>subs</title></head><body>
<outline text="News">
	<outline text="A" type="rss" xmlUrl="https://a.example/feed"/>
	<outline text="B" type="rss" xmlUrl="https://b.example/feed"/>
</outline>
<outline text="C" type="rss" xmlUrl="https://c.example/feed"/>
</body></opml>`)

	out, err := execute(t, "", "opml", fname)
	require.NoError(t, err)
	r := gjson.Parse(out)
	assert.Len(t, r.Array(), 2)
	assert.Len(t, r.Get("0.outlines").Array(), 2)

	out, err = execute(t, "", "opml", "--flat", fname)
	require.NoError(t, err)
	r = gjson.Parse(out)
	require.Len(t, r.Array(), 3)
	assert.Equal(t, "https://b.example/feed", r.Get("1.xml_url").String())
}

func TestExtract(t *testing.T) {
	out, err := execute(t, testPage, "extract", "--base",
		"https://example.com/notes/", "-")
	require.NoError(t, err)

	r := gjson.Parse(out)
	assert.Equal(t, "Page Title", r.Get("title").String())
	assert.Equal(t, "Page description", r.Get("description").String())
	assert.Equal(t, "https://example.com/feed.xml", r.Get("feeds.0").String())
	assert.False(t, r.Get("article").Exists())
	assert.True(t, r.Get("readerable").Exists())

	out, err = execute(t, testPage, "extract", "--readable", "--base",
		"https://example.com/notes/", "-")
	require.NoError(t, err)
	r = gjson.Parse(out)
	assert.Equal(t, "Page Title", r.Get("title").String())
	assert.True(t, r.Get("article").Exists())
}

func TestSanitize(t *testing.T) {
	out, err := execute(t, `<p>Hello <script>alert("x")</script>world</p>`,
		"sanitize", "-")
	require.NoError(t, err)
	assert.Equal(t, "<p>Hello world</p>", gjson.Get(out, "content").String())

	out, err = execute(t, `<p>Hello <b>world</b></p>`, "sanitize", "--strip",
		"-")
	require.NoError(t, err)
	assert.Equal(t, "Hello world", gjson.Get(out, "content").String())

	_, err = execute(t, "x", "sanitize", "--truncate", "-1", "-")
	require.Error(t, err)
}

func TestCache(t *testing.T) {
	dir := t.TempDir()
	run := func(stdin string, args ...string) string {
		t.Helper()
		resetFlags(&Cmd)
		t.Setenv("CACHE_DIR", dir)
		t.Setenv("LOG_LEVEL", "error")

		var stdout bytes.Buffer
		Cmd.SetArgs(args)
		Cmd.SetIn(strings.NewReader(stdin))
		Cmd.SetOut(&stdout)
		require.NoError(t, Cmd.Execute())
		return stdout.String()
	}
	t.Cleanup(func() {
		Cmd.SetIn(nil)
		Cmd.SetOut(nil)
	})

	out := run("", "cache", "get", "foo")
	assert.False(t, gjson.Get(out, "found").Bool())

	run("cached content", "cache", "put", "foo", "-")
	out = run("", "cache", "get", "foo")
	assert.True(t, gjson.Get(out, "found").Bool())
	assert.Equal(t, "cached content", gjson.Get(out, "data").String())

	out = run("", "cache", "get", "--max-age", "-1s", "foo")
	assert.False(t, gjson.Get(out, "found").Bool())

	run("hashed", "cache", "put", "--hash", "https://example.com/", "-")
	out = run("", "cache", "get", "--hash", "https://example.com/")
	assert.Equal(t, "hashed", gjson.Get(out, "data").String())
	assert.Len(t, gjson.Get(out, "key").String(), 64)

	run("", "cache", "rm", "foo")
	out = run("", "cache", "get", "foo")
	assert.False(t, gjson.Get(out, "found").Bool())

	run("", "cache", "clean", "--older", "0s")
	out = run("", "cache", "get", "--hash", "https://example.com/")
	assert.False(t, gjson.Get(out, "found").Bool())
}

func TestFetch(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)
			switch r.URL.Path {
			case "/feed.xml":
				w.Header().Set("Content-Type", "application/rss+xml")
				_, _ = w.Write([]byte(testRSS))
			case "/page":
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				_, _ = w.Write([]byte(testPage))
			default:
				http.NotFound(w, r)
			}
		}))
	defer server.Close()

	// Default rules keep tracking parameters of local addresses.
	rules := writeFile(t, "rules.yaml", `providers:
  local:
    urlPattern: '^https?://127\.0\.0\.1'
    rules: ['utm_source']
`)

	dir := t.TempDir()
	fetch := func(args ...string) (gjson.Result, error) {
		t.Helper()
		resetFlags(&Cmd)
		t.Setenv("CACHE_DIR", dir)
		t.Setenv("LOG_LEVEL", "error")
		t.Setenv("FETCH_WORKERS", "2")
		t.Setenv("URL_CLEANER_RULES", rules)

		var stdout, stderr bytes.Buffer
		Cmd.SetArgs(append([]string{"fetch"}, args...))
		Cmd.SetOut(&stdout)
		Cmd.SetErr(&stderr)
		err := Cmd.Execute()
		return gjson.Parse(stdout.String()), err
	}
	t.Cleanup(func() {
		Cmd.SetOut(nil)
		Cmd.SetErr(nil)
	})

	feedURL := server.URL + "/feed.xml?utm_source=test"
	r, err := fetch(feedURL, server.URL+"/page")
	require.NoError(t, err)
	require.Len(t, r.Array(), 2)

	assert.Equal(t, server.URL+"/feed.xml", r.Get("0.canonical").String())
	assert.False(t, r.Get("0.cached").Bool())
	assert.Equal(t, int64(http.StatusOK), r.Get("0.status").Int())
	assert.Equal(t, "Test Feed", r.Get("0.feed.title").String())

	assert.Equal(t, "Page Title", r.Get("1.page.title").String())
	assert.Equal(t, server.URL+"/feed.xml", r.Get("1.page.feeds.0").String())
	assert.Equal(t, "h-feed", r.Get("1.feed.type").String())
	assert.Equal(t, int32(2), requests.Load())

	r, err = fetch(feedURL)
	require.NoError(t, err)
	assert.True(t, r.Get("0.cached").Bool())
	assert.Equal(t, "Test Feed", r.Get("0.feed.title").String())
	assert.Equal(t, int32(2), requests.Load())

	r, err = fetch("--no-cache", feedURL)
	require.NoError(t, err)
	assert.False(t, r.Get("0.cached").Bool())
	assert.Equal(t, int32(3), requests.Load())
}

func TestFetch_revalidate(t *testing.T) {
	var notModified atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("If-None-Match") == `"v1"` {
				notModified.Add(1)
				w.WriteHeader(http.StatusNotModified)
				return
			}
			w.Header().Set("ETag", `"v1"`)
			_, _ = w.Write([]byte(testRSS))
		}))
	defer server.Close()

	dir := t.TempDir()
	fetch := func() gjson.Result {
		t.Helper()
		resetFlags(&Cmd)
		t.Setenv("CACHE_DIR", dir)
		t.Setenv("CACHE_MAX_AGE", "0s")
		t.Setenv("LOG_LEVEL", "error")

		var stdout bytes.Buffer
		Cmd.SetArgs([]string{"fetch", server.URL})
		Cmd.SetOut(&stdout)
		require.NoError(t, Cmd.Execute())
		return gjson.Parse(stdout.String())
	}
	t.Cleanup(func() { Cmd.SetOut(nil) })

	r := fetch()
	assert.False(t, r.Get("0.cached").Bool())
	assert.False(t, r.Get("0.revalidated").Bool())

	r = fetch()
	assert.True(t, r.Get("0.cached").Bool())
	assert.True(t, r.Get("0.revalidated").Bool())
	assert.Equal(t, int64(http.StatusOK), r.Get("0.status").Int())
	assert.Equal(t, "Test Feed", r.Get("0.feed.title").String())
	assert.Equal(t, int32(1), notModified.Load())
}

func TestFetch_requestFlags(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			user, pass, _ := r.BasicAuth()
			if user != "user" || pass != "secret" ||
				r.Header.Get("X-Token") != "abc" ||
				r.Header.Get("Cookie") != "session=1" {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			_, _ = w.Write([]byte(testRSS))
		}))
	defer server.Close()

	out, err := execute(t, "", "fetch", "--no-cache", "--user", "user",
		"--password", "secret", "--cookie", "session=1", "-H", "X-Token: abc",
		server.URL)
	require.NoError(t, err)
	assert.Equal(t, "Test Feed", gjson.Get(out, "0.feed.title").String())

	_, err = execute(t, "", "fetch", "--no-cache", server.URL)
	require.Error(t, err)

	_, err = execute(t, "", "fetch", "--no-cache", "-H", "broken", server.URL)
	require.Error(t, err)
}

func TestFetch_errors(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	out, err := execute(t, "", "fetch", "--no-cache", server.URL+"/missing",
		"http://")
	require.Error(t, err)

	r := gjson.Parse(out)
	require.Len(t, r.Array(), 2)
	assert.Equal(t, int64(http.StatusNotFound), r.Get("0.status").Int())
	assert.NotEmpty(t, r.Get("0.error").String())
	assert.Equal(t, ErrUnusableURL.Error(), r.Get("1.error").String())
}

func TestFetch_metrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(testRSS))
		}))
	defer server.Close()

	resetFlags(&Cmd)
	t.Setenv("CACHE_DIR", t.TempDir())
	t.Setenv("LOG_FILE", filepath.Join(t.TempDir(), "feedkit.log"))
	t.Setenv("METRICS_ENABLED", "true")

	var stdout, stderr bytes.Buffer
	Cmd.SetArgs([]string{"fetch", server.URL})
	Cmd.SetOut(&stdout)
	Cmd.SetErr(&stderr)
	t.Cleanup(func() {
		Cmd.SetOut(nil)
		Cmd.SetErr(nil)
	})
	require.NoError(t, Cmd.Execute())

	metrics := stderr.String()
	assert.Contains(t, metrics, "feedkit_fetch_duration_seconds")
	assert.Contains(t, metrics, "feedkit_parse_duration_seconds")
	assert.Contains(t, metrics, "feedkit_cache_misses_total 1\n")
	assert.Contains(t, metrics, "feedkit_cache_saves_total 1")
}

func TestInfo(t *testing.T) {
	out, err := execute(t, "", "info")
	require.NoError(t, err)
	assert.Contains(t, out, "Version:")
	assert.Contains(t, out, "User Agent: feedkit/")
}

func TestConfigDump(t *testing.T) {
	t.Setenv("FETCH_WORKERS", "3")
	out, err := execute(t, "", "config-dump")
	require.NoError(t, err)
	assert.Contains(t, out, "FETCH_WORKERS=3")
}
