package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext(t *testing.T) {
	ctx := context.Background()
	assert.Same(t, slog.Default(), FromContext(ctx))

	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))
	ctx = WithLogger(ctx, l)
	assert.Same(t, l, FromContext(ctx))

	ctx = With(ctx, slog.String("feed_url", "https://example.org/feed"))
	FromContext(ctx).Info("test")
	assert.Contains(t, buf.String(), "feed_url=https://example.org/feed")
}

func TestOrDefault(t *testing.T) {
	assert.Same(t, slog.Default(), OrDefault(nil))
	l := slog.New(slog.DiscardHandler)
	assert.Same(t, l, OrDefault(l))
}
