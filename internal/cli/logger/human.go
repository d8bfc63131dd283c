package logger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

const humanTimeLayout = "2006/01/02 15:04:05"

var bufPool = sync.Pool{
	New: func() any { return bytes.NewBuffer(make([]byte, 0, 1024)) },
}

// NewHumanTextHandler returns a handler writing "LEVEL message key=value"
// lines, optionally prefixed by date and time.
func NewHumanTextHandler(w io.Writer, opts *slog.HandlerOptions,
	logTime bool,
) *HumanTextHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}

	self := &HumanTextHandler{
		logTime: logTime,
		w:       w,
		opts:    *opts,
		rec:     new(recordBuffer),
		mu:      new(sync.Mutex),
	}

	textOpts := self.opts
	textOpts.ReplaceAttr = self.replace
	self.h = slog.NewTextHandler(self.rec, &textOpts)
	return self
}

type HumanTextHandler struct {
	logTime bool
	w       io.Writer

	h    slog.Handler
	opts slog.HandlerOptions

	// rec is shared by all handlers derived by WithAttrs and WithGroup, and
	// guarded by mu.
	rec *recordBuffer
	mu  *sync.Mutex
}

var _ slog.Handler = (*HumanTextHandler)(nil)

// recordBuffer is where the text handler writes attributes of the record
// being formatted.
type recordBuffer struct {
	buf *bytes.Buffer
}

func (self *recordBuffer) Write(p []byte) (int, error) {
	return self.buf.Write(p)
}

func (self *recordBuffer) acquire() *bytes.Buffer {
	self.buf = bufPool.Get().(*bytes.Buffer)
	return self.buf
}

func (self *recordBuffer) release() {
	// Keep big buffers out of the pool.
	if self.buf.Cap() <= 16<<10 {
		self.buf.Reset()
		bufPool.Put(self.buf)
	}
	self.buf = nil
}

func (self *HumanTextHandler) replace(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 {
		switch a.Key {
		case slog.TimeKey, slog.LevelKey, slog.MessageKey:
			return slog.Attr{}
		}
	}
	if self.opts.ReplaceAttr != nil {
		return self.opts.ReplaceAttr(groups, a)
	}
	return a
}

func (self *HumanTextHandler) Enabled(ctx context.Context, level slog.Level,
) bool {
	return self.h.Enabled(ctx, level)
}

func (self *HumanTextHandler) Handle(ctx context.Context, r slog.Record) error {
	self.mu.Lock()
	defer self.mu.Unlock()

	b := self.rec.acquire()
	defer self.rec.release()

	if self.logTime {
		t := r.Time
		if t.IsZero() {
			t = time.Now()
		}
		b.WriteString(t.Format(humanTimeLayout))
		b.WriteByte(' ')
	}
	b.WriteString(r.Level.String())
	b.WriteByte(' ')
	b.WriteString(r.Message)
	b.WriteByte(' ')

	if err := self.h.Handle(ctx, r); err != nil {
		return fmt.Errorf("logger: failed slog handler: %w", err)
	}

	// Attributes end with '\n', and a record without attributes ends with ' '.
	b.Truncate(len(bytes.TrimSpace(b.Bytes())))
	b.WriteByte('\n')
	if _, err := b.WriteTo(self.w); err != nil {
		return fmt.Errorf("logger: failed write formatted entry: %w", err)
	}
	return nil
}

func (self *HumanTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h := *self
	h.h = self.h.WithAttrs(attrs)
	return &h
}

func (self *HumanTextHandler) WithGroup(name string) slog.Handler {
	h := *self
	h.h = self.h.WithGroup(name)
	return &h
}
