// Package cache stores compressed content in files of a directory, one file
// per key. Modification time of a file is its age.
package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zlib"

	"github.com/dsh2dsh/feedkit/internal/logging"
)

const tmpPrefix = ".tmp-"

var ErrNoDirectory = errors.New("reader/cache: not a directory")

type Cache struct {
	dir     string
	log     *slog.Logger
	now     func() time.Time
	metrics *metrics
}

// New returns a cache using existing directory dir.
func New(dir string, opts ...Option) (*Cache, error) {
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrNoDirectory, dir, err)
	} else if !fi.IsDir() {
		return nil, fmt.Errorf("%w: %q", ErrNoDirectory, dir)
	}

	self := &Cache{dir: dir, now: time.Now}
	for _, fn := range opts {
		fn(self)
	}
	self.log = logging.OrDefault(self.log).With(slog.String("cache_dir", dir))
	return self, nil
}

func (self *Cache) Dir() string { return self.dir }

// Hash returns hex encoded SHA-256 of input.
func Hash(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

func (self *Cache) path(key string) string {
	if key == "" || key == "." || strings.Contains(key, "..") ||
		strings.HasPrefix(key, tmpPrefix) ||
		strings.ContainsAny(key, `/\`+string(os.PathSeparator)) {
		key = Hash(key)
	}
	return filepath.Join(self.dir, key)
}

// Save writes compressed data under key. It returns false if data wasn't
// saved.
func (self *Cache) Save(key string, data []byte) bool {
	log := self.log.With(slog.String("key", key))
	if err := self.save(self.path(key), data); err != nil {
		log.Warn("unable save cache entry", slog.Any("error", err))
		return false
	}
	self.metrics.save()
	log.Debug("saved cache entry", slog.Int("size", len(data)))
	return true
}

func (self *Cache) save(path string, data []byte) error {
	f, err := os.CreateTemp(self.dir, tmpPrefix+"*")
	if err != nil {
		return fmt.Errorf("reader/cache: create temp file: %w", err)
	}
	tmpName := f.Name()

	if err := writeCompressed(f, data); err != nil {
		f.Close()
		os.Remove(tmpName)
		return err
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("reader/cache: close %q: %w", tmpName, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("reader/cache: rename %q: %w", tmpName, err)
	}
	return nil
}

func writeCompressed(w io.Writer, data []byte) error {
	zw := zlib.NewWriter(w)
	if _, err := zw.Write(data); err != nil {
		return fmt.Errorf("reader/cache: compress: %w", err)
	} else if err := zw.Close(); err != nil {
		return fmt.Errorf("reader/cache: compress: %w", err)
	}
	return nil
}

// Get returns content of key if it's not older than maxAge. It returns nil
// if there's no such key, or it's stale, or it can't be read. Negative maxAge
// is always stale.
func (self *Cache) Get(key string, maxAge time.Duration) []byte {
	data := self.get(key, maxAge)
	if data == nil {
		self.metrics.miss()
	} else {
		self.metrics.hit()
	}
	return data
}

// Stale returns content of key of any age, or nil. Unlike [Cache.Get], it
// doesn't count hits and misses.
func (self *Cache) Stale(key string) []byte {
	return self.get(key, math.MaxInt64)
}

func (self *Cache) get(key string, maxAge time.Duration) []byte {
	if maxAge < 0 {
		return nil
	}

	path := self.path(key)
	fi, err := os.Stat(path)
	if err != nil || !fi.Mode().IsRegular() {
		return nil
	} else if self.now().Sub(fi.ModTime()) > maxAge {
		return nil
	}

	log := self.log.With(slog.String("key", key))
	b, err := os.ReadFile(path)
	if err != nil {
		log.Debug("unable read cache entry", slog.Any("error", err))
		return nil
	}

	data, err := decompress(b)
	if err != nil {
		log.Debug("corrupted cache entry", slog.Any("error", err))
		return nil
	}
	return data
}

func decompress(b []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("reader/cache: decompress: %w", err)
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("reader/cache: decompress: %w", err)
	} else if data == nil {
		data = []byte{}
	}
	return data, nil
}

// Remove removes key. It returns false only if existing key can't be
// removed.
func (self *Cache) Remove(key string) bool {
	err := os.Remove(self.path(key))
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return true
	}
	self.log.Warn("unable remove cache entry",
		slog.String("key", key), slog.Any("error", err))
	return false
}

// Clean removes all entries older than validity.
func (self *Cache) Clean(validity time.Duration) error {
	entries, err := os.ReadDir(self.dir)
	if err != nil {
		return fmt.Errorf("reader/cache: read directory: %w", err)
	}

	deadline := self.now().Add(-validity)
	var removed int
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), tmpPrefix) {
			continue
		}

		fi, err := entry.Info()
		if errors.Is(err, fs.ErrNotExist) {
			continue
		} else if err != nil {
			return fmt.Errorf("reader/cache: stat %q: %w", entry.Name(), err)
		} else if !fi.ModTime().Before(deadline) {
			continue
		}

		err = os.Remove(filepath.Join(self.dir, entry.Name()))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("reader/cache: remove %q: %w", entry.Name(), err)
		}
		self.metrics.evict()
		removed++
	}

	self.log.Info("cleaned cache", slog.Int("removed", removed),
		slog.Duration("validity", validity))
	return nil
}
