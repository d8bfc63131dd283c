package logger

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
)

// LogFile appends to a file and reopens it when the file was removed or
// renamed, like after rotation by newsyslog or logrotate.
type LogFile struct {
	filename string

	mu sync.Mutex
	f  *os.File
}

func NewLogFile(filename string) (*LogFile, error) {
	self := &LogFile{filename: filename}
	if err := self.open(); err != nil {
		return nil, err
	}
	return self, nil
}

func (self *LogFile) open() error {
	f, err := os.OpenFile(self.filename,
		os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	self.f = f
	return nil
}

func (self *LogFile) Write(p []byte) (int, error) {
	self.mu.Lock()
	defer self.mu.Unlock()

	if rotated, err := self.rotated(); err != nil {
		return 0, err
	} else if rotated {
		if err := self.reopen(); err != nil {
			return 0, fmt.Errorf("reopen file %q: %w", self.filename, err)
		}
	}

	n, err := self.f.Write(p)
	if err != nil {
		return n, fmt.Errorf("write to %q: %w", self.filename, err)
	}
	return n, nil
}

// rotated reports whether filename doesn't point to the opened file anymore.
func (self *LogFile) rotated() (bool, error) {
	current, err := self.f.Stat()
	if err != nil {
		return false, fmt.Errorf("stat of %q: %w", self.filename, err)
	}

	fi, err := os.Stat(self.filename)
	if errors.Is(err, fs.ErrNotExist) {
		return true, nil
	} else if err != nil {
		return false, fmt.Errorf("stat of %q: %w", self.filename, err)
	}
	return !os.SameFile(current, fi), nil
}

func (self *LogFile) reopen() error {
	if err := self.f.Close(); err != nil {
		return fmt.Errorf("close %q: %w", self.filename, err)
	}
	return self.open()
}

func (self *LogFile) Close() error {
	self.mu.Lock()
	defer self.mu.Unlock()
	if err := self.f.Close(); err != nil {
		return fmt.Errorf("close %q: %w", self.filename, err)
	}
	return nil
}
