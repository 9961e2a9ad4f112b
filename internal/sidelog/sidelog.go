// Package sidelog implements the side-channel log that harnesses append
// classification results to.
//
// Many harness processes may append to the same file at once. Every line is
// handed to the kernel in a single write on an O_APPEND descriptor, so lines
// from different processes do not overwrite each other; no record level
// locking is done beyond that.
package sidelog

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

type File struct {
	path string

	mu   sync.Mutex
	file *os.File
	err  error
}

// Open returns a handle for path without touching the filesystem.
// An empty path yields a nil *File, which discards every line.
func Open(path string) *File {
	if path == "" {
		return nil
	}
	return &File{path: path}
}

func (f *File) Path() string {
	if f == nil {
		return ""
	}
	return f.path
}

// WriteLine appends line followed by a newline. The file is created on the first call.
func (f *File) WriteLine(line string) error {
	if f == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil && f.err == nil {
		f.file, f.err = os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if f.err != nil {
			f.err = fmt.Errorf("failed to open side log: %w", f.err)
		}
	}
	if f.err != nil {
		return f.err
	}

	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	if _, err := f.file.WriteString(line); err != nil {
		return fmt.Errorf("failed to append to side log: %w", err)
	}
	return nil
}

// Close syncs and closes the underlying file if it was ever opened.
func (f *File) Close() error {
	if f == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return nil
	}
	syncErr := f.file.Sync()
	closeErr := f.file.Close()
	f.file = nil
	f.err = os.ErrClosed
	if syncErr != nil {
		return fmt.Errorf("failed to sync side log: %w", syncErr)
	}
	return closeErr
}
