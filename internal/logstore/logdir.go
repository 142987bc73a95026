// Package logstore is the data source behind the logs/* endpoints: plain-text
// UAV logs kept as files and telemetry and events kept in DuckDB.
package logstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// NotFound is the body served in place of a missing resource.
const NotFound = "$-1"

// ErrNotFound is returned when nothing is stored for a UAV.
var ErrNotFound = errors.New("not found")

// LogDir stores one "<id>.txt" file per UAV.
type LogDir struct {
	dir string
	mu  sync.Mutex
}

// NewLogDir creates the directory if needed.
func NewLogDir(dir string) (*LogDir, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating logs directory: %w", err)
	}
	return &LogDir{dir: dir}, nil
}

// Dir returns the directory holding the log files.
func (l *LogDir) Dir() string {
	return l.dir
}

// Read returns the whole log of id. A missing, unreadable or empty file is
// ErrNotFound.
func (l *LogDir) Read(id string) (string, error) {
	path, ok := l.path(id)
	if !ok {
		return "", ErrNotFound
	}
	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		return "", ErrNotFound
	}
	return string(data), nil
}

// Append adds one entry to the log of id. Every entry, the first included,
// is preceded by a newline.
func (l *LogDir) Append(id, entry string) error {
	path, ok := l.path(id)
	if !ok {
		return fmt.Errorf("invalid log id %q", id)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	if _, err := f.WriteString("\n" + entry); err != nil {
		f.Close()
		return fmt.Errorf("writing log: %w", err)
	}
	return f.Close()
}

// path maps id to its file. Ids that would leave the directory are refused.
func (l *LogDir) path(id string) (string, bool) {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`+"\x00") {
		return "", false
	}
	return filepath.Join(l.dir, id+".txt"), true
}
