package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/orvd/logviewer/internal/models"
)

// StatusSaved marks a file that was written completely.
const StatusSaved = "saved"

// Store defines the interface for saved download files.
type Store interface {
	Save(name string, r io.Reader) (*models.FileInfo, error)
	Get(id string) (*models.FileInfo, error)
	List(limit int) ([]*models.FileInfo, error)
	Delete(id string) error
	GetFilePath(id string) (string, error)
	Prune(maxAge time.Duration) int
}

// LocalStore implements Store using the local filesystem. Files are stored
// under their id; the download name is kept in memory only.
type LocalStore struct {
	mu      sync.RWMutex
	dir     string
	files   map[string]*models.FileInfo
	nowFunc func() time.Time
	create  func(path string) (io.WriteCloser, error)
}

// NewLocalStore creates a new LocalStore.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating download directory: %w", err)
	}

	return &LocalStore{
		dir:     dir,
		files:   make(map[string]*models.FileInfo),
		nowFunc: time.Now,
		create:  createFile,
	}, nil
}

// Save saves a file to the local filesystem.
func (s *LocalStore) Save(name string, r io.Reader) (*models.FileInfo, error) {
	id := uuid.New().String()
	path := filepath.Join(s.dir, id)

	f, err := s.create(path)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}

	size, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("writing file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("closing file: %w", err)
	}

	info := &models.FileInfo{
		ID:      id,
		Name:    name,
		Size:    size,
		SavedAt: s.nowFunc(),
		Status:  StatusSaved,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[id] = info

	return info, nil
}

func createFile(path string) (io.WriteCloser, error) {
	return os.Create(path)
}

// SaveFile implements viewer.FileSaver.
func (s *LocalStore) SaveFile(ctx context.Context, name string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.Save(name, r)
	return err
}

// Get retrieves file metadata by ID.
func (s *LocalStore) Get(id string) (*models.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", id)
	}

	return info, nil
}

// List returns the most recent files.
func (s *LocalStore) List(limit int) ([]*models.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*models.FileInfo, 0, len(s.files))
	for _, info := range s.files {
		list = append(list, info)
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].SavedAt.After(list[j].SavedAt)
	})

	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}

	return list, nil
}

// Delete removes a file from storage.
func (s *LocalStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deleteLocked(id)
}

func (s *LocalStore) deleteLocked(id string) error {
	if _, ok := s.files[id]; !ok {
		return fmt.Errorf("file not found: %s", id)
	}

	path := filepath.Join(s.dir, id)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting file: %w", err)
	}

	delete(s.files, id)
	return nil
}

// GetFilePath returns the path to a file.
func (s *LocalStore) GetFilePath(id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.files[id]; !ok {
		return "", fmt.Errorf("file not found: %s", id)
	}

	return filepath.Join(s.dir, id), nil
}

// Prune deletes files saved more than maxAge ago and returns how many were
// removed.
func (s *LocalStore) Prune(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.nowFunc().Add(-maxAge)
	removed := 0
	for id, info := range s.files {
		if info.SavedAt.Before(cutoff) {
			if err := s.deleteLocked(id); err == nil {
				removed++
			}
		}
	}
	return removed
}

// DirSaver writes files under their own name into a directory. It is the
// FileSaver of the terminal client.
type DirSaver struct {
	Dir string
}

// SaveFile implements viewer.FileSaver. The name must not contain a path.
func (d DirSaver) SaveFile(ctx context.Context, name string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid file name %q", name)
	}
	if err := os.MkdirAll(d.Dir, 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	path := filepath.Join(d.Dir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("writing file: %w", err)
	}
	return f.Close()
}
