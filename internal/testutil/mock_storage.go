// mock_storage.go - Mock download store for testing
package testutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/orvd/logviewer/internal/models"
	"github.com/orvd/logviewer/internal/storage"
)

// MockStorage implements storage.Store in memory. GetFilePath materialises
// the file under Dir so it can be served.
type MockStorage struct {
	Dir string
	// SaveErr, when set, is returned by every Save.
	SaveErr error

	files    map[string]*models.FileInfo
	fileData map[string][]byte
	nextID   int
	mu       sync.RWMutex
}

var _ storage.Store = (*MockStorage)(nil)

// NewMockStorage creates an empty mock store writing served files to dir.
func NewMockStorage(dir string) *MockStorage {
	return &MockStorage{
		Dir:      dir,
		files:    make(map[string]*models.FileInfo),
		fileData: make(map[string][]byte),
	}
}

func (m *MockStorage) Save(name string, r io.Reader) (*models.FileInfo, error) {
	if m.SaveErr != nil {
		return nil, m.SaveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	file := &models.FileInfo{
		ID:      fmt.Sprintf("file-%d", m.nextID),
		Name:    name,
		Size:    int64(len(data)),
		SavedAt: time.Now(),
		Status:  storage.StatusSaved,
	}
	m.files[file.ID] = file
	m.fileData[file.ID] = data
	return file, nil
}

func (m *MockStorage) Get(id string) (*models.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	file, ok := m.files[id]
	if !ok {
		return nil, errors.New("file not found")
	}
	return file, nil
}

func (m *MockStorage) List(limit int) ([]*models.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	files := make([]*models.FileInfo, 0, len(m.files))
	for _, file := range m.files {
		files = append(files, file)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].SavedAt.After(files[j].SavedAt) })
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	return files, nil
}

func (m *MockStorage) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[id]; !ok {
		return errors.New("file not found")
	}
	delete(m.files, id)
	delete(m.fileData, id)
	return nil
}

func (m *MockStorage) GetFilePath(id string) (string, error) {
	m.mu.RLock()
	data, ok := m.fileData[id]
	m.mu.RUnlock()
	if !ok {
		return "", errors.New("file not found")
	}

	path := filepath.Join(m.Dir, id)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}

func (m *MockStorage) Prune(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for id, file := range m.files {
		if file.SavedAt.Before(cutoff) {
			delete(m.files, id)
			delete(m.fileData, id)
			removed++
		}
	}
	return removed
}

// Data returns the saved content of id.
func (m *MockStorage) Data(id string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.fileData[id]
	return data, ok
}
