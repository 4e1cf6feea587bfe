// Package repository reads SQL files from project repositories.
package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

var (
	// ErrFileNotFound reports a path that does not exist at the given ref.
	ErrFileNotFound = errors.New("file not found")
	// ErrRepoUnavailable reports transport, authentication or server failures.
	ErrRepoUnavailable = errors.New("repository unavailable")
)

// Client lists and reads files of a project at a ref.
type Client interface {
	ListFiles(ctx context.Context, projectID, ref string) ([]string, error)
	GetFileContent(ctx context.Context, projectID, path, ref string) ([]byte, error)
}

// Memory is an in-memory Client. Refs are ignored.
type Memory struct {
	mu       sync.RWMutex
	projects map[string]map[string][]byte
	failures map[string]error
}

// NewMemory returns an empty repository.
func NewMemory() *Memory {
	return &Memory{
		projects: make(map[string]map[string][]byte),
		failures: make(map[string]error),
	}
}

// Add stores a file.
func (m *Memory) Add(projectID, path string, content []byte) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	files, ok := m.projects[projectID]
	if !ok {
		files = make(map[string][]byte)
		m.projects[projectID] = files
	}
	files[path] = content
	return m
}

// Fail makes every read of path return err.
func (m *Memory) Fail(path string, err error) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[path] = err
	return m
}

// ListFiles implements Client.
func (m *Memory) ListFiles(_ context.Context, projectID, _ string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	files, ok := m.projects[projectID]
	if !ok {
		return nil, errors.Wrapf(ErrRepoUnavailable, "project %s", projectID)
	}
	out := make([]string, 0, len(files))
	for p := range files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

// GetFileContent implements Client.
func (m *Memory) GetFileContent(_ context.Context, projectID, path, _ string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err, ok := m.failures[path]; ok {
		return nil, err
	}
	content, ok := m.projects[projectID][path]
	if !ok {
		return nil, errors.Wrapf(ErrFileNotFound, "%s", path)
	}
	return content, nil
}
