package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryProvider is an in-memory Provider used in tests. It records the
// order of uploads so ordering guarantees can be asserted.
type MemoryProvider struct {
	mu      sync.Mutex
	objects map[string][]byte
	uploads []string
}

var _ Provider = (*MemoryProvider)(nil)

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{objects: map[string][]byte{}}
}

func (m *MemoryProvider) Upload(ctx context.Context, p string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := normalizeKey(p)
	m.objects[key] = data
	m.uploads = append(m.uploads, key)
	return nil
}

func (m *MemoryProvider) GetFileStream(ctx context.Context, p string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[normalizeKey(p)]
	if !ok {
		return nil, fmt.Errorf("object not found: %s", p)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MemoryProvider) Exists(ctx context.Context, p string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[normalizeKey(p)]
	return ok, nil
}

func (m *MemoryProvider) Delete(ctx context.Context, p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, normalizeKey(p))
	return nil
}

func (m *MemoryProvider) DeleteDirectory(ctx context.Context, p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := normalizeKey(p) + "/"
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			delete(m.objects, key)
		}
	}
	return nil
}

func (m *MemoryProvider) GetPathStats(ctx context.Context, p string) (*PathStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := normalizeKey(p)
	if data, ok := m.objects[key]; ok {
		return &PathStats{Size: int64(len(data)), ModTime: time.Now()}, nil
	}
	prefix := key + "/"
	for stored := range m.objects {
		if strings.HasPrefix(stored, prefix) {
			return &PathStats{IsDir: true}, nil
		}
	}
	return nil, fmt.Errorf("object not found: %s", p)
}

// Object returns the stored bytes for a key, or nil when absent.
func (m *MemoryProvider) Object(p string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.objects[normalizeKey(p)]
}

// Uploads returns every uploaded key in upload order.
func (m *MemoryProvider) Uploads() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.uploads))
	copy(out, m.uploads)
	return out
}

// Keys returns all stored keys sorted.
func (m *MemoryProvider) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for key := range m.objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
