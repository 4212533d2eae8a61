package memory

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/d60-Lab/eip-site/pkg/storage"
)

// Backend keeps objects in memory. Used in tests and local runs.
type Backend struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func New() *Backend {
	return &Backend{objects: make(map[string][]byte)}
}

func (b *Backend) Save(_ context.Context, key string, r io.Reader, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data
	return nil
}

func (b *Backend) Open(_ context.Context, key string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *Backend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	return nil
}

// Len reports how many objects are stored.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}
