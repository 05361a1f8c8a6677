package storage

import (
	"bytes"
	"campusstay/pkg/types"
	"context"
	"io"
	"path"
	"sync"
)

type memoryObject struct {
	contentType string
	content     []byte
}

// MemoryStorage holds documents in process for DOCUMENT_STORAGE=memory.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string]memoryObject)}
}

func (m *MemoryStorage) PutDocument(_ context.Context, key, contentType string, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.objects[key] = memoryObject{
		contentType: contentType,
		content:     bytes.Clone(content),
	}
	return nil
}

func (m *MemoryStorage) OpenDocument(_ context.Context, key string) (*types.DocumentContent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, types.ErrDocumentNotFound
	}

	return &types.DocumentContent{
		Body:        io.NopCloser(bytes.NewReader(obj.content)),
		ContentType: obj.contentType,
		FileName:    path.Base(key),
		SizeBytes:   int64(len(obj.content)),
	}, nil
}

// DeleteDocument is idempotent, matching S3 semantics.
func (m *MemoryStorage) DeleteDocument(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.objects, key)
	return nil
}

// Keys lists stored object keys.
func (m *MemoryStorage) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	return keys
}
