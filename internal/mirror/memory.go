package mirror

import (
	"context"
	"maps"
	"sync"
)

// MemoryIndex keeps documents in process memory.
type MemoryIndex struct {
	mu     sync.RWMutex
	docs   map[string]map[string]Document
	closed bool
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{docs: make(map[string]map[string]Document)}
}

func (m *MemoryIndex) Save(ctx context.Context, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	table, ok := m.docs[doc.EntityType]
	if !ok {
		table = make(map[string]Document)
		m.docs[doc.EntityType] = table
	}
	doc.Body = maps.Clone(doc.Body)
	table[doc.ID] = doc
	return nil
}

func (m *MemoryIndex) Delete(ctx context.Context, entityType, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.docs[entityType], id)
	return nil
}

func (m *MemoryIndex) Search(ctx context.Context, entityType string, q Query, page Page) ([]Document, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, 0, ErrClosed
	}
	docs := make([]Document, 0, len(m.docs[entityType]))
	for _, d := range m.docs[entityType] {
		docs = append(docs, d)
	}
	found, total := paginate(docs, q, page)
	return found, total, nil
}

// Get returns the stored document, if any.
func (m *MemoryIndex) Get(entityType, id string) (Document, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.docs[entityType][id]
	return d, ok
}

// Len counts the documents of one entity type.
func (m *MemoryIndex) Len(entityType string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs[entityType])
}

func (m *MemoryIndex) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	return nil
}

func (m *MemoryIndex) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
