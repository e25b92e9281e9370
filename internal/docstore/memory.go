package docstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory keeps documents in process. Subscribers are notified synchronously
// from the writing goroutine.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]Document
	listeners   *listenerSet
	now         func() time.Time
	// version counts writes; snapshots carry the version they saw.
	version uint64
}

func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string]map[string]Document),
		listeners:   newListenerSet(),
		now:         time.Now,
	}
}

// WithClock replaces the clock used for server timestamps.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) Get(_ context.Context, collection, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.collections[collection][id]
	if !ok {
		return Document{}, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return Document{ID: doc.ID, Data: cloneData(doc.Data), UpdatedAt: doc.UpdatedAt}, nil
}

func (m *Memory) MergeWrite(_ context.Context, collection, id string, fields map[string]any) error {
	if id == "" {
		return fmt.Errorf("merge %s: empty id", collection)
	}
	now := m.now()
	m.mu.Lock()
	coll, ok := m.collections[collection]
	if !ok {
		coll = make(map[string]Document)
		m.collections[collection] = coll
	}
	doc, ok := coll[id]
	if !ok {
		doc = Document{ID: id, Data: make(map[string]any)}
	} else {
		doc.Data = cloneData(doc.Data)
	}
	for k, v := range fields {
		if _, stamp := v.(serverTimestamp); stamp {
			v = now
		}
		doc.Data[k] = v
	}
	doc.UpdatedAt = now
	coll[id] = doc
	m.version++
	m.mu.Unlock()

	m.notify(collection)
	return nil
}

func (m *Memory) QueryEqual(ctx context.Context, collection, field string, value any) ([]Document, error) {
	docs, err := m.List(ctx, collection)
	if err != nil {
		return nil, err
	}
	return filter(docs, func(d Document) bool { return d.Data[field] == value }), nil
}

func (m *Memory) List(_ context.Context, collection string) ([]Document, error) {
	docs, _ := m.snapshot(collection)
	return docs, nil
}

func (m *Memory) Append(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id := uuid.NewString()
	if err := m.MergeWrite(ctx, collection, id, fields); err != nil {
		return "", err
	}
	return id, nil
}

func (m *Memory) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	_, ok := m.collections[collection][id]
	delete(m.collections[collection], id)
	if ok {
		m.version++
	}
	m.mu.Unlock()
	if ok {
		m.notify(collection)
	}
	return nil
}

func (m *Memory) Subscribe(collection string, pred Predicate, onChange func([]Document)) (Unsubscribe, error) {
	l := &listener{pred: pred, onChange: onChange}
	id, _ := m.listeners.add(collection, l)
	docs, seq := m.snapshot(collection)
	l.deliver(seq, docs)

	var once sync.Once
	return func() {
		once.Do(func() {
			l.close()
			m.listeners.remove(collection, id)
		})
	}, nil
}

// snapshot returns the collection with the store version it reflects, offset
// by one so the first delivery is never mistaken for a repeat.
func (m *Memory) snapshot(collection string) ([]Document, uint64) {
	m.mu.RLock()
	docs := make([]Document, 0, len(m.collections[collection]))
	for _, d := range m.collections[collection] {
		docs = append(docs, Document{ID: d.ID, Data: cloneData(d.Data), UpdatedAt: d.UpdatedAt})
	}
	seq := m.version + 1
	m.mu.RUnlock()
	sortByID(docs)
	return docs, seq
}

func (m *Memory) notify(collection string) {
	ls := m.listeners.of(collection)
	if len(ls) == 0 {
		return
	}
	docs, seq := m.snapshot(collection)
	for _, l := range ls {
		l.deliver(seq, docs)
	}
}
