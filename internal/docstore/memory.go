package docstore

import (
	"context"
	"sort"
	"sync"
)

const defaultMaxAttempts = 5

type memDoc struct {
	data    map[string]any
	version int64
}

// Memory is a process-local Store. Transactions use the same optimistic
// version check as the Postgres store.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]*memDoc
	maxAttempts int
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithMaxAttempts bounds transaction retries.
func WithMaxAttempts(n int) MemoryOption {
	return func(m *Memory) {
		if n > 0 {
			m.maxAttempts = n
		}
	}
}

// NewMemory creates an empty in-memory store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		collections: make(map[string]map[string]*memDoc),
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Query(ctx context.Context, q Query) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	var docs []Document
	for id, doc := range m.collections[q.Collection] {
		if q.StartAfter != "" && id <= q.StartAfter {
			continue
		}
		keep := true
		for _, f := range q.Filters {
			if !matches(id, doc.data, f) {
				keep = false
				break
			}
		}
		if keep {
			docs = append(docs, Document{ID: id, Data: doc.data})
		}
	}
	m.mu.RUnlock()

	orderField := q.orderField()
	if orderField != FieldID {
		filtered := docs[:0]
		for _, d := range docs {
			if _, ok := lookup(d.Data, d.ID, orderField); ok {
				filtered = append(filtered, d)
			}
		}
		docs = filtered
	}

	sort.SliceStable(docs, func(i, j int) bool {
		a, _ := lookup(docs[i].Data, docs[i].ID, orderField)
		b, _ := lookup(docs[j].Data, docs[j].ID, orderField)
		c, _ := compare(a, b)
		if c == 0 {
			if q.Descending {
				return docs[i].ID > docs[j].ID
			}
			return docs[i].ID < docs[j].ID
		}
		if q.Descending {
			return c > 0
		}
		return c < 0
	})

	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}

	out := make([]Document, len(docs))
	for i, d := range docs {
		out[i] = Document{ID: d.ID, Data: normalizeMap(project(d.Data, q.Select))}
	}
	return out, nil
}

func (m *Memory) Get(ctx context.Context, collection, id string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, _, ok := m.read(collection, id)
	if !ok {
		return nil, nil
	}
	return &Document{ID: id, Data: data}, nil
}

func (m *Memory) read(collection, id string) (map[string]any, int64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.collections[collection][id]
	if !ok {
		return nil, 0, false
	}
	return normalizeMap(doc.data), doc.version, true
}

func (m *Memory) RunTransaction(ctx context.Context, collection, id string, fn TxFunc) error {
	for attempt := 0; attempt < m.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		current, version, _ := m.read(collection, id)
		next, err := fn(current)
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}

		m.mu.Lock()
		var seen int64
		if doc, ok := m.collections[collection][id]; ok {
			seen = doc.version
		}
		if seen != version {
			m.mu.Unlock()
			continue
		}
		m.put(collection, id, normalizeMap(next), version+1)
		m.mu.Unlock()
		return nil
	}
	return ErrContention
}

func (m *Memory) BatchWrite(ctx context.Context, writes []Write) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(writes) > MaxBatchWrites {
		return ErrBatchTooLarge
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range writes {
		if w.Mode == ModeUpdate {
			if _, ok := m.collections[w.Collection][w.ID]; !ok {
				return ErrNotFound
			}
		}
	}

	for _, w := range writes {
		doc := m.collections[w.Collection][w.ID]
		var version int64
		if doc != nil {
			version = doc.version
		}
		fields := normalizeMap(w.Fields)
		switch w.Mode {
		case ModeDelete:
			delete(m.collections[w.Collection], w.ID)
		case ModeSet:
			m.put(w.Collection, w.ID, fields, version+1)
		case ModeMerge, ModeUpdate:
			var base map[string]any
			if doc != nil {
				base = normalizeMap(doc.data)
			}
			m.put(w.Collection, w.ID, MergeFields(base, fields), version+1)
		}
	}
	return nil
}

func (m *Memory) put(collection, id string, data map[string]any, version int64) {
	if data == nil {
		data = map[string]any{}
	}
	coll, ok := m.collections[collection]
	if !ok {
		coll = make(map[string]*memDoc)
		m.collections[collection] = coll
	}
	coll[id] = &memDoc{data: data, version: version}
}
