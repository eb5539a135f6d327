package store

import (
	"context"
	"sync"
)

// Memory is an in-process Store. Records live for the lifetime of the process.
type Memory struct {
	mu      sync.RWMutex
	records []StoredRecord
	nextID  int64
	opts    options
}

// NewMemory creates an empty in-memory store
func NewMemory(opts ...Option) *Memory {
	return &Memory{
		nextID: 1,
		opts:   buildOptions(opts),
	}
}

// Append stores a snapshot of rec. Id allocation and insertion happen under
// one lock so ids are never interleaved.
func (m *Memory) Append(ctx context.Context, rec Record) (StoredRecord, error) {
	if err := ctx.Err(); err != nil {
		return StoredRecord{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored := StoredRecord{
		ID:        m.nextID,
		Record:    cloneRecord(rec),
		CreatedAt: formatCreatedAt(m.opts.now()),
	}
	m.nextID++
	m.records = append(m.records, stored)

	return copyStored(stored), nil
}

// ListRecent returns up to limit records, most recent first
func (m *Memory) ListRecent(ctx context.Context, limit int) ([]StoredRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit = normalizeLimit(limit)

	m.mu.RLock()
	all := make([]StoredRecord, len(m.records))
	copy(all, m.records)
	m.mu.RUnlock()

	sortRecent(all)
	if len(all) > limit {
		all = all[:limit]
	}

	out := make([]StoredRecord, len(all))
	for i, r := range all {
		out[i] = copyStored(r)
	}
	return out, nil
}

// Get returns the record with the given id
func (m *Memory) Get(ctx context.Context, id int64) (StoredRecord, error) {
	if err := ctx.Err(); err != nil {
		return StoredRecord{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	// ids are dense and start at 1
	if id < 1 || id > int64(len(m.records)) {
		return StoredRecord{}, ErrNotFound
	}
	return copyStored(m.records[id-1]), nil
}

// FindByURL returns the first record stored for url. This is a linear scan.
func (m *Memory) FindByURL(ctx context.Context, url string) (StoredRecord, error) {
	if err := ctx.Err(); err != nil {
		return StoredRecord{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.records {
		if r.URL == url {
			return copyStored(r), nil
		}
	}
	return StoredRecord{}, ErrNotFound
}

// Close is a no-op
func (m *Memory) Close() error {
	return nil
}

func copyStored(r StoredRecord) StoredRecord {
	r.Record = cloneRecord(r.Record)
	return r
}
