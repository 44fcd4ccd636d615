package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
)

// Memory is an in-process Store. Used by tests and by the headless checker
// when no data directory is given.
type Memory struct {
	mu      sync.Mutex
	nextID  int64
	records map[string][]Record
	closed  bool

	// Writes counts successful Create/Update/Delete calls.
	Writes int
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string][]Record)}
}

func (m *Memory) Create(_ context.Context, collection string, value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("encoding %s record: %w", collection, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", ErrClosed
	}

	m.nextID++
	id := strconv.FormatInt(m.nextID, 10)
	m.records[collection] = append(m.records[collection], Record{ID: id, Data: data})
	m.Writes++
	return id, nil
}

func (m *Memory) Read(_ context.Context, collection, id string, dst any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	for _, r := range m.records[collection] {
		if r.ID == id {
			return json.Unmarshal(r.Data, dst)
		}
	}
	return ErrNotFound
}

func (m *Memory) ReadAll(_ context.Context, collection string) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}

	var out []Record
	for _, r := range m.records[collection] {
		if r.ID == SingletonID {
			continue
		}
		out = append(out, Record{ID: r.ID, Data: append(json.RawMessage(nil), r.Data...)})
	}
	return out, nil
}

func (m *Memory) Update(_ context.Context, collection, id string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s record: %w", collection, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	recs := m.records[collection]
	for i := range recs {
		if recs[i].ID == id {
			recs[i].Data = data
			m.Writes++
			return nil
		}
	}
	if id != SingletonID {
		return ErrNotFound
	}
	m.records[collection] = append(recs, Record{ID: id, Data: data})
	m.Writes++
	return nil
}

func (m *Memory) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	recs := m.records[collection]
	for i := range recs {
		if recs[i].ID == id {
			m.records[collection] = append(recs[:i], recs[i+1:]...)
			m.Writes++
			return nil
		}
	}
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// WriteCount returns Writes under the lock.
func (m *Memory) WriteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Writes
}
