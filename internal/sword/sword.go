// Package sword serves the sword catalogue. Records are free-form column
// maps imported from the catalogue spreadsheets, keyed by their "Index"
// column.
package sword

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
)

const (
	FieldIndex = "Index"
	FieldMedia = "MediaAttachments"
)

var (
	ErrNotFound  = errors.New("sword not found")
	ErrDuplicate = errors.New("sword index already exists")
)

// Sword is one catalogue record.
type Sword = map[string]any

// Result is one page of a search plus the total match count.
type Result struct {
	Swords []Sword
	Total  int64
}

type Store interface {
	Search(ctx context.Context, q Query) (Result, error)
	FindByIndex(ctx context.Context, index string) (Sword, error)
	// Create stores s under the next free numeric index and returns the
	// stored record.
	Create(ctx context.Context, s Sword) (Sword, error)
	// Update merges fields into the record and returns the result.
	Update(ctx context.Context, index string, fields Sword) (Sword, error)
	Delete(ctx context.Context, index string) error
	// Distinct lists the values of field across all records.
	Distinct(ctx context.Context, field string) ([]string, error)
}

// MemoryStore keeps records in insertion order.
type MemoryStore struct {
	mu     sync.RWMutex
	swords []Sword
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(records ...Sword) *MemoryStore {
	m := &MemoryStore{}
	for _, r := range records {
		m.swords = append(m.swords, copySword(r))
	}
	return m
}

func (m *MemoryStore) Search(_ context.Context, q Query) (Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	match := q.matcher()
	var hits []Sword
	for _, s := range m.swords {
		if match(s) {
			hits = append(hits, s)
		}
	}

	res := Result{Swords: []Sword{}, Total: int64(len(hits))}
	start, end := q.window(len(hits))
	for _, s := range hits[start:end] {
		res.Swords = append(res.Swords, copySword(s))
	}
	return res, nil
}

func (m *MemoryStore) FindByIndex(_ context.Context, index string) (Sword, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if i := m.find(index); i >= 0 {
		return copySword(m.swords[i]), nil
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) Create(_ context.Context, s Sword) (Sword, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var highest int64
	for _, existing := range m.swords {
		if n, err := strconv.ParseInt(indexOf(existing), 10, 64); err == nil && n > highest {
			highest = n
		}
	}

	rec := copySword(s)
	rec[FieldIndex] = strconv.FormatInt(highest+1, 10)
	m.swords = append(m.swords, rec)
	return copySword(rec), nil
}

func (m *MemoryStore) Update(_ context.Context, index string, fields Sword) (Sword, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.find(index)
	if i < 0 {
		return nil, ErrNotFound
	}
	next := copySword(m.swords[i])
	for k, v := range fields {
		next[k] = v
	}
	m.swords[i] = next
	return copySword(next), nil
}

func (m *MemoryStore) Delete(_ context.Context, index string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.find(index)
	if i < 0 {
		return ErrNotFound
	}
	m.swords = append(m.swords[:i], m.swords[i+1:]...)
	return nil
}

func (m *MemoryStore) Distinct(_ context.Context, field string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := map[string]struct{}{}
	for _, s := range m.swords {
		if v, ok := s[field]; ok && v != nil {
			seen[fmt.Sprint(v)] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out, nil
}

// find must be called with the lock held.
func (m *MemoryStore) find(index string) int {
	for i, s := range m.swords {
		if indexOf(s) == index {
			return i
		}
	}
	return -1
}

func indexOf(s Sword) string {
	return fmt.Sprint(s[FieldIndex])
}

func copySword(s Sword) Sword {
	out := make(Sword, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
