package user

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store enforcing the same unique
// constraints as the database-backed stores.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]*User
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]*User),
		now:   time.Now,
	}
}

func (m *MemoryStore) FindByID(_ context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(u), nil
}

func (m *MemoryStore) FindByProviderID(_ context.Context, p Provider, id string) (*User, error) {
	if id == "" || !p.Supported() {
		return nil, ErrNotFound
	}
	return m.findFirst(func(u *User) bool { return u.ProviderID(p) == id })
}

func (m *MemoryStore) FindByEmail(_ context.Context, email string) (*User, error) {
	return m.findFirst(func(u *User) bool { return u.Email == email })
}

func (m *MemoryStore) FindByUsername(_ context.Context, username string) (*User, error) {
	return m.findFirst(func(u *User) bool { return u.Username == username })
}

func (m *MemoryStore) findFirst(match func(*User) bool) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if match(u) {
			return clone(u), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) Create(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := m.now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	if _, exists := m.users[u.ID]; exists {
		return ErrDuplicate
	}
	if m.conflicts(u, "") {
		return ErrDuplicate
	}

	m.users[u.ID] = clone(u)
	return nil
}

func (m *MemoryStore) Update(_ context.Context, id string, upd Update) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}

	next := clone(existing)
	upd.ApplyTo(next)
	if m.conflicts(next, id) {
		return nil, ErrDuplicate
	}
	next.UpdatedAt = m.now().UTC()

	m.users[id] = next
	return clone(next), nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *MemoryStore) List(_ context.Context) ([]*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, clone(u))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// conflicts must be called with the write lock held.
func (m *MemoryStore) conflicts(u *User, selfID string) bool {
	for id, other := range m.users {
		if id == selfID {
			continue
		}
		if u.Email != "" && other.Email == u.Email {
			return true
		}
		if u.Username != "" && other.Username == u.Username {
			return true
		}
		for _, p := range Providers() {
			if pid := u.ProviderID(p); pid != "" && other.ProviderID(p) == pid {
				return true
			}
		}
	}
	return false
}

func clone(u *User) *User {
	c := *u
	return &c
}
