package auth

import (
	"context"
	"sync"
)

// memstore is a development-only in-memory user store used when no DB is
// configured.
type memstore struct {
	mu    sync.RWMutex
	users map[string]*User // by id
}

func NewMemoryStore() UserStore {
	return &memstore{users: make(map[string]*User)}
}

func (m *memstore) CreateUser(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cur := range m.users {
		if cur.Email == u.Email || cur.Username == u.Username {
			return ErrUserExists
		}
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memstore) UserByEmail(_ context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memstore) UserByID(_ context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}
