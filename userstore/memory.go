package userstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/inkstone/wbauth"
)

// Memory is a concurrency-safe in-process user store.
type Memory struct {
	mu         sync.RWMutex
	byID       map[string]wbauth.UserRecord
	byEmail    map[string]string
	byUsername map[string]string
	now        func() time.Time
}

var _ wbauth.UserProvider = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		byID:       make(map[string]wbauth.UserRecord),
		byEmail:    make(map[string]string),
		byUsername: make(map[string]string),
		now:        time.Now,
	}
}

func (m *Memory) FindUserByEmail(_ context.Context, email string) (wbauth.UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[email]
	if !ok {
		return wbauth.UserRecord{}, wbauth.ErrUserNotFound
	}
	return m.byID[id], nil
}

func (m *Memory) GetUserByID(_ context.Context, userID string) (wbauth.UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.byID[userID]
	if !ok {
		return wbauth.UserRecord{}, wbauth.ErrUserNotFound
	}
	return u, nil
}

func (m *Memory) CreateUser(_ context.Context, input wbauth.CreateUserInput) (wbauth.UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.byEmail[input.Email]; taken {
		return wbauth.UserRecord{}, wbauth.ErrAccountExists
	}
	if _, taken := m.byUsername[input.Username]; taken {
		return wbauth.UserRecord{}, wbauth.ErrAccountExists
	}

	u := wbauth.UserRecord{
		ID:           uuid.NewString(),
		Email:        input.Email,
		Username:     input.Username,
		PasswordHash: input.PasswordHash,
		CreatedAt:    m.now().UTC(),
	}
	m.byID[u.ID] = u
	m.byEmail[u.Email] = u.ID
	m.byUsername[u.Username] = u.ID
	return u, nil
}

// Len returns the number of stored users.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}
