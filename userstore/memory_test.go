package userstore

import (
	"context"
	"sync"
	"testing"

	"github.com/inkstone/wbauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCreateAndFind(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	u, err := m.CreateUser(ctx, wbauth.CreateUserInput{Email: "a@example.com", Username: "alice", PasswordHash: "h"})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.False(t, u.CreatedAt.IsZero())

	byEmail, err := m.FindUserByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, u, byEmail)

	byID, err := m.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u, byID)
}

func TestMemoryNotFound(t *testing.T) {
	m := NewMemory()
	_, err := m.FindUserByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, wbauth.ErrUserNotFound)
	_, err = m.GetUserByID(context.Background(), "missing")
	assert.ErrorIs(t, err, wbauth.ErrUserNotFound)
}

func TestMemoryDuplicates(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.CreateUser(ctx, wbauth.CreateUserInput{Email: "a@example.com", Username: "alice"})
	require.NoError(t, err)

	_, err = m.CreateUser(ctx, wbauth.CreateUserInput{Email: "a@example.com", Username: "other"})
	assert.ErrorIs(t, err, wbauth.ErrAccountExists)
	_, err = m.CreateUser(ctx, wbauth.CreateUserInput{Email: "b@example.com", Username: "alice"})
	assert.ErrorIs(t, err, wbauth.ErrAccountExists)
	assert.Equal(t, 1, m.Len())
}

func TestMemoryConcurrentCreateSingleWinner(t *testing.T) {
	m := NewMemory()
	const n = 16

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.CreateUser(context.Background(), wbauth.CreateUserInput{Email: "race@example.com", Username: "racer"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok int
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, wbauth.ErrAccountExists)
	}
	assert.Equal(t, 1, ok)
}
