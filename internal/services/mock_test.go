package services

import (
	"context"
	"sync"
	"time"

	"github.com/usermgmt/apiserver/internal/store"
	"github.com/usermgmt/apiserver/types"
)

// fakeUserRepo is an in-memory UserRepository with the same duplicate
// and not-found semantics as the postgres store.
type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[int]types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int]types.User)}
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserRepo) List(ctx context.Context) ([]types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	users := make([]types.User, 0, len(f.users))
	for id := 1; id <= f.nextID; id++ {
		if user, ok := f.users[id]; ok {
			users = append(users, user)
		}
	}
	return users, nil
}

func (f *fakeUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == user.Email {
			return types.User{}, store.ErrDuplicate
		}
	}
	f.nextID++
	user.ID = f.nextID
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) Update(ctx context.Context, user types.User) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.ID]; !ok {
		return types.User{}, store.ErrNotFound
	}
	for id, existing := range f.users {
		if id != user.ID && existing.Email == user.Email {
			return types.User{}, store.ErrDuplicate
		}
	}
	user.UpdatedAt = time.Now()
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

// captureSink records which lifecycle events were emitted.
type captureSink struct {
	mu     sync.Mutex
	events []string
}

func (c *captureSink) record(event string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *captureSink) recorded() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.events...)
}

func (c *captureSink) UserRegistered(ctx context.Context, user types.User) { c.record("registered") }
func (c *captureSink) UserUpdated(ctx context.Context, user types.User)    { c.record("updated") }
func (c *captureSink) UserDeleted(ctx context.Context, user types.User)    { c.record("deleted") }
