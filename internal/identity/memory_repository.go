package identity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryRepository struct {
	mu        sync.RWMutex
	users     map[string]User
	addresses map[string]Address
	images    map[string][]UserImage
}

// NewMemoryRepository builds an in-memory user store for tests and local runs.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		users:     make(map[string]User),
		addresses: make(map[string]Address),
		images:    make(map[string][]UserImage),
	}
}

func (r *memoryRepository) Create(_ context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.ID == user.ID || existing.Email == user.Email || existing.Username == user.Username {
			return ErrUserExists
		}
	}
	r.users[user.ID] = user
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (r *memoryRepository) FindByEmail(_ context.Context, email string) (User, error) {
	return r.find(func(u User) bool { return u.Email == email })
}

func (r *memoryRepository) FindByUsername(_ context.Context, username string) (User, error) {
	return r.find(func(u User) bool { return u.Username == username })
}

func (r *memoryRepository) find(match func(User) bool) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if match(user) {
			return user, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *memoryRepository) UpdateProfile(_ context.Context, id string, update ProfileUpdate) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	if update.FirstName != nil {
		user.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		user.LastName = *update.LastName
	}
	if update.ProfileImage != nil {
		user.ProfileImage = *update.ProfileImage
	}
	if update.Bio != nil {
		user.Bio = *update.Bio
	}
	r.users[id] = user
	return user, nil
}

func (r *memoryRepository) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	return r.mutate(id, func(u *User) { u.LastLogin = &at })
}

func (r *memoryRepository) UpdateTokenVersion(_ context.Context, id string, version int) error {
	return r.mutate(id, func(u *User) { u.TokenVersion = version })
}

func (r *memoryRepository) SetStaff(_ context.Context, id string, staff bool) error {
	return r.mutate(id, func(u *User) { u.IsStaff = staff })
}

func (r *memoryRepository) mutate(id string, fn func(*User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	fn(&user)
	r.users[id] = user
	return nil
}

func (r *memoryRepository) UpsertAddress(_ context.Context, addr Address) (Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[addr.UserID]; !ok {
		return Address{}, ErrNotFound
	}
	if existing, ok := r.addresses[addr.UserID]; ok {
		addr.ID = existing.ID
	} else {
		addr.ID = uuid.NewString()
	}
	r.addresses[addr.UserID] = addr
	return addr, nil
}

func (r *memoryRepository) GetAddress(_ context.Context, userID string) (Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	addr, ok := r.addresses[userID]
	if !ok {
		return Address{}, ErrNotFound
	}
	return addr, nil
}

func (r *memoryRepository) AddImage(_ context.Context, userID string, img UserImage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[userID]; !ok {
		return ErrNotFound
	}
	r.images[userID] = append(r.images[userID], img)
	return nil
}

func (r *memoryRepository) ListImages(_ context.Context, userID string) ([]UserImage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]UserImage{}, r.images[userID]...), nil
}
