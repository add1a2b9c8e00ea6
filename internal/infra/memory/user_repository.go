package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/Krusherk/ritquiz/internal/domain"
)

// UserRepository is an in-memory implementation of app.UserRepository.
// Username reservations and user records are mutated under one lock, so a
// claim is atomic: of two concurrent claims for the same lowercased
// username, at most one succeeds.
type UserRepository struct {
	mu        sync.RWMutex
	users     map[string]domain.User
	usernames map[string]string // lowercased username -> identity ID
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		users:     make(map[string]domain.User),
		usernames: make(map[string]string),
	}
}

func (r *UserRepository) Get(_ context.Context, id string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (r *UserRepository) Create(_ context.Context, user domain.User) error {
	key := strings.ToLower(user.Username)
	r.mu.Lock()
	defer r.mu.Unlock()
	// An identity claims exactly once; a repeat is rejected like the
	// Postgres tier's primary-key violation, leaving the original record
	// and reservation untouched.
	if _, exists := r.users[user.ID]; exists {
		return domain.ErrInvalidState
	}
	if _, taken := r.usernames[key]; taken {
		return domain.ErrUsernameTaken
	}
	r.usernames[key] = user.ID
	r.users[user.ID] = user
	return nil
}

func (r *UserRepository) Update(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	r.users[user.ID] = user
	return nil
}

func (r *UserRepository) UsernameExists(_ context.Context, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.usernames[strings.ToLower(username)]
	return ok, nil
}
