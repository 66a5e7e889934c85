package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/usermgmt/apiserver/internal/auth"
	"github.com/usermgmt/apiserver/internal/store"
	"github.com/usermgmt/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	List(ctx context.Context) ([]types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	Delete(ctx context.Context, id int) error
}

// EventSink receives account lifecycle notifications. Implementations
// must not fail the calling operation; delivery is best effort.
type EventSink interface {
	UserRegistered(ctx context.Context, user types.User)
	UserUpdated(ctx context.Context, user types.User)
	UserDeleted(ctx context.Context, user types.User)
}

// UserUpdate carries the mutable user fields. Password is re-hashed and
// stored only when non-empty.
type UserUpdate struct {
	Email    string
	Name     string
	City     string
	Role     string
	Password string
}

// UserService encapsulates user record use-cases.
type UserService struct {
	repo   UserRepository
	hasher *auth.PasswordHasher
	events EventSink
}

func NewUserService(repo UserRepository, hasher *auth.PasswordHasher, events EventSink) *UserService {
	return &UserService{repo: repo, hasher: hasher, events: events}
}

func (s *UserService) GetAll(ctx context.Context) ([]types.User, error) {
	return s.repo.List(ctx)
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return s.repo.GetByEmail(ctx, email)
}

// Update overwrites the user's email, name, city, and role, and
// re-hashes the password only when a new one is supplied.
func (s *UserService) Update(ctx context.Context, id int, update UserUpdate) (types.User, error) {
	update.Email = strings.TrimSpace(update.Email)
	if update.Email == "" {
		return types.User{}, fmt.Errorf("%w: email is required", ErrValidation)
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}

	user.Email = update.Email
	user.Name = strings.TrimSpace(update.Name)
	user.City = strings.TrimSpace(update.City)
	user.Role = strings.TrimSpace(update.Role)

	if update.Password != "" {
		hashed, err := s.hasher.Hash(update.Password)
		if err != nil {
			return types.User{}, err
		}
		user.PasswordHash = hashed
	}

	updated, err := s.repo.Update(ctx, user)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return types.User{}, ErrDuplicateEmail
		}
		return types.User{}, err
	}

	s.events.UserUpdated(ctx, updated)
	return updated, nil
}

func (s *UserService) Delete(ctx context.Context, id int) error {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.events.UserDeleted(ctx, user)
	return nil
}
