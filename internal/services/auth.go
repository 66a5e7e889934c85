// Package services contains the business logic of the account backend.
// AuthService owns the credential and token lifecycle; UserService is
// the CRUD passthrough over the user repository.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/usermgmt/apiserver/internal/auth"
	"github.com/usermgmt/apiserver/internal/store"
	"github.com/usermgmt/apiserver/types"
)

const defaultUserRole = "user"

// TokenPair bundles a short-lived access token, the long-lived refresh
// token, and a human-readable expiry for the access token.
type TokenPair struct {
	Token          string
	RefreshToken   string
	ExpirationTime string
}

// AuthService orchestrates registration, login, token refresh, and
// access token validation. All collaborators are injected.
type AuthService struct {
	repo   UserRepository
	hasher *auth.PasswordHasher
	codec  *auth.TokenCodec
	events EventSink
}

func NewAuthService(repo UserRepository, hasher *auth.PasswordHasher, codec *auth.TokenCodec, events EventSink) *AuthService {
	return &AuthService{
		repo:   repo,
		hasher: hasher,
		codec:  codec,
		events: events,
	}
}

// Register hashes the password and persists a new user. A taken email
// yields ErrDuplicateEmail; registration never overwrites.
func (s *AuthService) Register(ctx context.Context, email, password, name, city, role string) (types.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return types.User{}, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	role = strings.TrimSpace(role)
	if role == "" {
		role = defaultUserRole
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return types.User{}, err
	}

	user, err := s.repo.Create(ctx, types.User{
		Email:        email,
		Name:         strings.TrimSpace(name),
		City:         strings.TrimSpace(city),
		Role:         role,
		PasswordHash: hashed,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return types.User{}, ErrDuplicateEmail
		}
		return types.User{}, err
	}

	s.events.UserRegistered(ctx, user)
	return user, nil
}

// Login verifies credentials and mints an access/refresh token pair.
// This is the only place a password is ever checked.
func (s *AuthService) Login(ctx context.Context, email, password string) (TokenPair, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return TokenPair{}, fmt.Errorf("%w: missing credentials", ErrValidation)
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return TokenPair{}, ErrAuthentication
		}
		return TokenPair{}, err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return TokenPair{}, ErrAuthentication
	}

	return s.mintPair(user.Email, "")
}

// Refresh validates a refresh token, re-checks that its subject still
// exists, and issues a new access token. The refresh token is echoed
// back unchanged; there is no rotation. Access tokens are rejected.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	subject, err := s.codec.Verify(refreshToken, auth.KindRefresh)
	if err != nil {
		return TokenPair{}, ErrInvalidToken
	}

	user, err := s.repo.GetByEmail(ctx, subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return TokenPair{}, ErrInvalidToken
		}
		return TokenPair{}, err
	}

	return s.mintPair(user.Email, refreshToken)
}

// ValidateAccess verifies an access token and returns its subject
// email. Refresh tokens are rejected here regardless of expiry.
func (s *AuthService) ValidateAccess(ctx context.Context, token string) (string, error) {
	subject, err := s.codec.Verify(token, auth.KindAccess)
	if err != nil {
		return "", ErrInvalidToken
	}
	return subject, nil
}

func (s *AuthService) mintPair(subject, existingRefresh string) (TokenPair, error) {
	access, err := s.codec.Issue(subject, auth.KindAccess)
	if err != nil {
		return TokenPair{}, err
	}

	refresh := existingRefresh
	if refresh == "" {
		refresh, err = s.codec.Issue(subject, auth.KindRefresh)
		if err != nil {
			return TokenPair{}, err
		}
	}

	return TokenPair{
		Token:          access,
		RefreshToken:   refresh,
		ExpirationTime: expiryString(s.codec.AccessTTL()),
	}, nil
}

func expiryString(ttl time.Duration) string {
	if ttl < time.Hour {
		return fmt.Sprintf("%d Min", int(ttl.Minutes()))
	}
	return fmt.Sprintf("%d Hrs", int(ttl.Hours()))
}
