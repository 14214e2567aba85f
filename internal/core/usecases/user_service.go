package usecases

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/samirrijal/detour/internal/core/domain"
	"github.com/samirrijal/detour/internal/core/ports"
)

// UserService handles accounts and bearer sessions.
type UserService struct {
	users    ports.UserRepository
	sessions ports.SessionRepository
	tokenTTL time.Duration
	now      func() time.Time
}

// NewUserService creates a new UserService. Sessions live for tokenTTL.
func NewUserService(users ports.UserRepository, sessions ports.SessionRepository, tokenTTL time.Duration) *UserService {
	if tokenTTL <= 0 {
		tokenTTL = time.Hour
	}
	return &UserService{users: users, sessions: sessions, tokenTTL: tokenTTL, now: time.Now}
}

// WithClock overrides the session clock.
func (s *UserService) WithClock(now func() time.Time) *UserService {
	s.now = now
	return s
}

// Register creates a normal-access account.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, domain.ErrMissingCredential
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &domain.User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: string(hash),
		AccessLevel:  domain.AccessNormal,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login checks credentials and issues a session token.
func (s *UserService) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrUnauthorized
	}

	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	session := &domain.Session{
		Token:     token,
		UserID:    u.ID,
		ExpiresAt: s.now().Add(s.tokenTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Authenticate resolves a bearer token to its user.
func (s *UserService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.ErrUnauthorized
	}
	session, err := s.sessions.GetValid(ctx, token, s.now())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	u, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	return u, nil
}

// SetAccessLevel changes a user's access level. Only admins may do this.
func (s *UserService) SetAccessLevel(ctx context.Context, actor *domain.User, userID string, level int) (*domain.User, error) {
	if actor == nil || !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	if !domain.ValidAccessLevel(level) {
		return nil, domain.ErrInvalidAccess
	}
	if err := s.users.SetAccessLevel(ctx, userID, level); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, userID)
}

// PurgeExpiredSessions drops sessions past their expiry and reports how many went.
func (s *UserService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx, s.now())
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
