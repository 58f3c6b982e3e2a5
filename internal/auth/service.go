package auth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/park285/chess-arena/internal/obslog"
)

type staticErr string

func (e staticErr) Error() string { return string(e) }

const (
	ErrUserExists     = staticErr("user already exists")
	ErrBadCredentials = staticErr("invalid credentials")
	ErrMissingFields  = staticErr("missing required fields")
)

// Identity is the verified identity attached to a connection. The game
// core consumes it read-only.
type Identity struct {
	UserID   string
	Username string
}

// User is a stored account record.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// UserStore persists accounts. Missing users return (nil, nil).
type UserStore interface {
	CreateUser(ctx context.Context, u *User) error
	UserByEmail(ctx context.Context, email string) (*User, error)
	UserByID(ctx context.Context, id string) (*User, error)
}

// Service issues and verifies bearer tokens for account credentials.
type Service struct {
	store  UserStore
	secret []byte
	ttl    time.Duration
}

func NewService(store UserStore, secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Service{store: store, secret: []byte(secret), ttl: ttl}
}

// Register creates an account and returns a signed token for it.
func (s *Service) Register(ctx context.Context, username, email, password string) (string, *Identity, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if username == "" || email == "" || password == "" {
		return "", nil, ErrMissingFields
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, err
	}
	u := &User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return "", nil, err
	}
	obslog.L().Info("auth_register", zap.String("user_id", u.ID), zap.String("username", u.Username))
	ident := &Identity{UserID: u.ID, Username: u.Username}
	token, err := s.sign(ident)
	if err != nil {
		return "", nil, err
	}
	return token, ident, nil
}

// Login verifies credentials and returns a signed token.
func (s *Service) Login(ctx context.Context, email, password string) (string, *Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.store.UserByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}
	if u == nil {
		return "", nil, ErrBadCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrBadCredentials
	}
	ident := &Identity{UserID: u.ID, Username: u.Username}
	token, err := s.sign(ident)
	if err != nil {
		return "", nil, err
	}
	return token, ident, nil
}

// Me echoes the stored account for a verified identity.
func (s *Service) Me(ctx context.Context, ident *Identity) (*User, error) {
	if ident == nil {
		return nil, ErrBadCredentials
	}
	return s.store.UserByID(ctx, ident.UserID)
}
