// Package auth registers accounts and issues, verifies and revokes session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jo-hoe/imagehost/internal/backend/database"
	"github.com/jo-hoe/imagehost/internal/core"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrDuplicateEmail     = errors.New("email already exists")
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthenticated    = errors.New("no session token presented")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUserNotFound       = errors.New("user not found")
	ErrPasswordTooLong    = fmt.Errorf("password exceeds %d bytes", maxPasswordBytes)
)

// bcrypt rejects longer inputs.
const maxPasswordBytes = 72

type Service struct {
	databaseService database.DatabaseService
	sessions        SessionStore
	secret          []byte
	registerTTL     time.Duration
	loginTTL        time.Duration
	hashCost        int
	now             func() time.Time
}

// Session is an issued token together with the account it belongs to.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *database.UserAccount
}

// Identity is the verified caller of a request.
type Identity struct {
	User      *database.UserAccount
	SessionID string
}

func NewService(databaseService database.DatabaseService, sessions SessionStore, config core.Auth) (*Service, error) {
	if config.Secret == "" {
		return nil, fmt.Errorf("auth secret must not be empty")
	}
	return &Service{
		databaseService: databaseService,
		sessions:        sessions,
		secret:          []byte(config.Secret),
		registerTTL:     config.RegisterTokenTTL,
		loginTTL:        config.LoginTokenTTL,
		hashCost:        bcrypt.DefaultCost,
		now:             time.Now,
	}, nil
}

// Register creates the account and signs it in. An existing email takes
// precedence over an existing username when reporting the conflict.
func (s *Service) Register(ctx context.Context, username, email, password string) (*Session, error) {
	if len(password) > maxPasswordBytes {
		return nil, ErrPasswordTooLong
	}
	if err := s.checkAvailable(email, username); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.databaseService.CreateUser(&database.UserAccount{
		Username: username,
		Email:    email,
		Password: string(hash),
	})
	if errors.Is(err, database.ErrDuplicateUser) {
		// lost a race against a concurrent registration
		if conflict := s.checkAvailable(email, username); conflict != nil {
			return nil, conflict
		}
		return nil, ErrDuplicateUsername
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user registered", "user_id", user.ID, "username", user.Username)
	return s.issueSession(ctx, user, s.registerTTL)
}

func (s *Service) checkAvailable(email, username string) error {
	existing, err := s.databaseService.FindUserByEmailOrUsername(email, username)
	if err != nil {
		return fmt.Errorf("failed to look up existing user: %w", err)
	}
	if existing == nil {
		return nil
	}
	if existing.Email == email {
		return ErrDuplicateEmail
	}
	return ErrDuplicateUsername
}

func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.databaseService.GetUserByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issueSession(ctx, user, s.loginTTL)
}

func (s *Service) issueSession(ctx context.Context, user *database.UserAccount, ttl time.Duration) (*Session, error) {
	sessionID, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}
	issuedAt := s.now()
	expiresAt := issuedAt.Add(ttl)

	token, err := signToken(s.secret, user.ID, sessionID.String(), issuedAt, expiresAt)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Create(ctx, sessionID.String(), user.ID, ttl); err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Authenticate resolves a token to its caller. The token must carry a valid
// signature, be unexpired and belong to a session that was not revoked.
func (s *Service) Authenticate(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	claims, err := parseToken(s.secret, token, s.now)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	active, err := s.sessions.Exists(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, fmt.Errorf("%w: session %s revoked", ErrInvalidToken, claims.ID)
	}

	user, err := s.databaseService.GetUserByID(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return &Identity{User: user, SessionID: claims.ID}, nil
}

// Logout revokes the session so its token stops authenticating.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return err
	}
	slog.Info("session revoked", "session_id", sessionID)
	return nil
}

func (s *Service) Close() error {
	return s.sessions.Close()
}
