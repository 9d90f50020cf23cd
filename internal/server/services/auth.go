package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophblog/internal/common"
	"github.com/dmitrijs2005/gophblog/internal/server/auth"
	"github.com/dmitrijs2005/gophblog/internal/server/models"
)

// CredentialStore is what AuthService needs from the user side.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	Create(ctx context.Context, in models.NewUser) (*models.User, error)
}

// AuthResponse is returned by both login and registration.
type AuthResponse struct {
	User        models.PublicUser `json:"user"`
	AccessToken string            `json:"accessToken"`
}

// AuthService validates credentials, issues tokens and resolves the caller
// behind a bearer token. Sessions are stateless: nothing is stored per token.
type AuthService struct {
	users  CredentialStore
	hasher auth.PasswordHasher
	tokens *auth.TokenIssuer
}

func NewAuthService(users CredentialStore, hasher auth.PasswordHasher, tokens *auth.TokenIssuer) *AuthService {
	return &AuthService{users: users, hasher: hasher, tokens: tokens}
}

// ValidateCredentials returns the user when password matches, and (nil, nil)
// both for an unknown email and a wrong password. The unknown-email path still
// runs a bcrypt comparison so the two take the same time.
func (s *AuthService) ValidateCredentials(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_, _ = s.hasher.Verify(password, s.hasher.DummyHash())
			return nil, nil
		}
		return nil, err
	}

	ok, err := s.hasher.Verify(password, u.PasswordHash)
	if err != nil {
		return nil, wrapUnexpected(err, "PASSWORD_VERIFY_FAILED", "verify password")
	}
	if !ok {
		return nil, nil
	}
	return u, nil
}

// Login issues a token for valid credentials. Unknown email and wrong
// password fail with the same Unauthorized error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	u, err := s.ValidateCredentials(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("%w: invalid credentials", common.ErrorUnauthorized)
	}
	return s.respond(u)
}

// Register creates the account through the credential store, which owns the
// duplicate-email check, and logs the new user in.
func (s *AuthService) Register(ctx context.Context, in models.NewUser) (*AuthResponse, error) {
	u, err := s.users.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.respond(u)
}

// ResolveCaller turns a bearer token into the current user. Token problems and
// a subject that no longer exists are Unauthorized; store failures propagate.
func (s *AuthService) ResolveCaller(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorUnauthorized, err)
	}
	id, err := claims.UserID()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorUnauthorized, err)
	}

	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: user no longer exists", common.ErrorUnauthorized)
		}
		return nil, err
	}
	return u, nil
}

func (s *AuthService) respond(u *models.User) (*AuthResponse, error) {
	token, err := s.tokens.Issue(u.ID, u.Email)
	if err != nil {
		return nil, wrapUnexpected(err, "TOKEN_ISSUE_FAILED", "sign access token")
	}
	return &AuthResponse{User: u.Public(), AccessToken: token}, nil
}
