package auth

import (
	"context"
	"errors"

	"gitlab.com/yelinaung/expense-approvals/internal/apperr"
	"gitlab.com/yelinaung/expense-approvals/internal/authz"
	"gitlab.com/yelinaung/expense-approvals/internal/logger"
	"gitlab.com/yelinaung/expense-approvals/internal/models"
)

// UserLookup finds users for authentication.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// Resolver turns credentials into principals.
type Resolver struct {
	tokens *TokenService
	users  UserLookup
}

// NewResolver creates a Resolver.
func NewResolver(tokens *TokenService, users UserLookup) *Resolver {
	return &Resolver{tokens: tokens, users: users}
}

// Principal verifies a bearer token and loads its user. Inactive users
// still resolve; the policy denies them every action.
func (r *Resolver) Principal(ctx context.Context, token string) (*authz.Principal, error) {
	userID, err := r.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	u, err := r.users.GetByID(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.Unauthenticated("unknown user")
	}
	if err != nil {
		return nil, err
	}
	return authz.PrincipalFor(u), nil
}

// Login checks a username and password and issues a token.
func (r *Resolver) Login(ctx context.Context, username, password string) (*models.User, string, error) {
	u, err := r.users.GetByUsername(ctx, username)
	if errors.Is(err, apperr.ErrNotFound) {
		logger.Log.Warn().
			Str("login", logger.RedactLogin(username)).
			Msg("Login for unknown user")
		return nil, "", apperr.Unauthenticated("invalid credentials")
	}
	if err != nil {
		return nil, "", err
	}
	if !u.Active || !CheckPassword(u.PasswordHash, password) {
		logger.Log.Warn().
			Str("user", logger.HashUserID(u.ID)).
			Msg("Login rejected")
		return nil, "", apperr.Unauthenticated("invalid credentials")
	}

	token, _, err := r.tokens.Issue(u.ID)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}
