package directory

import (
	"context"
	"errors"
	"slices"
	"strings"

	"gitlab.com/yelinaung/expense-approvals/internal/apperr"
	"gitlab.com/yelinaung/expense-approvals/internal/auth"
	"gitlab.com/yelinaung/expense-approvals/internal/authz"
	"gitlab.com/yelinaung/expense-approvals/internal/logger"
	"gitlab.com/yelinaung/expense-approvals/internal/models"
)

// UserInput holds the mutable fields of a user. On update an empty
// Password keeps the current one and a nil Active keeps the current state.
type UserInput struct {
	Username             string  `json:"username"`
	Email                string  `json:"email"`
	Name                 string  `json:"name"`
	Password             string  `json:"password"`
	IsManager            bool    `json:"is_manager"`
	IsAdmin              bool    `json:"is_admin"`
	IsAccounting         bool    `json:"is_accounting"`
	Active               *bool   `json:"active"`
	DepartmentID         *int64  `json:"department_id"`
	ManagedDepartmentIDs []int64 `json:"managed_department_ids"`
}

func (in UserInput) apply(u *models.User) error {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return apperr.Validation("username is required")
	}
	if len(username) > models.MaxNameLength {
		return apperr.Validation("username must be at most %d characters", models.MaxNameLength)
	}
	email := strings.TrimSpace(in.Email)
	if !strings.Contains(email, "@") {
		return apperr.Validation("invalid email %q", email)
	}
	managed := slices.Clone(in.ManagedDepartmentIDs)
	slices.Sort(managed)
	managed = slices.Compact(managed)
	if len(managed) > 0 && !in.IsManager {
		return apperr.Validation("managed departments require the manager role")
	}

	u.Username = username
	u.Email = email
	u.Name = strings.TrimSpace(in.Name)
	u.IsManager = in.IsManager
	u.IsAdmin = in.IsAdmin
	u.IsAccounting = in.IsAccounting
	u.DepartmentID = in.DepartmentID
	u.ManagedDepartmentIDs = managed
	if in.Active != nil {
		u.Active = *in.Active
	}
	return nil
}

// CreateUser adds a user. New users are active unless Active says otherwise.
func (s *Service) CreateUser(ctx context.Context, p *authz.Principal, in UserInput) (*models.User, error) {
	if err := authorize(p, authz.ActionManageUsers, authz.Resource{}); err != nil {
		return nil, err
	}
	u := &models.User{Active: true}
	if err := in.apply(u); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = hash

	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	logger.Log.Info().
		Str("actor", logger.HashUserID(p.UserID)).
		Str("user", logger.HashUserID(u.ID)).
		Msg("User created")
	return u, nil
}

// UpdateUser replaces a user's profile, roles and managed departments.
func (s *Service) UpdateUser(ctx context.Context, p *authz.Principal, id int64, in UserInput) (*models.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(p, authz.ActionManageUsers, authz.Resource{}); err != nil {
		return nil, err
	}
	if err := in.apply(u); err != nil {
		return nil, err
	}
	if in.Password != "" {
		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// DeleteUser removes a user who owns no expenses. Deactivate the others.
func (s *Service) DeleteUser(ctx context.Context, p *authz.Principal, id int64) error {
	if _, err := s.users.GetByID(ctx, id); err != nil {
		return err
	}
	if err := authorize(p, authz.ActionManageUsers, authz.Resource{}); err != nil {
		return err
	}
	if id == p.UserID {
		return apperr.Conflict("users cannot delete themselves")
	}
	return s.users.Delete(ctx, id)
}

// GetUser returns a user. Users may always view themselves.
func (s *Service) GetUser(ctx context.Context, p *authz.Principal, id int64) (*models.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(p, authz.ActionViewUser, authz.Resource{OwnerID: id}); err != nil {
		return nil, err
	}
	return u, nil
}

// ListUsers returns every user.
func (s *Service) ListUsers(ctx context.Context, p *authz.Principal) ([]models.User, error) {
	if err := authorize(p, authz.ActionManageUsers, authz.Resource{}); err != nil {
		return nil, err
	}
	return s.users.GetAll(ctx)
}

// EnsureAdmin creates an active administrator named username unless a user
// with that name already exists. It runs before any principal exists and is
// not subject to the policy.
func (s *Service) EnsureAdmin(ctx context.Context, username, email, password string) (created bool, err error) {
	_, err = s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return false, err
	}

	u := &models.User{Active: true}
	in := UserInput{Username: username, Email: email, Name: username, IsAdmin: true}
	if err := in.apply(u); err != nil {
		return false, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return false, err
	}
	u.PasswordHash = hash
	if err := s.users.Create(ctx, u); err != nil {
		return false, err
	}
	logger.Log.Info().
		Str("user", logger.HashUserID(u.ID)).
		Msg("Bootstrap administrator created")
	return true, nil
}
