package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"gitlab.com/yelinaung/expense-approvals/internal/apperr"
	"gitlab.com/yelinaung/expense-approvals/internal/database"
	"gitlab.com/yelinaung/expense-approvals/internal/models"
)

// UserRepository handles user database operations.
type UserRepository struct {
	db database.PGXDB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db database.PGXDB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `u.id, u.username, u.email, u.name, u.password_hash,
	u.is_manager, u.is_admin, u.is_accounting, u.active, u.department_id,
	ARRAY(SELECT m.department_id FROM user_managed_departments m WHERE m.user_id = u.id ORDER BY m.department_id),
	u.created_at, u.updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Name, &u.PasswordHash,
		&u.IsManager, &u.IsAdmin, &u.IsAccounting, &u.Active, &u.DepartmentID,
		&u.ManagedDepartmentIDs, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if u.ManagedDepartmentIDs == nil {
		u.ManagedDepartmentIDs = []int64{}
	}
	return &u, nil
}

// userWriteError maps constraint violations on users and their managed
// departments to conflicts and missing references.
func userWriteError(err error, u *models.User, action string) error {
	if constraint, ok := violation(err, codeUniqueViolation); ok {
		if strings.Contains(constraint, "email") {
			return apperr.Conflict("email %q is taken", u.Email)
		}
		return apperr.Conflict("username %q is taken", u.Username)
	}
	if isForeignKeyViolation(err) {
		return apperr.NotFound("department not found")
	}
	return fmt.Errorf("failed to %s user: %w", action, err)
}

func setManagedDepartments(ctx context.Context, tx pgx.Tx, userID int64, departmentIDs []int64) error {
	if _, err := tx.Exec(ctx, `DELETE FROM user_managed_departments WHERE user_id = $1`, userID); err != nil {
		return err
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO user_managed_departments (user_id, department_id)
		SELECT $1, d FROM UNNEST($2::BIGINT[]) AS d
	`, userID, departmentIDs)
	return err
}

// Create adds a user. Username and email are unique, case-insensitively.
func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO users (username, email, name, password_hash, is_manager, is_admin, is_accounting, active, department_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, created_at, updated_at
		`, u.Username, u.Email, u.Name, u.PasswordHash, u.IsManager, u.IsAdmin, u.IsAccounting, u.Active, u.DepartmentID,
		).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
		if err != nil {
			return err
		}
		return setManagedDepartments(ctx, tx, u.ID, u.ManagedDepartmentIDs)
	})
	if err != nil {
		return userWriteError(err, u, "create")
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users u WHERE u.id = $1
	`, id))
	if isNoRows(err) {
		return nil, apperr.NotFound("user %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetByUsername retrieves a user by username (case-insensitive).
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users u WHERE LOWER(u.username) = LOWER($1)
	`, username))
	if isNoRows(err) {
		return nil, apperr.NotFound("user %q not found", username)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return u, nil
}

// GetAll retrieves all users.
func (r *UserRepository) GetAll(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users u ORDER BY u.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// Update replaces a user's profile, flags and managed departments.
func (r *UserRepository) Update(ctx context.Context, u *models.User) error {
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			UPDATE users SET username = $2, email = $3, name = $4, password_hash = $5,
				is_manager = $6, is_admin = $7, is_accounting = $8, active = $9, department_id = $10,
				updated_at = NOW()
			WHERE id = $1
			RETURNING created_at, updated_at
		`, u.ID, u.Username, u.Email, u.Name, u.PasswordHash,
			u.IsManager, u.IsAdmin, u.IsAccounting, u.Active, u.DepartmentID,
		).Scan(&u.CreatedAt, &u.UpdatedAt)
		if err != nil {
			return err
		}
		return setManagedDepartments(ctx, tx, u.ID, u.ManagedDepartmentIDs)
	})
	if isNoRows(err) {
		return apperr.NotFound("user %d not found", u.ID)
	}
	if err != nil {
		return userWriteError(err, u, "update")
	}
	if u.ManagedDepartmentIDs == nil {
		u.ManagedDepartmentIDs = []int64{}
	}
	return nil
}

// Delete removes a user who owns no expenses.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if isForeignKeyViolation(err) {
		return apperr.Conflict("user %d owns expenses", id)
	}
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("user %d not found", id)
	}
	return nil
}
