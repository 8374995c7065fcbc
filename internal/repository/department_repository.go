package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"gitlab.com/yelinaung/expense-approvals/internal/apperr"
	"gitlab.com/yelinaung/expense-approvals/internal/database"
	"gitlab.com/yelinaung/expense-approvals/internal/models"
)

// DepartmentRepository handles department database operations.
type DepartmentRepository struct {
	db database.PGXDB
}

// NewDepartmentRepository creates a new DepartmentRepository.
func NewDepartmentRepository(db database.PGXDB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

const departmentColumns = `id, name, budget, currency, created_at, updated_at`

func scanDepartment(row pgx.Row) (*models.Department, error) {
	var d models.Department
	if err := row.Scan(&d.ID, &d.Name, &d.Budget, &d.Currency, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

// Create adds a new department.
func (r *DepartmentRepository) Create(ctx context.Context, d *models.Department) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO departments (name, budget, currency)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, d.Name, d.Budget, d.Currency).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return writeFailed(err, "create department")
	}
	return nil
}

// GetByID retrieves a department by ID.
func (r *DepartmentRepository) GetByID(ctx context.Context, id int64) (*models.Department, error) {
	d, err := scanDepartment(r.db.QueryRow(ctx, `
		SELECT `+departmentColumns+` FROM departments WHERE id = $1
	`, id))
	if isNoRows(err) {
		return nil, apperr.NotFound("department %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get department: %w", err)
	}
	return d, nil
}

// GetAll retrieves all departments in creation order.
func (r *DepartmentRepository) GetAll(ctx context.Context) ([]models.Department, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+departmentColumns+` FROM departments ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query departments: %w", err)
	}
	defer rows.Close()

	var departments []models.Department
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan department: %w", err)
		}
		departments = append(departments, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating departments: %w", err)
	}
	return departments, nil
}

// Update modifies name, budget and currency. The currency is fixed once the
// department has expenses.
func (r *DepartmentRepository) Update(ctx context.Context, d *models.Department) error {
	updated, err := scanDepartment(r.db.QueryRow(ctx, `
		UPDATE departments SET name = $2, budget = $3, currency = $4, updated_at = NOW()
		WHERE id = $1
		  AND (currency = $4 OR NOT EXISTS (SELECT 1 FROM expenses WHERE department_id = $1))
		RETURNING `+departmentColumns,
		d.ID, d.Name, d.Budget, d.Currency))
	if isNoRows(err) {
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM departments WHERE id = $1)`, d.ID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check department: %w", err)
		}
		if exists {
			return errCurrencyLocked(d.ID)
		}
		return apperr.NotFound("department %d not found", d.ID)
	}
	if err != nil {
		return writeFailed(err, "update department")
	}
	*d = *updated
	return nil
}

// Delete removes a department without categories. Users homed in it lose
// their home department and managers lose it from their scope.
func (r *DepartmentRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM departments WHERE id = $1`, id)
	if isForeignKeyViolation(err) {
		return apperr.Conflict("department %d still has categories", id)
	}
	if err != nil {
		return fmt.Errorf("failed to delete department: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("department %d not found", id)
	}
	return nil
}

func errCurrencyLocked(id int64) error {
	return apperr.Conflict("department %d has expenses, its currency cannot change", id)
}
