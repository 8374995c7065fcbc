package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"gitlab.com/yelinaung/expense-approvals/internal/apperr"
	"gitlab.com/yelinaung/expense-approvals/internal/database"
	"gitlab.com/yelinaung/expense-approvals/internal/models"
)

// CategoryRepository handles category database operations.
type CategoryRepository struct {
	db database.PGXDB
}

// NewCategoryRepository creates a new CategoryRepository.
func NewCategoryRepository(db database.PGXDB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

const categoryColumns = `id, department_id, name, budget, created_at, updated_at`

func scanCategory(row pgx.Row) (*models.Category, error) {
	var c models.Category
	if err := row.Scan(&c.ID, &c.DepartmentID, &c.Name, &c.Budget, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// Create adds a category. The department must exist.
func (r *CategoryRepository) Create(ctx context.Context, c *models.Category) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO categories (department_id, name, budget)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, c.DepartmentID, c.Name, c.Budget).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if isForeignKeyViolation(err) {
		return apperr.NotFound("department %d not found", c.DepartmentID)
	}
	if err != nil {
		return writeFailed(err, "create category")
	}
	return nil
}

// GetByID retrieves a category by ID.
func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*models.Category, error) {
	c, err := scanCategory(r.db.QueryRow(ctx, `
		SELECT `+categoryColumns+` FROM categories WHERE id = $1
	`, id))
	if isNoRows(err) {
		return nil, apperr.NotFound("category %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return c, nil
}

// List retrieves categories, optionally of one department.
func (r *CategoryRepository) List(ctx context.Context, departmentID *int64) ([]models.Category, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+categoryColumns+` FROM categories
		WHERE $1::BIGINT IS NULL OR department_id = $1
		ORDER BY id
	`, departmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return categories, nil
}

// Update modifies name and budget.
func (r *CategoryRepository) Update(ctx context.Context, c *models.Category) error {
	updated, err := scanCategory(r.db.QueryRow(ctx, `
		UPDATE categories SET name = $2, budget = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING `+categoryColumns,
		c.ID, c.Name, c.Budget))
	if isNoRows(err) {
		return apperr.NotFound("category %d not found", c.ID)
	}
	if err != nil {
		return writeFailed(err, "update category")
	}
	*c = *updated
	return nil
}

// Delete removes a category without subcategories.
func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if isForeignKeyViolation(err) {
		return apperr.Conflict("category %d still has subcategories", id)
	}
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("category %d not found", id)
	}
	return nil
}

// SubcategoryRepository handles subcategory database operations.
type SubcategoryRepository struct {
	db database.PGXDB
}

// NewSubcategoryRepository creates a new SubcategoryRepository.
func NewSubcategoryRepository(db database.PGXDB) *SubcategoryRepository {
	return &SubcategoryRepository{db: db}
}

const subcategoryColumns = `id, category_id, name, budget, created_at, updated_at`

func scanSubcategory(row pgx.Row) (*models.Subcategory, error) {
	var s models.Subcategory
	if err := row.Scan(&s.ID, &s.CategoryID, &s.Name, &s.Budget, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// Create adds a subcategory. The category must exist.
func (r *SubcategoryRepository) Create(ctx context.Context, s *models.Subcategory) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO subcategories (category_id, name, budget)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, s.CategoryID, s.Name, s.Budget).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if isForeignKeyViolation(err) {
		return apperr.NotFound("category %d not found", s.CategoryID)
	}
	if err != nil {
		return writeFailed(err, "create subcategory")
	}
	return nil
}

// GetByID retrieves a subcategory by ID.
func (r *SubcategoryRepository) GetByID(ctx context.Context, id int64) (*models.Subcategory, error) {
	s, err := scanSubcategory(r.db.QueryRow(ctx, `
		SELECT `+subcategoryColumns+` FROM subcategories WHERE id = $1
	`, id))
	if isNoRows(err) {
		return nil, apperr.NotFound("subcategory %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subcategory: %w", err)
	}
	return s, nil
}

// List retrieves subcategories, optionally of one category.
func (r *SubcategoryRepository) List(ctx context.Context, categoryID *int64) ([]models.Subcategory, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+subcategoryColumns+` FROM subcategories
		WHERE $1::BIGINT IS NULL OR category_id = $1
		ORDER BY id
	`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query subcategories: %w", err)
	}
	defer rows.Close()

	var subcategories []models.Subcategory
	for rows.Next() {
		s, err := scanSubcategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subcategory: %w", err)
		}
		subcategories = append(subcategories, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subcategories: %w", err)
	}
	return subcategories, nil
}

// Update modifies name and budget.
func (r *SubcategoryRepository) Update(ctx context.Context, s *models.Subcategory) error {
	updated, err := scanSubcategory(r.db.QueryRow(ctx, `
		UPDATE subcategories SET name = $2, budget = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING `+subcategoryColumns,
		s.ID, s.Name, s.Budget))
	if isNoRows(err) {
		return apperr.NotFound("subcategory %d not found", s.ID)
	}
	if err != nil {
		return writeFailed(err, "update subcategory")
	}
	*s = *updated
	return nil
}

// Delete removes a subcategory no expense references.
func (r *SubcategoryRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM subcategories WHERE id = $1`, id)
	if isForeignKeyViolation(err) {
		return apperr.Conflict("subcategory %d is referenced by expenses", id)
	}
	if err != nil {
		return fmt.Errorf("failed to delete subcategory: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("subcategory %d not found", id)
	}
	return nil
}
