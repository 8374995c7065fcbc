// Package budget manages the department → category → subcategory hierarchy.
package budget

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/expense-approvals/internal/apperr"
	"gitlab.com/yelinaung/expense-approvals/internal/authz"
	"gitlab.com/yelinaung/expense-approvals/internal/logger"
	"gitlab.com/yelinaung/expense-approvals/internal/models"
)

// DepartmentStore persists departments. Delete fails with a conflict while
// the department still has categories.
type DepartmentStore interface {
	Create(ctx context.Context, d *models.Department) error
	GetByID(ctx context.Context, id int64) (*models.Department, error)
	GetAll(ctx context.Context) ([]models.Department, error)
	Update(ctx context.Context, d *models.Department) error
	Delete(ctx context.Context, id int64) error
}

// CategoryStore persists categories. Delete fails with a conflict while the
// category still has subcategories.
type CategoryStore interface {
	Create(ctx context.Context, c *models.Category) error
	GetByID(ctx context.Context, id int64) (*models.Category, error)
	List(ctx context.Context, departmentID *int64) ([]models.Category, error)
	Update(ctx context.Context, c *models.Category) error
	Delete(ctx context.Context, id int64) error
}

// SubcategoryStore persists subcategories. Delete fails with a conflict
// while any expense references the subcategory.
type SubcategoryStore interface {
	Create(ctx context.Context, s *models.Subcategory) error
	GetByID(ctx context.Context, id int64) (*models.Subcategory, error)
	List(ctx context.Context, categoryID *int64) ([]models.Subcategory, error)
	Update(ctx context.Context, s *models.Subcategory) error
	Delete(ctx context.Context, id int64) error
}

// Service implements budget hierarchy operations.
type Service struct {
	departments   DepartmentStore
	categories    CategoryStore
	subcategories SubcategoryStore
}

// NewService creates a new Service.
func NewService(departments DepartmentStore, categories CategoryStore, subcategories SubcategoryStore) *Service {
	return &Service{
		departments:   departments,
		categories:    categories,
		subcategories: subcategories,
	}
}

// DepartmentInput holds the mutable fields of a department.
type DepartmentInput struct {
	Name     string          `json:"name"`
	Budget   decimal.Decimal `json:"budget"`
	Currency string          `json:"currency"`
}

// NodeInput holds the mutable fields of a category or subcategory.
type NodeInput struct {
	Name   string          `json:"name"`
	Budget decimal.Decimal `json:"budget"`
}

func validateNode(name string, budget decimal.Decimal) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.Validation("name is required")
	}
	if len(name) > models.MaxNameLength {
		return "", apperr.Validation("name must be at most %d characters", models.MaxNameLength)
	}
	if budget.IsNegative() {
		return "", apperr.Validation("budget must not be negative")
	}
	if !models.ValidMoney(budget) {
		return "", apperr.Validation("budget must have at most %d decimal places and be below %s",
			models.MoneyScale, models.MaxMoney)
	}
	return name, nil
}

func validateDepartment(in DepartmentInput) (name, currency string, err error) {
	name, err = validateNode(in.Name, in.Budget)
	if err != nil {
		return "", "", err
	}
	if strings.TrimSpace(in.Currency) == "" {
		return name, models.DefaultCurrency, nil
	}
	currency, ok := models.NormalizeCurrency(in.Currency)
	if !ok {
		return "", "", apperr.Validation("unsupported currency %q", in.Currency)
	}
	return name, currency, nil
}

func authorize(p *authz.Principal, action authz.Action) error {
	return authz.Evaluate(p).Check(action, authz.Resource{})
}

// CreateDepartment adds a department.
func (s *Service) CreateDepartment(ctx context.Context, p *authz.Principal, in DepartmentInput) (*models.Department, error) {
	if err := authorize(p, authz.ActionManageBudget); err != nil {
		return nil, err
	}
	name, currency, err := validateDepartment(in)
	if err != nil {
		return nil, err
	}

	d := &models.Department{Name: name, Budget: in.Budget, Currency: currency}
	if err := s.departments.Create(ctx, d); err != nil {
		return nil, err
	}

	logger.Log.Info().
		Str("actor", logger.HashUserID(p.UserID)).
		Int64("department_id", d.ID).
		Msg("Department created")
	return d, nil
}

// UpdateDepartment changes a department's name, budget and currency. The
// store refuses a currency change with a conflict once the department has
// expenses.
func (s *Service) UpdateDepartment(ctx context.Context, p *authz.Principal, id int64, in DepartmentInput) (*models.Department, error) {
	if err := authorize(p, authz.ActionManageBudget); err != nil {
		return nil, err
	}
	d, err := s.departments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	name, currency, err := validateDepartment(in)
	if err != nil {
		return nil, err
	}

	d.Name, d.Budget, d.Currency = name, in.Budget, currency
	if err := s.departments.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// DeleteDepartment removes a department that has no categories.
func (s *Service) DeleteDepartment(ctx context.Context, p *authz.Principal, id int64) error {
	if err := authorize(p, authz.ActionManageBudget); err != nil {
		return err
	}
	if err := s.departments.Delete(ctx, id); err != nil {
		return err
	}
	logger.Log.Info().
		Str("actor", logger.HashUserID(p.UserID)).
		Int64("department_id", id).
		Msg("Department deleted")
	return nil
}

// GetDepartment returns a department.
func (s *Service) GetDepartment(ctx context.Context, p *authz.Principal, id int64) (*models.Department, error) {
	if err := authorize(p, authz.ActionViewBudget); err != nil {
		return nil, err
	}
	return s.departments.GetByID(ctx, id)
}

// ListDepartments returns all departments in insertion order.
func (s *Service) ListDepartments(ctx context.Context, p *authz.Principal) ([]models.Department, error) {
	if err := authorize(p, authz.ActionViewBudget); err != nil {
		return nil, err
	}
	return s.departments.GetAll(ctx)
}

// CreateCategory adds a category under a department.
func (s *Service) CreateCategory(ctx context.Context, p *authz.Principal, departmentID int64, in NodeInput) (*models.Category, error) {
	if err := authorize(p, authz.ActionManageBudget); err != nil {
		return nil, err
	}
	name, err := validateNode(in.Name, in.Budget)
	if err != nil {
		return nil, err
	}
	if _, err := s.departments.GetByID(ctx, departmentID); err != nil {
		return nil, err
	}

	c := &models.Category{DepartmentID: departmentID, Name: name, Budget: in.Budget}
	if err := s.categories.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateCategory changes a category's name and budget. The parent department is fixed.
func (s *Service) UpdateCategory(ctx context.Context, p *authz.Principal, id int64, in NodeInput) (*models.Category, error) {
	if err := authorize(p, authz.ActionManageBudget); err != nil {
		return nil, err
	}
	c, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	name, err := validateNode(in.Name, in.Budget)
	if err != nil {
		return nil, err
	}

	c.Name, c.Budget = name, in.Budget
	if err := s.categories.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCategory removes a category that has no subcategories.
func (s *Service) DeleteCategory(ctx context.Context, p *authz.Principal, id int64) error {
	if err := authorize(p, authz.ActionManageBudget); err != nil {
		return err
	}
	return s.categories.Delete(ctx, id)
}

// GetCategory returns a category.
func (s *Service) GetCategory(ctx context.Context, p *authz.Principal, id int64) (*models.Category, error) {
	if err := authorize(p, authz.ActionViewBudget); err != nil {
		return nil, err
	}
	return s.categories.GetByID(ctx, id)
}

// ListCategories returns categories, optionally only those of one department.
func (s *Service) ListCategories(ctx context.Context, p *authz.Principal, departmentID *int64) ([]models.Category, error) {
	if err := authorize(p, authz.ActionViewBudget); err != nil {
		return nil, err
	}
	return s.categories.List(ctx, departmentID)
}

// CreateSubcategory adds a subcategory under a category.
func (s *Service) CreateSubcategory(ctx context.Context, p *authz.Principal, categoryID int64, in NodeInput) (*models.Subcategory, error) {
	if err := authorize(p, authz.ActionManageBudget); err != nil {
		return nil, err
	}
	name, err := validateNode(in.Name, in.Budget)
	if err != nil {
		return nil, err
	}
	if _, err := s.categories.GetByID(ctx, categoryID); err != nil {
		return nil, err
	}

	sub := &models.Subcategory{CategoryID: categoryID, Name: name, Budget: in.Budget}
	if err := s.subcategories.Create(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// UpdateSubcategory changes a subcategory's name and budget. The parent category is fixed.
func (s *Service) UpdateSubcategory(ctx context.Context, p *authz.Principal, id int64, in NodeInput) (*models.Subcategory, error) {
	if err := authorize(p, authz.ActionManageBudget); err != nil {
		return nil, err
	}
	sub, err := s.subcategories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	name, err := validateNode(in.Name, in.Budget)
	if err != nil {
		return nil, err
	}

	sub.Name, sub.Budget = name, in.Budget
	if err := s.subcategories.Update(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// DeleteSubcategory removes a subcategory no expense references.
func (s *Service) DeleteSubcategory(ctx context.Context, p *authz.Principal, id int64) error {
	if err := authorize(p, authz.ActionManageBudget); err != nil {
		return err
	}
	return s.subcategories.Delete(ctx, id)
}

// GetSubcategory returns a subcategory.
func (s *Service) GetSubcategory(ctx context.Context, p *authz.Principal, id int64) (*models.Subcategory, error) {
	if err := authorize(p, authz.ActionViewBudget); err != nil {
		return nil, err
	}
	return s.subcategories.GetByID(ctx, id)
}

// ListSubcategories returns subcategories, optionally only those of one category.
func (s *Service) ListSubcategories(ctx context.Context, p *authz.Principal, categoryID *int64) ([]models.Subcategory, error) {
	if err := authorize(p, authz.ActionViewBudget); err != nil {
		return nil, err
	}
	return s.subcategories.List(ctx, categoryID)
}

// ResolveAncestry returns the category and department above a subcategory.
// It is not gated by the policy: every expense operation needs it before a
// principal can be checked against the expense's department.
func (s *Service) ResolveAncestry(ctx context.Context, subcategoryID int64) (*models.Ancestry, error) {
	sub, err := s.subcategories.GetByID(ctx, subcategoryID)
	if err != nil {
		return nil, err
	}
	cat, err := s.categories.GetByID(ctx, sub.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("subcategory %d has no category: %w", sub.ID, err)
	}
	dept, err := s.departments.GetByID(ctx, cat.DepartmentID)
	if err != nil {
		return nil, fmt.Errorf("category %d has no department: %w", cat.ID, err)
	}
	return &models.Ancestry{Subcategory: *sub, Category: *cat, Department: *dept}, nil
}
