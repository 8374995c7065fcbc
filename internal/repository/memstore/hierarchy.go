package memstore

import (
	"context"

	"gitlab.com/yelinaung/expense-approvals/internal/apperr"
	"gitlab.com/yelinaung/expense-approvals/internal/models"
)

// DepartmentRepository handles departments.
type DepartmentRepository struct {
	db *DB
}

// Create adds a department.
func (r *DepartmentRepository) Create(_ context.Context, d *models.Department) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	now := r.db.now()
	d.ID = r.db.nextIDLocked()
	d.CreatedAt, d.UpdatedAt = now, now
	r.db.departments[d.ID] = *d
	return nil
}

// GetByID retrieves a department by ID.
func (r *DepartmentRepository) GetByID(_ context.Context, id int64) (*models.Department, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	d, ok := r.db.departments[id]
	if !ok {
		return nil, apperr.NotFound("department %d not found", id)
	}
	return &d, nil
}

// GetAll retrieves all departments.
func (r *DepartmentRepository) GetAll(_ context.Context) ([]models.Department, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return sortedValues(r.db.departments, nil), nil
}

// Update modifies name, budget and currency. The currency is fixed once the
// department has expenses.
func (r *DepartmentRepository) Update(_ context.Context, d *models.Department) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	cur, ok := r.db.departments[d.ID]
	if !ok {
		return apperr.NotFound("department %d not found", d.ID)
	}
	if cur.Currency != d.Currency {
		for _, e := range r.db.expenses {
			if e.DepartmentID == d.ID {
				return apperr.Conflict("department %d has expenses, its currency cannot change", d.ID)
			}
		}
	}
	cur.Name, cur.Budget, cur.Currency = d.Name, d.Budget, d.Currency
	cur.UpdatedAt = r.db.now()
	r.db.departments[d.ID] = cur
	*d = cur
	return nil
}

// Delete removes a department without categories. Users homed in it lose
// their home department and managers lose it from their scope.
func (r *DepartmentRepository) Delete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.departments[id]; !ok {
		return apperr.NotFound("department %d not found", id)
	}
	for _, c := range r.db.categories {
		if c.DepartmentID == id {
			return apperr.Conflict("department %d still has categories", id)
		}
	}
	delete(r.db.departments, id)

	for uid, u := range r.db.users {
		changed := false
		if u.DepartmentID != nil && *u.DepartmentID == id {
			u.DepartmentID = nil
			changed = true
		}
		kept := u.ManagedDepartmentIDs[:0:0]
		for _, m := range u.ManagedDepartmentIDs {
			if m != id {
				kept = append(kept, m)
			}
		}
		if len(kept) != len(u.ManagedDepartmentIDs) {
			u.ManagedDepartmentIDs = kept
			changed = true
		}
		if changed {
			r.db.users[uid] = u
		}
	}
	return nil
}

// CategoryRepository handles categories.
type CategoryRepository struct {
	db *DB
}

// Create adds a category. The department must exist.
func (r *CategoryRepository) Create(_ context.Context, c *models.Category) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.departments[c.DepartmentID]; !ok {
		return apperr.NotFound("department %d not found", c.DepartmentID)
	}
	now := r.db.now()
	c.ID = r.db.nextIDLocked()
	c.CreatedAt, c.UpdatedAt = now, now
	r.db.categories[c.ID] = *c
	return nil
}

// GetByID retrieves a category by ID.
func (r *CategoryRepository) GetByID(_ context.Context, id int64) (*models.Category, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	c, ok := r.db.categories[id]
	if !ok {
		return nil, apperr.NotFound("category %d not found", id)
	}
	return &c, nil
}

// List retrieves categories, optionally of one department.
func (r *CategoryRepository) List(_ context.Context, departmentID *int64) ([]models.Category, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	return sortedValues(r.db.categories, func(c *models.Category) bool {
		return departmentID == nil || c.DepartmentID == *departmentID
	}), nil
}

// Update modifies name and budget.
func (r *CategoryRepository) Update(_ context.Context, c *models.Category) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	cur, ok := r.db.categories[c.ID]
	if !ok {
		return apperr.NotFound("category %d not found", c.ID)
	}
	cur.Name, cur.Budget = c.Name, c.Budget
	cur.UpdatedAt = r.db.now()
	r.db.categories[c.ID] = cur
	*c = cur
	return nil
}

// Delete removes a category without subcategories.
func (r *CategoryRepository) Delete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.categories[id]; !ok {
		return apperr.NotFound("category %d not found", id)
	}
	for _, s := range r.db.subcategories {
		if s.CategoryID == id {
			return apperr.Conflict("category %d still has subcategories", id)
		}
	}
	delete(r.db.categories, id)
	return nil
}

// SubcategoryRepository handles subcategories.
type SubcategoryRepository struct {
	db *DB
}

// Create adds a subcategory. The category must exist.
func (r *SubcategoryRepository) Create(_ context.Context, s *models.Subcategory) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.categories[s.CategoryID]; !ok {
		return apperr.NotFound("category %d not found", s.CategoryID)
	}
	now := r.db.now()
	s.ID = r.db.nextIDLocked()
	s.CreatedAt, s.UpdatedAt = now, now
	r.db.subcategories[s.ID] = *s
	return nil
}

// GetByID retrieves a subcategory by ID.
func (r *SubcategoryRepository) GetByID(_ context.Context, id int64) (*models.Subcategory, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	s, ok := r.db.subcategories[id]
	if !ok {
		return nil, apperr.NotFound("subcategory %d not found", id)
	}
	return &s, nil
}

// List retrieves subcategories, optionally of one category.
func (r *SubcategoryRepository) List(_ context.Context, categoryID *int64) ([]models.Subcategory, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	return sortedValues(r.db.subcategories, func(s *models.Subcategory) bool {
		return categoryID == nil || s.CategoryID == *categoryID
	}), nil
}

// Update modifies name and budget.
func (r *SubcategoryRepository) Update(_ context.Context, s *models.Subcategory) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	cur, ok := r.db.subcategories[s.ID]
	if !ok {
		return apperr.NotFound("subcategory %d not found", s.ID)
	}
	cur.Name, cur.Budget = s.Name, s.Budget
	cur.UpdatedAt = r.db.now()
	r.db.subcategories[s.ID] = cur
	*s = cur
	return nil
}

// Delete removes a subcategory no expense references.
func (r *SubcategoryRepository) Delete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.subcategories[id]; !ok {
		return apperr.NotFound("subcategory %d not found", id)
	}
	for _, e := range r.db.expenses {
		if e.SubcategoryID == id {
			return apperr.Conflict("subcategory %d is referenced by expenses", id)
		}
	}
	delete(r.db.subcategories, id)
	return nil
}
