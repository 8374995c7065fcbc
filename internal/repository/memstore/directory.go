package memstore

import (
	"context"
	"slices"
	"strings"

	"gitlab.com/yelinaung/expense-approvals/internal/apperr"
	"gitlab.com/yelinaung/expense-approvals/internal/models"
)

// UserRepository handles users.
type UserRepository struct {
	db *DB
}

func cloneUser(u models.User) models.User {
	u.DepartmentID = clonePtr(u.DepartmentID)
	u.ManagedDepartmentIDs = slices.Clone(u.ManagedDepartmentIDs)
	if u.ManagedDepartmentIDs == nil {
		u.ManagedDepartmentIDs = []int64{}
	}
	return u
}

func (r *UserRepository) checkLocked(u *models.User) error {
	for id, other := range r.db.users {
		if id == u.ID {
			continue
		}
		if strings.EqualFold(other.Username, u.Username) {
			return apperr.Conflict("username %q is taken", u.Username)
		}
		if strings.EqualFold(other.Email, u.Email) {
			return apperr.Conflict("email %q is taken", u.Email)
		}
	}
	if u.DepartmentID != nil {
		if _, ok := r.db.departments[*u.DepartmentID]; !ok {
			return apperr.NotFound("department %d not found", *u.DepartmentID)
		}
	}
	for _, id := range u.ManagedDepartmentIDs {
		if _, ok := r.db.departments[id]; !ok {
			return apperr.NotFound("department %d not found", id)
		}
	}
	return nil
}

// Create adds a user. Username and email are unique, case-insensitively.
func (r *UserRepository) Create(_ context.Context, u *models.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if err := r.checkLocked(u); err != nil {
		return err
	}
	now := r.db.now()
	u.ID = r.db.nextIDLocked()
	u.CreatedAt, u.UpdatedAt = now, now
	r.db.users[u.ID] = cloneUser(*u)
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	u, ok := r.db.users[id]
	if !ok {
		return nil, apperr.NotFound("user %d not found", id)
	}
	u = cloneUser(u)
	return &u, nil
}

// GetByUsername retrieves a user by username (case-insensitive).
func (r *UserRepository) GetByUsername(_ context.Context, username string) (*models.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, u := range r.db.users {
		if strings.EqualFold(u.Username, username) {
			u = cloneUser(u)
			return &u, nil
		}
	}
	return nil, apperr.NotFound("user %q not found", username)
}

// GetAll retrieves all users.
func (r *UserRepository) GetAll(_ context.Context) ([]models.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := sortedValues(r.db.users, nil)
	for i := range out {
		out[i] = cloneUser(out[i])
	}
	return out, nil
}

// Update replaces a user's profile, flags and managed departments.
func (r *UserRepository) Update(_ context.Context, u *models.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	cur, ok := r.db.users[u.ID]
	if !ok {
		return apperr.NotFound("user %d not found", u.ID)
	}
	if err := r.checkLocked(u); err != nil {
		return err
	}
	u.CreatedAt = cur.CreatedAt
	u.UpdatedAt = r.db.now()
	r.db.users[u.ID] = cloneUser(*u)
	return nil
}

// Delete removes a user who owns no expenses.
func (r *UserRepository) Delete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.users[id]; !ok {
		return apperr.NotFound("user %d not found", id)
	}
	for _, e := range r.db.expenses {
		if e.UserID == id {
			return apperr.Conflict("user %d owns expenses", id)
		}
	}
	delete(r.db.users, id)
	return nil
}

// SupplierRepository handles suppliers.
type SupplierRepository struct {
	db *DB
}

// Create adds a supplier.
func (r *SupplierRepository) Create(_ context.Context, s *models.Supplier) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	now := r.db.now()
	s.ID = r.db.nextIDLocked()
	s.CreatedAt, s.UpdatedAt = now, now
	r.db.suppliers[s.ID] = *s
	return nil
}

// GetByID retrieves a supplier by ID.
func (r *SupplierRepository) GetByID(_ context.Context, id int64) (*models.Supplier, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	s, ok := r.db.suppliers[id]
	if !ok {
		return nil, apperr.NotFound("supplier %d not found", id)
	}
	return &s, nil
}

// GetAll retrieves suppliers, optionally only those with the given status.
func (r *SupplierRepository) GetAll(_ context.Context, status string) ([]models.Supplier, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	return sortedValues(r.db.suppliers, func(s *models.Supplier) bool {
		return status == "" || s.Status == status
	}), nil
}

// Update replaces a supplier's fields.
func (r *SupplierRepository) Update(_ context.Context, s *models.Supplier) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	cur, ok := r.db.suppliers[s.ID]
	if !ok {
		return apperr.NotFound("supplier %d not found", s.ID)
	}
	s.CreatedAt = cur.CreatedAt
	s.UpdatedAt = r.db.now()
	r.db.suppliers[s.ID] = *s
	return nil
}

// Delete removes an unreferenced supplier, or marks a referenced one
// inactive. It reports whether the supplier was deactivated.
func (r *SupplierRepository) Delete(_ context.Context, id int64) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	s, ok := r.db.suppliers[id]
	if !ok {
		return false, apperr.NotFound("supplier %d not found", id)
	}
	for _, e := range r.db.expenses {
		if e.SupplierID != nil && *e.SupplierID == id {
			s.Status = models.SupplierStatusInactive
			s.UpdatedAt = r.db.now()
			r.db.suppliers[id] = s
			return true, nil
		}
	}
	delete(r.db.suppliers, id)
	return false, nil
}

// CreditCardRepository handles credit cards.
type CreditCardRepository struct {
	db *DB
}

// Create adds a credit card.
func (r *CreditCardRepository) Create(_ context.Context, c *models.CreditCard) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	now := r.db.now()
	c.ID = r.db.nextIDLocked()
	c.CreatedAt, c.UpdatedAt = now, now
	r.db.cards[c.ID] = *c
	return nil
}

// GetByID retrieves a credit card by ID.
func (r *CreditCardRepository) GetByID(_ context.Context, id int64) (*models.CreditCard, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	c, ok := r.db.cards[id]
	if !ok {
		return nil, apperr.NotFound("credit card %d not found", id)
	}
	return &c, nil
}

// GetAll retrieves all credit cards.
func (r *CreditCardRepository) GetAll(_ context.Context) ([]models.CreditCard, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return sortedValues(r.db.cards, nil), nil
}

// Update replaces a credit card's fields.
func (r *CreditCardRepository) Update(_ context.Context, c *models.CreditCard) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	cur, ok := r.db.cards[c.ID]
	if !ok {
		return apperr.NotFound("credit card %d not found", c.ID)
	}
	c.CreatedAt = cur.CreatedAt
	c.UpdatedAt = r.db.now()
	r.db.cards[c.ID] = *c
	return nil
}

// Delete removes a credit card no expense references.
func (r *CreditCardRepository) Delete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.cards[id]; !ok {
		return apperr.NotFound("credit card %d not found", id)
	}
	for _, e := range r.db.expenses {
		if e.CreditCardID != nil && *e.CreditCardID == id {
			return apperr.Conflict("credit card %d is referenced by expenses", id)
		}
	}
	delete(r.db.cards, id)
	return nil
}
