// Package memstore keeps every entity in process memory behind one lock.
//
// It satisfies the same store contracts as the PostgreSQL repositories,
// including the atomic check-then-set transitions, and backs the service
// tests and STORAGE=memory deployments.
package memstore

import (
	"maps"
	"slices"
	"sync"
	"time"

	"gitlab.com/yelinaung/expense-approvals/internal/models"
)

// DB holds all tables.
type DB struct {
	mu  sync.RWMutex
	now func() time.Time

	seq           int64
	departments   map[int64]models.Department
	categories    map[int64]models.Category
	subcategories map[int64]models.Subcategory
	users         map[int64]models.User
	suppliers     map[int64]models.Supplier
	cards         map[int64]models.CreditCard
	expenses      map[int64]models.Expense
}

// New creates an empty DB.
func New() *DB {
	return &DB{
		now:           time.Now,
		departments:   make(map[int64]models.Department),
		categories:    make(map[int64]models.Category),
		subcategories: make(map[int64]models.Subcategory),
		users:         make(map[int64]models.User),
		suppliers:     make(map[int64]models.Supplier),
		cards:         make(map[int64]models.CreditCard),
		expenses:      make(map[int64]models.Expense),
	}
}

// Departments returns the department repository.
func (db *DB) Departments() *DepartmentRepository { return &DepartmentRepository{db: db} }

// Categories returns the category repository.
func (db *DB) Categories() *CategoryRepository { return &CategoryRepository{db: db} }

// Subcategories returns the subcategory repository.
func (db *DB) Subcategories() *SubcategoryRepository { return &SubcategoryRepository{db: db} }

// Expenses returns the expense repository.
func (db *DB) Expenses() *ExpenseRepository { return &ExpenseRepository{db: db} }

// Users returns the user repository.
func (db *DB) Users() *UserRepository { return &UserRepository{db: db} }

// Suppliers returns the supplier repository.
func (db *DB) Suppliers() *SupplierRepository { return &SupplierRepository{db: db} }

// CreditCards returns the credit card repository.
func (db *DB) CreditCards() *CreditCardRepository { return &CreditCardRepository{db: db} }

// nextIDLocked hands out ids shared across tables, so ids grow with insertion order.
func (db *DB) nextIDLocked() int64 {
	db.seq++
	return db.seq
}

// sortedValues returns map values ordered by id, which is insertion order.
func sortedValues[T any](m map[int64]T, keep func(*T) bool) []T {
	ids := slices.Sorted(maps.Keys(m))
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		v := m[id]
		if keep == nil || keep(&v) {
			out = append(out, v)
		}
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
