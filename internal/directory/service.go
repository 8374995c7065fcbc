// Package directory manages the reference data expenses point at:
// suppliers, company credit cards and users.
package directory

import (
	"context"

	"gitlab.com/yelinaung/expense-approvals/internal/authz"
	"gitlab.com/yelinaung/expense-approvals/internal/models"
)

// SupplierStore persists suppliers. Delete demotes a referenced supplier to
// inactive and reports that it did so.
type SupplierStore interface {
	Create(ctx context.Context, s *models.Supplier) error
	GetByID(ctx context.Context, id int64) (*models.Supplier, error)
	GetAll(ctx context.Context, status string) ([]models.Supplier, error)
	Update(ctx context.Context, s *models.Supplier) error
	Delete(ctx context.Context, id int64) (bool, error)
}

// CreditCardStore persists credit cards. Delete fails with a conflict while
// an expense references the card.
type CreditCardStore interface {
	Create(ctx context.Context, c *models.CreditCard) error
	GetByID(ctx context.Context, id int64) (*models.CreditCard, error)
	GetAll(ctx context.Context) ([]models.CreditCard, error)
	Update(ctx context.Context, c *models.CreditCard) error
	Delete(ctx context.Context, id int64) error
}

// UserStore persists users. Create and Update fail with a conflict on a
// duplicate username or email; Delete fails while the user owns expenses.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetAll(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, id int64) error
}

// Service implements reference data operations.
type Service struct {
	suppliers SupplierStore
	cards     CreditCardStore
	users     UserStore
}

// NewService creates a new Service.
func NewService(suppliers SupplierStore, cards CreditCardStore, users UserStore) *Service {
	return &Service{suppliers: suppliers, cards: cards, users: users}
}

func authorize(p *authz.Principal, action authz.Action, res authz.Resource) error {
	return authz.Evaluate(p).Check(action, res)
}
