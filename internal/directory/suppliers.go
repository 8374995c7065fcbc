package directory

import (
	"context"
	"strings"

	"gitlab.com/yelinaung/expense-approvals/internal/apperr"
	"gitlab.com/yelinaung/expense-approvals/internal/authz"
	"gitlab.com/yelinaung/expense-approvals/internal/logger"
	"gitlab.com/yelinaung/expense-approvals/internal/models"
)

// SupplierInput holds the mutable fields of a supplier.
type SupplierInput struct {
	Name          string `json:"name"`
	ContactName   string `json:"contact_name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	TaxID         string `json:"tax_id"`
	BankName      string `json:"bank_name"`
	BankBranch    string `json:"bank_branch"`
	AccountNumber string `json:"account_number"`
	Status        string `json:"status"`
}

func (in SupplierInput) apply(s *models.Supplier) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return apperr.Validation("supplier name is required")
	}
	if len(name) > models.MaxNameLength {
		return apperr.Validation("supplier name must be at most %d characters", models.MaxNameLength)
	}
	email := strings.TrimSpace(in.Email)
	if email != "" && !strings.Contains(email, "@") {
		return apperr.Validation("invalid supplier email %q", email)
	}
	status := strings.TrimSpace(in.Status)
	if status == "" {
		status = models.SupplierStatusActive
	}
	if !models.ValidSupplierStatus(status) {
		return apperr.Validation("unknown supplier status %q", in.Status)
	}

	s.Name = name
	s.ContactName = strings.TrimSpace(in.ContactName)
	s.Email = email
	s.Phone = strings.TrimSpace(in.Phone)
	s.TaxID = strings.TrimSpace(in.TaxID)
	s.BankName = strings.TrimSpace(in.BankName)
	s.BankBranch = strings.TrimSpace(in.BankBranch)
	s.AccountNumber = strings.TrimSpace(in.AccountNumber)
	s.Status = status
	return nil
}

// CreateSupplier adds a supplier.
func (s *Service) CreateSupplier(ctx context.Context, p *authz.Principal, in SupplierInput) (*models.Supplier, error) {
	if err := authorize(p, authz.ActionManageSupplier, authz.Resource{}); err != nil {
		return nil, err
	}
	sup := &models.Supplier{}
	if err := in.apply(sup); err != nil {
		return nil, err
	}
	if err := s.suppliers.Create(ctx, sup); err != nil {
		return nil, err
	}
	return sup, nil
}

// UpdateSupplier replaces a supplier's fields.
func (s *Service) UpdateSupplier(ctx context.Context, p *authz.Principal, id int64, in SupplierInput) (*models.Supplier, error) {
	sup, err := s.suppliers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(p, authz.ActionManageSupplier, authz.Resource{}); err != nil {
		return nil, err
	}
	if err := in.apply(sup); err != nil {
		return nil, err
	}
	if err := s.suppliers.Update(ctx, sup); err != nil {
		return nil, err
	}
	return sup, nil
}

// DeleteSupplier removes a supplier. A supplier still referenced by
// expenses is marked inactive instead, and deactivated is true.
func (s *Service) DeleteSupplier(ctx context.Context, p *authz.Principal, id int64) (deactivated bool, err error) {
	if _, err := s.suppliers.GetByID(ctx, id); err != nil {
		return false, err
	}
	if err := authorize(p, authz.ActionManageSupplier, authz.Resource{}); err != nil {
		return false, err
	}
	deactivated, err = s.suppliers.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	logger.Log.Info().
		Str("actor", logger.HashUserID(p.UserID)).
		Int64("supplier_id", id).
		Bool("deactivated", deactivated).
		Msg("Supplier deleted")
	return deactivated, nil
}

// GetSupplier returns a supplier.
func (s *Service) GetSupplier(ctx context.Context, p *authz.Principal, id int64) (*models.Supplier, error) {
	if err := authorize(p, authz.ActionViewSuppliers, authz.Resource{}); err != nil {
		return nil, err
	}
	return s.suppliers.GetByID(ctx, id)
}

// ListSuppliers returns suppliers, optionally filtered by status.
func (s *Service) ListSuppliers(ctx context.Context, p *authz.Principal, status string) ([]models.Supplier, error) {
	if err := authorize(p, authz.ActionViewSuppliers, authz.Resource{}); err != nil {
		return nil, err
	}
	if status != "" && !models.ValidSupplierStatus(status) {
		return nil, apperr.Validation("unknown supplier status %q", status)
	}
	return s.suppliers.GetAll(ctx, status)
}
