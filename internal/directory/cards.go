package directory

import (
	"context"
	"strings"

	"gitlab.com/yelinaung/expense-approvals/internal/apperr"
	"gitlab.com/yelinaung/expense-approvals/internal/authz"
	"gitlab.com/yelinaung/expense-approvals/internal/models"
)

// CreditCardInput holds the mutable fields of a credit card.
type CreditCardInput struct {
	LastFour    string `json:"last_four"`
	Description string `json:"description"`
}

func (in CreditCardInput) apply(c *models.CreditCard) error {
	lastFour := strings.TrimSpace(in.LastFour)
	if !models.ValidLastFour(lastFour) {
		return apperr.Validation("last four must be exactly 4 digits")
	}
	c.LastFour = lastFour
	c.Description = strings.TrimSpace(in.Description)
	return nil
}

// CreateCreditCard adds a company card.
func (s *Service) CreateCreditCard(ctx context.Context, p *authz.Principal, in CreditCardInput) (*models.CreditCard, error) {
	if err := authorize(p, authz.ActionManageCards, authz.Resource{}); err != nil {
		return nil, err
	}
	c := &models.CreditCard{}
	if err := in.apply(c); err != nil {
		return nil, err
	}
	if err := s.cards.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateCreditCard replaces a card's fields.
func (s *Service) UpdateCreditCard(ctx context.Context, p *authz.Principal, id int64, in CreditCardInput) (*models.CreditCard, error) {
	c, err := s.cards.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(p, authz.ActionManageCards, authz.Resource{}); err != nil {
		return nil, err
	}
	if err := in.apply(c); err != nil {
		return nil, err
	}
	if err := s.cards.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCreditCard removes a card no expense references.
func (s *Service) DeleteCreditCard(ctx context.Context, p *authz.Principal, id int64) error {
	if _, err := s.cards.GetByID(ctx, id); err != nil {
		return err
	}
	if err := authorize(p, authz.ActionManageCards, authz.Resource{}); err != nil {
		return err
	}
	return s.cards.Delete(ctx, id)
}

// GetCreditCard returns a card.
func (s *Service) GetCreditCard(ctx context.Context, p *authz.Principal, id int64) (*models.CreditCard, error) {
	if err := authorize(p, authz.ActionViewCards, authz.Resource{}); err != nil {
		return nil, err
	}
	return s.cards.GetByID(ctx, id)
}

// ListCreditCards returns every card.
func (s *Service) ListCreditCards(ctx context.Context, p *authz.Principal) ([]models.CreditCard, error) {
	if err := authorize(p, authz.ActionViewCards, authz.Resource{}); err != nil {
		return nil, err
	}
	return s.cards.GetAll(ctx)
}
