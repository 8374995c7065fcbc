package memstore

import (
	"context"

	"gitlab.com/yelinaung/expense-approvals/internal/apperr"
	"gitlab.com/yelinaung/expense-approvals/internal/models"
)

// ExpenseRepository handles expenses.
type ExpenseRepository struct {
	db *DB
}

func cloneExpense(e models.Expense) models.Expense {
	e.SupplierID = clonePtr(e.SupplierID)
	e.CreditCardID = clonePtr(e.CreditCardID)
	e.PaymentMethod = clonePtr(e.PaymentMethod)
	e.InvoiceDate = clonePtr(e.InvoiceDate)
	e.PaymentDueDate = clonePtr(e.PaymentDueDate)
	e.ReviewedBy = clonePtr(e.ReviewedBy)
	e.ReviewedAt = clonePtr(e.ReviewedAt)
	e.PaymentUpdateBy = clonePtr(e.PaymentUpdateBy)
	e.PaymentUpdateAt = clonePtr(e.PaymentUpdateAt)
	return e
}

func (r *ExpenseRepository) checkRefsLocked(e *models.Expense) error {
	if _, ok := r.db.subcategories[e.SubcategoryID]; !ok {
		return apperr.NotFound("subcategory %d not found", e.SubcategoryID)
	}
	if _, ok := r.db.users[e.UserID]; !ok {
		return apperr.NotFound("user %d not found", e.UserID)
	}
	if e.SupplierID != nil {
		if _, ok := r.db.suppliers[*e.SupplierID]; !ok {
			return apperr.NotFound("supplier %d not found", *e.SupplierID)
		}
	}
	if e.CreditCardID != nil {
		if _, ok := r.db.cards[*e.CreditCardID]; !ok {
			return apperr.NotFound("credit card %d not found", *e.CreditCardID)
		}
	}
	return nil
}

// Create adds an expense.
func (r *ExpenseRepository) Create(_ context.Context, e *models.Expense) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if err := r.checkRefsLocked(e); err != nil {
		return err
	}
	now := r.db.now()
	e.ID = r.db.nextIDLocked()
	e.CreatedAt, e.UpdatedAt = now, now
	r.db.expenses[e.ID] = cloneExpense(*e)
	return nil
}

// GetByID retrieves an expense by ID.
func (r *ExpenseRepository) GetByID(_ context.Context, id int64) (*models.Expense, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	e, ok := r.db.expenses[id]
	if !ok {
		return nil, apperr.NotFound("expense %d not found", id)
	}
	e = cloneExpense(e)
	return &e, nil
}

// List retrieves expenses matching the filter in insertion order.
func (r *ExpenseRepository) List(_ context.Context, f models.ExpenseFilter) ([]models.Expense, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := sortedValues(r.db.expenses, f.Matches)
	for i := range out {
		out[i] = cloneExpense(out[i])
	}
	return out, nil
}

// pendingLocked returns the stored expense if it exists and is pending.
func (r *ExpenseRepository) pendingLocked(id int64) (models.Expense, error) {
	cur, ok := r.db.expenses[id]
	if !ok {
		return models.Expense{}, apperr.NotFound("expense %d not found", id)
	}
	if !cur.IsPending() {
		return models.Expense{}, apperr.InvalidState("expense %d is %s", id, cur.Status)
	}
	return cur, nil
}

// UpdatePending replaces the editable fields of a pending expense.
func (r *ExpenseRepository) UpdatePending(_ context.Context, e *models.Expense) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	cur, err := r.pendingLocked(e.ID)
	if err != nil {
		return err
	}
	if err := r.checkRefsLocked(e); err != nil {
		return err
	}

	cur.Amount = e.Amount
	cur.Currency = e.Currency
	cur.Description = e.Description
	cur.Reason = e.Reason
	cur.Type = e.Type
	cur.SupplierID = e.SupplierID
	cur.CreditCardID = e.CreditCardID
	cur.PaymentMethod = e.PaymentMethod
	cur.InvoiceDate = e.InvoiceDate
	cur.PaymentDueDate = e.PaymentDueDate
	cur.QuoteFile = e.QuoteFile
	cur.InvoiceFile = e.InvoiceFile
	cur.ReceiptFile = e.ReceiptFile
	cur.UpdatedAt = r.db.now()

	r.db.expenses[e.ID] = cloneExpense(cur)
	*e = cloneExpense(cur)
	return nil
}

// DeletePending removes a pending expense.
func (r *ExpenseRepository) DeletePending(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, err := r.pendingLocked(id); err != nil {
		return err
	}
	delete(r.db.expenses, id)
	return nil
}

// Review moves a pending expense to approved or rejected.
func (r *ExpenseRepository) Review(_ context.Context, rv models.ExpenseReview) (*models.Expense, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	cur, err := r.pendingLocked(rv.ExpenseID)
	if err != nil {
		return nil, err
	}

	at := rv.At
	reviewer := rv.ReviewerID
	cur.Status = rv.Status
	cur.RejectionReason = rv.Reason
	cur.ReviewedBy = &reviewer
	cur.ReviewedAt = &at
	cur.UpdatedAt = r.db.now()
	r.db.expenses[cur.ID] = cur

	out := cloneExpense(cur)
	return &out, nil
}

// SetPaymentStatus moves an approved expense from pc.From to pc.To.
func (r *ExpenseRepository) SetPaymentStatus(_ context.Context, pc models.PaymentChange) (*models.Expense, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	cur, ok := r.db.expenses[pc.ExpenseID]
	if !ok {
		return nil, apperr.NotFound("expense %d not found", pc.ExpenseID)
	}
	if cur.Status != models.ExpenseStatusApproved {
		return nil, apperr.InvalidState("expense %d is %s", cur.ID, cur.Status)
	}
	if cur.PaymentStatus != pc.From {
		return nil, apperr.InvalidState("expense %d payment status is %s", cur.ID, cur.PaymentStatus)
	}

	at := pc.At
	actor := pc.ActorID
	cur.PaymentStatus = pc.To
	cur.PaymentUpdateBy = &actor
	cur.PaymentUpdateAt = &at
	cur.UpdatedAt = r.db.now()
	r.db.expenses[cur.ID] = cur

	out := cloneExpense(cur)
	return &out, nil
}
