package expense

import (
	"context"
	"strings"

	"gitlab.com/yelinaung/expense-approvals/internal/apperr"
	"gitlab.com/yelinaung/expense-approvals/internal/authz"
	"gitlab.com/yelinaung/expense-approvals/internal/logger"
	"gitlab.com/yelinaung/expense-approvals/internal/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

func resourceOf(e *models.Expense) authz.Resource {
	return authz.Resource{OwnerID: e.UserID, DepartmentID: e.DepartmentID}
}

func (s *Service) startSpan(ctx context.Context, name string, id int64) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "expense."+name, trace.WithAttributes(attribute.Int64("expense.id", id)))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperr.KindOf(err).String())
	}
	span.End()
}

func (s *Service) recordTransition(ctx context.Context, p *authz.Principal, e *models.Expense, from, to string) {
	s.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
	logger.Log.Info().
		Str("actor", logger.HashUserID(p.UserID)).
		Int64("expense_id", e.ID).
		Int64("department_id", e.DepartmentID).
		Str("from", from).
		Str("to", to).
		Msg("Expense transition")
}

func (s *Service) logDenied(p *authz.Principal, action authz.Action, id int64) {
	var uid int64
	if p != nil {
		uid = p.UserID
	}
	logger.Log.Warn().
		Str("actor", logger.HashUserID(uid)).
		Str("action", string(action)).
		Int64("expense_id", id).
		Msg("Expense action denied")
}

// load fetches an expense and checks action against it.
func (s *Service) load(ctx context.Context, p *authz.Principal, id int64, action authz.Action) (*models.Expense, error) {
	e, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.Evaluate(p).Check(action, resourceOf(e)); err != nil {
		s.logDenied(p, action, id)
		return nil, err
	}
	return e, nil
}

// Submit creates a pending expense owned by the principal.
func (s *Service) Submit(ctx context.Context, p *authz.Principal, in SubmitInput) (e *models.Expense, err error) {
	ctx, span := s.startSpan(ctx, "submit", 0)
	defer func() { endSpan(span, err) }()

	if err := authz.Evaluate(p).Check(authz.ActionSubmitExpense, authz.Resource{}); err != nil {
		return nil, err
	}
	if in.SubcategoryID == 0 {
		return nil, apperr.Validation("subcategory is required")
	}
	ancestry, err := s.hierarchy.ResolveAncestry(ctx, in.SubcategoryID)
	if err != nil {
		return nil, err
	}

	e = &models.Expense{
		UserID:        p.UserID,
		SubcategoryID: ancestry.Subcategory.ID,
		CategoryID:    ancestry.Category.ID,
		DepartmentID:  ancestry.Department.ID,
		Status:        models.ExpenseStatusPending,
		PaymentStatus: models.PaymentStatusPendingPayment,
	}
	if err := s.applyFields(ctx, e, in.Fields, ancestry.Department.Currency); err != nil {
		return nil, err
	}
	s.prefill(ctx, e, in.Uploads)
	if err := checkAmount(e.Amount); err != nil {
		return nil, err
	}
	saved, err := s.storeUploads(ctx, e, in.Uploads)
	if err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, e); err != nil {
		s.removeDocuments(ctx, saved)
		return nil, err
	}
	span.SetAttributes(attribute.Int64("expense.id", e.ID))
	s.recordTransition(ctx, p, e, "", string(models.ExpenseStatusPending))
	logger.Log.Debug().
		Int64("expense_id", e.ID).
		Str("reason", logger.RedactText(e.Reason)).
		Msg("Expense submitted")
	return e, nil
}

// Get returns an expense the principal may view.
func (s *Service) Get(ctx context.Context, p *authz.Principal, id int64) (*models.Expense, error) {
	return s.load(ctx, p, id, authz.ActionViewExpense)
}

// ListFilter narrows a listing. Nil fields do not filter.
type ListFilter struct {
	Status        *models.ExpenseStatus
	PaymentStatus *models.PaymentStatus
	OwnerID       *int64
	DepartmentID  *int64
	SubcategoryID *int64
}

func (f ListFilter) validate() error {
	if f.Status != nil && !f.Status.Valid() {
		return apperr.Validation("unknown status %q", *f.Status)
	}
	if f.PaymentStatus != nil && !f.PaymentStatus.Valid() {
		return apperr.Validation("unknown payment status %q", *f.PaymentStatus)
	}
	return nil
}

func (f ListFilter) storeFilter(scope models.ExpenseScope) models.ExpenseFilter {
	return models.ExpenseFilter{
		Status:        f.Status,
		PaymentStatus: f.PaymentStatus,
		OwnerID:       f.OwnerID,
		DepartmentID:  f.DepartmentID,
		SubcategoryID: f.SubcategoryID,
		Scope:         scope,
	}
}

// List returns the expenses the principal may see that match f, in
// insertion order.
func (s *Service) List(ctx context.Context, p *authz.Principal, f ListFilter) ([]models.Expense, error) {
	caps := authz.Evaluate(p)
	if err := caps.Check(authz.ActionListExpenses, authz.Resource{}); err != nil {
		return nil, err
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return s.store.List(ctx, f.storeFilter(caps.ExpenseScope()))
}

// Export returns every expense matching f for accounting exports.
func (s *Service) Export(ctx context.Context, p *authz.Principal, f ListFilter) ([]models.Expense, error) {
	if err := authz.Evaluate(p).Check(authz.ActionExportExpenses, authz.Resource{}); err != nil {
		return nil, err
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return s.store.List(ctx, f.storeFilter(models.ExpenseScope{All: true}))
}

// Edit replaces the editable fields of the principal's own pending expense.
// Attachments not mentioned in f are kept. Documents replaced or detached
// by the edit are removed once it is stored.
func (s *Service) Edit(ctx context.Context, p *authz.Principal, id int64, f Fields) (e *models.Expense, err error) {
	ctx, span := s.startSpan(ctx, "edit", id)
	defer func() { endSpan(span, err) }()

	e, err = s.load(ctx, p, id, authz.ActionEditExpense)
	if err != nil {
		return nil, err
	}
	if !e.IsPending() {
		return nil, apperr.InvalidState("expense %d is %s and can no longer be edited", id, e.Status)
	}
	ancestry, err := s.hierarchy.ResolveAncestry(ctx, e.SubcategoryID)
	if err != nil {
		return nil, err
	}
	before := *e
	if err := s.applyFields(ctx, e, f, ancestry.Department.Currency); err != nil {
		return nil, err
	}
	s.prefill(ctx, e, f.Uploads)
	if err := checkAmount(e.Amount); err != nil {
		return nil, err
	}
	saved, err := s.storeUploads(ctx, e, f.Uploads)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdatePending(ctx, e); err != nil {
		s.removeDocuments(ctx, saved)
		return nil, err
	}

	var dropped []string
	for _, kind := range []models.DocumentKind{models.DocumentQuote, models.DocumentInvoice, models.DocumentReceipt} {
		if old := before.Attachment(kind); old != "" && old != e.Attachment(kind) {
			dropped = append(dropped, old)
		}
	}
	s.removeDocuments(ctx, dropped)
	return e, nil
}

// Delete removes a pending expense. Owners and admins may delete.
func (s *Service) Delete(ctx context.Context, p *authz.Principal, id int64) (err error) {
	ctx, span := s.startSpan(ctx, "delete", id)
	defer func() { endSpan(span, err) }()

	e, err := s.load(ctx, p, id, authz.ActionDeleteExpense)
	if err != nil {
		return err
	}
	if err := s.store.DeletePending(ctx, id); err != nil {
		return err
	}
	s.removeDocuments(ctx, []string{e.QuoteFile, e.InvoiceFile, e.ReceiptFile})
	s.recordTransition(ctx, p, e, string(models.ExpenseStatusPending), "deleted")
	return nil
}

// Approve moves a pending expense to approved.
func (s *Service) Approve(ctx context.Context, p *authz.Principal, id int64) (e *models.Expense, err error) {
	ctx, span := s.startSpan(ctx, "approve", id)
	defer func() { endSpan(span, err) }()

	if _, err := s.load(ctx, p, id, authz.ActionReviewExpense); err != nil {
		return nil, err
	}
	e, err = s.store.Review(ctx, models.ExpenseReview{
		ExpenseID:  id,
		Status:     models.ExpenseStatusApproved,
		ReviewerID: p.UserID,
		At:         s.now(),
	})
	if err != nil {
		return nil, err
	}
	s.recordTransition(ctx, p, e, string(models.ExpenseStatusPending), string(models.ExpenseStatusApproved))
	return e, nil
}

// Reject moves a pending expense to rejected. The reason is required.
func (s *Service) Reject(ctx context.Context, p *authz.Principal, id int64, reason string) (e *models.Expense, err error) {
	ctx, span := s.startSpan(ctx, "reject", id)
	defer func() { endSpan(span, err) }()

	if _, err := s.load(ctx, p, id, authz.ActionReviewExpense); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.Validation("rejection reason is required")
	}
	e, err = s.store.Review(ctx, models.ExpenseReview{
		ExpenseID:  id,
		Status:     models.ExpenseStatusRejected,
		ReviewerID: p.UserID,
		Reason:     reason,
		At:         s.now(),
	})
	if err != nil {
		return nil, err
	}
	s.recordTransition(ctx, p, e, string(models.ExpenseStatusPending), string(models.ExpenseStatusRejected))
	logger.Log.Debug().
		Int64("expense_id", id).
		Str("rejection", logger.RedactText(reason)).
		Msg("Expense rejected")
	return e, nil
}

// SetPaymentStatus moves an approved expense along the payment axis.
func (s *Service) SetPaymentStatus(ctx context.Context, p *authz.Principal, id int64, to models.PaymentStatus) (e *models.Expense, err error) {
	ctx, span := s.startSpan(ctx, "payment_status", id)
	defer func() { endSpan(span, err) }()

	cur, err := s.load(ctx, p, id, authz.ActionPaymentStatus)
	if err != nil {
		return nil, err
	}
	if !to.Valid() {
		return nil, apperr.Validation("unknown payment status %q", to)
	}
	if cur.Status != models.ExpenseStatusApproved {
		return nil, apperr.InvalidState("expense %d is %s, payment status moves only after approval", id, cur.Status)
	}
	if !cur.PaymentStatus.CanMoveTo(to) {
		return nil, apperr.InvalidState("payment status cannot move from %s to %s", cur.PaymentStatus, to)
	}

	e, err = s.store.SetPaymentStatus(ctx, models.PaymentChange{
		ExpenseID: id,
		From:      cur.PaymentStatus,
		To:        to,
		ActorID:   p.UserID,
		At:        s.now(),
	})
	if err != nil {
		return nil, err
	}
	s.recordTransition(ctx, p, e, string(cur.PaymentStatus), string(to))
	return e, nil
}

// MarkPaid moves an approved expense to paid.
func (s *Service) MarkPaid(ctx context.Context, p *authz.Principal, id int64) (*models.Expense, error) {
	return s.SetPaymentStatus(ctx, p, id, models.PaymentStatusPaid)
}

// MarkPendingAttention flags an approved, unpaid expense for accounting follow-up.
func (s *Service) MarkPendingAttention(ctx context.Context, p *authz.Principal, id int64) (*models.Expense, error) {
	return s.SetPaymentStatus(ctx, p, id, models.PaymentStatusPendingAttention)
}

// Prefill extracts an amount and date from a document for form pre-fill.
// A nil result without error means nothing was found.
func (s *Service) Prefill(ctx context.Context, p *authz.Principal, u Upload) (*models.DocumentData, error) {
	if err := authz.Evaluate(p).Check(authz.ActionSubmitExpense, authz.Resource{}); err != nil {
		return nil, err
	}
	if !u.Kind.Valid() {
		return nil, apperr.Validation("unknown document kind %q", u.Kind)
	}
	if len(u.Data) == 0 {
		return nil, apperr.Validation("document is empty")
	}
	if s.extractor == nil {
		return nil, nil
	}
	return s.extract(ctx, u), nil
}
