package expense

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/expense-approvals/internal/apperr"
	"gitlab.com/yelinaung/expense-approvals/internal/logger"
	"gitlab.com/yelinaung/expense-approvals/internal/models"
)

// Attachment names a document already stored on the expense. An empty
// Filename detaches it.
type Attachment struct {
	Kind     models.DocumentKind `json:"kind"`
	Filename string              `json:"filename"`
}

// Upload is a document to store (and optionally extract from) with the expense.
type Upload struct {
	Kind     models.DocumentKind
	Filename string
	MIMEType string
	Data     []byte
}

// Fields are the owner-editable fields of an expense. The subcategory is
// chosen once at submission and is not part of Fields.
type Fields struct {
	Amount         decimal.Decimal       `json:"amount"`
	Currency       string                `json:"currency"`
	Description    string                `json:"description"`
	Reason         string                `json:"reason"`
	Type           models.ExpenseType    `json:"type"`
	SupplierID     *int64                `json:"supplier_id"`
	CreditCardID   *int64                `json:"credit_card_id"`
	PaymentMethod  *models.PaymentMethod `json:"payment_method"`
	InvoiceDate    *time.Time            `json:"invoice_date"`
	PaymentDueDate *time.Time            `json:"payment_due_date"`
	Attachments    []Attachment          `json:"attachments"`
	Uploads        []Upload              `json:"-"`
}

// SubmitInput is a new expense.
type SubmitInput struct {
	SubcategoryID int64 `json:"subcategory_id"`
	Fields
}

// applyFields validates f and copies it onto e. The amount is checked by
// the caller after pre-fill. Uploads are not stored here.
func (s *Service) applyFields(ctx context.Context, e *models.Expense, f Fields, departmentCurrency string) error {
	reason := strings.TrimSpace(f.Reason)
	if reason == "" {
		return apperr.Validation("reason is required")
	}
	if f.Amount.IsNegative() {
		return apperr.Validation("amount must be positive")
	}
	if !models.ValidMoney(f.Amount) {
		return invalidAmount()
	}

	expenseType := f.Type
	if expenseType == "" {
		expenseType = models.ExpenseTypeNeedsApproval
	}
	if !expenseType.Valid() {
		return apperr.Validation("unknown expense type %q", f.Type)
	}

	currency := departmentCurrency
	if strings.TrimSpace(f.Currency) != "" {
		c, ok := models.NormalizeCurrency(f.Currency)
		if !ok {
			return apperr.Validation("unsupported currency %q", f.Currency)
		}
		currency = c
	}

	if f.PaymentMethod != nil && !f.PaymentMethod.Valid() {
		return apperr.Validation("unknown payment method %q", *f.PaymentMethod)
	}
	if f.CreditCardID != nil {
		if f.PaymentMethod == nil || *f.PaymentMethod != models.PaymentMethodCreditCard {
			return apperr.Validation("a credit card requires payment method %q", models.PaymentMethodCreditCard)
		}
		if _, err := s.cards.GetByID(ctx, *f.CreditCardID); err != nil {
			return err
		}
	}
	if f.SupplierID != nil {
		supplier, err := s.suppliers.GetByID(ctx, *f.SupplierID)
		if err != nil {
			return err
		}
		if supplier.Status != models.SupplierStatusActive {
			return apperr.Validation("supplier %d is inactive", supplier.ID)
		}
	}
	if f.InvoiceDate != nil && f.PaymentDueDate != nil && f.PaymentDueDate.Before(*f.InvoiceDate) {
		return apperr.Validation("payment due date is before invoice date")
	}
	for _, a := range f.Attachments {
		if !a.Kind.Valid() {
			return apperr.Validation("unknown document kind %q", a.Kind)
		}
		if a.Filename != "" && a.Filename != e.Attachment(a.Kind) {
			return apperr.Validation("%s attachment %q does not belong to this expense", a.Kind, a.Filename)
		}
	}
	for _, u := range f.Uploads {
		if !u.Kind.Valid() {
			return apperr.Validation("unknown document kind %q", u.Kind)
		}
		if len(u.Data) == 0 {
			return apperr.Validation("%s upload is empty", u.Kind)
		}
	}

	e.Amount = f.Amount
	e.Currency = currency
	e.Description = strings.TrimSpace(f.Description)
	e.Reason = reason
	e.Type = expenseType
	e.SupplierID = f.SupplierID
	e.CreditCardID = f.CreditCardID
	e.PaymentMethod = f.PaymentMethod
	e.InvoiceDate = f.InvoiceDate
	e.PaymentDueDate = f.PaymentDueDate
	for _, a := range f.Attachments {
		e.SetAttachment(a.Kind, a.Filename)
	}
	return nil
}

// prefill fills a missing amount and invoice date from uploaded documents.
func (s *Service) prefill(ctx context.Context, e *models.Expense, uploads []Upload) {
	if s.extractor == nil {
		return
	}
	needAmount := !e.Amount.IsPositive()
	needDate := e.InvoiceDate == nil
	for _, u := range uploads {
		if !needAmount && !needDate {
			return
		}
		data := s.extract(ctx, u)
		if data == nil {
			continue
		}
		if needAmount && data.HasAmount() {
			e.Amount = data.Amount.Round(models.MoneyScale)
			needAmount = false
		}
		if needDate && data.HasDate() && u.Kind != models.DocumentQuote {
			date := data.Date
			e.InvoiceDate = &date
			needDate = false
		}
	}
}

func (s *Service) extract(ctx context.Context, u Upload) *models.DocumentData {
	data, err := s.extractor.ExtractDocument(ctx, u.Data, u.MIMEType, u.Kind)
	if err != nil {
		logger.Log.Debug().
			Err(err).
			Str("kind", string(u.Kind)).
			Msg("Document extraction returned no result")
		return nil
	}
	return data
}

func invalidAmount() error {
	return apperr.Validation("amount must have at most %d decimal places and be below %s",
		models.MoneyScale, models.MaxMoney)
}

// checkAmount validates the final amount, after any pre-fill.
func checkAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperr.Validation("amount must be positive")
	}
	if !models.ValidMoney(amount) {
		return invalidAmount()
	}
	return nil
}

// storeUploads saves uploaded documents and records their filenames on e.
// It returns the names it saved; on error nothing it saved is kept.
func (s *Service) storeUploads(ctx context.Context, e *models.Expense, uploads []Upload) ([]string, error) {
	if len(uploads) == 0 {
		return nil, nil
	}
	if s.blobs == nil {
		return nil, apperr.Validation("document uploads are not enabled")
	}
	saved := make([]string, 0, len(uploads))
	for _, u := range uploads {
		name, err := s.blobs.Save(ctx, u.Kind, u.Filename, u.Data)
		if err != nil {
			s.removeDocuments(ctx, saved)
			return nil, err
		}
		saved = append(saved, name)
		e.SetAttachment(u.Kind, name)
	}
	return saved, nil
}

// removeDocuments deletes documents no expense refers to. Failures are
// logged; the expense operation itself has already been decided.
func (s *Service) removeDocuments(ctx context.Context, names []string) {
	if s.blobs == nil {
		return
	}
	for _, name := range names {
		if name == "" {
			continue
		}
		if err := s.blobs.Remove(context.WithoutCancel(ctx), name); err != nil {
			logger.Log.Warn().Err(err).Str("document", name).Msg("Failed to remove orphaned document")
		}
	}
}
