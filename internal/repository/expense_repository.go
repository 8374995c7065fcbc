package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"gitlab.com/yelinaung/expense-approvals/internal/apperr"
	"gitlab.com/yelinaung/expense-approvals/internal/database"
	"gitlab.com/yelinaung/expense-approvals/internal/models"
)

// ExpenseRepository handles expense database operations.
//
// Transitions are single conditional UPDATE or DELETE statements, so two
// concurrent reviewers cannot both move the same pending expense.
type ExpenseRepository struct {
	db database.PGXDB
}

// NewExpenseRepository creates a new ExpenseRepository.
func NewExpenseRepository(db database.PGXDB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

const expenseColumns = `id, user_id, subcategory_id, category_id, department_id, amount, currency,
	description, reason, type, status, payment_status, supplier_id, credit_card_id, payment_method,
	invoice_date, payment_due_date, quote_file, invoice_file, receipt_file, rejection_reason,
	reviewed_by, reviewed_at, payment_updated_by, payment_updated_at, created_at, updated_at`

func scanExpense(row pgx.Row) (*models.Expense, error) {
	var e models.Expense
	var method *string
	err := row.Scan(&e.ID, &e.UserID, &e.SubcategoryID, &e.CategoryID, &e.DepartmentID, &e.Amount, &e.Currency,
		&e.Description, &e.Reason, &e.Type, &e.Status, &e.PaymentStatus, &e.SupplierID, &e.CreditCardID, &method,
		&e.InvoiceDate, &e.PaymentDueDate, &e.QuoteFile, &e.InvoiceFile, &e.ReceiptFile, &e.RejectionReason,
		&e.ReviewedBy, &e.ReviewedAt, &e.PaymentUpdateBy, &e.PaymentUpdateAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if method != nil {
		pm := models.PaymentMethod(*method)
		e.PaymentMethod = &pm
	}
	return &e, nil
}

func paymentMethodArg(pm *models.PaymentMethod) *string {
	if pm == nil {
		return nil
	}
	s := string(*pm)
	return &s
}

// expenseRefError maps a foreign key violation on insert or update to the
// missing referenced row.
func expenseRefError(err error, e *models.Expense) error {
	constraint, ok := violation(err, codeForeignKeyViolation)
	if !ok {
		return nil
	}
	switch {
	case strings.Contains(constraint, "supplier"):
		return apperr.NotFound("supplier %d not found", derefID(e.SupplierID))
	case strings.Contains(constraint, "credit_card"):
		return apperr.NotFound("credit card %d not found", derefID(e.CreditCardID))
	case strings.Contains(constraint, "user"):
		return apperr.NotFound("user %d not found", e.UserID)
	default:
		return apperr.NotFound("subcategory %d not found", e.SubcategoryID)
	}
}

func derefID(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}

// Create adds a new expense.
func (r *ExpenseRepository) Create(ctx context.Context, e *models.Expense) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO expenses (user_id, subcategory_id, category_id, department_id, amount, currency,
			description, reason, type, status, payment_status, supplier_id, credit_card_id, payment_method,
			invoice_date, payment_due_date, quote_file, invoice_file, receipt_file)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id, created_at, updated_at
	`, e.UserID, e.SubcategoryID, e.CategoryID, e.DepartmentID, e.Amount, e.Currency,
		e.Description, e.Reason, string(e.Type), string(e.Status), string(e.PaymentStatus),
		e.SupplierID, e.CreditCardID, paymentMethodArg(e.PaymentMethod),
		e.InvoiceDate, e.PaymentDueDate, e.QuoteFile, e.InvoiceFile, e.ReceiptFile,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if refErr := expenseRefError(err, e); refErr != nil {
		return refErr
	}
	if err != nil {
		return writeFailed(err, "create expense")
	}
	return nil
}

// GetByID retrieves an expense by ID.
func (r *ExpenseRepository) GetByID(ctx context.Context, id int64) (*models.Expense, error) {
	e, err := scanExpense(r.db.QueryRow(ctx, `
		SELECT `+expenseColumns+` FROM expenses WHERE id = $1
	`, id))
	if isNoRows(err) {
		return nil, apperr.NotFound("expense %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return e, nil
}

// whereClause renders a filter as SQL conditions with positional arguments.
func whereClause(f models.ExpenseFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(args))))
	}

	if f.Status != nil {
		add("status = ?", string(*f.Status))
	}
	if f.PaymentStatus != nil {
		add("payment_status = ?", string(*f.PaymentStatus))
	}
	if f.OwnerID != nil {
		add("user_id = ?", *f.OwnerID)
	}
	if f.DepartmentID != nil {
		add("department_id = ?", *f.DepartmentID)
	}
	if f.SubcategoryID != nil {
		add("subcategory_id = ?", *f.SubcategoryID)
	}
	if !f.Scope.All {
		departments := f.Scope.DepartmentIDs
		if departments == nil {
			departments = []int64{}
		}
		args = append(args, f.Scope.OwnerID, departments)
		conds = append(conds, fmt.Sprintf("(user_id = $%d OR department_id = ANY($%d::BIGINT[]))", len(args)-1, len(args)))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List retrieves expenses matching the filter in creation order.
func (r *ExpenseRepository) List(ctx context.Context, f models.ExpenseFilter) ([]models.Expense, error) {
	where, args := whereClause(f)
	rows, err := r.db.Query(ctx, `SELECT `+expenseColumns+` FROM expenses`+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expenses: %w", err)
	}
	return expenses, nil
}

// notPending explains why a conditional statement on a pending expense
// matched no row.
func (r *ExpenseRepository) notPending(ctx context.Context, id int64) error {
	var status string
	err := r.db.QueryRow(ctx, `SELECT status FROM expenses WHERE id = $1`, id).Scan(&status)
	if isNoRows(err) {
		return apperr.NotFound("expense %d not found", id)
	}
	if err != nil {
		return fmt.Errorf("failed to get expense status: %w", err)
	}
	return apperr.InvalidState("expense %d is %s", id, status)
}

// UpdatePending replaces the editable fields of a pending expense.
func (r *ExpenseRepository) UpdatePending(ctx context.Context, e *models.Expense) error {
	updated, err := scanExpense(r.db.QueryRow(ctx, `
		UPDATE expenses SET amount = $2, currency = $3, description = $4, reason = $5, type = $6,
			supplier_id = $7, credit_card_id = $8, payment_method = $9, invoice_date = $10,
			payment_due_date = $11, quote_file = $12, invoice_file = $13, receipt_file = $14,
			updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+expenseColumns,
		e.ID, e.Amount, e.Currency, e.Description, e.Reason, string(e.Type),
		e.SupplierID, e.CreditCardID, paymentMethodArg(e.PaymentMethod), e.InvoiceDate,
		e.PaymentDueDate, e.QuoteFile, e.InvoiceFile, e.ReceiptFile))
	if isNoRows(err) {
		return r.notPending(ctx, e.ID)
	}
	if refErr := expenseRefError(err, e); refErr != nil {
		return refErr
	}
	if err != nil {
		return writeFailed(err, "update expense")
	}
	*e = *updated
	return nil
}

// DeletePending removes a pending expense.
func (r *ExpenseRepository) DeletePending(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM expenses WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.notPending(ctx, id)
	}
	return nil
}

// Review moves a pending expense to approved or rejected.
func (r *ExpenseRepository) Review(ctx context.Context, rv models.ExpenseReview) (*models.Expense, error) {
	e, err := scanExpense(r.db.QueryRow(ctx, `
		UPDATE expenses SET status = $2, rejection_reason = $3, reviewed_by = $4, reviewed_at = $5,
			updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+expenseColumns,
		rv.ExpenseID, string(rv.Status), rv.Reason, rv.ReviewerID, rv.At))
	if isNoRows(err) {
		return nil, r.notPending(ctx, rv.ExpenseID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to review expense: %w", err)
	}
	return e, nil
}

// SetPaymentStatus moves an approved expense from pc.From to pc.To.
func (r *ExpenseRepository) SetPaymentStatus(ctx context.Context, pc models.PaymentChange) (*models.Expense, error) {
	e, err := scanExpense(r.db.QueryRow(ctx, `
		UPDATE expenses SET payment_status = $3, payment_updated_by = $4, payment_updated_at = $5,
			updated_at = NOW()
		WHERE id = $1 AND status = 'approved' AND payment_status = $2
		RETURNING `+expenseColumns,
		pc.ExpenseID, string(pc.From), string(pc.To), pc.ActorID, pc.At))
	if err == nil {
		return e, nil
	}
	if !isNoRows(err) {
		return nil, fmt.Errorf("failed to set payment status: %w", err)
	}

	var status, paymentStatus string
	err = r.db.QueryRow(ctx, `
		SELECT status, payment_status FROM expenses WHERE id = $1
	`, pc.ExpenseID).Scan(&status, &paymentStatus)
	if isNoRows(err) {
		return nil, apperr.NotFound("expense %d not found", pc.ExpenseID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense status: %w", err)
	}
	if status != string(models.ExpenseStatusApproved) {
		return nil, apperr.InvalidState("expense %d is %s", pc.ExpenseID, status)
	}
	return nil, apperr.InvalidState("expense %d payment status is %s", pc.ExpenseID, paymentStatus)
}
