// Package models defines the domain entities for expense approvals and the
// department → category → subcategory budget hierarchy.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is the currency used when a department does not declare one.
const DefaultCurrency = "ILS"

// MaxNameLength is the maximum allowed length for hierarchy node and supplier names.
const MaxNameLength = 100

// SupportedCurrencies lists all supported currency codes.
var SupportedCurrencies = map[string]string{
	"ILS": "₪",
	"SGD": "S$",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"CNY": "¥",
	"MYR": "RM",
	"THB": "฿",
	"IDR": "Rp",
	"PHP": "₱",
	"VND": "₫",
	"KRW": "₩",
	"INR": "₹",
	"AUD": "A$",
	"NZD": "NZ$",
	"HKD": "HK$",
	"TWD": "NT$",
}

// Department is the root of the budget hierarchy.
type Department struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Budget    decimal.Decimal `json:"budget"`
	Currency  string          `json:"currency"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Category belongs to exactly one department.
type Category struct {
	ID           int64           `json:"id"`
	DepartmentID int64           `json:"department_id"`
	Name         string          `json:"name"`
	Budget       decimal.Decimal `json:"budget"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Subcategory is the leaf of the hierarchy and the only node an expense references.
type Subcategory struct {
	ID         int64           `json:"id"`
	CategoryID int64           `json:"category_id"`
	Name       string          `json:"name"`
	Budget     decimal.Decimal `json:"budget"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Ancestry is the full path from a subcategory up to its department.
type Ancestry struct {
	Subcategory Subcategory `json:"subcategory"`
	Category    Category    `json:"category"`
	Department  Department  `json:"department"`
}

// SubcategoryNode is a subcategory within a budget tree.
// ExceedsParent is informational: child allocations may exceed the parent's.
type SubcategoryNode struct {
	Subcategory   Subcategory `json:"subcategory"`
	ExceedsParent bool        `json:"exceeds_parent"`
}

// CategoryNode is a category together with its subcategories.
type CategoryNode struct {
	Category      Category          `json:"category"`
	ExceedsParent bool              `json:"exceeds_parent"`
	Subcategories []SubcategoryNode `json:"subcategories"`
}

// DepartmentNode is a department together with its categories.
type DepartmentNode struct {
	Department Department     `json:"department"`
	Categories []CategoryNode `json:"categories"`
}

// User is an employee who may submit and, depending on role flags, review expenses.
type User struct {
	ID                   int64     `json:"id"`
	Username             string    `json:"username"`
	Email                string    `json:"email"`
	Name                 string    `json:"name"`
	PasswordHash         string    `json:"-"`
	IsManager            bool      `json:"is_manager"`
	IsAdmin              bool      `json:"is_admin"`
	IsAccounting         bool      `json:"is_accounting"`
	Active               bool      `json:"active"`
	DepartmentID         *int64    `json:"department_id,omitempty"`
	ManagedDepartmentIDs []int64   `json:"managed_department_ids"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Supplier status values.
const (
	SupplierStatusActive   = "active"
	SupplierStatusInactive = "inactive"
)

// Supplier is a vendor an expense may be paid to.
type Supplier struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	ContactName   string    `json:"contact_name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	TaxID         string    `json:"tax_id"`
	BankName      string    `json:"bank_name"`
	BankBranch    string    `json:"bank_branch"`
	AccountNumber string    `json:"account_number"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CreditCard is a company card an expense may be charged to.
type CreditCard struct {
	ID          int64     `json:"id"`
	LastFour    string    `json:"last_four"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ExpenseType is the intent declared at submission time.
type ExpenseType string

// Expense types.
const (
	ExpenseTypeAutoApproved   ExpenseType = "auto_approved"
	ExpenseTypeNeedsApproval  ExpenseType = "needs_approval"
	ExpenseTypePreApproved    ExpenseType = "pre_approved"
	ExpenseTypeFutureApproval ExpenseType = "future_approval"
)

// ExpenseStatus is the approval axis of an expense.
type ExpenseStatus string

// Approval statuses.
const (
	ExpenseStatusPending  ExpenseStatus = "pending"
	ExpenseStatusApproved ExpenseStatus = "approved"
	ExpenseStatusRejected ExpenseStatus = "rejected"
)

// PaymentStatus is the payment axis of an expense, relevant after approval.
type PaymentStatus string

// Payment statuses.
const (
	PaymentStatusPendingPayment   PaymentStatus = "pending_payment"
	PaymentStatusPaid             PaymentStatus = "paid"
	PaymentStatusPendingAttention PaymentStatus = "pending_attention"
)

// PaymentMethod is how an expense is paid.
type PaymentMethod string

// Payment methods.
const (
	PaymentMethodCreditCard   PaymentMethod = "credit_card"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodCheck        PaymentMethod = "check"
)

// DocumentKind tags an attached document.
type DocumentKind string

// Document kinds.
const (
	DocumentQuote   DocumentKind = "quote"
	DocumentInvoice DocumentKind = "invoice"
	DocumentReceipt DocumentKind = "receipt"
)

// Expense is a reimbursable expense moving through approval and payment.
type Expense struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	SubcategoryID   int64           `json:"subcategory_id"`
	CategoryID      int64           `json:"category_id"`
	DepartmentID    int64           `json:"department_id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Description     string          `json:"description"`
	Reason          string          `json:"reason"`
	Type            ExpenseType     `json:"type"`
	Status          ExpenseStatus   `json:"status"`
	PaymentStatus   PaymentStatus   `json:"payment_status"`
	SupplierID      *int64          `json:"supplier_id,omitempty"`
	CreditCardID    *int64          `json:"credit_card_id,omitempty"`
	PaymentMethod   *PaymentMethod  `json:"payment_method,omitempty"`
	InvoiceDate     *time.Time      `json:"invoice_date,omitempty"`
	PaymentDueDate  *time.Time      `json:"payment_due_date,omitempty"`
	QuoteFile       string          `json:"quote_file,omitempty"`
	InvoiceFile     string          `json:"invoice_file,omitempty"`
	ReceiptFile     string          `json:"receipt_file,omitempty"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	ReviewedBy      *int64          `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time      `json:"reviewed_at,omitempty"`
	PaymentUpdateBy *int64          `json:"payment_updated_by,omitempty"`
	PaymentUpdateAt *time.Time      `json:"payment_updated_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// IsPending reports whether the expense can still be edited or reviewed.
func (e *Expense) IsPending() bool {
	return e.Status == ExpenseStatusPending
}

// SetAttachment stores a blob reference in the slot for the given kind.
func (e *Expense) SetAttachment(kind DocumentKind, filename string) {
	switch kind {
	case DocumentQuote:
		e.QuoteFile = filename
	case DocumentInvoice:
		e.InvoiceFile = filename
	case DocumentReceipt:
		e.ReceiptFile = filename
	}
}

// Attachment returns the stored filename for kind, or "".
func (e *Expense) Attachment(kind DocumentKind) string {
	switch kind {
	case DocumentQuote:
		return e.QuoteFile
	case DocumentInvoice:
		return e.InvoiceFile
	case DocumentReceipt:
		return e.ReceiptFile
	}
	return ""
}

// DocumentData is what document extraction found. Zero values mean "not found".
type DocumentData struct {
	Amount decimal.Decimal `json:"amount"`
	Date   time.Time       `json:"date"`
}

// HasAmount reports whether a positive amount was extracted.
func (d *DocumentData) HasAmount() bool {
	return d != nil && d.Amount.IsPositive()
}

// HasDate reports whether a date was extracted.
func (d *DocumentData) HasDate() bool {
	return d != nil && !d.Date.IsZero()
}
