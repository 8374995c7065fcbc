package models

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places stored for amounts and budgets.
const MoneyScale = 2

// MaxMoney bounds amounts and budgets (exclusive); storage holds
// DECIMAL(14,2).
var MaxMoney = decimal.New(1, 12)

var lastFourPattern = regexp.MustCompile(`^[0-9]{4}$`)

// NormalizeCurrency upper-cases a currency code and reports whether it is supported.
func NormalizeCurrency(code string) (string, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	_, ok := SupportedCurrencies[code]
	return code, ok
}

// Valid reports whether t is a known expense type.
func (t ExpenseType) Valid() bool {
	switch t {
	case ExpenseTypeAutoApproved, ExpenseTypeNeedsApproval, ExpenseTypePreApproved, ExpenseTypeFutureApproval:
		return true
	}
	return false
}

// Valid reports whether s is a known approval status.
func (s ExpenseStatus) Valid() bool {
	switch s {
	case ExpenseStatusPending, ExpenseStatusApproved, ExpenseStatusRejected:
		return true
	}
	return false
}

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPendingPayment, PaymentStatusPaid, PaymentStatusPendingAttention:
		return true
	}
	return false
}

// CanMoveTo reports whether the payment axis allows moving from s to next.
// pending_payment → paid | pending_attention, pending_attention → paid.
func (s PaymentStatus) CanMoveTo(next PaymentStatus) bool {
	switch s {
	case PaymentStatusPendingPayment:
		return next == PaymentStatusPaid || next == PaymentStatusPendingAttention
	case PaymentStatusPendingAttention:
		return next == PaymentStatusPaid
	}
	return false
}

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCreditCard, PaymentMethodBankTransfer, PaymentMethodCash, PaymentMethodCheck:
		return true
	}
	return false
}

// Valid reports whether k is a known document kind.
func (k DocumentKind) Valid() bool {
	switch k {
	case DocumentQuote, DocumentInvoice, DocumentReceipt:
		return true
	}
	return false
}

// ValidMoney reports whether d is stored exactly: at most MoneyScale
// decimal places and below MaxMoney in magnitude.
func ValidMoney(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(MoneyScale)) && d.Abs().LessThan(MaxMoney)
}

// ValidLastFour reports whether s is exactly four digits.
func ValidLastFour(s string) bool {
	return lastFourPattern.MatchString(s)
}

// ValidSupplierStatus reports whether s is a known supplier status.
func ValidSupplierStatus(s string) bool {
	return s == SupplierStatusActive || s == SupplierStatusInactive
}
