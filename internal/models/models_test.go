package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCurrency(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"ils", "ILS", true},
		{" usd ", "USD", true},
		{"EUR", "EUR", true},
		{"XXX", "XXX", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeCurrency(tt.in)
		require.Equal(t, tt.want, got, tt.in)
		require.Equal(t, tt.ok, ok, tt.in)
	}
}

func TestPaymentStatus_CanMoveTo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to PaymentStatus
		want     bool
	}{
		{PaymentStatusPendingPayment, PaymentStatusPaid, true},
		{PaymentStatusPendingPayment, PaymentStatusPendingAttention, true},
		{PaymentStatusPendingAttention, PaymentStatusPaid, true},
		{PaymentStatusPendingAttention, PaymentStatusPendingPayment, false},
		{PaymentStatusPaid, PaymentStatusPendingAttention, false},
		{PaymentStatusPaid, PaymentStatusPaid, false},
		{PaymentStatusPendingPayment, PaymentStatusPendingPayment, false},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, tt.from.CanMoveTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestEnumValidity(t *testing.T) {
	t.Parallel()

	require.True(t, ExpenseTypePreApproved.Valid())
	require.False(t, ExpenseType("whatever").Valid())
	require.True(t, ExpenseStatusRejected.Valid())
	require.False(t, ExpenseStatus("draft").Valid())
	require.True(t, PaymentMethodCreditCard.Valid())
	require.False(t, PaymentMethod("barter").Valid())
	require.True(t, DocumentReceipt.Valid())
	require.False(t, DocumentKind("photo").Valid())
	require.True(t, ValidSupplierStatus(SupplierStatusInactive))
	require.False(t, ValidSupplierStatus("deleted"))
}

func TestValidLastFour(t *testing.T) {
	t.Parallel()

	require.True(t, ValidLastFour("0042"))
	require.False(t, ValidLastFour("42"))
	require.False(t, ValidLastFour("12a4"))
	require.False(t, ValidLastFour("12345"))
}

func TestExpense_SetAttachment(t *testing.T) {
	t.Parallel()

	var e Expense
	e.SetAttachment(DocumentQuote, "quote_a.pdf")
	e.SetAttachment(DocumentInvoice, "invoice_b.pdf")
	e.SetAttachment(DocumentReceipt, "receipt_c.jpg")
	e.SetAttachment(DocumentKind("other"), "ignored")

	require.Equal(t, "quote_a.pdf", e.QuoteFile)
	require.Equal(t, "invoice_b.pdf", e.InvoiceFile)
	require.Equal(t, "receipt_c.jpg", e.ReceiptFile)
	require.Equal(t, "invoice_b.pdf", e.Attachment(DocumentInvoice))
	require.Empty(t, e.Attachment(DocumentKind("other")))
	require.True(t, (&Expense{Status: ExpenseStatusPending}).IsPending())
	require.False(t, (&Expense{Status: ExpenseStatusApproved}).IsPending())
}

func TestValidMoney(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{"0", true},
		{"12.5", true},
		{"12.500", true},
		{"-3.25", true},
		{"999999999999.99", true},
		{"0.001", false},
		{"12.345", false},
		{"1000000000000", false},
		{"-1000000000000", false},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, ValidMoney(decimal.RequireFromString(tt.in)), tt.in)
	}
}
