package report

import (
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/expense-approvals/internal/budget"
	"gitlab.com/yelinaung/expense-approvals/internal/models"
	"gitlab.com/yelinaung/expense-approvals/internal/spend"
)

func TestExpensesCSV(t *testing.T) {
	t.Parallel()

	t.Run("generates CSV with header and rows", func(t *testing.T) {
		t.Parallel()

		supplierID := int64(40)
		method := models.PaymentMethodBankTransfer
		invoice := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
		expenses := []models.Expense{
			{
				ID:            7,
				UserID:        1,
				DepartmentID:  10,
				CategoryID:    20,
				SubcategoryID: 30,
				Amount:        decimal.NewFromFloat(1250.5),
				Currency:      "ILS",
				Reason:        "Annual licence, renewal",
				Type:          models.ExpenseTypeNeedsApproval,
				Status:        models.ExpenseStatusApproved,
				PaymentStatus: models.PaymentStatusPaid,
				PaymentMethod: &method,
				SupplierID:    &supplierID,
				InvoiceDate:   &invoice,
				CreatedAt:     time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC),
			},
			{
				ID:              8,
				UserID:          2,
				DepartmentID:    10,
				CategoryID:      20,
				SubcategoryID:   30,
				Amount:          decimal.NewFromInt(25),
				Currency:        "USD",
				Reason:          "Taxi",
				Type:            models.ExpenseTypeAutoApproved,
				Status:          models.ExpenseStatusRejected,
				PaymentStatus:   models.PaymentStatusPendingPayment,
				RejectionReason: "personal trip",
				CreatedAt:       time.Date(2026, 1, 16, 14, 15, 0, 0, time.UTC),
			},
		}
		labels := Labels{
			Users:         map[int64]string{1: "dana"},
			Departments:   map[int64]string{10: "Engineering"},
			Categories:    map[int64]string{20: "Software"},
			Subcategories: map[int64]string{30: "Licenses"},
			Suppliers:     map[int64]string{40: "Acme"},
		}

		data, err := ExpensesCSV(expenses, labels)
		require.NoError(t, err)

		records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 3)
		require.Equal(t, CSVHeader, records[0])

		row := records[1]
		require.Equal(t, "7", row[0])
		require.Equal(t, "2026-01-15 10:30:00", row[1])
		require.Equal(t, "dana", row[2])
		require.Equal(t, "Engineering", row[3])
		require.Equal(t, "Software", row[4])
		require.Equal(t, "Licenses", row[5])
		require.Equal(t, "1250.50", row[6])
		require.Equal(t, "approved", row[9])
		require.Equal(t, "paid", row[10])
		require.Equal(t, "bank_transfer", row[11])
		require.Equal(t, "Acme", row[12])
		require.Equal(t, "2026-01-10", row[13])
		require.Equal(t, "", row[14])
		require.Equal(t, "Annual licence, renewal", row[15])

		row = records[2]
		require.Equal(t, "2", row[2], "unknown users render as their id")
		require.Equal(t, "25.00", row[6])
		require.Equal(t, "", row[11])
		require.Equal(t, "", row[12])
		require.Equal(t, "personal trip", row[17])
	})

	t.Run("header only for no expenses", func(t *testing.T) {
		t.Parallel()

		data, err := ExpensesCSV(nil, Labels{})
		require.NoError(t, err)
		records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 1)
	})
}

func TestExportFilename(t *testing.T) {
	t.Parallel()
	require.Equal(t, "expenses_2026-03-09.csv", ExportFilename(time.Date(2026, 3, 9, 23, 0, 0, 0, time.UTC)))
	require.Equal(t, "department_4_spend.png", ChartFilename(4))
}

func TestSpendChart(t *testing.T) {
	t.Parallel()

	tree := budget.BuildTree(
		[]models.Department{{ID: 1, Name: "Engineering", Budget: decimal.NewFromInt(10000), Currency: "ILS"}},
		[]models.Category{
			{ID: 2, DepartmentID: 1, Name: "Software"},
			{ID: 3, DepartmentID: 1, Name: "Hardware"},
		},
		[]models.Subcategory{
			{ID: 4, CategoryID: 2, Name: "Licenses"},
			{ID: 5, CategoryID: 3, Name: "Laptops"},
		},
	)
	approved := func(sub int64, amount float64) models.Expense {
		return models.Expense{
			SubcategoryID: sub,
			Amount:        decimal.NewFromFloat(amount),
			Currency:      "ILS",
			Status:        models.ExpenseStatusApproved,
		}
	}

	tests := []struct {
		name     string
		expenses []models.Expense
		wantErr  error
	}{
		{"multiple categories", []models.Expense{approved(4, 1200), approved(5, 800.5)}, nil},
		{"single category", []models.Expense{approved(4, 300)}, nil},
		{"no spend", nil, ErrNoSpend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ds := spend.Aggregate(tree, tt.expenses)[0]
			buf, err := SpendChart(&ds)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotEmpty(t, buf)

			// PNG files start with magic bytes: 89 50 4E 47
			require.Equal(t, []byte{0x89, 0x50, 0x4E, 0x47}, buf[:4])
		})
	}
}
