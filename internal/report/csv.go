// Package report renders expense exports and spend charts.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"gitlab.com/yelinaung/expense-approvals/internal/models"
)

// Labels resolves the ids on an expense to display names. Missing entries
// render as the bare id.
type Labels struct {
	Users         map[int64]string
	Departments   map[int64]string
	Categories    map[int64]string
	Subcategories map[int64]string
	Suppliers     map[int64]string
}

func label(names map[int64]string, id int64) string {
	if name, ok := names[id]; ok {
		return name
	}
	return strconv.FormatInt(id, 10)
}

func optionalLabel(names map[int64]string, id *int64) string {
	if id == nil {
		return ""
	}
	return label(names, *id)
}

func optionalDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

// CSVHeader is the column layout of ExpensesCSV.
var CSVHeader = []string{
	"ID", "Created", "Submitter", "Department", "Category", "Subcategory",
	"Amount", "Currency", "Type", "Status", "Payment Status", "Payment Method",
	"Supplier", "Invoice Date", "Payment Due Date", "Reason", "Description",
	"Rejection Reason",
}

// ExpensesCSV generates a CSV file from a list of expenses.
func ExpensesCSV(expenses []models.Expense, labels Labels) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(CSVHeader); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for i := range expenses {
		e := &expenses[i]
		method := ""
		if e.PaymentMethod != nil {
			method = string(*e.PaymentMethod)
		}

		row := []string{
			strconv.FormatInt(e.ID, 10),
			e.CreatedAt.Format("2006-01-02 15:04:05"),
			label(labels.Users, e.UserID),
			label(labels.Departments, e.DepartmentID),
			label(labels.Categories, e.CategoryID),
			label(labels.Subcategories, e.SubcategoryID),
			e.Amount.StringFixed(2),
			e.Currency,
			string(e.Type),
			string(e.Status),
			string(e.PaymentStatus),
			method,
			optionalLabel(labels.Suppliers, e.SupplierID),
			optionalDate(e.InvoiceDate),
			optionalDate(e.PaymentDueDate),
			e.Reason,
			e.Description,
			e.RejectionReason,
		}

		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportFilename names an export generated at now.
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("expenses_%s.csv", now.Format("2006-01-02"))
}
