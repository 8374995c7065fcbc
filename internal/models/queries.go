package models

import (
	"slices"
	"time"
)

// ExpenseScope restricts a listing to what a principal may see.
type ExpenseScope struct {
	All           bool
	OwnerID       int64
	DepartmentIDs []int64
}

// Includes reports whether an expense with the given owner and department is in scope.
func (s ExpenseScope) Includes(ownerID, departmentID int64) bool {
	if s.All {
		return true
	}
	if ownerID == s.OwnerID {
		return true
	}
	return slices.Contains(s.DepartmentIDs, departmentID)
}

// ExpenseFilter selects expenses. Nil fields do not filter.
type ExpenseFilter struct {
	Status        *ExpenseStatus
	PaymentStatus *PaymentStatus
	OwnerID       *int64
	DepartmentID  *int64
	SubcategoryID *int64
	Scope         ExpenseScope
}

// Matches reports whether e passes the filter.
func (f ExpenseFilter) Matches(e *Expense) bool {
	if f.Status != nil && e.Status != *f.Status {
		return false
	}
	if f.PaymentStatus != nil && e.PaymentStatus != *f.PaymentStatus {
		return false
	}
	if f.OwnerID != nil && e.UserID != *f.OwnerID {
		return false
	}
	if f.DepartmentID != nil && e.DepartmentID != *f.DepartmentID {
		return false
	}
	if f.SubcategoryID != nil && e.SubcategoryID != *f.SubcategoryID {
		return false
	}
	return f.Scope.Includes(e.UserID, e.DepartmentID)
}

// ExpenseReview moves a pending expense to approved or rejected.
type ExpenseReview struct {
	ExpenseID  int64
	Status     ExpenseStatus
	ReviewerID int64
	Reason     string
	At         time.Time
}

// PaymentChange moves an approved expense along the payment axis.
// From is the payment status the caller observed; storage applies the
// change only if it still holds.
type PaymentChange struct {
	ExpenseID int64
	From      PaymentStatus
	To        PaymentStatus
	ActorID   int64
	At        time.Time
}
