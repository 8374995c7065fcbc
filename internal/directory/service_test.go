package directory_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/expense-approvals/internal/apperr"
	"gitlab.com/yelinaung/expense-approvals/internal/auth"
	"gitlab.com/yelinaung/expense-approvals/internal/authz"
	"gitlab.com/yelinaung/expense-approvals/internal/directory"
	"gitlab.com/yelinaung/expense-approvals/internal/models"
	"gitlab.com/yelinaung/expense-approvals/internal/repository/memstore"
)

var (
	admin      = &authz.Principal{UserID: 1, Roles: authz.Roles(authz.RoleAdmin), Active: true}
	accounting = &authz.Principal{UserID: 2, Roles: authz.Roles(authz.RoleAccounting), Active: true}
	employee   = &authz.Principal{UserID: 3, Active: true}
)

func newService() (*directory.Service, *memstore.DB) {
	db := memstore.New()
	return directory.NewService(db.Suppliers(), db.CreditCards(), db.Users()), db
}

// seedExpense stores an expense referencing supplier and card through the
// repository, bypassing the expense service.
func seedExpense(t *testing.T, db *memstore.DB, supplierID, cardID *int64) {
	t.Helper()
	ctx := context.Background()

	d := &models.Department{Name: "Ops", Currency: "ILS"}
	require.NoError(t, db.Departments().Create(ctx, d))
	c := &models.Category{DepartmentID: d.ID, Name: "Travel"}
	require.NoError(t, db.Categories().Create(ctx, c))
	s := &models.Subcategory{CategoryID: c.ID, Name: "Flights"}
	require.NoError(t, db.Subcategories().Create(ctx, s))
	u := &models.User{Username: "owner", Email: "owner@example.com", Active: true}
	require.NoError(t, db.Users().Create(ctx, u))

	require.NoError(t, db.Expenses().Create(ctx, &models.Expense{
		UserID:        u.ID,
		SubcategoryID: s.ID,
		CategoryID:    c.ID,
		DepartmentID:  d.ID,
		Amount:        decimal.NewFromInt(10),
		Currency:      "ILS",
		Status:        models.ExpenseStatusPending,
		SupplierID:    supplierID,
		CreditCardID:  cardID,
	}))
}

func TestSuppliers(t *testing.T) {
	t.Parallel()
	svc, db := newService()
	ctx := context.Background()

	_, err := svc.CreateSupplier(ctx, employee, directory.SupplierInput{Name: "Acme"})
	require.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = svc.CreateSupplier(ctx, admin, directory.SupplierInput{Name: "  "})
	require.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.CreateSupplier(ctx, admin, directory.SupplierInput{Name: "Acme", Status: "paused"})
	require.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.CreateSupplier(ctx, admin, directory.SupplierInput{Name: "Acme", Email: "not-an-email"})
	require.ErrorIs(t, err, apperr.ErrValidation)

	acme, err := svc.CreateSupplier(ctx, admin, directory.SupplierInput{Name: " Acme ", TaxID: "514000001"})
	require.NoError(t, err)
	require.Equal(t, "Acme", acme.Name)
	require.Equal(t, models.SupplierStatusActive, acme.Status)

	globex, err := svc.CreateSupplier(ctx, admin, directory.SupplierInput{Name: "Globex"})
	require.NoError(t, err)

	list, err := svc.ListSuppliers(ctx, employee, "")
	require.NoError(t, err)
	require.Len(t, list, 2)

	seedExpense(t, db, &acme.ID, nil)

	deactivated, err := svc.DeleteSupplier(ctx, admin, acme.ID)
	require.NoError(t, err)
	require.True(t, deactivated)
	got, err := svc.GetSupplier(ctx, employee, acme.ID)
	require.NoError(t, err)
	require.Equal(t, models.SupplierStatusInactive, got.Status)

	deactivated, err = svc.DeleteSupplier(ctx, admin, globex.ID)
	require.NoError(t, err)
	require.False(t, deactivated)
	_, err = svc.GetSupplier(ctx, employee, globex.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	active, err := svc.ListSuppliers(ctx, employee, models.SupplierStatusActive)
	require.NoError(t, err)
	require.Empty(t, active)
	_, err = svc.ListSuppliers(ctx, employee, "archived")
	require.ErrorIs(t, err, apperr.ErrValidation)

	updated, err := svc.UpdateSupplier(ctx, admin, acme.ID, directory.SupplierInput{Name: "Acme Ltd", Status: models.SupplierStatusActive})
	require.NoError(t, err)
	require.Equal(t, "Acme Ltd", updated.Name)
	require.Equal(t, models.SupplierStatusActive, updated.Status)

	_, err = svc.UpdateSupplier(ctx, admin, 9999, directory.SupplierInput{Name: "x"})
	require.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = svc.UpdateSupplier(ctx, accounting, acme.ID, directory.SupplierInput{Name: "x"})
	require.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestCreditCards(t *testing.T) {
	t.Parallel()
	svc, db := newService()
	ctx := context.Background()

	for _, bad := range []string{"", "123", "12345", "12a4"} {
		_, err := svc.CreateCreditCard(ctx, accounting, directory.CreditCardInput{LastFour: bad})
		require.ErrorIs(t, err, apperr.ErrValidation, bad)
	}
	_, err := svc.CreateCreditCard(ctx, employee, directory.CreditCardInput{LastFour: "1234"})
	require.ErrorIs(t, err, apperr.ErrForbidden)

	card, err := svc.CreateCreditCard(ctx, accounting, directory.CreditCardInput{LastFour: "4242", Description: "Travel card"})
	require.NoError(t, err)
	spare, err := svc.CreateCreditCard(ctx, admin, directory.CreditCardInput{LastFour: "0005"})
	require.NoError(t, err)

	updated, err := svc.UpdateCreditCard(ctx, accounting, card.ID, directory.CreditCardInput{LastFour: "4242", Description: "Team travel"})
	require.NoError(t, err)
	require.Equal(t, "Team travel", updated.Description)

	cards, err := svc.ListCreditCards(ctx, employee)
	require.NoError(t, err)
	require.Len(t, cards, 2)

	seedExpense(t, db, nil, &card.ID)
	require.ErrorIs(t, svc.DeleteCreditCard(ctx, accounting, card.ID), apperr.ErrConflict)
	require.ErrorIs(t, svc.DeleteCreditCard(ctx, employee, spare.ID), apperr.ErrForbidden)
	require.NoError(t, svc.DeleteCreditCard(ctx, accounting, spare.ID))
	require.ErrorIs(t, svc.DeleteCreditCard(ctx, accounting, spare.ID), apperr.ErrNotFound)
}

func TestUsers(t *testing.T) {
	t.Parallel()
	svc, db := newService()
	ctx := context.Background()

	eng := &models.Department{Name: "Engineering", Currency: "ILS"}
	require.NoError(t, db.Departments().Create(ctx, eng))

	_, err := svc.CreateUser(ctx, accounting, directory.UserInput{Username: "dana", Email: "dana@example.com", Password: "long-enough"})
	require.ErrorIs(t, err, apperr.ErrForbidden)

	tests := []struct {
		name string
		in   directory.UserInput
		want error
	}{
		{"missing username", directory.UserInput{Email: "a@example.com", Password: "long-enough"}, apperr.ErrValidation},
		{"bad email", directory.UserInput{Username: "a", Email: "example.com", Password: "long-enough"}, apperr.ErrValidation},
		{"short password", directory.UserInput{Username: "a", Email: "a@example.com", Password: "short"}, apperr.ErrValidation},
		{"managed without role", directory.UserInput{Username: "a", Email: "a@example.com", Password: "long-enough", ManagedDepartmentIDs: []int64{eng.ID}}, apperr.ErrValidation},
		{"unknown managed department", directory.UserInput{Username: "a", Email: "a@example.com", Password: "long-enough", IsManager: true, ManagedDepartmentIDs: []int64{9999}}, apperr.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateUser(ctx, admin, tt.in)
			require.ErrorIs(t, err, tt.want)
		})
	}

	dana, err := svc.CreateUser(ctx, admin, directory.UserInput{
		Username:             "dana",
		Email:                "dana@example.com",
		Password:             "long-enough",
		IsManager:            true,
		DepartmentID:         &eng.ID,
		ManagedDepartmentIDs: []int64{eng.ID, eng.ID},
	})
	require.NoError(t, err)
	require.True(t, dana.Active)
	require.Equal(t, []int64{eng.ID}, dana.ManagedDepartmentIDs)
	require.True(t, auth.CheckPassword(dana.PasswordHash, "long-enough"))

	_, err = svc.CreateUser(ctx, admin, directory.UserInput{Username: "DANA", Email: "other@example.com", Password: "long-enough"})
	require.ErrorIs(t, err, apperr.ErrConflict)
	_, err = svc.CreateUser(ctx, admin, directory.UserInput{Username: "other", Email: "Dana@Example.com", Password: "long-enough"})
	require.ErrorIs(t, err, apperr.ErrConflict)

	self := &authz.Principal{UserID: dana.ID, Roles: authz.Roles(authz.RoleManager), Active: true}
	got, err := svc.GetUser(ctx, self, dana.ID)
	require.NoError(t, err)
	require.Equal(t, "dana", got.Username)
	_, err = svc.GetUser(ctx, employee, dana.ID)
	require.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = svc.ListUsers(ctx, self)
	require.ErrorIs(t, err, apperr.ErrForbidden)

	inactive := false
	updated, err := svc.UpdateUser(ctx, admin, dana.ID, directory.UserInput{
		Username: "dana",
		Email:    "dana@example.com",
		Active:   &inactive,
	})
	require.NoError(t, err)
	require.False(t, updated.Active)
	require.False(t, updated.IsManager)
	require.True(t, auth.CheckPassword(updated.PasswordHash, "long-enough"), "empty password keeps the current one")

	require.NoError(t, svc.DeleteUser(ctx, admin, dana.ID))
	require.ErrorIs(t, svc.DeleteUser(ctx, admin, dana.ID), apperr.ErrNotFound)
}

func TestDeleteUser_OwnsExpenses(t *testing.T) {
	t.Parallel()
	svc, db := newService()
	ctx := context.Background()

	seedExpense(t, db, nil, nil)
	owner, err := db.Users().GetByUsername(ctx, "owner")
	require.NoError(t, err)

	require.ErrorIs(t, svc.DeleteUser(ctx, admin, owner.ID), apperr.ErrConflict)
}

func TestEnsureAdmin(t *testing.T) {
	t.Parallel()
	svc, db := newService()
	ctx := context.Background()

	created, err := svc.EnsureAdmin(ctx, "root", "root@example.com", "bootstrap-pass")
	require.NoError(t, err)
	require.True(t, created)

	created, err = svc.EnsureAdmin(ctx, "root", "root@example.com", "bootstrap-pass")
	require.NoError(t, err)
	require.False(t, created)

	u, err := db.Users().GetByUsername(ctx, "root")
	require.NoError(t, err)
	require.True(t, u.IsAdmin)
	require.True(t, u.Active)

	_, err = svc.EnsureAdmin(ctx, "other", "other@example.com", "short")
	require.ErrorIs(t, err, apperr.ErrValidation)
}
