package budget_test

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/expense-approvals/internal/apperr"
	"gitlab.com/yelinaung/expense-approvals/internal/authz"
	"gitlab.com/yelinaung/expense-approvals/internal/budget"
	"gitlab.com/yelinaung/expense-approvals/internal/models"
	"gitlab.com/yelinaung/expense-approvals/internal/repository/memstore"
	"pgregory.net/rapid"
)

var (
	admin    = &authz.Principal{UserID: 1, Roles: authz.Roles(authz.RoleAdmin), Active: true}
	manager  = &authz.Principal{UserID: 2, Roles: authz.Roles(authz.RoleManager), Active: true}
	employee = &authz.Principal{UserID: 3, Active: true}
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newService(t *testing.T) (*budget.Service, *memstore.DB) {
	t.Helper()
	db := memstore.New()
	return budget.NewService(db.Departments(), db.Categories(), db.Subcategories()), db
}

func TestCreateDepartment(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)
	ctx := context.Background()

	d, err := svc.CreateDepartment(ctx, admin, budget.DepartmentInput{Name: "  Engineering ", Budget: dec("10000")})
	require.NoError(t, err)
	require.NotZero(t, d.ID)
	require.Equal(t, "Engineering", d.Name)
	require.Equal(t, models.DefaultCurrency, d.Currency)

	d, err = svc.CreateDepartment(ctx, manager, budget.DepartmentInput{Name: "Sales", Budget: dec("500"), Currency: "usd"})
	require.NoError(t, err)
	require.Equal(t, "USD", d.Currency)

	got, err := svc.ListDepartments(ctx, employee)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "Engineering", got[0].Name)
}

func TestCreateDepartment_Errors(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		p    *authz.Principal
		in   budget.DepartmentInput
		want error
	}{
		{"employee", employee, budget.DepartmentInput{Name: "X"}, apperr.ErrForbidden},
		{"empty name", admin, budget.DepartmentInput{Name: "   "}, apperr.ErrValidation},
		{"long name", admin, budget.DepartmentInput{Name: strings.Repeat("a", models.MaxNameLength+1)}, apperr.ErrValidation},
		{"negative budget", admin, budget.DepartmentInput{Name: "X", Budget: dec("-1")}, apperr.ErrValidation},
		{"sub-cent budget", admin, budget.DepartmentInput{Name: "X", Budget: dec("0.001")}, apperr.ErrValidation},
		{"budget above column range", admin, budget.DepartmentInput{Name: "X", Budget: dec("1000000000000")}, apperr.ErrValidation},
		{"unknown currency", admin, budget.DepartmentInput{Name: "X", Currency: "ZZZ"}, apperr.ErrValidation},
		{"nil principal", nil, budget.DepartmentInput{Name: "X"}, apperr.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.CreateDepartment(ctx, tt.p, tt.in)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestHierarchyCRUD(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)
	ctx := context.Background()

	d, err := svc.CreateDepartment(ctx, admin, budget.DepartmentInput{Name: "Ops", Budget: dec("1000")})
	require.NoError(t, err)
	c, err := svc.CreateCategory(ctx, admin, d.ID, budget.NodeInput{Name: "Travel", Budget: dec("400")})
	require.NoError(t, err)
	s, err := svc.CreateSubcategory(ctx, admin, c.ID, budget.NodeInput{Name: "Flights", Budget: dec("300")})
	require.NoError(t, err)

	_, err = svc.CreateCategory(ctx, admin, 9999, budget.NodeInput{Name: "Orphan"})
	require.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = svc.CreateSubcategory(ctx, admin, 9999, budget.NodeInput{Name: "Orphan"})
	require.ErrorIs(t, err, apperr.ErrNotFound)

	updated, err := svc.UpdateCategory(ctx, manager, c.ID, budget.NodeInput{Name: "Trips", Budget: dec("450")})
	require.NoError(t, err)
	require.Equal(t, "Trips", updated.Name)
	require.Equal(t, d.ID, updated.DepartmentID)

	_, err = svc.UpdateSubcategory(ctx, employee, s.ID, budget.NodeInput{Name: "x"})
	require.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = svc.UpdateSubcategory(ctx, admin, 9999, budget.NodeInput{Name: "x"})
	require.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.UpdateDepartment(ctx, admin, d.ID, budget.DepartmentInput{Name: "Operations", Budget: dec("2000"), Currency: "EUR"})
	require.NoError(t, err)
	got, err := svc.GetDepartment(ctx, employee, d.ID)
	require.NoError(t, err)
	require.Equal(t, "Operations", got.Name)
	require.Equal(t, "EUR", got.Currency)

	cats, err := svc.ListCategories(ctx, employee, &d.ID)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	subs, err := svc.ListSubcategories(ctx, employee, &c.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)

	require.ErrorIs(t, svc.DeleteDepartment(ctx, admin, d.ID), apperr.ErrConflict)
	require.ErrorIs(t, svc.DeleteCategory(ctx, admin, c.ID), apperr.ErrConflict)
	require.ErrorIs(t, svc.DeleteSubcategory(ctx, employee, s.ID), apperr.ErrForbidden)

	require.NoError(t, svc.DeleteSubcategory(ctx, admin, s.ID))
	require.NoError(t, svc.DeleteCategory(ctx, admin, c.ID))
	require.NoError(t, svc.DeleteDepartment(ctx, admin, d.ID))
	require.ErrorIs(t, svc.DeleteDepartment(ctx, admin, d.ID), apperr.ErrNotFound)
}

func TestDeleteSubcategory_ReferencedByExpense(t *testing.T) {
	t.Parallel()
	svc, db := newService(t)
	ctx := context.Background()

	d, err := svc.CreateDepartment(ctx, admin, budget.DepartmentInput{Name: "Ops"})
	require.NoError(t, err)
	c, err := svc.CreateCategory(ctx, admin, d.ID, budget.NodeInput{Name: "Travel"})
	require.NoError(t, err)
	s, err := svc.CreateSubcategory(ctx, admin, c.ID, budget.NodeInput{Name: "Flights"})
	require.NoError(t, err)

	u := &models.User{Username: "u", Email: "u@example.com", Active: true}
	require.NoError(t, db.Users().Create(ctx, u))
	require.NoError(t, db.Expenses().Create(ctx, &models.Expense{
		UserID:        u.ID,
		SubcategoryID: s.ID,
		CategoryID:    c.ID,
		DepartmentID:  d.ID,
		Amount:        dec("10"),
		Currency:      "ILS",
		Status:        models.ExpenseStatusPending,
	}))

	require.ErrorIs(t, svc.DeleteSubcategory(ctx, admin, s.ID), apperr.ErrConflict)

	_, err = svc.UpdateDepartment(ctx, admin, d.ID, budget.DepartmentInput{Name: "Ops", Currency: "USD"})
	require.ErrorIs(t, err, apperr.ErrConflict)
	_, err = svc.UpdateDepartment(ctx, admin, d.ID, budget.DepartmentInput{Name: "Operations", Budget: dec("99.5")})
	require.NoError(t, err)
	got, err := svc.GetDepartment(ctx, employee, d.ID)
	require.NoError(t, err)
	require.Equal(t, "Operations", got.Name)
	require.Equal(t, models.DefaultCurrency, got.Currency)
}

func TestUpdateNode_MoneyLimits(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)
	ctx := context.Background()

	d, err := svc.CreateDepartment(ctx, admin, budget.DepartmentInput{Name: "Ops", Budget: dec("1000")})
	require.NoError(t, err)
	c, err := svc.CreateCategory(ctx, admin, d.ID, budget.NodeInput{Name: "Travel", Budget: dec("400.10")})
	require.NoError(t, err)

	for _, b := range []string{"0.001", "12.345", "1000000000000", "999999999999.999"} {
		_, err = svc.CreateSubcategory(ctx, admin, c.ID, budget.NodeInput{Name: "Flights", Budget: dec(b)})
		require.ErrorIs(t, err, apperr.ErrValidation, b)
		_, err = svc.UpdateCategory(ctx, admin, c.ID, budget.NodeInput{Name: "Travel", Budget: dec(b)})
		require.ErrorIs(t, err, apperr.ErrValidation, b)
	}

	s, err := svc.CreateSubcategory(ctx, admin, c.ID, budget.NodeInput{Name: "Flights", Budget: dec("999999999999.99")})
	require.NoError(t, err)
	require.True(t, dec("999999999999.99").Equal(s.Budget))
}

func TestTree(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)
	ctx := context.Background()

	eng, err := svc.CreateDepartment(ctx, admin, budget.DepartmentInput{Name: "Engineering", Budget: dec("1000")})
	require.NoError(t, err)
	ops, err := svc.CreateDepartment(ctx, admin, budget.DepartmentInput{Name: "Ops", Budget: dec("100")})
	require.NoError(t, err)
	big, err := svc.CreateCategory(ctx, admin, ops.ID, budget.NodeInput{Name: "Big", Budget: dec("500")})
	require.NoError(t, err)
	_, err = svc.CreateSubcategory(ctx, admin, big.ID, budget.NodeInput{Name: "Small", Budget: dec("50")})
	require.NoError(t, err)
	_, err = svc.CreateSubcategory(ctx, admin, big.ID, budget.NodeInput{Name: "Huge", Budget: dec("600")})
	require.NoError(t, err)

	tree, err := svc.Tree(ctx, employee, nil)
	require.NoError(t, err)
	require.Len(t, tree, 2)
	require.Equal(t, eng.ID, tree[0].Department.ID)
	require.Empty(t, tree[0].Categories)

	opsNode := tree[1]
	require.Len(t, opsNode.Categories, 1)
	require.True(t, opsNode.Categories[0].ExceedsParent)
	require.False(t, opsNode.Categories[0].Subcategories[0].ExceedsParent)
	require.True(t, opsNode.Categories[0].Subcategories[1].ExceedsParent)

	one, err := svc.Tree(ctx, employee, &ops.ID)
	require.NoError(t, err)
	require.Len(t, one, 1)
	require.Equal(t, "Ops", one[0].Department.Name)

	missing := int64(9999)
	_, err = svc.Tree(ctx, employee, &missing)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestResolveAncestry(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.ResolveAncestry(ctx, 42)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	// Every subcategory must resolve to exactly the category and department
	// it was created under.
	rapid.Check(t, func(t *rapid.T) {
		d, err := svc.CreateDepartment(ctx, admin, budget.DepartmentInput{Name: "d"})
		if err != nil {
			t.Fatal(err)
		}
		nCats := rapid.IntRange(1, 3).Draw(t, "categories")
		type leaf struct{ sub, cat int64 }
		var leaves []leaf
		for range nCats {
			c, err := svc.CreateCategory(ctx, admin, d.ID, budget.NodeInput{Name: "c"})
			if err != nil {
				t.Fatal(err)
			}
			nSubs := rapid.IntRange(1, 3).Draw(t, "subcategories")
			for range nSubs {
				s, err := svc.CreateSubcategory(ctx, admin, c.ID, budget.NodeInput{Name: "s"})
				if err != nil {
					t.Fatal(err)
				}
				leaves = append(leaves, leaf{sub: s.ID, cat: c.ID})
			}
		}
		for _, l := range leaves {
			a, err := svc.ResolveAncestry(ctx, l.sub)
			if err != nil {
				t.Fatal(err)
			}
			if a.Category.ID != l.cat || a.Department.ID != d.ID {
				t.Fatalf("subcategory %d resolved to %d/%d, want %d/%d",
					l.sub, a.Category.ID, a.Department.ID, l.cat, d.ID)
			}
		}
	})
}
