package spend

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/expense-approvals/internal/budget"
	"gitlab.com/yelinaung/expense-approvals/internal/models"
	"pgregory.net/rapid"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func engineeringTree() []models.DepartmentNode {
	return budget.BuildTree(
		[]models.Department{{ID: 1, Name: "Engineering", Budget: dec("10000"), Currency: "ILS"}},
		[]models.Category{
			{ID: 2, DepartmentID: 1, Name: "Software", Budget: dec("4000")},
			{ID: 3, DepartmentID: 1, Name: "Hardware", Budget: dec("0")},
		},
		[]models.Subcategory{
			{ID: 4, CategoryID: 2, Name: "Licenses", Budget: dec("2000")},
			{ID: 5, CategoryID: 2, Name: "Cloud", Budget: dec("2000")},
			{ID: 6, CategoryID: 3, Name: "Laptops", Budget: dec("0")},
		},
	)
}

func approved(id, sub int64, amount, currency string) models.Expense {
	return models.Expense{
		ID:            id,
		SubcategoryID: sub,
		Amount:        dec(amount),
		Currency:      currency,
		Status:        models.ExpenseStatusApproved,
	}
}

func TestAggregate_DepartmentUtilization(t *testing.T) {
	t.Parallel()

	out := Aggregate(engineeringTree(), []models.Expense{approved(10, 4, "3000", "ILS")})
	require.Len(t, out, 1)

	d := out[0]
	require.True(t, dec("3000").Equal(d.Spent))
	require.Equal(t, "30", d.Utilization.String())
	require.Equal(t, LevelOK, d.Level)
	require.Equal(t, 1, d.ExpenseCount)

	software := d.Categories[0]
	require.Equal(t, "75", software.Utilization.String())
	require.Equal(t, LevelOK, software.Level, "exactly 75 is not above the warning threshold")

	licenses := software.Subcategories[0]
	require.Equal(t, "150", licenses.Utilization.String())
	require.Equal(t, LevelAlert, licenses.Level)

	cloud := software.Subcategories[1]
	require.True(t, cloud.Spent.IsZero())
	require.Equal(t, 0, cloud.ExpenseCount)
}

func TestAggregate_IgnoresUnapproved(t *testing.T) {
	t.Parallel()

	pending := approved(10, 4, "500", "ILS")
	pending.Status = models.ExpenseStatusPending
	rejected := approved(11, 4, "700", "ILS")
	rejected.Status = models.ExpenseStatusRejected

	out := Aggregate(engineeringTree(), []models.Expense{pending, rejected})
	require.True(t, out[0].Spent.IsZero())
	require.Equal(t, 0, out[0].ExpenseCount)
}

func TestAggregate_ForeignCurrencyReportedSeparately(t *testing.T) {
	t.Parallel()

	out := Aggregate(engineeringTree(), []models.Expense{
		approved(10, 5, "1000", "ILS"),
		approved(11, 5, "200", "USD"),
	})

	d := out[0]
	require.True(t, dec("1000").Equal(d.Spent))
	require.True(t, dec("200").Equal(d.SpentByCurrency["USD"]))
	require.Equal(t, 2, d.ExpenseCount)
	require.Equal(t, "10", d.Utilization.String())
}

func TestAggregate_ZeroBudgetReportsZeroUtilization(t *testing.T) {
	t.Parallel()

	out := Aggregate(engineeringTree(), []models.Expense{approved(10, 6, "900", "ILS")})
	hardware := out[0].Categories[1]
	require.True(t, dec("900").Equal(hardware.Spent))
	require.True(t, hardware.Utilization.IsZero())
	require.Equal(t, LevelOK, hardware.Level)
}

func TestAggregate_UnknownSubcategoryIgnored(t *testing.T) {
	t.Parallel()

	out := Aggregate(engineeringTree(), []models.Expense{approved(10, 99, "900", "ILS")})
	require.True(t, out[0].Spent.IsZero())
}

func TestLevelFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Level
	}{
		{"0", LevelOK},
		{"75", LevelOK},
		{"75.01", LevelWarning},
		{"90", LevelWarning},
		{"90.01", LevelAlert},
		{"250", LevelAlert},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, LevelFor(dec(tt.in)))
		})
	}
}

func TestUtilization_Rounding(t *testing.T) {
	t.Parallel()

	require.Equal(t, "33.33", Utilization(dec("1"), dec("3")).String())
	require.Equal(t, "66.67", Utilization(dec("2"), dec("3")).String())
	require.True(t, Utilization(dec("5"), decimal.Zero).IsZero())
}

func TestBreakdown(t *testing.T) {
	t.Parallel()

	tree := budget.BuildTree(
		[]models.Department{{ID: 1, Name: "Ops", Budget: dec("100"), Currency: "ILS"}},
		[]models.Category{
			{ID: 2, DepartmentID: 1, Name: "Travel"},
			{ID: 3, DepartmentID: 1, Name: "Food"},
			{ID: 4, DepartmentID: 1, Name: "Idle"},
		},
		[]models.Subcategory{
			{ID: 5, CategoryID: 2, Name: "Flights"},
			{ID: 6, CategoryID: 3, Name: "Lunch"},
			{ID: 7, CategoryID: 4, Name: "Nothing"},
		},
	)
	out := Aggregate(tree, []models.Expense{
		approved(10, 5, "20", "ILS"),
		approved(11, 6, "50", "ILS"),
	})

	slices := Breakdown(&out[0])
	require.Len(t, slices, 2)
	require.Equal(t, "Food", slices[0].Label)
	require.Equal(t, "Travel", slices[1].Label)
}

// Every node's spend must equal the sum of its children's, and the
// department total must equal the sum of all approved expenses in the tree.
func TestAggregate_Consistency_Property(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		nCats := rapid.IntRange(1, 4).Draw(t, "categories")
		var cats []models.Category
		var subs []models.Subcategory
		var subIDs []int64
		next := int64(2)
		for range nCats {
			catID := next
			next++
			cats = append(cats, models.Category{ID: catID, DepartmentID: 1, Name: "c"})
			nSubs := rapid.IntRange(0, 3).Draw(t, "subcategories")
			for range nSubs {
				subs = append(subs, models.Subcategory{ID: next, CategoryID: catID, Name: "s"})
				subIDs = append(subIDs, next)
				next++
			}
		}
		tree := budget.BuildTree(
			[]models.Department{{ID: 1, Name: "d", Budget: dec("1000"), Currency: "ILS"}},
			cats, subs,
		)

		var expenses []models.Expense
		want := decimal.Zero
		wantCount := 0
		if len(subIDs) > 0 {
			n := rapid.IntRange(0, 20).Draw(t, "expenses")
			for i := range n {
				sub := rapid.SampledFrom(subIDs).Draw(t, "sub")
				cents := rapid.Int64Range(1, 1_000_000).Draw(t, "cents")
				status := rapid.SampledFrom([]models.ExpenseStatus{
					models.ExpenseStatusPending,
					models.ExpenseStatusApproved,
					models.ExpenseStatusRejected,
				}).Draw(t, "status")
				e := models.Expense{
					ID:            int64(1000 + i),
					SubcategoryID: sub,
					Amount:        decimal.New(cents, -2),
					Currency:      "ILS",
					Status:        status,
				}
				if status == models.ExpenseStatusApproved {
					want = want.Add(e.Amount)
					wantCount++
				}
				expenses = append(expenses, e)
			}
		}

		d := Aggregate(tree, expenses)[0]
		if !d.Spent.Equal(want) {
			t.Fatalf("department spent %s, want %s", d.Spent, want)
		}
		if d.ExpenseCount != wantCount {
			t.Fatalf("department count %d, want %d", d.ExpenseCount, wantCount)
		}

		catSum := decimal.Zero
		for _, c := range d.Categories {
			subSum := decimal.Zero
			for _, s := range c.Subcategories {
				subSum = subSum.Add(s.Spent)
			}
			if !c.Spent.Equal(subSum) {
				t.Fatalf("category %d spent %s, subcategories sum %s", c.ID, c.Spent, subSum)
			}
			catSum = catSum.Add(c.Spent)
		}
		if !d.Spent.Equal(catSum) {
			t.Fatalf("department spent %s, categories sum %s", d.Spent, catSum)
		}
	})
}
