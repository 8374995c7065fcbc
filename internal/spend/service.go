package spend

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/expense-approvals/internal/authz"
	"gitlab.com/yelinaung/expense-approvals/internal/models"
)

// TreeLoader loads the budget hierarchy.
type TreeLoader interface {
	LoadTree(ctx context.Context, departmentID *int64) ([]models.DepartmentNode, error)
}

// ExpenseLister lists expenses.
type ExpenseLister interface {
	List(ctx context.Context, f models.ExpenseFilter) ([]models.Expense, error)
}

// Service serves utilization overviews.
type Service struct {
	tree     TreeLoader
	expenses ExpenseLister
}

// NewService creates a new Service.
func NewService(tree TreeLoader, expenses ExpenseLister) *Service {
	return &Service{tree: tree, expenses: expenses}
}

// Overview aggregates every department, or only the one given.
func (s *Service) Overview(ctx context.Context, p *authz.Principal, departmentID *int64) ([]DepartmentSpend, error) {
	if err := authz.Evaluate(p).Check(authz.ActionViewBudget, authz.Resource{}); err != nil {
		return nil, err
	}

	tree, err := s.tree.LoadTree(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	approved := models.ExpenseStatusApproved
	expenses, err := s.expenses.List(ctx, models.ExpenseFilter{
		Status:       &approved,
		DepartmentID: departmentID,
		Scope:        models.ExpenseScope{All: true},
	})
	if err != nil {
		return nil, err
	}
	return Aggregate(tree, expenses), nil
}

// Department aggregates a single department.
func (s *Service) Department(ctx context.Context, p *authz.Principal, id int64) (*DepartmentSpend, error) {
	overview, err := s.Overview(ctx, p, &id)
	if err != nil {
		return nil, err
	}
	return &overview[0], nil
}

// Slice is one labelled share of a department's spend.
type Slice struct {
	Label  string
	Amount decimal.Decimal
}

// Breakdown returns a department's spend per category, largest first,
// skipping categories without spend.
func Breakdown(ds *DepartmentSpend) []Slice {
	slices := make([]Slice, 0, len(ds.Categories))
	for _, c := range ds.Categories {
		if !c.Spent.IsPositive() {
			continue
		}
		slices = append(slices, Slice{Label: c.Name, Amount: c.Spent})
	}
	sort.SliceStable(slices, func(i, j int) bool {
		return slices[i].Amount.GreaterThan(slices[j].Amount)
	})
	return slices
}
