// Package spend computes budget utilization from approved expenses.
//
// Nothing is cached: every call re-aggregates the approved expense set
// bottom-up through the hierarchy, so subcategory, category and department
// figures are always sums over the same expenses.
package spend

import (
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/expense-approvals/internal/models"
)

// Level is an advisory utilization flag. It never blocks approvals.
type Level string

// Levels.
const (
	LevelOK      Level = "ok"
	LevelWarning Level = "warning"
	LevelAlert   Level = "alert"
)

// Thresholds in percent. Utilization strictly above them raises the level.
var (
	WarningThreshold = decimal.NewFromInt(75)
	AlertThreshold   = decimal.NewFromInt(90)
)

var hundred = decimal.NewFromInt(100)

// NodeSpend is the utilization of one hierarchy node.
//
// Spent counts only expenses in the department's currency, which is the
// currency budgets are declared in; SpentByCurrency lists every currency.
type NodeSpend struct {
	ID              int64                      `json:"id"`
	Name            string                     `json:"name"`
	Budget          decimal.Decimal            `json:"budget"`
	Currency        string                     `json:"currency"`
	Spent           decimal.Decimal            `json:"spent"`
	SpentByCurrency map[string]decimal.Decimal `json:"spent_by_currency"`
	Utilization     decimal.Decimal            `json:"utilization"`
	Level           Level                      `json:"level"`
	ExpenseCount    int                        `json:"expense_count"`
}

// SubcategorySpend is a leaf's utilization.
type SubcategorySpend struct {
	NodeSpend
}

// CategorySpend is a category's utilization and its subcategories'.
type CategorySpend struct {
	NodeSpend
	Subcategories []SubcategorySpend `json:"subcategories"`
}

// DepartmentSpend is a department's utilization and its categories'.
type DepartmentSpend struct {
	NodeSpend
	Categories []CategorySpend `json:"categories"`
}

// Utilization returns spent as a percentage of budget, rounded to two
// places. An unbudgeted node reports 0.
func Utilization(spent, budget decimal.Decimal) decimal.Decimal {
	if !budget.IsPositive() {
		return decimal.Zero
	}
	return spent.Div(budget).Mul(hundred).Round(2)
}

// LevelFor classifies a utilization percentage.
func LevelFor(utilization decimal.Decimal) Level {
	switch {
	case utilization.GreaterThan(AlertThreshold):
		return LevelAlert
	case utilization.GreaterThan(WarningThreshold):
		return LevelWarning
	default:
		return LevelOK
	}
}

func newNode(id int64, name string, budget decimal.Decimal, currency string) NodeSpend {
	return NodeSpend{
		ID:              id,
		Name:            name,
		Budget:          budget,
		Currency:        currency,
		Spent:           decimal.Zero,
		SpentByCurrency: map[string]decimal.Decimal{},
	}
}

func (n *NodeSpend) add(currency string, amount decimal.Decimal, count int) {
	n.SpentByCurrency[currency] = n.SpentByCurrency[currency].Add(amount)
	n.ExpenseCount += count
}

func (n *NodeSpend) addNode(child NodeSpend) {
	for currency, amount := range child.SpentByCurrency {
		n.add(currency, amount, 0)
	}
	n.ExpenseCount += child.ExpenseCount
}

func (n *NodeSpend) finish() {
	n.Spent = n.SpentByCurrency[n.Currency]
	n.Utilization = Utilization(n.Spent, n.Budget)
	n.Level = LevelFor(n.Utilization)
}

// Aggregate computes utilization for every node of tree from expenses.
// Only approved expenses count. Expenses whose subcategory is not in the
// tree are ignored.
func Aggregate(tree []models.DepartmentNode, expenses []models.Expense) []DepartmentSpend {
	bySubcategory := make(map[int64][]*models.Expense)
	for i := range expenses {
		e := &expenses[i]
		if e.Status != models.ExpenseStatusApproved {
			continue
		}
		bySubcategory[e.SubcategoryID] = append(bySubcategory[e.SubcategoryID], e)
	}

	out := make([]DepartmentSpend, 0, len(tree))
	for _, dn := range tree {
		d := dn.Department
		ds := DepartmentSpend{
			NodeSpend:  newNode(d.ID, d.Name, d.Budget, d.Currency),
			Categories: make([]CategorySpend, 0, len(dn.Categories)),
		}
		for _, cn := range dn.Categories {
			c := cn.Category
			cs := CategorySpend{
				NodeSpend:     newNode(c.ID, c.Name, c.Budget, d.Currency),
				Subcategories: make([]SubcategorySpend, 0, len(cn.Subcategories)),
			}
			for _, sn := range cn.Subcategories {
				sub := sn.Subcategory
				ss := SubcategorySpend{NodeSpend: newNode(sub.ID, sub.Name, sub.Budget, d.Currency)}
				for _, e := range bySubcategory[sub.ID] {
					ss.add(e.Currency, e.Amount, 1)
				}
				ss.finish()
				cs.addNode(ss.NodeSpend)
				cs.Subcategories = append(cs.Subcategories, ss)
			}
			cs.finish()
			ds.addNode(cs.NodeSpend)
			ds.Categories = append(ds.Categories, cs)
		}
		ds.finish()
		out = append(out, ds)
	}
	return out
}
