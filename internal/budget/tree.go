package budget

import (
	"context"

	"gitlab.com/yelinaung/expense-approvals/internal/authz"
	"gitlab.com/yelinaung/expense-approvals/internal/models"
)

// Tree returns the hierarchy as nested nodes, either for every department or
// for the one given. Expand/collapse state is left to the caller.
func (s *Service) Tree(ctx context.Context, p *authz.Principal, departmentID *int64) ([]models.DepartmentNode, error) {
	if err := authorize(p, authz.ActionViewBudget); err != nil {
		return nil, err
	}
	return s.LoadTree(ctx, departmentID)
}

// LoadTree builds the tree without a policy check. Used by the spend
// aggregator, which applies its own.
func (s *Service) LoadTree(ctx context.Context, departmentID *int64) ([]models.DepartmentNode, error) {
	var departments []models.Department
	if departmentID != nil {
		d, err := s.departments.GetByID(ctx, *departmentID)
		if err != nil {
			return nil, err
		}
		departments = []models.Department{*d}
	} else {
		all, err := s.departments.GetAll(ctx)
		if err != nil {
			return nil, err
		}
		departments = all
	}

	categories, err := s.categories.List(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	subcategories, err := s.subcategories.List(ctx, nil)
	if err != nil {
		return nil, err
	}

	return BuildTree(departments, categories, subcategories), nil
}

// BuildTree nests categories and subcategories under their parents,
// preserving the input order at every level. Nodes whose parent is not
// among the inputs are dropped.
func BuildTree(departments []models.Department, categories []models.Category, subcategories []models.Subcategory) []models.DepartmentNode {
	subsByCategory := make(map[int64][]models.Subcategory)
	for _, sub := range subcategories {
		subsByCategory[sub.CategoryID] = append(subsByCategory[sub.CategoryID], sub)
	}
	catsByDepartment := make(map[int64][]models.Category)
	for _, cat := range categories {
		catsByDepartment[cat.DepartmentID] = append(catsByDepartment[cat.DepartmentID], cat)
	}

	nodes := make([]models.DepartmentNode, 0, len(departments))
	for _, d := range departments {
		dn := models.DepartmentNode{Department: d, Categories: []models.CategoryNode{}}
		for _, c := range catsByDepartment[d.ID] {
			cn := models.CategoryNode{
				Category:      c,
				ExceedsParent: c.Budget.GreaterThan(d.Budget),
				Subcategories: []models.SubcategoryNode{},
			}
			for _, sub := range subsByCategory[c.ID] {
				cn.Subcategories = append(cn.Subcategories, models.SubcategoryNode{
					Subcategory:   sub,
					ExceedsParent: sub.Budget.GreaterThan(c.Budget),
				})
			}
			dn.Categories = append(dn.Categories, cn)
		}
		nodes = append(nodes, dn)
	}
	return nodes
}
