//go:build ignore
// +build ignore

package main

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/expense-approvals/internal/models"
	"gitlab.com/yelinaung/expense-approvals/internal/report"
	"gitlab.com/yelinaung/expense-approvals/internal/spend"
)

func main() {
	dec := decimal.RequireFromString
	tree := []models.DepartmentNode{{
		Department: models.Department{ID: 1, Name: "Engineering", Budget: dec("20000"), Currency: "ILS"},
		Categories: []models.CategoryNode{
			{Category: models.Category{ID: 2, DepartmentID: 1, Name: "Software", Budget: dec("8000")}, Subcategories: []models.SubcategoryNode{
				{Subcategory: models.Subcategory{ID: 5, CategoryID: 2, Name: "Licenses", Budget: dec("5000")}},
			}},
			{Category: models.Category{ID: 3, DepartmentID: 1, Name: "Hardware", Budget: dec("7000")}, Subcategories: []models.SubcategoryNode{
				{Subcategory: models.Subcategory{ID: 6, CategoryID: 3, Name: "Laptops", Budget: dec("7000")}},
			}},
			{Category: models.Category{ID: 4, DepartmentID: 1, Name: "Travel", Budget: dec("5000")}, Subcategories: []models.SubcategoryNode{
				{Subcategory: models.Subcategory{ID: 7, CategoryID: 4, Name: "Conferences", Budget: dec("5000")}},
			}},
		},
	}}
	approved := func(sub, cat int64, amount string) models.Expense {
		return models.Expense{
			SubcategoryID: sub, CategoryID: cat, DepartmentID: 1,
			Amount: dec(amount), Currency: "ILS", Status: models.ExpenseStatusApproved,
		}
	}
	expenses := []models.Expense{
		approved(5, 2, "4150.50"),
		approved(6, 3, "6230.00"),
		approved(7, 4, "1890.00"),
	}

	overview := spend.Aggregate(tree, expenses)
	chartData, err := report.SpendChart(&overview[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile("graph.png", chartData, 0600); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("✓ Created graph.png - Example department spend chart")
}
