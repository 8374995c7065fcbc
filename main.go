// Package main is the entry point for the expense approvals service.
package main

import (
	"os"

	"gitlab.com/yelinaung/expense-approvals/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
