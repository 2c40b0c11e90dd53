package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "moneyspider",
		Short: "Expense entry with predictive category ordering",
		Long: "MoneySpider records expenses and orders the category picker by how\n" +
			"often each category is used and by the amounts usually spent on it.",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newRankCmd())
	return root
}
