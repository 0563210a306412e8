package main

import (
	"context"

	"github.com/dvloznov/finbot/internal/domain"
	"github.com/dvloznov/finbot/internal/store"
	"github.com/spf13/cobra"
)

var summaryMonth string

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show the month's balance, spending by category and budgets",
	Args:  cobra.NoArgs,
	RunE:  runSummary,
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List the known categories",
	Args:  cobra.NoArgs,
	RunE:  runCategories,
}

func init() {
	summaryCmd.Flags().StringVarP(&summaryMonth, "month", "m", "", "Month as YYYY-MM (default: current)")
}

func runSummary(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	e, err := setup(ctx, false)
	if err != nil {
		return err
	}
	defer e.Close()

	month := domain.MonthOf(e.services.Clock())
	if summaryMonth != "" {
		month, err = domain.ParseMonth(summaryMonth)
		if err != nil {
			return err
		}
	}

	txs, err := e.repo.ListTransactions(ctx, e.userID, store.TransactionFilter{Month: &month})
	if err != nil {
		return err
	}
	budgets, err := e.repo.ListBudgets(ctx, e.userID, month)
	if err != nil {
		return err
	}

	newRenderer(cmd.OutOrStdout()).report(domain.BuildMonthlyReport(month, txs, budgets), e.services.Money)
	return nil
}

func runCategories(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	e, err := setup(ctx, false)
	if err != nil {
		return err
	}
	defer e.Close()

	cats, err := e.repo.ListCategories(ctx)
	if err != nil {
		return err
	}
	newRenderer(cmd.OutOrStdout()).categories(cats)
	return nil
}
