package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"moneyspider/internal/core"
	"moneyspider/internal/services"
	"moneyspider/internal/store/memory"
)

func newRankCmd() *cobra.Command {
	var (
		file   string
		amount string
	)
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Print the category ordering for a CSV of expenses",
		Long: "Loads date,amount,category rows into memory and prints the ordering\n" +
			"the entry form would show, with weights and amount ranges.\n" +
			"Without --amount the ordering is by frequency.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			expenses, err := readExpensesCSV(f)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			return runRank(cmd.Context(), cmd.OutOrStdout(), expenses, amount)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "CSV file with date,amount,category rows")
	cmd.Flags().StringVarP(&amount, "amount", "a", "", "Typed amount to rank against")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// readExpensesCSV parses date,amount,category rows. A leading header row
// is skipped.
func readExpensesCSV(r io.Reader) ([]core.Expense, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 3
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	var expenses []core.Expense
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return expenses, nil
		}
		if err != nil {
			return nil, err
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(record[0]), "date") {
			continue
		}

		e, err := parseExpenseRecord(record)
		if err != nil {
			row, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("line %d: %w", row, err)
		}
		expenses = append(expenses, e)
	}
}

func parseExpenseRecord(record []string) (core.Expense, error) {
	date, err := core.ParseDate(record[0])
	if err != nil {
		return core.Expense{}, fmt.Errorf("%w: %q", err, record[0])
	}
	amount, err := core.ParseAmount(record[1])
	if err != nil {
		return core.Expense{}, fmt.Errorf("%w: %q", err, record[1])
	}
	category, err := core.ParseCategory(record[2])
	if err != nil {
		return core.Expense{}, fmt.Errorf("%w: %q", err, record[2])
	}
	e := core.Expense{Date: date, Amount: amount, Category: category}
	return e, e.Validate()
}

func runRank(ctx context.Context, w io.Writer, expenses []core.Expense, amount string) error {
	svc := services.NewEntryService(memory.New(expenses...))
	if err := svc.SetAmountText(ctx, amount); err != nil {
		return err
	}
	if amount != "" && svc.RefreshMode() != services.ModeRange {
		return fmt.Errorf("%w: %q", core.ErrInvalidAmount, amount)
	}

	state, err := svc.State(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%d expenses, %s order\n\n", len(state.Expenses), state.RefreshMode)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tCATEGORY\tWEIGHT\tRANGE")
	for i, c := range state.Categories {
		rng := "-"
		if c.Min != "" {
			rng = c.Min + " - " + c.Max
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", i+1, c.Name, c.Weight, rng)
	}
	return tw.Flush()
}
