package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-books-must-balance/internal/cli"
)

func transactionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "Inspect synced transactions",
	}

	cmd.AddCommand(transactionsPendingCmd())

	return cmd
}

func transactionsPendingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List transactions waiting for the next journal batch",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			summary, err := newEngine(store).PendingTransactions(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(summary.Transactions) == 0 {
				_, _ = fmt.Fprintln(out, cli.FormatInfo("No pending transactions. Run 'books sync' or 'books import' to fetch payments."))
				return nil
			}

			rows := make([][]string, 0, len(summary.Transactions))
			for _, txn := range summary.Transactions {
				rows = append(rows, []string{
					txn.CreatedAt.Format("2006-01-02"),
					txn.PaymentID,
					txn.ProgramName,
					cli.FormatCents(txn.Amount),
					strings.ToUpper(txn.Currency),
				})
			}
			_, _ = fmt.Fprintln(out, cli.RenderTable([]string{"Date", "Payment", "Program", "Amount", "Currency"}, rows))
			_, _ = fmt.Fprintf(out, "%d pending transactions totaling %s\n",
				len(summary.Transactions), cli.FormatCents(summary.TotalAmount))
			return nil
		},
	}
}
