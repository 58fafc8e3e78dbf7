package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-books-must-balance/internal/cli"
	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/export"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/service"
)

func batchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Create, review and close journal batches",
		Long: `Journal batches collect the balanced entries of pending transactions.

A draft batch keeps growing as new transactions arrive. Completing it
freezes it; canceling it returns its transactions to pending.`,
	}

	cmd.AddCommand(batchCreateCmd())
	cmd.AddCommand(batchCompleteCmd())
	cmd.AddCommand(batchCancelCmd())
	cmd.AddCommand(batchListCmd())
	cmd.AddCommand(batchShowCmd())

	return cmd
}

func batchCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Add pending transactions to the draft batch",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := cli.NewInterruptHandler(cmd.ErrOrStderr()).HandleInterrupts(cmd.Context(), "Batch creation")
			defer stop()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			out := cmd.OutOrStdout()
			result, err := newEngine(store).CreateOrExtendBatch(ctx)
			if errors.Is(err, common.ErrNoPendingTransactions) {
				_, _ = fmt.Fprintln(out, cli.FormatInfo("No pending transactions to create journal entry"))
				return nil
			}
			if err != nil {
				return err
			}

			verb := "Extended"
			if result.Created {
				verb = "Created"
			}
			_, _ = fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("%s %s (%d transactions added)",
				verb, result.Batch.Name, result.Processed)))
			_, _ = fmt.Fprintln(out, batchSummary(result.Batch))

			if result.Errors > 0 {
				_, _ = fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("%d transactions failed and remain pending:", result.Errors)))
				for _, detail := range result.ErrorDetails {
					_, _ = fmt.Fprintf(out, "  - %s\n", detail)
				}
			}
			return nil
		},
	}
}

func batchCompleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete <batch-id>",
		Short: "Mark a draft batch as completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			batch, err := newEngine(store).CompleteBatch(cmd.Context(), args[0])
			if err != nil {
				return batchError(err, args[0])
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Journal entry batch completed successfully"))
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), batchSummary(batch))
			return nil
		},
	}
}

func batchCancelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel <batch-id>",
		Short: "Discard a draft batch and return its transactions to pending",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			out := cmd.OutOrStdout()
			if !yes {
				reader := cli.NewNonBlockingReader(cmd.InOrStdin())
				ok, err := cli.Confirm(ctx, reader, out,
					fmt.Sprintf("Cancel batch %s and delete its journal entries?", args[0]))
				if err != nil {
					return err
				}
				if !ok {
					_, _ = fmt.Fprintln(out, cli.FormatInfo("Batch left unchanged"))
					return nil
				}
			}

			result, err := newEngine(store).CancelBatch(ctx, args[0])
			if err != nil {
				return batchError(err, args[0])
			}

			_, _ = fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf(
				"Journal entry batch canceled. %d entries deleted, %d transactions returned to pending.",
				result.EntriesDeleted, result.TransactionsReset)))
			return nil
		},
	}

	cmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func batchListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List journal batches",
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, _ := cmd.Flags().GetString("status")
			limit, _ := cmd.Flags().GetInt("limit")

			filter := service.BatchFilter{Limit: limit}
			switch s := model.BatchStatus(status); s {
			case "":
			case model.BatchDraft, model.BatchCompleted:
				filter.Status = s
			default:
				return common.NewUserError(fmt.Sprintf("unknown status %q (use draft or completed)", status), common.ErrInvalidConfig)
			}

			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			batches, err := store.ListBatches(cmd.Context(), filter)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(batches) == 0 {
				_, _ = fmt.Fprintln(out, cli.FormatInfo("No journal batches yet"))
				return nil
			}

			rows := make([][]string, 0, len(batches))
			for _, b := range batches {
				rows = append(rows, []string{
					b.ID,
					b.Name,
					string(b.Status),
					strconv.Itoa(b.TotalTransactions),
					cli.FormatCents(b.TotalAmount),
					b.CreatedAt.Format("2006-01-02 15:04"),
				})
			}
			_, _ = fmt.Fprintln(out, cli.RenderTable(
				[]string{"ID", "Name", "Status", "Transactions", "Total", "Created"}, rows))
			return nil
		},
	}

	cmd.Flags().String("status", "", "Only show batches with this status (draft, completed)")
	cmd.Flags().Int("limit", 20, "Maximum number of batches to show (0 for all)")
	return cmd
}

func batchShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <batch-id>",
		Short: "Show a batch's journal entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			batch, lines, err := newEngine(store).BatchEntries(cmd.Context(), args[0])
			if err != nil {
				return batchError(err, args[0])
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, batchSummary(batch))

			rows := make([][]string, 0, len(lines))
			for _, row := range export.BuildRows(lines) {
				if row.IsSeparator() {
					rows = append(rows, make([]string, 4))
					continue
				}
				rows = append(rows, []string{
					formatAccountCode(row.Code),
					amountText(row.Debit.Valid, row.Debit.Decimal.StringFixed(2)),
					amountText(row.Credit.Valid, row.Credit.Decimal.StringFixed(2)),
					row.Description,
				})
			}
			_, _ = fmt.Fprintln(out, cli.RenderTable([]string{"Account", "Debit", "Credit", "Description"}, rows))
			return nil
		},
	}
}

func batchSummary(b *model.JournalBatch) string {
	var content strings.Builder
	fmt.Fprintf(&content, "ID:           %s\n", b.ID)
	fmt.Fprintf(&content, "Status:       %s\n", b.Status)
	fmt.Fprintf(&content, "Transactions: %d\n", b.TotalTransactions)
	fmt.Fprintf(&content, "Total:        %s", cli.FormatCents(b.TotalAmount))
	switch {
	case b.IsDraft():
		fmt.Fprintf(&content, "\nNext:         books batch complete %s", b.ID)
	case b.CompletedAt != nil:
		fmt.Fprintf(&content, "\nCompleted:    %s", b.CompletedAt.Format("2006-01-02 15:04"))
	}
	return cli.RenderBox(b.Name, content.String())
}

func amountText(valid bool, text string) string {
	if !valid {
		return ""
	}
	return "$" + text
}

// batchError names the batch in not-found errors.
func batchError(err error, batchID string) error {
	if errors.Is(err, common.ErrNotFound) {
		return common.NewUserError("batch "+batchID, err)
	}
	return err
}
