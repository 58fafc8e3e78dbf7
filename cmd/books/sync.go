package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-books-must-balance/internal/cli"
	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/config"
	"github.com/Veraticus/the-books-must-balance/internal/engine"
	"github.com/Veraticus/the-books-must-balance/internal/ofx"
	"github.com/Veraticus/the-books-must-balance/internal/plaid"
	"github.com/Veraticus/the-books-must-balance/internal/stripe"
)

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch recent payments from Stripe or Plaid",
		Long: `Fetch recent payments and store the ones not seen before as pending
transactions, ready for the next journal batch.

Sources:
  stripe  Recent charges; refunded charges are skipped.
          Requires stripe.secret_key or STRIPE_SECRET_KEY.
  plaid   Posted deposits to a linked bank account.
          Requires plaid.client_id, plaid.secret and plaid.access_token.`,
		RunE: runSync,
	}

	cmd.Flags().String("source", "stripe", "Payment source (stripe, plaid)")
	return cmd
}

func runSync(cmd *cobra.Command, _ []string) error {
	name, _ := cmd.Flags().GetString("source")
	source, err := paymentSource(name)
	if err != nil {
		return err
	}

	ctx, stop := cli.NewInterruptHandler(cmd.ErrOrStderr()).HandleInterrupts(cmd.Context(), "Sync")
	defer stop()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	result, err := newEngine(store).SyncPayments(ctx, source)
	if err != nil {
		return err
	}

	printSyncResult(cmd, result)
	return nil
}

// paymentSource builds the named remote payment source from configuration.
func paymentSource(name string) (engine.PaymentSource, error) {
	switch name {
	case "stripe":
		cfg, err := config.LoadStripeConfig()
		if err != nil {
			return nil, err
		}
		return stripe.NewClient(*cfg)
	case "plaid":
		cfg, err := config.LoadPlaidConfig()
		if err != nil {
			return nil, err
		}
		return plaid.NewClient(*cfg)
	default:
		return nil, common.NewUserError(fmt.Sprintf("unknown payment source %q (use stripe or plaid)", name), common.ErrInvalidConfig)
	}
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [files...]",
		Short: "Import payments from OFX/QFX files",
		Long: `Import incoming payments from OFX or QFX statements exported from your bank.

Only credits are imported. The memo, or else the payee name, becomes the
program name used to look up account codes.

Examples:
  # Import single file
  books import ~/Downloads/checking_jan.qfx

  # Import every statement in a directory
  books import ~/Downloads/*.qfx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImport,
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	files, err := expandFiles(args)
	if err != nil {
		return err
	}

	ctx, stop := cli.NewInterruptHandler(cmd.ErrOrStderr()).HandleInterrupts(cmd.Context(), "Import")
	defer stop()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	eng := newEngine(store)
	bar := cli.NewProgressBar(cmd.ErrOrStderr(), len(files), "Importing statements")

	total := &engine.SyncResult{Source: "ofx"}
	for _, path := range files {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		result, err := importFile(ctx, eng, path)
		cli.Advance(bar, 1)
		if err != nil {
			slog.Error("Failed to import file", "file", path, "error", err)
			continue
		}

		total.Fetched += result.Fetched
		total.Inserted += result.Inserted
		total.Skipped += result.Skipped
	}

	printSyncResult(cmd, total)
	return nil
}

func importFile(ctx context.Context, eng *engine.JournalEngine, path string) (*engine.SyncResult, error) {
	f, err := os.Open(path) // #nosec G304 -- user-supplied statement path
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return eng.SyncPayments(ctx, ofx.NewFileSource(filepath.Base(path), f))
}

// expandFiles resolves glob patterns, keeping literal paths that exist.
func expandFiles(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			// If no glob matches, check if it's a direct file
			if _, err := os.Stat(pattern); err == nil {
				files = append(files, pattern)
			} else {
				slog.Warn("No files found matching pattern", "pattern", pattern)
			}
			continue
		}
		files = append(files, matches...)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no files found to import")
	}
	return files, nil
}

func printSyncResult(cmd *cobra.Command, result *engine.SyncResult) {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf(
		"Synced %d new transactions from %s. All are ready for journal entry creation.",
		result.Inserted, result.Source)))
	if result.Skipped > 0 {
		_, _ = fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Skipped %d payments already on record.", result.Skipped)))
	}
}
