package main

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/the-books-must-balance/internal/cli"
	"github.com/Veraticus/the-books-must-balance/internal/config"
	"github.com/Veraticus/the-books-must-balance/internal/export"
	"github.com/Veraticus/the-books-must-balance/internal/gcs"
	"github.com/Veraticus/the-books-must-balance/internal/sheets"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <batch-id>",
		Short: "Export a batch's journal entries",
		Long: `Write a batch's journal entries as an Excel workbook, one blank row
between transactions.

The workbook can also be archived to Google Cloud Storage, and the entries
published to a Google Sheets tab named after the batch.

Examples:
  # Save to the current directory
  books export 3f1c...

  # Save, archive and publish
  books export 3f1c... --output ~/journals --gcs-bucket my-books --sheets`,
		Args: cobra.ExactArgs(1),
		RunE: runExport,
	}

	cmd.Flags().StringP("output", "o", ".", "Directory (or .xlsx path) to write the workbook to")
	cmd.Flags().Bool("sheets", false, "Also publish the entries to Google Sheets")
	cmd.Flags().String("gcs-bucket", "", "Also archive the workbook to this GCS bucket")
	_ = viper.BindPFlag("gcs.bucket", cmd.Flags().Lookup("gcs-bucket"))

	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	publish, _ := cmd.Flags().GetBool("sheets")
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	batch, lines, err := newEngine(store).BatchEntries(ctx, args[0])
	if err != nil {
		return batchError(err, args[0])
	}
	rows := export.BuildRows(lines)

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, rows); err != nil {
		return fmt.Errorf("failed to generate Excel file: %w", err)
	}

	fileName := export.FileName(batch, time.Now())
	path := outputPath(output, fileName)
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	_, _ = fmt.Fprintln(out, cli.FormatSuccess("Saved "+path))

	if bucket := viper.GetString("gcs.bucket"); bucket != "" {
		uploader, err := gcs.NewUploader(ctx, bucket, viper.GetString("gcs.prefix"))
		if err != nil {
			return err
		}
		defer func() { _ = uploader.Close() }()

		uri, err := uploader.Upload(ctx, uploader.ObjectName(fileName), export.ContentType, bytes.NewReader(buf.Bytes()))
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, cli.FormatSuccess("Archived to "+uri))
	}

	if publish {
		sheetsConfig, err := config.LoadSheetsConfig()
		if err != nil {
			return fmt.Errorf("failed to load sheets config: %w", err)
		}

		writer, err := sheets.NewWriter(ctx, *sheetsConfig, slog.Default())
		if err != nil {
			return err
		}

		spreadsheetID, err := writer.WriteBatch(ctx, batch, rows)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf(
			"Published to https://docs.google.com/spreadsheets/d/%s (tab %q)", spreadsheetID, sheets.TabTitle(batch))))
	}

	return nil
}

// outputPath treats an .xlsx output as the file itself and anything else as
// a directory.
func outputPath(output, fileName string) string {
	if filepath.Ext(output) == ".xlsx" {
		return config.ExpandPath(output)
	}
	return filepath.Join(config.ExpandPath(output), fileName)
}
