package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/export"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/service"
)

// maxTabTitle is the Sheets limit on tab title length.
const maxTabTitle = 100

// Writer publishes journal batches to a Google spreadsheet, one tab per batch.
type Writer struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config
}

// NewWriter creates a new Google Sheets batch writer.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	service, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Writer{
		config:  config,
		service: service,
		logger:  logger,
	}, nil
}

// WriteBatch writes the batch's rows to a tab named after the batch,
// replacing any previous contents, and returns the spreadsheet ID.
func (w *Writer) WriteBatch(ctx context.Context, batch *model.JournalBatch, rows []export.Row) (string, error) {
	w.logger.Info("starting batch export",
		"batch_id", batch.ID,
		"rows", len(rows))

	spreadsheetID, err := w.getOrCreateSpreadsheet(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	retryOpts := service.RetryOptions{
		MaxAttempts:  w.config.RetryAttempts,
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	title := TabTitle(batch)
	var sheetID int64
	err = common.WithRetry(ctx, func() error {
		id, tabErr := w.prepareTab(ctx, spreadsheetID, title)
		sheetID = id
		return tabErr
	}, retryOpts)
	if err != nil {
		return "", fmt.Errorf("failed to prepare tab: %w", err)
	}

	values := prepareBatchData(rows)

	err = common.WithRetry(ctx, func() error {
		return w.writeData(ctx, spreadsheetID, title, values)
	}, retryOpts)
	if err != nil {
		return "", fmt.Errorf("failed to write data: %w", err)
	}

	if w.config.EnableFormatting {
		err = common.WithRetry(ctx, func() error {
			return w.applyFormatting(ctx, spreadsheetID, sheetID, len(values))
		}, retryOpts)
		if err != nil {
			// Don't fail the whole operation if formatting fails
			w.logger.Warn("failed to apply formatting", "error", err)
		}
	}

	w.logger.Info("batch export completed",
		"spreadsheet_id", spreadsheetID,
		"tab", title,
		"rows_written", len(values))

	return spreadsheetID, nil
}

// createSheetsService creates a Google Sheets API service.
func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}

		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		token := &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		}
		if config.RefreshToken == "" {
			saved, err := LoadToken(config.TokenFile)
			if err != nil {
				return nil, fmt.Errorf("unable to load token file %s: %w", config.TokenFile, err)
			}
			token = saved
		}

		tokenSource = oauthConfig(config.ClientID, config.ClientSecret, "").TokenSource(ctx, token)
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return srv, nil
}

// getOrCreateSpreadsheet gets an existing spreadsheet or creates a new one.
func (w *Writer) getOrCreateSpreadsheet(ctx context.Context) (string, error) {
	if w.config.SpreadsheetID != "" {
		_, err := w.service.Spreadsheets.Get(w.config.SpreadsheetID).Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
		}
		return w.config.SpreadsheetID, nil
	}

	spreadsheet := &sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{
			Title:    w.config.SpreadsheetName,
			TimeZone: w.config.TimeZone,
		},
	}

	created, err := w.service.Spreadsheets.Create(spreadsheet).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to create spreadsheet: %w", err)
	}

	w.logger.Info("created new spreadsheet",
		"id", created.SpreadsheetId,
		"url", created.SpreadsheetUrl)

	// Later exports reuse it.
	w.config.SpreadsheetID = created.SpreadsheetId

	return created.SpreadsheetId, nil
}

// prepareTab clears the tab named title, adding it when missing, and
// returns its sheet ID.
func (w *Writer) prepareTab(ctx context.Context, spreadsheetID, title string) (int64, error) {
	spreadsheet, err := w.service.Spreadsheets.Get(spreadsheetID).Context(ctx).Do()
	if err != nil {
		return 0, err
	}

	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == title {
			_, err := w.service.Spreadsheets.Values.Clear(spreadsheetID, a1Range(title, "A:I"), &sheets.ClearValuesRequest{}).
				Context(ctx).
				Do()
			return sheet.Properties.SheetId, err
		}
	}

	resp, err := w.service.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: title},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return 0, err
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil {
		return 0, fmt.Errorf("add sheet returned no properties")
	}
	return resp.Replies[0].AddSheet.Properties.SheetId, nil
}

// prepareBatchData lays out the header and rows as sheet values.
func prepareBatchData(rows []export.Row) [][]any {
	values := make([][]any, 0, len(rows)+1)

	header := make([]any, len(export.Headers))
	for i, h := range export.Headers {
		header[i] = h
	}
	values = append(values, header)

	for _, row := range rows {
		if row.IsSeparator() {
			values = append(values, []any{})
			continue
		}
		values = append(values, row.Values())
	}

	return values
}

// writeData writes the data to the tab in batches to stay under API limits.
func (w *Writer) writeData(ctx context.Context, spreadsheetID, title string, values [][]any) error {
	for i := 0; i < len(values); i += w.config.BatchSize {
		end := min(i+w.config.BatchSize, len(values))

		batch := values[i:end]
		valueRange := &sheets.ValueRange{
			Values: batch,
		}

		_, err := w.service.Spreadsheets.Values.Update(spreadsheetID, a1Range(title, fmt.Sprintf("A%d", i+1)), valueRange).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to write batch starting at row %d: %w", i+1, err)
		}

		w.logger.Debug("wrote batch", "start_row", i+1, "rows", len(batch))
	}

	return nil
}

// applyFormatting bolds and freezes the header and formats amount columns.
func (w *Writer) applyFormatting(ctx context.Context, spreadsheetID string, sheetID int64, totalRows int) error {
	batchUpdate := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: formattingRequests(sheetID, totalRows),
	}

	_, err := w.service.Spreadsheets.BatchUpdate(spreadsheetID, batchUpdate).Context(ctx).Do()
	return err
}

func formattingRequests(sheetID int64, totalRows int) []*sheets.Request {
	columns := int64(len(export.Headers))

	return []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   columns,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat: &sheets.TextFormat{Bold: true},
					},
				},
				Fields: "userEnteredFormat.textFormat",
			},
		},
		// Debit and Credit columns
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    1,
					EndRowIndex:      int64(totalRows),
					StartColumnIndex: 6,
					EndColumnIndex:   8,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						NumberFormat: &sheets.NumberFormat{
							Type:    "CURRENCY",
							Pattern: "$#,##0.00",
						},
					},
				},
				Fields: "userEnteredFormat.numberFormat",
			},
		},
		{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   columns,
				},
			},
		},
		{
			UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{
					SheetId: sheetID,
					GridProperties: &sheets.GridProperties{
						FrozenRowCount: 1,
					},
				},
				Fields: "gridProperties.frozenRowCount",
			},
		},
	}
}

// TabTitle returns the spreadsheet tab name used for a batch.
func TabTitle(batch *model.JournalBatch) string {
	title := batch.Name
	if title == "" {
		title = batch.ID
	}
	if len(title) > maxTabTitle {
		title = title[:maxTabTitle]
	}
	return title
}

// a1Range qualifies a cell range with a quoted tab title.
func a1Range(title, cells string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'!" + cells
}
