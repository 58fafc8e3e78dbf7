// Package handlers implements the journal batch HTTP endpoints.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/api/middleware"
	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/engine"
	"github.com/Veraticus/the-books-must-balance/internal/export"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/service"
)

// JournalService is the engine surface the handlers drive.
type JournalService interface {
	SyncPayments(ctx context.Context, source engine.PaymentSource) (*engine.SyncResult, error)
	CreateOrExtendBatch(ctx context.Context) (*engine.AggregationResult, error)
	CompleteBatch(ctx context.Context, batchID string) (*model.JournalBatch, error)
	CancelBatch(ctx context.Context, batchID string) (*service.CancelResult, error)
	BatchEntries(ctx context.Context, batchID string) (*model.JournalBatch, []model.JournalEntryLine, error)
	FindUnmappedPrograms(ctx context.Context) ([]string, error)
	PendingTransactions(ctx context.Context) (*engine.PendingSummary, error)
}

// BatchLister lists stored batches.
type BatchLister interface {
	ListBatches(ctx context.Context, filter service.BatchFilter) ([]model.JournalBatch, error)
}

// BatchesHandler handles the journal batch endpoints.
type BatchesHandler struct {
	journal JournalService
	batches BatchLister
	source  engine.PaymentSource
	now     func() time.Time
	log     *slog.Logger
}

// NewBatchesHandler creates a new batches handler. source may be nil, in
// which case syncing is refused.
func NewBatchesHandler(journal JournalService, batches BatchLister, source engine.PaymentSource, log *slog.Logger) *BatchesHandler {
	return &BatchesHandler{
		journal: journal,
		batches: batches,
		source:  source,
		now:     time.Now,
		log:     log,
	}
}

// BatchResponse is the JSON form of a journal batch.
type BatchResponse struct {
	CreatedAt         time.Time  `json:"created_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	ID                string     `json:"id"`
	Name              string     `json:"batch_name"`
	Status            string     `json:"status"`
	TotalAmount       int64      `json:"total_amount"`
	TotalTransactions int        `json:"total_transactions"`
}

func toBatchResponse(b *model.JournalBatch) *BatchResponse {
	if b == nil {
		return nil
	}
	return &BatchResponse{
		ID:                b.ID,
		Name:              b.Name,
		Status:            string(b.Status),
		TotalTransactions: b.TotalTransactions,
		TotalAmount:       b.TotalAmount,
		CreatedAt:         b.CreatedAt,
		CompletedAt:       b.CompletedAt,
	}
}

// TransactionResponse is the JSON form of a stored transaction.
type TransactionResponse struct {
	CreatedAt   time.Time `json:"created_at"`
	ID          string    `json:"id"`
	PaymentID   string    `json:"payment_id"`
	ProgramName string    `json:"program_name"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	Amount      int64     `json:"amount"`
}

type batchRequest struct {
	BatchID string `json:"batchId"`
}

// SyncTransactions handles POST /api/sync-transactions
func (h *BatchesHandler) SyncTransactions(w http.ResponseWriter, r *http.Request) {
	if h.source == nil {
		middleware.WriteError(w, http.StatusInternalServerError, "Payment source is not configured")
		return
	}

	result, err := h.journal.SyncPayments(r.Context(), h.source)
	if err != nil {
		h.log.Error("Failed to sync transactions", "error", err)
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to sync transactions")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Synced %d new transactions. All are ready for journal entry creation.", result.Inserted),
		"synced":  result.Inserted,
		"fetched": result.Fetched,
		"skipped": result.Skipped,
	})
}

// CreateJournalBatch handles POST /api/create-journal-batch
func (h *BatchesHandler) CreateJournalBatch(w http.ResponseWriter, r *http.Request) {
	result, err := h.journal.CreateOrExtendBatch(r.Context())
	if errors.Is(err, common.ErrNoPendingTransactions) {
		middleware.WriteJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"message": "No pending transactions to create journal entry",
		})
		return
	}
	if err != nil {
		h.log.Error("Failed to create journal entry batch", "error", err)
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create journal entry batch")
		return
	}

	errorDetails := result.ErrorDetails
	if errorDetails == nil {
		errorDetails = []string{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"batch":        toBatchResponse(result.Batch),
		"created":      result.Created,
		"processed":    result.Processed,
		"errors":       result.Errors,
		"errorDetails": errorDetails,
		"message":      fmt.Sprintf("Created journal entry batch with %d transactions.", result.Processed),
	})
}

// CompleteJournalBatch handles POST /api/complete-journal-batch
func (h *BatchesHandler) CompleteJournalBatch(w http.ResponseWriter, r *http.Request) {
	batchID, ok := decodeBatchID(w, r)
	if !ok {
		return
	}

	batch, err := h.journal.CompleteBatch(r.Context(), batchID)
	if err != nil {
		h.writeBatchError(w, err, "Failed to complete journal entry batch", "batch_id", batchID)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"batch":   toBatchResponse(batch),
		"message": "Journal entry batch completed successfully",
	})
}

// CancelJournalBatch handles POST /api/cancel-journal-batch
func (h *BatchesHandler) CancelJournalBatch(w http.ResponseWriter, r *http.Request) {
	batchID, ok := decodeBatchID(w, r)
	if !ok {
		return
	}

	result, err := h.journal.CancelBatch(r.Context(), batchID)
	if err != nil {
		h.writeBatchError(w, err, "Failed to cancel journal entry batch", "batch_id", batchID)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success":           true,
		"entriesDeleted":    result.EntriesDeleted,
		"transactionsReset": result.TransactionsReset,
		"message":           "Journal entry batch canceled successfully. Transactions returned to pending.",
	})
}

// DownloadBatchExcel handles GET /api/download-batch-excel?batchId=
func (h *BatchesHandler) DownloadBatchExcel(w http.ResponseWriter, r *http.Request) {
	batchID := r.URL.Query().Get("batchId")
	if batchID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Batch ID is required")
		return
	}

	batch, lines, err := h.journal.BatchEntries(r.Context(), batchID)
	if err != nil {
		h.writeBatchError(w, err, "Failed to generate Excel file", "batch_id", batchID)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, export.BuildRows(lines)); err != nil {
		h.log.Error("Failed to generate Excel file", "batch_id", batchID, "error", err)
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to generate Excel file")
		return
	}

	fileName := export.FileName(batch, h.now())
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, fileName))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.log.Warn("Failed to write Excel response", "batch_id", batchID, "error", err)
	}
}

// UnmappedPrograms handles GET /api/unmapped-programs
func (h *BatchesHandler) UnmappedPrograms(w http.ResponseWriter, r *http.Request) {
	programs, err := h.journal.FindUnmappedPrograms(r.Context())
	if err != nil {
		h.log.Error("Failed to find unmapped programs", "error", err)
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to find unmapped programs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"programs": programs,
		"count":    len(programs),
	})
}

// PendingTransactions handles GET /api/pending-transactions
func (h *BatchesHandler) PendingTransactions(w http.ResponseWriter, r *http.Request) {
	summary, err := h.journal.PendingTransactions(r.Context())
	if err != nil {
		h.log.Error("Failed to load pending transactions", "error", err)
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load pending transactions")
		return
	}

	resp := make([]TransactionResponse, 0, len(summary.Transactions))
	for _, txn := range summary.Transactions {
		resp = append(resp, TransactionResponse{
			ID:          txn.ID,
			PaymentID:   txn.PaymentID,
			ProgramName: txn.ProgramName,
			Amount:      txn.Amount,
			Currency:    txn.Currency,
			Status:      txn.Status,
			CreatedAt:   txn.CreatedAt,
		})
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"transactions": resp,
		"count":        len(resp),
		"total_amount": summary.TotalAmount,
	})
}

// ListBatches handles GET /api/batches?status=&limit=
func (h *BatchesHandler) ListBatches(w http.ResponseWriter, r *http.Request) {
	filter := service.BatchFilter{}

	switch status := model.BatchStatus(r.URL.Query().Get("status")); status {
	case "":
	case model.BatchDraft, model.BatchCompleted:
		filter.Status = status
	default:
		middleware.WriteError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		filter.Limit = limit
	}

	batches, err := h.batches.ListBatches(r.Context(), filter)
	if err != nil {
		h.log.Error("Failed to list batches", "error", err)
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list batches")
		return
	}

	resp := make([]*BatchResponse, 0, len(batches))
	for i := range batches {
		resp = append(resp, toBatchResponse(&batches[i]))
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"batches": resp,
		"count":   len(resp),
	})
}

// decodeBatchID reads {"batchId": ...} from the body, writing a 400 when it
// is unreadable or missing.
func decodeBatchID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return "", false
	}
	if req.BatchID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Batch ID is required")
		return "", false
	}
	return req.BatchID, true
}

// writeBatchError maps a not-found precondition to 404 and anything else to 500.
func (h *BatchesHandler) writeBatchError(w http.ResponseWriter, err error, message string, args ...any) {
	if errors.Is(err, common.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, notFoundMessage(err))
		return
	}

	h.log.Error(message, append(args, "error", err)...)
	middleware.WriteError(w, http.StatusInternalServerError, message)
}

func notFoundMessage(err error) string {
	if errors.Is(err, engine.ErrNoEntries) {
		return "No journal entries found for this batch"
	}
	return "Batch not found"
}
