package handler

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rocjay1/budget-ledger/internal/csvparse"
)

// invokeRequest represents the payload from Azure Functions Custom Handler.
type invokeRequest struct {
	Data     map[string]any `json:"Data"`
	Metadata map[string]any `json:"Metadata"`
}

// importResult summarises one processed upload.
type importResult struct {
	BlobName string   `json:"blob_name"`
	Imported int      `json:"imported"`
	Errors   []string `json:"errors,omitempty"`
}

// decodeQueueItem accepts the item as an object the host already decoded,
// as a JSON string, or as the raw base64 message when the host is set to
// pass messages through undecoded.
func decodeQueueItem(v any) (importJob, error) {
	var raw []byte
	switch item := v.(type) {
	case string:
		raw = []byte(item)
		if !strings.HasPrefix(strings.TrimSpace(item), "{") {
			if decoded, err := base64.StdEncoding.DecodeString(item); err == nil {
				raw = decoded
			}
		}
	default:
		b, err := json.Marshal(item)
		if err != nil {
			return importJob{}, err
		}
		raw = b
	}
	var job importJob
	if err := json.Unmarshal(raw, &job); err != nil {
		return importJob{}, err
	}
	return job, nil
}

// ProcessQueue handles the queue trigger for importing uploaded CSVs. Rows
// are applied in file order; a rejected row is reported and skipped.
func (d *Dependencies) ProcessQueue(w http.ResponseWriter, r *http.Request) {
	var invokeReq invokeRequest
	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		slog.Error("failed to read queue request body", "error", err)
		WriteError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	if err := json.Unmarshal(bodyBytes, &invokeReq); err != nil {
		slog.Error("failed to unmarshal queue request", "error", err)
		WriteError(w, http.StatusBadRequest, "Failed to unmarshal request")
		return
	}

	queueItemVal, ok := invokeReq.Data["queueItem"]
	if !ok {
		queueItemVal, ok = invokeReq.Data["queueitem"]
		if !ok {
			WriteError(w, http.StatusBadRequest, "Missing queueItem in Data")
			return
		}
	}

	job, err := decodeQueueItem(queueItemVal)
	if err != nil {
		slog.Error("failed to unmarshal queueItem", "error", err)
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid queueItem JSON: %v", err))
		return
	}
	if job.BlobName == "" {
		slog.Warn("queue message missing blob_name")
		WriteError(w, http.StatusBadRequest, "Missing blob_name")
		return
	}

	ctx := r.Context()
	slog.Info("processing import job", "blob_name", job.BlobName, "container", d.ImportContainer)

	csvContent, err := d.Blob.DownloadText(ctx, d.ImportContainer, job.BlobName)
	if err != nil {
		slog.Error("failed to download CSV from blob", "blob_name", job.BlobName, "container", d.ImportContainer, "error", err)
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to download CSV: %v", err))
		return
	}

	rows, errors := csvparse.ParseCSV(csvContent)
	slog.Info("parsed CSV content", "blob_name", job.BlobName, "rows_count", len(rows), "errors_count", len(errors))

	result := importResult{BlobName: job.BlobName}
	for _, row := range rows {
		tx, err := d.Transactions.Create(ctx, row.Record)
		if err != nil {
			slog.Warn("import row rejected", "blob_name", job.BlobName, "line", row.Line, "error", err)
			errors = append(errors, fmt.Sprintf("Row %d: %v", row.Line, err))
			continue
		}
		slog.Debug("import row applied", "line", row.Line, "transaction_id", tx.ID)
		result.Imported++
	}
	result.Errors = errors

	d.sendImportReport(r, job, result)

	// The message is consumed even when rows failed so it does not retry forever.
	slog.Info("import job complete", "blob_name", job.BlobName, "imported", result.Imported, "errors_count", len(result.Errors))
	WriteJSON(w, http.StatusOK, result)
}

func (d *Dependencies) sendImportReport(r *http.Request, job importJob, result importResult) {
	if d.Email == nil || len(d.Recipients) == 0 {
		slog.Debug("no email configured; skipping import report")
		return
	}
	name := job.FileName
	if name == "" {
		name = job.BlobName
	}
	if err := d.Email.SendImportReport(r.Context(), d.Recipients, name, result.Imported, result.Errors); err != nil {
		slog.Error("failed to send import report", "blob_name", job.BlobName, "error", err)
	}
}
