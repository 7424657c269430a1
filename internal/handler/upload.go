package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rocjay1/budget-ledger/internal/csvparse"
)

// maxUploadBytes caps an import file.
const maxUploadBytes = 10 << 20

// importJob is the queue message that hands an uploaded file to ProcessQueue.
type importJob struct {
	BlobName string `json:"blob_name"`
	FileName string `json:"file_name"`
}

// importBlobName places a file under imports/<day>/ with a unique prefix so
// two uploads of the same file never collide.
func importBlobName(now time.Time, fileName string) string {
	return fmt.Sprintf("imports/%s/%s-%s", now.UTC().Format("2006-01-02"), uuid.NewString(), fileName)
}

// HandleUpload stages a transaction CSV in blob storage and queues it for
// import. Files whose header lacks a required column are refused up front.
func (d *Dependencies) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+1<<10)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		slog.Warn("failed to parse multipart form", "error", err, "max_size_mb", maxUploadBytes>>20)
		WriteError(w, http.StatusBadRequest, "File too large or invalid form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		slog.Warn("failed to get file from form", "error", err)
		WriteError(w, http.StatusBadRequest, "Failed to get file")
		return
	}
	defer file.Close()

	fileName := filepath.Base(header.Filename)
	if !strings.EqualFold(filepath.Ext(fileName), ".csv") {
		WriteError(w, http.StatusBadRequest, "Only .csv files can be imported")
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		slog.Error("failed to read uploaded file", "filename", fileName, "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to read file")
		return
	}
	if err := csvparse.CheckHeader(string(content)); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid import file: "+err.Error())
		return
	}

	blobName := importBlobName(time.Now(), fileName)
	if err := d.Blob.UploadText(r.Context(), d.ImportContainer, blobName, string(content)); err != nil {
		slog.Error("failed to stage import file", "blob_name", blobName, "container", d.ImportContainer, "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to upload blob")
		return
	}

	job := importJob{BlobName: blobName, FileName: fileName}
	if err := d.Queue.EnqueueMessage(r.Context(), d.ImportQueue, job); err != nil {
		slog.Error("failed to enqueue import job", "queue", d.ImportQueue, "blob_name", blobName, "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to enqueue message")
		return
	}
	slog.Info("import job queued", "filename", fileName, "blob_name", blobName, "size_bytes", len(content))

	WriteJSON(w, http.StatusAccepted, map[string]string{
		"status":    "queued",
		"blob_name": blobName,
	})
}
