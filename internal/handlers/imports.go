package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"vendorbook-api/internal/models"
	"vendorbook-api/pkg/importer"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// VendorLister returns every vendor, newest first.
type VendorLister interface {
	List(ctx context.Context) ([]models.Vendor, error)
}

// ImportsHandler handles spreadsheet import and export of vendors.
type ImportsHandler struct {
	DB       importer.Beginner
	Vendors  VendorLister
	Logger   *slog.Logger
	MaxBytes int64
	Mapping  string

	importFn func(ctx context.Context, r io.Reader, opts importer.ImportOptions) (importer.ImportSummary, error)
}

// NewImportsHandler creates a handler that imports through db and exports
// from vendors.
func NewImportsHandler(db importer.Beginner, vendors VendorLister, logger *slog.Logger) *ImportsHandler {
	h := &ImportsHandler{
		DB:       db,
		Vendors:  vendors,
		Logger:   logger,
		MaxBytes: 20 << 20, // 20 MB
	}
	h.importFn = func(ctx context.Context, r io.Reader, opts importer.ImportOptions) (importer.ImportSummary, error) {
		return importer.ImportVendors(ctx, h.DB, r, opts)
	}
	return h
}

// UploadExcel handles multipart .xlsx uploads.
func (h *ImportsHandler) UploadExcel(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)

	if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
		writeError(w, http.StatusBadRequest, "content-type must be multipart/form-data")
		return
	}
	if err := r.ParseMultipartForm(h.MaxBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	dryRun := r.FormValue("dry_run") == "true"
	maxErrors := 50
	if v := r.FormValue("max_errors"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxErrors = n
		}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	if !isXLSX(header) {
		writeError(w, http.StatusBadRequest, "only .xlsx files are accepted")
		return
	}

	sum, impErr := h.importFn(r.Context(), file, importer.ImportOptions{
		MappingPath: h.Mapping,
		DryRun:      dryRun,
		MaxErrors:   maxErrors,
	})
	if impErr != nil {
		h.logger().Warn("vendor import failed",
			slog.String("run_id", sum.RunID),
			slog.String("file", header.Filename),
			slog.Any("error", impErr))

		var inErr *importer.InputError
		if !errors.As(impErr, &inErr) {
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"error": "Import failed",
				"data":  sum,
			})
			return
		}
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":   "Import failed",
			"details": inErr.Error(),
			"data":    sum,
		})
		return
	}

	h.logger().Info("vendor import finished",
		slog.String("run_id", sum.RunID),
		slog.Bool("dry_run", sum.DryRun),
		slog.Int("inserted", sum.Inserted),
		slog.Int("updated", sum.Updated),
		slog.Int("errors", sum.Errors))
	writeJSON(w, http.StatusOK, map[string]any{
		"data": sum,
		"meta": map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// ExportExcel streams all vendors as an .xlsx attachment.
func (h *ImportsHandler) ExportExcel(w http.ResponseWriter, r *http.Request) {
	vendors, err := h.Vendors.List(r.Context())
	if err != nil {
		h.logger().Error("vendor export failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Failed to export vendors")
		return
	}

	var buf bytes.Buffer
	if err := importer.ExportVendors(&buf, vendors); err != nil {
		h.logger().Error("write vendor export", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Failed to export vendors")
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="vendors.xlsx"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *ImportsHandler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

// isXLSX checks the uploaded file name for the .xlsx extension.
func isXLSX(h *multipart.FileHeader) bool {
	return strings.HasSuffix(strings.ToLower(h.Filename), ".xlsx")
}

func writeError(w http.ResponseWriter, status int, reason string) {
	writeJSON(w, status, map[string]string{"error": reason})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
