package receipt

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/zombor/receiptbox/internal/extraction"
)

// multipartOverhead is allowed on top of the file size for the other form fields
const multipartOverhead = 1 << 20

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError writes a JSON error body with CORS headers set
func writeError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	writeJSON(w, code, map[string]string{"error": message})
}

// writeServiceError maps service errors to status codes
func writeServiceError(w http.ResponseWriter, err error, notFoundMessage string) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, notFoundMessage, http.StatusNotFound)
	case isValidation(err), errors.Is(err, extraction.ErrUnknownStrategy):
		writeError(w, err.Error(), http.StatusBadRequest)
	default:
		slog.Error("Request failed", "error", err)
		writeError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListReceipts returns receipts, optionally only those needing review
func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	var filter ListFilter
	if v := r.URL.Query().Get("needs_review"); v != "" {
		needsReview, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, "needs_review must be true or false", http.StatusBadRequest)
			return
		}
		filter.NeedsReview = &needsReview
	}

	receipts, err := s.service.ListReceipts(filter)
	if err != nil {
		writeServiceError(w, err, "")
		return
	}

	writeJSON(w, http.StatusOK, receipts)
}

// contentTypeFromExtension guesses a MIME type for uploads sent without one
func contentTypeFromExtension(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return ""
	}
}

// splitTags parses a comma separated tag list
func splitTags(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return strings.Split(v, ",")
}

// handleUploadReceipt handles receipt upload
func (s *Server) handleUploadReceipt(w http.ResponseWriter, r *http.Request) {
	maxUpload := s.service.config.MaxUploadSize
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload+multipartOverhead)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			errorMsg = "File is too large. Maximum size is " + strconv.FormatInt(maxUpload>>20, 10) + "MB. Please compress or resize your image."
		}
		writeError(w, errorMsg, http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		errorMsg := "No file provided"
		if errors.Is(err, http.ErrMissingFile) {
			errorMsg = "No file was selected. Please choose a file to upload."
		}
		writeError(w, errorMsg, http.StatusBadRequest)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return
	}

	// Phones often send HEIC as application/octet-stream
	contentType := normalizeContentType(header.Header.Get("Content-Type"))
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = contentTypeFromExtension(header.Filename)
	}
	if contentType == "" {
		contentType = normalizeContentType(http.DetectContentType(data))
	}

	opts := UploadOptions{
		CategoryID:      r.FormValue("categoryId"),
		BusinessPurpose: r.FormValue("businessPurpose"),
		Notes:           r.FormValue("notes"),
		Tags:            splitTags(r.FormValue("tags")),
		AutoOCR:         true,
	}
	if v := r.FormValue("autoOCR"); v != "" {
		autoOCR, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, "autoOCR must be true or false", http.StatusBadRequest)
			return
		}
		opts.AutoOCR = autoOCR
	}

	receipt, err := s.service.ProcessReceipt(header.Filename, data, contentType, opts)
	if err != nil {
		slog.Error("Error processing receipt", "filename", header.Filename, "error", err)
		writeServiceError(w, err, "")
		return
	}

	writeJSON(w, http.StatusCreated, receipt)
}

type extractRequest struct {
	Text     string `json:"text"`
	Strategy string `json:"strategy"`
}

type extractResponse struct {
	Fields      extraction.Fields `json:"fields"`
	NeedsReview bool              `json:"needs_review"`
}

// handleExtract runs field extraction on text recognized on the client
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, multipartOverhead)).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	fields, err := s.service.ExtractText(req.Text, req.Strategy)
	if err != nil {
		writeServiceError(w, err, "")
		return
	}

	writeJSON(w, http.StatusOK, extractResponse{
		Fields:      fields,
		NeedsReview: extraction.NeedsReview(fields.Confidence),
	})
}

// handleGetReceipt returns a single receipt
func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.service.GetReceipt(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "Receipt not found")
		return
	}

	writeJSON(w, http.StatusOK, receipt)
}

// handleReviewReceipt applies corrections to a receipt
func (s *Server) handleReviewReceipt(w http.ResponseWriter, r *http.Request) {
	var update ReviewUpdate
	if err := json.NewDecoder(io.LimitReader(r.Body, multipartOverhead)).Decode(&update); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	receipt, err := s.service.ReviewReceipt(r.PathValue("id"), update)
	if err != nil {
		writeServiceError(w, err, "Receipt not found")
		return
	}

	writeJSON(w, http.StatusOK, receipt)
}

// handleGetReceiptFile returns the original upload for a receipt
func (s *Server) handleGetReceiptFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetReceiptFile(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "File not found")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleGetReceiptThumbnail returns the JPEG thumbnail for a receipt
func (s *Server) handleGetReceiptThumbnail(w http.ResponseWriter, r *http.Request) {
	data, err := s.service.GetReceiptThumbnail(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "Thumbnail not found")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Write(data)
}

// handleDeleteReceipt deletes a receipt
func (s *Server) handleDeleteReceipt(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteReceipt(r.PathValue("id")); err != nil {
		writeServiceError(w, err, "Receipt not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
