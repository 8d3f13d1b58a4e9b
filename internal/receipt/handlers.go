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

	"github.com/zombor/grocery-receipts/internal/parsing"
)

// maxUploadSize allows high-resolution phone photos
const maxUploadSize = int64(50 << 20)

const fileTooLargeMessage = "File is too large. Maximum size is 50MB. Please compress or resize your image."

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// jsonError writes {"error": message} with the given status
func jsonError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeJSON writes v with the given status
func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// statusFor maps service errors to HTTP statuses
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadySubmitted):
		return http.StatusConflict
	case errors.Is(err, ErrNoItems), errors.Is(err, ErrInvalidMethod):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// contentTypeFor guesses a MIME type from the file extension
func contentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

// handleIndex serves the HTML interface
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// handleListUploads returns all uploads
func (s *Server) handleListUploads(w http.ResponseWriter, r *http.Request) {
	uploads, err := s.service.ListUploads()
	if err != nil {
		slog.Error("Error listing uploads", "error", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if uploads == nil {
		uploads = []*Upload{}
	}
	writeJSON(w, http.StatusOK, uploads)
}

// handleUpload accepts a multipart receipt image and extracts its items
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, fileTooLargeMessage, http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		message := "No file provided"
		if errors.Is(err, http.ErrMissingFile) {
			message = "No file was selected. Please choose a file to upload."
		}
		jsonError(w, message, http.StatusBadRequest)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return
	}

	contentType := strings.ToLower(strings.TrimSpace(header.Header.Get("Content-Type")))
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = contentTypeFor(header.Filename)
	}

	upload, err := s.service.ProcessUpload(r.Context(), header.Filename, data, contentType, r.FormValue("method"))
	if err != nil {
		slog.Error("Error processing upload", "filename", header.Filename, "error", err)
		jsonError(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, http.StatusCreated, upload)
}

// handleGetUpload returns a single upload
func (s *Server) handleGetUpload(w http.ResponseWriter, r *http.Request) {
	upload, err := s.service.GetUpload(r.PathValue("id"))
	if err != nil {
		jsonError(w, "Upload not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, upload)
}

// handleGetUploadFile returns the stored image for an upload
func (s *Server) handleGetUploadFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetUploadFile(r.PathValue("id"))
	if err != nil {
		jsonError(w, "File not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleUpdateItems replaces the items of an upload under review
func (s *Server) handleUpdateItems(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items []parsing.LineItem `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	upload, err := s.service.UpdateItems(r.PathValue("id"), req.Items)
	if err != nil {
		slog.Error("Error updating items", "id", r.PathValue("id"), "error", err)
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, upload)
}

// handleSubmitUpload exports an upload's items
func (s *Server) handleSubmitUpload(w http.ResponseWriter, r *http.Request) {
	rows, err := s.service.SubmitUpload(r.Context(), r.PathValue("id"))
	if err != nil {
		slog.Error("Error submitting upload", "id", r.PathValue("id"), "error", err)
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"rows": rows})
}

// handleDeleteUpload deletes an upload
func (s *Server) handleDeleteUpload(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteUpload(r.PathValue("id")); err != nil {
		slog.Error("Error deleting upload", "id", r.PathValue("id"), "error", err)
		jsonError(w, "Error deleting upload", statusFor(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListHistory returns recent submissions; ?limit=N overrides the default
func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			jsonError(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries, err := s.service.ListHistory(limit)
	if err != nil {
		slog.Error("Error listing history", "error", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
