package http

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/atinyakov/GophVault/internal/middleware"
	"github.com/atinyakov/GophVault/internal/models"
	"github.com/atinyakov/GophVault/internal/service"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// multipartMemory is how much of a multipart body is buffered in memory
// before spilling to temporary files.
const multipartMemory = 8 << 20

// FileService defines the file and share operations required by the HTTP
// handlers. Every method runs the access control gate itself.
type FileService interface {
	Upload(ctx context.Context, userID string, up service.Upload) (*models.StoredFile, error)
	List(ctx context.Context, userID string, mineOnly bool) ([]models.FileListing, error)
	Open(ctx context.Context, userID, storageKey string, op service.Operation) (*service.Content, error)
	Delete(ctx context.Context, userID, storageKey string) error
	CreateShare(ctx context.Context, userID, storageKey string) (*models.ShareLink, error)
	ListShares(ctx context.Context, userID, storageKey string) ([]models.ShareLink, error)
	RevokeShare(ctx context.Context, userID, shareID string) error
	OpenShared(ctx context.Context, shareID string, op service.Operation) (*service.SharedContent, error)
}

// FileHandler serves the owner-facing file endpoints.
type FileHandler struct {
	FileService FileService
	// MaxUploadBytes caps the request body of /upload. Zero disables the cap.
	MaxUploadBytes int64
	Log            *zap.Logger
}

// Upload accepts a multipart form with a "file" part and an optional
// "displayName" field overriding the client file name.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeMessage(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()

	detected, err := mimetype.DetectReader(file)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		writeError(w, h.Log, err)
		return
	}

	name := r.FormValue("displayName")
	if name == "" {
		name = header.Filename
	}

	stored, err := h.FileService.Upload(r.Context(), middleware.GetUserIDFromContext(r.Context()), service.Upload{
		DisplayName: name,
		ContentType: detected.String(),
		Size:        header.Size,
		Content:     file,
	})
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"storageKey":  stored.StorageKey,
		"displayName": stored.DisplayName,
	})
}

// List returns every file in the vault, or only the caller's with ?mine=true.
func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	mine, _ := strconv.ParseBool(r.URL.Query().Get("mine"))
	files, err := h.FileService.List(r.Context(), middleware.GetUserIDFromContext(r.Context()), mine)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

// Read streams an owned file inline.
func (h *FileHandler) Read(w http.ResponseWriter, r *http.Request) {
	h.open(w, r, service.OpRead)
}

// Download streams an owned file as an attachment under its display name.
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	h.open(w, r, service.OpDownload)
}

func (h *FileHandler) open(w http.ResponseWriter, r *http.Request, op service.Operation) {
	c, err := h.FileService.Open(r.Context(), middleware.GetUserIDFromContext(r.Context()), chi.URLParam(r, "id"), op)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	defer c.Body.Close()

	streamContent(w, h.Log, c.File.DisplayName, c.File.ContentType, c.File.Size, op == service.OpDownload, c.Body)
}

// Delete removes an owned file.
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.FileService.Delete(r.Context(), middleware.GetUserIDFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeMessage(w, http.StatusOK, "file deleted")
}

// Share issues a new public share link for an owned file.
func (h *FileHandler) Share(w http.ResponseWriter, r *http.Request) {
	link, err := h.FileService.CreateShare(r.Context(), middleware.GetUserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"shareId": link.ID})
}

// ListShares returns the active share links of an owned file.
func (h *FileHandler) ListShares(w http.ResponseWriter, r *http.Request) {
	links, err := h.FileService.ListShares(r.Context(), middleware.GetUserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, links)
}

// RevokeShare disables a share link of an owned file.
func (h *FileHandler) RevokeShare(w http.ResponseWriter, r *http.Request) {
	if err := h.FileService.RevokeShare(r.Context(), middleware.GetUserIDFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeMessage(w, http.StatusOK, "share revoked")
}

// streamContent writes the headers for a file body and copies it out.
// Once the body has started, copy failures can only be logged.
func streamContent(w http.ResponseWriter, log *zap.Logger, name, contentType string, size int64, attachment bool, body io.Reader) {
	disposition := "inline"
	if attachment {
		disposition = "attachment"
	} else {
		contentType = inlineContentType(contentType)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": name}))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	// Stored content shares the API origin; it must never run script there.
	w.Header().Set("Content-Security-Policy", "default-src 'none'; sandbox")
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, body); err != nil && log != nil {
		log.Warn("failed to stream content", zap.String("filename", name), zap.Error(err))
	}
}

// activeTypes are rendered by browsers as documents that can run script.
var activeTypes = map[string]bool{
	"text/html":              true,
	"application/xhtml+xml":  true,
	"image/svg+xml":          true,
	"text/xml":               true,
	"application/xml":        true,
	"text/javascript":        true,
	"application/javascript": true,
}

// inlineContentType downgrades active document types to plain text for
// inline display.
func inlineContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || activeTypes[strings.ToLower(mediaType)] {
		return "text/plain; charset=utf-8"
	}
	return contentType
}
