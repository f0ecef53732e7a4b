package http

import (
	"net/http"

	"github.com/atinyakov/GophVault/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ShareHandler serves public share links. It never looks at the caller's
// identity: the share id in the path is the only credential.
type ShareHandler struct {
	FileService FileService
	Log         *zap.Logger
}

// Read streams the shared file inline.
func (h *ShareHandler) Read(w http.ResponseWriter, r *http.Request) {
	h.open(w, r, service.OpShareRead)
}

// Download streams the shared file as an attachment.
func (h *ShareHandler) Download(w http.ResponseWriter, r *http.Request) {
	h.open(w, r, service.OpShareDownload)
}

func (h *ShareHandler) open(w http.ResponseWriter, r *http.Request, op service.Operation) {
	c, err := h.FileService.OpenShared(r.Context(), chi.URLParam(r, "id"), op)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	defer c.Body.Close()

	streamContent(w, h.Log, c.DisplayName, c.ContentType, c.Size, op == service.OpShareDownload, c.Body)
}
