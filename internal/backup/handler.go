package backup

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/facturo/facturo/internal/shared"
)

// Handler serves backup download and restore.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// Download streams the JSON snapshot as an attachment.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.Export(r.Context())
	if err != nil {
		h.logger.Error("backup export failed", "error", err)
		http.Error(w, "Failed to export backup", http.StatusInternalServerError)
		return
	}
	filename := "respaldo-" + time.Now().Format("2006-01-02") + ".json"
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if _, err := w.Write(data); err != nil {
		h.logger.Error("write backup response", "error", err)
	}
}

// Restore accepts a multipart upload and replaces the database with it.
func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxSnapshotBytes); err != nil {
		h.redirectWithFlash(w, r, "error", "No se pudo leer el archivo de respaldo.")
		return
	}
	file, _, err := r.FormFile("backup")
	if err != nil {
		h.redirectWithFlash(w, r, "error", "Seleccione un archivo de respaldo.")
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(io.LimitReader(file, maxSnapshotBytes+1))
	if err != nil {
		h.logger.Error("read backup upload", "error", err)
		h.redirectWithFlash(w, r, "error", "No se pudo leer el archivo de respaldo.")
		return
	}
	if err := h.service.Restore(r.Context(), raw); err != nil {
		h.logger.Error("backup restore failed", "error", err)
		h.redirectWithFlash(w, r, "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "success", "Respaldo restaurado.")
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, "/settings", http.StatusSeeOther)
}
