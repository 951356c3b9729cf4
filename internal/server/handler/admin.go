package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	s3blob "github.com/nippysky/Panthart-Marketplace-sub002/internal/blob/s3"
)

// ArchiveRunner runs one cold-storage archive pass; the S3 archiver
// implements it.
type ArchiveRunner interface {
	Run(ctx context.Context, cutoff time.Time) (s3blob.ArchiveReport, error)
}

// AdminHandler serves operator-only endpoints.
type AdminHandler struct {
	archiver      ArchiveRunner
	retentionDays int
	logger        *slog.Logger
}

// NewAdminHandler creates an AdminHandler. archiver may be nil when object
// storage is not configured.
func NewAdminHandler(archiver ArchiveRunner, retentionDays int, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		archiver:      archiver,
		retentionDays: retentionDays,
		logger:        logger.With(slog.String("handler", "admin")),
	}
}

// TriggerArchive archives rows older than the retention window and returns
// the run report.
// POST /api/admin/archive
func (h *AdminHandler) TriggerArchive(w http.ResponseWriter, r *http.Request) {
	if h.archiver == nil {
		writeError(w, http.StatusServiceUnavailable, "object storage not configured")
		return
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -h.retentionDays)
	report, err := h.archiver.Run(r.Context(), cutoff)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "archive run failed",
			slog.Time("cutoff", cutoff),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, report)
}
