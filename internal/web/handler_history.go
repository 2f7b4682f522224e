package web

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vbonduro/skintell/internal/domain"
	"github.com/vbonduro/skintell/internal/photostore"
)

const (
	defaultScanLimit = 20
	maxScanLimit     = 100
)

type scanView struct {
	*domain.Scan
	ImageRef string `json:"imageRef"`
}

func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	limit := defaultScanLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxScanLimit)
	}

	scans, err := s.scans.History(r.Context(), limit)
	if err != nil {
		respondDomainError(w, s.logger, "list scans", err)
		return
	}

	views := make([]scanView, 0, len(scans))
	for _, sc := range scans {
		views = append(views, scanView{Scan: sc, ImageRef: photostore.Ref(sc.StorageKey)})
	}
	respondJSON(w, http.StatusOK, views)
}

func (s *Server) handleDeleteScan(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid scan id")
		return
	}

	if err := s.scans.DeleteScan(r.Context(), id); err != nil {
		respondDomainError(w, s.logger, "delete scan", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStreak(w http.ResponseWriter, r *http.Request) {
	streak, err := s.scans.Streak(r.Context())
	if err != nil {
		respondDomainError(w, s.logger, "streak", err)
		return
	}
	respondJSON(w, http.StatusOK, streak)
}

func (s *Server) handleGetPhoto(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	reader, mimeType, err := s.photoStore.Get(r.Context(), key)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer closeWithLog(reader, "photo reader", s.logger)

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "private, max-age=86400")
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Error("write photo failed", "storage_key", key, "error", err)
	}
}
