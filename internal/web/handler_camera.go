package web

import (
	"net/http"
)

type captureResponse struct {
	Image string `json:"image"`
}

func (s *Server) handleOpenCamera(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.OpenCamera(r.Context()); err != nil {
		respondDomainError(w, s.logger, "open camera", err)
		return
	}
	respondJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleCancelCamera(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.CancelCamera()
	respondJSON(w, http.StatusOK, sess.Snapshot())
}

// handleCaptureCamera returns the captured frame as a data URI; the client
// previews it and submits it as a scan.
func (s *Server) handleCaptureCamera(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	img, err := sess.CaptureCamera(r.Context())
	if err != nil {
		respondDomainError(w, s.logger, "capture camera", err)
		return
	}
	respondJSON(w, http.StatusOK, captureResponse{Image: img.DataURI()})
}
