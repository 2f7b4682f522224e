package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vbonduro/skintell/internal/navigator"
	"github.com/vbonduro/skintell/internal/session"
)

const smallBodyLimit = 64 << 10

// session looks up the {id} session, writing a 404 when it does not exist.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, s.logger, "get session", err)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create()
	respondJSON(w, http.StatusCreated, sess.Snapshot())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleSelectTab(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var body struct {
		Tab string `json:"tab"`
	}
	if err := decodeJSON(w, r, smallBodyLimit, &body); err != nil {
		status, msg := bodyError(err)
		respondError(w, status, msg)
		return
	}

	tab, err := navigator.ParseTab(body.Tab)
	if err != nil {
		respondDomainError(w, s.logger, "select tab", err)
		return
	}
	snap, err := sess.SelectTab(tab)
	if err != nil {
		respondDomainError(w, s.logger, "select tab", err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSetMenu(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var body struct {
		Open *bool `json:"open"`
	}
	if err := decodeJSON(w, r, smallBodyLimit, &body); err != nil {
		status, msg := bodyError(err)
		respondError(w, status, msg)
		return
	}
	if body.Open == nil {
		respondError(w, http.StatusBadRequest, "open is required")
		return
	}
	respondJSON(w, http.StatusOK, sess.SetMenu(*body.Open))
}

func (s *Server) handleMenuNavigate(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var body struct {
		Page string `json:"page"`
	}
	if err := decodeJSON(w, r, smallBodyLimit, &body); err != nil {
		status, msg := bodyError(err)
		respondError(w, status, msg)
		return
	}

	snap, err := sess.MenuNavigate(body.Page)
	if err != nil {
		respondDomainError(w, s.logger, "menu navigate", err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}
