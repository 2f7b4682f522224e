package web

import (
	"net/http"

	"github.com/vbonduro/skintell/internal/domain"
)

func (s *Server) handleChatView(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, sess.ChatView())
}

type sendResponse struct {
	Messages []domain.Message `json:"messages"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var body struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(w, r, smallBodyLimit, &body); err != nil {
		status, msg := bodyError(err)
		respondError(w, status, msg)
		return
	}

	msgs, err := sess.Send(r.Context(), body.Text)
	if err != nil {
		respondDomainError(w, s.logger, "send message", err)
		return
	}
	respondJSON(w, http.StatusOK, sendResponse{Messages: msgs})
}
