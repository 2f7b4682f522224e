package web

import (
	"net/http"
	"strings"

	"github.com/vbonduro/skintell/internal/advisor"
	"github.com/vbonduro/skintell/internal/advisor/relay"
)

// handleRelay answers one stateless chat request. Failures always carry the
// fallback tip so the client has something to show.
func (s *Server) handleRelay(w http.ResponseWriter, r *http.Request) {
	var req relay.Request
	if err := decodeJSON(w, r, imageLimit, &req); err != nil {
		status, msg := bodyError(err)
		respondJSON(w, status, relay.Response{
			Error:            msg,
			FallbackResponse: advisor.FallbackAdvice,
		})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondJSON(w, http.StatusBadRequest, relay.Response{
			Error:            "message is required",
			FallbackResponse: advisor.FallbackAdvice,
		})
		return
	}

	s.logger.Info("relay request", "has_image_context", req.ImageContext != "")

	prompt, err := advisor.BuildChatPrompt(r.Context(), req.Message, req.ImageContext, s.resolver)
	if err == nil {
		var text string
		text, err = s.advisor.Advise(r.Context(), prompt)
		if err == nil {
			respondJSON(w, http.StatusOK, relay.Response{Success: true, Response: text})
			return
		}
	}

	s.logger.Error("relay request failed", "error", err)
	respondJSON(w, http.StatusInternalServerError, relay.Response{
		Error:            "AI service is unavailable",
		FallbackResponse: advisor.FallbackAdvice,
	})
}
