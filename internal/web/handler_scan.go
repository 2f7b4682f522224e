package web

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/vbonduro/skintell/internal/capture"
	"github.com/vbonduro/skintell/internal/domain"
	"github.com/vbonduro/skintell/internal/session"
)

var errMissingImage = errors.New("image is required")

type scanRequest struct {
	Image         string                `json:"image"`
	Questionnaire *domain.Questionnaire `json:"questionnaire,omitempty"`
}

type scanResponse struct {
	ImageRef string           `json:"imageRef"`
	Analysis string           `json:"analysis"`
	Session  session.Snapshot `json:"session"`
}

// handleScan accepts either a multipart upload (field "image" plus optional
// questionnaire fields) or a JSON body carrying a data URI.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imageLimit)

	var (
		img     capture.Image
		answers *domain.Questionnaire
		err     error
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		img, answers, err = s.readMultipartScan(r)
	} else {
		img, answers, err = readJSONScan(r)
	}
	if err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			respondError(w, http.StatusRequestEntityTooLarge, "image too large")
		case errors.Is(err, errMissingImage):
			respondError(w, http.StatusBadRequest, "image is required")
		case errors.Is(err, capture.ErrUnsupportedImage), errors.Is(err, capture.ErrImageTooLarge), errors.Is(err, capture.ErrInvalidDataURI):
			respondDomainError(w, s.logger, "read scan image", err)
		default:
			respondError(w, http.StatusBadRequest, "invalid request body")
		}
		return
	}

	result, err := sess.Scan(r.Context(), img, answers)
	if err != nil {
		respondDomainError(w, s.logger, "scan", err)
		return
	}

	respondJSON(w, http.StatusOK, scanResponse{
		ImageRef: result.ImageRef,
		Analysis: result.AnalysisText,
		Session:  sess.Snapshot(),
	})
}

func (s *Server) readMultipartScan(r *http.Request) (capture.Image, *domain.Questionnaire, error) {
	if err := r.ParseMultipartForm(capture.MaxImageSize); err != nil {
		return capture.Image{}, nil, err
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		return capture.Image{}, nil, errMissingImage
	}
	defer closeWithLog(file, "upload file", s.logger)

	img, err := capture.FromReader(file, capture.MaxImageSize)
	if err != nil {
		return capture.Image{}, nil, err
	}

	q := domain.Questionnaire{
		AgeRange:       r.FormValue("ageRange"),
		SkinType:       r.FormValue("skinType"),
		Concerns:       r.FormValue("concerns"),
		CurrentRoutine: r.FormValue("currentRoutine"),
		Lifestyle:      r.FormValue("lifestyle"),
	}
	if q == (domain.Questionnaire{}) {
		return img, nil, nil
	}
	return img, &q, nil
}

func readJSONScan(r *http.Request) (capture.Image, *domain.Questionnaire, error) {
	var body scanRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return capture.Image{}, nil, err
	}
	if strings.TrimSpace(body.Image) == "" {
		return capture.Image{}, nil, errMissingImage
	}

	img, err := capture.FromDataURI(body.Image)
	if err != nil {
		return capture.Image{}, nil, err
	}
	return img, body.Questionnaire, nil
}
