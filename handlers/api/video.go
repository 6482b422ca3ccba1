package api

import (
	"net/http"
	"strings"

	"github.com/nijaru/yt-summary/errors"
	"github.com/nijaru/yt-summary/models"
	"github.com/nijaru/yt-summary/services/video"
	"github.com/nijaru/yt-summary/validation"
	"github.com/sirupsen/logrus"
)

const maxRequestBody = 1024 * 1024

type VideoHandler struct {
	service   video.Service
	validator *validation.Validator
	logger    *logrus.Logger
}

func NewVideoHandler(service video.Service, validator *validation.Validator, logger *logrus.Logger) *VideoHandler {
	return &VideoHandler{
		service:   service,
		validator: validator,
		logger:    logger,
	}
}

// HandleEvaluate handles POST /api/v1/evaluate. The URL may come as a JSON
// body or as a form field.
func (h *VideoHandler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	const op = "VideoHandler.HandleEvaluate"

	if err := h.validator.ValidateRequest(r, validation.RequestValidationOpts{
		MaxContentLength: maxRequestBody,
	}); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	url, err := h.requestURL(r, op)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	if err := h.validator.ValidateURL(url); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.WithField("url", url).Info("Received evaluation request")

	evaluation, err := h.service.Evaluate(r.Context(), url)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, r, http.StatusOK, models.NewEvaluationResponse(evaluation))
}

// HandleTranscript handles GET /api/v1/transcript?url=
func (h *VideoHandler) HandleTranscript(w http.ResponseWriter, r *http.Request) {
	const op = "VideoHandler.HandleTranscript"

	url := r.URL.Query().Get("url")
	if url == "" {
		respondError(w, r, h.logger, errors.InvalidURL(op, nil, "URL parameter is required"))
		return
	}

	if err := h.validator.ValidateURL(url); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	result, err := h.service.Transcript(r.Context(), url)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, r, http.StatusOK, &models.TranscriptResponse{
		VideoID:    result.VideoID,
		URL:        url,
		Transcript: result.Text,
		Source:     result.Source,
	})
}

// HandleGetEvaluation handles GET /api/v1/evaluations/{id}
func (h *VideoHandler) HandleGetEvaluation(w http.ResponseWriter, r *http.Request) {
	const op = "VideoHandler.HandleGetEvaluation"

	id := r.PathValue("id")
	if id == "" {
		respondError(w, r, h.logger, errors.InvalidInput(op, nil, "ID is required"))
		return
	}

	evaluation, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, r, http.StatusOK, models.NewEvaluationResponse(evaluation))
}

// HandleDeleteEvaluation handles DELETE /api/v1/evaluations/{id}
func (h *VideoHandler) HandleDeleteEvaluation(w http.ResponseWriter, r *http.Request) {
	const op = "VideoHandler.HandleDeleteEvaluation"

	id := r.PathValue("id")
	if id == "" {
		respondError(w, r, h.logger, errors.InvalidInput(op, nil, "ID is required"))
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, r, http.StatusOK, map[string]any{
		"video_id": id,
		"deleted":  true,
	})
}

func (h *VideoHandler) requestURL(r *http.Request, op string) (string, error) {
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		var req models.EvaluateRequest
		if err := readJSON(r, &req); err != nil {
			return "", err
		}
		return strings.TrimSpace(req.URL), nil
	}

	if err := r.ParseForm(); err != nil {
		return "", errors.InvalidInput(op, err, "Failed to parse form data")
	}
	return strings.TrimSpace(r.FormValue("url")), nil
}
