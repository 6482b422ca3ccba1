package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/nijaru/yt-summary/errors"
	"github.com/nijaru/yt-summary/middleware"
	"github.com/sirupsen/logrus"
)

// Response is the envelope for every API reply.
type Response struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
	Stage     string    `json:"stage,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func respondJSON(w http.ResponseWriter, r *http.Request, code int, payload any) {
	writeResponse(w, code, Response{
		Success:   code >= 200 && code < 300,
		Data:      payload,
		RequestID: middleware.RequestIDFrom(r.Context()),
		Timestamp: time.Now().UTC(),
	})
}

func respondError(w http.ResponseWriter, r *http.Request, logger *logrus.Logger, err error) {
	code := http.StatusInternalServerError
	msg := "Internal server error"
	stage := errors.StageInternal

	var appErr *errors.AppError
	switch {
	case errors.As(err, &appErr):
		code = appErr.Code
		msg = appErr.Message
		stage = appErr.Stage
	case r.Context().Err() == context.DeadlineExceeded:
		code = http.StatusGatewayTimeout
		msg = "Request timeout"
	}

	entry := logger.WithFields(logrus.Fields{
		"error":      err,
		"status":     code,
		"stage":      stage,
		"request_id": middleware.RequestIDFrom(r.Context()),
		"path":       r.URL.Path,
		"method":     r.Method,
	})
	if code >= 500 {
		entry.Error("Request error")
	} else {
		entry.Warn("Request error")
	}

	writeResponse(w, code, Response{
		Success:   false,
		Error:     msg,
		Stage:     string(stage),
		RequestID: middleware.RequestIDFrom(r.Context()),
		Timestamp: time.Now().UTC(),
	})
}

func writeResponse(w http.ResponseWriter, code int, response Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logrus.WithError(err).Error("Failed to encode response")
	}
}

func readJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.InvalidInput("readJSON", err, "Invalid JSON format")
	}
	return nil
}
