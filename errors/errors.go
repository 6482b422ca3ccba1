package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Stage names the point in the evaluation flow where an error was raised.
type Stage string

const (
	StageInvalidURL           Stage = "invalid_url"
	StageInvalidInput         Stage = "invalid_input"
	StageCaptionsUnavailable  Stage = "captions_unavailable"
	StageNoDownloadableStream Stage = "no_downloadable_stream"
	StageDownloadFailed       Stage = "download_failed"
	StageTranscriptionFailed  Stage = "transcription_failed"
	StageSummarizationFailed  Stage = "summarization_failed"
	StageNotFound             Stage = "not_found"
	StageInternal             Stage = "internal"
)

type AppError struct {
	Code    int    `json:"-"`
	Message string `json:"error"`
	Stage   Stage  `json:"stage,omitempty"`
	Op      string `json:"-"`
	VideoID string `json:"video_id,omitempty"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithVideo attaches the video identifier the failure belongs to.
func (e *AppError) WithVideo(videoID string) *AppError {
	e.VideoID = videoID
	return e
}

func newError(code int, stage Stage, op string, err error, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Stage:   stage,
		Op:      op,
		Err:     err,
	}
}

// InvalidInput covers malformed requests that are not about the video URL itself.
func InvalidInput(op string, err error, message string) *AppError {
	return newError(http.StatusBadRequest, StageInvalidInput, op, err, message)
}

func InvalidURL(op string, err error, message string) *AppError {
	return newError(http.StatusBadRequest, StageInvalidURL, op, err, message)
}

func NotFound(op string, err error, message string) *AppError {
	return newError(http.StatusNotFound, StageNotFound, op, err, message)
}

func Internal(op string, err error, message string) *AppError {
	return newError(http.StatusInternalServerError, StageInternal, op, err, message)
}

func NoDownloadableStream(op string, err error, message string) *AppError {
	return newError(http.StatusUnprocessableEntity, StageNoDownloadableStream, op, err, message)
}

func DownloadFailed(op string, err error, message string) *AppError {
	return newError(http.StatusBadGateway, StageDownloadFailed, op, err, message)
}

func TranscriptionFailed(op string, err error, message string) *AppError {
	return newError(http.StatusInternalServerError, StageTranscriptionFailed, op, err, message)
}

func SummarizationFailed(op string, err error, message string) *AppError {
	return newError(http.StatusBadGateway, StageSummarizationFailed, op, err, message)
}

// CaptionsUnavailable never leaves the transcript pipeline; it only drives the fallback.
func CaptionsUnavailable(op string, err error, message string) *AppError {
	return newError(http.StatusNotFound, StageCaptionsUnavailable, op, err, message)
}

// StageOf returns the stage of the first AppError in err's chain.
func StageOf(err error) Stage {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Stage
	}
	return ""
}

// Is reports whether err carries the given stage.
func Is(err error, stage Stage) bool {
	return err != nil && StageOf(err) == stage
}

func IsNotFound(err error) bool {
	return Is(err, StageNotFound)
}

// As is re-exported so callers need a single errors import.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}
