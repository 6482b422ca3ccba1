package models

import (
	"time"
)

type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// TranscriptSource records which path of the pipeline produced a transcript.
type TranscriptSource string

const (
	SourceCaptions TranscriptSource = "captions"
	SourceLocal    TranscriptSource = "local"
)

// Evaluation is the stored result of summarizing one video.
type Evaluation struct {
	VideoID          string           `json:"video_id"`
	URL              string           `json:"url"`
	Status           Status           `json:"status"`
	Transcript       string           `json:"transcript,omitempty"`
	TranscriptSource TranscriptSource `json:"transcript_source,omitempty"`
	Summary          string           `json:"summary,omitempty"`
	SummaryModel     string           `json:"summary_model,omitempty"`
	Stage            string           `json:"stage,omitempty"`
	Error            string           `json:"error,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

func (e *Evaluation) IsProcessing() bool { return e.Status == StatusProcessing }
func (e *Evaluation) IsCompleted() bool  { return e.Status == StatusCompleted }
func (e *Evaluation) IsFailed() bool     { return e.Status == StatusFailed }

// IsStale checks if the evaluation has been stuck in processing for too long
func (e *Evaluation) IsStale(timeout time.Duration) bool {
	if e.Status != StatusProcessing {
		return false
	}
	return time.Since(e.UpdatedAt) > timeout
}
