package video

import (
	"context"
	"time"

	"github.com/nijaru/yt-summary/models"
	"github.com/nijaru/yt-summary/services/transcript"
)

// Service turns video URLs into summaries.
type Service interface {
	// Evaluate returns a completed evaluation with a non-empty summary.
	Evaluate(ctx context.Context, url string) (*models.Evaluation, error)
	// Transcript returns only the transcript, without summarizing.
	Transcript(ctx context.Context, url string) (*transcript.Result, error)
	Get(ctx context.Context, videoID string) (*models.Evaluation, error)
	// Delete removes a stored evaluation so the next Evaluate starts over.
	Delete(ctx context.Context, videoID string) error
}

type Config struct {
	ProcessTimeout time.Duration
	// ReuseCompleted serves a stored summary made by the same model instead of recomputing it.
	ReuseCompleted bool
}
