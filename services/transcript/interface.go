package transcript

import (
	"context"

	"github.com/nijaru/yt-summary/models"
)

// Cue is one caption line with its start offset in seconds.
type Cue struct {
	Start float64
	Text  string
}

// Stream describes one downloadable asset of a video.
type Stream struct {
	ID            string
	MimeType      string
	Subtype       string
	AudioOnly     bool
	Bitrate       int
	ContentLength int64
	// Handle is opaque to the pipeline and only read by the MediaAcquirer that produced it.
	Handle any
}

type TranscribeOptions struct {
	Language     string
	OutputFormat string
	// PreserveSource keeps the input media untouched; the engine works on a converted copy.
	PreserveSource bool
}

// Result is a transcript ready for summarization.
type Result struct {
	VideoID string
	URL     string
	Text    string
	Source  models.TranscriptSource
}

type CaptionsSource interface {
	Fetch(ctx context.Context, videoID string, languages []string) ([]Cue, error)
}

type MediaAcquirer interface {
	Streams(ctx context.Context, url string) ([]Stream, error)
	Download(ctx context.Context, stream Stream, target string) error
}

// LocalTranscriber runs offline speech-to-text and returns the path of the transcript file.
type LocalTranscriber interface {
	Transcribe(ctx context.Context, mediaPath string, opts TranscribeOptions) (string, error)
}

// Acquirer is what callers of the pipeline depend on.
type Acquirer interface {
	Acquire(ctx context.Context, url string) (*Result, error)
}
