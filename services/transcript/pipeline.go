package transcript

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/nijaru/yt-summary/errors"
	"github.com/nijaru/yt-summary/models"
	"github.com/nijaru/yt-summary/validation"
	"github.com/sirupsen/logrus"
)

type Config struct {
	// Languages is the caption preference list handed to the CaptionsSource.
	Languages []string
	// ScratchDir is the parent of the per-call working directories.
	ScratchDir string
	// Language and OutputFormat are passed through to the local engine.
	Language     string
	OutputFormat string
	// MaxConcurrent bounds how many local transcriptions run at once.
	MaxConcurrent int
}

type Pipeline struct {
	captions    CaptionsSource
	media       MediaAcquirer
	transcriber LocalTranscriber
	config      Config
	logger      *logrus.Logger
	engineSlots chan struct{}

	ReadFileFunc   func(name string) ([]byte, error)
	RemoveFileFunc func(name string) error
}

func NewPipeline(
	captions CaptionsSource,
	media MediaAcquirer,
	transcriber LocalTranscriber,
	cfg Config,
	logger *logrus.Logger,
) *Pipeline {
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{"en", "en-US"}
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = "srt"
	}
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Pipeline{
		captions:       captions,
		media:          media,
		transcriber:    transcriber,
		config:         cfg,
		logger:         logger,
		engineSlots:    make(chan struct{}, cfg.MaxConcurrent),
		ReadFileFunc:   os.ReadFile,
		RemoveFileFunc: os.Remove,
	}
}

// Acquire returns the transcript for url, falling back to download and local
// transcription in a fresh scratch directory when captions are unusable.
func (p *Pipeline) Acquire(ctx context.Context, url string) (*Result, error) {
	return p.acquire(ctx, url, "")
}

// AcquireIn is Acquire with a caller-owned working directory. The directory is
// not removed; files the pipeline creates in it are.
func (p *Pipeline) AcquireIn(ctx context.Context, url, workDir string) (*Result, error) {
	const op = "Pipeline.AcquireIn"
	if workDir == "" {
		return nil, errors.Internal(op, nil, "working directory is required")
	}
	return p.acquire(ctx, url, workDir)
}

func (p *Pipeline) acquire(ctx context.Context, url, workDir string) (*Result, error) {
	const op = "Pipeline.Acquire"

	videoID, err := validation.ExtractVideoID(url)
	if err != nil {
		return nil, err
	}

	logger := p.logger.WithFields(logrus.Fields{
		"operation": op,
		"video_id":  videoID,
	})

	text, err := p.fromCaptions(ctx, videoID)
	if err == nil {
		logger.WithField("length", len(text)).Info("Transcript taken from captions")
		return &Result{VideoID: videoID, URL: url, Text: text, Source: models.SourceCaptions}, nil
	}
	logger.WithError(err).Warn("Captions unavailable, falling back to local transcription")

	if workDir == "" {
		dir, err := os.MkdirTemp(p.config.ScratchDir, "yt-summary-"+videoID+"-")
		if err != nil {
			return nil, errors.Internal(op, err, "failed to create scratch directory").WithVideo(videoID)
		}
		defer func() {
			if err := os.RemoveAll(dir); err != nil {
				logger.WithError(err).WithField("dir", dir).Warn("Failed to remove scratch directory")
			}
		}()
		workDir = dir
	}

	text, err = p.fromLocal(ctx, url, videoID, workDir, logger)
	if err != nil {
		return nil, err
	}

	logger.WithField("length", len(text)).Info("Transcript produced locally")
	return &Result{VideoID: videoID, URL: url, Text: text, Source: models.SourceLocal}, nil
}

// fromCaptions returns the normalized captions text or a CaptionsUnavailable error.
func (p *Pipeline) fromCaptions(ctx context.Context, videoID string) (string, error) {
	const op = "Pipeline.fromCaptions"

	if p.captions == nil {
		return "", errors.CaptionsUnavailable(op, nil, "no captions source configured")
	}

	cues, err := p.captions.Fetch(ctx, videoID, p.config.Languages)
	if err != nil {
		return "", errors.CaptionsUnavailable(op, err, "captions fetch failed").WithVideo(videoID)
	}
	if !hasText(cues) {
		return "", errors.CaptionsUnavailable(op, nil, "captions are empty").WithVideo(videoID)
	}

	return Normalize(cues), nil
}

func (p *Pipeline) fromLocal(
	ctx context.Context,
	url, videoID, workDir string,
	logger *logrus.Entry,
) (string, error) {
	const op = "Pipeline.fromLocal"

	if p.media == nil || p.transcriber == nil {
		return "", errors.Internal(op, nil, "local transcription is not configured").WithVideo(videoID)
	}

	streams, err := p.media.Streams(ctx, url)
	if err != nil {
		return "", errors.DownloadFailed(op, err, "failed to list streams").WithVideo(videoID)
	}

	stream, ok := SelectStream(streams)
	if !ok {
		return "", errors.NoDownloadableStream(op, nil, "no downloadable stream").WithVideo(videoID)
	}

	ext := stream.Subtype
	if ext == "" {
		ext = "bin"
	}
	mediaPath := filepath.Join(workDir, videoID+"."+ext)

	logger.WithFields(logrus.Fields{
		"stream":     stream.ID,
		"mime_type":  stream.MimeType,
		"audio_only": stream.AudioOnly,
		"target":     mediaPath,
	}).Info("Downloading media")

	if err := p.media.Download(ctx, stream, mediaPath); err != nil {
		p.removeFile(mediaPath, logger)
		return "", errors.DownloadFailed(op, err, "failed to download media").WithVideo(videoID)
	}
	defer p.removeFile(mediaPath, logger)

	transcriptPath, err := p.transcribe(ctx, mediaPath)
	if err != nil {
		return "", errors.TranscriptionFailed(op, err, "local transcription failed").WithVideo(videoID)
	}
	defer p.removeFile(transcriptPath, logger)

	text, err := p.readTranscript(transcriptPath)
	if err != nil {
		return "", errors.TranscriptionFailed(op, err, "failed to read transcript").WithVideo(videoID)
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.TranscriptionFailed(op, nil, "transcript is empty").WithVideo(videoID)
	}

	return text, nil
}

func (p *Pipeline) transcribe(ctx context.Context, mediaPath string) (string, error) {
	select {
	case p.engineSlots <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-p.engineSlots }()

	return p.transcriber.Transcribe(ctx, mediaPath, TranscribeOptions{
		Language:       p.config.Language,
		OutputFormat:   p.config.OutputFormat,
		PreserveSource: true,
	})
}

// readTranscript normalizes srt/vtt engine output like captions and returns txt as is.
func (p *Pipeline) readTranscript(path string) (string, error) {
	data, err := p.ReadFileFunc(path)
	if err != nil {
		return "", err
	}

	format := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch format {
	case "srt", "vtt":
		cues, err := ParseCues(strings.NewReader(string(data)), format)
		if err != nil {
			return "", err
		}
		return Normalize(cues), nil
	default:
		return strings.TrimSpace(string(data)), nil
	}
}

func (p *Pipeline) removeFile(path string, logger *logrus.Entry) {
	if err := p.RemoveFileFunc(path); err != nil && !os.IsNotExist(err) {
		logger.WithError(err).WithField("path", path).Warn("Failed to remove file")
	}
}
