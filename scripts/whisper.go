package scripts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nijaru/yt-summary/services/transcript"
	"github.com/sirupsen/logrus"
)

type WhisperConfig struct {
	// WhisperPath is the whisper.cpp checkout holding build/bin/whisper-cli and models/.
	WhisperPath string
	// Model is a file name under models/ or an absolute path.
	Model      string
	FFmpegPath string
}

// Whisper transcribes media with ffmpeg and whisper.cpp.
type Whisper struct {
	config WhisperConfig
	logger *logrus.Logger

	RunFunc func(ctx context.Context, name string, args ...string) ([]byte, error)
}

var supportedFormats = map[string]bool{"txt": true, "srt": true, "vtt": true}

func NewWhisper(cfg WhisperConfig, runner *Runner, logger *logrus.Logger) *Whisper {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Whisper{
		config:  cfg,
		logger:  logger,
		RunFunc: runner.Run,
	}
}

func (w *Whisper) binaryPath() string {
	return filepath.Join(w.config.WhisperPath, "build", "bin", "whisper-cli")
}

func (w *Whisper) modelPath() string {
	if filepath.IsAbs(w.config.Model) {
		return w.config.Model
	}
	return filepath.Join(w.config.WhisperPath, "models", w.config.Model)
}

// Validate checks that the engine binary and model are present.
func (w *Whisper) Validate() error {
	const op = "Whisper.Validate"

	for _, path := range []string{w.binaryPath(), w.modelPath()} {
		if _, err := os.Stat(path); err != nil {
			return newScriptError(op, err, fmt.Sprintf("required file not found: %s", path))
		}
	}
	return nil
}

// Transcribe converts mediaPath to 16 kHz PCM and runs whisper-cli on it.
// The returned path is the transcript file next to the converted audio.
func (w *Whisper) Transcribe(ctx context.Context, mediaPath string, opts transcript.TranscribeOptions) (string, error) {
	const op = "Whisper.Transcribe"

	format := opts.OutputFormat
	if format == "" {
		format = "srt"
	}
	if !supportedFormats[format] {
		return "", newScriptError(op, nil, fmt.Sprintf("unsupported output format: %s", format))
	}

	language := opts.Language
	if language == "" {
		language = "auto"
	}

	logger := w.logger.WithFields(logrus.Fields{
		"operation": op,
		"media":     mediaPath,
		"format":    format,
		"language":  language,
	})

	wavPath, err := w.convertToWAV(ctx, mediaPath, opts.PreserveSource)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := os.Remove(wavPath); err != nil && !os.IsNotExist(err) {
			logger.WithError(err).Warn("Failed to remove converted audio")
		}
	}()

	args := []string{wavPath, "-m", w.modelPath(), "-o" + format, "-l", language}
	if _, err := w.RunFunc(ctx, w.binaryPath(), args...); err != nil {
		return "", newScriptError(op, err, "whisper-cli failed")
	}

	outputPath := wavPath + "." + format
	if _, err := os.Stat(outputPath); err != nil {
		return "", newScriptError(op, err, "whisper-cli produced no output")
	}

	logger.WithField("output", outputPath).Info("Local transcription completed")
	return outputPath, nil
}

// convertToWAV writes a 16 kHz stereo PCM copy of mediaPath. Without
// preserveSource the original file is removed once the copy exists.
func (w *Whisper) convertToWAV(ctx context.Context, mediaPath string, preserveSource bool) (string, error) {
	const op = "Whisper.convertToWAV"

	base := strings.TrimSuffix(mediaPath, filepath.Ext(mediaPath))
	wavPath := base + ".wav"
	if wavPath == mediaPath {
		wavPath = base + ".16k.wav"
	}

	args := []string{"-y", "-i", mediaPath, "-acodec", "pcm_s16le", "-ac", "2", "-ar", "16000", wavPath}
	if _, err := w.RunFunc(ctx, w.config.FFmpegPath, args...); err != nil {
		os.Remove(wavPath)
		return "", newScriptError(op, err, "ffmpeg conversion failed")
	}

	if !preserveSource {
		if err := os.Remove(mediaPath); err != nil {
			w.logger.WithError(err).WithField("media", mediaPath).Warn("Failed to remove source media")
		}
	}

	return wavPath, nil
}
