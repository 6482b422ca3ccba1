package transcript

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nijaru/yt-summary/errors"
	"github.com/nijaru/yt-summary/logger"
	"github.com/nijaru/yt-summary/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

type fakeCaptions struct {
	cues  []Cue
	err   error
	calls int32

	mu    sync.Mutex
	langs []string
}

func (f *fakeCaptions) Fetch(ctx context.Context, videoID string, languages []string) ([]Cue, error) {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	f.langs = languages
	f.mu.Unlock()
	return f.cues, f.err
}

type fakeMedia struct {
	streams     []Stream
	streamsErr  error
	downloadErr error

	mu          sync.Mutex
	downloaded  []string
	streamCalls int32
}

func (f *fakeMedia) Streams(ctx context.Context, url string) ([]Stream, error) {
	atomic.AddInt32(&f.streamCalls, 1)
	return f.streams, f.streamsErr
}

func (f *fakeMedia) Download(ctx context.Context, stream Stream, target string) error {
	f.mu.Lock()
	f.downloaded = append(f.downloaded, target)
	f.mu.Unlock()
	if f.downloadErr != nil {
		return f.downloadErr
	}
	return os.WriteFile(target, []byte("media:"+stream.ID), 0644)
}

type fakeTranscriber struct {
	output string
	err    error
	delay  time.Duration

	mu          sync.Mutex
	calls       []string
	opts        []TranscribeOptions
	mediaExists []bool

	active    int32
	maxActive int32
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, mediaPath string, opts TranscribeOptions) (string, error) {
	n := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	for {
		m := atomic.LoadInt32(&f.maxActive)
		if n <= m || atomic.CompareAndSwapInt32(&f.maxActive, m, n) {
			break
		}
	}

	_, statErr := os.Stat(mediaPath)
	f.mu.Lock()
	f.calls = append(f.calls, mediaPath)
	f.opts = append(f.opts, opts)
	f.mediaExists = append(f.mediaExists, statErr == nil)
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return "", f.err
	}

	out := strings.TrimSuffix(mediaPath, filepath.Ext(mediaPath)) + "." + opts.OutputFormat
	if err := os.WriteFile(out, []byte(f.output), 0644); err != nil {
		return "", err
	}
	return out, nil
}

func newTestPipeline(c CaptionsSource, m MediaAcquirer, tr LocalTranscriber, cfg Config) *Pipeline {
	return NewPipeline(c, m, tr, cfg, logger.Discard())
}

func audioAndVideoStreams() []Stream {
	return []Stream{
		{ID: "18", MimeType: `video/mp4; codecs="avc1.42001E, mp4a.40.2"`, Subtype: "mp4"},
		{ID: "251", MimeType: `audio/webm; codecs="opus"`, Subtype: "webm", AudioOnly: true},
		{ID: "140", MimeType: `audio/mp4; codecs="mp4a.40.2"`, Subtype: "mp4", AudioOnly: true},
	}
}

const srtOutput = `1
00:00:01,500 --> 00:00:04,000
Hello there

2
00:01:05,000 --> 00:01:07,000
General Kenobi
`

func TestAcquireFromCaptions(t *testing.T) {
	captions := &fakeCaptions{cues: []Cue{{Start: 0, Text: "hello"}, {Start: 65, Text: "world"}}}
	media := &fakeMedia{}
	p := newTestPipeline(captions, media, &fakeTranscriber{}, Config{})

	res, err := p.Acquire(context.Background(), testURL)
	require.NoError(t, err)

	assert.Equal(t, "[00:00:00] hello\n[00:01:05] world", res.Text)
	assert.Equal(t, models.SourceCaptions, res.Source)
	assert.Equal(t, "dQw4w9WgXcQ", res.VideoID)
	assert.Equal(t, []string{"en", "en-US"}, captions.langs)
	assert.Zero(t, atomic.LoadInt32(&media.streamCalls), "captions path must not touch media")
}

func TestAcquireShortLinkScenario(t *testing.T) {
	captions := &fakeCaptions{cues: []Cue{{Start: 12.3, Text: "intro"}}}
	p := newTestPipeline(captions, &fakeMedia{}, &fakeTranscriber{}, Config{Languages: []string{"de"}})

	res, err := p.Acquire(context.Background(), "https://youtu.be/ABCDEFGHIJK")
	require.NoError(t, err)
	assert.Equal(t, "[00:00:12] intro", res.Text)
	assert.Equal(t, "ABCDEFGHIJK", res.VideoID)
	assert.Equal(t, []string{"de"}, captions.langs)
}

func TestAcquireIsRepeatable(t *testing.T) {
	captions := &fakeCaptions{cues: []Cue{{Start: 1, Text: "same"}}}
	p := newTestPipeline(captions, &fakeMedia{}, &fakeTranscriber{}, Config{})

	first, err := p.Acquire(context.Background(), testURL)
	require.NoError(t, err)
	second, err := p.Acquire(context.Background(), testURL)
	require.NoError(t, err)
	assert.Equal(t, first.Text, second.Text)
}

func TestAcquireFallsBack(t *testing.T) {
	tests := []struct {
		name     string
		captions *fakeCaptions
	}{
		{"captions error", &fakeCaptions{err: fmt.Errorf("transcripts disabled")}},
		{"empty captions", &fakeCaptions{cues: []Cue{}}},
		{"whitespace captions", &fakeCaptions{cues: []Cue{{Start: 1, Text: "  "}, {Start: 2, Text: "\n"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			media := &fakeMedia{streams: audioAndVideoStreams()}
			transcriber := &fakeTranscriber{output: srtOutput}
			p := newTestPipeline(tt.captions, media, transcriber, Config{ScratchDir: t.TempDir()})

			res, err := p.Acquire(context.Background(), testURL)
			require.NoError(t, err)

			assert.Equal(t, int32(1), atomic.LoadInt32(&tt.captions.calls))
			assert.Equal(t, models.SourceLocal, res.Source)
			assert.Equal(t, "[00:00:01] Hello there\n[00:01:05] General Kenobi", res.Text)
			require.Len(t, media.downloaded, 1)
			require.Len(t, transcriber.calls, 1)
		})
	}
}

func TestAcquireInDownloadsSelectedStream(t *testing.T) {
	workDir := t.TempDir()
	media := &fakeMedia{streams: audioAndVideoStreams()}
	transcriber := &fakeTranscriber{output: srtOutput}
	p := newTestPipeline(&fakeCaptions{}, media, transcriber, Config{Language: "auto"})

	_, err := p.AcquireIn(context.Background(), testURL, workDir)
	require.NoError(t, err)

	expected := filepath.Join(workDir, "dQw4w9WgXcQ.webm")
	assert.Equal(t, []string{expected}, media.downloaded, "first audio-only stream wins")
	assert.Equal(t, []string{expected}, transcriber.calls)
	assert.Equal(t, []bool{true}, transcriber.mediaExists)
	assert.Equal(t, TranscribeOptions{Language: "auto", OutputFormat: "srt", PreserveSource: true}, transcriber.opts[0])

	entries, err := os.ReadDir(workDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "media and transcript files must be removed")
}

func TestAcquireUsesFirstStreamWithoutAudioOnly(t *testing.T) {
	workDir := t.TempDir()
	media := &fakeMedia{streams: []Stream{
		{ID: "22", Subtype: "mp4"},
		{ID: "43", Subtype: "webm"},
	}}
	p := newTestPipeline(&fakeCaptions{}, media, &fakeTranscriber{output: srtOutput}, Config{})

	_, err := p.AcquireIn(context.Background(), testURL, workDir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(workDir, "dQw4w9WgXcQ.mp4")}, media.downloaded)
}

func TestAcquireTextOutputIsVerbatim(t *testing.T) {
	transcriber := &fakeTranscriber{output: " plain words without timestamps\n"}
	p := newTestPipeline(&fakeCaptions{}, &fakeMedia{streams: audioAndVideoStreams()}, transcriber, Config{OutputFormat: "txt"})

	res, err := p.AcquireIn(context.Background(), testURL, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "plain words without timestamps", res.Text)
}

func TestAcquireRemovesScratchDirectory(t *testing.T) {
	scratch := t.TempDir()
	p := newTestPipeline(&fakeCaptions{}, &fakeMedia{streams: audioAndVideoStreams()}, &fakeTranscriber{output: srtOutput}, Config{ScratchDir: scratch})

	for i := 0; i < 2; i++ {
		_, err := p.Acquire(context.Background(), testURL)
		require.NoError(t, err)
	}

	entries, err := os.ReadDir(scratch)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAcquireErrors(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		media       *fakeMedia
		transcriber *fakeTranscriber
		stage       errors.Stage
		transcribed bool
	}{
		{
			name:        "invalid url",
			url:         "https://example.com/nothing",
			media:       &fakeMedia{},
			transcriber: &fakeTranscriber{},
			stage:       errors.StageInvalidURL,
		},
		{
			name:        "no streams",
			url:         testURL,
			media:       &fakeMedia{},
			transcriber: &fakeTranscriber{},
			stage:       errors.StageNoDownloadableStream,
		},
		{
			name:        "stream listing fails",
			url:         testURL,
			media:       &fakeMedia{streamsErr: fmt.Errorf("video unavailable")},
			transcriber: &fakeTranscriber{},
			stage:       errors.StageDownloadFailed,
		},
		{
			name:        "download fails",
			url:         testURL,
			media:       &fakeMedia{streams: audioAndVideoStreams(), downloadErr: fmt.Errorf("403")},
			transcriber: &fakeTranscriber{},
			stage:       errors.StageDownloadFailed,
		},
		{
			name:        "engine fails",
			url:         testURL,
			media:       &fakeMedia{streams: audioAndVideoStreams()},
			transcriber: &fakeTranscriber{err: fmt.Errorf("exit status 1")},
			stage:       errors.StageTranscriptionFailed,
			transcribed: true,
		},
		{
			name:        "engine output empty",
			url:         testURL,
			media:       &fakeMedia{streams: audioAndVideoStreams()},
			transcriber: &fakeTranscriber{output: ""},
			stage:       errors.StageTranscriptionFailed,
			transcribed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			workDir := t.TempDir()
			captions := &fakeCaptions{}
			p := newTestPipeline(captions, tt.media, tt.transcriber, Config{})

			_, err := p.AcquireIn(context.Background(), tt.url, workDir)
			require.Error(t, err)
			assert.Equal(t, tt.stage, errors.StageOf(err))
			assert.Equal(t, tt.transcribed, len(tt.transcriber.calls) > 0)

			if tt.stage != errors.StageInvalidURL {
				var appErr *errors.AppError
				require.True(t, errors.As(err, &appErr))
				assert.Equal(t, "dQw4w9WgXcQ", appErr.VideoID)
			} else {
				assert.Zero(t, atomic.LoadInt32(&captions.calls))
			}

			entries, err := os.ReadDir(workDir)
			require.NoError(t, err)
			assert.Empty(t, entries, "no media may be left behind")
		})
	}
}

func TestRemovalFailureIsNotFatal(t *testing.T) {
	p := newTestPipeline(&fakeCaptions{}, &fakeMedia{streams: audioAndVideoStreams()}, &fakeTranscriber{output: srtOutput}, Config{})
	p.RemoveFileFunc = func(string) error { return fmt.Errorf("permission denied") }

	res, err := p.AcquireIn(context.Background(), testURL, t.TempDir())
	require.NoError(t, err)
	assert.NotEmpty(t, res.Text)
}

func TestTranscriptionIsSerialized(t *testing.T) {
	transcriber := &fakeTranscriber{output: srtOutput, delay: 20 * time.Millisecond}
	p := newTestPipeline(&fakeCaptions{}, &fakeMedia{streams: audioAndVideoStreams()}, transcriber, Config{ScratchDir: t.TempDir(), MaxConcurrent: 1})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Acquire(context.Background(), testURL)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&transcriber.maxActive))
	assert.Len(t, transcriber.calls, 4)
}

func TestTranscribeRespectsCancellation(t *testing.T) {
	transcriber := &fakeTranscriber{output: srtOutput}
	p := newTestPipeline(&fakeCaptions{}, &fakeMedia{streams: audioAndVideoStreams()}, transcriber, Config{})
	p.engineSlots <- struct{}{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.AcquireIn(ctx, testURL, t.TempDir())
	require.Error(t, err)
	assert.Equal(t, errors.StageTranscriptionFailed, errors.StageOf(err))
	assert.Empty(t, transcriber.calls)
}
