package youtube

import (
	"context"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/kkdai/youtube/v2"
	"github.com/nijaru/yt-summary/services/transcript"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

type Options struct {
	HTTPClient *http.Client
	// ShowProgress draws a download progress bar on stderr.
	ShowProgress bool
}

// Client serves captions and media for YouTube videos.
type Client struct {
	client       youtube.Client
	showProgress bool
	logger       *logrus.Logger
}

func NewClient(opts Options, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{
		client:       youtube.Client{HTTPClient: opts.HTTPClient},
		showProgress: opts.ShowProgress,
		logger:       logger,
	}
}

type streamHandle struct {
	video  *youtube.Video
	format *youtube.Format
}

// Fetch returns the transcript of the first caption track matching languages.
func (c *Client) Fetch(ctx context.Context, videoID string, languages []string) ([]transcript.Cue, error) {
	video, err := c.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return nil, errors.Wrapf(err, "get video %s", videoID)
	}

	track, ok := pickTrack(video.CaptionTracks, languages)
	if !ok {
		return nil, errors.Errorf("no caption track for languages %v", languages)
	}

	c.logger.WithFields(logrus.Fields{
		"video_id": videoID,
		"language": track.LanguageCode,
	}).Debug("Fetching captions")

	segments, err := c.client.GetTranscriptCtx(ctx, video, track.LanguageCode)
	if err != nil {
		return nil, errors.Wrapf(err, "get transcript %s", track.LanguageCode)
	}

	return segmentsToCues(segments), nil
}

// Streams lists the downloadable formats, audio-only first, higher bitrate first.
func (c *Client) Streams(ctx context.Context, url string) ([]transcript.Stream, error) {
	video, err := c.client.GetVideoContext(ctx, url)
	if err != nil {
		return nil, errors.Wrap(err, "get video")
	}
	return toStreams(video), nil
}

func (c *Client) Download(ctx context.Context, stream transcript.Stream, target string) error {
	handle, ok := stream.Handle.(streamHandle)
	if !ok {
		return errors.Errorf("stream %s was not listed by this client", stream.ID)
	}

	body, size, err := c.client.GetStreamContext(ctx, handle.video, handle.format)
	if err != nil {
		return errors.Wrap(err, "open stream")
	}
	defer body.Close()

	file, err := os.Create(target)
	if err != nil {
		return errors.Wrap(err, "create target")
	}
	defer file.Close()

	var dst io.Writer = file
	if c.showProgress {
		dst = io.MultiWriter(file, progressbar.DefaultBytes(size, "downloading"))
	}

	written, err := io.Copy(dst, body)
	if err != nil {
		return errors.Wrap(err, "copy stream")
	}

	c.logger.WithFields(logrus.Fields{
		"target": target,
		"bytes":  written,
	}).Info("Media downloaded")

	return file.Close()
}

func pickTrack(tracks []youtube.CaptionTrack, languages []string) (youtube.CaptionTrack, bool) {
	for _, lang := range languages {
		for _, track := range tracks {
			if strings.EqualFold(track.LanguageCode, lang) {
				return track, true
			}
		}
	}
	// "en" also accepts regional variants such as "en-GB".
	for _, lang := range languages {
		for _, track := range tracks {
			if strings.HasPrefix(strings.ToLower(track.LanguageCode), strings.ToLower(lang)+"-") {
				return track, true
			}
		}
	}
	return youtube.CaptionTrack{}, false
}

func segmentsToCues(segments youtube.VideoTranscript) []transcript.Cue {
	cues := make([]transcript.Cue, 0, len(segments))
	for _, seg := range segments {
		cues = append(cues, transcript.Cue{
			Start: float64(seg.StartMs) / 1000,
			Text:  strings.TrimSpace(seg.Text),
		})
	}
	return cues
}

func toStreams(video *youtube.Video) []transcript.Stream {
	streams := make([]transcript.Stream, 0, len(video.Formats))
	for i := range video.Formats {
		format := &video.Formats[i]
		streams = append(streams, transcript.Stream{
			ID:            strconv.Itoa(format.ItagNo),
			MimeType:      format.MimeType,
			Subtype:       transcript.SubtypeFromMime(format.MimeType),
			AudioOnly:     strings.HasPrefix(format.MimeType, "audio/"),
			Bitrate:       format.Bitrate,
			ContentLength: format.ContentLength,
			Handle:        streamHandle{video: video, format: format},
		})
	}

	sort.SliceStable(streams, func(i, j int) bool {
		if streams[i].AudioOnly != streams[j].AudioOnly {
			return streams[i].AudioOnly
		}
		return streams[i].Bitrate > streams[j].Bitrate
	})

	return streams
}
