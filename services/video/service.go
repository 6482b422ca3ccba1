package video

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/nijaru/yt-summary/errors"
	"github.com/nijaru/yt-summary/models"
	"github.com/nijaru/yt-summary/repository"
	"github.com/nijaru/yt-summary/services/summary"
	"github.com/nijaru/yt-summary/services/transcript"
	"github.com/nijaru/yt-summary/storage"
	"github.com/nijaru/yt-summary/validation"
	"github.com/sirupsen/logrus"
)

type service struct {
	repo       repository.EvaluationRepository
	pipeline   transcript.Acquirer
	summarizer summary.Client
	archive    storage.Archive
	config     Config
	logger     *logrus.Logger

	mu    sync.Mutex
	locks map[string]*videoLock
}

// videoLock serializes evaluations of one video. refs counts holders and
// waiters so the entry can be dropped once nobody needs it.
type videoLock struct {
	slot chan struct{}
	refs int
}

type Option func(*service)

// WithRepository enables persistence and reuse of evaluations.
func WithRepository(repo repository.EvaluationRepository) Option {
	return func(s *service) {
		s.repo = repo
	}
}

// WithArchive copies every new transcript to the archive.
func WithArchive(archive storage.Archive) Option {
	return func(s *service) {
		s.archive = archive
	}
}

func WithLogger(logger *logrus.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

func NewService(pipeline transcript.Acquirer, summarizer summary.Client, config Config, opts ...Option) Service {
	s := &service{
		pipeline:   pipeline,
		summarizer: summarizer,
		config:     config,
		logger:     logrus.StandardLogger(),
		locks:      make(map[string]*videoLock),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// lockVideo waits for exclusive use of videoID or until ctx is done.
func (s *service) lockVideo(ctx context.Context, videoID string) (func(), error) {
	s.mu.Lock()
	lock, ok := s.locks[videoID]
	if !ok {
		lock = &videoLock{slot: make(chan struct{}, 1)}
		s.locks[videoID] = lock
	}
	lock.refs++
	s.mu.Unlock()

	select {
	case lock.slot <- struct{}{}:
		return func() {
			<-lock.slot
			s.releaseVideo(videoID, lock)
		}, nil
	case <-ctx.Done():
		s.releaseVideo(videoID, lock)
		return nil, ctx.Err()
	}
}

func (s *service) releaseVideo(videoID string, lock *videoLock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(s.locks, videoID)
	}
}

func (s *service) Evaluate(ctx context.Context, url string) (*models.Evaluation, error) {
	const op = "VideoService.Evaluate"

	videoID, err := validation.ExtractVideoID(url)
	if err != nil {
		return nil, err
	}

	logger := s.logger.WithFields(logrus.Fields{
		"operation": op,
		"video_id":  videoID,
	})

	if s.config.ProcessTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ProcessTimeout)
		defer cancel()
	}

	unlock, err := s.lockVideo(ctx, videoID)
	if err != nil {
		logger.WithError(err).Warn("Gave up waiting for another evaluation of this video")
		return nil, errors.Internal(op, err, "timed out waiting for another evaluation of this video").WithVideo(videoID)
	}
	defer unlock()

	if cached := s.reusable(ctx, videoID, logger); cached != nil {
		logger.Info("Returning stored summary")
		return cached, nil
	}

	now := time.Now().UTC()
	evaluation := &models.Evaluation{
		VideoID:      videoID,
		URL:          url,
		Status:       models.StatusProcessing,
		SummaryModel: s.summarizer.Model(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.save(ctx, evaluation, logger)

	logger.Info("Starting evaluation")

	result, err := s.pipeline.Acquire(ctx, url)
	if err != nil {
		s.fail(evaluation, err, logger)
		return nil, err
	}
	evaluation.Transcript = result.Text
	evaluation.TranscriptSource = result.Source
	s.archiveTranscript(ctx, result, logger)

	text, err := s.summarizer.Summarize(ctx, result.Text)
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.SummarizationFailed(op, nil, "summary is empty")
	}
	if err != nil {
		appErr := errors.SummarizationFailed(op, err, "summarization failed").WithVideo(videoID)
		s.fail(evaluation, appErr, logger)
		return nil, appErr
	}

	evaluation.Summary = text
	evaluation.Status = models.StatusCompleted
	evaluation.Stage = ""
	evaluation.Error = ""
	evaluation.UpdatedAt = time.Now().UTC()
	s.save(ctx, evaluation, logger)

	logger.WithFields(logrus.Fields{
		"transcript_source": result.Source,
		"transcript_length": len(result.Text),
		"summary_length":    len(text),
	}).Info("Evaluation completed")

	return evaluation, nil
}

func (s *service) Transcript(ctx context.Context, url string) (*transcript.Result, error) {
	const op = "VideoService.Transcript"

	videoID, err := validation.ExtractVideoID(url)
	if err != nil {
		return nil, err
	}

	if stored := s.storedTranscript(ctx, videoID, url); stored != nil {
		return stored, nil
	}

	if s.config.ProcessTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ProcessTimeout)
		defer cancel()
	}

	result, err := s.pipeline.Acquire(ctx, url)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"operation": op,
			"video_id":  videoID,
			"stage":     errors.StageOf(err),
		}).WithError(err).Warn("Transcript acquisition failed")
		return nil, err
	}

	s.archiveTranscript(ctx, result, s.logger.WithField("video_id", videoID))
	return result, nil
}

func (s *service) Get(ctx context.Context, videoID string) (*models.Evaluation, error) {
	const op = "VideoService.Get"

	if videoID == "" {
		return nil, errors.InvalidInput(op, nil, "ID is required")
	}
	if s.repo == nil {
		return nil, errors.NotFound(op, nil, "Evaluation not found")
	}

	return s.repo.Find(ctx, videoID)
}

// Delete drops the stored evaluation so the next Evaluate recomputes it.
func (s *service) Delete(ctx context.Context, videoID string) error {
	const op = "VideoService.Delete"

	if videoID == "" {
		return errors.InvalidInput(op, nil, "ID is required")
	}
	if s.repo == nil {
		return errors.NotFound(op, nil, "Evaluation not found")
	}

	unlock, err := s.lockVideo(ctx, videoID)
	if err != nil {
		return errors.Internal(op, err, "timed out waiting for an evaluation of this video").WithVideo(videoID)
	}
	defer unlock()

	if err := s.repo.Delete(ctx, videoID); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"operation": op,
		"video_id":  videoID,
	}).Info("Evaluation deleted")
	return nil
}

// storedTranscript looks in the repository, then the archive.
func (s *service) storedTranscript(ctx context.Context, videoID, url string) *transcript.Result {
	if s.repo != nil {
		if existing, err := s.repo.Find(ctx, videoID); err == nil && existing.Transcript != "" {
			return &transcript.Result{
				VideoID: videoID,
				URL:     url,
				Text:    existing.Transcript,
				Source:  existing.TranscriptSource,
			}
		}
	}

	if s.archive != nil {
		record, err := s.archive.GetTranscript(ctx, videoID)
		if err != nil {
			s.logger.WithError(err).WithField("video_id", videoID).Debug("Transcript not in archive")
			return nil
		}
		if strings.TrimSpace(record.Text) != "" {
			return &transcript.Result{
				VideoID: videoID,
				URL:     url,
				Text:    record.Text,
				Source:  models.TranscriptSource(record.Source),
			}
		}
	}

	return nil
}

func (s *service) reusable(ctx context.Context, videoID string, logger *logrus.Entry) *models.Evaluation {
	if s.repo == nil {
		return nil
	}
	existing, err := s.repo.Find(ctx, videoID)
	if err != nil {
		return nil
	}

	switch {
	case existing.IsStale(s.config.ProcessTimeout):
		// a process died mid-evaluation; the row is overwritten below
		logger.WithField("updated_at", existing.UpdatedAt).Warn("Replacing abandoned evaluation")
	case existing.IsProcessing():
		logger.WithField("updated_at", existing.UpdatedAt).Warn("Evaluation is in progress elsewhere, recomputing")
	case existing.IsFailed():
		logger.WithField("stage", existing.Stage).Info("Retrying failed evaluation")
	case existing.IsCompleted() && s.config.ReuseCompleted:
		if existing.Summary != "" && existing.SummaryModel == s.summarizer.Model() {
			return existing
		}
	}
	return nil
}

func (s *service) fail(evaluation *models.Evaluation, err error, logger *logrus.Entry) {
	evaluation.Status = models.StatusFailed
	evaluation.Stage = string(errors.StageOf(err))
	evaluation.Error = err.Error()
	evaluation.UpdatedAt = time.Now().UTC()

	logger.WithFields(logrus.Fields{
		"stage": evaluation.Stage,
	}).WithError(err).Error("Evaluation failed")

	// the request context may already be done
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.save(ctx, evaluation, logger)
}

func (s *service) save(ctx context.Context, evaluation *models.Evaluation, logger *logrus.Entry) {
	if s.repo == nil {
		return
	}
	if err := s.repo.Save(ctx, evaluation); err != nil {
		logger.WithError(err).WithField("status", evaluation.Status).Error("Failed to save evaluation")
	}
}

func (s *service) archiveTranscript(ctx context.Context, result *transcript.Result, logger *logrus.Entry) {
	if s.archive == nil {
		return
	}
	err := s.archive.SaveTranscript(ctx, storage.TranscriptRecord{
		VideoID: result.VideoID,
		URL:     result.URL,
		Text:    result.Text,
		Source:  string(result.Source),
	})
	if err != nil {
		logger.WithError(err).Warn("Failed to archive transcript")
	}
}
