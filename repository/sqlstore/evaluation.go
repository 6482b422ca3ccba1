package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/nijaru/yt-summary/errors"
	"github.com/nijaru/yt-summary/models"
)

const (
	upsertEvaluationQuery = `
        INSERT INTO evaluations (
            video_id, url, status, transcript, transcript_source,
            summary, summary_model, stage, error, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(video_id) DO UPDATE SET
            url = excluded.url,
            status = excluded.status,
            transcript = excluded.transcript,
            transcript_source = excluded.transcript_source,
            summary = excluded.summary,
            summary_model = excluded.summary_model,
            stage = excluded.stage,
            error = excluded.error,
            updated_at = excluded.updated_at
    `

	getEvaluationQuery = `
        SELECT video_id, url, status, transcript, transcript_source,
               summary, summary_model, stage, error, created_at, updated_at
        FROM evaluations WHERE video_id = ?
    `

	deleteEvaluationQuery = `
        DELETE FROM evaluations WHERE video_id = ?
    `
)

type Repository struct {
	db *DB
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Save(ctx context.Context, evaluation *models.Evaluation) error {
	const op = "SQLRepository.Save"

	attempts := r.db.config.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		lastErr = r.save(ctx, evaluation)
		if lastErr == nil {
			return nil
		}
		if !isLockError(lastErr) {
			return errors.Internal(op, lastErr, "Failed to save evaluation")
		}

		select {
		case <-ctx.Done():
			return errors.Internal(op, ctx.Err(), "context cancelled")
		case <-time.After(r.db.config.RetryDelay * time.Duration(i+1)):
		}
	}
	return errors.Internal(op, lastErr, "Failed after retries")
}

func (r *Repository) save(ctx context.Context, e *models.Evaluation) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(upsertEvaluationQuery),
		e.VideoID,
		e.URL,
		string(e.Status),
		e.Transcript,
		string(e.TranscriptSource),
		e.Summary,
		e.SummaryModel,
		e.Stage,
		e.Error,
		e.CreatedAt.UTC(),
		e.UpdatedAt.UTC(),
	)
	return err
}

func (r *Repository) Find(ctx context.Context, videoID string) (*models.Evaluation, error) {
	const op = "SQLRepository.Find"

	e := &models.Evaluation{}
	var (
		status, source                            string
		transcript, summary, model, stage, errMsg sql.NullString
	)

	err := r.db.QueryRowContext(ctx, r.db.Rebind(getEvaluationQuery), videoID).Scan(
		&e.VideoID,
		&e.URL,
		&status,
		&transcript,
		&source,
		&summary,
		&model,
		&stage,
		&errMsg,
		&e.CreatedAt,
		&e.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, errors.NotFound(op, nil, "Evaluation not found")
	}
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to query evaluation")
	}

	e.Status = models.Status(status)
	e.TranscriptSource = models.TranscriptSource(source)
	e.Transcript = transcript.String
	e.Summary = summary.String
	e.SummaryModel = model.String
	e.Stage = stage.String
	e.Error = errMsg.String
	return e, nil
}

func (r *Repository) Delete(ctx context.Context, videoID string) error {
	const op = "SQLRepository.Delete"

	res, err := r.db.ExecContext(ctx, r.db.Rebind(deleteEvaluationQuery), videoID)
	if err != nil {
		return errors.Internal(op, err, "Failed to delete evaluation")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NotFound(op, nil, "Evaluation not found")
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}
