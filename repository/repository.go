package repository

import (
	"context"

	"github.com/nijaru/yt-summary/models"
)

type EvaluationRepository interface {
	Save(ctx context.Context, evaluation *models.Evaluation) error
	Find(ctx context.Context, videoID string) (*models.Evaluation, error)
	Delete(ctx context.Context, videoID string) error
	Close() error
}
