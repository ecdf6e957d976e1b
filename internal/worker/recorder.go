package worker

import (
	"context"

	"github.com/neetpractice/neetpractice/internal/models"
)

// ResultRecorder persists a finished quiz attempt.
// This avoids import cycles by not importing the services package
type ResultRecorder interface {
	Record(ctx context.Context, chapterID int64, result models.QuizResult) (*models.QuizStat, error)
}
