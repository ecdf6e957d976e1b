package jobs

import "github.com/neetpractice/neetpractice/internal/models"

// ResultSave is one completed attempt waiting to be persisted. Done is called
// once with the stored record or the failure.
type ResultSave struct {
	ChapterID int64
	Result    models.QuizResult
	Done      func(*models.QuizStat, error)
}

// Queue provides an abstraction for enqueueing background jobs
type Queue interface {
	EnqueueResultSave(save ResultSave) error
}
