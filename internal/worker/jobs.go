package worker

import (
	"context"

	"github.com/neetpractice/neetpractice/internal/logger"
	"github.com/neetpractice/neetpractice/internal/models"
)

// SaveResultJob records one completed quiz attempt and reports the outcome
// through Done.
type SaveResultJob struct {
	Recorder  ResultRecorder
	ChapterID int64
	Result    models.QuizResult
	Done      func(*models.QuizStat, error)
}

func (j *SaveResultJob) Name() string { return "save_quiz_result" }

func (j *SaveResultJob) Run(ctx context.Context) error {
	log := logger.FromContext(ctx).WithFields(map[string]any{
		"chapter_id": j.ChapterID,
		"score":      j.Result.Score,
	})
	log.Debug("recording quiz result")

	stat, err := j.Recorder.Record(ctx, j.ChapterID, j.Result)
	if err != nil {
		log.Warn("failed to record quiz result: %v", err)
	}
	if j.Done != nil {
		j.Done(stat, err)
	}
	return err
}
