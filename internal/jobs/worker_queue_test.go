package jobs_test

import (
	"context"
	"testing"

	"github.com/neetpractice/neetpractice/internal/jobs"
	"github.com/neetpractice/neetpractice/internal/models"
	"github.com/neetpractice/neetpractice/internal/testutil/mocks"
	"github.com/neetpractice/neetpractice/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestWorkerQueue_EnqueueResultSave(t *testing.T) {
	recorder := new(mocks.MockResultRecorder)
	result := models.QuizResult{TotalQuestions: 3, CorrectCount: 2, Score: 7}
	recorder.On("Record", mock.Anything, int64(9), result).
		Return(&models.QuizStat{ID: 1, ChapterID: 9, Score: 7}, nil).Once()

	pool := worker.NewPool(1, 4)
	pool.Start(context.Background())
	queue := jobs.NewWorkerQueue(pool, recorder)

	done := make(chan *models.QuizStat, 1)
	require.NoError(t, queue.EnqueueResultSave(jobs.ResultSave{
		ChapterID: 9,
		Result:    result,
		Done: func(stat *models.QuizStat, err error) {
			assert.NoError(t, err)
			done <- stat
		},
	}))
	pool.Stop()

	stat := <-done
	assert.Equal(t, 7, stat.Score)
	recorder.AssertExpectations(t)
}

func TestWorkerQueue_StoppedPool(t *testing.T) {
	pool := worker.NewPool(1, 1)
	pool.Start(context.Background())
	pool.Stop()

	queue := jobs.NewWorkerQueue(pool, new(mocks.MockResultRecorder))
	err := queue.EnqueueResultSave(jobs.ResultSave{ChapterID: 1})
	assert.ErrorIs(t, err, worker.ErrPoolStopped)
}
