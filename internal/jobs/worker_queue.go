package jobs

import (
	"github.com/neetpractice/neetpractice/internal/worker"
)

// WorkerQueue implements Queue using a worker pool
type WorkerQueue struct {
	savePool *worker.Pool
	recorder worker.ResultRecorder
}

// NewWorkerQueue creates a new WorkerQueue implementation
func NewWorkerQueue(savePool *worker.Pool, recorder worker.ResultRecorder) Queue {
	return &WorkerQueue{
		savePool: savePool,
		recorder: recorder,
	}
}

// EnqueueResultSave never blocks; a full queue is reported as worker.ErrQueueFull.
func (q *WorkerQueue) EnqueueResultSave(save ResultSave) error {
	return q.savePool.TrySubmit(&worker.SaveResultJob{
		Recorder:  q.recorder,
		ChapterID: save.ChapterID,
		Result:    save.Result,
		Done:      save.Done,
	})
}
