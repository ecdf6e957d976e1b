package mocks

import (
	"context"

	"github.com/neetpractice/neetpractice/internal/models"
	"github.com/stretchr/testify/mock"
)

// MockResultRecorder is a mock implementation of worker.ResultRecorder
type MockResultRecorder struct {
	mock.Mock
}

func (m *MockResultRecorder) Record(ctx context.Context, chapterID int64, result models.QuizResult) (*models.QuizStat, error) {
	args := m.Called(ctx, chapterID, result)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QuizStat), args.Error(1)
}
