package mocks

import (
	"github.com/neetpractice/neetpractice/internal/jobs"
	"github.com/stretchr/testify/mock"
)

// MockJobQueue is a mock implementation of jobs.Queue
type MockJobQueue struct {
	mock.Mock
}

func (m *MockJobQueue) EnqueueResultSave(save jobs.ResultSave) error {
	args := m.Called(save)
	return args.Error(0)
}
