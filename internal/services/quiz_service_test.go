package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/neetpractice/neetpractice/internal/errors"
	"github.com/neetpractice/neetpractice/internal/gateway"
	"github.com/neetpractice/neetpractice/internal/jobs"
	"github.com/neetpractice/neetpractice/internal/models"
	"github.com/neetpractice/neetpractice/internal/quiz"
	"github.com/neetpractice/neetpractice/internal/services"
	"github.com/neetpractice/neetpractice/internal/testutil"
	"github.com/neetpractice/neetpractice/internal/testutil/mocks"
	"github.com/neetpractice/neetpractice/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const autoAdvance = 500 * time.Millisecond

type QuizServiceSuite struct {
	suite.Suite
	ctx     context.Context
	gw      *gateway.Gateway
	clock   *testutil.FakeClock
	queue   *mocks.MockJobQueue
	quiz    services.QuizService
	chapter *models.Chapter
}

func (s *QuizServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.gw = testutil.NewTestGateway(s.T())
	s.clock = testutil.NewFakeClock(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	s.queue = new(mocks.MockJobQueue)
	s.quiz = services.NewQuizService(s.gw, s.queue, services.QuizConfig{
		Duration:    30 * time.Minute,
		AutoAdvance: autoAdvance,
		Clock:       s.clock,
	})

	subject := seedSubject(s.T(), s.gw, "Physics")
	s.chapter = seedChapter(s.T(), s.gw, subject.ID, 0, "Kinematics")
	seedQuestions(s.T(), s.gw, s.chapter.ID, 3)
}

func (s *QuizServiceSuite) TearDownTest() {
	s.quiz.Close()
}

func (s *QuizServiceSuite) answerAll(id string, letters ...string) *services.SessionView {
	var view *services.SessionView
	for _, letter := range letters {
		var err error
		view, err = s.quiz.Apply(s.ctx, id, services.ActionAnswer, services.ActionInput{Answer: letter})
		s.Require().NoError(err)
		s.clock.Advance(autoAdvance)
	}
	view, err := s.quiz.GetSession(s.ctx, view.ID)
	s.Require().NoError(err)
	return view
}

func (s *QuizServiceSuite) expectSave(statID int64) {
	s.queue.On("EnqueueResultSave", mock.AnythingOfType("jobs.ResultSave")).
		Run(func(args mock.Arguments) {
			save := args.Get(0).(jobs.ResultSave)
			save.Done(&models.QuizStat{ID: statID, ChapterID: save.ChapterID}, nil)
		}).
		Return(nil).Once()
}

func (s *QuizServiceSuite) TestCreateSessionLoadsChapter() {
	view, err := s.quiz.CreateSession(s.ctx, s.chapter.ID, false)
	s.Require().NoError(err)
	s.NotEmpty(view.ID)
	s.Equal(quiz.NotStarted, view.Status)
	s.Equal(3, view.Total)
	s.Equal("Kinematics", view.ChapterTitle)
	s.Equal("Physics", view.SubjectTitle)
	s.Equal(1800, view.RemainingSeconds)
	s.Empty(view.Question.CorrectAnswer, "answer key hidden while playing")
	s.Equal(services.SaveNone, view.Save.State)
}

func (s *QuizServiceSuite) TestCreateSessionForEmptyChapter() {
	empty := seedChapter(s.T(), s.gw, s.chapter.SubjectID, 0, "Empty")
	_, err := s.quiz.CreateSession(s.ctx, empty.ID, true)
	appErr, ok := errors.As(err)
	s.Require().True(ok)
	s.Equal(errors.ErrCodeValidation, appErr.Code)
}

func (s *QuizServiceSuite) TestCompletionSavesResult() {
	s.expectSave(11)
	view, err := s.quiz.CreateSession(s.ctx, s.chapter.ID, true)
	s.Require().NoError(err)

	view = s.answerAll(view.ID, "A", "A", "B")
	s.Equal(quiz.Completed, view.Status)
	s.Equal(quiz.EndAllAnswered, view.EndReason)
	s.Require().NotNil(view.Result)
	s.Equal(2, view.Result.CorrectCount)
	s.Equal(1, view.Result.IncorrectCount)
	s.Equal(services.SaveSaved, view.Save.State)
	s.Equal(int64(11), view.Save.StatID)
	s.Equal("A", view.Question.CorrectAnswer)
	s.queue.AssertExpectations(s.T())
}

func (s *QuizServiceSuite) TestRejectedSaveKeepsResultInMemory() {
	s.queue.On("EnqueueResultSave", mock.Anything).Return(worker.ErrQueueFull).Once()
	view, err := s.quiz.CreateSession(s.ctx, s.chapter.ID, true)
	s.Require().NoError(err)

	view, err = s.quiz.Apply(s.ctx, view.ID, services.ActionExit, services.ActionInput{})
	s.Require().NoError(err)
	s.Equal(services.SaveFailed, view.Save.State)
	s.NotEmpty(view.Save.Message)

	res, err := s.quiz.Result(s.ctx, view.ID)
	s.Require().NoError(err)
	s.Equal(3, res.UnansweredCount)
}

func (s *QuizServiceSuite) TestFailedSaveReported() {
	s.queue.On("EnqueueResultSave", mock.Anything).
		Run(func(args mock.Arguments) {
			args.Get(0).(jobs.ResultSave).Done(nil, errors.NewUnavailableError(nil))
		}).
		Return(nil).Once()
	view, err := s.quiz.CreateSession(s.ctx, s.chapter.ID, true)
	s.Require().NoError(err)

	s.clock.Advance(30 * time.Minute)
	view, err = s.quiz.GetSession(s.ctx, view.ID)
	s.Require().NoError(err)
	s.Equal(quiz.EndTimeUp, view.EndReason)
	s.Equal(services.SaveFailed, view.Save.State)
}

func (s *QuizServiceSuite) TestResultBeforeCompletion() {
	view, err := s.quiz.CreateSession(s.ctx, s.chapter.ID, true)
	s.Require().NoError(err)

	_, err = s.quiz.Result(s.ctx, view.ID)
	appErr, ok := errors.As(err)
	s.Require().True(ok)
	s.Equal(errors.ErrCodeInvalidState, appErr.Code)
}

func (s *QuizServiceSuite) TestApplyMapsEngineErrors() {
	view, err := s.quiz.CreateSession(s.ctx, s.chapter.ID, false)
	s.Require().NoError(err)

	tests := []struct {
		name   string
		action services.Action
		in     services.ActionInput
		code   string
	}{
		{name: "answer before start", action: services.ActionAnswer, in: services.ActionInput{Answer: "A"}, code: errors.ErrCodeInvalidState},
		{name: "unknown action", action: "jump", code: errors.ErrCodeBadRequest},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.quiz.Apply(s.ctx, view.ID, tt.action, tt.in)
			appErr, ok := errors.As(err)
			s.Require().True(ok)
			s.Equal(tt.code, appErr.Code)
		})
	}

	_, err = s.quiz.Apply(s.ctx, view.ID, services.ActionStart, services.ActionInput{})
	s.Require().NoError(err)
	_, err = s.quiz.Apply(s.ctx, view.ID, services.ActionAnswer, services.ActionInput{Answer: "E"})
	appErr, ok := errors.As(err)
	s.Require().True(ok)
	s.Equal(errors.ErrCodeValidation, appErr.Code)
	_, err = s.quiz.Apply(s.ctx, view.ID, services.ActionGoTo, services.ActionInput{Index: 3})
	appErr, ok = errors.As(err)
	s.Require().True(ok)
	s.Equal(errors.ErrCodeValidation, appErr.Code)
}

func (s *QuizServiceSuite) TestRetryWrongWithNoWrongAnswers() {
	s.expectSave(1)
	view, err := s.quiz.CreateSession(s.ctx, s.chapter.ID, true)
	s.Require().NoError(err)
	s.answerAll(view.ID, "A", "A", "A")

	outcome, err := s.quiz.RetryWrong(s.ctx, view.ID)
	s.Require().NoError(err)
	s.True(outcome.NoWrongAnswers)
	s.Nil(outcome.Session)
	s.Len(s.quiz.ListSessions(s.ctx), 1)
}

func (s *QuizServiceSuite) TestRetryWrongStartsNewSession() {
	s.expectSave(1)
	view, err := s.quiz.CreateSession(s.ctx, s.chapter.ID, true)
	s.Require().NoError(err)
	s.answerAll(view.ID, "B", "A", "D")

	outcome, err := s.quiz.RetryWrong(s.ctx, view.ID)
	s.Require().NoError(err)
	s.False(outcome.NoWrongAnswers)
	s.Require().NotNil(outcome.Session)
	s.NotEqual(view.ID, outcome.Session.ID)
	s.Equal(2, outcome.Session.Total)
	s.Equal(quiz.Running, outcome.Session.Status)
	s.Len(s.quiz.ListSessions(s.ctx), 2)
}

func (s *QuizServiceSuite) TestDiscardRemovesSession() {
	view, err := s.quiz.CreateSession(s.ctx, s.chapter.ID, true)
	s.Require().NoError(err)
	s.Require().NoError(s.quiz.Discard(s.ctx, view.ID))

	s.clock.Advance(time.Hour)
	_, err = s.quiz.GetSession(s.ctx, view.ID)
	appErr, ok := errors.As(err)
	s.Require().True(ok)
	s.Equal(errors.ErrCodeNotFound, appErr.Code)
	s.queue.AssertNotCalled(s.T(), "EnqueueResultSave", mock.Anything)
}

func (s *QuizServiceSuite) TestExpiredSessionsAreEvicted() {
	s.queue.On("EnqueueResultSave", mock.Anything).Return(nil)
	svc := services.NewQuizService(s.gw, s.queue, services.QuizConfig{
		Duration:      30 * time.Minute,
		AutoAdvance:   autoAdvance,
		CompletedTTL:  10 * time.Minute,
		IdleTTL:       time.Hour,
		SweepInterval: time.Minute,
		Clock:         s.clock,
	})

	create := func(start bool) string {
		view, err := svc.CreateSession(s.ctx, s.chapter.ID, start)
		s.Require().NoError(err)
		return view.ID
	}
	present := func(id string) bool {
		for _, v := range svc.ListSessions(s.ctx) {
			if v.ID == id {
				return true
			}
		}
		return false
	}

	notStarted := create(false)
	exited := create(true)
	_, err := svc.Apply(s.ctx, exited, services.ActionExit, services.ActionInput{})
	s.Require().NoError(err)
	paused := create(true)
	_, err = svc.Apply(s.ctx, paused, services.ActionPause, services.ActionInput{})
	s.Require().NoError(err)
	running := create(true)

	s.clock.Advance(11 * time.Minute)
	s.False(present(exited), "completed session outlives its grace period")
	s.True(present(notStarted))
	s.True(present(paused))
	s.True(present(running), "running sessions end by their countdown")

	s.clock.Advance(19 * time.Minute)
	_, err = svc.GetSession(s.ctx, paused)
	s.Require().NoError(err)

	s.clock.Advance(31 * time.Minute)
	s.False(present(notStarted), "idle session kept past its ttl")
	s.False(present(running), "timed-out session kept past its grace period")
	s.True(present(paused), "access resets the idle clock")

	s.clock.Advance(30 * time.Minute)
	s.Empty(svc.ListSessions(s.ctx))

	_, err = svc.GetSession(s.ctx, paused)
	appErr, ok := errors.As(err)
	s.Require().True(ok)
	s.Equal(errors.ErrCodeNotFound, appErr.Code)

	svc.Close()
	s.quiz.Close()
	s.Equal(0, s.clock.Pending())
}

func TestQuizServiceSuite(t *testing.T) {
	suite.Run(t, new(QuizServiceSuite))
}

// Completed sessions flow through the real worker pool into the store.
func TestQuizService_SavesThroughWorkerPool(t *testing.T) {
	ctx := context.Background()
	gw := testutil.NewTestGateway(t)
	subject := seedSubject(t, gw, "Physics")
	chapter := seedChapter(t, gw, subject.ID, 0, "Kinematics")
	seedQuestions(t, gw, chapter.ID, 2)

	pool := worker.NewPool(1, 4)
	pool.Start(ctx)
	results := services.NewResultService(gw, "NEET")
	clock := testutil.NewFakeClock(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	svc := services.NewQuizService(gw, jobs.NewWorkerQueue(pool, results), services.QuizConfig{Clock: clock})
	defer svc.Close()

	view, err := svc.CreateSession(ctx, chapter.ID, true)
	require.NoError(t, err)
	_, err = svc.Apply(ctx, view.ID, services.ActionExit, services.ActionInput{})
	require.NoError(t, err)
	pool.Stop()

	history, err := results.History(ctx, chapter.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 2, history[0].UnansweredCount)
	assert.Equal(t, "Physics", history[0].SubjectTitle)

	view, err = svc.GetSession(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, services.SaveSaved, view.Save.State)
}
