package services

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/neetpractice/neetpractice/internal/errors"
	"github.com/neetpractice/neetpractice/internal/gateway"
	"github.com/neetpractice/neetpractice/internal/jobs"
	"github.com/neetpractice/neetpractice/internal/logger"
	"github.com/neetpractice/neetpractice/internal/models"
	"github.com/neetpractice/neetpractice/internal/quiz"
	"github.com/neetpractice/neetpractice/internal/store"
)

// Session retention defaults.
const (
	DefaultCompletedTTL  = 30 * time.Minute
	DefaultIdleTTL       = 2 * time.Hour
	DefaultSweepInterval = time.Minute
)

// QuizConfig holds session settings shared by every attempt.
type QuizConfig struct {
	Duration            time.Duration
	AutoAdvance         time.Duration
	DefaultSubjectTitle string
	// CompletedTTL is how long a finished session stays readable.
	CompletedTTL time.Duration
	// IdleTTL evicts not started and paused sessions nobody has touched.
	IdleTTL       time.Duration
	SweepInterval time.Duration
	// Clock is the wall clock when nil.
	Clock quiz.Clock
}

// Action names a session operation.
type Action string

const (
	ActionStart    Action = "start"
	ActionPause    Action = "pause"
	ActionResume   Action = "resume"
	ActionReset    Action = "reset"
	ActionAnswer   Action = "answer"
	ActionNext     Action = "next"
	ActionPrevious Action = "previous"
	ActionGoTo     Action = "goto"
	ActionExit     Action = "exit"
)

// ActionInput carries the arguments of answer and goto.
type ActionInput struct {
	Answer string `json:"answer"`
	Index  int    `json:"index"`
}

// Save states of a completed session's result.
const (
	SaveNone    = "none"
	SavePending = "pending"
	SaveSaved   = "saved"
	SaveFailed  = "failed"
)

type SaveStatus struct {
	State   string `json:"state"`
	Message string `json:"message,omitempty"`
	StatID  int64  `json:"statId,omitempty"`
}

// QuestionView is a question as shown during an attempt. The answer key and
// explanation are revealed once the session is completed.
type QuestionView struct {
	ID            int64    `json:"id"`
	Number        int      `json:"number"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	Selected      string   `json:"selected,omitempty"`
	CorrectAnswer string   `json:"correctAnswer,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
	Difficulty    string   `json:"difficulty,omitempty"`
}

type SessionView struct {
	ID               string             `json:"id"`
	ChapterID        int64              `json:"chapterId"`
	ChapterTitle     string             `json:"chapterTitle"`
	SubjectTitle     string             `json:"subjectTitle"`
	Status           quiz.Status        `json:"status"`
	Index            int                `json:"index"`
	Total            int                `json:"total"`
	Answered         int                `json:"answered"`
	RemainingSeconds int                `json:"remainingSeconds"`
	PendingAdvance   bool               `json:"pendingAdvance"`
	Question         QuestionView       `json:"question"`
	Answers          []string           `json:"answers"`
	AnswerOrder      []int              `json:"answerOrder"`
	EndReason        quiz.EndReason     `json:"endReason,omitempty"`
	Result           *models.QuizResult `json:"result,omitempty"`
	Save             SaveStatus         `json:"save"`
	Dropped          int                `json:"dropped,omitempty"`
}

// RetryOutcome is the answer to a wrong-answers retry. NoWrongAnswers is
// informational: Session is nil and nothing was created.
type RetryOutcome struct {
	NoWrongAnswers bool         `json:"noWrongAnswers"`
	Session        *SessionView `json:"session,omitempty"`
}

// QuizService manages in-memory quiz sessions
type QuizService interface {
	CreateSession(ctx context.Context, chapterID int64, start bool) (*SessionView, error)
	GetSession(ctx context.Context, id string) (*SessionView, error)
	ListSessions(ctx context.Context) []SessionView
	Apply(ctx context.Context, id string, action Action, in ActionInput) (*SessionView, error)
	Result(ctx context.Context, id string) (*models.QuizResult, error)
	RetryWrong(ctx context.Context, id string) (*RetryOutcome, error)
	Discard(ctx context.Context, id string) error
	// Close discards every session.
	Close()
}

type activeSession struct {
	id           string
	chapterID    int64
	chapterTitle string
	subjectTitle string
	dropped      int
	session      *quiz.Session

	mu          sync.Mutex
	save        SaveStatus
	touched     time.Time
	completedAt time.Time
}

func (a *activeSession) saveStatus() SaveStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.save
}

func (a *activeSession) setSave(st SaveStatus) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.save = st
}

func (a *activeSession) touch(now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.touched = now
}

func (a *activeSession) markCompleted(now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.completedAt = now
}

func (a *activeSession) times() (touched, completedAt time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.touched, a.completedAt
}

type quizService struct {
	gw    *gateway.Gateway
	queue jobs.Queue
	cfg   QuizConfig
	log   *logger.Logger

	mu       sync.RWMutex
	sessions map[string]*activeSession
	sweep    quiz.Timer
	closed   bool
}

// NewQuizService creates a new QuizService
func NewQuizService(gw *gateway.Gateway, queue jobs.Queue, cfg QuizConfig) QuizService {
	if cfg.Clock == nil {
		cfg.Clock = quiz.SystemClock()
	}
	if strings.TrimSpace(cfg.DefaultSubjectTitle) == "" {
		cfg.DefaultSubjectTitle = "NEET"
	}
	if cfg.CompletedTTL <= 0 {
		cfg.CompletedTTL = DefaultCompletedTTL
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	s := &quizService{
		gw:       gw,
		queue:    queue,
		cfg:      cfg,
		log:      logger.Default().WithPrefix("quiz-service"),
		sessions: make(map[string]*activeSession),
	}
	s.armSweep()
	return s
}

func (s *quizService) CreateSession(ctx context.Context, chapterID int64, start bool) (*SessionView, error) {
	log := logger.FromContext(ctx).WithField("chapter_id", chapterID)
	log.Debug("creating quiz session")

	chapter, err := s.gw.Chapters.GetByID(ctx, chapterID)
	if err != nil {
		return nil, storeError(log, "chapter", chapterID, err)
	}
	subjectTitle := s.cfg.DefaultSubjectTitle
	subject, err := s.gw.Subjects.GetByID(ctx, chapter.SubjectID)
	switch {
	case err == nil:
		subjectTitle = subject.Title
	case !stderrors.Is(err, store.ErrNotFound):
		return nil, storeError(log, "subject", chapter.SubjectID, err)
	}

	raw, err := s.gw.Questions.GetByIndex(ctx, "chapterId", chapterID)
	if err != nil {
		return nil, storeError(log, "question", "chapter", err)
	}
	set, dropped, err := quiz.LoadQuestions(raw)
	if stderrors.Is(err, quiz.ErrEmptyQuestionSet) {
		return nil, errors.NewValidationError("chapterId", "chapter has no playable questions")
	}
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	if dropped > 0 {
		log.Warn("dropped %d invalid questions", dropped)
	}

	active, err := s.register(chapterID, chapter.Title, subjectTitle, set, dropped)
	if err != nil {
		return nil, err
	}
	if start {
		if err := active.session.Start(); err != nil {
			return nil, sessionError(err)
		}
	}
	log.Info("created quiz session %s with %d questions", active.id, len(set))
	return s.view(active), nil
}

func (s *quizService) register(chapterID int64, chapterTitle, subjectTitle string, set quiz.QuestionSet, dropped int) (*activeSession, error) {
	active := &activeSession{
		id:           uuid.NewString(),
		chapterID:    chapterID,
		chapterTitle: chapterTitle,
		subjectTitle: subjectTitle,
		dropped:      dropped,
		save:         SaveStatus{State: SaveNone},
		touched:      s.cfg.Clock.Now(),
	}
	sess, err := quiz.NewSession(set, quiz.Options{
		Duration:     s.cfg.Duration,
		AutoAdvance:  s.cfg.AutoAdvance,
		Clock:        s.cfg.Clock,
		ChapterTitle: chapterTitle,
		SubjectTitle: subjectTitle,
		OnComplete:   func(res models.QuizResult) { s.saveResult(active, res) },
	})
	if err != nil {
		return nil, sessionError(err)
	}
	active.session = sess

	s.mu.Lock()
	s.sessions[active.id] = active
	s.mu.Unlock()
	return active, nil
}

// saveResult hands a completed attempt to the save queue. Failures leave the
// result in memory and are reported through the session's save status.
func (s *quizService) saveResult(active *activeSession, res models.QuizResult) {
	log := s.log.WithFields(map[string]any{"session_id": active.id, "chapter_id": active.chapterID})
	active.markCompleted(s.cfg.Clock.Now())
	active.setSave(SaveStatus{State: SavePending})

	err := s.queue.EnqueueResultSave(jobs.ResultSave{
		ChapterID: active.chapterID,
		Result:    res,
		Done: func(stat *models.QuizStat, err error) {
			if err != nil {
				log.Warn("quiz result not saved: %v", err)
				active.setSave(SaveStatus{State: SaveFailed, Message: err.Error()})
				return
			}
			active.setSave(SaveStatus{State: SaveSaved, StatID: stat.ID})
		},
	})
	if err != nil {
		log.Warn("quiz result rejected by save queue: %v", err)
		active.setSave(SaveStatus{State: SaveFailed, Message: err.Error()})
	}
}

// lookup finds a session and counts the access as activity.
func (s *quizService) lookup(id string) (*activeSession, error) {
	s.mu.RLock()
	active, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.NewNotFoundError("quiz session", id)
	}
	active.touch(s.cfg.Clock.Now())
	return active, nil
}

func (s *quizService) armSweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.sweep = s.cfg.Clock.AfterFunc(s.cfg.SweepInterval, func() {
		s.evictExpired()
		s.armSweep()
	})
}

// evictExpired discards completed sessions past CompletedTTL and not started
// or paused sessions idle for IdleTTL. Running sessions end on their own
// countdown.
func (s *quizService) evictExpired() {
	now := s.cfg.Clock.Now()

	s.mu.Lock()
	var expired []*activeSession
	for id, active := range s.sessions {
		if s.expired(active, now) {
			expired = append(expired, active)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, active := range expired {
		active.session.Discard()
		s.log.Debug("evicted quiz session %s", active.id)
	}
	if len(expired) > 0 {
		s.log.Info("evicted %d expired quiz sessions", len(expired))
	}
}

func (s *quizService) expired(active *activeSession, now time.Time) bool {
	touched, completedAt := active.times()
	switch active.session.State().Status {
	case quiz.Completed:
		return !completedAt.IsZero() && now.Sub(completedAt) >= s.cfg.CompletedTTL
	case quiz.NotStarted, quiz.Paused:
		return now.Sub(touched) >= s.cfg.IdleTTL
	default:
		return false
	}
}

func (s *quizService) GetSession(ctx context.Context, id string) (*SessionView, error) {
	active, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return s.view(active), nil
}

func (s *quizService) ListSessions(ctx context.Context) []SessionView {
	s.mu.RLock()
	actives := make([]*activeSession, 0, len(s.sessions))
	for _, a := range s.sessions {
		actives = append(actives, a)
	}
	s.mu.RUnlock()

	views := make([]SessionView, 0, len(actives))
	for _, a := range actives {
		views = append(views, *s.view(a))
	}
	return views
}

func (s *quizService) Apply(ctx context.Context, id string, action Action, in ActionInput) (*SessionView, error) {
	log := logger.FromContext(ctx).WithField("session_id", id)
	log.Debug("applying quiz action: %s", action)

	active, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess := active.session

	switch action {
	case ActionStart:
		err = sess.Start()
	case ActionPause:
		err = sess.Pause()
	case ActionResume:
		err = sess.Resume()
	case ActionReset:
		err = sess.Reset()
	case ActionAnswer:
		err = sess.SelectAnswer(in.Answer)
	case ActionNext:
		err = sess.Next()
	case ActionPrevious:
		err = sess.Previous()
	case ActionGoTo:
		err = sess.GoTo(in.Index)
	case ActionExit:
		err = sess.Exit()
	default:
		return nil, errors.NewBadRequestError("unknown quiz action: " + string(action))
	}
	if err != nil {
		return nil, sessionError(err)
	}
	return s.view(active), nil
}

func (s *quizService) Result(ctx context.Context, id string) (*models.QuizResult, error) {
	active, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	res, ok := active.session.Result()
	if !ok {
		return nil, errors.NewInvalidStateError("quiz session is not completed", nil)
	}
	return &res, nil
}

func (s *quizService) RetryWrong(ctx context.Context, id string) (*RetryOutcome, error) {
	log := logger.FromContext(ctx).WithField("session_id", id)

	active, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	wrong, ok := active.session.WrongOnly()
	if !ok {
		log.Debug("no wrong answers to retry")
		return &RetryOutcome{NoWrongAnswers: true}, nil
	}

	retry, err := s.register(active.chapterID, active.chapterTitle, active.subjectTitle, wrong, 0)
	if err != nil {
		return nil, err
	}
	if err := retry.session.Start(); err != nil {
		return nil, sessionError(err)
	}
	log.Info("created retry session %s with %d questions", retry.id, len(wrong))
	return &RetryOutcome{Session: s.view(retry)}, nil
}

func (s *quizService) Discard(ctx context.Context, id string) error {
	s.mu.Lock()
	active, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return errors.NewNotFoundError("quiz session", id)
	}
	active.session.Discard()
	logger.FromContext(ctx).Debug("discarded quiz session %s", id)
	return nil
}

func (s *quizService) Close() {
	s.mu.Lock()
	s.closed = true
	if s.sweep != nil {
		s.sweep.Stop()
		s.sweep = nil
	}
	sessions := s.sessions
	s.sessions = make(map[string]*activeSession)
	s.mu.Unlock()
	for _, active := range sessions {
		active.session.Discard()
	}
	s.log.Debug("discarded %d quiz sessions", len(sessions))
}

func (s *quizService) view(active *activeSession) *SessionView {
	st := active.session.State()
	completed := st.Status == quiz.Completed

	q := st.Current
	question := QuestionView{
		ID:         q.ID,
		Number:     st.Index + 1,
		Text:       q.Question,
		Options:    q.Options(),
		Selected:   st.Answers[st.Index],
		Difficulty: q.Difficulty,
	}
	if completed {
		question.CorrectAnswer = q.CorrectAnswer
		question.Explanation = q.Explanation
	}

	return &SessionView{
		ID:               active.id,
		ChapterID:        active.chapterID,
		ChapterTitle:     active.chapterTitle,
		SubjectTitle:     active.subjectTitle,
		Status:           st.Status,
		Index:            st.Index,
		Total:            st.Total,
		Answered:         st.Answered,
		RemainingSeconds: int((st.Remaining + time.Second - 1) / time.Second),
		PendingAdvance:   st.PendingAdvance,
		Question:         question,
		Answers:          st.Answers,
		AnswerOrder:      st.AnswerOrder,
		EndReason:        st.EndReason,
		Result:           st.Result,
		Save:             active.saveStatus(),
		Dropped:          active.dropped,
	}
}

// sessionError maps engine errors onto AppErrors.
func sessionError(err error) error {
	switch {
	case stderrors.Is(err, quiz.ErrInvalidAnswer):
		return errors.NewValidationError("answer", "must be one of A, B, C, D")
	case stderrors.Is(err, quiz.ErrOutOfRange):
		return errors.NewValidationError("index", "question index out of range")
	case stderrors.Is(err, quiz.ErrInvalidState), stderrors.Is(err, quiz.ErrDiscarded):
		return errors.NewInvalidStateError(err.Error(), err)
	case stderrors.Is(err, quiz.ErrEmptyQuestionSet):
		return errors.NewValidationError("questions", "no playable questions")
	default:
		return errors.NewInternalError(err)
	}
}
