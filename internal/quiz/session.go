package quiz

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/neetpractice/neetpractice/internal/models"
	"github.com/neetpractice/neetpractice/internal/scoring"
)

const (
	DefaultDuration    = 30 * time.Minute
	DefaultAutoAdvance = 500 * time.Millisecond
)

var (
	ErrInvalidState  = errors.New("quiz: operation not allowed in current state")
	ErrInvalidAnswer = errors.New("quiz: answer must be one of A, B, C, D")
	ErrOutOfRange    = errors.New("quiz: question index out of range")
	ErrDiscarded     = errors.New("quiz: session discarded")
)

type Status int

const (
	NotStarted Status = iota
	Running
	Paused
	Completed
)

func (s Status) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Completed:
		return "completed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// EndReason records why a session completed.
type EndReason string

const (
	EndTimeUp      EndReason = "time_up"
	EndAllAnswered EndReason = "all_answered"
	EndExited      EndReason = "exited"
)

type Options struct {
	Duration     time.Duration
	AutoAdvance  time.Duration
	Clock        Clock
	ChapterTitle string
	SubjectTitle string
	// OnComplete runs once, outside the session lock, when the session
	// reaches Completed. It is not called for discarded sessions.
	OnComplete func(models.QuizResult)
}

// Session drives one timed attempt over a QuestionSet. All methods are safe
// for concurrent use; timer callbacks take the same lock.
type Session struct {
	mu sync.Mutex

	clock        Clock
	questions    QuestionSet
	answers      []string
	order        []int // question indexes in first-answered order
	index        int
	status       Status
	duration     time.Duration
	autoAdvance  time.Duration
	chapterTitle string
	subjectTitle string
	onComplete   func(models.QuizResult)

	remaining time.Duration // valid unless Running
	deadline  time.Time     // valid while Running

	countdown      Timer
	countdownGen   uint64
	advance        Timer
	advanceGen     uint64
	pendingAdvance bool

	discarded   bool
	endReason   EndReason
	completedAt time.Time
	result      *models.QuizResult
}

func NewSession(questions QuestionSet, opts Options) (*Session, error) {
	if len(questions) == 0 {
		return nil, ErrEmptyQuestionSet
	}
	if opts.Duration <= 0 {
		opts.Duration = DefaultDuration
	}
	if opts.AutoAdvance <= 0 {
		opts.AutoAdvance = DefaultAutoAdvance
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock()
	}
	qs := make(QuestionSet, len(questions))
	copy(qs, questions)
	return &Session{
		clock:        opts.Clock,
		questions:    qs,
		answers:      make([]string, len(qs)),
		duration:     opts.Duration,
		remaining:    opts.Duration,
		autoAdvance:  opts.AutoAdvance,
		chapterTitle: opts.ChapterTitle,
		subjectTitle: opts.SubjectTitle,
		onComplete:   opts.OnComplete,
	}, nil
}

// State is a point-in-time copy of the session.
type State struct {
	Status         Status
	Index          int
	Total          int
	Answered       int
	Remaining      time.Duration
	Current        models.Question
	Answers        []string
	AnswerOrder    []int
	PendingAdvance bool
	EndReason      EndReason
	Result         *models.QuizResult
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	answers := make([]string, len(s.answers))
	copy(answers, s.answers)
	order := make([]int, len(s.order))
	copy(order, s.order)
	answered := 0
	for _, a := range answers {
		if a != "" {
			answered++
		}
	}
	st := State{
		Status:         s.status,
		Index:          s.index,
		Total:          len(s.questions),
		Answered:       answered,
		Remaining:      s.remainingLocked(),
		Current:        s.questions[s.index],
		Answers:        answers,
		AnswerOrder:    order,
		PendingAdvance: s.pendingAdvance,
		EndReason:      s.endReason,
	}
	if s.result != nil {
		res := *s.result
		st.Result = &res
	}
	return st
}

// Questions returns a copy of the session's question order.
func (s *Session) Questions() QuestionSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(QuestionSet, len(s.questions))
	copy(out, s.questions)
	return out
}

func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(NotStarted); err != nil {
		return err
	}
	s.status = Running
	s.armCountdownLocked()
	return nil
}

// SelectAnswer records letter for the current question and schedules the
// move to the next one. On the last question the scheduled move completes
// the session instead. Changing an answer keeps its original position in
// the answer order.
func (s *Session) SelectAnswer(letter string) error {
	l, ok := NormalizeLetter(letter)
	if !ok {
		return ErrInvalidAnswer
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(Running); err != nil {
		return err
	}
	if s.answers[s.index] == "" {
		s.order = append(s.order, s.index)
	}
	s.answers[s.index] = l
	s.armAdvanceLocked()
	return nil
}

func (s *Session) Next() error {
	return s.navigate(func(i int) int { return i + 1 })
}

func (s *Session) Previous() error {
	return s.navigate(func(i int) int { return i - 1 })
}

func (s *Session) GoTo(index int) error {
	return s.navigate(func(int) int { return index })
}

func (s *Session) navigate(target func(int) int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(Running); err != nil {
		return err
	}
	next := target(s.index)
	if next < 0 || next >= len(s.questions) {
		return ErrOutOfRange
	}
	s.cancelAdvanceLocked()
	s.index = next
	return nil
}

// Pause freezes the countdown. A pending auto-advance is held and re-armed
// by Resume.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(Running); err != nil {
		return err
	}
	s.remaining = s.remainingLocked()
	s.stopCountdownLocked()
	s.stopAdvanceTimerLocked()
	s.status = Paused
	return nil
}

func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(Paused); err != nil {
		return err
	}
	s.status = Running
	s.armCountdownLocked()
	if s.pendingAdvance {
		s.armAdvanceLocked()
	}
	return nil
}

// Reset returns the session to NotStarted with no answers and the full time
// budget. A completed session cannot be reset.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(NotStarted, Running, Paused); err != nil {
		return err
	}
	s.stopCountdownLocked()
	s.cancelAdvanceLocked()
	s.status = NotStarted
	s.index = 0
	s.answers = make([]string, len(s.questions))
	s.order = nil
	s.remaining = s.duration
	return nil
}

// Exit ends a running or paused session early.
func (s *Session) Exit() error {
	s.mu.Lock()
	if err := s.checkLocked(Running, Paused); err != nil {
		s.mu.Unlock()
		return err
	}
	done := s.completeLocked(EndExited)
	s.mu.Unlock()
	done()
	return nil
}

// Discard stops both timers without completing. The session accepts no
// further operations.
func (s *Session) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopCountdownLocked()
	s.cancelAdvanceLocked()
	s.discarded = true
}

// ComputeResult grades the current answers. It has no side effects; the
// timestamp is the completion time, zero until then.
func (s *Session) ComputeResult() models.QuizResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.computeLocked()
}

// Result returns the result fixed at completion.
func (s *Session) Result() (models.QuizResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return models.QuizResult{}, false
	}
	return *s.result, true
}

// WrongOnly returns the incorrectly answered questions, reshuffled.
// Unanswered questions are not included. ok is false when nothing was
// answered wrong.
func (s *Session) WrongOnly() (QuestionSet, bool) {
	s.mu.Lock()
	var wrong QuestionSet
	for i, q := range s.questions {
		if scoring.Classify(q, s.answers[i]) == scoring.Incorrect {
			wrong = append(wrong, q)
		}
	}
	s.mu.Unlock()

	if len(wrong) == 0 {
		return nil, false
	}
	return Shuffle(wrong), true
}

func (s *Session) checkLocked(allowed ...Status) error {
	if s.discarded {
		return ErrDiscarded
	}
	for _, st := range allowed {
		if s.status == st {
			return nil
		}
	}
	return fmt.Errorf("%w: session is %s", ErrInvalidState, s.status)
}

func (s *Session) remainingLocked() time.Duration {
	if s.status != Running {
		return s.remaining
	}
	left := s.deadline.Sub(s.clock.Now())
	if left < 0 {
		return 0
	}
	return left
}

func (s *Session) computeLocked() models.QuizResult {
	res := scoring.Compute(s.questions, s.answers)
	res.ChapterTitle = s.chapterTitle
	res.SubjectTitle = s.subjectTitle
	res.Timestamp = s.completedAt
	return res
}

func (s *Session) armCountdownLocked() {
	s.stopCountdownLocked()
	s.deadline = s.clock.Now().Add(s.remaining)
	gen := s.countdownGen
	s.countdown = s.clock.AfterFunc(s.remaining, func() { s.onCountdown(gen) })
}

func (s *Session) stopCountdownLocked() {
	s.countdownGen++
	if s.countdown != nil {
		s.countdown.Stop()
		s.countdown = nil
	}
}

func (s *Session) onCountdown(gen uint64) {
	s.mu.Lock()
	if gen != s.countdownGen || s.discarded || s.status != Running {
		s.mu.Unlock()
		return
	}
	done := s.completeLocked(EndTimeUp)
	s.mu.Unlock()
	done()
}

func (s *Session) armAdvanceLocked() {
	s.stopAdvanceTimerLocked()
	s.pendingAdvance = true
	gen := s.advanceGen
	s.advance = s.clock.AfterFunc(s.autoAdvance, func() { s.onAdvance(gen) })
}

// stopAdvanceTimerLocked stops the timer but keeps the pending flag.
func (s *Session) stopAdvanceTimerLocked() {
	s.advanceGen++
	if s.advance != nil {
		s.advance.Stop()
		s.advance = nil
	}
}

func (s *Session) cancelAdvanceLocked() {
	s.stopAdvanceTimerLocked()
	s.pendingAdvance = false
}

func (s *Session) onAdvance(gen uint64) {
	s.mu.Lock()
	if gen != s.advanceGen || s.discarded || s.status != Running {
		s.mu.Unlock()
		return
	}
	s.advance = nil
	s.pendingAdvance = false
	if s.index < len(s.questions)-1 {
		s.index++
		s.mu.Unlock()
		return
	}
	done := s.completeLocked(EndAllAnswered)
	s.mu.Unlock()
	done()
}

// completeLocked moves to Completed and returns the hook invocation for the
// caller to run after unlocking.
func (s *Session) completeLocked(reason EndReason) func() {
	s.remaining = s.remainingLocked()
	s.stopCountdownLocked()
	s.cancelAdvanceLocked()
	s.status = Completed
	s.endReason = reason
	s.completedAt = s.clock.Now()
	res := s.computeLocked()
	s.result = &res

	hook := s.onComplete
	if hook == nil {
		return func() {}
	}
	return func() { hook(res) }
}
