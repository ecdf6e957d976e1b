package models

import "time"

// QuizResult is the scored summary of one completed attempt.
type QuizResult struct {
	TotalQuestions  int       `json:"totalQuestions"`
	CorrectCount    int       `json:"correctCount"`
	IncorrectCount  int       `json:"incorrectCount"`
	UnansweredCount int       `json:"unansweredCount"`
	Score           int       `json:"score"`
	AccuracyPercent int       `json:"accuracyPercent"`
	ChapterTitle    string    `json:"chapterTitle"`
	SubjectTitle    string    `json:"subjectTitle"`
	Timestamp       time.Time `json:"timestamp"`
}

// QuizStat is the persisted form of a QuizResult.
type QuizStat struct {
	ID              int64     `json:"id"`
	Date            string    `json:"date"`
	ChapterID       int64     `json:"chapterId"`
	ChapterTitle    string    `json:"chapterTitle"`
	SubjectTitle    string    `json:"subjectTitle"`
	Score           int       `json:"score"`
	TotalQuestions  int       `json:"totalQuestions"`
	CorrectCount    int       `json:"correctCount"`
	WrongCount      int       `json:"wrongCount"`
	UnansweredCount int       `json:"unansweredCount"`
	Percentage      int       `json:"percentage"`
	CompletedAt     time.Time `json:"completedAt"`
}

func (s *QuizStat) EntityID() int64      { return s.ID }
func (s *QuizStat) SetEntityID(id int64) { s.ID = id }
