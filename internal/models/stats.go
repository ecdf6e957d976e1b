package models

import "time"

type ChapterStat struct {
	ChapterID       int64     `json:"chapterId"`
	ChapterTitle    string    `json:"chapterTitle"`
	SubjectTitle    string    `json:"subjectTitle"`
	Attempts        int       `json:"attempts"`
	BestScore       int       `json:"bestScore"`
	AverageScore    float64   `json:"averageScore"`
	AverageAccuracy float64   `json:"averageAccuracy"`
	LastAttemptAt   time.Time `json:"lastAttemptAt"`
}

type SummaryStat struct {
	TotalAttempts          int     `json:"totalAttempts"`
	TotalQuestionsAnswered int     `json:"totalQuestionsAnswered"`
	TotalCorrect           int     `json:"totalCorrect"`
	TotalWrong             int     `json:"totalWrong"`
	AverageScore           float64 `json:"averageScore"`
	BestScore              int     `json:"bestScore"`
	AverageAccuracy        float64 `json:"averageAccuracy"`
	Subjects               int     `json:"subjects"`
	Books                  int     `json:"books"`
	Chapters               int     `json:"chapters"`
	Questions              int     `json:"questions"`
}

type Dashboard struct {
	Summary       SummaryStat   `json:"summary"`
	Chapters      []ChapterStat `json:"chapters"`
	RecentResults []QuizStat    `json:"recentResults"`
}
