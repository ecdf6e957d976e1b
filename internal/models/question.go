package models

import (
	"strings"
	"time"
)

// OptionLetters are the answer choices of every question, in display order.
var OptionLetters = []string{"A", "B", "C", "D"}

type Question struct {
	ID            int64     `json:"id"`
	ChapterID     int64     `json:"chapterId"`
	QuestionSetID int64     `json:"questionSetId,omitempty"`
	Question      string    `json:"question"`
	OptionA       string    `json:"optionA"`
	OptionB       string    `json:"optionB"`
	OptionC       string    `json:"optionC"`
	OptionD       string    `json:"optionD"`
	CorrectAnswer string    `json:"correctAnswer"`
	Explanation   string    `json:"explanation,omitempty"`
	Difficulty    string    `json:"difficulty,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (q *Question) EntityID() int64      { return q.ID }
func (q *Question) SetEntityID(id int64) { q.ID = id }

// Options returns the four option texts in A-D order.
func (q Question) Options() []string {
	return []string{q.OptionA, q.OptionB, q.OptionC, q.OptionD}
}

// IsCorrect compares letter against the answer key, ignoring case and surrounding space.
func (q Question) IsCorrect(letter string) bool {
	return letter != "" && strings.EqualFold(strings.TrimSpace(letter), strings.TrimSpace(q.CorrectAnswer))
}

// QuestionSetBlob is the raw document of one bulk import, kept alongside the
// parsed questions so a chapter's source set can be downloaded again.
type QuestionSetBlob struct {
	ID            int64     `json:"id"`
	ChapterID     int64     `json:"chapterId"`
	FileName      string    `json:"fileName"`
	Payload       string    `json:"payload"`
	QuestionCount int       `json:"questionCount"`
	UploadedAt    time.Time `json:"uploadedAt"`
}

func (b *QuestionSetBlob) EntityID() int64      { return b.ID }
func (b *QuestionSetBlob) SetEntityID(id int64) { b.ID = id }
