package models

import "time"

type Subject struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Color       string    `json:"color,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (s *Subject) EntityID() int64      { return s.ID }
func (s *Subject) SetEntityID(id int64) { s.ID = id }

type Book struct {
	ID          int64     `json:"id"`
	SubjectID   int64     `json:"subjectId"`
	Title       string    `json:"title"`
	Author      string    `json:"author,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (b *Book) EntityID() int64      { return b.ID }
func (b *Book) SetEntityID(id int64) { b.ID = id }

// Chapter groups questions under a book or directly under a subject.
// TotalQuestions and CompletedQuestions are denormalized counters kept
// up to date by the import and result-recording paths.
type Chapter struct {
	ID                 int64     `json:"id"`
	SubjectID          int64     `json:"subjectId"`
	BookID             int64     `json:"bookId,omitempty"`
	Title              string    `json:"title"`
	Description        string    `json:"description,omitempty"`
	TotalQuestions     int       `json:"totalQuestions"`
	CompletedQuestions int       `json:"completedQuestions"`
	CreatedAt          time.Time `json:"createdAt"`
}

func (c *Chapter) EntityID() int64      { return c.ID }
func (c *Chapter) SetEntityID(id int64) { c.ID = id }
