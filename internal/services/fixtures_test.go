package services_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/neetpractice/neetpractice/internal/gateway"
	"github.com/neetpractice/neetpractice/internal/models"
	"github.com/stretchr/testify/require"
)

func seedSubject(t *testing.T, gw *gateway.Gateway, title string) *models.Subject {
	subject := &models.Subject{Title: title}
	_, err := gw.Subjects.Add(context.Background(), subject)
	require.NoError(t, err)
	return subject
}

func seedBook(t *testing.T, gw *gateway.Gateway, subjectID int64, title string) *models.Book {
	book := &models.Book{SubjectID: subjectID, Title: title}
	_, err := gw.Books.Add(context.Background(), book)
	require.NoError(t, err)
	return book
}

func seedChapter(t *testing.T, gw *gateway.Gateway, subjectID, bookID int64, title string) *models.Chapter {
	chapter := &models.Chapter{SubjectID: subjectID, BookID: bookID, Title: title}
	_, err := gw.Chapters.Add(context.Background(), chapter)
	require.NoError(t, err)
	return chapter
}

// seedQuestions stores n questions whose answer key is always A.
func seedQuestions(t *testing.T, gw *gateway.Gateway, chapterID int64, n int) {
	for i := 0; i < n; i++ {
		_, err := gw.Questions.Add(context.Background(), &models.Question{
			ChapterID:     chapterID,
			Question:      fmt.Sprintf("Question %d", i+1),
			OptionA:       "a",
			OptionB:       "b",
			OptionC:       "c",
			OptionD:       "d",
			CorrectAnswer: "A",
		})
		require.NoError(t, err)
	}
}

func importItem(q string) map[string]any {
	return map[string]any{
		"question":      q,
		"optionA":       "1",
		"optionB":       "2",
		"optionC":       "3",
		"optionD":       "4",
		"correctAnswer": "c",
	}
}

func mustJSON(t *testing.T, v any) []byte {
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
