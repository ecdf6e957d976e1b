package quiz_test

import (
	"testing"

	"github.com/neetpractice/neetpractice/internal/models"
	"github.com/neetpractice/neetpractice/internal/quiz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadQuestions_DropsInvalid(t *testing.T) {
	raw := makeQuestions(5)
	raw[1].OptionC = "  "
	raw[3].CorrectAnswer = "E"
	raw[4].CorrectAnswer = " d "

	set, dropped, err := quiz.LoadQuestions(raw)
	require.NoError(t, err)
	assert.Equal(t, 2, dropped)
	assert.Len(t, set, 3)

	ids := make([]int64, 0, len(set))
	for _, q := range set {
		ids = append(ids, q.ID)
		assert.Contains(t, models.OptionLetters, q.CorrectAnswer)
	}
	assert.ElementsMatch(t, []int64{1, 3, 5}, ids)
}

func TestLoadQuestions_Empty(t *testing.T) {
	raw := makeQuestions(2)
	raw[0].Question = ""
	raw[1].CorrectAnswer = ""

	_, dropped, err := quiz.LoadQuestions(raw)
	assert.ErrorIs(t, err, quiz.ErrEmptyQuestionSet)
	assert.Equal(t, 2, dropped)

	_, _, err = quiz.LoadQuestions(nil)
	assert.ErrorIs(t, err, quiz.ErrEmptyQuestionSet)
}

func TestShuffle_KeepsElementsAndVariesOrder(t *testing.T) {
	set := makeQuestions(20)

	first := quiz.Shuffle(set)
	assert.ElementsMatch(t, set, first)
	assert.Equal(t, int64(1), set[0].ID, "input is not modified")

	// 20! orderings; ten identical shuffles in a row would be a broken shuffle.
	varied := false
	for i := 0; i < 10 && !varied; i++ {
		next := quiz.Shuffle(set)
		for j := range next {
			if next[j].ID != first[j].ID {
				varied = true
				break
			}
		}
	}
	assert.True(t, varied)
}

func TestNormalizeLetter(t *testing.T) {
	l, ok := quiz.NormalizeLetter(" c ")
	assert.True(t, ok)
	assert.Equal(t, "C", l)

	_, ok = quiz.NormalizeLetter("AB")
	assert.False(t, ok)
}
