package scoring_test

import (
	"testing"

	"github.com/neetpractice/neetpractice/internal/models"
	"github.com/neetpractice/neetpractice/internal/scoring"
	"github.com/stretchr/testify/assert"
)

func questionSet(n int, key string) []models.Question {
	qs := make([]models.Question, n)
	for i := range qs {
		qs[i] = models.Question{ID: int64(i + 1), CorrectAnswer: key}
	}
	return qs
}

func TestCompute_NEETExample(t *testing.T) {
	qs := questionSet(20, "B")
	answers := make([]string, 20)
	for i := 0; i < 18; i++ {
		answers[i] = "b"
	}
	answers[18], answers[19] = "A", "D"

	res := scoring.Compute(qs, answers)

	assert.Equal(t, 18, res.CorrectCount)
	assert.Equal(t, 2, res.IncorrectCount)
	assert.Equal(t, 0, res.UnansweredCount)
	assert.Equal(t, 70, res.Score)
	assert.Equal(t, 90, res.AccuracyPercent)
}

func TestCompute_PartitionsEveryQuestion(t *testing.T) {
	qs := questionSet(7, "C")
	answers := []string{"C", "", "A", "c", "D"}

	res := scoring.Compute(qs, answers)

	assert.Equal(t, 7, res.TotalQuestions)
	assert.Equal(t, res.TotalQuestions, res.CorrectCount+res.IncorrectCount+res.UnansweredCount)
	assert.Equal(t, 2, res.CorrectCount)
	assert.Equal(t, 2, res.IncorrectCount)
	assert.Equal(t, 3, res.UnansweredCount)
}

func TestCompute_NegativeScoreAndEmptySet(t *testing.T) {
	res := scoring.Compute(questionSet(3, "A"), []string{"B", "C", "D"})
	assert.Equal(t, -3, res.Score)
	assert.Equal(t, 0, res.AccuracyPercent)

	empty := scoring.Compute(nil, nil)
	assert.Equal(t, 0, empty.TotalQuestions)
	assert.Equal(t, 0, empty.AccuracyPercent)
}

func TestCompute_Idempotent(t *testing.T) {
	qs := questionSet(5, "D")
	answers := []string{"D", "A", "", "D", "D"}
	assert.Equal(t, scoring.Compute(qs, answers), scoring.Compute(qs, answers))
}

func TestAccuracy_Rounding(t *testing.T) {
	tests := []struct {
		correct, total, want int
	}{
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13},
		{1, 200, 1},
		{0, 0, 0},
		{5, 5, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, scoring.Accuracy(tt.correct, tt.total), "%d/%d", tt.correct, tt.total)
	}
}

func TestClassify(t *testing.T) {
	q := models.Question{CorrectAnswer: "A"}
	assert.Equal(t, scoring.Correct, scoring.Classify(q, "a"))
	assert.Equal(t, scoring.Incorrect, scoring.Classify(q, "B"))
	assert.Equal(t, scoring.Unanswered, scoring.Classify(q, ""))
	assert.Equal(t, "unanswered", scoring.Unanswered.String())
}
