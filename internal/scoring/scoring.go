// Package scoring implements NEET marking: +4 per correct answer, -1 per
// incorrect answer, 0 for unanswered questions.
package scoring

import (
	"math"

	"github.com/neetpractice/neetpractice/internal/models"
)

const (
	CorrectMarks   = 4
	IncorrectMarks = -1
)

type Outcome int

const (
	Unanswered Outcome = iota
	Correct
	Incorrect
)

func (o Outcome) String() string {
	switch o {
	case Correct:
		return "correct"
	case Incorrect:
		return "incorrect"
	default:
		return "unanswered"
	}
}

// Classify grades one answer. An empty answer is unanswered.
func Classify(q models.Question, answer string) Outcome {
	if answer == "" {
		return Unanswered
	}
	if q.IsCorrect(answer) {
		return Correct
	}
	return Incorrect
}

func Score(correct, incorrect int) int {
	return correct*CorrectMarks + incorrect*IncorrectMarks
}

// Accuracy is correct/total as a whole percentage, halves rounded up.
// An empty set scores 0.
func Accuracy(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Floor(float64(correct)/float64(total)*100 + 0.5))
}

// Compute grades questions against answers, where answers[i] belongs to
// questions[i]. Missing trailing answers count as unanswered. Compute has no
// side effects; the caller fills titles and timestamp.
func Compute(questions []models.Question, answers []string) models.QuizResult {
	var res models.QuizResult
	res.TotalQuestions = len(questions)
	for i, q := range questions {
		var answer string
		if i < len(answers) {
			answer = answers[i]
		}
		switch Classify(q, answer) {
		case Correct:
			res.CorrectCount++
		case Incorrect:
			res.IncorrectCount++
		default:
			res.UnansweredCount++
		}
	}
	res.Score = Score(res.CorrectCount, res.IncorrectCount)
	res.AccuracyPercent = Accuracy(res.CorrectCount, res.TotalQuestions)
	return res
}
