package quiz

import (
	"errors"
	"math/rand/v2"
	"strings"

	"github.com/neetpractice/neetpractice/internal/models"
)

var ErrEmptyQuestionSet = errors.New("quiz: no valid questions")

// QuestionSet is the ordered list of questions a session runs through.
type QuestionSet []models.Question

// LoadQuestions keeps the candidates that have a text, four options and an
// answer key in A-D, then shuffles them. It reports how many were dropped.
func LoadQuestions(raw []models.Question) (QuestionSet, int, error) {
	set := make(QuestionSet, 0, len(raw))
	for _, q := range raw {
		if !Playable(q) {
			continue
		}
		q.CorrectAnswer = strings.ToUpper(strings.TrimSpace(q.CorrectAnswer))
		set = append(set, q)
	}
	dropped := len(raw) - len(set)
	if len(set) == 0 {
		return nil, dropped, ErrEmptyQuestionSet
	}
	return Shuffle(set), dropped, nil
}

// Playable reports whether q can be asked: every text field is present and
// the answer key names one of the options.
func Playable(q models.Question) bool {
	if strings.TrimSpace(q.Question) == "" {
		return false
	}
	for _, opt := range q.Options() {
		if strings.TrimSpace(opt) == "" {
			return false
		}
	}
	_, ok := NormalizeLetter(q.CorrectAnswer)
	return ok
}

// NormalizeLetter upper-cases an option letter and rejects anything outside A-D.
func NormalizeLetter(letter string) (string, bool) {
	l := strings.ToUpper(strings.TrimSpace(letter))
	for _, known := range models.OptionLetters {
		if l == known {
			return l, true
		}
	}
	return "", false
}

// Shuffle returns a Fisher-Yates shuffled copy of set. The order differs
// between calls.
func Shuffle(set QuestionSet) QuestionSet {
	shuffled := make(QuestionSet, len(set))
	copy(shuffled, set)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := rand.IntN(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled
}
