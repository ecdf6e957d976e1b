// Package importer parses bulk question documents.
package importer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/neetpractice/neetpractice/internal/models"
)

var (
	ErrMalformedDocument = errors.New("importer: document is not a question list")
	ErrNoValidQuestions  = errors.New("importer: no valid questions in document")
)

// Rejection explains why the record at Index was skipped.
type Rejection struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

type Result struct {
	Questions  []models.Question `json:"-"`
	Total      int               `json:"total"`
	Accepted   int               `json:"accepted"`
	Rejected   int               `json:"rejected"`
	Rejections []Rejection       `json:"rejections"`
}

// record is one candidate question after field fallbacks are applied.
type record struct {
	Question      string `json:"question" validate:"required"`
	OptionA       string `json:"optionA" validate:"required"`
	OptionB       string `json:"optionB" validate:"required"`
	OptionC       string `json:"optionC" validate:"required"`
	OptionD       string `json:"optionD" validate:"required"`
	CorrectAnswer string `json:"correctAnswer" validate:"required,oneof=A B C D"`
	Explanation   string `json:"explanation"`
	Difficulty    string `json:"difficulty"`
}

type rawItem struct {
	Question      string   `json:"question"`
	OptionA       string   `json:"optionA"`
	OptionB       string   `json:"optionB"`
	OptionC       string   `json:"optionC"`
	OptionD       string   `json:"optionD"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
	Difficulty    string   `json:"difficulty"`
}

type Importer struct {
	validate *validator.Validate
}

func New() *Importer {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Importer{validate: v}
}

// Parse accepts a bare array, {"questions": [...]} or {"data": [...]}.
// Invalid records are reported, not fatal; ErrNoValidQuestions is returned
// together with the result when none survive.
func (im *Importer) Parse(data []byte) (*Result, error) {
	items, err := extractItems(data)
	if err != nil {
		return nil, err
	}

	res := &Result{Total: len(items), Rejections: []Rejection{}}
	for i, item := range items {
		q, reason := im.parseItem(item)
		if reason != "" {
			res.Rejections = append(res.Rejections, Rejection{Index: i, Reason: reason})
			continue
		}
		res.Questions = append(res.Questions, q)
	}
	res.Accepted = len(res.Questions)
	res.Rejected = len(res.Rejections)

	if res.Accepted == 0 {
		return res, ErrNoValidQuestions
	}
	return res, nil
}

func extractItems(data []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrMalformedDocument)
	}

	switch trimmed[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
		}
		return items, nil
	case '{':
		var wrapper struct {
			Questions []json.RawMessage `json:"questions"`
			Data      []json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
		}
		if wrapper.Questions != nil {
			return wrapper.Questions, nil
		}
		if wrapper.Data != nil {
			return wrapper.Data, nil
		}
		return nil, fmt.Errorf("%w: expected a questions or data array", ErrMalformedDocument)
	default:
		return nil, fmt.Errorf("%w: expected an array or object", ErrMalformedDocument)
	}
}

func (im *Importer) parseItem(raw json.RawMessage) (models.Question, string) {
	var item rawItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return models.Question{}, "record is not a question object"
	}

	rec := record{
		Question:      strings.TrimSpace(item.Question),
		OptionA:       option(item.OptionA, item.Options, 0),
		OptionB:       option(item.OptionB, item.Options, 1),
		OptionC:       option(item.OptionC, item.Options, 2),
		OptionD:       option(item.OptionD, item.Options, 3),
		CorrectAnswer: strings.ToUpper(strings.TrimSpace(item.CorrectAnswer)),
		Explanation:   strings.TrimSpace(item.Explanation),
		Difficulty:    strings.ToLower(strings.TrimSpace(item.Difficulty)),
	}
	if err := im.validate.Struct(rec); err != nil {
		return models.Question{}, describe(err)
	}

	return models.Question{
		Question:      rec.Question,
		OptionA:       rec.OptionA,
		OptionB:       rec.OptionB,
		OptionC:       rec.OptionC,
		OptionD:       rec.OptionD,
		CorrectAnswer: rec.CorrectAnswer,
		Explanation:   rec.Explanation,
		Difficulty:    rec.Difficulty,
	}, ""
}

// option prefers the named field and falls back to options[i].
func option(named string, options []string, i int) string {
	if v := strings.TrimSpace(named); v != "" {
		return v
	}
	if i < len(options) {
		return strings.TrimSpace(options[i])
	}
	return ""
}

func describe(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err.Error()
	}
	reasons := make([]string, 0, len(ve))
	for _, fe := range ve {
		switch fe.Tag() {
		case "required":
			reasons = append(reasons, fmt.Sprintf("%s is required", fe.Field()))
		case "oneof":
			reasons = append(reasons, fmt.Sprintf("%s must be one of %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", ")))
		default:
			reasons = append(reasons, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(reasons, "; ")
}
