package services

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/neetpractice/neetpractice/internal/errors"
	"github.com/neetpractice/neetpractice/internal/gateway"
	"github.com/neetpractice/neetpractice/internal/importer"
	"github.com/neetpractice/neetpractice/internal/logger"
	"github.com/neetpractice/neetpractice/internal/models"
)

// ImportReport summarizes one bulk import into a chapter.
type ImportReport struct {
	ChapterID     int64                `json:"chapterId"`
	QuestionSetID int64                `json:"questionSetId"`
	Total         int                  `json:"total"`
	Accepted      int                  `json:"accepted"`
	Rejected      int                  `json:"rejected"`
	Rejections    []importer.Rejection `json:"rejections"`
}

// QuestionService handles question storage and bulk import
type QuestionService interface {
	ListQuestions(ctx context.Context, chapterID int64) ([]models.Question, error)
	ListQuestionSets(ctx context.Context, chapterID int64) ([]models.QuestionSetBlob, error)
	ImportQuestions(ctx context.Context, chapterID int64, fileName string, data []byte) (*ImportReport, error)
	DeleteQuestion(ctx context.Context, id int64) error
}

type questionService struct {
	gw       *gateway.Gateway
	importer *importer.Importer
}

// NewQuestionService creates a new QuestionService
func NewQuestionService(gw *gateway.Gateway) QuestionService {
	return &questionService{gw: gw, importer: importer.New()}
}

func (s *questionService) ListQuestions(ctx context.Context, chapterID int64) ([]models.Question, error) {
	log := logger.FromContext(ctx)
	log.Debug("listing questions: chapter_id=%d", chapterID)

	if _, err := s.gw.Chapters.GetByID(ctx, chapterID); err != nil {
		return nil, storeError(log, "chapter", chapterID, err)
	}
	questions, err := s.gw.Questions.GetByIndex(ctx, "chapterId", chapterID)
	if err != nil {
		return nil, storeError(log, "question", "chapter", err)
	}
	return questions, nil
}

func (s *questionService) ListQuestionSets(ctx context.Context, chapterID int64) ([]models.QuestionSetBlob, error) {
	log := logger.FromContext(ctx)
	log.Debug("listing question sets: chapter_id=%d", chapterID)

	sets, err := s.gw.QuestionSets.GetByIndex(ctx, "chapterId", chapterID)
	if err != nil {
		return nil, storeError(log, "question set", "chapter", err)
	}
	return sets, nil
}

// ImportQuestions stores every valid record of data under the chapter, keeps
// the raw document as a question set and raises the chapter's question
// total. Either all three writes land or none do; a document with no valid
// record stores nothing.
func (s *questionService) ImportQuestions(ctx context.Context, chapterID int64, fileName string, data []byte) (*ImportReport, error) {
	log := logger.FromContext(ctx).WithField("chapter_id", chapterID)
	log.Debug("importing questions: file=%s bytes=%d", fileName, len(data))

	if _, err := s.gw.Chapters.GetByID(ctx, chapterID); err != nil {
		return nil, storeError(log, "chapter", chapterID, err)
	}

	parsed, err := s.importer.Parse(data)
	switch {
	case stderrors.Is(err, importer.ErrMalformedDocument):
		return nil, errors.NewValidationError("document", err.Error())
	case stderrors.Is(err, importer.ErrNoValidQuestions):
		reason := "no valid questions"
		if len(parsed.Rejections) > 0 {
			reason += ": " + parsed.Rejections[0].Reason
		}
		return nil, errors.NewValidationError("document", reason)
	case err != nil:
		return nil, errors.NewInternalError(err)
	}

	if fileName == "" {
		fileName = "questions.json"
	}
	now := time.Now().UTC()
	blob := &models.QuestionSetBlob{
		ChapterID:     chapterID,
		FileName:      fileName,
		Payload:       string(data),
		QuestionCount: parsed.Accepted,
		UploadedAt:    now,
	}
	if _, err := s.gw.QuestionSets.Add(ctx, blob); err != nil {
		return nil, storeError(log, "question set", chapterID, err)
	}

	batch := make([]*models.Question, len(parsed.Questions))
	for i := range parsed.Questions {
		q := &parsed.Questions[i]
		q.ChapterID = chapterID
		q.QuestionSetID = blob.ID
		q.CreatedAt = now
		batch[i] = q
	}
	if _, err := s.gw.Questions.AddAll(ctx, batch); err != nil {
		s.undoImport(ctx, log, blob.ID, false)
		return nil, storeError(log, "question", chapterID, err)
	}

	if err := s.gw.Chapters.Increment(ctx, chapterID, "totalQuestions", int64(parsed.Accepted)); err != nil {
		s.undoImport(ctx, log, blob.ID, true)
		return nil, storeError(log, "chapter", chapterID, err)
	}

	log.Info("imported %d questions (%d rejected)", parsed.Accepted, parsed.Rejected)
	return &ImportReport{
		ChapterID:     chapterID,
		QuestionSetID: blob.ID,
		Total:         parsed.Total,
		Accepted:      parsed.Accepted,
		Rejected:      parsed.Rejected,
		Rejections:    parsed.Rejections,
	}, nil
}

// undoImport removes what a failed import already wrote. It runs detached
// from ctx so a cancelled request still cleans up.
func (s *questionService) undoImport(ctx context.Context, log *logger.Logger, setID int64, questionsStored bool) {
	ctx = context.WithoutCancel(ctx)
	if questionsStored {
		if _, err := s.gw.Questions.DeleteByIndex(ctx, "questionSetId", setID); err != nil {
			log.Error("failed to roll back questions of set %d: %v", setID, err)
		}
	}
	if err := s.gw.QuestionSets.Delete(ctx, setID); err != nil {
		log.Error("failed to roll back question set %d: %v", setID, err)
	}
	log.Warn("import rolled back: question_set_id=%d", setID)
}

func (s *questionService) DeleteQuestion(ctx context.Context, id int64) error {
	log := logger.FromContext(ctx)
	log.Debug("deleting question: id=%d", id)

	q, err := s.gw.Questions.GetByID(ctx, id)
	if err != nil {
		return storeError(log, "question", id, err)
	}
	if err := s.gw.Questions.Delete(ctx, id); err != nil {
		return storeError(log, "question", id, err)
	}
	if err := s.gw.Chapters.Increment(ctx, q.ChapterID, "totalQuestions", -1); err != nil {
		log.Warn("failed to decrement question total of chapter %d: %v", q.ChapterID, err)
	}
	return nil
}
