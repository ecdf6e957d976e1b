package services

import (
	"context"
	"time"

	"github.com/neetpractice/neetpractice/internal/errors"
	"github.com/neetpractice/neetpractice/internal/gateway"
	"github.com/neetpractice/neetpractice/internal/logger"
	"github.com/neetpractice/neetpractice/internal/models"
)

// ChapterFilter narrows ListChapters. BookID wins over SubjectID; Direct
// keeps only chapters that are not part of a book.
type ChapterFilter struct {
	SubjectID int64
	BookID    int64
	Direct    bool
}

// ChapterService handles chapter-related business logic
type ChapterService interface {
	ListChapters(ctx context.Context, filter ChapterFilter) ([]models.Chapter, error)
	GetChapter(ctx context.Context, id int64) (*models.Chapter, error)
	CreateChapter(ctx context.Context, in models.Chapter) (*models.Chapter, error)
	UpdateChapter(ctx context.Context, id int64, in models.Chapter) (*models.Chapter, error)
	// DeleteChapter removes the chapter's questions and stored question
	// sets, then the chapter.
	DeleteChapter(ctx context.Context, id int64) error
}

type chapterService struct {
	gw *gateway.Gateway
}

// NewChapterService creates a new ChapterService
func NewChapterService(gw *gateway.Gateway) ChapterService {
	return &chapterService{gw: gw}
}

func (s *chapterService) ListChapters(ctx context.Context, filter ChapterFilter) ([]models.Chapter, error) {
	log := logger.FromContext(ctx)
	log.Debug("listing chapters: subject_id=%d book_id=%d direct=%v", filter.SubjectID, filter.BookID, filter.Direct)

	var (
		chapters []models.Chapter
		err      error
	)
	switch {
	case filter.BookID != 0:
		chapters, err = s.gw.Chapters.GetByIndex(ctx, "bookId", filter.BookID)
	case filter.SubjectID != 0:
		chapters, err = s.gw.Chapters.GetByIndex(ctx, "subjectId", filter.SubjectID)
	default:
		chapters, err = s.gw.Chapters.GetAll(ctx)
	}
	if err != nil {
		return nil, storeError(log, "chapter", "all", err)
	}

	if filter.Direct {
		direct := chapters[:0]
		for _, c := range chapters {
			if c.BookID == 0 {
				direct = append(direct, c)
			}
		}
		chapters = direct
	}
	return chapters, nil
}

func (s *chapterService) GetChapter(ctx context.Context, id int64) (*models.Chapter, error) {
	log := logger.FromContext(ctx)
	log.Debug("getting chapter: id=%d", id)

	chapter, err := s.gw.Chapters.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(log, "chapter", id, err)
	}
	return chapter, nil
}

func (s *chapterService) CreateChapter(ctx context.Context, in models.Chapter) (*models.Chapter, error) {
	log := logger.FromContext(ctx)
	log.Debug("creating chapter: subject_id=%d book_id=%d title=%s", in.SubjectID, in.BookID, in.Title)

	title, err := requireText("title", in.Title)
	if err != nil {
		return nil, err
	}

	subjectID := in.SubjectID
	if in.BookID != 0 {
		book, err := s.gw.Books.GetByID(ctx, in.BookID)
		if err != nil {
			return nil, referenceError(log, "bookId", "book", in.BookID, err)
		}
		if subjectID == 0 {
			subjectID = book.SubjectID
		}
		if subjectID != book.SubjectID {
			return nil, errors.NewValidationError("bookId", "belongs to a different subject")
		}
	}
	if subjectID <= 0 {
		return nil, errors.NewValidationError("subjectId", "is required")
	}
	if _, err := s.gw.Subjects.GetByID(ctx, subjectID); err != nil {
		return nil, referenceError(log, "subjectId", "subject", subjectID, err)
	}

	chapter := &models.Chapter{
		SubjectID:   subjectID,
		BookID:      in.BookID,
		Title:       title,
		Description: in.Description,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := s.gw.Chapters.Add(ctx, chapter); err != nil {
		return nil, storeError(log, "chapter", chapter.ID, err)
	}
	log.Info("created chapter %d under subject %d", chapter.ID, chapter.SubjectID)
	return chapter, nil
}

func (s *chapterService) UpdateChapter(ctx context.Context, id int64, in models.Chapter) (*models.Chapter, error) {
	log := logger.FromContext(ctx)
	log.Debug("updating chapter: id=%d", id)

	title, err := requireText("title", in.Title)
	if err != nil {
		return nil, err
	}
	chapter, err := s.gw.Chapters.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(log, "chapter", id, err)
	}
	chapter.Title = title
	chapter.Description = in.Description
	if err := s.gw.Chapters.Put(ctx, chapter); err != nil {
		return nil, storeError(log, "chapter", id, err)
	}
	return chapter, nil
}

func (s *chapterService) DeleteChapter(ctx context.Context, id int64) error {
	log := logger.FromContext(ctx)
	log.Debug("deleting chapter: id=%d", id)

	if _, err := s.gw.Chapters.GetByID(ctx, id); err != nil {
		return storeError(log, "chapter", id, err)
	}
	if err := deleteChapterCascade(ctx, s.gw, id); err != nil {
		return storeError(log, "chapter", id, err)
	}
	log.Info("deleted chapter %d", id)
	return nil
}

// deleteChapterCascade removes questions and question sets of the chapter,
// then the chapter. Quiz history is kept.
func deleteChapterCascade(ctx context.Context, gw *gateway.Gateway, chapterID int64) error {
	log := logger.FromContext(ctx)
	questions, err := gw.Questions.DeleteByIndex(ctx, "chapterId", chapterID)
	if err != nil {
		return err
	}
	sets, err := gw.QuestionSets.DeleteByIndex(ctx, "chapterId", chapterID)
	if err != nil {
		return err
	}
	log.Debug("chapter %d cascade removed %d questions and %d question sets", chapterID, questions, sets)
	return gw.Chapters.Delete(ctx, chapterID)
}
