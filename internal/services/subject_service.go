package services

import (
	"context"
	"time"

	"github.com/neetpractice/neetpractice/internal/gateway"
	"github.com/neetpractice/neetpractice/internal/logger"
	"github.com/neetpractice/neetpractice/internal/models"
)

// SubjectService handles subject-related business logic
type SubjectService interface {
	ListSubjects(ctx context.Context) ([]models.Subject, error)
	GetSubject(ctx context.Context, id int64) (*models.Subject, error)
	CreateSubject(ctx context.Context, in models.Subject) (*models.Subject, error)
	UpdateSubject(ctx context.Context, id int64, in models.Subject) (*models.Subject, error)
	// DeleteSubject removes the subject's books and chapters (with their
	// questions) before the subject itself.
	DeleteSubject(ctx context.Context, id int64) error
}

type subjectService struct {
	gw *gateway.Gateway
}

// NewSubjectService creates a new SubjectService
func NewSubjectService(gw *gateway.Gateway) SubjectService {
	return &subjectService{gw: gw}
}

func (s *subjectService) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	log := logger.FromContext(ctx)
	log.Debug("listing subjects")

	subjects, err := s.gw.Subjects.GetAll(ctx)
	if err != nil {
		return nil, storeError(log, "subject", "all", err)
	}
	return subjects, nil
}

func (s *subjectService) GetSubject(ctx context.Context, id int64) (*models.Subject, error) {
	log := logger.FromContext(ctx)
	log.Debug("getting subject: id=%d", id)

	subject, err := s.gw.Subjects.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(log, "subject", id, err)
	}
	return subject, nil
}

func (s *subjectService) CreateSubject(ctx context.Context, in models.Subject) (*models.Subject, error) {
	log := logger.FromContext(ctx)
	log.Debug("creating subject: title=%s", in.Title)

	title, err := requireText("title", in.Title)
	if err != nil {
		return nil, err
	}
	subject := &models.Subject{
		Title:       title,
		Description: in.Description,
		Color:       in.Color,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := s.gw.Subjects.Add(ctx, subject); err != nil {
		return nil, storeError(log, "subject", subject.ID, err)
	}
	log.Info("created subject %d", subject.ID)
	return subject, nil
}

func (s *subjectService) UpdateSubject(ctx context.Context, id int64, in models.Subject) (*models.Subject, error) {
	log := logger.FromContext(ctx)
	log.Debug("updating subject: id=%d", id)

	title, err := requireText("title", in.Title)
	if err != nil {
		return nil, err
	}
	subject, err := s.gw.Subjects.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(log, "subject", id, err)
	}
	subject.Title = title
	subject.Description = in.Description
	subject.Color = in.Color
	if err := s.gw.Subjects.Put(ctx, subject); err != nil {
		return nil, storeError(log, "subject", id, err)
	}
	return subject, nil
}

func (s *subjectService) DeleteSubject(ctx context.Context, id int64) error {
	log := logger.FromContext(ctx)
	log.Debug("deleting subject: id=%d", id)

	if _, err := s.gw.Subjects.GetByID(ctx, id); err != nil {
		return storeError(log, "subject", id, err)
	}

	books, err := s.gw.Books.GetByIndex(ctx, "subjectId", id)
	if err != nil {
		return storeError(log, "book", "subject", err)
	}
	for _, book := range books {
		if err := deleteBookCascade(ctx, s.gw, book.ID); err != nil {
			return storeError(log, "book", book.ID, err)
		}
	}

	// Chapters attached directly to the subject.
	chapters, err := s.gw.Chapters.GetByIndex(ctx, "subjectId", id)
	if err != nil {
		return storeError(log, "chapter", "subject", err)
	}
	for _, chapter := range chapters {
		if err := deleteChapterCascade(ctx, s.gw, chapter.ID); err != nil {
			return storeError(log, "chapter", chapter.ID, err)
		}
	}

	if err := s.gw.Subjects.Delete(ctx, id); err != nil {
		return storeError(log, "subject", id, err)
	}
	log.Info("deleted subject %d with %d books and %d direct chapters", id, len(books), len(chapters))
	return nil
}
