package services

import (
	"context"
	"time"

	"github.com/neetpractice/neetpractice/internal/errors"
	"github.com/neetpractice/neetpractice/internal/gateway"
	"github.com/neetpractice/neetpractice/internal/logger"
	"github.com/neetpractice/neetpractice/internal/models"
)

// BookService handles book-related business logic
type BookService interface {
	// ListBooks returns every book, or those of subjectID when it is non-zero.
	ListBooks(ctx context.Context, subjectID int64) ([]models.Book, error)
	GetBook(ctx context.Context, id int64) (*models.Book, error)
	CreateBook(ctx context.Context, in models.Book) (*models.Book, error)
	UpdateBook(ctx context.Context, id int64, in models.Book) (*models.Book, error)
	DeleteBook(ctx context.Context, id int64) error
}

type bookService struct {
	gw *gateway.Gateway
}

// NewBookService creates a new BookService
func NewBookService(gw *gateway.Gateway) BookService {
	return &bookService{gw: gw}
}

func (s *bookService) ListBooks(ctx context.Context, subjectID int64) ([]models.Book, error) {
	log := logger.FromContext(ctx)
	log.Debug("listing books: subject_id=%d", subjectID)

	var (
		books []models.Book
		err   error
	)
	if subjectID != 0 {
		books, err = s.gw.Books.GetByIndex(ctx, "subjectId", subjectID)
	} else {
		books, err = s.gw.Books.GetAll(ctx)
	}
	if err != nil {
		return nil, storeError(log, "book", "all", err)
	}
	return books, nil
}

func (s *bookService) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	log := logger.FromContext(ctx)
	log.Debug("getting book: id=%d", id)

	book, err := s.gw.Books.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(log, "book", id, err)
	}
	return book, nil
}

func (s *bookService) CreateBook(ctx context.Context, in models.Book) (*models.Book, error) {
	log := logger.FromContext(ctx)
	log.Debug("creating book: subject_id=%d title=%s", in.SubjectID, in.Title)

	title, err := requireText("title", in.Title)
	if err != nil {
		return nil, err
	}
	if err := s.requireSubject(ctx, log, in.SubjectID); err != nil {
		return nil, err
	}

	book := &models.Book{
		SubjectID:   in.SubjectID,
		Title:       title,
		Author:      in.Author,
		Description: in.Description,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := s.gw.Books.Add(ctx, book); err != nil {
		return nil, storeError(log, "book", book.ID, err)
	}
	log.Info("created book %d under subject %d", book.ID, book.SubjectID)
	return book, nil
}

func (s *bookService) UpdateBook(ctx context.Context, id int64, in models.Book) (*models.Book, error) {
	log := logger.FromContext(ctx)
	log.Debug("updating book: id=%d", id)

	title, err := requireText("title", in.Title)
	if err != nil {
		return nil, err
	}
	book, err := s.gw.Books.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(log, "book", id, err)
	}
	book.Title = title
	book.Author = in.Author
	book.Description = in.Description
	if err := s.gw.Books.Put(ctx, book); err != nil {
		return nil, storeError(log, "book", id, err)
	}
	return book, nil
}

func (s *bookService) DeleteBook(ctx context.Context, id int64) error {
	log := logger.FromContext(ctx)
	log.Debug("deleting book: id=%d", id)

	if _, err := s.gw.Books.GetByID(ctx, id); err != nil {
		return storeError(log, "book", id, err)
	}
	if err := deleteBookCascade(ctx, s.gw, id); err != nil {
		return storeError(log, "book", id, err)
	}
	log.Info("deleted book %d", id)
	return nil
}

func (s *bookService) requireSubject(ctx context.Context, log *logger.Logger, subjectID int64) error {
	if subjectID <= 0 {
		return errors.NewValidationError("subjectId", "is required")
	}
	_, err := s.gw.Subjects.GetByID(ctx, subjectID)
	return referenceError(log, "subjectId", "subject", subjectID, err)
}

// deleteBookCascade removes the book's chapters, then the book.
func deleteBookCascade(ctx context.Context, gw *gateway.Gateway, bookID int64) error {
	chapters, err := gw.Chapters.GetByIndex(ctx, "bookId", bookID)
	if err != nil {
		return err
	}
	for _, chapter := range chapters {
		if err := deleteChapterCascade(ctx, gw, chapter.ID); err != nil {
			return err
		}
	}
	return gw.Books.Delete(ctx, bookID)
}
