package services

import (
	"context"
	stderrors "errors"
	"sort"
	"strings"
	"time"

	"github.com/neetpractice/neetpractice/internal/gateway"
	"github.com/neetpractice/neetpractice/internal/logger"
	"github.com/neetpractice/neetpractice/internal/models"
	"github.com/neetpractice/neetpractice/internal/store"
)

// StatDateLayout renders QuizStat.Date, e.g. "14/03/2024, 9:05:07 pm".
const StatDateLayout = "02/01/2006, 3:04:05 pm"

// ResultService records and lists completed quiz attempts
type ResultService interface {
	// Record stores one attempt and counts it against the chapter. Every
	// call adds a record; attempts are not deduplicated.
	Record(ctx context.Context, chapterID int64, result models.QuizResult) (*models.QuizStat, error)
	// History lists attempts newest first, for one chapter when chapterID
	// is non-zero.
	History(ctx context.Context, chapterID int64) ([]models.QuizStat, error)
}

type resultService struct {
	gw                  *gateway.Gateway
	defaultSubjectTitle string
}

// NewResultService creates a new ResultService
func NewResultService(gw *gateway.Gateway, defaultSubjectTitle string) ResultService {
	if strings.TrimSpace(defaultSubjectTitle) == "" {
		defaultSubjectTitle = "NEET"
	}
	return &resultService{gw: gw, defaultSubjectTitle: defaultSubjectTitle}
}

func (s *resultService) Record(ctx context.Context, chapterID int64, result models.QuizResult) (*models.QuizStat, error) {
	log := logger.FromContext(ctx).WithField("chapter_id", chapterID)
	log.Debug("recording quiz result: score=%d", result.Score)

	completedAt := result.Timestamp
	if completedAt.IsZero() {
		completedAt = time.Now()
	}
	subject := result.SubjectTitle
	if strings.TrimSpace(subject) == "" {
		subject = s.defaultSubjectTitle
	}

	stat := &models.QuizStat{
		Date:            completedAt.Format(StatDateLayout),
		ChapterID:       chapterID,
		ChapterTitle:    result.ChapterTitle,
		SubjectTitle:    subject,
		Score:           result.Score,
		TotalQuestions:  result.TotalQuestions,
		CorrectCount:    result.CorrectCount,
		WrongCount:      result.IncorrectCount,
		UnansweredCount: result.UnansweredCount,
		Percentage:      result.AccuracyPercent,
		CompletedAt:     completedAt.UTC(),
	}
	if _, err := s.gw.QuizStats.Add(ctx, stat); err != nil {
		return nil, storeError(log, "quiz result", chapterID, err)
	}

	err := s.gw.Chapters.Increment(ctx, chapterID, "completedQuestions", 1)
	switch {
	case stderrors.Is(err, store.ErrNotFound):
		log.Warn("chapter %d no longer exists, result %d kept without progress update", chapterID, stat.ID)
	case err != nil:
		return stat, storeError(log, "chapter", chapterID, err)
	}

	log.Info("recorded quiz result %d", stat.ID)
	return stat, nil
}

func (s *resultService) History(ctx context.Context, chapterID int64) ([]models.QuizStat, error) {
	log := logger.FromContext(ctx)
	log.Debug("listing quiz history: chapter_id=%d", chapterID)

	var (
		stats []models.QuizStat
		err   error
	)
	if chapterID != 0 {
		stats, err = s.gw.QuizStats.GetByIndex(ctx, "chapterId", chapterID)
	} else {
		stats, err = s.gw.QuizStats.GetAll(ctx)
	}
	if err != nil {
		return nil, storeError(log, "quiz result", "all", err)
	}
	sortNewestFirst(stats)
	return stats, nil
}

func sortNewestFirst(stats []models.QuizStat) {
	sort.SliceStable(stats, func(i, j int) bool {
		if !stats[i].CompletedAt.Equal(stats[j].CompletedAt) {
			return stats[i].CompletedAt.After(stats[j].CompletedAt)
		}
		return stats[i].ID > stats[j].ID
	})
}
