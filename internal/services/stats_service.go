package services

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/neetpractice/neetpractice/internal/gateway"
	"github.com/neetpractice/neetpractice/internal/logger"
	"github.com/neetpractice/neetpractice/internal/models"
)

const recentResultsLimit = 10

// StatsService handles statistics-related business logic
type StatsService interface {
	GetDashboard(ctx context.Context) (*models.Dashboard, error)
}

type statsService struct {
	gw *gateway.Gateway
}

// NewStatsService creates a new StatsService
func NewStatsService(gw *gateway.Gateway) StatsService {
	return &statsService{gw: gw}
}

func (s *statsService) GetDashboard(ctx context.Context) (*models.Dashboard, error) {
	log := logger.FromContext(ctx)
	log.Debug("building stats dashboard")

	var (
		stats                               []models.QuizStat
		chapters                            []models.Chapter
		subjectCount, bookCount, questCount int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats, err = s.gw.QuizStats.GetAll(gctx)
		return err
	})
	g.Go(func() (err error) {
		chapters, err = s.gw.Chapters.GetAll(gctx)
		return err
	})
	g.Go(func() (err error) {
		subjectCount, err = s.gw.Subjects.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		bookCount, err = s.gw.Books.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		questCount, err = s.gw.Questions.Count(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, storeError(log, "stats", "dashboard", err)
	}

	dash := &models.Dashboard{
		Summary:  summarize(stats),
		Chapters: chapterStats(stats),
	}
	dash.Summary.Subjects = subjectCount
	dash.Summary.Books = bookCount
	dash.Summary.Chapters = len(chapters)
	dash.Summary.Questions = questCount

	sortNewestFirst(stats)
	if len(stats) > recentResultsLimit {
		stats = stats[:recentResultsLimit]
	}
	dash.RecentResults = stats
	return dash, nil
}

func summarize(stats []models.QuizStat) models.SummaryStat {
	sum := models.SummaryStat{TotalAttempts: len(stats)}
	if len(stats) == 0 {
		return sum
	}
	var scoreTotal, accuracyTotal int
	sum.BestScore = math.MinInt
	for _, st := range stats {
		sum.TotalQuestionsAnswered += st.CorrectCount + st.WrongCount
		sum.TotalCorrect += st.CorrectCount
		sum.TotalWrong += st.WrongCount
		scoreTotal += st.Score
		accuracyTotal += st.Percentage
		sum.BestScore = max(sum.BestScore, st.Score)
	}
	sum.AverageScore = round1(float64(scoreTotal) / float64(len(stats)))
	sum.AverageAccuracy = round1(float64(accuracyTotal) / float64(len(stats)))
	return sum
}

// chapterStats aggregates attempts per chapter, ordered by each chapter's
// first recorded attempt.
func chapterStats(stats []models.QuizStat) []models.ChapterStat {
	type acc struct {
		stat          models.ChapterStat
		scoreTotal    int
		accuracyTotal int
	}
	byChapter := make(map[int64]*acc)
	var order []int64
	for _, st := range stats {
		a, ok := byChapter[st.ChapterID]
		if !ok {
			a = &acc{stat: models.ChapterStat{
				ChapterID:    st.ChapterID,
				ChapterTitle: st.ChapterTitle,
				SubjectTitle: st.SubjectTitle,
				BestScore:    st.Score,
			}}
			byChapter[st.ChapterID] = a
			order = append(order, st.ChapterID)
		}
		a.stat.Attempts++
		a.scoreTotal += st.Score
		a.accuracyTotal += st.Percentage
		a.stat.BestScore = max(a.stat.BestScore, st.Score)
		if st.CompletedAt.After(a.stat.LastAttemptAt) {
			a.stat.LastAttemptAt = st.CompletedAt
			a.stat.ChapterTitle = st.ChapterTitle
			a.stat.SubjectTitle = st.SubjectTitle
		}
	}

	out := make([]models.ChapterStat, 0, len(order))
	for _, id := range order {
		a := byChapter[id]
		a.stat.AverageScore = round1(float64(a.scoreTotal) / float64(a.stat.Attempts))
		a.stat.AverageAccuracy = round1(float64(a.accuracyTotal) / float64(a.stat.Attempts))
		out = append(out, a.stat)
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
