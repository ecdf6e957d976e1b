package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/neetpractice/neetpractice/internal/models"
	"github.com/neetpractice/neetpractice/internal/services"
	"github.com/neetpractice/neetpractice/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsService_EmptyDashboard(t *testing.T) {
	gw := testutil.NewTestGateway(t)
	dash, err := services.NewStatsService(gw).GetDashboard(context.Background())
	require.NoError(t, err)

	assert.Zero(t, dash.Summary.TotalAttempts)
	assert.Zero(t, dash.Summary.BestScore)
	assert.Empty(t, dash.Chapters)
	assert.Empty(t, dash.RecentResults)
}

func TestStatsService_Dashboard(t *testing.T) {
	ctx := context.Background()
	gw := testutil.NewTestGateway(t)
	physics := seedSubject(t, gw, "Physics")
	seedBook(t, gw, physics.ID, "HC Verma")
	kinematics := seedChapter(t, gw, physics.ID, 0, "Kinematics")
	optics := seedChapter(t, gw, physics.ID, 0, "Optics")
	seedQuestions(t, gw, kinematics.ID, 4)

	results := services.NewResultService(gw, "")
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	attempts := []struct {
		chapter *models.Chapter
		res     models.QuizResult
	}{
		{kinematics, models.QuizResult{TotalQuestions: 4, CorrectCount: 2, IncorrectCount: 1, Score: 7, AccuracyPercent: 67, ChapterTitle: "Kinematics"}},
		{kinematics, models.QuizResult{TotalQuestions: 4, CorrectCount: 4, Score: 16, AccuracyPercent: 100, ChapterTitle: "Kinematics"}},
		{optics, models.QuizResult{TotalQuestions: 2, IncorrectCount: 2, Score: -2, AccuracyPercent: 0, ChapterTitle: "Optics"}},
	}
	for i, a := range attempts {
		a.res.Timestamp = base.Add(time.Duration(i) * time.Hour)
		_, err := results.Record(ctx, a.chapter.ID, a.res)
		require.NoError(t, err)
	}

	dash, err := services.NewStatsService(gw).GetDashboard(ctx)
	require.NoError(t, err)

	sum := dash.Summary
	assert.Equal(t, 3, sum.TotalAttempts)
	assert.Equal(t, 9, sum.TotalQuestionsAnswered)
	assert.Equal(t, 6, sum.TotalCorrect)
	assert.Equal(t, 3, sum.TotalWrong)
	assert.Equal(t, 16, sum.BestScore)
	assert.InDelta(t, 7.0, sum.AverageScore, 0.001)
	assert.InDelta(t, 55.7, sum.AverageAccuracy, 0.001)
	assert.Equal(t, 1, sum.Subjects)
	assert.Equal(t, 1, sum.Books)
	assert.Equal(t, 2, sum.Chapters)
	assert.Equal(t, 4, sum.Questions)

	require.Len(t, dash.Chapters, 2)
	kin := dash.Chapters[0]
	assert.Equal(t, kinematics.ID, kin.ChapterID)
	assert.Equal(t, 2, kin.Attempts)
	assert.Equal(t, 16, kin.BestScore)
	assert.InDelta(t, 83.5, kin.AverageAccuracy, 0.001)
	assert.True(t, kin.LastAttemptAt.Equal(base.Add(time.Hour)))
	assert.Equal(t, -2, dash.Chapters[1].BestScore)

	require.Len(t, dash.RecentResults, 3)
	assert.Equal(t, "Optics", dash.RecentResults[0].ChapterTitle)
}

func TestStatsService_RecentResultsCapped(t *testing.T) {
	ctx := context.Background()
	gw := testutil.NewTestGateway(t)
	results := services.NewResultService(gw, "")
	for i := 0; i < 12; i++ {
		_, err := results.Record(ctx, 1, models.QuizResult{Score: i})
		require.NoError(t, err)
	}

	dash, err := services.NewStatsService(gw).GetDashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, dash.Summary.TotalAttempts)
	assert.Len(t, dash.RecentResults, 10)
}
