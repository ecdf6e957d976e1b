package services_test

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/neetpractice/neetpractice/internal/errors"
	"github.com/neetpractice/neetpractice/internal/gateway"
	"github.com/neetpractice/neetpractice/internal/services"
	"github.com/neetpractice/neetpractice/internal/store"
	"github.com/neetpractice/neetpractice/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errNetworkDown = stderrors.New("network down")

// flakyBackend fails batch inserts of questions, or increments on chapters,
// and passes everything else through.
type flakyBackend struct {
	store.Backend
	failInsertAll bool
	failIncrement bool
}

func (b *flakyBackend) InsertAll(ctx context.Context, kind store.Kind, docs []store.Document) ([]int64, error) {
	if b.failInsertAll && kind == store.KindQuestions {
		return nil, errNetworkDown
	}
	return b.Backend.InsertAll(ctx, kind, docs)
}

func (b *flakyBackend) Increment(ctx context.Context, kind store.Kind, id int64, field string, delta int64) error {
	if b.failIncrement && kind == store.KindChapters {
		return errNetworkDown
	}
	return b.Backend.Increment(ctx, kind, id, field, delta)
}

func TestImportQuestions_TagsQuestionsWithTheirSet(t *testing.T) {
	ctx := context.Background()
	gw := testutil.NewTestGateway(t)
	physics := seedSubject(t, gw, "Physics")
	chapter := seedChapter(t, gw, physics.ID, 0, "Optics")
	seedQuestions(t, gw, chapter.ID, 2)

	report, err := services.NewQuestionService(gw).ImportQuestions(ctx, chapter.ID, "optics.json",
		mustJSON(t, []any{importItem("q1"), importItem("q2"), importItem("q3")}))
	require.NoError(t, err)

	tagged, err := gw.Questions.GetByIndex(ctx, "questionSetId", report.QuestionSetID)
	require.NoError(t, err)
	require.Len(t, tagged, 3)
	assert.Equal(t, []int64{3, 4, 5}, []int64{tagged[0].ID, tagged[1].ID, tagged[2].ID})

	next, err := gw.Questions.NextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), next)
}

func TestImportQuestions_BackendFailureLeavesNothingBehind(t *testing.T) {
	tests := []struct {
		name    string
		backend func(store.Backend) *flakyBackend
	}{
		{
			name:    "question batch fails",
			backend: func(b store.Backend) *flakyBackend { return &flakyBackend{Backend: b, failInsertAll: true} },
		},
		{
			name:    "chapter total fails",
			backend: func(b store.Backend) *flakyBackend { return &flakyBackend{Backend: b, failIncrement: true} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			gw := gateway.New(tt.backend(testutil.NewTestBackend(t)))
			physics := seedSubject(t, gw, "Physics")
			chapter := seedChapter(t, gw, physics.ID, 0, "Kinematics")

			items := []any{importItem("q1"), importItem("q2"), importItem("q3"), importItem("q4"), importItem("q5")}
			_, err := services.NewQuestionService(gw).ImportQuestions(ctx, chapter.ID, "", mustJSON(t, items))
			require.Error(t, err)
			appErr, ok := errors.As(err)
			require.True(t, ok)
			assert.Equal(t, errors.ErrCodeInternal, appErr.Code)

			questions, err := gw.Questions.Count(ctx)
			require.NoError(t, err)
			assert.Zero(t, questions)

			sets, err := gw.QuestionSets.Count(ctx)
			require.NoError(t, err)
			assert.Zero(t, sets)

			stored, err := gw.Chapters.GetByID(ctx, chapter.ID)
			require.NoError(t, err)
			assert.Zero(t, stored.TotalQuestions)
		})
	}
}
