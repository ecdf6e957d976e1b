package services_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/neetpractice/neetpractice/internal/errors"
	"github.com/neetpractice/neetpractice/internal/models"
	"github.com/neetpractice/neetpractice/internal/services"
	"github.com/neetpractice/neetpractice/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupService_RoundTrip(t *testing.T) {
	ctx := context.Background()
	source := testutil.NewTestGateway(t)
	physics := seedSubject(t, source, "Physics")
	chapter := seedChapter(t, source, physics.ID, 0, "Kinematics")
	seedQuestions(t, source, chapter.ID, 3)

	backup, err := services.NewBackupService(source).Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.BackupVersion, backup.Version)
	assert.Equal(t, "local", backup.Backend)
	assert.Len(t, backup.Collections["questions"], 3)

	target := testutil.NewTestGateway(t)
	seedSubject(t, target, "To be replaced")
	report, err := services.NewBackupService(target).Restore(ctx, mustJSON(t, backup))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Restored["subjects"])
	assert.Equal(t, 3, report.Restored["questions"])

	subjects, err := target.Subjects.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, subjects, 1)
	assert.Equal(t, "Physics", subjects[0].Title)

	next := &models.Question{ChapterID: chapter.ID, Question: "new"}
	_, err = target.Questions.Add(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, int64(4), next.ID, "counters restored with the data")
}

func TestBackupService_RejectsInvalidDocuments(t *testing.T) {
	ctx := context.Background()
	gw := testutil.NewTestGateway(t)
	seedSubject(t, gw, "Physics")
	svc := services.NewBackupService(gw)

	tests := []struct {
		name string
		doc  string
	}{
		{name: "malformed", doc: `{"version":`},
		{name: "wrong version", doc: `{"version": 9, "collections": {}}`},
		{name: "unknown kind", doc: `{"version": 1, "collections": {"widgets": [{"id": 1}]}}`},
		{name: "missing id", doc: `{"version": 1, "collections": {"subjects": [{"title": "x"}]}}`},
		{name: "duplicate id", doc: `{"version": 1, "collections": {"subjects": [{"id": 1}, {"id": 1}]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Restore(ctx, []byte(tt.doc))
			appErr, ok := errors.As(err)
			require.True(t, ok)
			assert.Equal(t, errors.ErrCodeValidation, appErr.Code)
		})
	}

	subjects, err := gw.Subjects.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, subjects, 1)
	assert.Equal(t, "Physics", subjects[0].Title)
}

func TestBackupService_ExportIsJSON(t *testing.T) {
	gw := testutil.NewTestGateway(t)
	backup, err := services.NewBackupService(gw).Export(context.Background())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(mustJSON(t, backup), &decoded))
	assert.Contains(t, decoded, "exportedAt")
	assert.Contains(t, decoded, "collections")
}
