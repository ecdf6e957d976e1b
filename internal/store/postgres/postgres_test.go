package postgres_test

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/neetpractice/neetpractice/internal/store"
	"github.com/neetpractice/neetpractice/internal/store/postgres"
	"github.com/neetpractice/neetpractice/internal/testutil"
	"github.com/stretchr/testify/suite"
)

// PostgresBackendSuite runs against a disposable database named by
// TEST_DATABASE_URL. Every collection is emptied before each test.
type PostgresBackendSuite struct {
	suite.Suite
	backend *postgres.Backend
}

func (s *PostgresBackendSuite) SetupSuite() {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		s.T().Skip("TEST_DATABASE_URL not set")
	}
	backend, err := postgres.Open(url)
	s.Require().NoError(err)
	s.Require().NoError(backend.Ping(context.Background()))
	s.backend = backend
}

func (s *PostgresBackendSuite) TearDownSuite() {
	if s.backend != nil {
		testutil.MustClose(s.T(), s.backend)
	}
}

func (s *PostgresBackendSuite) SetupTest() {
	ctx := context.Background()
	for _, kind := range store.Kinds {
		s.Require().NoError(s.backend.Replace(ctx, kind, nil, 0))
	}
}

func raw(v any) store.Document {
	data, _ := json.Marshal(v)
	var head struct {
		ID int64 `json:"id"`
	}
	_ = json.Unmarshal(data, &head)
	return store.Document{ID: head.ID, Data: data}
}

func (s *PostgresBackendSuite) TestInsertFindAndCascadeDelete() {
	ctx := context.Background()
	for i := int64(1); i <= 3; i++ {
		chapter := int64(10)
		if i == 3 {
			chapter = 11
		}
		s.Require().NoError(s.backend.Insert(ctx, store.KindQuestions, raw(map[string]any{"id": i, "chapterId": chapter})))
	}

	err := s.backend.Insert(ctx, store.KindQuestions, raw(map[string]any{"id": 1}))
	s.ErrorIs(err, store.ErrDuplicate)

	found, err := s.backend.Find(ctx, store.KindQuestions, "chapterId", "10")
	s.Require().NoError(err)
	s.Len(found, 2)

	n, err := s.backend.DeleteWhere(ctx, store.KindQuestions, "chapterId", "10")
	s.Require().NoError(err)
	s.Equal(2, n)

	count, err := s.backend.Count(ctx, store.KindQuestions)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *PostgresBackendSuite) TestNextIDAndIncrement() {
	ctx := context.Background()

	id, err := s.backend.NextID(ctx, store.KindChapters)
	s.Require().NoError(err)
	s.Equal(int64(1), id)

	s.Require().NoError(s.backend.Upsert(ctx, store.KindChapters, raw(map[string]any{"id": 20, "title": "Genetics"})))

	id, err = s.backend.NextID(ctx, store.KindChapters)
	s.Require().NoError(err)
	s.Equal(int64(21), id)

	s.Require().NoError(s.backend.Increment(ctx, store.KindChapters, 20, "completedQuestions", 1))
	s.Require().NoError(s.backend.Increment(ctx, store.KindChapters, 20, "completedQuestions", 1))

	doc, err := s.backend.Get(ctx, store.KindChapters, 20)
	s.Require().NoError(err)
	s.JSONEq(`{"id":20,"title":"Genetics","completedQuestions":2}`, string(doc.Data))

	s.ErrorIs(s.backend.Increment(ctx, store.KindChapters, 99, "completedQuestions", 1), store.ErrNotFound)
}

func (s *PostgresBackendSuite) TestInsertAllIsAllOrNothing() {
	ctx := context.Background()
	s.Require().NoError(s.backend.Insert(ctx, store.KindQuestions, raw(map[string]any{"id": 4})))

	ids, err := s.backend.InsertAll(ctx, store.KindQuestions, []store.Document{
		raw(map[string]any{"question": "a"}),
		raw(map[string]any{"question": "b"}),
	})
	s.Require().NoError(err)
	s.Equal([]int64{5, 6}, ids)

	doc, err := s.backend.Get(ctx, store.KindQuestions, 6)
	s.Require().NoError(err)
	s.JSONEq(`{"id":6,"question":"b"}`, string(doc.Data))

	_, err = s.backend.InsertAll(ctx, store.KindQuestions, []store.Document{
		raw(map[string]any{"question": "c"}),
		raw(map[string]any{"id": 4, "question": "clash"}),
	})
	s.ErrorIs(err, store.ErrDuplicate)

	count, err := s.backend.Count(ctx, store.KindQuestions)
	s.Require().NoError(err)
	s.Equal(3, count)
}

func TestPostgresBackendSuite(t *testing.T) {
	suite.Run(t, new(PostgresBackendSuite))
}
