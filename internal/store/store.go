// Package store defines the persistence contract shared by every entity kind
// and the backends that implement it.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"sync/atomic"
)

var (
	ErrNotFound     = errors.New("store: record not found")
	ErrDuplicate    = errors.New("store: duplicate id")
	ErrInvalidField = errors.New("store: invalid index field")
	ErrUnknownKind  = errors.New("store: unknown entity kind")
)

// Kind names an entity collection.
type Kind string

const (
	KindSubjects     Kind = "subjects"
	KindBooks        Kind = "books"
	KindChapters     Kind = "chapters"
	KindQuestions    Kind = "questions"
	KindQuestionSets Kind = "questionSets"
	KindQuizStats    Kind = "quizStats"
	KindFolders      Kind = "folders"
	KindFiles        Kind = "files"
	KindMessages     Kind = "messages"
)

// Kinds lists every collection, parents before children.
var Kinds = []Kind{
	KindSubjects,
	KindBooks,
	KindChapters,
	KindQuestions,
	KindQuestionSets,
	KindQuizStats,
	KindFolders,
	KindFiles,
	KindMessages,
}

// Valid reports whether k is one of Kinds.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Document is one record as the backends see it: an id plus its JSON encoding.
// Data always carries the same id under the "id" field.
type Document struct {
	ID   int64
	Data json.RawMessage
}

// Backend is a storage engine for documents of every Kind. Implementations
// create their schema lazily on first use and must be safe for concurrent use.
type Backend interface {
	Name() string
	Ping(ctx context.Context) error
	Close() error

	All(ctx context.Context, kind Kind) ([]Document, error)
	Get(ctx context.Context, kind Kind, id int64) (Document, error)
	Find(ctx context.Context, kind Kind, field, value string) ([]Document, error)
	Count(ctx context.Context, kind Kind) (int, error)
	Insert(ctx context.Context, kind Kind, doc Document) error
	// InsertAll stores every doc in one transaction: all of them or none.
	// Docs with a zero ID get the kind's next ids in order. It returns the
	// stored ids.
	InsertAll(ctx context.Context, kind Kind, docs []Document) ([]int64, error)
	Upsert(ctx context.Context, kind Kind, doc Document) error
	Delete(ctx context.Context, kind Kind, id int64) error
	DeleteWhere(ctx context.Context, kind Kind, field, value string) (int, error)
	NextID(ctx context.Context, kind Kind) (int64, error)
	Counter(ctx context.Context, kind Kind) (int64, error)
	Increment(ctx context.Context, kind Kind, id int64, field string, delta int64) error
	// Replace swaps the whole collection for docs and raises the id counter
	// to at least counter.
	Replace(ctx context.Context, kind Kind, docs []Document, counter int64) error
}

var fieldRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,63}$`)

// ValidateField checks that field can be used as an index lookup key.
func ValidateField(field string) error {
	if !fieldRe.MatchString(field) {
		return fmt.Errorf("%w: %q", ErrInvalidField, field)
	}
	return nil
}

// WithID returns data with its "id" field set to id.
func WithID(data json.RawMessage, id int64) (json.RawMessage, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = make(map[string]json.RawMessage, 1)
	}
	m["id"] = json.RawMessage(fmt.Sprint(id))
	return json.Marshal(m)
}

// IndexValue renders v the way backends compare indexed values: JSON strings
// by content, numbers and booleans by their literal text.
func IndexValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

// Once runs a schema setup function until it succeeds once. A failed run is
// retried by the next caller.
type Once struct {
	done atomic.Bool
	mu   sync.Mutex
}

func (o *Once) Do(ctx context.Context, fn func(context.Context) error) error {
	if o.done.Load() {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.done.Load() {
		return nil
	}
	if err := fn(ctx); err != nil {
		return err
	}
	o.done.Store(true)
	return nil
}
