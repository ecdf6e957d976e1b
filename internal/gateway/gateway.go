// Package gateway binds the typed entity collections to the backend chosen
// at startup.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/neetpractice/neetpractice/internal/config"
	"github.com/neetpractice/neetpractice/internal/logger"
	"github.com/neetpractice/neetpractice/internal/models"
	"github.com/neetpractice/neetpractice/internal/store"
	"github.com/neetpractice/neetpractice/internal/store/local"
	"github.com/neetpractice/neetpractice/internal/store/postgres"
)

// Gateway is the single persistence entry point for services.
type Gateway struct {
	backend store.Backend

	Subjects     *store.Collection[models.Subject, *models.Subject]
	Books        *store.Collection[models.Book, *models.Book]
	Chapters     *store.Collection[models.Chapter, *models.Chapter]
	Questions    *store.Collection[models.Question, *models.Question]
	QuestionSets *store.Collection[models.QuestionSetBlob, *models.QuestionSetBlob]
	QuizStats    *store.Collection[models.QuizStat, *models.QuizStat]
	Folders      *store.Collection[models.Folder, *models.Folder]
	Files        *store.Collection[models.File, *models.File]
	Messages     *store.Collection[models.Message, *models.Message]
}

func New(backend store.Backend) *Gateway {
	return &Gateway{
		backend:      backend,
		Subjects:     store.NewCollection[models.Subject](store.KindSubjects, backend),
		Books:        store.NewCollection[models.Book](store.KindBooks, backend),
		Chapters:     store.NewCollection[models.Chapter](store.KindChapters, backend),
		Questions:    store.NewCollection[models.Question](store.KindQuestions, backend),
		QuestionSets: store.NewCollection[models.QuestionSetBlob](store.KindQuestionSets, backend),
		QuizStats:    store.NewCollection[models.QuizStat](store.KindQuizStats, backend),
		Folders:      store.NewCollection[models.Folder](store.KindFolders, backend),
		Files:        store.NewCollection[models.File](store.KindFiles, backend),
		Messages:     store.NewCollection[models.Message](store.KindMessages, backend),
	}
}

// Open selects the backend from cfg: Postgres when a database URL is set,
// the local SQLite file otherwise. The choice holds for the process lifetime.
func Open(ctx context.Context, cfg config.Config) (*Gateway, error) {
	log := logger.FromContext(ctx).WithPrefix("gateway")

	var (
		backend store.Backend
		err     error
	)
	if cfg.UsesRemoteStore() {
		log.Info("using postgres backend")
		backend, err = postgres.Open(cfg.DatabaseURL)
	} else {
		log.Info("using local backend at %s", cfg.LocalDBPath)
		backend, err = local.Open(cfg.LocalDBPath)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", backendName(cfg), err)
	}

	// An unreachable backend is reported but does not stop startup; the
	// schema is retried on the next operation.
	if err := backend.Ping(ctx); err != nil {
		log.Warn("backend %s not ready: %v", backend.Name(), err)
	}
	return New(backend), nil
}

func backendName(cfg config.Config) string {
	if cfg.UsesRemoteStore() {
		return "postgres"
	}
	return "local"
}

func (g *Gateway) Backend() string { return g.backend.Name() }

func (g *Gateway) Ping(ctx context.Context) error { return g.backend.Ping(ctx) }

func (g *Gateway) Close() error { return g.backend.Close() }

// Snapshot reads every collection and id counter.
func (g *Gateway) Snapshot(ctx context.Context) (*models.Backup, error) {
	backup := &models.Backup{
		Version:     models.BackupVersion,
		ExportedAt:  time.Now().UTC(),
		Backend:     g.backend.Name(),
		Collections: make(map[string][]json.RawMessage, len(store.Kinds)),
		Counters:    make(map[string]int64, len(store.Kinds)),
	}
	for _, kind := range store.Kinds {
		docs, err := g.backend.All(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", kind, err)
		}
		items := make([]json.RawMessage, 0, len(docs))
		for _, doc := range docs {
			items = append(items, doc.Data)
		}
		backup.Collections[string(kind)] = items

		counter, err := g.backend.Counter(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s counter: %w", kind, err)
		}
		backup.Counters[string(kind)] = counter
	}
	return backup, nil
}

// ValidationError describes why a backup document cannot be restored.
type ValidationError struct {
	Kind  string
	Index int
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s[%d]: %v", e.Kind, e.Index, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Restore replaces every collection present in backup. All collections are
// decoded and checked before the first write. It returns the number of
// records written per kind.
func (g *Gateway) Restore(ctx context.Context, backup *models.Backup) (map[string]int, error) {
	log := logger.FromContext(ctx).WithPrefix("gateway")

	prepared, err := prepareRestore(backup)
	if err != nil {
		return nil, err
	}

	written := make(map[string]int, len(prepared))
	for _, kind := range store.Kinds {
		docs, ok := prepared[kind]
		if !ok {
			continue
		}
		if err := g.backend.Replace(ctx, kind, docs, backup.Counters[string(kind)]); err != nil {
			log.Error("restore of %s failed after %d collections: %v", kind, len(written), err)
			return written, fmt.Errorf("restore %s: %w", kind, err)
		}
		written[string(kind)] = len(docs)
	}
	log.Info("restored %d collections", len(written))
	return written, nil
}

func prepareRestore(backup *models.Backup) (map[store.Kind][]store.Document, error) {
	if backup == nil {
		return nil, &ValidationError{Kind: "backup", Index: -1, Err: fmt.Errorf("empty document")}
	}
	if backup.Version != models.BackupVersion {
		return nil, &ValidationError{Kind: "backup", Index: -1, Err: fmt.Errorf("unsupported version %d", backup.Version)}
	}

	prepared := make(map[store.Kind][]store.Document, len(backup.Collections))
	for name, items := range backup.Collections {
		kind := store.Kind(name)
		check, ok := checkers[kind]
		if !ok {
			return nil, &ValidationError{Kind: name, Index: -1, Err: store.ErrUnknownKind}
		}
		seen := make(map[int64]struct{}, len(items))
		docs := make([]store.Document, 0, len(items))
		for i, item := range items {
			doc, err := check(item)
			if err != nil {
				return nil, &ValidationError{Kind: name, Index: i, Err: err}
			}
			if _, dup := seen[doc.ID]; dup {
				return nil, &ValidationError{Kind: name, Index: i, Err: fmt.Errorf("%w: %d", store.ErrDuplicate, doc.ID)}
			}
			seen[doc.ID] = struct{}{}
			docs = append(docs, doc)
		}
		prepared[kind] = docs
	}
	return prepared, nil
}

var checkers = map[store.Kind]func(json.RawMessage) (store.Document, error){
	store.KindSubjects:     check[models.Subject],
	store.KindBooks:        check[models.Book],
	store.KindChapters:     check[models.Chapter],
	store.KindQuestions:    check[models.Question],
	store.KindQuestionSets: check[models.QuestionSetBlob],
	store.KindQuizStats:    check[models.QuizStat],
	store.KindFolders:      check[models.Folder],
	store.KindFiles:        check[models.File],
	store.KindMessages:     check[models.Message],
}

// check decodes raw as T and re-encodes it so restored records carry only
// known fields.
func check[T any, P store.Record[T]](raw json.RawMessage) (store.Document, error) {
	var rec T
	if err := json.Unmarshal(raw, P(&rec)); err != nil {
		return store.Document{}, err
	}
	id := P(&rec).EntityID()
	if id <= 0 {
		return store.Document{}, fmt.Errorf("missing or invalid id")
	}
	data, err := json.Marshal(P(&rec))
	if err != nil {
		return store.Document{}, err
	}
	return store.Document{ID: id, Data: data}, nil
}
