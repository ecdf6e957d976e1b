// Package local is the embedded fallback backend: a SQLite file used as a
// key-value store, one JSON array per entity collection.
package local

import (
	"bytes"
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
	"github.com/neetpractice/neetpractice/internal/logger"
	"github.com/neetpractice/neetpractice/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const keyPrefix = "neet_"

var sqlBuilder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

type Backend struct {
	db     *sql.DB
	log    *logger.Logger
	schema store.Once
}

// Open opens (or creates) the SQLite file at path. The schema is created on
// first use, not here.
func Open(path string) (*Backend, error) {
	log := logger.Default().WithPrefix("local-store")

	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL"
	}
	log.Info("opening local store: %s", path)

	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		log.Error("failed to open local store: %v", err)
		return nil, err
	}
	return New(sqlDB), nil
}

// New wraps an already opened SQLite handle.
func New(db *sql.DB) *Backend {
	// A single connection serializes read-modify-write of whole collections
	// and keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	return &Backend{db: db, log: logger.Default().WithPrefix("local-store")}
}

func (b *Backend) Name() string { return "local" }

func (b *Backend) Ping(ctx context.Context) error {
	if err := b.db.PingContext(ctx); err != nil {
		return err
	}
	return b.ensure(ctx)
}

func (b *Backend) Close() error {
	b.log.Debug("closing local store")
	return b.db.Close()
}

func (b *Backend) ensure(ctx context.Context) error {
	return b.schema.Do(ctx, b.applyMigrations)
}

func (b *Backend) applyMigrations(ctx context.Context) error {
	if _, err := b.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied_at DATETIME DEFAULT CURRENT_TIMESTAMP)`); err != nil {
		return err
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return err
	}

	for _, entry := range entries {
		version := entry.Name()
		var v string
		err := b.db.QueryRowContext(ctx, `SELECT version FROM schema_migrations WHERE version = ?`, version).Scan(&v)
		if err == nil {
			b.log.Debug("migration %s already applied, skipping", version)
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		sqlBytes, err := migrationsFS.ReadFile("migrations/" + version)
		if err != nil {
			return err
		}
		b.log.Info("applying migration: %s", version)
		if _, err := b.db.ExecContext(ctx, string(sqlBytes)); err != nil {
			b.log.Error("migration %s failed: %v", version, err)
			return fmt.Errorf("apply migration %s: %w", version, err)
		}
		if _, err := b.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return err
		}
	}
	return nil
}

func collectionKey(kind store.Kind) string { return keyPrefix + string(kind) }

func counterKey(kind store.Kind) string { return keyPrefix + "counter_" + string(kind) }

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (b *Backend) prepare(ctx context.Context, kind store.Kind) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %s", store.ErrUnknownKind, kind)
	}
	return b.ensure(ctx)
}

func (b *Backend) readValue(ctx context.Context, q queryer, key string) (string, bool, error) {
	query, args, err := sqlBuilder.Select("value").From("kv").Where(squirrel.Eq{"key": key}).ToSql()
	if err != nil {
		return "", false, err
	}
	var value string
	err = q.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (b *Backend) writeValue(ctx context.Context, q queryer, key, value string) error {
	query, args, err := sqlBuilder.Insert("kv").
		Columns("key", "value").
		Values(key, value).
		Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP").
		ToSql()
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, query, args...)
	return err
}

func (b *Backend) load(ctx context.Context, q queryer, kind store.Kind) ([]store.Document, error) {
	raw, ok, err := b.readValue(ctx, q, collectionKey(kind))
	if err != nil || !ok {
		return nil, err
	}
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decode %s collection: %w", kind, err)
	}
	docs := make([]store.Document, 0, len(items))
	for i, item := range items {
		id, err := documentID(item)
		if err != nil {
			return nil, fmt.Errorf("%s item %d: %w", kind, i, err)
		}
		docs = append(docs, store.Document{ID: id, Data: item})
	}
	return docs, nil
}

func (b *Backend) save(ctx context.Context, q queryer, kind store.Kind, docs []store.Document) error {
	items := make([]json.RawMessage, len(docs))
	for i, doc := range docs {
		items[i] = doc.Data
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return b.writeValue(ctx, q, collectionKey(kind), string(raw))
}

func (b *Backend) readCounter(ctx context.Context, q queryer, kind store.Kind) (int64, error) {
	raw, ok, err := b.readValue(ctx, q, counterKey(kind))
	if err != nil || !ok {
		return 0, err
	}
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("decode %s counter: %w", kind, err)
	}
	return n, nil
}

// mutate runs a read-modify-write of one collection inside a transaction.
func (b *Backend) mutate(ctx context.Context, kind store.Kind, fn func(docs []store.Document) ([]store.Document, error)) error {
	if err := b.prepare(ctx, kind); err != nil {
		return err
	}
	return tx(ctx, b.db, func(t *sql.Tx) error {
		docs, err := b.load(ctx, t, kind)
		if err != nil {
			return err
		}
		next, err := fn(docs)
		if err != nil {
			return err
		}
		return b.save(ctx, t, kind, next)
	})
}

func (b *Backend) All(ctx context.Context, kind store.Kind) ([]store.Document, error) {
	if err := b.prepare(ctx, kind); err != nil {
		return nil, err
	}
	docs, err := b.load(ctx, b.db, kind)
	if err != nil {
		b.log.Error("failed to load %s: %v", kind, err)
		return nil, err
	}
	sortDocuments(docs)
	return docs, nil
}

func (b *Backend) Get(ctx context.Context, kind store.Kind, id int64) (store.Document, error) {
	docs, err := b.All(ctx, kind)
	if err != nil {
		return store.Document{}, err
	}
	for _, doc := range docs {
		if doc.ID == id {
			return doc, nil
		}
	}
	return store.Document{}, store.ErrNotFound
}

func (b *Backend) Find(ctx context.Context, kind store.Kind, field, value string) ([]store.Document, error) {
	docs, err := b.All(ctx, kind)
	if err != nil {
		return nil, err
	}
	var out []store.Document
	for _, doc := range docs {
		if v, ok := fieldText(doc.Data, field); ok && v == value {
			out = append(out, doc)
		}
	}
	b.log.Debug("find %s where %s=%s: %d matches", kind, field, value, len(out))
	return out, nil
}

func (b *Backend) Count(ctx context.Context, kind store.Kind) (int, error) {
	docs, err := b.All(ctx, kind)
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

func (b *Backend) Insert(ctx context.Context, kind store.Kind, doc store.Document) error {
	b.log.Debug("inserting %s id=%d", kind, doc.ID)
	return b.mutate(ctx, kind, func(docs []store.Document) ([]store.Document, error) {
		for _, existing := range docs {
			if existing.ID == doc.ID {
				return nil, store.ErrDuplicate
			}
		}
		return append(docs, doc), nil
	})
}

func (b *Backend) InsertAll(ctx context.Context, kind store.Kind, batch []store.Document) ([]int64, error) {
	if err := b.prepare(ctx, kind); err != nil {
		return nil, err
	}
	b.log.Debug("inserting %d %s", len(batch), kind)

	var ids []int64
	err := tx(ctx, b.db, func(t *sql.Tx) error {
		ids = make([]int64, 0, len(batch))
		docs, err := b.load(ctx, t, kind)
		if err != nil {
			return err
		}
		current, err := b.readCounter(ctx, t, kind)
		if err != nil {
			return err
		}
		seen := make(map[int64]struct{}, len(docs)+len(batch))
		for _, doc := range docs {
			seen[doc.ID] = struct{}{}
		}

		next := max(current, maxID(docs), maxID(batch))
		for _, doc := range batch {
			if doc.ID == 0 {
				next++
				data, err := store.WithID(doc.Data, next)
				if err != nil {
					return err
				}
				doc = store.Document{ID: next, Data: data}
			}
			if _, dup := seen[doc.ID]; dup {
				return fmt.Errorf("%w: %d", store.ErrDuplicate, doc.ID)
			}
			seen[doc.ID] = struct{}{}
			docs = append(docs, doc)
			ids = append(ids, doc.ID)
		}

		if err := b.save(ctx, t, kind, docs); err != nil {
			return err
		}
		return b.writeValue(ctx, t, counterKey(kind), strconv.FormatInt(next, 10))
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (b *Backend) Upsert(ctx context.Context, kind store.Kind, doc store.Document) error {
	b.log.Debug("upserting %s id=%d", kind, doc.ID)
	return b.mutate(ctx, kind, func(docs []store.Document) ([]store.Document, error) {
		for i := range docs {
			if docs[i].ID == doc.ID {
				docs[i] = doc
				return docs, nil
			}
		}
		return append(docs, doc), nil
	})
}

func (b *Backend) Delete(ctx context.Context, kind store.Kind, id int64) error {
	b.log.Debug("deleting %s id=%d", kind, id)
	return b.mutate(ctx, kind, func(docs []store.Document) ([]store.Document, error) {
		out := docs[:0]
		for _, doc := range docs {
			if doc.ID != id {
				out = append(out, doc)
			}
		}
		return out, nil
	})
}

func (b *Backend) DeleteWhere(ctx context.Context, kind store.Kind, field, value string) (int, error) {
	removed := 0
	err := b.mutate(ctx, kind, func(docs []store.Document) ([]store.Document, error) {
		out := docs[:0]
		for _, doc := range docs {
			if v, ok := fieldText(doc.Data, field); ok && v == value {
				removed++
				continue
			}
			out = append(out, doc)
		}
		return out, nil
	})
	if err != nil {
		return 0, err
	}
	b.log.Debug("deleted %d %s where %s=%s", removed, kind, field, value)
	return removed, nil
}

// NextID never hands out an id at or below one already stored, even when
// records were written with explicit ids.
func (b *Backend) NextID(ctx context.Context, kind store.Kind) (int64, error) {
	if err := b.prepare(ctx, kind); err != nil {
		return 0, err
	}
	var next int64
	err := tx(ctx, b.db, func(t *sql.Tx) error {
		current, err := b.readCounter(ctx, t, kind)
		if err != nil {
			return err
		}
		docs, err := b.load(ctx, t, kind)
		if err != nil {
			return err
		}
		next = max(current, maxID(docs)) + 1
		return b.writeValue(ctx, t, counterKey(kind), strconv.FormatInt(next, 10))
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (b *Backend) Counter(ctx context.Context, kind store.Kind) (int64, error) {
	if err := b.prepare(ctx, kind); err != nil {
		return 0, err
	}
	return b.readCounter(ctx, b.db, kind)
}

func (b *Backend) Increment(ctx context.Context, kind store.Kind, id int64, field string, delta int64) error {
	b.log.Debug("incrementing %s id=%d %s by %d", kind, id, field, delta)
	return b.mutate(ctx, kind, func(docs []store.Document) ([]store.Document, error) {
		for i := range docs {
			if docs[i].ID != id {
				continue
			}
			data, err := addToField(docs[i].Data, field, delta)
			if err != nil {
				return nil, err
			}
			docs[i].Data = data
			return docs, nil
		}
		return nil, store.ErrNotFound
	})
}

func (b *Backend) Replace(ctx context.Context, kind store.Kind, docs []store.Document, counter int64) error {
	if err := b.prepare(ctx, kind); err != nil {
		return err
	}
	b.log.Info("replacing %s collection with %d records", kind, len(docs))
	return tx(ctx, b.db, func(t *sql.Tx) error {
		if err := b.save(ctx, t, kind, docs); err != nil {
			return err
		}
		return b.writeValue(ctx, t, counterKey(kind), strconv.FormatInt(max(counter, maxID(docs)), 10))
	})
}

func tx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	log := logger.FromContext(ctx).WithPrefix("local-store")
	t, err := db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction: %v", err)
		return err
	}
	if err := fn(t); err != nil {
		_ = t.Rollback()
		log.Debug("transaction rolled back due to error: %v", err)
		return err
	}
	if err := t.Commit(); err != nil {
		log.Error("failed to commit transaction: %v", err)
		return err
	}
	return nil
}

func sortDocuments(docs []store.Document) {
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
}

func maxID(docs []store.Document) int64 {
	var m int64
	for _, doc := range docs {
		if doc.ID > m {
			m = doc.ID
		}
	}
	return m
}

func documentID(data json.RawMessage) (int64, error) {
	v, ok := fieldText(data, "id")
	if !ok {
		return 0, errors.New("record has no id")
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("record id %q: %w", v, err)
	}
	return id, nil
}

// fieldText extracts a top-level field as text: strings unquoted, numbers and
// booleans as written. Missing and null fields report false.
func fieldText(data json.RawMessage, field string) (string, bool) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return "", false
	}
	raw, ok := m[field]
	if !ok {
		return "", false
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	return string(raw), true
}

func addToField(data json.RawMessage, field string, delta int64) (json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	var current int64
	switch v := m[field].(type) {
	case nil:
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return nil, fmt.Errorf("field %s is not an integer: %w", field, err)
		}
		current = n
	default:
		return nil, fmt.Errorf("field %s is not numeric", field)
	}
	m[field] = current + delta
	return json.Marshal(m)
}
