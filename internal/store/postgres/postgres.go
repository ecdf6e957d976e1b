// Package postgres is the remote backend: one JSONB document table per
// entity kind plus an entity_counters table for id allocation.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/neetpractice/neetpractice/internal/logger"
	"github.com/neetpractice/neetpractice/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrationLockKey serializes schema setup across processes sharing a database.
const migrationLockKey = 7_311_024

var sqlBuilder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var tables = map[store.Kind]string{
	store.KindSubjects:     "neet_subjects",
	store.KindBooks:        "neet_books",
	store.KindChapters:     "neet_chapters",
	store.KindQuestions:    "neet_questions",
	store.KindQuestionSets: "neet_question_sets",
	store.KindQuizStats:    "neet_quiz_stats",
	store.KindFolders:      "neet_folders",
	store.KindFiles:        "neet_files",
	store.KindMessages:     "neet_messages",
}

type Backend struct {
	db     *sql.DB
	log    *logger.Logger
	schema store.Once
}

// Open prepares a pgx-backed pool for url. No connection is made until first use.
func Open(url string) (*Backend, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return New(db), nil
}

func New(db *sql.DB) *Backend {
	return &Backend{db: db, log: logger.Default().WithPrefix("postgres-store")}
}

func (b *Backend) Name() string { return "postgres" }

func (b *Backend) Ping(ctx context.Context) error {
	if err := b.db.PingContext(ctx); err != nil {
		return err
	}
	return b.ensure(ctx)
}

func (b *Backend) Close() error {
	b.log.Debug("closing postgres pool")
	return b.db.Close()
}

func (b *Backend) ensure(ctx context.Context) error {
	return b.schema.Do(ctx, b.applyMigrations)
}

func (b *Backend) applyMigrations(ctx context.Context) error {
	conn, err := b.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, migrationLockKey); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		if _, err := conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, migrationLockKey); err != nil {
			b.log.Warn("failed to release migration lock: %v", err)
		}
	}()

	if _, err := conn.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied_at TIMESTAMPTZ NOT NULL DEFAULT now())`); err != nil {
		return err
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return err
	}
	for _, entry := range entries {
		version := entry.Name()
		var v string
		err := conn.QueryRowContext(ctx, `SELECT version FROM schema_migrations WHERE version = $1`, version).Scan(&v)
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
		if _, err := conn.ExecContext(ctx, string(sqlBytes)); err != nil {
			b.log.Error("migration %s failed: %v", version, err)
			return fmt.Errorf("apply migration %s: %w", version, err)
		}
		if _, err := conn.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
			return err
		}
	}
	return nil
}

func (b *Backend) table(ctx context.Context, kind store.Kind) (string, error) {
	t, ok := tables[kind]
	if !ok {
		return "", fmt.Errorf("%w: %s", store.ErrUnknownKind, kind)
	}
	if err := b.ensure(ctx); err != nil {
		return "", err
	}
	return t, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (b *Backend) query(ctx context.Context, q queryer, sb squirrel.SelectBuilder) ([]store.Document, error) {
	query, args, err := sb.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []store.Document
	for rows.Next() {
		var doc store.Document
		var data []byte
		if err := rows.Scan(&doc.ID, &data); err != nil {
			return nil, err
		}
		doc.Data = data
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (b *Backend) All(ctx context.Context, kind store.Kind) ([]store.Document, error) {
	t, err := b.table(ctx, kind)
	if err != nil {
		return nil, err
	}
	docs, err := b.query(ctx, b.db, sqlBuilder.Select("id", "data").From(t).OrderBy("id"))
	if err != nil {
		b.log.Error("failed to load %s: %v", kind, err)
		return nil, err
	}
	return docs, nil
}

func (b *Backend) Get(ctx context.Context, kind store.Kind, id int64) (store.Document, error) {
	t, err := b.table(ctx, kind)
	if err != nil {
		return store.Document{}, err
	}
	docs, err := b.query(ctx, b.db, sqlBuilder.Select("id", "data").From(t).Where(squirrel.Eq{"id": id}))
	if err != nil {
		return store.Document{}, err
	}
	if len(docs) == 0 {
		return store.Document{}, store.ErrNotFound
	}
	return docs[0], nil
}

func (b *Backend) Find(ctx context.Context, kind store.Kind, field, value string) ([]store.Document, error) {
	t, err := b.table(ctx, kind)
	if err != nil {
		return nil, err
	}
	if err := store.ValidateField(field); err != nil {
		return nil, err
	}
	docs, err := b.query(ctx, b.db, sqlBuilder.Select("id", "data").From(t).
		Where("data->>?::text = ?", field, value).
		OrderBy("id"))
	if err != nil {
		return nil, err
	}
	b.log.Debug("find %s where %s=%s: %d matches", kind, field, value, len(docs))
	return docs, nil
}

func (b *Backend) Count(ctx context.Context, kind store.Kind) (int, error) {
	t, err := b.table(ctx, kind)
	if err != nil {
		return 0, err
	}
	query, args, err := sqlBuilder.Select("COUNT(*)").From(t).ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err := b.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (b *Backend) Insert(ctx context.Context, kind store.Kind, doc store.Document) error {
	t, err := b.table(ctx, kind)
	if err != nil {
		return err
	}
	query, args, err := sqlBuilder.Insert(t).
		Columns("id", "data").
		Values(doc.ID, squirrel.Expr("?::jsonb", string(doc.Data))).
		ToSql()
	if err != nil {
		return err
	}
	b.log.Debug("inserting %s id=%d", kind, doc.ID)
	if _, err := b.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		b.log.Error("failed to insert %s id=%d: %v", kind, doc.ID, err)
		return err
	}
	return nil
}

func (b *Backend) Upsert(ctx context.Context, kind store.Kind, doc store.Document) error {
	t, err := b.table(ctx, kind)
	if err != nil {
		return err
	}
	query, args, err := sqlBuilder.Insert(t).
		Columns("id", "data").
		Values(doc.ID, squirrel.Expr("?::jsonb", string(doc.Data))).
		Suffix("ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()").
		ToSql()
	if err != nil {
		return err
	}
	b.log.Debug("upserting %s id=%d", kind, doc.ID)
	_, err = b.db.ExecContext(ctx, query, args...)
	return err
}

func (b *Backend) Delete(ctx context.Context, kind store.Kind, id int64) error {
	t, err := b.table(ctx, kind)
	if err != nil {
		return err
	}
	query, args, err := sqlBuilder.Delete(t).Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	b.log.Debug("deleting %s id=%d", kind, id)
	_, err = b.db.ExecContext(ctx, query, args...)
	return err
}

func (b *Backend) DeleteWhere(ctx context.Context, kind store.Kind, field, value string) (int, error) {
	t, err := b.table(ctx, kind)
	if err != nil {
		return 0, err
	}
	if err := store.ValidateField(field); err != nil {
		return 0, err
	}
	query, args, err := sqlBuilder.Delete(t).Where("data->>?::text = ?", field, value).ToSql()
	if err != nil {
		return 0, err
	}
	res, err := b.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	b.log.Debug("deleted %d %s where %s=%s", n, kind, field, value)
	return int(n), nil
}

// NextID bumps the kind's counter past both its previous value and the
// highest stored id.
func (b *Backend) NextID(ctx context.Context, kind store.Kind) (int64, error) {
	t, err := b.table(ctx, kind)
	if err != nil {
		return 0, err
	}
	next, err := reserve(ctx, b.db, kind, t, 1)
	if err != nil {
		b.log.Error("failed to allocate %s id: %v", kind, err)
		return 0, err
	}
	return next, nil
}

type rowQueryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// reserve allocates n consecutive ids and returns the last one.
func reserve(ctx context.Context, q rowQueryer, kind store.Kind, table string, n int64) (int64, error) {
	floor := fmt.Sprintf("(SELECT COALESCE(MAX(id), 0) + $2 FROM %s)", table)
	query := fmt.Sprintf(`INSERT INTO entity_counters (kind, value) VALUES ($1, %s)
ON CONFLICT (kind) DO UPDATE SET value = GREATEST(entity_counters.value + $2, %s)
RETURNING value`, floor, floor)

	var last int64
	if err := q.QueryRowContext(ctx, query, string(kind), n).Scan(&last); err != nil {
		return 0, err
	}
	return last, nil
}

// insertChunk bounds the rows per INSERT statement below the bind parameter limit.
const insertChunk = 1000

func (b *Backend) InsertAll(ctx context.Context, kind store.Kind, batch []store.Document) ([]int64, error) {
	t, err := b.table(ctx, kind)
	if err != nil {
		return nil, err
	}
	b.log.Debug("inserting %d %s", len(batch), kind)

	var fresh int64
	for _, doc := range batch {
		if doc.ID == 0 {
			fresh++
		}
	}

	var ids []int64
	err = tx(ctx, b.db, func(tx *sql.Tx) error {
		ids = make([]int64, 0, len(batch))
		docs := make([]store.Document, len(batch))
		copy(docs, batch)
		if fresh > 0 {
			last, err := reserve(ctx, tx, kind, t, fresh)
			if err != nil {
				return err
			}
			next := last - fresh
			for i := range docs {
				if docs[i].ID != 0 {
					continue
				}
				next++
				data, err := store.WithID(docs[i].Data, next)
				if err != nil {
					return err
				}
				docs[i] = store.Document{ID: next, Data: data}
			}
		}

		for start := 0; start < len(docs); start += insertChunk {
			ins := sqlBuilder.Insert(t).Columns("id", "data")
			for _, doc := range docs[start:min(start+insertChunk, len(docs))] {
				ins = ins.Values(doc.ID, squirrel.Expr("?::jsonb", string(doc.Data)))
				ids = append(ids, doc.ID)
			}
			query, args, err := ins.ToSql()
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				if isUniqueViolation(err) {
					return store.ErrDuplicate
				}
				return err
			}
		}
		return nil
	})
	if err != nil {
		b.log.Error("failed to insert %d %s: %v", len(batch), kind, err)
		return nil, err
	}
	return ids, nil
}

func (b *Backend) Counter(ctx context.Context, kind store.Kind) (int64, error) {
	if _, err := b.table(ctx, kind); err != nil {
		return 0, err
	}
	query, args, err := sqlBuilder.Select("value").From("entity_counters").Where(squirrel.Eq{"kind": string(kind)}).ToSql()
	if err != nil {
		return 0, err
	}
	var value int64
	err = b.db.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return value, err
}

func (b *Backend) Increment(ctx context.Context, kind store.Kind, id int64, field string, delta int64) error {
	t, err := b.table(ctx, kind)
	if err != nil {
		return err
	}
	if err := store.ValidateField(field); err != nil {
		return err
	}
	query, args, err := sqlBuilder.Update(t).
		Set("data", squirrel.Expr("jsonb_set(data, ARRAY[?::text], to_jsonb(COALESCE((data->>?::text)::bigint, 0) + ?::bigint))", field, field, delta)).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	b.log.Debug("incrementing %s id=%d %s by %d", kind, id, field, delta)
	res, err := b.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (b *Backend) Replace(ctx context.Context, kind store.Kind, docs []store.Document, counter int64) error {
	t, err := b.table(ctx, kind)
	if err != nil {
		return err
	}
	b.log.Info("replacing %s collection with %d records", kind, len(docs))
	return tx(ctx, b.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+t); err != nil {
			return err
		}
		var maxID int64
		for _, doc := range docs {
			query, args, err := sqlBuilder.Insert(t).
				Columns("id", "data").
				Values(doc.ID, squirrel.Expr("?::jsonb", string(doc.Data))).
				ToSql()
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				if isUniqueViolation(err) {
					return fmt.Errorf("%s id %d: %w", kind, doc.ID, store.ErrDuplicate)
				}
				return err
			}
			maxID = max(maxID, doc.ID)
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO entity_counters (kind, value) VALUES ($1, $2)
ON CONFLICT (kind) DO UPDATE SET value = EXCLUDED.value`, string(kind), max(counter, maxID))
		return err
	})
}

func tx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	log := logger.FromContext(ctx).WithPrefix("postgres-store")
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
	return t.Commit()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
