package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

// Record is the pointer constraint every stored model satisfies.
type Record[T any] interface {
	*T
	EntityID() int64
	SetEntityID(int64)
}

// Collection is the typed view of one entity kind over a Backend.
type Collection[T any, P Record[T]] struct {
	kind    Kind
	backend Backend
}

func NewCollection[T any, P Record[T]](kind Kind, backend Backend) *Collection[T, P] {
	return &Collection[T, P]{kind: kind, backend: backend}
}

func (c *Collection[T, P]) Kind() Kind { return c.kind }

func (c *Collection[T, P]) GetAll(ctx context.Context) ([]T, error) {
	docs, err := c.backend.All(ctx, c.kind)
	if err != nil {
		return nil, fmt.Errorf("%s: get all: %w", c.kind, err)
	}
	return c.decodeAll(docs)
}

// GetByID returns ErrNotFound (wrapped) when no record has id.
func (c *Collection[T, P]) GetByID(ctx context.Context, id int64) (*T, error) {
	doc, err := c.backend.Get(ctx, c.kind, id)
	if err != nil {
		return nil, fmt.Errorf("%s %d: %w", c.kind, id, err)
	}
	rec, err := c.decode(doc)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetByIndex returns every record whose JSON field equals value.
func (c *Collection[T, P]) GetByIndex(ctx context.Context, field string, value any) ([]T, error) {
	if err := ValidateField(field); err != nil {
		return nil, err
	}
	docs, err := c.backend.Find(ctx, c.kind, field, IndexValue(value))
	if err != nil {
		return nil, fmt.Errorf("%s: find by %s: %w", c.kind, field, err)
	}
	return c.decodeAll(docs)
}

func (c *Collection[T, P]) Count(ctx context.Context) (int, error) {
	n, err := c.backend.Count(ctx, c.kind)
	if err != nil {
		return 0, fmt.Errorf("%s: count: %w", c.kind, err)
	}
	return n, nil
}

// Add stores rec as a new record. A zero id is replaced by the next id of the
// kind; rec is updated in place.
func (c *Collection[T, P]) Add(ctx context.Context, rec P) (int64, error) {
	if rec.EntityID() == 0 {
		id, err := c.NextID(ctx)
		if err != nil {
			return 0, err
		}
		rec.SetEntityID(id)
	}
	doc, err := c.encode(rec)
	if err != nil {
		return 0, err
	}
	if err := c.backend.Insert(ctx, c.kind, doc); err != nil {
		return 0, fmt.Errorf("%s %d: add: %w", c.kind, doc.ID, err)
	}
	return doc.ID, nil
}

// AddAll stores recs atomically. Records without an id are numbered by the
// backend in slice order and updated in place.
func (c *Collection[T, P]) AddAll(ctx context.Context, recs []P) ([]int64, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	docs := make([]Document, len(recs))
	for i, rec := range recs {
		doc, err := c.encode(rec)
		if err != nil {
			return nil, err
		}
		docs[i] = doc
	}
	ids, err := c.backend.InsertAll(ctx, c.kind, docs)
	if err != nil {
		return nil, fmt.Errorf("%s: add %d: %w", c.kind, len(recs), err)
	}
	for i, rec := range recs {
		rec.SetEntityID(ids[i])
	}
	return ids, nil
}

// Put upserts rec by id. Records without an id are added.
func (c *Collection[T, P]) Put(ctx context.Context, rec P) error {
	if rec.EntityID() == 0 {
		_, err := c.Add(ctx, rec)
		return err
	}
	doc, err := c.encode(rec)
	if err != nil {
		return err
	}
	if err := c.backend.Upsert(ctx, c.kind, doc); err != nil {
		return fmt.Errorf("%s %d: put: %w", c.kind, doc.ID, err)
	}
	return nil
}

// Delete removes id. Deleting a missing record is not an error.
func (c *Collection[T, P]) Delete(ctx context.Context, id int64) error {
	if err := c.backend.Delete(ctx, c.kind, id); err != nil {
		return fmt.Errorf("%s %d: delete: %w", c.kind, id, err)
	}
	return nil
}

// DeleteByIndex removes every record whose field equals value and reports how many went.
func (c *Collection[T, P]) DeleteByIndex(ctx context.Context, field string, value any) (int, error) {
	if err := ValidateField(field); err != nil {
		return 0, err
	}
	n, err := c.backend.DeleteWhere(ctx, c.kind, field, IndexValue(value))
	if err != nil {
		return 0, fmt.Errorf("%s: delete by %s: %w", c.kind, field, err)
	}
	return n, nil
}

func (c *Collection[T, P]) NextID(ctx context.Context) (int64, error) {
	id, err := c.backend.NextID(ctx, c.kind)
	if err != nil {
		return 0, fmt.Errorf("%s: next id: %w", c.kind, err)
	}
	return id, nil
}

// Increment adds delta to an integer field of record id. A second identical
// call increments again.
func (c *Collection[T, P]) Increment(ctx context.Context, id int64, field string, delta int64) error {
	if err := ValidateField(field); err != nil {
		return err
	}
	if err := c.backend.Increment(ctx, c.kind, id, field, delta); err != nil {
		return fmt.Errorf("%s %d: increment %s: %w", c.kind, id, field, err)
	}
	return nil
}

func (c *Collection[T, P]) encode(rec P) (Document, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return Document{}, fmt.Errorf("%s: encode: %w", c.kind, err)
	}
	return Document{ID: rec.EntityID(), Data: data}, nil
}

func (c *Collection[T, P]) decode(doc Document) (T, error) {
	var rec T
	if err := json.Unmarshal(doc.Data, P(&rec)); err != nil {
		return rec, fmt.Errorf("%s %d: decode: %w", c.kind, doc.ID, err)
	}
	P(&rec).SetEntityID(doc.ID)
	return rec, nil
}

func (c *Collection[T, P]) decodeAll(docs []Document) ([]T, error) {
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		rec, err := c.decode(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
