// Package docstore provides the document database port used by every
// persistence concern: CRUD, an atomic numeric increment, and live
// filterable subscriptions that push full-collection snapshots.
package docstore

import (
	"context"
	"errors"
	"reflect"

	"go.mongodb.org/mongo-driver/bson"
)

// Query selects the documents a subscription tracks. Filter is a set of
// field equality constraints; an empty filter tracks the whole collection.
type Query struct {
	Collection string
	Filter     map[string]any
}

// Raw is one encoded document inside a snapshot
type Raw interface {
	Decode(out any) error
}

// Snapshot is the full current result set of a subscription's query.
// Seq strictly increases per subscription: a consumer that compares Seq
// can never apply a stale snapshot over a newer one.
type Snapshot struct {
	Seq  uint64
	Docs []Raw
}

// Subscription is a live feed of snapshots. The channel is closed when
// the subscription ends; Close is idempotent and stops future snapshots
// but never aborts writes already in flight.
type Subscription interface {
	Snapshots() <-chan Snapshot
	Close()
}

// Store is the document database port. Increment is the sole primitive
// offering a conflict-safe guarantee under concurrent writers; whole
// document writes are last-writer-wins.
type Store interface {
	Create(ctx context.Context, collection string, doc any) (string, error)
	Set(ctx context.Context, collection, id string, doc any) error
	Update(ctx context.Context, collection, id string, patch map[string]any) error
	Delete(ctx context.Context, collection, id string) error
	Increment(ctx context.Context, collection, id, field string, delta float64) error
	FindByID(ctx context.Context, collection, id string, out any) error
	Find(ctx context.Context, collection string, filter map[string]any, out any) error
	Subscribe(ctx context.Context, q Query) (Subscription, error)
}

// bsonRaw adapts a bson document to the Raw interface
type bsonRaw bson.Raw

// Decode unmarshals the document into out
func (r bsonRaw) Decode(out any) error {
	return bson.Unmarshal(bson.Raw(r), out)
}

// DecodeAll decodes every document of a snapshot into a typed slice
func DecodeAll[T any](snap Snapshot) ([]T, error) {
	out := make([]T, 0, len(snap.Docs))
	for _, doc := range snap.Docs {
		var v T
		if err := doc.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// toDocument normalizes an arbitrary doc value into a mutable bson map
func toDocument(doc any) (bson.M, error) {
	data, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var m bson.M
	if err := bson.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// decodeSlice decodes raw documents into *[]T via reflection. The mongo
// driver offers cursor.All for this; the in-memory store needs its own.
func decodeSlice(out any, raws []bson.Raw) error {
	v := reflect.ValueOf(out)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Slice {
		return errors.New("docstore: out must be a pointer to a slice")
	}
	slice := v.Elem()
	elemType := slice.Type().Elem()
	result := reflect.MakeSlice(slice.Type(), 0, len(raws))
	for _, raw := range raws {
		elem := reflect.New(elemType)
		if err := bson.Unmarshal(raw, elem.Interface()); err != nil {
			return err
		}
		result = reflect.Append(result, elem.Elem())
	}
	slice.Set(result)
	return nil
}
