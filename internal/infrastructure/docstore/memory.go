package docstore

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/myfin/backend/internal/domain/shared"
	"go.mongodb.org/mongo-driver/bson"
)

// MemoryStore is an in-process Store with the same snapshot semantics as
// the mongo-backed one. It backs tests and toolchain-free development.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]map[string]bson.Raw
	subs        map[string][]*memorySub
}

// NewMemoryStore creates an empty in-memory document store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]bson.Raw),
		subs:        make(map[string][]*memorySub),
	}
}

var _ Store = (*MemoryStore)(nil)

// Create inserts a document, generating an id when the doc carries none
func (s *MemoryStore) Create(_ context.Context, collection string, doc any) (string, error) {
	m, err := toDocument(doc)
	if err != nil {
		return "", shared.NewStoreError("create", err)
	}
	id, _ := m["_id"].(string)
	if id == "" {
		id = uuid.NewString()
	}
	m["_id"] = id

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.putLocked(collection, id, m); err != nil {
		return "", err
	}
	return id, nil
}

// Set writes the full document under the given id (upsert)
func (s *MemoryStore) Set(_ context.Context, collection, id string, doc any) error {
	m, err := toDocument(doc)
	if err != nil {
		return shared.NewStoreError("set", err)
	}
	m["_id"] = id

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putLocked(collection, id, m)
}

// Update applies a field-level patch to an existing document
func (s *MemoryStore) Update(_ context.Context, collection, id string, patch map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.getLocked(collection, id)
	if err != nil {
		return err
	}
	for k, v := range patch {
		m[k] = v
	}
	return s.putLocked(collection, id, m)
}

// Delete removes a document; deleting an absent id is a no-op
func (s *MemoryStore) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, ok := s.collections[collection]
	if !ok {
		return nil
	}
	if _, ok := docs[id]; !ok {
		return nil
	}
	delete(docs, id)
	s.notifyLocked(collection)
	return nil
}

// Increment atomically adjusts a numeric field. The whole mutation runs
// under the store lock, so concurrent increments never lose updates.
func (s *MemoryStore) Increment(_ context.Context, collection, id, field string, delta float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.getLocked(collection, id)
	if err != nil {
		return err
	}
	m[field] = numeric(m[field]) + delta
	return s.putLocked(collection, id, m)
}

// FindByID decodes one document into out
func (s *MemoryStore) FindByID(_ context.Context, collection, id string, out any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, ok := s.collections[collection]
	if !ok {
		return shared.ErrNotFound
	}
	raw, ok := docs[id]
	if !ok {
		return shared.ErrNotFound
	}
	if err := bson.Unmarshal(raw, out); err != nil {
		return shared.NewStoreError("find", err)
	}
	return nil
}

// Find decodes all documents matching the filter into *[]T
func (s *MemoryStore) Find(_ context.Context, collection string, filter map[string]any, out any) error {
	s.mu.Lock()
	raws := s.matchLocked(collection, filter)
	s.mu.Unlock()

	if err := decodeSlice(out, raws); err != nil {
		return shared.NewStoreError("find", err)
	}
	return nil
}

// Subscribe opens a live feed over the query. The initial snapshot is
// delivered immediately; subsequent snapshots coalesce under a slow
// consumer (latest wins, never stale).
func (s *MemoryStore) Subscribe(ctx context.Context, q Query) (Subscription, error) {
	sub := &memorySub{
		store: s,
		query: q,
		ch:    make(chan Snapshot, 1),
	}

	s.mu.Lock()
	s.subs[q.Collection] = append(s.subs[q.Collection], sub)
	sub.pushLocked(s.snapshotLocked(sub))
	s.mu.Unlock()

	if ctx != nil && ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			sub.Close()
		}()
	}
	return sub, nil
}

// putLocked stores a document and fans out snapshots
func (s *MemoryStore) putLocked(collection, id string, m bson.M) error {
	data, err := bson.Marshal(m)
	if err != nil {
		return shared.NewStoreError("encode", err)
	}
	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string]bson.Raw)
		s.collections[collection] = docs
	}
	docs[id] = bson.Raw(data)
	s.notifyLocked(collection)
	return nil
}

// getLocked fetches a document as a mutable map
func (s *MemoryStore) getLocked(collection, id string) (bson.M, error) {
	docs, ok := s.collections[collection]
	if !ok {
		return nil, shared.ErrNotFound
	}
	raw, ok := docs[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, shared.NewStoreError("decode", err)
	}
	return m, nil
}

// matchLocked returns the filtered documents of a collection in a
// deterministic order.
func (s *MemoryStore) matchLocked(collection string, filter map[string]any) []bson.Raw {
	docs := s.collections[collection]
	ids := make([]string, 0, len(docs))
	for id, raw := range docs {
		if matches(raw, filter) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	raws := make([]bson.Raw, 0, len(ids))
	for _, id := range ids {
		raws = append(raws, docs[id])
	}
	return raws
}

// notifyLocked pushes a fresh full snapshot to every subscriber of the
// collection. Snapshots replace the consumer's mirror wholesale; there
// is no incremental patching.
func (s *MemoryStore) notifyLocked(collection string) {
	for _, sub := range s.subs[collection] {
		sub.pushLocked(s.snapshotLocked(sub))
	}
}

// snapshotLocked builds the next snapshot for a subscriber
func (s *MemoryStore) snapshotLocked(sub *memorySub) Snapshot {
	raws := s.matchLocked(sub.query.Collection, sub.query.Filter)
	docs := make([]Raw, len(raws))
	for i, raw := range raws {
		docs[i] = bsonRaw(raw)
	}
	sub.seq++
	return Snapshot{Seq: sub.seq, Docs: docs}
}

// removeSubLocked detaches a closed subscriber
func (s *MemoryStore) removeSubLocked(sub *memorySub) {
	list := s.subs[sub.query.Collection]
	for i, candidate := range list {
		if candidate == sub {
			s.subs[sub.query.Collection] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// matches applies field equality constraints to an encoded document
func matches(raw bson.Raw, filter map[string]any) bool {
	for field, want := range filter {
		if !matchValue(raw.Lookup(field), want) {
			return false
		}
	}
	return true
}

// matchValue compares an encoded field against a filter value
func matchValue(rv bson.RawValue, want any) bool {
	switch w := want.(type) {
	case string:
		s, ok := rv.StringValueOK()
		return ok && s == w
	case bool:
		b, ok := rv.BooleanOK()
		return ok && b == w
	case int:
		return rawNumeric(rv) == float64(w)
	case int64:
		return rawNumeric(rv) == float64(w)
	case float64:
		return rawNumeric(rv) == w
	case nil:
		return rv.IsZero()
	}
	return false
}

// rawNumeric extracts a numeric field value, NaN-free
func rawNumeric(rv bson.RawValue) float64 {
	if f, ok := rv.DoubleOK(); ok {
		return f
	}
	if i, ok := rv.Int64OK(); ok {
		return float64(i)
	}
	if i, ok := rv.Int32OK(); ok {
		return float64(i)
	}
	return 0
}

// numeric coerces a decoded bson value to float64
func numeric(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int32:
		return float64(n)
	case int:
		return float64(n)
	}
	return 0
}

// memorySub is one live feed over the in-memory store
type memorySub struct {
	store  *MemoryStore
	query  Query
	ch     chan Snapshot
	seq    uint64
	closed bool
}

// Snapshots returns the feed channel
func (s *memorySub) Snapshots() <-chan Snapshot {
	return s.ch
}

// pushLocked delivers a snapshot, dropping a buffered stale one first.
// Callers hold the store lock, so delivery order stays monotonic.
func (s *memorySub) pushLocked(snap Snapshot) {
	if s.closed {
		return
	}
	for {
		select {
		case s.ch <- snap:
			return
		default:
			select {
			case <-s.ch:
			default:
			}
		}
	}
}

// Close cancels the feed; it is idempotent
func (s *memorySub) Close() {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.store.removeSubLocked(s)
	close(s.ch)
}
