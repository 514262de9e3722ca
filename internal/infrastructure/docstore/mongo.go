package docstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/myfin/backend/internal/domain/shared"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoConfig holds the connection settings for the mongo-backed store
type MongoConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// MongoStore implements Store on a MongoDB database. Subscriptions ride
// change streams: every relevant change triggers a full re-query of the
// subscription's filter, so consumers always receive complete snapshots.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

var _ Store = (*MongoStore)(nil)

// NewMongoStore connects to MongoDB and verifies the connection
func NewMongoStore(ctx context.Context, cfg MongoConfig, logger *zap.Logger) (*MongoStore, error) {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, shared.NewStoreError("connect", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, shared.NewStoreError("ping", err)
	}

	logger.Info("connected to document database", zap.String("database", cfg.Database))
	return &MongoStore{
		client: client,
		db:     client.Database(cfg.Database),
		logger: logger,
	}, nil
}

// Close disconnects from the database
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Create inserts a document, assigning a fresh id when the doc carries none
func (s *MongoStore) Create(ctx context.Context, collection string, doc any) (string, error) {
	m, err := toDocument(doc)
	if err != nil {
		return "", shared.NewStoreError("create", err)
	}
	id, _ := m["_id"].(string)
	if id == "" {
		id = uuid.NewString()
	}
	m["_id"] = id

	if _, err := s.db.Collection(collection).InsertOne(ctx, m); err != nil {
		return "", shared.NewStoreError("create", err)
	}
	return id, nil
}

// Set writes the full document under the given id (upsert)
func (s *MongoStore) Set(ctx context.Context, collection, id string, doc any) error {
	m, err := toDocument(doc)
	if err != nil {
		return shared.NewStoreError("set", err)
	}
	m["_id"] = id

	opts := options.Replace().SetUpsert(true)
	if _, err := s.db.Collection(collection).ReplaceOne(ctx, bson.M{"_id": id}, m, opts); err != nil {
		return shared.NewStoreError("set", err)
	}
	return nil
}

// Update applies a field-level patch to an existing document
func (s *MongoStore) Update(ctx context.Context, collection, id string, patch map[string]any) error {
	res, err := s.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": patch})
	if err != nil {
		return shared.NewStoreError("update", err)
	}
	if res.MatchedCount == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a document; deleting an absent id is a no-op
func (s *MongoStore) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return shared.NewStoreError("delete", err)
	}
	return nil
}

// Increment atomically adjusts a numeric field server-side with $inc
func (s *MongoStore) Increment(ctx context.Context, collection, id, field string, delta float64) error {
	res, err := s.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{field: delta}})
	if err != nil {
		return shared.NewStoreError("increment", err)
	}
	if res.MatchedCount == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID decodes one document into out
func (s *MongoStore) FindByID(ctx context.Context, collection, id string, out any) error {
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return shared.ErrNotFound
	}
	if err != nil {
		return shared.NewStoreError("find", err)
	}
	return nil
}

// Find decodes all documents matching the filter into *[]T
func (s *MongoStore) Find(ctx context.Context, collection string, filter map[string]any, out any) error {
	cursor, err := s.db.Collection(collection).Find(ctx, mongoFilter(filter), options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return shared.NewStoreError("find", err)
	}
	if err := cursor.All(ctx, out); err != nil {
		return shared.NewStoreError("find", err)
	}
	return nil
}

// Subscribe opens a change-stream-driven feed. An initial snapshot is
// queried up front; each change to the collection triggers a full
// re-query so every emitted snapshot is complete and self-contained.
func (s *MongoStore) Subscribe(ctx context.Context, q Query) (Subscription, error) {
	subCtx, cancel := context.WithCancel(ctx)
	sub := &mongoSub{
		ch:     make(chan Snapshot, 1),
		cancel: cancel,
	}

	first, err := s.querySnapshot(subCtx, q, sub.nextSeq())
	if err != nil {
		cancel()
		return nil, err
	}
	sub.push(first)

	stream, err := s.db.Collection(q.Collection).Watch(subCtx, mongo.Pipeline{})
	if err != nil {
		cancel()
		return nil, shared.NewStoreError("watch", err)
	}

	go s.pump(subCtx, stream, q, sub)
	return sub, nil
}

// pump re-queries the subscription on every collection change
func (s *MongoStore) pump(ctx context.Context, stream *mongo.ChangeStream, q Query, sub *mongoSub) {
	defer sub.finish()
	defer stream.Close(context.Background())

	for stream.Next(ctx) {
		snap, err := s.querySnapshot(ctx, q, sub.nextSeq())
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Warn("snapshot re-query failed",
					zap.String("collection", q.Collection), zap.Error(err))
			}
			continue
		}
		sub.push(snap)
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		s.logger.Warn("change stream ended",
			zap.String("collection", q.Collection), zap.Error(err))
	}
}

// querySnapshot builds one full snapshot of the query's result set
func (s *MongoStore) querySnapshot(ctx context.Context, q Query, seq uint64) (Snapshot, error) {
	cursor, err := s.db.Collection(q.Collection).Find(ctx, mongoFilter(q.Filter), options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return Snapshot{}, shared.NewStoreError("subscribe", err)
	}
	var raws []bson.Raw
	if err := cursor.All(ctx, &raws); err != nil {
		return Snapshot{}, shared.NewStoreError("subscribe", err)
	}
	docs := make([]Raw, len(raws))
	for i, raw := range raws {
		docs[i] = bsonRaw(raw)
	}
	return Snapshot{Seq: seq, Docs: docs}, nil
}

// mongoFilter converts the port's filter map into a driver filter
func mongoFilter(filter map[string]any) bson.M {
	m := bson.M{}
	for k, v := range filter {
		m[k] = v
	}
	return m
}

// mongoSub is one change-stream-backed feed
type mongoSub struct {
	ch     chan Snapshot
	cancel context.CancelFunc
	seq    uint64

	mu     sync.Mutex
	closed bool
}

// Snapshots returns the feed channel
func (s *mongoSub) Snapshots() <-chan Snapshot {
	return s.ch
}

// nextSeq advances the per-subscription sequence. Only the pump goroutine
// (and the initial query before it starts) calls this, so no lock.
func (s *mongoSub) nextSeq() uint64 {
	s.seq++
	return s.seq
}

// push delivers a snapshot, replacing a buffered stale one
func (s *mongoSub) push(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
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

// finish closes the feed channel once the pump exits
func (s *mongoSub) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// Close cancels the feed; it is idempotent
func (s *mongoSub) Close() {
	s.cancel()
}

// Healthy pings the database, for readiness checks
func (s *MongoStore) Healthy(ctx context.Context) error {
	if err := s.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("document database unreachable: %w", err)
	}
	return nil
}
