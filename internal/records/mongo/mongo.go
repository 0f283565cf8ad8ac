// Package mongo implements records.Store on MongoDB.
//
// Each record collection maps to a Mongo collection of the same name. A
// document is {_id: <uuid>, seq: <insert order>, data: {<fields>}} so record
// fields can never collide with bookkeeping keys.
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"dolor/internal/core"
	"dolor/internal/records"
)

// DefaultDatabase is used when no database name is configured.
const DefaultDatabase = "dolor"

type Store struct {
	client            *mongo.Client
	db                *mongo.Database
	deleteConcurrency int
	seq               atomic.Int64
}

type document struct {
	ID   string `bson:"_id"`
	Seq  int64  `bson:"seq"`
	Data bson.M `bson:"data"`
}

// Connect dials url, verifies the connection and ensures the seq index on
// every known collection.
func Connect(ctx context.Context, url, database string, deleteConcurrency int) (*Store, error) {
	if database == "" {
		database = DefaultDatabase
	}
	client, err := mongo.Connect(options.Client().ApplyURI(url))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}

	s := &Store{
		client:            client,
		db:                client.Database(database),
		deleteConcurrency: deleteConcurrency,
	}
	s.seq.Store(time.Now().UnixNano())

	for _, name := range core.Collections() {
		if err := s.EnsureIndexes(ctx, name); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
	}

	slog.InfoContext(ctx, "Connected to MongoDB", "database", database)
	return s, nil
}

// EnsureIndexes creates the insertion order index for a collection.
func (s *Store) EnsureIndexes(ctx context.Context, name string) error {
	_, err := s.db.Collection(name).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "seq", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create index on %s: %w", name, err)
	}
	return nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Ping reports whether the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, nil); err != nil {
		return records.Unavailable("ping", err)
	}
	return nil
}

// nextSeq is monotonic within a process and roughly ordered across processes.
func (s *Store) nextSeq() int64 {
	now := time.Now().UnixNano()
	for {
		cur := s.seq.Load()
		next := cur + 1
		if now > next {
			next = now
		}
		if s.seq.CompareAndSwap(cur, next) {
			return next
		}
	}
}

// Create implements records.Store.
func (s *Store) Create(ctx context.Context, collection string, fields core.Fields) (core.Record, error) {
	doc := document{
		ID:   uuid.NewString(),
		Seq:  s.nextSeq(),
		Data: bson.M(fields.Clone()),
	}
	if _, err := s.db.Collection(collection).InsertOne(ctx, doc); err != nil {
		return core.Record{}, records.Unavailable("create", err)
	}
	slog.InfoContext(ctx, "Record saved", "backend", "mongo", "collection", collection, "id", doc.ID)
	return core.Record{ID: doc.ID, Fields: fields.Clone()}, nil
}

// ListAll implements records.Store.
func (s *Store) ListAll(ctx context.Context, collection string) ([]core.Record, error) {
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
	cur, err := s.db.Collection(collection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, records.Unavailable("list", err)
	}
	var docs []document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, records.Unavailable("list", err)
	}

	out := make([]core.Record, 0, len(docs))
	for _, d := range docs {
		out = append(out, core.Record{ID: d.ID, Fields: plain(d.Data)})
	}
	return out, nil
}

// DeleteMany implements records.Store.
func (s *Store) DeleteMany(ctx context.Context, collection string, ids []string) error {
	coll := s.db.Collection(collection)
	return records.DeleteEach(ctx, collection, ids, s.deleteConcurrency, func(ctx context.Context, id string) error {
		if _, err := coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
			return records.Unavailable("delete", err)
		}
		return nil
	})
}

// UpdateOne implements records.Store with a $set on the named fields.
func (s *Store) UpdateOne(ctx context.Context, collection, id string, fields core.Fields) error {
	set := bson.M{}
	for k, v := range fields {
		set["data."+k] = v
	}
	if len(set) == 0 {
		n, err := s.db.Collection(collection).CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return records.Unavailable("update", err)
		}
		if n == 0 {
			return fmt.Errorf("update %s/%s: %w", collection, id, records.ErrNotFound)
		}
		return nil
	}
	res, err := s.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return records.Unavailable("update", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update %s/%s: %w", collection, id, records.ErrNotFound)
	}
	return nil
}

// plain converts decoded BSON values into the JSON-like values the rest of
// the code expects.
func plain(m bson.M) core.Fields {
	out := make(core.Fields, len(m))
	for k, v := range m {
		switch x := v.(type) {
		case int32:
			out[k] = float64(x)
		case int64:
			out[k] = float64(x)
		case bson.M:
			out[k] = map[string]any(plain(x))
		case bson.D:
			out[k] = map[string]any(plain(bsonDToM(x)))
		case bson.A:
			out[k] = []any(x)
		default:
			out[k] = v
		}
	}
	return out
}

func bsonDToM(d bson.D) bson.M {
	m := make(bson.M, len(d))
	for _, e := range d {
		m[e.Key] = e.Value
	}
	return m
}
