// Package mongo implements the store backend on MongoDB. Every object is one
// document in a single collection, keyed by its ID.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/syntrixbase/storenotify/internal/store/backend"
	"github.com/syntrixbase/storenotify/pkg/model"
)

// Backend is a backend.Backend on one MongoDB collection.
type Backend struct {
	client       *mongo.Client
	coll         *mongo.Collection
	transactions bool
	logger       *slog.Logger
}

var _ backend.Backend = (*Backend)(nil)

// NewBackend connects to MongoDB, verifies the connection and ensures the
// collection's indexes.
func NewBackend(ctx context.Context, cfg Config) (*Backend, error) {
	clientOpts := options.Client().
		ApplyURI(cfg.URI).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, err
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	b := &Backend{
		client:       client,
		coll:         client.Database(cfg.DatabaseName).Collection(cfg.Collection),
		transactions: cfg.Transactions,
		logger:       slog.Default().With("component", "store-mongo"),
	}
	if err := b.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	b.logger.Info("Connected to MongoDB", "database", cfg.DatabaseName, "collection", cfg.Collection)
	return b, nil
}

// EnsureIndexes creates the entity index used by Load.
func (b *Backend) EnsureIndexes(ctx context.Context) error {
	_, err := b.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "entity", Value: 1},
			{Key: "created_at", Value: 1},
			{Key: "_id", Value: 1},
		},
	})
	return err
}

// Load returns every record of entity ordered by creation time.
func (b *Backend) Load(ctx context.Context, entity string) ([]backend.Record, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := b.coll.Find(ctx, bson.M{"entity": entity}, opts)
	if err != nil {
		return nil, model.WrapError(err)
	}
	defer cursor.Close(ctx)

	var records []backend.Record
	for cursor.Next(ctx) {
		var rec backend.Record
		if err := cursor.Decode(&rec); err != nil {
			return nil, err
		}
		rec.Fields = normalizeDocument(rec.Fields)
		records = append(records, rec)
	}
	if err := cursor.Err(); err != nil {
		return nil, model.WrapError(err)
	}
	return records, nil
}

// Commit writes muts with one ordered bulk write, inside a transaction when
// configured.
func (b *Backend) Commit(ctx context.Context, muts []backend.Mutation) error {
	if len(muts) == 0 {
		return nil
	}
	models, want, err := writeModels(muts)
	if err != nil {
		return err
	}

	if !b.transactions {
		return b.bulkWrite(ctx, models, want)
	}

	session, err := b.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	callback := func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, b.bulkWrite(sessCtx, models, want)
	}
	_, err = session.WithTransaction(ctx, callback)
	return err
}

func (b *Backend) bulkWrite(ctx context.Context, models []mongo.WriteModel, want expected) error {
	res, err := b.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %v", model.ErrExists, err)
		}
		return model.WrapError(err)
	}
	return want.check(res)
}

// expected counts the documents a bulk write must match.
type expected struct {
	updates int64
	deletes int64
}

func (e expected) check(res *mongo.BulkWriteResult) error {
	if res == nil {
		return nil
	}
	if res.MatchedCount < e.updates || res.DeletedCount < e.deletes {
		return fmt.Errorf("%w: matched %d of %d updates, deleted %d of %d",
			model.ErrNotFound, res.MatchedCount, e.updates, res.DeletedCount, e.deletes)
	}
	return nil
}

func writeModels(muts []backend.Mutation) ([]mongo.WriteModel, expected, error) {
	models := make([]mongo.WriteModel, 0, len(muts))
	var want expected
	for _, m := range muts {
		filter := bson.M{"_id": m.Record.ID, "entity": m.Record.Entity}
		switch m.Op {
		case backend.OpInsert:
			models = append(models, mongo.NewInsertOneModel().SetDocument(m.Record))
		case backend.OpUpdate:
			models = append(models, mongo.NewReplaceOneModel().SetFilter(filter).SetReplacement(m.Record))
			want.updates++
		case backend.OpDelete:
			models = append(models, mongo.NewDeleteOneModel().SetFilter(filter))
			want.deletes++
		default:
			return nil, expected{}, fmt.Errorf("unsupported mutation %s for %s", m.Op, m.Record.ID)
		}
	}
	return models, want, nil
}

// Close disconnects the client.
func (b *Backend) Close(ctx context.Context) error {
	err := b.client.Disconnect(ctx)
	if errors.Is(err, mongo.ErrClientDisconnected) {
		return backend.ErrClosed
	}
	return err
}
