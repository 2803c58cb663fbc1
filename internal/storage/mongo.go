package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tuitiondata/collector/pkg/listing"
)

const mongoOpTimeout = 5 * time.Second

// MongoSink writes listings to a MongoDB collection. The database is a
// secondary copy of the CSV output, so connection failures degrade to a
// warning at construction time rather than failing the run.
type MongoSink struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoSink connects to MongoDB and verifies the server is reachable.
func NewMongoSink(ctx context.Context, uri, database, collection string) (*MongoSink, error) {
	connectCtx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}

	log.Info().Str("database", database).Str("collection", collection).Msg("Connected to MongoDB")
	return &MongoSink{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

// Append inserts the batch. Ordering is relaxed so one bad document
// does not abort the rest of the batch.
func (s *MongoSink) Append(ctx context.Context, batch []listing.Listing) error {
	if len(batch) == 0 {
		return nil
	}

	docs := make([]interface{}, len(batch))
	for i, l := range batch {
		docs[i] = l
	}

	opCtx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	opts := options.InsertMany().SetOrdered(false)
	if _, err := s.collection.InsertMany(opCtx, docs, opts); err != nil {
		return fmt.Errorf("inserting listings: %w", err)
	}

	log.Debug().Int("count", len(batch)).Msg("Inserted listings into MongoDB")
	return nil
}

// Close disconnects from the server.
func (s *MongoSink) Close(ctx context.Context) error {
	opCtx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()
	return s.client.Disconnect(opCtx)
}
