package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sweetpotato0/ewa-agent/tracelog"
)

// MongoSink stores one document per trace.
type MongoSink struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// MongoConfig holds MongoDB connection configuration
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// DefaultMongoConfig returns default MongoDB configuration
func DefaultMongoConfig() *MongoConfig {
	return &MongoConfig{
		URI:        "mongodb://localhost:27017",
		Database:   "ewa_agent",
		Collection: "agent_runs",
	}
}

// NewMongoSink connects to MongoDB and prepares the trace collection.
func NewMongoSink(ctx context.Context, config *MongoConfig) (*MongoSink, error) {
	if config == nil {
		config = DefaultMongoConfig()
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(config.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	sink := &MongoSink{
		client:     client,
		collection: client.Database(config.Database).Collection(config.Collection),
	}
	if err := sink.createIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}
	return sink, nil
}

func (s *MongoSink) createIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "approved", Value: 1}}},
	})
	return err
}

// Document converts a record into the BSON document stored for it. The JSON
// field names of the record become the document keys.
func Document(record any) (bson.M, error) {
	data, err := tracelog.Marshal(record)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	if err := bson.UnmarshalExtJSON(data, false, &doc); err != nil {
		return nil, fmt.Errorf("failed to convert trace to BSON: %w", err)
	}
	if id, ok := doc["run_id"].(string); ok && id != "" {
		doc["_id"] = id
	}
	return doc, nil
}

// Append inserts record as a new document.
func (s *MongoSink) Append(ctx context.Context, record any) error {
	doc, err := Document(record)
	if err != nil {
		return err
	}
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert trace into MongoDB: %w", err)
	}
	return nil
}

// Recent returns up to limit traces, newest first, as raw JSON.
func (s *MongoSink) Recent(ctx context.Context, limit int64) ([]json.RawMessage, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query traces: %w", err)
	}
	defer cursor.Close(ctx)

	var out []json.RawMessage
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode trace: %w", err)
		}
		delete(doc, "_id")
		data, err := bson.MarshalExtJSON(doc, false, false)
		if err != nil {
			return nil, fmt.Errorf("failed to encode trace: %w", err)
		}
		out = append(out, data)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate traces: %w", err)
	}
	return out, nil
}

// Close closes the MongoDB connection
func (s *MongoSink) Close(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.client.Disconnect(ctx)
}
