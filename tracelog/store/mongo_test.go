package store

import (
	"context"
	"os"
	"testing"
)

func TestDocumentUsesJSONNames(t *testing.T) {
	doc, err := Document(map[string]any{
		"run_id":   "run-1",
		"approved": true,
		"stages":   map[string]any{"iteration_1": map[string]any{"retry": map[string]any{"retry_triggered": false}}},
	})
	if err != nil {
		t.Fatalf("Document error: %v", err)
	}
	if doc["_id"] != "run-1" || doc["approved"] != true {
		t.Fatalf("unexpected document %#v", doc)
	}
	if _, err := Document(nil); err == nil {
		t.Fatal("expected error for nil record")
	}
}

// TestMongoSink requires a running MongoDB server.
// Set the MONGODB_URI environment variable to run it.
func TestMongoSink(t *testing.T) {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set, skipping MongoDB sink tests")
	}
	ctx := context.Background()
	sink, err := NewMongoSink(ctx, &MongoConfig{URI: uri, Database: "ewa_agent_test", Collection: "runs_test"})
	if err != nil {
		t.Skipf("Failed to connect to MongoDB: %v", err)
	}
	defer sink.Close(ctx)
	defer sink.collection.Drop(ctx)

	if err := sink.Append(ctx, run{RunID: "r1", Question: "q"}); err != nil {
		t.Fatalf("Append error: %v", err)
	}
	recent, err := sink.Recent(ctx, 5)
	if err != nil || len(recent) != 1 {
		t.Fatalf("expected one trace, got %d (%v)", len(recent), err)
	}
}
