package storage

import (
	"context"
	"os"
	"testing"

	"github.com/nick-dorsch/planner/internal/codec"
)

func TestNeo4jStoreRoundTrip(t *testing.T) {
	uri := os.Getenv("PLANNER_NEO4J_URI")
	if uri == "" {
		t.Skip("PLANNER_NEO4J_URI not set")
	}

	ctx := context.Background()
	s, err := OpenNeo4j(ctx, Neo4jConfig{
		URI:      uri,
		Username: os.Getenv("PLANNER_NEO4J_USER"),
		Password: os.Getenv("PLANNER_NEO4J_PASSWORD"),
	}, codec.SchemaV2)
	if err != nil {
		t.Fatalf("OpenNeo4j failed: %v", err)
	}
	defer s.Close(ctx)

	if err := s.Save(ctx, sampleCSV); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	text, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if text != sampleCSV {
		t.Errorf("Expected\n%s\ngot\n%s", sampleCSV, text)
	}

	if err := s.Save(ctx, ""); err != nil {
		t.Fatalf("Clearing save failed: %v", err)
	}
}
