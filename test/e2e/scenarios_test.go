// Package e2e exercises dupefind's six canonical end-to-end scenarios
// against the in-memory storage backend, each scenario a distinct test.
package e2e

import (
	"context"
	"testing"

	"github.com/dupefind/dupefind/pkg/similarity"
	"github.com/dupefind/dupefind/pkg/storage"
	"github.com/dupefind/dupefind/pkg/storage/memory"
	"github.com/dupefind/dupefind/pkg/tokenize"
)

func strp(s string) *string { return &s }

func TestScenarioDefaultInsertQuery(t *testing.T) {
	ctx := context.Background()
	store, _, err := similarity.New(ctx, memory.New(), similarity.Config{})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	id, err := store.Insert(ctx, "Some example document", similarity.InsertOptions{})
	if err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}
	results, err := store.Query(ctx, "Some example document", similarity.QueryOptions{})
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if len(results) != 1 || results[0].ID != id {
		t.Fatalf("query = %+v, want exactly one record with id %d", results, id)
	}
}

func TestScenarioDocumentLevelRetention(t *testing.T) {
	ctx := context.Background()
	store, _, err := similarity.New(ctx, memory.New(), similarity.Config{Level: storage.Document})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Insert(ctx, "Some example document", similarity.InsertOptions{}); err != nil {
		t.Fatal(err)
	}
	results, err := store.Query(ctx, "Some example document", similarity.QueryOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Document == nil || *results[0].Document != "Some example document" {
		t.Fatalf("query = %+v, want document text \"Some example document\"", results)
	}
}

func TestScenarioRemoveRequiresFingerprint(t *testing.T) {
	ctx := context.Background()
	store, _, err := similarity.New(ctx, memory.New(), similarity.Config{Level: storage.Minimal})
	if err != nil {
		t.Fatal(err)
	}
	id, err := store.Insert(ctx, "Some example document", similarity.InsertOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Remove(ctx, id, true); err == nil {
		t.Fatal("expected Remove to fail InsufficientStorageLevel at Minimal storage level")
	}
	results, err := store.Query(ctx, "Some example document", similarity.QueryOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("document should survive failed remove, got %+v", results)
	}
}

func TestScenarioValidatedTopN(t *testing.T) {
	ctx := context.Background()
	desc := tokenize.CharNGramsDescriptor(1, "")
	tok, err := tokenize.Parse(desc)
	if err != nil {
		t.Fatal(err)
	}
	store, _, err := similarity.New(ctx, memory.New(), similarity.Config{
		Level:              storage.Document,
		Tokenizer:          tok,
		TokenizeDescriptor: desc,
		Threshold:          0.5,
	})
	if err != nil {
		t.Fatal(err)
	}
	texts := []string{
		"ABCDEFGHIJKLMNOPQRSTUVWXYZ",
		"ABCDEFGHIJKLMNOPQRSTUVWXYZ1",
		"ABCDEFGHIJKLMNOPQRSTUVWXYZ12",
		"ABCDEFGHIJKLMNOPQRSTUVWXYZ123",
	}
	for _, text := range texts {
		if _, err := store.Insert(ctx, text, similarity.InsertOptions{}); err != nil {
			t.Fatal(err)
		}
	}

	top1, err := store.TopN(ctx, "ABCDEFGHIJKLMNOPQRSTUVWXYZ", 1, similarity.QueryOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(top1) != 1 || top1[0].Document == nil || *top1[0].Document != texts[0] {
		t.Fatalf("top_n(1) = %+v, want exact match first", top1)
	}

	top2, err := store.TopN(ctx, "ABCDEFGHIJKLMNOPQRSTUVWXYZ", 2, similarity.QueryOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(top2) != 2 {
		t.Fatalf("top_n(2) returned %d results, want 2", len(top2))
	}
	for i := 1; i < len(top2); i++ {
		if top2[i].Jaccard > top2[i-1].Jaccard {
			t.Fatalf("top_n(2) not sorted descending by Jaccard: %+v", top2)
		}
	}
}

func TestScenarioReloadFromStorage(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	desc := tokenize.CharNGramsDescriptor(2, tokenize.DefaultPadChar)
	tok, err := tokenize.Parse(desc)
	if err != nil {
		t.Fatal(err)
	}
	original, _, err := similarity.New(ctx, backend, similarity.Config{
		Tokenizer:          tok,
		TokenizeDescriptor: desc,
	})
	if err != nil {
		t.Fatal(err)
	}
	id, err := original.Insert(ctx, "hello world", similarity.InsertOptions{})
	if err != nil {
		t.Fatal(err)
	}

	reloaded, err := similarity.Reload(ctx, backend, nil)
	if err != nil {
		t.Fatalf("Reload returned error: %v", err)
	}
	results, err := reloaded.Query(ctx, "hello world", similarity.QueryOptions{})
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, r := range results {
		if r.ID == id {
			found = true
		}
	}
	if !found {
		t.Fatalf("reloaded store query = %+v, want id %d present", results, id)
	}
}

func TestScenarioExactPartPartitioning(t *testing.T) {
	ctx := context.Background()
	store, _, err := similarity.New(ctx, memory.New(), similarity.Config{})
	if err != nil {
		t.Fatal(err)
	}
	idA, err := store.Insert(ctx, "identical text", similarity.InsertOptions{ExactPart: strp("A")})
	if err != nil {
		t.Fatal(err)
	}
	idB, err := store.Insert(ctx, "identical text", similarity.InsertOptions{ExactPart: strp("B")})
	if err != nil {
		t.Fatal(err)
	}

	resultsA, err := store.Query(ctx, "identical text", similarity.QueryOptions{ExactPart: strp("A")})
	if err != nil {
		t.Fatal(err)
	}
	if len(resultsA) != 1 || resultsA[0].ID != idA {
		t.Fatalf("query exact_part=A = %+v, want only id %d", resultsA, idA)
	}

	resultsB, err := store.Query(ctx, "identical text", similarity.QueryOptions{ExactPart: strp("B")})
	if err != nil {
		t.Fatal(err)
	}
	if len(resultsB) != 1 || resultsB[0].ID != idB {
		t.Fatalf("query exact_part=B = %+v, want only id %d", resultsB, idB)
	}

	resultsNone, err := store.Query(ctx, "identical text", similarity.QueryOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(resultsNone) != 0 {
		t.Fatalf("query with no exact_part = %+v, want 0 results", resultsNone)
	}
}
