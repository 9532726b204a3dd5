// Command dupefind is a minimal demo of the similarity store: it loads a
// newline-delimited corpus, indexes it, and prints near-duplicates of a
// query string.
//
// Usage:
//
//	go run ./cmd/dupefind -corpus docs.txt -query "some text to check"
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/dupefind/dupefind/pkg/config"
	"github.com/dupefind/dupefind/pkg/logging"
	"github.com/dupefind/dupefind/pkg/similarity"
	"github.com/dupefind/dupefind/pkg/storage/memory"
)

func main() {
	corpusPath := flag.String("corpus", "", "path to a newline-delimited corpus file (required)")
	query := flag.String("query", "", "text to search for near-duplicates of (required)")
	configPath := flag.String("config", "", "optional YAML/JSON config file (see pkg/config.StoreConfig)")
	topN := flag.Int("top", 5, "number of results to return")
	flag.Parse()

	log := logging.Default()

	if *corpusPath == "" || *query == "" {
		fmt.Fprintln(os.Stderr, "usage: dupefind -corpus <file> -query <text> [-top N] [-config <file>]")
		os.Exit(2)
	}

	if err := run(*corpusPath, *query, *configPath, *topN, log); err != nil {
		log.Error("dupefind run failed", "error", err)
		os.Exit(1)
	}
}

func run(corpusPath, query, configPath string, topN int, log *logging.Logger) error {
	ctx := context.Background()

	storeCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	simCfg, err := storeCfg.ToSimilarityConfig()
	if err != nil {
		return fmt.Errorf("resolve config: %w", err)
	}
	simCfg.Logger = log

	backend := memory.New()
	store, warn, err := similarity.New(ctx, backend, simCfg)
	if err != nil {
		return fmt.Errorf("build store: %w", err)
	}
	if warn != nil {
		log.Warn("planner warning", "kind", warn.Kind.String(), "message", warn.Message)
	}

	f, err := os.Open(corpusPath)
	if err != nil {
		return fmt.Errorf("open corpus: %w", err)
	}
	defer f.Close()

	inserted := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if _, err := store.Insert(ctx, line, similarity.InsertOptions{}); err != nil {
			return fmt.Errorf("insert line %d: %w", inserted+1, err)
		}
		inserted++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read corpus: %w", err)
	}
	log.Info("corpus indexed", "documents", inserted)

	results, err := store.TopN(ctx, query, topN, similarity.QueryOptions{})
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	if len(results) == 0 {
		fmt.Println("no near-duplicates found")
		return nil
	}
	for _, r := range results {
		text := "(not retained)"
		if r.Document != nil {
			text = *r.Document
		}
		if r.Jaccard >= 0 {
			fmt.Printf("id=%d jaccard=%.3f %q\n", r.ID, r.Jaccard, text)
		} else {
			fmt.Printf("id=%d %q\n", r.ID, text)
		}
	}
	return nil
}
