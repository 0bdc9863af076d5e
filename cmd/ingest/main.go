package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"offline-llm-be/internal/config"
	"offline-llm-be/pkg/embedding"
	"offline-llm-be/pkg/ingestion"
	"offline-llm-be/pkg/store"

	"github.com/fatih/color"
)

// ingest indexes documents into the permanent knowledge base from the
// command line, without going through the HTTP server.
//
//	ingest                 index every new file in the configured docs dir
//	ingest file1 file2 …   index the given files
func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	embedder := embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel)
	permanent, err := store.OpenCollection(cfg.Ingest.PersistDir, "persist", embedder)
	if err != nil {
		log.Fatalf("Failed to open permanent collection: %v", err)
	}
	defer permanent.Close()

	loader := ingestion.NewFileLoader(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	ctx := context.Background()

	paths := flag.Args()
	if len(paths) == 0 {
		entries, err := os.ReadDir(cfg.Ingest.DocsDir)
		if err != nil {
			log.Fatalf("Failed to read docs dir %q: %v", cfg.Ingest.DocsDir, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				paths = append(paths, filepath.Join(cfg.Ingest.DocsDir, entry.Name()))
			}
		}
	}

	indexed, skipped, failed := 0, 0, 0
	for _, path := range paths {
		source := filepath.Base(path)

		already, err := permanent.HasSource(ctx, source)
		if err != nil {
			log.Fatalf("Failed to check source %q: %v", source, err)
		}
		if already {
			color.Yellow("SKIP  %s (already indexed)", source)
			skipped++
			continue
		}

		passages, err := loader.Load(path)
		if err != nil {
			color.Red("FAIL  %s: %v", source, err)
			failed++
			continue
		}
		if err := permanent.AddPassages(ctx, passages); err != nil {
			color.Red("FAIL  %s: %v", source, err)
			failed++
			continue
		}

		color.Green("OK    %s (%d chunks)", source, len(passages))
		indexed++
	}

	fmt.Println()
	color.Cyan("indexed: %d  skipped: %d  failed: %d", indexed, skipped, failed)
	if failed > 0 {
		os.Exit(1)
	}
}
